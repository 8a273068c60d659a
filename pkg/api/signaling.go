package api

// Signaling packets keep their session descriptions and candidates
// as opaque Blob values, the coordinator never parses them.

type OfferRequest struct {
	Target string `json:"target"`
	Offer  Blob   `json:"offer"`
}

type OfferNotification struct {
	Caller string `json:"caller"`
	Offer  Blob   `json:"offer"`
}

type AnswerRequest struct {
	Caller string `json:"caller"`
	Answer Blob   `json:"answer"`
}

type AnswerNotification struct {
	Responder string `json:"responder"`
	Answer    Blob   `json:"answer"`
}

type CandidateRequest struct {
	Target    string `json:"target"`
	Candidate Blob   `json:"candidate"`
}

type CandidateNotification struct {
	Sender    string `json:"sender"`
	Candidate Blob   `json:"candidate"`
}

type TextRequest struct {
	Text string `json:"text"`
}

type TextNotification struct {
	Name string `json:"name"`
	Text string `json:"text"`
}
