package api

// This list of postfixes is used in the API:
// - *Request postfix denotes client calls (i.e. from a browser to the coordinator).
// - *Response and *Notification postfixes denote coordinator packets sent to clients.

type IceServer struct {
	Urls       string `json:"urls,omitempty"`
	Username   string `json:"username,omitempty"`
	Credential string `json:"credential,omitempty"`
}

type Participant struct {
	Name string `json:"name"`
	Id   string `json:"id"`
}

type JoinRequest struct {
	Name string `json:"name"`
}

// RoomStateResponse is sent to a participant once it has joined.
// Active is empty when nobody speaks, Deadline is Unix milliseconds.
type RoomStateResponse struct {
	Room     string        `json:"room"`
	Id       string        `json:"id"`
	Roster   []Participant `json:"roster"`
	Active   string        `json:"active,omitempty"`
	Ice      []IceServer   `json:"ice,omitempty"`
	Deadline int64         `json:"deadline,omitempty"`
}

type ParticipantJoinedNotification struct {
	Participant Participant `json:"participant"`
	Active      bool        `json:"active"`
}

type ParticipantLeftNotification struct {
	Id     string `json:"id"`
	Active string `json:"active,omitempty"`
}

type TurnAssignedNotification struct {
	Active   string `json:"active,omitempty"`
	Deadline int64  `json:"deadline,omitempty"`
}

type ErrorResponse struct {
	Reason string `json:"reason"`
}

// RoomInfo is a room in the list of the HTTP API.
type RoomInfo struct {
	Room         string `json:"room"`
	Participants int    `json:"participants"`
	Default      bool   `json:"default,omitempty"`
}
