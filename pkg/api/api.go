// Package api defines the wire protocol between the coordinator and room participants.
//
// Each message is a "packet" of the following structure:
//
//	id - (optional) a packet id for request tracking;
//	 t - (required) one of the predefined unique packet types;
//	 p - (optional) packet payload with arbitrary data.
//
// Packets differentiate by their types with which it is possible to unwrap
// the payload into distinct request/response data structures.
// Packets are encoded either as JSON (text frames) or MessagePack (binary frames),
// the payload struct tags are shared by both encodings.
//
// Example:
//
//	{"t":10,"p":{"target":"cs2ftm8ioh4g4d2qigb0","offer":{"type":"offer","sdp":"v=0..."}}}
package api

import (
	"errors"
	"fmt"
)

type PT uint8

type In struct {
	Id      string
	T       PT
	Payload []byte // raw payload for the second decoding pass
}

type Out struct {
	Id      string `json:"id,omitempty"`
	T       PT     `json:"t"`
	Payload any    `json:"p,omitempty"`
}

// Packet codes:
//
//	x - room membership
//	1x - signaling relay
//	2x - speaking turns
//	3x - chat
//	4x, 5x - notifications
const (
	Join              PT = 1
	RoomState         PT = 2
	ParticipantJoined PT = 3
	SessionOffer      PT = 10
	SessionAnswer     PT = 11
	NetworkCandidate  PT = 12
	TurnCompleted     PT = 20
	TurnAssigned      PT = 21
	TurnRevoked       PT = 22
	TextMessage       PT = 30
	ParticipantLeft   PT = 40
	Error             PT = 50
)

func (p PT) String() string {
	switch p {
	case Join:
		return "Join"
	case RoomState:
		return "RoomState"
	case ParticipantJoined:
		return "ParticipantJoined"
	case SessionOffer:
		return "SessionOffer"
	case SessionAnswer:
		return "SessionAnswer"
	case NetworkCandidate:
		return "NetworkCandidate"
	case TurnCompleted:
		return "TurnCompleted"
	case TurnAssigned:
		return "TurnAssigned"
	case TurnRevoked:
		return "TurnRevoked"
	case TextMessage:
		return "TextMessage"
	case ParticipantLeft:
		return "ParticipantLeft"
	case Error:
		return "Error"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(p))
	}
}

var (
	ErrMalformed   = errors.New("malformed")
	ErrUnknownType = errors.New("unknown packet type")
)

// Blob is an opaque JSON value (SDP, ICE candidate) that is relayed
// byte for byte without being looked into.
// It is embedded as is into JSON packets and as bytes into MessagePack ones,
// so MessagePack clients must put JSON text there too.
type Blob []byte

func (b Blob) MarshalJSON() ([]byte, error) {
	if len(b) == 0 {
		return []byte("null"), nil
	}
	return b, nil
}

func (b *Blob) UnmarshalJSON(data []byte) error {
	if b == nil {
		return errors.New("api.Blob: UnmarshalJSON on nil pointer")
	}
	*b = append((*b)[0:0], data...)
	return nil
}
