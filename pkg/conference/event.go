package conference

import (
	"time"

	"github.com/turnroom/turnroom/pkg/api"
	"github.com/turnroom/turnroom/pkg/com"
)

// Event is something that happens to a room.
// All room changes go through events handled one by one in the room goroutine.
type Event interface {
	event()
}

type (
	Join struct {
		Name string
		Peer Peer
	}
	Offer struct {
		From   com.Uid
		Target com.Uid
		Offer  api.Blob
	}
	Answer struct {
		From   com.Uid
		Caller com.Uid
		Answer api.Blob
	}
	Candidate struct {
		From      com.Uid
		Target    com.Uid
		Candidate api.Blob
	}
	TurnCompleted struct {
		From com.Uid
	}
	Text struct {
		From com.Uid
		Text string
	}
	Disconnect struct {
		Id com.Uid
	}

	reserve struct {
		name  string
		reply chan error
	}
	query struct {
		reply chan Snapshot
	}
	grantExpired struct {
		grant uint64
		id    com.Uid
	}
	sweep struct {
		now time.Time
	}
)

func (Join) event()          {}
func (Offer) event()         {}
func (Answer) event()        {}
func (Candidate) event()     {}
func (TurnCompleted) event() {}
func (Text) event()          {}
func (Disconnect) event()    {}
func (reserve) event()       {}
func (query) event()         {}
func (grantExpired) event()  {}
func (sweep) event()         {}
