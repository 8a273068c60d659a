package conference

import (
	"github.com/turnroom/turnroom/pkg/api"
	"github.com/turnroom/turnroom/pkg/com"
	"github.com/turnroom/turnroom/pkg/logger"
)

// Peer is a room member connection.
type Peer interface {
	Id() com.Uid
	Notify(t api.PT, payload any) error
	Disconnect()
}

// Directory looks up room members by their connection ids.
type Directory interface {
	Find(id com.Uid) (Peer, bool)
	ForEach(fn func(p Peer))
}

// members is the room Directory, owned by the room goroutine.
type members map[com.Uid]Peer

func (m members) Find(id com.Uid) (Peer, bool) { p, ok := m[id]; return p, ok }

func (m members) ForEach(fn func(p Peer)) {
	for _, p := range m {
		fn(p)
	}
}

// Relay routes signaling packets between two members
// without looking into their payloads.
// Packets to the members that are gone are dropped.
type Relay struct {
	dir Directory
	log *logger.Logger
}

func NewRelay(dir Directory, log *logger.Logger) Relay { return Relay{dir: dir, log: log} }

func (r Relay) RouteOffer(target, caller com.Uid, offer api.Blob) bool {
	return r.send(target, api.SessionOffer, api.OfferNotification{Caller: caller.String(), Offer: offer})
}

func (r Relay) RouteAnswer(caller, responder com.Uid, answer api.Blob) bool {
	return r.send(caller, api.SessionAnswer, api.AnswerNotification{Responder: responder.String(), Answer: answer})
}

func (r Relay) RouteCandidate(target, sender com.Uid, candidate api.Blob) bool {
	return r.send(target, api.NetworkCandidate, api.CandidateNotification{Sender: sender.String(), Candidate: candidate})
}

// Broadcast sends the packet to every member except the excluded ones.
func (r Relay) Broadcast(t api.PT, payload any, exclude ...com.Uid) {
	r.dir.ForEach(func(p Peer) {
		for _, id := range exclude {
			if p.Id() == id {
				return
			}
		}
		if err := p.Notify(t, payload); err != nil {
			r.log.Debug().Err(err).Str(logger.ClientField, p.Id().Short()).Msgf("broadcast %v", t)
		}
	})
}

func (r Relay) send(to com.Uid, t api.PT, payload any) bool {
	p, ok := r.dir.Find(to)
	if !ok {
		r.log.Debug().Str("to", to.String()).Msgf("%v to nobody", t)
		countRelay(t.String(), false)
		return false
	}
	if err := p.Notify(t, payload); err != nil {
		r.log.Debug().Err(err).Str(logger.ClientField, to.Short()).Msgf("%v", t)
		countRelay(t.String(), false)
		return false
	}
	countRelay(t.String(), true)
	return true
}
