// Package agent is a headless room participant.
// It joins a room the way a browser does, calls the other participants
// with WebRTC audio and gives its turn back after speaking for a while.
package agent

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/pion/webrtc/v3"
	"github.com/pion/webrtc/v3/pkg/media"
	"github.com/turnroom/turnroom/pkg/api"
	"github.com/turnroom/turnroom/pkg/com"
	"github.com/turnroom/turnroom/pkg/config"
	"github.com/turnroom/turnroom/pkg/logger"
)

var (
	ErrRejected = errors.New("rejected")
	ErrClosed   = errors.New("agent is closed")
)

const frameDuration = 20 * time.Millisecond

// silence is an Opus frame with no sound.
var silence = []byte{0xf8, 0xff, 0xfe}

// Event is something that happened in the room.
type Event struct {
	T api.PT
	// Peer is the participant the event is about.
	Peer string
	Text string
}

type Agent struct {
	conf   config.Agent
	api    *ApiFactory
	conn   *com.SocketClient
	client *Client

	track *webrtc.TrackLocalStaticSample

	mu     sync.Mutex
	id     string
	room   string
	active string
	roster map[string]string
	peers  map[string]*Peer
	yield  *time.Timer
	joined chan error

	events chan Event
	done   chan struct{}
	close  sync.Once
	log    *logger.Logger
}

func New(conf config.AgentConfig, log *logger.Logger) (*Agent, error) {
	if conf.Agent.Name == "" {
		return nil, fmt.Errorf("%w: no name", ErrRejected)
	}
	factory, err := NewApiFactory(conf.Webrtc, log, nil)
	if err != nil {
		return nil, err
	}
	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus}, "audio", "turnroom-"+conf.Agent.Name)
	if err != nil {
		return nil, err
	}
	return &Agent{
		conf:   conf.Agent,
		api:    factory,
		track:  track,
		client: NewClient(conf.Agent.Server),
		roster: map[string]string{},
		peers:  map[string]*Peer{},
		joined: make(chan error, 1),
		events: make(chan Event, 100),
		done:   make(chan struct{}),
		log:    log.Extend(log.With().Str("agent", conf.Agent.Name)),
	}, nil
}

// Join reserves the name with the join form, connects to the room
// and waits for the room state.
func (a *Agent) Join(ctx context.Context) error {
	room, err := a.client.Reserve(ctx, a.conf.Room, a.conf.Name)
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.room = room
	a.mu.Unlock()

	codec, err := com.CodecByName(a.conf.Codec)
	if err != nil {
		return err
	}
	addr, err := a.socketAddress(room)
	if err != nil {
		return err
	}
	conn, err := com.NewConnector(com.WithTag("agent")).NewClient(addr, codec, a.log)
	if err != nil {
		return err
	}
	a.conn = conn
	conn.OnPacket(a.handle)
	go func() {
		<-conn.Listen()
		a.Close()
	}()

	if err = conn.Notify(api.Join, api.JoinRequest{Name: a.conf.Name}); err != nil {
		return err
	}
	go a.speak()

	select {
	case err = <-a.joined:
	case <-a.done:
		err = ErrClosed
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil {
		a.Close()
	}
	return err
}

func (a *Agent) socketAddress(room string) (url.URL, error) {
	u, err := url.Parse(a.conf.Server)
	if err != nil {
		return url.URL{}, err
	}
	scheme := "ws"
	if u.Scheme == "https" {
		scheme = "wss"
	}
	q := url.Values{"room": {room}, "codec": {a.conf.Codec}}
	return url.URL{Scheme: scheme, Host: u.Host, Path: "/ws", RawQuery: q.Encode()}, nil
}

func (a *Agent) handle(in api.In) error {
	codec := a.conn.Codec()
	switch in.T {
	case api.RoomState:
		rs, err := com.Unwrap[api.RoomStateResponse](codec, in.Payload)
		if err != nil {
			return err
		}
		a.onRoomState(rs)
	case api.ParticipantJoined:
		rs, err := com.Unwrap[api.ParticipantJoinedNotification](codec, in.Payload)
		if err != nil {
			return err
		}
		a.mu.Lock()
		a.roster[rs.Participant.Id] = rs.Participant.Name
		a.mu.Unlock()
		if rs.Active {
			a.setActive(rs.Participant.Id)
		}
		a.emit(Event{T: in.T, Peer: rs.Participant.Id, Text: rs.Participant.Name})
	case api.SessionOffer:
		rs, err := com.Unwrap[api.OfferNotification](codec, in.Payload)
		if err != nil {
			return err
		}
		if err = a.answer(rs.Caller, rs.Offer); err != nil {
			return err
		}
		a.emit(Event{T: in.T, Peer: rs.Caller})
	case api.SessionAnswer:
		rs, err := com.Unwrap[api.AnswerNotification](codec, in.Payload)
		if err != nil {
			return err
		}
		var sdp webrtc.SessionDescription
		if err = json.Unmarshal(rs.Answer, &sdp); err != nil {
			return fmt.Errorf("%w: %v", api.ErrMalformed, err)
		}
		p := a.peer(rs.Responder)
		if p == nil {
			return fmt.Errorf("answer from unknown peer %v", rs.Responder)
		}
		if err = p.SetAnswer(sdp); err != nil {
			return err
		}
		a.emit(Event{T: in.T, Peer: rs.Responder})
	case api.NetworkCandidate:
		rs, err := com.Unwrap[api.CandidateNotification](codec, in.Payload)
		if err != nil {
			return err
		}
		var candidate webrtc.ICECandidateInit
		if err = json.Unmarshal(rs.Candidate, &candidate); err != nil {
			return fmt.Errorf("%w: %v", api.ErrMalformed, err)
		}
		p, err := a.peerOrNew(rs.Sender)
		if err != nil {
			return err
		}
		return p.AddCandidate(candidate)
	case api.TurnAssigned:
		rs, err := com.Unwrap[api.TurnAssignedNotification](codec, in.Payload)
		if err != nil {
			return err
		}
		a.setActive(rs.Active)
		a.emit(Event{T: in.T, Peer: rs.Active})
	case api.TurnRevoked:
		a.emit(Event{T: in.T, Peer: a.Id()})
	case api.TextMessage:
		rs, err := com.Unwrap[api.TextNotification](codec, in.Payload)
		if err != nil {
			return err
		}
		a.emit(Event{T: in.T, Peer: rs.Name, Text: rs.Text})
	case api.ParticipantLeft:
		rs, err := com.Unwrap[api.ParticipantLeftNotification](codec, in.Payload)
		if err != nil {
			return err
		}
		a.mu.Lock()
		p := a.peers[rs.Id]
		delete(a.peers, rs.Id)
		delete(a.roster, rs.Id)
		a.mu.Unlock()
		if p != nil {
			p.Close()
		}
		a.setActive(rs.Active)
		a.emit(Event{T: in.T, Peer: rs.Id})
	case api.Error:
		rs, err := com.Unwrap[api.ErrorResponse](codec, in.Payload)
		if err != nil {
			return err
		}
		a.log.Warn().Str("reason", rs.Reason).Msg("Room error")
		select {
		case a.joined <- fmt.Errorf("%w: %v", ErrRejected, rs.Reason):
		default:
		}
		a.emit(Event{T: in.T, Text: rs.Reason})
	default:
		return fmt.Errorf("%w: %v", api.ErrUnknownType, in.T)
	}
	return nil
}

func (a *Agent) onRoomState(rs *api.RoomStateResponse) {
	a.api.SetIceServers(rs.Ice)
	a.mu.Lock()
	a.id = rs.Id
	for _, p := range rs.Roster {
		a.roster[p.Id] = p.Name
	}
	a.mu.Unlock()
	a.setActive(rs.Active)
	a.log.Info().Str("room", rs.Room).Int("participants", len(rs.Roster)).Msg("Joined")

	// the newcomer calls everybody
	for _, p := range rs.Roster {
		if p.Id == rs.Id {
			continue
		}
		if err := a.call(p.Id); err != nil {
			a.log.Error().Err(err).Str("peer", p.Name).Msg("call")
		}
	}
	select {
	case a.joined <- nil:
	default:
	}
	a.emit(Event{T: api.RoomState, Peer: rs.Active})
}

func (a *Agent) call(id string) error {
	p, err := a.peerOrNew(id)
	if err != nil {
		return err
	}
	offer, err := p.Offer()
	if err != nil {
		return err
	}
	blob, err := json.Marshal(offer)
	if err != nil {
		return err
	}
	return a.conn.Notify(api.SessionOffer, api.OfferRequest{Target: id, Offer: blob})
}

func (a *Agent) answer(caller string, offer api.Blob) error {
	var sdp webrtc.SessionDescription
	if err := json.Unmarshal(offer, &sdp); err != nil {
		return fmt.Errorf("%w: %v", api.ErrMalformed, err)
	}
	p, err := a.peerOrNew(caller)
	if err != nil {
		return err
	}
	answer, err := p.Answer(sdp)
	if err != nil {
		return err
	}
	blob, err := json.Marshal(answer)
	if err != nil {
		return err
	}
	return a.conn.Notify(api.SessionAnswer, api.AnswerRequest{Caller: caller, Answer: blob})
}

func (a *Agent) peer(id string) *Peer {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.peers[id]
}

func (a *Agent) peerOrNew(id string) (*Peer, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if p, ok := a.peers[id]; ok {
		return p, nil
	}
	log := a.log.Extend(a.log.With().Str("peer", a.roster[id]))
	p, err := newPeer(a.api, id, a.track, func(c webrtc.ICECandidateInit) {
		blob, err := json.Marshal(c)
		if err != nil {
			return
		}
		_ = a.conn.Notify(api.NetworkCandidate, api.CandidateRequest{Target: id, Candidate: blob})
	}, log)
	if err != nil {
		return nil, err
	}
	a.peers[id] = p
	return p, nil
}

// setActive remembers the speaker and schedules
// the turn completion when it's our turn.
func (a *Agent) setActive(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.active = id
	if a.yield != nil {
		a.yield.Stop()
		a.yield = nil
	}
	if id == "" || id != a.id || a.conf.Speak <= 0 {
		return
	}
	a.yield = time.AfterFunc(a.conf.Speak, func() { _ = a.Yield() })
}

// speak streams silence while the agent holds the turn.
func (a *Agent) speak() {
	ticker := time.NewTicker(frameDuration)
	defer ticker.Stop()
	for {
		select {
		case <-a.done:
			return
		case <-ticker.C:
			if !a.IsSpeaking() {
				continue
			}
			if err := a.track.WriteSample(media.Sample{Data: silence, Duration: frameDuration}); err != nil {
				a.log.Warn().Err(err).Msg("audio")
			}
		}
	}
}

// Yield gives the turn to the next participant.
func (a *Agent) Yield() error {
	if !a.IsSpeaking() {
		return nil
	}
	a.log.Info().Msg("Turn completed")
	return a.conn.Notify(api.TurnCompleted, nil)
}

func (a *Agent) Text(text string) error {
	if a.conn == nil {
		return ErrClosed
	}
	return a.conn.Notify(api.TextMessage, api.TextRequest{Text: text})
}

func (a *Agent) emit(e Event) {
	select {
	case a.events <- e:
	default:
		a.log.Warn().Msgf("event %v dropped", e.T)
	}
}

func (a *Agent) IsSpeaking() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.id != "" && a.active == a.id
}

// Roster returns participant names by their ids.
func (a *Agent) Roster() map[string]string {
	a.mu.Lock()
	defer a.mu.Unlock()
	r := make(map[string]string, len(a.roster))
	for k, v := range a.roster {
		r[k] = v
	}
	return r
}

// Peers returns WebRTC connection states by participant ids.
func (a *Agent) Peers() map[string]webrtc.PeerConnectionState {
	a.mu.Lock()
	defer a.mu.Unlock()
	r := make(map[string]webrtc.PeerConnectionState, len(a.peers))
	for k, p := range a.peers {
		r[k] = p.State()
	}
	return r
}

func (a *Agent) Events() <-chan Event  { return a.events }
func (a *Agent) Done() <-chan struct{} { return a.done }
func (a *Agent) Id() string            { a.mu.Lock(); defer a.mu.Unlock(); return a.id }
func (a *Agent) Room() string          { a.mu.Lock(); defer a.mu.Unlock(); return a.room }
func (a *Agent) Active() string        { a.mu.Lock(); defer a.mu.Unlock(); return a.active }

// Close hangs up all the calls and leaves the room.
func (a *Agent) Close() {
	a.close.Do(func() {
		close(a.done)
		a.mu.Lock()
		peers := a.peers
		a.peers = map[string]*Peer{}
		if a.yield != nil {
			a.yield.Stop()
		}
		a.mu.Unlock()
		for _, p := range peers {
			p.Close()
		}
		if a.conn != nil {
			a.conn.Disconnect()
		}
		a.log.Debug().Msg("Agent closed")
	})
}
