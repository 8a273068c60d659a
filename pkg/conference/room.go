package conference

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/turnroom/turnroom/pkg/api"
	"github.com/turnroom/turnroom/pkg/com"
	"github.com/turnroom/turnroom/pkg/logger"
)

type Options struct {
	GrantDuration time.Duration
	PendingTTL    time.Duration
	IdleTTL       time.Duration
	MaxNameLength int
	MaxTextLength int
	Ice           []api.IceServer
	// AfterFunc replaces the grant timers.
	AfterFunc AfterFunc
}

func (o *Options) defaults() {
	if o.GrantDuration <= 0 {
		o.GrantDuration = 30 * time.Second
	}
	if o.PendingTTL <= 0 {
		o.PendingTTL = time.Minute
	}
	if o.IdleTTL <= 0 {
		o.IdleTTL = 5 * time.Minute
	}
	if o.MaxNameLength <= 0 {
		o.MaxNameLength = 32
	}
	if o.MaxTextLength <= 0 {
		o.MaxTextLength = 1000
	}
}

// Snapshot is a copy of the room state.
type Snapshot struct {
	Room     string            `json:"room"`
	Roster   []api.Participant `json:"roster"`
	Pending  []string          `json:"pending,omitempty"`
	Active   string            `json:"active,omitempty"`
	Deadline int64             `json:"deadline,omitempty"`
}

// Room is a single conference.
// Its roster and turns are changed only by the room goroutine,
// everybody else posts events.
type Room struct {
	id         string
	persistent bool
	opts       Options

	roster  Roster
	turn    *TurnScheduler
	members members
	relay   Relay

	emptySince time.Time

	events  chan Event
	quit    chan struct{}
	done    chan struct{}
	stop    sync.Once
	onClose func(*Room)

	log *logger.Logger
}

const eventQueue = 64

func newRoom(id string, persistent bool, opts Options, log *logger.Logger) *Room {
	opts.defaults()
	r := &Room{
		id:         id,
		persistent: persistent,
		opts:       opts,
		members:    make(members),
		events:     make(chan Event, eventQueue),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		emptySince: time.Now(),
		log:        log.Extend(log.With().Str(logger.RoomField, shortId(id))),
	}
	r.relay = NewRelay(r.members, r.log)
	r.turn = NewTurnScheduler(opts.GrantDuration, opts.AfterFunc, func(grant uint64, id com.Uid) {
		_ = r.Post(grantExpired{grant: grant, id: id})
	})
	return r
}

func (r *Room) Id() string { return r.id }

// Done is closed when the room stops.
func (r *Room) Done() <-chan struct{} { return r.done }

func (r *Room) String() string { return fmt.Sprintf("room::%s", r.id) }

func (r *Room) start() { go r.run() }

func (r *Room) run() {
	defer close(r.done)
	r.log.Info().Bool("persistent", r.persistent).Msg("Room is open")
	tick := time.NewTicker(max(r.opts.PendingTTL/2, time.Millisecond))
	defer tick.Stop()
	for {
		select {
		case <-r.quit:
			r.shutdown()
			return
		case e := <-r.events:
			r.handle(e)
		case now := <-tick.C:
			r.handle(sweep{now: now})
			if r.isIdle(now) {
				r.log.Info().Msg("Room is idle")
				r.shutdown()
				return
			}
		}
	}
}

// Post puts the event into the room queue.
func (r *Room) Post(e Event) error {
	select {
	case <-r.done:
		return ErrRoomClosed
	case <-r.quit:
		return ErrRoomClosed
	default:
	}
	select {
	case r.events <- e:
		return nil
	case <-r.done:
		return ErrRoomClosed
	}
}

// Reserve adds a pending participant with the name,
// the participant should join with a connection later.
func (r *Room) Reserve(ctx context.Context, name string) error {
	if err := r.validName(name); err != nil {
		return err
	}
	reply := make(chan error, 1)
	if err := r.Post(reserve{name: name, reply: reply}); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-r.done:
		return ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns a copy of the room state.
func (r *Room) State(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	if err := r.Post(query{reply: reply}); err != nil {
		return Snapshot{}, err
	}
	select {
	case s := <-reply:
		return s, nil
	case <-r.done:
		return Snapshot{}, ErrRoomClosed
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// Close stops the room and disconnects all its members.
func (r *Room) Close() {
	r.stop.Do(func() { close(r.quit) })
	<-r.done
}

func (r *Room) shutdown() {
	r.stop.Do(func() { close(r.quit) })
	r.turn.Cancel()
	r.members.ForEach(func(p Peer) { p.Disconnect() })
	participantsGauge.Sub(float64(len(r.members)))
	for id := range r.members {
		delete(r.members, id)
	}
	if r.onClose != nil {
		r.onClose(r)
	}
	r.log.Info().Msg("Room is closed")
}

func (r *Room) isIdle(now time.Time) bool {
	return !r.persistent && r.roster.Len() == 0 && now.Sub(r.emptySince) >= r.opts.IdleTTL
}

// handle applies a single event, a failing event doesn't stop the room.
func (r *Room) handle(e Event) {
	defer func() {
		if err := recover(); err != nil {
			panicsCounter.Inc()
			r.log.Error().Msgf("event %T panic: %v", e, err)
		}
	}()

	switch ev := e.(type) {
	case reserve:
		ev.reply <- r.reserve(ev.name)
	case query:
		ev.reply <- r.snapshot()
	case Join:
		r.join(ev)
	case Offer:
		if r.isMember(ev.From, "offer") {
			r.relay.RouteOffer(ev.Target, ev.From, ev.Offer)
		}
	case Answer:
		if r.isMember(ev.From, "answer") {
			r.relay.RouteAnswer(ev.Caller, ev.From, ev.Answer)
		}
	case Candidate:
		if r.isMember(ev.From, "candidate") {
			r.relay.RouteCandidate(ev.Target, ev.From, ev.Candidate)
		}
	case TurnCompleted:
		r.advance(ev.From, reasonComplete)
	case grantExpired:
		r.expire(ev)
	case Text:
		r.text(ev)
	case Disconnect:
		r.disconnect(ev.Id)
	case sweep:
		r.sweep(ev.now)
	}
}

func (r *Room) validName(name string) error {
	if strings.TrimSpace(name) == "" || utf8.RuneCountInString(name) > r.opts.MaxNameLength {
		return ErrInvalidName
	}
	for _, c := range name {
		if unicode.IsControl(c) {
			return ErrInvalidName
		}
	}
	return nil
}

func (r *Room) reserve(name string) error {
	if _, err := r.roster.Insert(name, time.Now()); err != nil {
		return err
	}
	r.log.Debug().Str("name", name).Msg("Reserved")
	return nil
}

func (r *Room) join(ev Join) {
	peer := ev.Peer
	id := peer.Id()
	if _, ok := r.members.Find(id); ok {
		r.reject(peer, ErrAlreadyBound)
		return
	}
	if _, err := r.roster.Bind(ev.Name, id); err != nil {
		r.reject(peer, fmt.Errorf("join %q: %w", ev.Name, err))
		return
	}
	r.members[id] = peer
	participantsGauge.Inc()
	r.log.Info().Str(logger.ClientField, id.Short()).Str("name", ev.Name).Msg("Joined")

	if r.turn.Active() == nil {
		r.turn.Start(r.turn.Assign(&r.roster, 0))
		countTurn(reasonJoin)
	}

	_ = peer.Notify(api.RoomState, api.RoomStateResponse{
		Room:     r.id,
		Id:       id.String(),
		Roster:   r.participants(),
		Active:   r.turn.ActiveId(),
		Ice:      r.opts.Ice,
		Deadline: r.turn.Deadline(),
	})
	r.relay.Broadcast(api.ParticipantJoined, api.ParticipantJoinedNotification{
		Participant: api.Participant{Name: ev.Name, Id: id.String()},
		Active:      r.turn.IsActive(id),
	}, id)
}

func (r *Room) reject(peer Peer, err error) {
	r.log.Warn().Err(err).Str(logger.ClientField, peer.Id().Short()).Msg("Join rejected")
	_ = peer.Notify(api.Error, api.ErrorResponse{Reason: err.Error()})
}

func (r *Room) isMember(id com.Uid, what string) bool {
	if _, ok := r.members.Find(id); !ok {
		r.log.Debug().Str(logger.ClientField, id.Short()).Msgf("%v from a stranger", what)
		return false
	}
	return true
}

// advance passes the turn from the speaker to the next one.
// Only the current speaker can give up the turn.
func (r *Room) advance(from com.Uid, reason string) {
	if !r.turn.IsActive(from) {
		r.log.Debug().Str(logger.ClientField, from.Short()).Msg("Turn completion from a non-speaker")
		return
	}
	i, err := r.roster.IndexOf(from)
	if err != nil {
		r.log.Warn().Err(err).Str(logger.ClientField, from.Short()).Msg("Speaker is not in the roster")
		return
	}
	r.turn.Start(r.turn.Assign(&r.roster, i+1))
	countTurn(reason)
	r.relay.Broadcast(api.TurnAssigned, api.TurnAssignedNotification{
		Active:   r.turn.ActiveId(),
		Deadline: r.turn.Deadline(),
	})
}

func (r *Room) expire(ev grantExpired) {
	if !r.turn.IsCurrent(ev.grant) || !r.turn.IsActive(ev.id) {
		return
	}
	r.log.Debug().Str(logger.ClientField, ev.id.Short()).Msg("Turn has expired")
	if p, ok := r.members.Find(ev.id); ok {
		_ = p.Notify(api.TurnRevoked, nil)
	}
	r.advance(ev.id, reasonExpire)
}

func (r *Room) text(ev Text) {
	i, err := r.roster.IndexOf(ev.From)
	if err != nil || !r.isMember(ev.From, "text") {
		return
	}
	text := ev.Text
	if utf8.RuneCountInString(text) > r.opts.MaxTextLength {
		text = string([]rune(text)[:r.opts.MaxTextLength])
	}
	if strings.TrimSpace(text) == "" {
		return
	}
	r.relay.Broadcast(api.TextMessage, api.TextNotification{Name: r.roster.At(i).Name, Text: text}, ev.From)
}

func (r *Room) disconnect(id com.Uid) {
	_, isMember := r.members.Find(id)
	delete(r.members, id)
	i, p, err := r.roster.Remove(id)
	if err != nil {
		return
	}
	if isMember {
		participantsGauge.Dec()
	}
	r.log.Info().Str(logger.ClientField, id.Short()).Str("name", p.Name).Msg("Left")

	if r.turn.Active() == p {
		r.turn.Cancel()
		if next := r.turn.Assign(&r.roster, i); next != nil {
			r.turn.Start(next)
			countTurn(reasonLeave)
		}
	}
	if r.roster.Len() == 0 {
		r.emptySince = time.Now()
	}
	r.relay.Broadcast(api.ParticipantLeft, api.ParticipantLeftNotification{
		Id:     id.String(),
		Active: r.turn.ActiveId(),
	})
}

func (r *Room) sweep(now time.Time) {
	if names := r.roster.RemovePendingBefore(now.Add(-r.opts.PendingTTL)); len(names) > 0 {
		r.log.Debug().Strs("names", names).Msg("Reservations expired")
		if r.roster.Len() == 0 {
			r.emptySince = now
		}
	}
}

func (r *Room) participants() []api.Participant {
	list := r.roster.Members()
	out := make([]api.Participant, len(list))
	for i, p := range list {
		out[i] = api.Participant{Name: p.Name, Id: p.Id.String()}
	}
	return out
}

func (r *Room) snapshot() Snapshot {
	s := Snapshot{
		Room:     r.id,
		Roster:   r.participants(),
		Active:   r.turn.ActiveId(),
		Deadline: r.turn.Deadline(),
	}
	for i := 0; i < r.roster.Len(); i++ {
		if p := r.roster.At(i); !p.IsBound() {
			s.Pending = append(s.Pending, p.Name)
		}
	}
	return s
}

func shortId(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
