package conference

import (
	"time"

	"github.com/turnroom/turnroom/pkg/com"
)

type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d, time.AfterFunc by default.
type AfterFunc func(d time.Duration, f func()) Timer

func timeAfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// TurnScheduler keeps track of who speaks now.
// Every grant has a number, an expiry reports it back so that
// the owner can drop expiries of grants which are already gone.
type TurnScheduler struct {
	active   *Participant
	grant    uint64
	deadline time.Time
	timer    Timer

	duration  time.Duration
	afterFunc AfterFunc
	onExpire  func(grant uint64, id com.Uid)
}

func NewTurnScheduler(duration time.Duration, afterFunc AfterFunc, onExpire func(grant uint64, id com.Uid)) *TurnScheduler {
	if afterFunc == nil {
		afterFunc = timeAfterFunc
	}
	return &TurnScheduler{duration: duration, afterFunc: afterFunc, onExpire: onExpire}
}

// Assign makes the first connected participant at the index or after it
// (wrapping around the roster) the active one.
// Any running grant is cancelled. It returns nil when nobody can speak.
func (t *TurnScheduler) Assign(r *Roster, index int) *Participant {
	t.Cancel()
	t.active = nil
	n := r.Len()
	if n == 0 {
		return nil
	}
	if index < 0 {
		index = 0
	}
	for k := 0; k < n; k++ {
		if p := r.At((index + k) % n); p.IsBound() {
			t.active = p
			break
		}
	}
	return t.active
}

// Start begins a new grant for the participant.
func (t *TurnScheduler) Start(p *Participant) {
	if p == nil || p != t.active {
		return
	}
	t.Cancel()
	t.grant++
	grant, id := t.grant, p.Id
	t.deadline = time.Now().Add(t.duration)
	t.timer = t.afterFunc(t.duration, func() {
		if t.onExpire != nil {
			t.onExpire(grant, id)
		}
	})
}

// Cancel stops the running grant, its expiry won't be current anymore.
func (t *TurnScheduler) Cancel() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.grant++
	t.deadline = time.Time{}
}

// IsCurrent tells if the grant is still running.
func (t *TurnScheduler) IsCurrent(grant uint64) bool { return t.timer != nil && t.grant == grant }

func (t *TurnScheduler) Active() *Participant { return t.active }

func (t *TurnScheduler) IsActive(id com.Uid) bool { return t.active != nil && t.active.Id == id }

// ActiveId returns the speaker connection id or the empty string.
func (t *TurnScheduler) ActiveId() string {
	if t.active == nil {
		return ""
	}
	return t.active.Id.String()
}

// Deadline is the grant end in Unix milliseconds, zero if nobody speaks.
func (t *TurnScheduler) Deadline() int64 {
	if t.deadline.IsZero() {
		return 0
	}
	return t.deadline.UnixMilli()
}
