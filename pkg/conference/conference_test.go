package conference

import (
	"sync"
	"testing"
	"time"

	"github.com/turnroom/turnroom/pkg/api"
	"github.com/turnroom/turnroom/pkg/com"
	"github.com/turnroom/turnroom/pkg/logger"
)

type fakePeer struct {
	id     com.Uid
	mu     sync.Mutex
	out    []api.Out
	closed bool
}

func newPeer() *fakePeer { return &fakePeer{id: com.NewUid()} }

func (p *fakePeer) Id() com.Uid { return p.id }

func (p *fakePeer) Notify(t api.PT, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.out = append(p.out, api.Out{T: t, Payload: payload})
	return nil
}

func (p *fakePeer) Disconnect() { p.mu.Lock(); p.closed = true; p.mu.Unlock() }

func (p *fakePeer) packets() []api.Out {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]api.Out(nil), p.out...)
}

func (p *fakePeer) count(t api.PT) (n int) {
	for _, o := range p.packets() {
		if o.T == t {
			n++
		}
	}
	return
}

func (p *fakePeer) last(t api.PT) (api.Out, bool) {
	list := p.packets()
	for i := len(list) - 1; i >= 0; i-- {
		if list[i].T == t {
			return list[i], true
		}
	}
	return api.Out{}, false
}

func (p *fakePeer) reset() { p.mu.Lock(); p.out = nil; p.mu.Unlock() }

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool { was := !t.stopped; t.stopped = true; return was }

type fakeTimers struct {
	mu   sync.Mutex
	list []*fakeTimer
}

func (ft *fakeTimers) afterFunc(d time.Duration, f func()) Timer {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	t := &fakeTimer{d: d, f: f}
	ft.list = append(ft.list, t)
	return t
}

func (ft *fakeTimers) last() *fakeTimer {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	if len(ft.list) == 0 {
		return nil
	}
	return ft.list[len(ft.list)-1]
}

func (ft *fakeTimers) running() (n int) {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	for _, t := range ft.list {
		if !t.stopped {
			n++
		}
	}
	return
}

// testRoom makes a room which is driven directly by the test goroutine.
func testRoom(t *testing.T) (*Room, *fakeTimers) {
	t.Helper()
	timers := &fakeTimers{}
	r := newRoom("test-room", false, Options{AfterFunc: timers.afterFunc}, logger.Nop())
	return r, timers
}

func reserveName(t *testing.T, r *Room, name string) error {
	t.Helper()
	reply := make(chan error, 1)
	r.handle(reserve{name: name, reply: reply})
	return <-reply
}

func joinAs(t *testing.T, r *Room, name string) *fakePeer {
	t.Helper()
	if err := reserveName(t, r, name); err != nil {
		t.Fatalf("reserve %v: %v", name, err)
	}
	p := newPeer()
	r.handle(Join{Name: name, Peer: p})
	if _, ok := r.members.Find(p.id); !ok {
		t.Fatalf("%v has not joined", name)
	}
	return p
}

// fire runs the timer callback and handles the resulting event.
func fire(t *testing.T, r *Room, timer *fakeTimer) {
	t.Helper()
	timer.f()
	select {
	case e := <-r.events:
		r.handle(e)
	default:
		t.Fatalf("timer has posted nothing")
	}
}

func rosterNames(r *Room) (names []string) {
	for _, p := range r.roster.Members() {
		names = append(names, p.Name)
	}
	return
}

func activeName(r *Room) string {
	if a := r.turn.Active(); a != nil {
		return a.Name
	}
	return ""
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func checkSingleSpeaker(t *testing.T, r *Room) {
	t.Helper()
	a := r.turn.Active()
	if a == nil {
		return
	}
	for _, p := range r.roster.Members() {
		if p == a {
			return
		}
	}
	t.Fatalf("active participant %v is not in the roster %v", a.Name, rosterNames(r))
}
