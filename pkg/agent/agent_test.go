package agent

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/turnroom/turnroom/pkg/api"
	"github.com/turnroom/turnroom/pkg/config"
	"github.com/turnroom/turnroom/pkg/coordinator"
	"github.com/turnroom/turnroom/pkg/logger"
)

func startCoordinator(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, page := range []string{"index.html", "room.html"} {
		if err := os.WriteFile(filepath.Join(dir, page), []byte(page), 0644); err != nil {
			t.Fatal(err)
		}
	}
	var conf config.CoordinatorConfig
	conf.Coordinator.Server.Address = "127.0.0.1:0"
	conf.Coordinator.Web.Dir = dir
	conf.Coordinator.Room = config.Room{
		GrantDuration: time.Minute,
		PendingTTL:    time.Minute,
		IdleTTL:       time.Minute,
		MaxNameLength: 32,
		MaxTextLength: 100,
	}
	c, err := coordinator.New(conf, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	c.Start()
	t.Cleanup(func() { _ = c.Shutdown(context.Background()) })
	return "http://" + c.Addr()
}

func newAgent(t *testing.T, server string, name string, codec string, speak time.Duration) *Agent {
	t.Helper()
	var conf config.AgentConfig
	conf.Agent = config.Agent{Server: server, Name: name, Codec: codec, Speak: speak}
	a, err := New(conf, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(a.Close)
	return a
}

func join(t *testing.T, a *Agent) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.Join(ctx); err != nil {
		t.Fatalf("join: %v", err)
	}
}

func waitFor(t *testing.T, a *Agent, what string, fn func(Event) bool) Event {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case e := <-a.Events():
			if fn(e) {
				return e
			}
		case <-timeout:
			t.Fatalf("no %v", what)
			return Event{}
		}
	}
}

func TestAgents(t *testing.T) {
	server := startCoordinator(t)

	a := newAgent(t, server, "A", "json", 0)
	join(t, a)
	if !a.IsSpeaking() {
		t.Errorf("the first agent should speak")
	}

	b := newAgent(t, server, "B", "msgpack", 50*time.Millisecond)
	join(t, b)
	if b.Room() != a.Room() || b.Active() != a.Id() {
		t.Errorf("wrong room state of B: %v %v", b.Room(), b.Active())
	}
	if len(b.Roster()) != 2 {
		t.Errorf("wrong roster %v", b.Roster())
	}

	waitFor(t, a, "offer", func(e Event) bool { return e.T == api.SessionOffer && e.Peer == b.Id() })
	waitFor(t, b, "answer", func(e Event) bool { return e.T == api.SessionAnswer && e.Peer == a.Id() })
	if _, ok := a.Peers()[b.Id()]; !ok {
		t.Errorf("no call with B")
	}

	if err := a.Yield(); err != nil {
		t.Fatal(err)
	}
	waitFor(t, b, "turn of B", func(e Event) bool { return e.T == api.TurnAssigned && e.Peer == b.Id() })
	// B yields by itself
	waitFor(t, a, "turn of A", func(e Event) bool { return e.T == api.TurnAssigned && e.Peer == a.Id() })

	if err := a.Text("hello"); err != nil {
		t.Fatal(err)
	}
	waitFor(t, b, "text", func(e Event) bool { return e.T == api.TextMessage && e.Peer == "A" && e.Text == "hello" })

	b.Close()
	waitFor(t, a, "leave of B", func(e Event) bool { return e.T == api.ParticipantLeft && e.Peer == b.Id() })
	if len(a.Roster()) != 1 || len(a.Peers()) != 0 {
		t.Errorf("B is still here %v %v", a.Roster(), a.Peers())
	}
}

func TestDuplicateAgent(t *testing.T) {
	server := startCoordinator(t)

	join(t, newAgent(t, server, "A", "json", 0))

	dup := newAgent(t, server, "A", "json", 0)
	if err := dup.Join(context.Background()); !errors.Is(err, ErrRejected) {
		t.Errorf("expected rejection, got %v", err)
	}
}

func TestNoName(t *testing.T) {
	if _, err := New(config.AgentConfig{}, logger.Nop()); !errors.Is(err, ErrRejected) {
		t.Errorf("expected an error, got %v", err)
	}
}

func TestClient(t *testing.T) {
	server := startCoordinator(t)
	c := NewClient(server + "/")
	ctx := context.Background()

	id, err := c.NewRoom(ctx)
	if err != nil || id == "" {
		t.Fatalf("new room %q: %v", id, err)
	}
	room, err := c.Reserve(ctx, id, "A")
	if err != nil || room != id {
		t.Fatalf("reserve %q: %v", room, err)
	}
	if _, err = c.Reserve(ctx, id, "A"); !errors.Is(err, ErrRejected) {
		t.Errorf("expected rejection, got %v", err)
	}

	rooms, err := c.Rooms(ctx)
	if err != nil || len(rooms) != 2 {
		t.Errorf("wrong rooms %v: %v", rooms, err)
	}
	state, err := c.Room(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if len(state.Pending) != 1 || state.Pending[0] != "A" || len(state.Roster) != 0 {
		t.Errorf("wrong state %+v", state)
	}
	def, err := c.Room(ctx, "")
	if err != nil || def.Room == id {
		t.Errorf("wrong default room %+v: %v", def, err)
	}
	if _, err = c.Room(ctx, "nope"); err == nil {
		t.Errorf("expected an error")
	}
}
