package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/turnroom/turnroom/pkg/api"
	"github.com/turnroom/turnroom/pkg/conference"
)

func TestRenderRooms(t *testing.T) {
	var buf bytes.Buffer
	renderRooms(&buf, []api.RoomInfo{{Room: "r1", Participants: 2, Default: true}, {Room: "r2"}})
	out := buf.String()
	for _, want := range []string{"ROOM", "r1", "r2", "yes", "TOTAL"} {
		if !strings.Contains(out, want) {
			t.Errorf("no %q in\n%v", want, out)
		}
	}
}

func TestRenderRoster(t *testing.T) {
	var buf bytes.Buffer
	renderRoster(&buf, &conference.Snapshot{
		Room:     "r1",
		Roster:   []api.Participant{{Name: "Alice", Id: "a"}, {Name: "Bob", Id: "b"}},
		Pending:  []string{"Carol"},
		Active:   "b",
		Deadline: time.Now().Add(10 * time.Second).UnixMilli(),
	})
	out := buf.String()
	for _, want := range []string{"Alice", "Bob", "Carol", "speaking", "pending", "2 joined"} {
		if !strings.Contains(out, want) {
			t.Errorf("no %q in\n%v", want, out)
		}
	}
}
