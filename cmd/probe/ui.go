package main

import (
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/turnroom/turnroom/pkg/api"
	"github.com/turnroom/turnroom/pkg/conference"
)

var (
	Primary = lipgloss.Color("#22d3ee")
	Success = lipgloss.Color("#10B981")
	Warning = lipgloss.Color("#F59E0B")
	Error   = lipgloss.Color("#EF4444")
	Muted   = lipgloss.Color("#6B7280")
)

var (
	SpeakerStyle = lipgloss.NewStyle().Foreground(Primary).Bold(true)
	SuccessStyle = lipgloss.NewStyle().Foreground(Success)
	WarningStyle = lipgloss.NewStyle().Foreground(Warning)
	ErrorStyle   = lipgloss.NewStyle().Foreground(Error).Bold(true)
	MutedStyle   = lipgloss.NewStyle().Foreground(Muted)
)

func newTable(w io.Writer, header ...any) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row(header))
	return t
}

func renderRooms(w io.Writer, rooms []api.RoomInfo) {
	t := newTable(w, "Room", "Participants", "Default")
	for _, r := range rooms {
		def := ""
		if r.Default {
			def = "yes"
		}
		t.AppendRow(table.Row{r.Room, r.Participants, def})
	}
	t.AppendFooter(table.Row{"Total", len(rooms)})
	t.Render()
}

func renderRoster(w io.Writer, state *conference.Snapshot) {
	t := newTable(w, "#", "Name", "Id", "Turn")
	for i, p := range state.Roster {
		turn := ""
		if p.Id == state.Active {
			turn = "speaking"
			if state.Deadline > 0 {
				left := time.Until(time.UnixMilli(state.Deadline)).Round(time.Second)
				turn += " (" + left.String() + " left)"
			}
		}
		t.AppendRow(table.Row{i + 1, p.Name, p.Id, turn})
	}
	for _, name := range state.Pending {
		t.AppendRow(table.Row{"-", name, "", "pending"})
	}
	t.SetTitle("room " + state.Room + ", " + strconv.Itoa(len(state.Roster)) + " joined")
	t.Render()
}
