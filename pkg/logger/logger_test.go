package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestExtend(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf)
	room := log.Extend(log.With().Str(RoomField, "abc"))
	room.Info().Str(ClientField, "c1").Msg("Joined")

	out := buf.String()
	for _, want := range []string{`"r":"abc"`, `"c":"c1"`, `"message":"Joined"`} {
		if !strings.Contains(out, want) {
			t.Errorf("no %v in %v", want, out)
		}
	}
}

func TestPionLogger(t *testing.T) {
	var buf bytes.Buffer
	pion := NewPionLogger(NewWriter(&buf), int(zerolog.WarnLevel)).NewLogger("ice")

	pion.Debugf("candidate %v", 1)
	pion.Infof("gathering")
	if buf.Len() > 0 {
		t.Errorf("should be muted, got %v", buf.String())
	}
	pion.Warnf("no route %v", "x")
	if out := buf.String(); !strings.Contains(out, `"mod":"ice"`) || !strings.Contains(out, "no route x") {
		t.Errorf("wrong pion log %v", out)
	}
}

func TestLevelString(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{TraceLevel, "trace"},
		{InfoLevel, "info"},
		{Disabled, "disabled"},
		{Level(42), "42"},
	}
	for _, test := range tests {
		if got := test.level.String(); got != test.want {
			t.Errorf("expected %v, got %v", test.want, got)
		}
	}
}
