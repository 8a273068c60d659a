package httpx

import (
	"context"
	"testing"
)

func TestCertManagerHostPolicy(t *testing.T) {
	m := newCertManager("room.example.com", t.TempDir())
	if err := m.HostPolicy(context.Background(), "room.example.com"); err != nil {
		t.Errorf("own host is not allowed: %v", err)
	}
	if err := m.HostPolicy(context.Background(), "other.example.com"); err == nil {
		t.Errorf("other host is allowed")
	}
	if m := newCertManager("", t.TempDir()); m.HostPolicy != nil {
		t.Errorf("expected no host policy")
	}
}
