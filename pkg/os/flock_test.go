package os

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFileLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "test.lock")

	a, err := NewFileLock(path)
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	if err = a.TryLock(); err != nil {
		t.Fatalf("first lock: %v", err)
	}
	if _, err = os.Stat(path); err != nil {
		t.Errorf("no lock file")
	}

	b, _ := NewFileLock(path)
	if err = b.TryLock(); !errors.Is(err, ErrLocked) {
		t.Errorf("expected locked, got %v", err)
	}

	if err = a.Unlock(); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if err = b.TryLock(); err != nil {
		t.Errorf("lock after unlock: %v", err)
	}
	_ = b.Unlock()
}
