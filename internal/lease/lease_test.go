package lease

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestAcquireRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.lock")
	l := New(path, time.Hour, nil)

	if err := l.Acquire(); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("lease file absent after acquire: %v", err)
	}
	if err := l.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("lease file still present after release")
	}
}

func TestSecondAcquireFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.lock")

	first := New(path, time.Hour, nil)
	if err := first.Acquire(); err != nil {
		t.Fatalf("first Acquire failed: %v", err)
	}
	defer first.Release()

	second := New(path, time.Hour, nil)
	if err := second.Acquire(); !errors.Is(err, ErrHeld) {
		t.Fatalf("second Acquire err = %v, want ErrHeld", err)
	}
}

func TestStaleLeaseTakenOver(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.lock")

	if err := os.WriteFile(path, []byte("dead-token\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-3 * time.Hour)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatal(err)
	}

	l := New(path, 2*time.Hour, nil)
	if err := l.Acquire(); err != nil {
		t.Fatalf("Acquire of stale lease failed: %v", err)
	}
	if err := l.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
}

func TestReleaseForeignLeaseLeavesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.lock")

	l := New(path, time.Hour, nil)
	if err := l.Acquire(); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	// Another run took the lease over.
	if err := os.WriteFile(path, []byte("other-token\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := l.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("foreign lease file removed: %v", err)
	}
}

func TestReleaseWithoutAcquireIsNoop(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "run.lock"), time.Hour, nil)
	if err := l.Release(); err != nil {
		t.Errorf("Release err = %v", err)
	}
}
