// Package lease serializes pipeline runs with an exclusive lock file.
// A second run starting while the lease is held exits immediately
// rather than waiting; a lease older than its TTL is presumed
// abandoned by a crashed run and taken over.
package lease

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrHeld means another run currently holds the lease.
var ErrHeld = errors.New("lease: already held")

// Lease is an exclusive run lock backed by a file.
type Lease struct {
	path   string
	ttl    time.Duration
	logger *slog.Logger

	token string
}

// New creates an unacquired Lease at path. A held lease older than
// ttl is treated as stale and taken over.
func New(path string, ttl time.Duration, logger *slog.Logger) *Lease {
	if logger == nil {
		logger = slog.Default()
	}
	return &Lease{path: path, ttl: ttl, logger: logger}
}

// Acquire takes the lease or returns ErrHeld. It does not block.
func (l *Lease) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("lease: create dir: %w", err)
	}

	token := uuid.NewString()
	err := l.create(token)
	if !errors.Is(err, os.ErrExist) {
		if err == nil {
			l.token = token
		}
		return err
	}

	// Held. A holder that died leaves the file behind; take over
	// once it ages past the TTL.
	fi, statErr := os.Stat(l.path)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			// Released between our create and stat; one more try.
			if err := l.create(token); err != nil {
				if errors.Is(err, os.ErrExist) {
					return ErrHeld
				}
				return err
			}
			l.token = token
			return nil
		}
		return fmt.Errorf("lease: stat: %w", statErr)
	}

	age := time.Since(fi.ModTime())
	if l.ttl <= 0 || age < l.ttl {
		return fmt.Errorf("%w (age %s)", ErrHeld, age.Round(time.Second))
	}

	l.logger.Warn("taking over stale lease", "path", l.path, "age", age.Round(time.Second))
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("lease: remove stale: %w", err)
	}
	if err := l.create(token); err != nil {
		if errors.Is(err, os.ErrExist) {
			return ErrHeld
		}
		return err
	}
	l.token = token
	return nil
}

func (l *Lease) create(token string) error {
	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return os.ErrExist
		}
		return fmt.Errorf("lease: create: %w", err)
	}
	_, werr := fmt.Fprintf(f, "%s %s\n", token, time.Now().UTC().Format(time.RFC3339))
	cerr := f.Close()
	if werr != nil {
		os.Remove(l.path)
		return fmt.Errorf("lease: write: %w", werr)
	}
	if cerr != nil {
		os.Remove(l.path)
		return fmt.Errorf("lease: close: %w", cerr)
	}
	return nil
}

// Release removes the lease if this process still owns it. Releasing
// a lease another run has taken over is a no-op.
func (l *Lease) Release() error {
	if l.token == "" {
		return nil
	}
	defer func() { l.token = "" }()

	body, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("lease: read: %w", err)
	}
	current, _, _ := strings.Cut(strings.TrimSpace(string(body)), " ")
	if current != l.token {
		l.logger.Warn("lease no longer ours, not removing", "path", l.path)
		return nil
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("lease: remove: %w", err)
	}
	return nil
}
