// Package store persists pipeline artifacts - the canonical dataset,
// the checkpoint, and the run lease - behind a small blob interface
// so the filesystem implementation can be swapped for an object
// store.
package store

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotExist is returned by Get and Stat for absent objects.
var ErrNotExist = errors.New("store: object does not exist")

// Info describes a stored object.
type Info struct {
	Size    int64
	ModTime time.Time
}

// Store is a named-blob store. Put must be atomic: readers see either
// the previous object or the complete new one, never a partial write.
type Store interface {
	Get(ctx context.Context, name string) (io.ReadCloser, error)
	Put(ctx context.Context, name string, r io.Reader) error
	Stat(ctx context.Context, name string) (Info, error)
	Delete(ctx context.Context, name string) error
}
