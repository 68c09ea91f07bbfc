package store

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FS stores objects as files under a root directory. Puts stage to a
// temp file in the same directory and rename into place, which is
// atomic on POSIX filesystems.
type FS struct {
	root string
}

// NewFS creates the root directory if needed and returns the store.
func NewFS(root string) (*FS, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("store: create root: %w", err)
	}
	return &FS{root: root}, nil
}

func (s *FS) path(name string) string {
	return filepath.Join(s.root, filepath.Clean("/"+name))
}

func (s *FS) Get(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path(name))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotExist, name)
	}
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", name, err)
	}
	return f, nil
}

func (s *FS) Put(ctx context.Context, name string, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dst := s.path(name)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("store: create parent: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*")
	if err != nil {
		return fmt.Errorf("store: stage %s: %w", name, err)
	}
	defer func() {
		if tmp != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err := io.Copy(tmp, r); err != nil {
		return fmt.Errorf("store: write %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("store: sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("store: close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		tmp = nil
		return fmt.Errorf("store: publish %s: %w", name, err)
	}
	tmp = nil
	return nil
}

func (s *FS) Stat(ctx context.Context, name string) (Info, error) {
	if err := ctx.Err(); err != nil {
		return Info{}, err
	}
	fi, err := os.Stat(s.path(name))
	if os.IsNotExist(err) {
		return Info{}, fmt.Errorf("%w: %s", ErrNotExist, name)
	}
	if err != nil {
		return Info{}, fmt.Errorf("store: stat %s: %w", name, err)
	}
	return Info{Size: fi.Size(), ModTime: fi.ModTime()}, nil
}

func (s *FS) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := os.Remove(s.path(name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("store: delete %s: %w", name, err)
	}
	return nil
}

var _ Store = (*FS)(nil)
