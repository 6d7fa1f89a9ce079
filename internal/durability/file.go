package durability

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileMedium stores the snapshot as a single file.
type FileMedium struct {
	path string
}

// NewFileMedium returns a medium backed by path. The file and its directory
// are created on first save.
func NewFileMedium(path string) *FileMedium {
	return &FileMedium{path: path}
}

// Path returns the snapshot file path.
func (m *FileMedium) Path() string {
	return m.path
}

func (m *FileMedium) Load(ctx context.Context) ([]byte, error) {
	b, err := os.ReadFile(m.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Save writes to a temporary file, syncs it, then renames it over the
// previous snapshot, so a crash leaves either the old or the new image.
func (m *FileMedium) Save(ctx context.Context, snapshot []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return WriteFileAtomic(m.path, snapshot)
}

// Delete removes the snapshot file. A missing file is not an error.
func (m *FileMedium) Delete(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(m.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (m *FileMedium) Name() string { return "file:" + m.path }

func (m *FileMedium) Close() error { return nil }

// WriteFileAtomic replaces path with data via temp file + fsync + rename.
// A crash leaves either the old contents or the new ones.
func WriteFileAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tmp)
		}
	}()

	if _, err = f.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err = f.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Rename(tmp, path); err != nil {
		return fmt.Errorf("publish snapshot: %w", err)
	}
	syncDir(dir)
	return nil
}

// syncDir makes the rename durable where the platform allows it.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	d.Close()
}
