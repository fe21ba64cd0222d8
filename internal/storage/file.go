package storage

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
)

type fileStorage struct {
	fs  afero.Fs
	dir string
}

type FileConfig struct {
	// Fs defaults to the operating system filesystem.
	Fs        afero.Fs
	Directory string
}

// NewFileStorage returns a Storage writing under c.Directory.
func NewFileStorage(c FileConfig) Storage {
	if c.Fs == nil {
		c.Fs = afero.NewOsFs()
	}
	if c.Directory == "" {
		c.Directory = "."
	}
	return &fileStorage{fs: c.Fs, dir: c.Directory}
}

func (f *fileStorage) Put(ctx context.Context, key string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := filepath.Join(f.dir, key)
	if err := f.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("storage: creating output directory: %w", err)
	}
	if err := afero.WriteFile(f.fs, path, data, 0o644); err != nil {
		return "", fmt.Errorf("storage: writing %s: %w", path, err)
	}
	return path, nil
}
