package artifacts

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"eventsds/internal/sink"
)

type fsBackend struct {
	dir string
}

func (f *fsBackend) describe(name string) string {
	return filepath.Join(f.dir, name)
}

func (f *fsBackend) put(_ context.Context, name string, data []byte) (bool, error) {
	path := f.describe(name)
	existing, err := os.ReadFile(path)
	switch {
	case err == nil:
		return false, conflict(existing, data, path)
	case !errors.Is(err, fs.ErrNotExist):
		return false, err
	}
	if err := sink.WriteFileAtomic(path, data); err != nil {
		return false, err
	}
	return true, nil
}

func (f *fsBackend) remove(_ context.Context, name string) error {
	if err := os.Remove(f.describe(name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (f *fsBackend) get(_ context.Context, name string) ([]byte, error) {
	path := f.describe(name)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return data, err
}

func (f *fsBackend) Close() error { return nil }
