package upload

import (
	"context"
	"io"
	"os"
	"path/filepath"
)

// LocalStore keeps uploads in a flat directory on the local filesystem.
type LocalStore struct {
	dir string
}

func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &LocalStore{dir: dir}, nil
}

func (s *LocalStore) path(name string) string {
	return filepath.Join(s.dir, name)
}

func (s *LocalStore) Put(_ context.Context, name string, src io.Reader) (int64, error) {

	dst, err := os.OpenFile(s.path(name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(dst, src)
	if err != nil {
		dst.Close()
		os.Remove(s.path(name))
		return n, err
	}

	return n, dst.Close()
}

func (s *LocalStore) Open(_ context.Context, name string) (io.ReadCloser, error) {
	return os.Open(s.path(name)) // a missing file is fs.ErrNotExist already
}

func (s *LocalStore) Delete(_ context.Context, name string) error {
	return os.Remove(s.path(name))
}
