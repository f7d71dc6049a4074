package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FileStore keeps objects under <root>/<bucket>/<object>.
type FileStore struct {
	root string
}

// NewFileStore creates root if needed.
func NewFileStore(root string) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root %s: %w", root, err)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	return &FileStore{root: abs}, nil
}

// Path returns the local file backing bucket/object.
func (s *FileStore) Path(bucket, object string) (string, error) {
	if bucket == "" || object == "" {
		return "", fmt.Errorf("bucket and object are required")
	}
	p := filepath.Join(s.root, bucket, filepath.FromSlash(object))
	if !strings.HasPrefix(p, s.root+string(filepath.Separator)) {
		return "", fmt.Errorf("object %q escapes the storage root", bucket+"/"+object)
	}
	return p, nil
}

func (s *FileStore) NewWriter(_ context.Context, bucket, object string) (Writer, error) {
	path, err := s.Path(bucket, object)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, err
	}
	return &fileWriter{tmp: tmp, path: path}, nil
}

func (s *FileStore) NewReader(_ context.Context, bucket, object string) (io.ReadCloser, error) {
	path, err := s.Path(bucket, object)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", s.URI(bucket, object), ErrNotFound)
	}
	return f, err
}

func (s *FileStore) URI(bucket, object string) string {
	return "file://" + filepath.ToSlash(filepath.Join(s.root, bucket, object))
}

func (s *FileStore) Close() error { return nil }

// fileWriter writes to a temp file in the target directory and renames it into place.
type fileWriter struct {
	tmp  *os.File
	path string
	done bool
}

func (w *fileWriter) Write(p []byte) (int, error) {
	return w.tmp.Write(p)
}

func (w *fileWriter) Close() error {
	if w.done {
		return nil
	}
	w.done = true
	if err := w.tmp.Sync(); err != nil {
		w.discard()
		return err
	}
	if err := w.tmp.Close(); err != nil {
		os.Remove(w.tmp.Name())
		return err
	}
	if err := os.Rename(w.tmp.Name(), w.path); err != nil {
		os.Remove(w.tmp.Name())
		return err
	}
	return nil
}

func (w *fileWriter) Abort() {
	if w.done {
		return
	}
	w.done = true
	w.discard()
}

func (w *fileWriter) discard() {
	w.tmp.Close()
	os.Remove(w.tmp.Name())
}
