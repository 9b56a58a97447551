package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/okian/upshot/pkg/logger"
)

// File permission constants.
const (
	storeFilePermission = 0o644
	storeDirPermission  = 0o755
)

// Compile-time interface check.
var _ Store = (*FileStore)(nil)

// FileStore keeps the whole mapping as one JSON object in a file, e.g.
// {"abcd.png":3,"wxyz.jpg":1}. Every increment reads the whole file and
// rewrites it through a temp file and rename, under a mutex.
type FileStore struct {
	mu     sync.Mutex
	path   string
	closed bool
	logger logger.Logger
}

// NewFileStore returns a store backed by the JSON file at path. The file is
// created on the first increment.
func NewFileStore(path string, log logger.Logger) *FileStore {
	if log == nil {
		log = logger.Get().Named("filestore")
	}
	return &FileStore{path: path, logger: log}
}

// Path returns the backing file.
func (s *FileStore) Path() string { return s.path }

// Get returns the count for key.
func (s *FileStore) Get(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	return s.load(ctx)[key], nil
}

// Increment reads the file, adds one to key and writes the file back.
func (s *FileStore) Increment(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}

	counts := s.load(ctx)
	counts[key]++
	if err := s.write(counts); err != nil {
		return 0, err
	}
	return counts[key], nil
}

// Snapshot returns the mapping currently on disk.
func (s *FileStore) Snapshot(ctx context.Context) (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	return s.load(ctx), nil
}

// Flush is a no-op; every increment is written through.
func (s *FileStore) Flush(context.Context) error { return nil }

// Close marks the store closed.
func (s *FileStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// load never fails: a missing, empty or unparsable file is an empty mapping.
func (s *FileStore) load(ctx context.Context) map[string]int64 {
	counts := make(map[string]int64)

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return counts
	}
	if err != nil {
		s.logger.Warn(ctx, "counter store unreadable; starting empty",
			logger.String("path", s.path), logger.Error(err))
		return counts
	}

	data = bytes.TrimSpace(data)
	// An empty PHP array encodes as [] rather than {}.
	if len(data) == 0 || bytes.Equal(data, []byte("[]")) || bytes.Equal(data, []byte("null")) {
		return counts
	}
	if err := json.Unmarshal(data, &counts); err != nil {
		s.logger.Warn(ctx, "counter store corrupt; starting empty",
			logger.String("path", s.path), logger.Error(err))
		return make(map[string]int64)
	}
	return counts
}

func (s *FileStore) write(counts map[string]int64) error {
	data, err := json.Marshal(counts)
	if err != nil {
		return fmt.Errorf("%w: encode: %w", ErrPersist, err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, storeDirPermission); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	if err := os.Chmod(tmpName, storeFilePermission); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}
