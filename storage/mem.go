package storage

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"slices"
	"sync"

	"github.com/holdall-io/holdall/errs"
)

// MemStore keeps committed archives in memory. It mirrors the behavior of
// the file-backed store (commit on Close, nothing visible before) without
// touching the filesystem, which makes it the natural store for tests and
// for short-lived scratch archives.
type MemStore struct {
	mu       sync.RWMutex
	archives map[string][]byte
}

var _ Store = (*MemStore)(nil)

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{archives: make(map[string][]byte)}
}

// OpenRead returns a source over the archive committed under id. The bytes
// are never mutated after commit, so the release function is a no-op and
// readers stay valid even if the id is overwritten later.
func (s *MemStore) OpenRead(id string) (Source, func() error, error) {
	s.mu.RLock()
	data, ok := s.archives[id]
	s.mu.RUnlock()
	if !ok {
		return nil, nil, fmt.Errorf("no archive under %q: %w", id, fs.ErrNotExist)
	}

	return bytes.NewReader(data), func() error { return nil }, nil
}

// OpenWrite returns a sink buffering the archive in memory. Close commits
// the buffered bytes under id.
func (s *MemStore) OpenWrite(id string) (io.WriteCloser, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty store id", errs.ErrInvalidPath)
	}

	return &memSink{store: s, id: id}, nil
}

// Exists reports whether an archive is committed under id.
func (s *MemStore) Exists(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.archives[id]

	return ok
}

// IDs returns the committed archive ids in sorted order.
func (s *MemStore) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Sorted(maps.Keys(s.archives))
}

// Remove deletes the archive committed under id, if any.
func (s *MemStore) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.archives, id)
}

type memSink struct {
	store *MemStore
	id    string
	buf   bytes.Buffer
	done  bool
}

func (w *memSink) Write(p []byte) (int, error) {
	if w.done {
		return 0, fs.ErrClosed
	}

	return w.buf.Write(p)
}

// Close commits the buffered archive under the sink's id.
func (w *memSink) Close() error {
	if w.done {
		return nil
	}
	w.done = true

	w.store.mu.Lock()
	w.store.archives[w.id] = w.buf.Bytes()
	w.store.mu.Unlock()

	return nil
}

// Abort drops the buffered bytes without committing.
func (w *memSink) Abort() error {
	w.done = true
	w.buf.Reset()

	return nil
}
