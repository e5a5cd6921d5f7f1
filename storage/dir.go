package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/holdall-io/holdall/errs"
)

// DirStore keeps archives as files under one root directory. Ids are
// slash-separated relative paths ("runs/2026/base.hold"), so a store can be
// laid out hierarchically while staying portable across hosts.
//
// Writes go through a temporary sibling file that is renamed into place on
// Close, the same commit scheme archive.Create uses: a crash or an Abort
// leaves at worst an orphaned .tmp file, never a truncated archive under
// the final name.
type DirStore struct {
	dir string
}

var _ Store = (*DirStore)(nil)

// NewDirStore creates a store rooted at dir, creating the directory if it
// does not exist.
func NewDirStore(dir string) (*DirStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: empty store directory", errs.ErrInvalidPath)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	return &DirStore{dir: dir}, nil
}

// Dir returns the store's root directory.
func (s *DirStore) Dir() string {
	return s.dir
}

// resolve maps an id to its file path, rejecting ids that would escape the
// root directory.
func (s *DirStore) resolve(id string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("%w: empty store id", errs.ErrInvalidPath)
	}
	for _, seg := range strings.Split(id, "/") {
		switch seg {
		case "", ".", "..":
			return "", fmt.Errorf("%w: store id %q", errs.ErrInvalidPath, id)
		}
		if strings.ContainsRune(seg, '\\') {
			return "", fmt.Errorf("%w: store id %q", errs.ErrInvalidPath, id)
		}
	}

	return filepath.Join(s.dir, filepath.FromSlash(id)), nil
}

// OpenRead opens the archive under id. The returned release function closes
// the underlying file.
func (s *DirStore) OpenRead(id string) (Source, func() error, error) {
	path, err := s.resolve(id)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}

	return &fileSource{f: f, size: st.Size()}, f.Close, nil
}

// OpenWrite starts a write under id, creating parent directories as needed.
// The archive appears at its final path only when Close commits.
func (s *DirStore) OpenWrite(id string) (io.WriteCloser, error) {
	path, err := s.resolve(id)
	if err != nil {
		return nil, err
	}
	if dir := filepath.Dir(path); dir != s.dir {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, err
	}

	return &dirSink{f: f, tmpPath: tmpPath, path: path}, nil
}

type fileSource struct {
	f    *os.File
	size int64
}

func (s *fileSource) ReadAt(p []byte, off int64) (int, error) {
	return s.f.ReadAt(p, off)
}

func (s *fileSource) Size() int64 {
	return s.size
}

// dirSink accumulates an archive in a temporary file and publishes it with
// a rename.
type dirSink struct {
	f       *os.File
	tmpPath string
	path    string
	done    bool
}

func (w *dirSink) Write(p []byte) (int, error) {
	if w.done {
		return 0, fs.ErrClosed
	}

	return w.f.Write(p)
}

// Close commits the archive: sync, close, and rename into place. A failed
// commit removes the temporary file and leaves any earlier archive under
// the same id untouched.
func (w *dirSink) Close() error {
	if w.done {
		return nil
	}
	w.done = true

	if err := w.f.Sync(); err != nil {
		w.f.Close()
		os.Remove(w.tmpPath)
		return err
	}
	if err := w.f.Close(); err != nil {
		os.Remove(w.tmpPath)
		return err
	}
	if err := os.Rename(w.tmpPath, w.path); err != nil {
		os.Remove(w.tmpPath)
		return err
	}

	return nil
}

// Abort drops the write. The final path is never touched.
func (w *dirSink) Abort() error {
	if w.done {
		return nil
	}
	w.done = true

	err := w.f.Close()
	if rerr := os.Remove(w.tmpPath); rerr != nil && !errors.Is(rerr, fs.ErrNotExist) && err == nil {
		err = rerr
	}

	return err
}
