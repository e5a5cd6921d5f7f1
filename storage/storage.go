// Package storage defines the adapter contract between holdall archives and
// the places they are kept: the Store interface plus two local
// implementations, DirStore (directory of archive files) and MemStore
// (in-memory, for tests and scratch work).
//
// The contract is deliberately narrow. A store hands the engine a
// random-access byte source for reading and a write-once byte sink for
// writing; transport, retries, authentication and caching are the store's
// own business. Remote backends (object stores, blob services) plug in by
// implementing Store and presenting the archive as a local random-access
// source; the engine never assumes it can seek over a network.
//
// Writes are transactional at the store level: a sink created by OpenWrite
// publishes nothing until Close commits it, and Abort (for sinks that
// support it) drops the write without a trace. Combined with the archive
// writer's own Seal/Discard lifecycle, an interrupted dump never leaves a
// half-written archive where a reader could find it.
package storage

import "io"

// Source is a random-access view of one stored archive. bytes.Reader and
// io.SectionReader satisfy it as-is.
type Source interface {
	io.ReaderAt

	// Size returns the total length of the archive in bytes.
	Size() int64
}

// Store opens stored archives for reading and writing. Implementations must
// be safe for concurrent use; the sources and sinks they return need not be.
type Store interface {
	// OpenRead returns a random-access source for the archive under id,
	// plus a release function the caller must invoke when done with it.
	// Missing archives fail with an error satisfying
	// errors.Is(err, fs.ErrNotExist).
	OpenRead(id string) (Source, func() error, error)

	// OpenWrite returns a sink that accepts the complete archive. Close
	// commits: only then does the archive become visible under id,
	// replacing any previous archive stored there.
	OpenWrite(id string) (io.WriteCloser, error)
}

// Aborter is implemented by write sinks that can drop an uncommitted
// archive. Both built-in stores implement it.
type Aborter interface {
	// Abort discards everything written to the sink and releases its
	// resources. Nothing becomes visible in the store.
	Abort() error
}

// Abort abandons an in-progress write. Sinks implementing Aborter discard
// cleanly; for anything else the sink is closed, which may commit a partial
// archive. That is harmless: an archive cut off before its index was
// written fails to open as corrupt.
func Abort(w io.WriteCloser) error {
	if a, ok := w.(Aborter); ok {
		return a.Abort()
	}

	return w.Close()
}
