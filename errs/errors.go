// Package errs defines sentinel errors shared across the holdall packages.
//
// All errors returned by the public API either are one of these sentinels or
// wrap one of them, so callers can classify failures with errors.Is without
// parsing message text:
//
//	_, err := rd.Get("model.weights")
//	if errors.Is(err, errs.ErrPathNotFound) {
//	    // path absent from the archive index
//	}
package errs

import "errors"

// Encode-side errors reported while writing values into an archive.
var (
	// ErrUnsupportedType indicates a value whose type has no registered codec
	// and cannot be broken down structurally (e.g. a channel or function).
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrDuplicatePath indicates a Put at a root key that was already written
	// in the same session.
	ErrDuplicatePath = errors.New("duplicate path")

	// ErrReservedName indicates a root key that collides with an archive
	// bookkeeping name such as the index entry.
	ErrReservedName = errors.New("reserved name")

	// ErrInvalidPath indicates an empty or malformed path.
	ErrInvalidPath = errors.New("invalid path")
)

// Decode-side errors reported while reading values back out.
var (
	// ErrUnknownTypeTag indicates a node whose recorded type tag has no codec
	// in the reader's registry. Raised at access time, never at open time.
	ErrUnknownTypeTag = errors.New("unknown type tag")

	// ErrPathNotFound indicates a Get for a path absent from the index.
	ErrPathNotFound = errors.New("path not found")

	// ErrTypeMismatch indicates a decoded value whose type disagrees with the
	// one the caller requested.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrCorruptArchive indicates a structurally damaged archive: a missing
	// or unparsable index, a payload entry the index promises but the
	// container lacks, or a truncated payload.
	ErrCorruptArchive = errors.New("corrupt archive")
)

// Lifecycle errors shared by readers and writers.
var (
	// ErrAlreadySealed indicates a write or a second Seal on a writer whose
	// archive has already been finalized.
	ErrAlreadySealed = errors.New("archive already sealed")

	// ErrClosed indicates an operation on a closed reader or writer.
	ErrClosed = errors.New("archive is closed")
)

// Frame errors reported by the tabular adapters.
var (
	// ErrLengthMismatch indicates frame columns of unequal length.
	ErrLengthMismatch = errors.New("column length mismatch")
)
