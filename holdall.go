// Package holdall stores an arbitrary graph of typed Go values in a single
// ZIP archive and restores any part of it on demand.
//
// An archive is an ordinary ZIP file: a JSON index entry describes every
// stored value (its type tag, shape, and location), and larger values live
// in their own payload entries next to it. Because the index alone is enough
// to navigate the whole graph, a reader materializes exactly the subtree a
// path names and touches no other payload bytes.
//
// # Core Features
//
//   - Single-file ZIP container with a human-readable JSON index
//   - Exact-type codec registry with a structural fallback for maps, slices,
//     and custom structs
//   - Identity-aware encoding: shared and cyclic containers are stored once
//     and come back aliased
//   - Lazy path-based reads (decode one leaf without decoding its siblings)
//   - Tabular and array data through frame.Frame, frame.Series, and
//     frame.Array with columnar binary payloads
//   - Optional per-payload compression (Zstd, S2, LZ4)
//   - Pluggable archive storage through the storage.Store contract
//
// # Basic Usage
//
// Writing values path by path:
//
//	import "github.com/holdall-io/holdall"
//
//	w, _ := holdall.Create("run.holdall")
//	defer w.Discard()
//
//	w.Put("config", map[string]any{"rate": 0.25, "label": "baseline"})
//	w.Put("samples", []float64{1.5, 2.25, 3.0})
//	w.Seal()
//
// Reading a single value back:
//
//	r, _ := holdall.Open("run.holdall")
//	defer r.Close()
//
//	rate, _ := r.Get("config.rate")
//
// # Object Checkpointing
//
// Dump persists a whole object in one call: its state fields become the
// archive's top-level paths and its type tag is recorded in the index, so
// Load can rebuild it.
//
//	type Model struct {
//	    Weights []float64
//	    Epoch   int
//	}
//
//	holdall.Dump("model.holdall", model)
//
//	restored, err := holdall.Load[Model]("model.holdall")
//
// Types that need control over their persisted form implement
// registry.Externalizable; everything else round-trips through its exported
// fields. Register types with RegisterObject to enable LoadAny, which
// resolves the concrete type from the recorded tag alone.
//
// # Package Structure
//
// This package provides convenient top-level wrappers around the archive
// package, simplifying the most common use cases. For fine-grained control
// over encoding, type registration, and storage, use the archive, registry,
// frame, and storage packages directly.
package holdall

import (
	"fmt"
	"io"
	"maps"
	"reflect"
	"slices"

	"github.com/holdall-io/holdall/archive"
	"github.com/holdall-io/holdall/errs"
	"github.com/holdall-io/holdall/frame"
	"github.com/holdall-io/holdall/registry"
	"github.com/holdall-io/holdall/storage"
)

func init() {
	if err := frame.Register(registry.Default()); err != nil {
		panic("holdall: registering tabular codecs: " + err.Error())
	}
}

// Create starts a new archive at path. The archive is assembled in a
// temporary sibling file; Seal moves it into place and Discard removes it,
// so the target path never holds a half-written archive.
//
// Parameters:
//   - path: filesystem path of the archive to create
//   - opts: optional configuration (see archive.Option)
//
// Available options:
//   - archive.WithCompression(format.CompressionZstd|S2|LZ4)
//   - archive.WithoutAliasing()
//   - archive.WithInlineLimit(n)
//   - archive.WithRegistry(r)
//   - archive.WithLogger(l)
//   - archive.WithClobber()
//
// Example:
//
//	w, err := holdall.Create("run.holdall",
//	    archive.WithCompression(format.CompressionZstd),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Discard()
func Create(path string, opts ...archive.Option) (*archive.Writer, error) {
	return archive.Create(path, opts...)
}

// NewWriter starts an archive that writes into an arbitrary sink. The
// caller owns the sink: Seal finalizes the archive bytes but does not close
// it. Use this to write archives into buffers, sockets, or store sinks.
//
// Parameters:
//   - w: destination for the archive bytes
//   - opts: optional configuration (see archive.Option)
func NewWriter(w io.Writer, opts ...archive.Option) (*archive.Writer, error) {
	return archive.NewWriter(w, opts...)
}

// Open opens the archive file at path for lazy reading. The index is parsed
// and validated eagerly; payload entries are read only when a Get touches
// them. Close releases the file.
//
// Parameters:
//   - path: filesystem path of an existing archive
//   - opts: optional configuration (see archive.Option)
//
// Example:
//
//	r, err := holdall.Open("run.holdall")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Close()
//
//	v, err := r.Get("samples")
func Open(path string, opts ...archive.Option) (*archive.Reader, error) {
	return archive.Open(path, opts...)
}

// NewReader opens an archive from any random-access source, such as a
// bytes.Reader over archive bytes already in memory. The caller keeps
// ownership of src.
//
// Parameters:
//   - src: random-access view of the archive bytes
//   - size: total length of the archive in bytes
//   - opts: optional configuration (see archive.Option)
func NewReader(src io.ReaderAt, size int64, opts ...archive.Option) (*archive.Reader, error) {
	return archive.NewReader(src, size, opts...)
}

// OpenStore opens the archive stored under id for lazy reading. The store's
// source is released when the returned Reader is closed.
//
// Parameters:
//   - store: where archives are kept (storage.DirStore, storage.MemStore,
//     or any other storage.Store implementation)
//   - id: the archive's identifier within the store
//   - opts: optional configuration (see archive.Option)
//
// Example:
//
//	store, _ := storage.NewDirStore("/var/lib/app/archives")
//	r, err := holdall.OpenStore(store, "checkpoints/epoch-7")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Close()
func OpenStore(store storage.Store, id string, opts ...archive.Option) (*archive.Reader, error) {
	src, release, err := store.OpenRead(id)
	if err != nil {
		return nil, err
	}

	return archive.OpenSource(src, src.Size(), release, opts...)
}

// Dump persists value as a complete archive at path. The object's state is
// taken through the state protocol (registry.Externalizable when
// implemented, exported struct fields otherwise); each state field becomes a
// top-level path, and the object's type tag is recorded so Load and LoadAny
// can rebuild it. State fields are written in sorted order, making output
// deterministic for a given value.
//
// Nothing appears at path unless the whole dump succeeds.
//
// Parameters:
//   - path: filesystem path of the archive to create
//   - value: the object to persist (a struct, pointer to struct, or any
//     registry.Externalizable)
//   - opts: optional configuration (see archive.Option)
//
// Example:
//
//	model := &Model{Weights: weights, Epoch: 7}
//	if err := holdall.Dump("model.holdall", model); err != nil {
//	    log.Fatal(err)
//	}
func Dump(path string, value any, opts ...archive.Option) error {
	w, err := archive.Create(path, opts...)
	if err != nil {
		return err
	}
	defer w.Discard()

	if err := dumpObject(w, value); err != nil {
		return err
	}

	return w.Seal()
}

// DumpTo persists value as a complete archive under id in store. Like Dump,
// the write is all-or-nothing: the sink is aborted on any failure, so the
// store never holds a partial archive under id.
//
// Parameters:
//   - store: where to keep the archive
//   - id: the archive's identifier within the store
//   - value: the object to persist
//   - opts: optional configuration (see archive.Option)
//
// Example:
//
//	store := storage.NewMemStore()
//	if err := holdall.DumpTo(store, "checkpoints/epoch-7", model); err != nil {
//	    log.Fatal(err)
//	}
func DumpTo(store storage.Store, id string, value any, opts ...archive.Option) error {
	sink, err := store.OpenWrite(id)
	if err != nil {
		return err
	}

	w, err := archive.NewWriter(sink, opts...)
	if err != nil {
		storage.Abort(sink)
		return err
	}
	if err := dumpObject(w, value); err != nil {
		w.Discard()
		storage.Abort(sink)

		return err
	}
	if err := w.Seal(); err != nil {
		w.Discard()
		storage.Abort(sink)

		return err
	}

	return sink.Close()
}

// Load reads the archive at path and rebuilds it as a T. The caller names
// the type, so no registration is required; if the archive records a
// different type tag than T's, Load fails with errs.ErrTypeMismatch rather
// than restoring state into the wrong type. Archives written with plain
// Puts (no recorded tag) load into any T whose fields match the root keys.
//
// Parameters:
//   - path: filesystem path of an existing archive
//   - opts: optional configuration (see archive.Option)
//
// Returns:
//   - *T: the restored object.
//   - error: errs.ErrTypeMismatch on a tag conflict, or any decode error.
//
// Example:
//
//	model, err := holdall.Load[Model]("model.holdall")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(model.Epoch)
func Load[T any](path string, opts ...archive.Option) (*T, error) {
	r, err := archive.Open(path, opts...)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return restoreAs[T](r)
}

// LoadFrom reads the archive stored under id and rebuilds it as a T. See
// Load for the type-matching rules.
//
// Example:
//
//	model, err := holdall.LoadFrom[Model](store, "checkpoints/epoch-7")
func LoadFrom[T any](store storage.Store, id string, opts ...archive.Option) (*T, error) {
	r, err := OpenStore(store, id, opts...)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return restoreAs[T](r)
}

// LoadAny reads the archive at path and rebuilds the object it records,
// resolving the concrete Go type from the archive's type tag. The type must
// have been registered (RegisterObject) in the registry the reader uses;
// unregistered tags fail with errs.ErrUnknownTypeTag. The result is a
// pointer to the registered struct type.
//
// Use Load when the expected type is known at the call site; use LoadAny
// for generic tooling that handles whatever an archive holds.
//
// Parameters:
//   - path: filesystem path of an existing archive
//   - opts: optional configuration (see archive.Option)
//
// Example:
//
//	holdall.RegisterObject[Model]()
//
//	obj, err := holdall.LoadAny("model.holdall")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	model := obj.(*Model)
func LoadAny(path string, opts ...archive.Option) (any, error) {
	r, err := archive.Open(path, opts...)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return r.Restore()
}

// LoadAnyFrom reads the archive stored under id and rebuilds the object it
// records. See LoadAny for tag resolution rules.
func LoadAnyFrom(store storage.Store, id string, opts ...archive.Option) (any, error) {
	r, err := OpenStore(store, id, opts...)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return r.Restore()
}

// RegisterObject records T's type tag in the shared default registry so
// LoadAny can reallocate a T from an archive's recorded tag. Dump and Load
// do not require registration.
//
// Example:
//
//	func init() {
//	    holdall.RegisterObject[Model]()
//	}
func RegisterObject[T any]() error {
	return registry.RegisterObject[T](registry.Default())
}

// RegisterCodec installs a codec for exactly T in the shared default
// registry, overriding the structural fallback (or a builtin) for that
// type. Writers and readers created afterwards use it; use
// archive.WithRegistry for per-archive registration instead.
func RegisterCodec[T any](codec registry.Codec) error {
	return registry.Default().Register(reflect.TypeFor[T](), codec)
}

// dumpObject stages an object's state as the archive's top-level paths and
// records its type tag.
func dumpObject(w *archive.Writer, value any) error {
	if value == nil {
		return fmt.Errorf("%w: cannot dump nil", errs.ErrUnsupportedType)
	}

	state, err := registry.StateOf(value)
	if err != nil {
		return err
	}
	if err := w.SetObjectTag(registry.ObjectTag(reflect.TypeOf(value))); err != nil {
		return err
	}
	for _, key := range slices.Sorted(maps.Keys(state)) {
		if err := w.Put(key, state[key]); err != nil {
			return err
		}
	}

	return nil
}

// restoreAs restores an open archive into a freshly allocated T after
// checking the recorded tag against T's.
func restoreAs[T any](r *archive.Reader) (*T, error) {
	want := registry.ObjectTag(reflect.TypeFor[T]())
	if self := r.Self(); self.Type != "" && self.Type != want {
		return nil, fmt.Errorf("%w: archive holds %q, not %q", errs.ErrTypeMismatch, self.Type, want)
	}

	target := new(T)
	if err := r.RestoreInto(target); err != nil {
		return nil, err
	}

	return target, nil
}
