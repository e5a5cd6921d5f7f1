// Package registry maps Go types to the encoder/decoder pairs that persist
// them. The write side resolves a value's concrete type to a codec; the read
// side resolves the type tag recorded in a node descriptor back to the same
// codec. Custom struct types register separately so archives can reallocate
// them from their recorded tag alone.
//
// The zero state is never used directly: New returns a registry preloaded
// with codecs for Go's scalar types, and Default returns the process-wide
// instance the package-level holdall functions use. Sessions snapshot the
// registry, so registering types concurrently with an in-flight encode or
// decode is safe.
package registry

import (
	"fmt"
	"maps"
	"reflect"
	"sync"

	"github.com/holdall-io/holdall/errs"
)

// Registry holds type-to-codec and tag-to-codec associations. All methods
// are safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	codecs  map[reflect.Type]Codec
	tags    map[string]Codec
	objects map[string]reflect.Type
}

// New creates a registry preloaded with the builtin scalar codecs: bool,
// string, every integer width, floats, complex numbers, time.Time,
// time.Duration, and []byte.
func New() *Registry {
	r := NewEmpty()
	registerBuiltins(r)

	return r
}

// NewEmpty creates a registry with no codecs at all. Useful for tests and
// for callers that want full control over what an archive may contain.
func NewEmpty() *Registry {
	return &Registry{
		codecs:  make(map[reflect.Type]Codec),
		tags:    make(map[string]Codec),
		objects: make(map[string]reflect.Type),
	}
}

var defaultRegistry = New()

// Default returns the shared process-wide registry. Writers and readers use
// it unless configured with an explicit registry.
func Default() *Registry {
	return defaultRegistry
}

// Register associates rt with codec for encoding and the codec's tag with it
// for decoding. Registering the same type or tag again replaces the earlier
// association, so callers can override a builtin.
func (r *Registry) Register(rt reflect.Type, codec Codec) error {
	if rt == nil {
		return fmt.Errorf("%w: nil type", errs.ErrUnsupportedType)
	}
	if codec == nil {
		return fmt.Errorf("%w: nil codec for type %s", errs.ErrUnsupportedType, rt)
	}
	tag := codec.Tag()
	if tag == "" {
		return fmt.Errorf("%w: codec for type %s has an empty tag", errs.ErrUnsupportedType, rt)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.codecs[rt] = codec
	r.tags[tag] = codec

	return nil
}

// RegisterObject records T's type tag so archives that stored a T (or *T)
// can reallocate it from the tag alone. T must be a struct type.
func RegisterObject[T any](r *Registry) error {
	return r.RegisterObjectType(reflect.TypeFor[T]())
}

// RegisterObjectType is the non-generic form of RegisterObject.
func (r *Registry) RegisterObjectType(rt reflect.Type) error {
	for rt != nil && rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	if rt == nil || rt.Kind() != reflect.Struct {
		return fmt.Errorf("%w: object type must be a struct, got %v", errs.ErrUnsupportedType, rt)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.objects[ObjectTag(rt)] = rt

	return nil
}

// Snapshot captures the registry's current associations into an immutable
// Session. Encode and decode engines hold a Session for their whole run, so
// later Register calls cannot change what an in-flight walk resolves.
func (r *Registry) Snapshot() *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return &Session{
		codecs:  maps.Clone(r.codecs),
		tags:    maps.Clone(r.tags),
		objects: maps.Clone(r.objects),
	}
}

// Session is an immutable snapshot of a Registry. Lookups are lock-free.
type Session struct {
	codecs  map[reflect.Type]Codec
	tags    map[string]Codec
	objects map[string]reflect.Type
}

// CodecFor returns the codec registered for exactly rt. There is no
// structural or interface matching here; the encode engine handles
// containers itself when no exact codec exists.
func (s *Session) CodecFor(rt reflect.Type) (Codec, bool) {
	codec, ok := s.codecs[rt]
	return codec, ok
}

// CodecByTag returns the codec registered under tag.
func (s *Session) CodecByTag(tag string) (Codec, bool) {
	codec, ok := s.tags[tag]
	return codec, ok
}

// ObjectType returns the struct type registered under an object tag.
func (s *Session) ObjectType(tag string) (reflect.Type, bool) {
	rt, ok := s.objects[tag]
	return rt, ok
}
