package registry

import (
	json "github.com/goccy/go-json"
)

// Encoded is the wire form of a single value: what a Codec's Encode produces
// and what its Decode receives back.
//
// A codec fills Inline, Payload, or both. Inline values are stored directly
// in the archive index as raw JSON; keeping them raw preserves 64-bit
// integer precision that a detour through float64 would destroy. Payload
// bytes are stored as a separate container entry, compressed according to
// the writer's configuration; Meta carries whatever JSON the codec needs at
// decode time to interpret the payload (shape, dtype, column schema).
type Encoded struct {
	// Inline is the value rendered as JSON for storage in the index.
	Inline json.RawMessage

	// Payload is stored as a separate container entry.
	Payload []byte

	// Meta is codec-specific JSON recorded in the node descriptor.
	Meta json.RawMessage
}

// Codec is an encoder/decoder pair for one logical type. Tag returns the
// stable type tag recorded in node descriptors; Decode of an Encoded
// produced by Encode must return a value equal to the original under the
// type's own equality.
//
// Implementations must be safe for concurrent use: one codec instance serves
// every session that snapshots the registry.
type Codec interface {
	Tag() string
	Encode(v any) (Encoded, error)
	Decode(enc Encoded) (any, error)
}
