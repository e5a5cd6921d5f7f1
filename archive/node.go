package archive

import (
	json "github.com/goccy/go-json"

	"github.com/holdall-io/holdall/format"
)

// Node is one descriptor in the archive index: everything the reader needs
// to materialize the value at one path without touching any other node.
//
// Which fields are set depends on the node's shape:
//
//   - codec leaves set Type plus Value, Entry, or both
//   - structural containers set Kind plus Len (sequences) or Keys (mappings
//     and objects)
//   - aliases set only Ref, naming the id of a canonical node
//   - nil values set Value to JSON null and nothing else
type Node struct {
	// Type is the codec tag of a leaf, or the object tag of an object node.
	Type string `json:"type,omitempty"`

	// Kind classifies container nodes. Leaves omit it.
	Kind format.ContainerKind `json:"kind,omitempty"`

	// Value is the inline JSON form of a small leaf.
	Value json.RawMessage `json:"value,omitempty"`

	// Entry names the container member holding this node's payload.
	Entry string `json:"entry,omitempty"`

	// Compression identifies the codec applied to the payload entry.
	Compression format.CompressionType `json:"compression,omitempty"`

	// Meta is codec-specific JSON needed to interpret the payload.
	Meta json.RawMessage `json:"meta,omitempty"`

	// Len is the child count of a sequence node.
	Len int `json:"len,omitempty"`

	// Keys lists the child keys of a mapping or object node in the order
	// the reader surfaces them.
	Keys []string `json:"keys,omitempty"`

	// Ref is the node's reference id. On a canonical node it marks the
	// value as shared; on an alias node it is the only field set.
	Ref int `json:"ref,omitempty"`

	// Go records the Go type a structural container was encoded from.
	// Diagnostic only; the reader never consults it.
	Go string `json:"go,omitempty"`
}

// IsAlias reports whether the node is a pure alias: a reference to a
// canonical node with no data of its own.
func (n *Node) IsAlias() bool {
	return n.Ref != 0 && n.Type == "" && n.Kind == format.KindScalar &&
		n.Value == nil && n.Entry == "" && len(n.Keys) == 0 && n.Len == 0
}

// IsNil reports whether the node stores an explicit nil value.
func (n *Node) IsNil() bool {
	return n.Type == "" && n.Kind == format.KindScalar && n.Ref == 0 &&
		string(n.Value) == "null"
}
