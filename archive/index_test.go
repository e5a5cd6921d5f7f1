package archive

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holdall-io/holdall/errs"
	"github.com/holdall-io/holdall/format"
)

func TestNode_IsAlias(t *testing.T) {
	assert.True(t, (&Node{Ref: 1}).IsAlias())

	// Canonical nodes carry data alongside their ref and are not aliases.
	assert.False(t, (&Node{Ref: 1, Type: "bytes", Entry: "payload/b.bytes"}).IsAlias())
	assert.False(t, (&Node{Ref: 1, Kind: format.KindMapping, Keys: []string{"a"}}).IsAlias())
	assert.False(t, (&Node{Ref: 1, Kind: format.KindSequence, Len: 2}).IsAlias())
	assert.False(t, (&Node{}).IsAlias())
}

func TestNode_IsNil(t *testing.T) {
	assert.True(t, (&Node{Value: json.RawMessage("null")}).IsNil())
	assert.False(t, (&Node{Type: "string", Value: json.RawMessage(`"null"`)}).IsNil())
	assert.False(t, (&Node{Ref: 2, Value: json.RawMessage("null")}).IsNil())
	assert.False(t, (&Node{}).IsNil())
}

func TestNode_JSONShape(t *testing.T) {
	t.Run("alias node is ref only", func(t *testing.T) {
		data, err := json.Marshal(&Node{Ref: 3})
		require.NoError(t, err)
		assert.JSONEq(t, `{"ref":3}`, string(data))
	})

	t.Run("scalar leaf omits container fields", func(t *testing.T) {
		data, err := json.Marshal(&Node{Type: "int", Value: json.RawMessage("42")})
		require.NoError(t, err)
		assert.JSONEq(t, `{"type":"int","value":42}`, string(data))
	})

	t.Run("kind and compression use wire names", func(t *testing.T) {
		data, err := json.Marshal(&Node{
			Kind:        format.KindSequence,
			Len:         2,
			Compression: format.CompressionZstd,
			Entry:       "payload/x.bytes",
		})
		require.NoError(t, err)
		assert.Contains(t, string(data), `"kind":"sequence"`)
		assert.Contains(t, string(data), `"compression":"zstd"`)
	})

	t.Run("round trip", func(t *testing.T) {
		orig := &Node{
			Type:        "frame",
			Kind:        format.KindScalar,
			Entry:       "payload/metrics.frame",
			Compression: format.CompressionLZ4,
			Meta:        json.RawMessage(`{"rows":3}`),
			Ref:         1,
		}
		data, err := json.Marshal(orig)
		require.NoError(t, err)

		decoded := &Node{}
		require.NoError(t, json.Unmarshal(data, decoded))
		assert.Equal(t, orig, decoded)
	})
}

func validIndex() *Index {
	return &Index{
		Format:  format.IndexVersion,
		Created: "2026-08-25T10:00:00Z",
		Writer:  "holdall/" + format.LibraryVersion,
		Self:    &Node{Kind: format.KindMapping, Keys: []string{"a", "b"}},
		Nodes: map[string]*Node{
			"a":   {Kind: format.KindSequence, Len: 1, Ref: 1},
			"a.0": {Type: "int", Value: json.RawMessage("7")},
			"b":   {Ref: 1},
			"c":   {Type: "bytes", Entry: "payload/c.bytes"},
		},
		Refs: map[string]string{"1": "a"},
	}
}

func TestIndex_Validate(t *testing.T) {
	entries := map[string]bool{IndexName: true, "payload/c.bytes": true}

	t.Run("valid", func(t *testing.T) {
		require.NoError(t, validIndex().validate(entries))
	})

	tests := []struct {
		name   string
		mutate func(idx *Index)
	}{
		{"unsupported format version", func(idx *Index) { idx.Format = 99 }},
		{"missing nodes table", func(idx *Index) { idx.Nodes = nil }},
		{"null descriptor", func(idx *Index) { idx.Nodes["a"] = nil }},
		{"malformed node path", func(idx *Index) { idx.Nodes["bad..path"] = &Node{} }},
		{"missing payload entry", func(idx *Index) { idx.Nodes["c"].Entry = "payload/gone.bytes" }},
		{"alias with unknown ref", func(idx *Index) { idx.Nodes["b"].Ref = 9 }},
		{"malformed ref id", func(idx *Index) { idx.Refs["zero"] = "a" }},
		{"non-positive ref id", func(idx *Index) { idx.Refs["0"] = "a" }},
		{"ref to missing path", func(idx *Index) { idx.Refs["1"] = "gone" }},
		{"ref to alias node", func(idx *Index) { idx.Refs["1"] = "b" }},
		{"self key without root", func(idx *Index) { idx.Self.Keys = append(idx.Self.Keys, "ghost") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := validIndex()
			tt.mutate(idx)
			assert.ErrorIs(t, idx.validate(entries), errs.ErrCorruptArchive)
		})
	}
}

func TestIndex_CanonicalPath(t *testing.T) {
	idx := validIndex()

	path, ok := idx.canonicalPath(1)
	require.True(t, ok)
	assert.Equal(t, "a", path)

	_, ok = idx.canonicalPath(2)
	assert.False(t, ok)
}
