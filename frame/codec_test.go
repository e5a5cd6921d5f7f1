package frame

import (
	"reflect"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/holdall-io/holdall/endian"
	"github.com/holdall-io/holdall/errs"
	"github.com/holdall-io/holdall/registry"
)

func createTestRegistry(t *testing.T) *registry.Registry {
	t.Helper()

	r := registry.New()
	require.NoError(t, Register(r))

	return r
}

func codecForTag(t *testing.T, r *registry.Registry, tag string) registry.Codec {
	t.Helper()

	codec, ok := r.Snapshot().CodecByTag(tag)
	require.True(t, ok, "codec for tag %q", tag)

	return codec
}

func TestRegister_TagsAndTypes(t *testing.T) {
	r := createTestRegistry(t)
	session := r.Snapshot()

	for _, tag := range []string{FrameTag, SeriesTag, ArrayTag, FloatsTag, IntsTag, StringsTag, BoolsTag} {
		_, ok := session.CodecByTag(tag)
		require.True(t, ok, "tag %q not registered", tag)
	}
}

func TestFrameCodec_RoundTrip(t *testing.T) {
	r := createTestRegistry(t)
	codec := codecForTag(t, r, FrameTag)

	f := createTestFrame(t)
	enc, err := codec.Encode(f)
	require.NoError(t, err)
	require.NotEmpty(t, enc.Payload)
	require.NotEmpty(t, enc.Meta)

	decoded, err := codec.Decode(enc)
	require.NoError(t, err)

	got, ok := decoded.(*Frame)
	require.True(t, ok, "got %T", decoded)
	require.Equal(t, f.Columns(), got.Columns())
	require.Equal(t, f.NumRows(), got.NumRows())
	for _, name := range f.Columns() {
		want, _ := f.Column(name)
		have, _ := got.Column(name)
		require.Equal(t, want.Values(), have.Values(), "column %q", name)
	}
}

func TestFrameCodec_ValueFormAndEmpty(t *testing.T) {
	r := createTestRegistry(t)
	codec := codecForTag(t, r, FrameTag)

	empty, err := NewFrame()
	require.NoError(t, err)

	// Dereferenced frames encode the same as pointers.
	enc, err := codec.Encode(*empty)
	require.NoError(t, err)

	decoded, err := codec.Decode(enc)
	require.NoError(t, err)
	require.Equal(t, 0, decoded.(*Frame).NumCols())
}

func TestFrameCodec_MetaSchema(t *testing.T) {
	r := createTestRegistry(t)
	codec := codecForTag(t, r, FrameTag)

	enc, err := codec.Encode(createTestFrame(t))
	require.NoError(t, err)

	var meta struct {
		Rows    int    `json:"rows"`
		Order   string `json:"order"`
		Columns []struct {
			Name  string `json:"name"`
			DType string `json:"dtype"`
			Size  int64  `json:"size"`
		} `json:"columns"`
	}
	require.NoError(t, json.Unmarshal(enc.Meta, &meta))
	require.Equal(t, 3, meta.Rows)
	require.Empty(t, meta.Order, "little endian stays implicit")
	require.Len(t, meta.Columns, 3)
	require.Equal(t, "ts", meta.Columns[0].Name)
	require.Equal(t, "int64", meta.Columns[0].DType)
	require.Equal(t, int64(24), meta.Columns[0].Size)
}

func TestFrameCodec_BigEndian(t *testing.T) {
	r := registry.New()
	require.NoError(t, RegisterWith(r, endian.GetBigEndianEngine()))
	codec := codecForTag(t, r, FrameTag)

	f := createTestFrame(t)
	enc, err := codec.Encode(f)
	require.NoError(t, err)
	require.Contains(t, string(enc.Meta), `"order":"be"`)

	// The order travels in the metadata, so a default-registered reader
	// decodes it too.
	decoded, err := codecForTag(t, createTestRegistry(t), FrameTag).Decode(enc)
	require.NoError(t, err)

	got := decoded.(*Frame)
	ts, _ := got.Column("ts")
	require.Equal(t, []int64{100, 200, 300}, ts.Values())
}

func TestFrameCodec_Corrupt(t *testing.T) {
	r := createTestRegistry(t)
	codec := codecForTag(t, r, FrameTag)

	valid, err := codec.Encode(createTestFrame(t))
	require.NoError(t, err)

	t.Run("BadMeta", func(t *testing.T) {
		_, err := codec.Decode(registry.Encoded{Meta: []byte(`{`)})
		require.ErrorIs(t, err, errs.ErrCorruptArchive)
	})

	t.Run("TruncatedPayload", func(t *testing.T) {
		_, err := codec.Decode(registry.Encoded{Meta: valid.Meta, Payload: valid.Payload[:len(valid.Payload)-1]})
		require.ErrorIs(t, err, errs.ErrCorruptArchive)
	})

	t.Run("TrailingPayload", func(t *testing.T) {
		_, err := codec.Decode(registry.Encoded{Meta: valid.Meta, Payload: append(append([]byte(nil), valid.Payload...), 0)})
		require.ErrorIs(t, err, errs.ErrCorruptArchive)
	})

	t.Run("UnknownOrder", func(t *testing.T) {
		_, err := codec.Decode(registry.Encoded{Meta: []byte(`{"rows":0,"order":"pdp","columns":[]}`)})
		require.ErrorIs(t, err, errs.ErrCorruptArchive)
	})

	t.Run("ColumnSizeOverflow", func(t *testing.T) {
		// The second size pushes offset+size past the int64 range.
		meta := []byte(`{"rows":1,"columns":[` +
			`{"name":"a","dtype":"uint8","size":1},` +
			`{"name":"b","dtype":"uint8","size":9223372036854775807}]}`)
		_, err := codec.Decode(registry.Encoded{Meta: meta, Payload: []byte{7}})
		require.ErrorIs(t, err, errs.ErrCorruptArchive)
	})
}

func TestFrameCodec_WrongType(t *testing.T) {
	r := createTestRegistry(t)
	codec := codecForTag(t, r, FrameTag)

	_, err := codec.Encode(42)
	require.ErrorIs(t, err, errs.ErrTypeMismatch)

	_, err = codec.Encode((*Frame)(nil))
	require.ErrorIs(t, err, errs.ErrUnsupportedType)
}

func TestSeriesCodec_RoundTrip(t *testing.T) {
	r := createTestRegistry(t)
	codec := codecForTag(t, r, SeriesTag)

	now := time.Date(2026, 8, 25, 12, 0, 0, 999, time.UTC)
	s, err := NewSeries("stamps", []time.Time{now, now.Add(time.Hour)})
	require.NoError(t, err)

	enc, err := codec.Encode(s)
	require.NoError(t, err)

	decoded, err := codec.Decode(enc)
	require.NoError(t, err)

	got, ok := decoded.(Series)
	require.True(t, ok, "got %T", decoded)
	require.Equal(t, "stamps", got.Name())
	require.Equal(t, s.Values(), got.Values())

	// Pointer form canonicalizes to the value form.
	encPtr, err := codec.Encode(&s)
	require.NoError(t, err)
	require.Equal(t, enc.Payload, encPtr.Payload)
}

func TestSeriesCodec_ZeroSeries(t *testing.T) {
	r := createTestRegistry(t)
	codec := codecForTag(t, r, SeriesTag)

	_, err := codec.Encode(Series{})
	require.ErrorIs(t, err, errs.ErrUnsupportedType)
}

func TestArrayCodec_RoundTrip(t *testing.T) {
	r := createTestRegistry(t)
	codec := codecForTag(t, r, ArrayTag)

	a, err := NewArray([]int{2, 2, 2}, []int32{1, 2, 3, 4, 5, 6, 7, 8})
	require.NoError(t, err)

	enc, err := codec.Encode(a)
	require.NoError(t, err)
	require.Contains(t, string(enc.Meta), `"shape":[2,2,2]`)

	decoded, err := codec.Decode(enc)
	require.NoError(t, err)

	got, ok := decoded.(*Array)
	require.True(t, ok, "got %T", decoded)
	require.Equal(t, a.Shape(), got.Shape())
	require.Equal(t, a.Data(), got.Data())
}

func TestArrayCodec_HeterogeneousElements(t *testing.T) {
	r := createTestRegistry(t)
	codec := codecForTag(t, r, ArrayTag)

	a, err := NewArray([]int{2}, []any{"x", int64(1)})
	require.NoError(t, err)

	enc, err := codec.Encode(a)
	require.NoError(t, err)

	decoded, err := codec.Decode(enc)
	require.NoError(t, err)
	require.Equal(t, []any{"x", int64(1)}, decoded.(*Array).Data())
}

func TestArrayCodec_CorruptShape(t *testing.T) {
	r := createTestRegistry(t)
	codec := codecForTag(t, r, ArrayTag)

	_, err := codec.Decode(registry.Encoded{Meta: []byte(`{"dtype":"int64","shape":[-1]}`)})
	require.ErrorIs(t, err, errs.ErrCorruptArchive)

	_, err = codec.Decode(registry.Encoded{Meta: []byte(`{"dtype":"int64","shape":[]}`), Payload: []byte{0, 0, 0, 0, 0, 0, 0, 0}})
	require.ErrorIs(t, err, errs.ErrCorruptArchive)

	// 2^32 by 2^32 multiplies out to 2^64, which wraps to zero in int
	// arithmetic and would match the empty payload.
	_, err = codec.Decode(registry.Encoded{Meta: []byte(`{"dtype":"int64","shape":[4294967296,4294967296]}`)})
	require.ErrorIs(t, err, errs.ErrCorruptArchive)
}

func TestListCodecs_RoundTrip(t *testing.T) {
	r := createTestRegistry(t)

	tests := []struct {
		tag    string
		values any
	}{
		{FloatsTag, []float64{1.5, -2.5, 0}},
		{IntsTag, []int64{-1, 0, 1}},
		{StringsTag, []string{"a", "", "long string value"}},
		{BoolsTag, []bool{true, false}},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			codec := codecForTag(t, r, tt.tag)

			enc, err := codec.Encode(tt.values)
			require.NoError(t, err)

			decoded, err := codec.Decode(enc)
			require.NoError(t, err)
			require.Equal(t, tt.values, decoded)
		})
	}
}

func TestListCodec_WrongType(t *testing.T) {
	r := createTestRegistry(t)
	codec := codecForTag(t, r, FloatsTag)

	_, err := codec.Encode([]int64{1})
	require.ErrorIs(t, err, errs.ErrTypeMismatch)
}

func TestListCodec_CorruptLength(t *testing.T) {
	r := createTestRegistry(t)
	codec := codecForTag(t, r, IntsTag)

	// 1<<61 recorded elements over an empty payload: the byte product
	// wraps to zero, but the count must still be rejected.
	_, err := codec.Decode(registry.Encoded{Meta: []byte(`{"len":2305843009213693952}`)})
	require.ErrorIs(t, err, errs.ErrCorruptArchive)

	_, err = codec.Decode(registry.Encoded{Meta: []byte(`{"len":-1}`)})
	require.ErrorIs(t, err, errs.ErrCorruptArchive)
}

func TestListCodec_ResolvesByValueType(t *testing.T) {
	r := createTestRegistry(t)
	session := r.Snapshot()

	codec, ok := session.CodecFor(reflect.TypeFor[[]float64]())
	require.True(t, ok)
	require.Equal(t, FloatsTag, codec.Tag())
}
