package registry

import (
	"reflect"
	"sync"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/holdall-io/holdall/errs"
)

// celsius is a custom scalar used to exercise user registrations.
type celsius float64

type celsiusCodec struct{}

func (celsiusCodec) Tag() string { return "acme.celsius" }

func (celsiusCodec) Encode(v any) (Encoded, error) {
	c, ok := v.(celsius)
	if !ok {
		return Encoded{}, typeMismatch("acme.celsius", v)
	}

	inline, err := json.Marshal(float64(c))
	if err != nil {
		return Encoded{}, err
	}

	return Encoded{Inline: inline}, nil
}

func (celsiusCodec) Decode(enc Encoded) (any, error) {
	var f float64
	if err := json.Unmarshal(enc.Inline, &f); err != nil {
		return nil, err
	}

	return celsius(f), nil
}

func TestRegistry_New(t *testing.T) {
	session := New().Snapshot()

	for _, v := range []any{true, "s", int(1), int64(1), uint8(1), float64(1), complex128(1)} {
		_, ok := session.CodecFor(reflect.TypeOf(v))
		require.True(t, ok, "builtin codec missing for %T", v)
	}

	empty := NewEmpty().Snapshot()
	_, ok := empty.CodecFor(reflect.TypeOf(int(1)))
	require.False(t, ok)
}

func TestRegistry_Register(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(reflect.TypeFor[celsius](), celsiusCodec{}))

	session := r.Snapshot()

	codec, ok := session.CodecFor(reflect.TypeFor[celsius]())
	require.True(t, ok)
	require.Equal(t, "acme.celsius", codec.Tag())

	byTag, ok := session.CodecByTag("acme.celsius")
	require.True(t, ok)
	require.Equal(t, codec, byTag)

	// The default registry is untouched.
	_, ok = Default().Snapshot().CodecFor(reflect.TypeFor[celsius]())
	require.False(t, ok)
}

func TestRegistry_RegisterValidation(t *testing.T) {
	r := NewEmpty()

	err := r.Register(nil, celsiusCodec{})
	require.ErrorIs(t, err, errs.ErrUnsupportedType)

	err = r.Register(reflect.TypeFor[celsius](), nil)
	require.ErrorIs(t, err, errs.ErrUnsupportedType)
}

type model struct {
	Name string
}

func TestRegistry_RegisterObject(t *testing.T) {
	r := New()
	require.NoError(t, RegisterObject[model](r))

	tag := ObjectTag(reflect.TypeFor[model]())
	rt, ok := r.Snapshot().ObjectType(tag)
	require.True(t, ok)
	require.Equal(t, reflect.TypeFor[model](), rt)

	// Pointer form registers the element type.
	r2 := New()
	require.NoError(t, RegisterObject[*model](r2))
	rt, ok = r2.Snapshot().ObjectType(tag)
	require.True(t, ok)
	require.Equal(t, reflect.TypeFor[model](), rt)

	err := r.RegisterObjectType(reflect.TypeFor[int]())
	require.ErrorIs(t, err, errs.ErrUnsupportedType)
}

func TestRegistry_SnapshotIsolation(t *testing.T) {
	r := New()
	before := r.Snapshot()

	require.NoError(t, r.Register(reflect.TypeFor[celsius](), celsiusCodec{}))

	_, ok := before.CodecFor(reflect.TypeFor[celsius]())
	require.False(t, ok, "snapshot must not see registrations made after it")

	_, ok = r.Snapshot().CodecFor(reflect.TypeFor[celsius]())
	require.True(t, ok)
}

func TestRegistry_ConcurrentRegister(t *testing.T) {
	r := New()

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				_ = r.Register(reflect.TypeFor[celsius](), celsiusCodec{})
				_ = r.Snapshot()
			}
		}()
	}
	wg.Wait()

	_, ok := r.Snapshot().CodecByTag("acme.celsius")
	require.True(t, ok)
}

func TestObjectTag(t *testing.T) {
	tag := ObjectTag(reflect.TypeFor[model]())
	require.Equal(t, "github.com/holdall-io/holdall/registry.model", tag)

	require.Equal(t, tag, ObjectTag(reflect.TypeFor[*model]()), "T and *T share a tag")
	require.Equal(t, tag, ObjectTag(reflect.TypeFor[**model]()))
}
