package registry

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"

	json "github.com/goccy/go-json"

	"github.com/holdall-io/holdall/errs"
)

// TextTag is the tag of the payload-backed string codec. The writer switches
// a string from the inline "string" codec to this one when it exceeds the
// session's inline limit, keeping the index compact while still storing the
// full text.
const TextTag = "text"

// BytesTag is the tag of the raw []byte codec.
const BytesTag = "bytes"

func registerBuiltins(r *Registry) {
	register := func(rt reflect.Type, codec Codec) {
		// Builtins are static; registration cannot fail.
		if err := r.Register(rt, codec); err != nil {
			panic(fmt.Sprintf("builtin codec registration failed: %v", err))
		}
	}

	register(reflect.TypeFor[bool](), boolCodec{})
	register(reflect.TypeFor[string](), stringCodec{})

	register(reflect.TypeFor[int](), intCodec[int]{tag: "int"})
	register(reflect.TypeFor[int8](), intCodec[int8]{tag: "int8"})
	register(reflect.TypeFor[int16](), intCodec[int16]{tag: "int16"})
	register(reflect.TypeFor[int32](), intCodec[int32]{tag: "int32"})
	register(reflect.TypeFor[int64](), intCodec[int64]{tag: "int64"})

	register(reflect.TypeFor[uint](), uintCodec[uint]{tag: "uint"})
	register(reflect.TypeFor[uint8](), uintCodec[uint8]{tag: "uint8"})
	register(reflect.TypeFor[uint16](), uintCodec[uint16]{tag: "uint16"})
	register(reflect.TypeFor[uint32](), uintCodec[uint32]{tag: "uint32"})
	register(reflect.TypeFor[uint64](), uintCodec[uint64]{tag: "uint64"})

	register(reflect.TypeFor[float32](), floatCodec[float32]{tag: "float32"})
	register(reflect.TypeFor[float64](), floatCodec[float64]{tag: "float64"})

	register(reflect.TypeFor[complex64](), complexCodec[complex64]{tag: "complex64"})
	register(reflect.TypeFor[complex128](), complexCodec[complex128]{tag: "complex128"})

	register(reflect.TypeFor[time.Time](), timeCodec{})
	register(reflect.TypeFor[time.Duration](), durationCodec{})
	register(reflect.TypeFor[[]byte](), bytesCodec{})

	// The text codec is reached by tag only: strings resolve to the inline
	// codec by type, and the writer switches to text past the inline limit.
	r.mu.Lock()
	r.tags[TextTag] = textCodec{}
	r.mu.Unlock()
}

func typeMismatch(tag string, v any) error {
	return fmt.Errorf("%w: codec %q cannot encode %T", errs.ErrTypeMismatch, tag, v)
}

func corruptValue(tag string, raw json.RawMessage) error {
	return fmt.Errorf("%w: invalid inline value %q for tag %q", errs.ErrCorruptArchive, raw, tag)
}

type boolCodec struct{}

func (boolCodec) Tag() string { return "bool" }

func (boolCodec) Encode(v any) (Encoded, error) {
	b, ok := v.(bool)
	if !ok {
		return Encoded{}, typeMismatch("bool", v)
	}
	if b {
		return Encoded{Inline: json.RawMessage("true")}, nil
	}

	return Encoded{Inline: json.RawMessage("false")}, nil
}

func (boolCodec) Decode(enc Encoded) (any, error) {
	switch string(enc.Inline) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return nil, corruptValue("bool", enc.Inline)
	}
}

type stringCodec struct{}

func (stringCodec) Tag() string { return "string" }

func (stringCodec) Encode(v any) (Encoded, error) {
	s, ok := v.(string)
	if !ok {
		return Encoded{}, typeMismatch("string", v)
	}
	inline, err := json.Marshal(s)
	if err != nil {
		return Encoded{}, err
	}

	return Encoded{Inline: inline}, nil
}

func (stringCodec) Decode(enc Encoded) (any, error) {
	var s string
	if err := json.Unmarshal(enc.Inline, &s); err != nil {
		return nil, corruptValue("string", enc.Inline)
	}

	return s, nil
}

// textCodec is the payload-backed sibling of stringCodec for strings too
// large to inline.
type textCodec struct{}

func (textCodec) Tag() string { return TextTag }

func (textCodec) Encode(v any) (Encoded, error) {
	s, ok := v.(string)
	if !ok {
		return Encoded{}, typeMismatch(TextTag, v)
	}

	return Encoded{Payload: []byte(s)}, nil
}

func (textCodec) Decode(enc Encoded) (any, error) {
	return string(enc.Payload), nil
}

type signedInt interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64
}

type unsignedInt interface {
	~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

type intCodec[T signedInt] struct {
	tag string
}

func (c intCodec[T]) Tag() string { return c.tag }

func (c intCodec[T]) Encode(v any) (Encoded, error) {
	n, ok := v.(T)
	if !ok {
		return Encoded{}, typeMismatch(c.tag, v)
	}

	return Encoded{Inline: strconv.AppendInt(nil, int64(n), 10)}, nil
}

func (c intCodec[T]) Decode(enc Encoded) (any, error) {
	n, err := strconv.ParseInt(string(enc.Inline), 10, reflect.TypeFor[T]().Bits())
	if err != nil {
		return nil, corruptValue(c.tag, enc.Inline)
	}

	return T(n), nil
}

type uintCodec[T unsignedInt] struct {
	tag string
}

func (c uintCodec[T]) Tag() string { return c.tag }

func (c uintCodec[T]) Encode(v any) (Encoded, error) {
	n, ok := v.(T)
	if !ok {
		return Encoded{}, typeMismatch(c.tag, v)
	}

	return Encoded{Inline: strconv.AppendUint(nil, uint64(n), 10)}, nil
}

func (c uintCodec[T]) Decode(enc Encoded) (any, error) {
	n, err := strconv.ParseUint(string(enc.Inline), 10, reflect.TypeFor[T]().Bits())
	if err != nil {
		return nil, corruptValue(c.tag, enc.Inline)
	}

	return T(n), nil
}

// appendFloatJSON renders f as a JSON number, or as one of the quoted
// strings "NaN", "+Inf", "-Inf" for the values JSON numbers cannot carry.
func appendFloatJSON(dst []byte, f float64, bits int) []byte {
	switch {
	case math.IsNaN(f):
		return append(dst, `"NaN"`...)
	case math.IsInf(f, 1):
		return append(dst, `"+Inf"`...)
	case math.IsInf(f, -1):
		return append(dst, `"-Inf"`...)
	default:
		return strconv.AppendFloat(dst, f, 'g', -1, bits)
	}
}

// parseFloatJSON is the inverse of appendFloatJSON.
func parseFloatJSON(raw json.RawMessage, bits int) (float64, error) {
	switch string(raw) {
	case `"NaN"`:
		return math.NaN(), nil
	case `"+Inf"`:
		return math.Inf(1), nil
	case `"-Inf"`:
		return math.Inf(-1), nil
	}

	return strconv.ParseFloat(string(raw), bits)
}

type floatCodec[T ~float32 | ~float64] struct {
	tag string
}

func (c floatCodec[T]) Tag() string { return c.tag }

func (c floatCodec[T]) Encode(v any) (Encoded, error) {
	f, ok := v.(T)
	if !ok {
		return Encoded{}, typeMismatch(c.tag, v)
	}
	bits := reflect.TypeFor[T]().Bits()

	return Encoded{Inline: appendFloatJSON(nil, float64(f), bits)}, nil
}

func (c floatCodec[T]) Decode(enc Encoded) (any, error) {
	f, err := parseFloatJSON(enc.Inline, reflect.TypeFor[T]().Bits())
	if err != nil {
		return nil, corruptValue(c.tag, enc.Inline)
	}

	return T(f), nil
}

type complexCodec[T ~complex64 | ~complex128] struct {
	tag string
}

func (c complexCodec[T]) Tag() string { return c.tag }

// componentBits returns the width of one complex component: 32 for
// complex64, 64 for complex128.
func (c complexCodec[T]) componentBits() int {
	return reflect.TypeFor[T]().Bits() / 2
}

func (c complexCodec[T]) Encode(v any) (Encoded, error) {
	z, ok := v.(T)
	if !ok {
		return Encoded{}, typeMismatch(c.tag, v)
	}
	z128 := complex128(z)
	bits := c.componentBits()

	buf := append([]byte(nil), `{"real":`...)
	buf = appendFloatJSON(buf, real(z128), bits)
	buf = append(buf, `,"imag":`...)
	buf = appendFloatJSON(buf, imag(z128), bits)
	buf = append(buf, '}')

	return Encoded{Inline: buf}, nil
}

func (c complexCodec[T]) Decode(enc Encoded) (any, error) {
	var parts struct {
		Real json.RawMessage `json:"real"`
		Imag json.RawMessage `json:"imag"`
	}
	if err := json.Unmarshal(enc.Inline, &parts); err != nil {
		return nil, corruptValue(c.tag, enc.Inline)
	}

	bits := c.componentBits()
	re, err := parseFloatJSON(parts.Real, bits)
	if err != nil {
		return nil, corruptValue(c.tag, enc.Inline)
	}
	im, err := parseFloatJSON(parts.Imag, bits)
	if err != nil {
		return nil, corruptValue(c.tag, enc.Inline)
	}

	return T(complex(re, im)), nil
}

type timeCodec struct{}

func (timeCodec) Tag() string { return "time" }

func (timeCodec) Encode(v any) (Encoded, error) {
	t, ok := v.(time.Time)
	if !ok {
		return Encoded{}, typeMismatch("time", v)
	}

	return Encoded{Inline: strconv.AppendQuote(nil, t.Format(time.RFC3339Nano))}, nil
}

func (timeCodec) Decode(enc Encoded) (any, error) {
	var s string
	if err := json.Unmarshal(enc.Inline, &s); err != nil {
		return nil, corruptValue("time", enc.Inline)
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil, corruptValue("time", enc.Inline)
	}

	return t, nil
}

type durationCodec struct{}

func (durationCodec) Tag() string { return "duration" }

func (durationCodec) Encode(v any) (Encoded, error) {
	d, ok := v.(time.Duration)
	if !ok {
		return Encoded{}, typeMismatch("duration", v)
	}

	return Encoded{Inline: strconv.AppendQuote(nil, d.String())}, nil
}

func (durationCodec) Decode(enc Encoded) (any, error) {
	var s string
	if err := json.Unmarshal(enc.Inline, &s); err != nil {
		return nil, corruptValue("duration", enc.Inline)
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return nil, corruptValue("duration", enc.Inline)
	}

	return d, nil
}

type bytesCodec struct{}

func (bytesCodec) Tag() string { return BytesTag }

func (bytesCodec) Encode(v any) (Encoded, error) {
	b, ok := v.([]byte)
	if !ok {
		return Encoded{}, typeMismatch(BytesTag, v)
	}

	return Encoded{Payload: b}, nil
}

func (bytesCodec) Decode(enc Encoded) (any, error) {
	// Copy: the payload slice may alias a reader-owned buffer.
	return append([]byte(nil), enc.Payload...), nil
}
