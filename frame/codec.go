package frame

import (
	"fmt"
	"reflect"

	json "github.com/goccy/go-json"

	"github.com/holdall-io/holdall/endian"
	"github.com/holdall-io/holdall/errs"
	"github.com/holdall-io/holdall/format"
	"github.com/holdall-io/holdall/internal/pool"
	"github.com/holdall-io/holdall/registry"
)

// Type tags recorded in node descriptors for the tabular codecs.
const (
	FrameTag  = "frame"
	SeriesTag = "series"
	ArrayTag  = "array"

	FloatsTag  = "floats"
	IntsTag    = "ints"
	StringsTag = "strings"
	BoolsTag   = "bools"
)

// Register installs the tabular codecs into r using little-endian payload
// byte order, the archive default.
//
// It registers Frame, Series, and Array under both their value and
// pointer types, plus compact columnar codecs for the bulk slice types
// []float64, []int64, []string, and []bool. Decoding canonically returns
// *Frame, Series, and *Array regardless of which form was stored.
func Register(r *registry.Registry) error {
	return RegisterWith(r, endian.GetLittleEndianEngine())
}

// RegisterWith installs the tabular codecs with an explicit payload byte
// order. The order is recorded in each node's metadata, so archives stay
// readable no matter which engine wrote them.
func RegisterWith(r *registry.Registry, engine endian.EndianEngine) error {
	regs := []struct {
		rt    reflect.Type
		codec registry.Codec
	}{
		{reflect.TypeFor[*Frame](), frameCodec{engine: engine}},
		{reflect.TypeFor[Frame](), frameCodec{engine: engine}},
		{reflect.TypeFor[Series](), seriesCodec{engine: engine}},
		{reflect.TypeFor[*Series](), seriesCodec{engine: engine}},
		{reflect.TypeFor[*Array](), arrayCodec{engine: engine}},
		{reflect.TypeFor[Array](), arrayCodec{engine: engine}},
		{reflect.TypeFor[[]float64](), listCodec[float64]{tag: FloatsTag, engine: engine}},
		{reflect.TypeFor[[]int64](), listCodec[int64]{tag: IntsTag, engine: engine}},
		{reflect.TypeFor[[]string](), listCodec[string]{tag: StringsTag, engine: engine}},
		{reflect.TypeFor[[]bool](), listCodec[bool]{tag: BoolsTag, engine: engine}},
	}

	for _, reg := range regs {
		if err := r.Register(reg.rt, reg.codec); err != nil {
			return err
		}
	}

	return nil
}

// columnMeta is the per-column schema entry recorded in frame metadata.
type columnMeta struct {
	Name  string       `json:"name"`
	DType format.DType `json:"dtype"`
	Size  int64        `json:"size"`
}

// frameMeta is the decode-time schema of a frame payload: column segments
// are concatenated in order, each Size bytes long.
type frameMeta struct {
	Rows    int          `json:"rows"`
	Order   string       `json:"order,omitempty"`
	Columns []columnMeta `json:"columns"`
}

type seriesMeta struct {
	Name  string       `json:"name,omitempty"`
	DType format.DType `json:"dtype"`
	Len   int          `json:"len"`
	Order string       `json:"order,omitempty"`
}

type arrayMeta struct {
	DType format.DType `json:"dtype"`
	Shape []int        `json:"shape"`
	Order string       `json:"order,omitempty"`
}

type listMeta struct {
	Len   int    `json:"len"`
	Order string `json:"order,omitempty"`
}

var (
	_ registry.Codec = frameCodec{}
	_ registry.Codec = seriesCodec{}
	_ registry.Codec = arrayCodec{}
	_ registry.Codec = listCodec[float64]{}
)

// orderName returns the byte order recorded in metadata: empty for the
// little-endian default, "be" otherwise.
func orderName(engine endian.EndianEngine) string {
	if name := endian.Name(engine); name != "le" {
		return name
	}

	return ""
}

func wrongType(tag string, v any) error {
	return fmt.Errorf("%w: %s codec cannot encode %T", errs.ErrTypeMismatch, tag, v)
}

func corruptMeta(tag string, err error) error {
	return fmt.Errorf("%w: %s meta: %w", errs.ErrCorruptArchive, tag, err)
}

type frameCodec struct {
	engine endian.EndianEngine
}

func (frameCodec) Tag() string { return FrameTag }

func (c frameCodec) Encode(v any) (registry.Encoded, error) {
	var f *Frame
	switch fv := v.(type) {
	case *Frame:
		f = fv
	case Frame:
		f = &fv
	default:
		return registry.Encoded{}, wrongType(FrameTag, v)
	}
	if f == nil {
		return registry.Encoded{}, fmt.Errorf("%w: nil frame", errs.ErrUnsupportedType)
	}

	buf := pool.GetPayloadBuffer()
	defer pool.PutPayloadBuffer(buf)

	meta := frameMeta{
		Rows:    f.NumRows(),
		Order:   orderName(c.engine),
		Columns: make([]columnMeta, 0, f.NumCols()),
	}
	for _, col := range f.columns {
		start := buf.Len()
		if err := appendColumn(buf, c.engine, col.values); err != nil {
			return registry.Encoded{}, fmt.Errorf("frame column %q: %w", col.name, err)
		}
		meta.Columns = append(meta.Columns, columnMeta{
			Name:  col.name,
			DType: col.dtype,
			Size:  int64(buf.Len() - start),
		})
	}

	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return registry.Encoded{}, fmt.Errorf("frame meta: %w", err)
	}

	return registry.Encoded{
		Payload: append([]byte(nil), buf.Bytes()...),
		Meta:    metaJSON,
	}, nil
}

func (frameCodec) Decode(enc registry.Encoded) (any, error) {
	var meta frameMeta
	if err := json.Unmarshal(enc.Meta, &meta); err != nil {
		return nil, corruptMeta(FrameTag, err)
	}
	engine, err := endian.EngineFor(meta.Order)
	if err != nil {
		return nil, corruptMeta(FrameTag, err)
	}

	data := enc.Payload
	offset := int64(0)
	columns := make([]Series, 0, len(meta.Columns))
	for _, cm := range meta.Columns {
		// Bound the size before adding it to offset; the sum can wrap for
		// a hostile size and land inside the payload.
		if cm.Size < 0 || cm.Size > int64(len(data))-offset {
			return nil, fmt.Errorf("%w: frame column %q overruns payload", errs.ErrCorruptArchive, cm.Name)
		}
		end := offset + cm.Size

		values, err := decodeColumn(engine, cm.DType, data[offset:end], meta.Rows)
		if err != nil {
			return nil, fmt.Errorf("frame column %q: %w", cm.Name, err)
		}
		col, err := NewSeries(cm.Name, values)
		if err != nil {
			return nil, fmt.Errorf("%w: frame column %q: %w", errs.ErrCorruptArchive, cm.Name, err)
		}

		columns = append(columns, col)
		offset = end
	}
	if offset != int64(len(data)) {
		return nil, fmt.Errorf("%w: frame payload has %d trailing bytes", errs.ErrCorruptArchive, int64(len(data))-offset)
	}

	f, err := NewFrame(columns...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrCorruptArchive, err)
	}

	return f, nil
}

type seriesCodec struct {
	engine endian.EndianEngine
}

func (seriesCodec) Tag() string { return SeriesTag }

func (c seriesCodec) Encode(v any) (registry.Encoded, error) {
	var s Series
	switch sv := v.(type) {
	case Series:
		s = sv
	case *Series:
		if sv == nil {
			return registry.Encoded{}, fmt.Errorf("%w: nil series", errs.ErrUnsupportedType)
		}
		s = *sv
	default:
		return registry.Encoded{}, wrongType(SeriesTag, v)
	}
	if s.dtype == format.DTypeInvalid {
		return registry.Encoded{}, fmt.Errorf("%w: zero series", errs.ErrUnsupportedType)
	}

	buf := pool.GetPayloadBuffer()
	defer pool.PutPayloadBuffer(buf)

	if err := appendColumn(buf, c.engine, s.values); err != nil {
		return registry.Encoded{}, fmt.Errorf("series %q: %w", s.name, err)
	}

	metaJSON, err := json.Marshal(seriesMeta{
		Name:  s.name,
		DType: s.dtype,
		Len:   s.Len(),
		Order: orderName(c.engine),
	})
	if err != nil {
		return registry.Encoded{}, fmt.Errorf("series meta: %w", err)
	}

	return registry.Encoded{
		Payload: append([]byte(nil), buf.Bytes()...),
		Meta:    metaJSON,
	}, nil
}

func (seriesCodec) Decode(enc registry.Encoded) (any, error) {
	var meta seriesMeta
	if err := json.Unmarshal(enc.Meta, &meta); err != nil {
		return nil, corruptMeta(SeriesTag, err)
	}
	engine, err := endian.EngineFor(meta.Order)
	if err != nil {
		return nil, corruptMeta(SeriesTag, err)
	}

	values, err := decodeColumn(engine, meta.DType, enc.Payload, meta.Len)
	if err != nil {
		return nil, fmt.Errorf("series %q: %w", meta.Name, err)
	}
	s, err := NewSeries(meta.Name, values)
	if err != nil {
		return nil, fmt.Errorf("%w: series %q: %w", errs.ErrCorruptArchive, meta.Name, err)
	}

	return s, nil
}

type arrayCodec struct {
	engine endian.EndianEngine
}

func (arrayCodec) Tag() string { return ArrayTag }

func (c arrayCodec) Encode(v any) (registry.Encoded, error) {
	var a *Array
	switch av := v.(type) {
	case *Array:
		a = av
	case Array:
		a = &av
	default:
		return registry.Encoded{}, wrongType(ArrayTag, v)
	}
	if a == nil {
		return registry.Encoded{}, fmt.Errorf("%w: nil array", errs.ErrUnsupportedType)
	}
	if a.dtype == format.DTypeInvalid {
		return registry.Encoded{}, fmt.Errorf("%w: zero array", errs.ErrUnsupportedType)
	}

	buf := pool.GetPayloadBuffer()
	defer pool.PutPayloadBuffer(buf)

	if err := appendColumn(buf, c.engine, a.data); err != nil {
		return registry.Encoded{}, fmt.Errorf("array: %w", err)
	}

	metaJSON, err := json.Marshal(arrayMeta{
		DType: a.dtype,
		Shape: a.shape,
		Order: orderName(c.engine),
	})
	if err != nil {
		return registry.Encoded{}, fmt.Errorf("array meta: %w", err)
	}

	return registry.Encoded{
		Payload: append([]byte(nil), buf.Bytes()...),
		Meta:    metaJSON,
	}, nil
}

func (arrayCodec) Decode(enc registry.Encoded) (any, error) {
	var meta arrayMeta
	if err := json.Unmarshal(enc.Meta, &meta); err != nil {
		return nil, corruptMeta(ArrayTag, err)
	}
	engine, err := endian.EngineFor(meta.Order)
	if err != nil {
		return nil, corruptMeta(ArrayTag, err)
	}

	total, err := shapeElems(meta.Shape)
	if err != nil {
		return nil, fmt.Errorf("%w: array: %w", errs.ErrCorruptArchive, err)
	}

	values, err := decodeColumn(engine, meta.DType, enc.Payload, total)
	if err != nil {
		return nil, fmt.Errorf("array: %w", err)
	}
	a, err := NewArray(meta.Shape, values)
	if err != nil {
		return nil, fmt.Errorf("%w: array: %w", errs.ErrCorruptArchive, err)
	}

	return a, nil
}

// listCodec stores a bulk slice as a single column segment. It gives the
// common homogeneous slice types a compact binary form instead of the
// per-element structural encoding a generic sequence receives.
type listCodec[T any] struct {
	tag    string
	engine endian.EndianEngine
}

func (c listCodec[T]) Tag() string { return c.tag }

func (c listCodec[T]) Encode(v any) (registry.Encoded, error) {
	vals, ok := v.([]T)
	if !ok {
		return registry.Encoded{}, wrongType(c.tag, v)
	}

	buf := pool.GetPayloadBuffer()
	defer pool.PutPayloadBuffer(buf)

	if err := appendColumn(buf, c.engine, vals); err != nil {
		return registry.Encoded{}, fmt.Errorf("%s: %w", c.tag, err)
	}

	metaJSON, err := json.Marshal(listMeta{
		Len:   len(vals),
		Order: orderName(c.engine),
	})
	if err != nil {
		return registry.Encoded{}, fmt.Errorf("%s meta: %w", c.tag, err)
	}

	return registry.Encoded{
		Payload: append([]byte(nil), buf.Bytes()...),
		Meta:    metaJSON,
	}, nil
}

func (c listCodec[T]) Decode(enc registry.Encoded) (any, error) {
	var meta listMeta
	if err := json.Unmarshal(enc.Meta, &meta); err != nil {
		return nil, corruptMeta(c.tag, err)
	}
	engine, err := endian.EngineFor(meta.Order)
	if err != nil {
		return nil, corruptMeta(c.tag, err)
	}

	dtype, _, err := dtypeOf([]T(nil))
	if err != nil {
		return nil, err
	}

	values, err := decodeColumn(engine, dtype, enc.Payload, meta.Len)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.tag, err)
	}

	return values, nil
}
