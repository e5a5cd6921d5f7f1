package frame

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/bits"
	"time"

	"github.com/holdall-io/holdall/endian"
	"github.com/holdall-io/holdall/errs"
	"github.com/holdall-io/holdall/format"
	"github.com/holdall-io/holdall/internal/pool"
)

// dtypeOf maps a backing slice to its column dtype and reports its length.
func dtypeOf(values any) (format.DType, int, error) {
	switch vs := values.(type) {
	case []bool:
		return format.DTypeBool, len(vs), nil
	case []int8:
		return format.DTypeInt8, len(vs), nil
	case []int16:
		return format.DTypeInt16, len(vs), nil
	case []int32:
		return format.DTypeInt32, len(vs), nil
	case []int64:
		return format.DTypeInt64, len(vs), nil
	case []uint8:
		return format.DTypeUint8, len(vs), nil
	case []uint16:
		return format.DTypeUint16, len(vs), nil
	case []uint32:
		return format.DTypeUint32, len(vs), nil
	case []uint64:
		return format.DTypeUint64, len(vs), nil
	case []float32:
		return format.DTypeFloat32, len(vs), nil
	case []float64:
		return format.DTypeFloat64, len(vs), nil
	case []string:
		return format.DTypeString, len(vs), nil
	case []time.Time:
		return format.DTypeTime, len(vs), nil
	case []any:
		return format.DTypeAny, len(vs), nil
	case nil:
		return format.DTypeInvalid, 0, fmt.Errorf("%w: nil column values", errs.ErrUnsupportedType)
	default:
		return format.DTypeInvalid, 0, fmt.Errorf("%w: %T is not a column type", errs.ErrUnsupportedType, values)
	}
}

// uvarintSize returns the encoded size of x as an unsigned varint.
func uvarintSize(x uint64) int {
	return (bits.Len64(x|1) + 6) / 7
}

// appendColumn encodes one column segment into buf.
//
// Fixed-width dtypes pack elements back to back in the engine's byte
// order. Strings are framed with a uvarint byte length per element.
// Times are stored as Unix nanoseconds, so values must fall inside the
// int64 nanosecond range (years 1678 through 2262) and locations are not
// preserved. Heterogeneous []any columns serialize as one deterministic
// CBOR array.
func appendColumn(buf *pool.ByteBuffer, engine endian.EndianEngine, values any) error {
	switch vs := values.(type) {
	case []bool:
		buf.Grow(len(vs))
		for _, v := range vs {
			if v {
				buf.B = append(buf.B, 1)
			} else {
				buf.B = append(buf.B, 0)
			}
		}
	case []int8:
		buf.Grow(len(vs))
		for _, v := range vs {
			buf.B = append(buf.B, byte(v))
		}
	case []int16:
		buf.Grow(2 * len(vs))
		for _, v := range vs {
			buf.B = engine.AppendUint16(buf.B, uint16(v))
		}
	case []int32:
		buf.Grow(4 * len(vs))
		for _, v := range vs {
			buf.B = engine.AppendUint32(buf.B, uint32(v))
		}
	case []int64:
		buf.Grow(8 * len(vs))
		for _, v := range vs {
			buf.B = engine.AppendUint64(buf.B, uint64(v))
		}
	case []uint8:
		buf.MustWrite(vs)
	case []uint16:
		buf.Grow(2 * len(vs))
		for _, v := range vs {
			buf.B = engine.AppendUint16(buf.B, v)
		}
	case []uint32:
		buf.Grow(4 * len(vs))
		for _, v := range vs {
			buf.B = engine.AppendUint32(buf.B, v)
		}
	case []uint64:
		buf.Grow(8 * len(vs))
		for _, v := range vs {
			buf.B = engine.AppendUint64(buf.B, v)
		}
	case []float32:
		buf.Grow(4 * len(vs))
		for _, v := range vs {
			buf.B = engine.AppendUint32(buf.B, math.Float32bits(v))
		}
	case []float64:
		buf.Grow(8 * len(vs))
		for _, v := range vs {
			buf.B = engine.AppendUint64(buf.B, math.Float64bits(v))
		}
	case []time.Time:
		buf.Grow(8 * len(vs))
		for _, v := range vs {
			buf.B = engine.AppendUint64(buf.B, uint64(v.UnixNano()))
		}
	case []string:
		total := 0
		for _, s := range vs {
			total += uvarintSize(uint64(len(s))) + len(s)
		}
		buf.Grow(total)
		for _, s := range vs {
			buf.B = binary.AppendUvarint(buf.B, uint64(len(s)))
			buf.B = append(buf.B, s...)
		}
	case []any:
		b, err := encMode.Marshal(vs)
		if err != nil {
			return fmt.Errorf("any column: %w", err)
		}
		buf.MustWrite(b)
	default:
		return fmt.Errorf("%w: %T is not a column type", errs.ErrUnsupportedType, values)
	}

	return nil
}

// decodeColumn decodes one column segment of n elements into a fresh
// typed slice of the dtype's backing type.
//
// The segment must contain exactly n elements with no trailing bytes;
// anything else reports errs.ErrCorruptArchive.
func decodeColumn(engine endian.EndianEngine, dtype format.DType, data []byte, n int) (any, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative column length %d", errs.ErrCorruptArchive, n)
	}

	if size := dtype.FixedSize(); size > 0 {
		// Compare by division: the product n*size can wrap for a hostile
		// count and slip past a byte-length check.
		if len(data)%size != 0 || len(data)/size != n {
			return nil, fmt.Errorf("%w: %s column wants %d elements, segment has %d bytes",
				errs.ErrCorruptArchive, dtype, n, len(data))
		}

		return decodeFixedColumn(engine, dtype, data, n)
	}

	switch dtype {
	case format.DTypeString:
		return decodeStringColumn(data, n)
	case format.DTypeAny:
		var out []any
		if err := decMode.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("%w: any column: %w", errs.ErrCorruptArchive, err)
		}
		if len(out) != n {
			return nil, fmt.Errorf("%w: any column wants %d elements, segment has %d",
				errs.ErrCorruptArchive, n, len(out))
		}

		return out, nil
	default:
		return nil, fmt.Errorf("%w: cannot decode dtype %s", errs.ErrCorruptArchive, dtype)
	}
}

func decodeFixedColumn(engine endian.EndianEngine, dtype format.DType, data []byte, n int) (any, error) {
	switch dtype {
	case format.DTypeBool:
		out := make([]bool, n)
		for i := range n {
			out[i] = data[i] != 0
		}

		return out, nil
	case format.DTypeInt8:
		out := make([]int8, n)
		for i := range n {
			out[i] = int8(data[i])
		}

		return out, nil
	case format.DTypeInt16:
		out := make([]int16, n)
		for i := range n {
			out[i] = int16(engine.Uint16(data[i*2:]))
		}

		return out, nil
	case format.DTypeInt32:
		out := make([]int32, n)
		for i := range n {
			out[i] = int32(engine.Uint32(data[i*4:]))
		}

		return out, nil
	case format.DTypeInt64:
		out := make([]int64, n)
		for i := range n {
			out[i] = int64(engine.Uint64(data[i*8:]))
		}

		return out, nil
	case format.DTypeUint8:
		out := make([]uint8, n)
		copy(out, data)

		return out, nil
	case format.DTypeUint16:
		out := make([]uint16, n)
		for i := range n {
			out[i] = engine.Uint16(data[i*2:])
		}

		return out, nil
	case format.DTypeUint32:
		out := make([]uint32, n)
		for i := range n {
			out[i] = engine.Uint32(data[i*4:])
		}

		return out, nil
	case format.DTypeUint64:
		out := make([]uint64, n)
		for i := range n {
			out[i] = engine.Uint64(data[i*8:])
		}

		return out, nil
	case format.DTypeFloat32:
		out := make([]float32, n)
		for i := range n {
			out[i] = math.Float32frombits(engine.Uint32(data[i*4:]))
		}

		return out, nil
	case format.DTypeFloat64:
		out := make([]float64, n)
		for i := range n {
			out[i] = math.Float64frombits(engine.Uint64(data[i*8:]))
		}

		return out, nil
	case format.DTypeTime:
		out := make([]time.Time, n)
		for i := range n {
			out[i] = time.Unix(0, int64(engine.Uint64(data[i*8:]))).UTC()
		}

		return out, nil
	default:
		return nil, fmt.Errorf("%w: cannot decode dtype %s", errs.ErrCorruptArchive, dtype)
	}
}

func decodeStringColumn(data []byte, n int) ([]string, error) {
	out := make([]string, 0, min(n, len(data)))
	offset := 0
	for range n {
		length, read := binary.Uvarint(data[offset:])
		if read <= 0 {
			return nil, fmt.Errorf("%w: truncated string column at offset %d", errs.ErrCorruptArchive, offset)
		}
		offset += read

		end := offset + int(length)
		if length > uint64(len(data)) || end > len(data) {
			return nil, fmt.Errorf("%w: string column element overruns segment at offset %d", errs.ErrCorruptArchive, offset)
		}

		out = append(out, string(data[offset:end]))
		offset = end
	}

	if offset != len(data) {
		return nil, fmt.Errorf("%w: string column has %d trailing bytes", errs.ErrCorruptArchive, len(data)-offset)
	}

	return out, nil
}
