package frame

import (
	"math/bits"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/holdall-io/holdall/errs"
	"github.com/holdall-io/holdall/format"
)

func TestNewSeries_DTypes(t *testing.T) {
	tests := []struct {
		name   string
		values any
		dtype  format.DType
		length int
	}{
		{"Bool", []bool{true, false}, format.DTypeBool, 2},
		{"Int8", []int8{1}, format.DTypeInt8, 1},
		{"Int16", []int16{1, 2, 3}, format.DTypeInt16, 3},
		{"Int32", []int32{}, format.DTypeInt32, 0},
		{"Int64", []int64{-1, 1}, format.DTypeInt64, 2},
		{"Uint8", []uint8{0xff}, format.DTypeUint8, 1},
		{"Uint16", []uint16{1}, format.DTypeUint16, 1},
		{"Uint32", []uint32{1}, format.DTypeUint32, 1},
		{"Uint64", []uint64{1}, format.DTypeUint64, 1},
		{"Float32", []float32{1.5}, format.DTypeFloat32, 1},
		{"Float64", []float64{1.5, 2.5}, format.DTypeFloat64, 2},
		{"String", []string{"a", "b"}, format.DTypeString, 2},
		{"Time", []time.Time{time.Now()}, format.DTypeTime, 1},
		{"Any", []any{int64(1), "x", nil}, format.DTypeAny, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSeries("col", tt.values)
			require.NoError(t, err)
			require.Equal(t, "col", s.Name())
			require.Equal(t, tt.dtype, s.DType())
			require.Equal(t, tt.length, s.Len())
			require.Equal(t, tt.values, s.Values())
		})
	}
}

func TestNewSeries_UnsupportedType(t *testing.T) {
	_, err := NewSeries("bad", []complex128{1})
	require.ErrorIs(t, err, errs.ErrUnsupportedType)

	_, err = NewSeries("bad", "not a slice")
	require.ErrorIs(t, err, errs.ErrUnsupportedType)

	_, err = NewSeries("bad", nil)
	require.ErrorIs(t, err, errs.ErrUnsupportedType)
}

func createTestFrame(t *testing.T) *Frame {
	t.Helper()

	ts, err := NewSeries("ts", []int64{100, 200, 300})
	require.NoError(t, err)
	load, err := NewSeries("load", []float64{0.5, 0.75, 0.25})
	require.NoError(t, err)
	host, err := NewSeries("host", []string{"a", "b", "c"})
	require.NoError(t, err)

	f, err := NewFrame(ts, load, host)
	require.NoError(t, err)

	return f
}

func TestNewFrame_Basic(t *testing.T) {
	f := createTestFrame(t)

	require.Equal(t, 3, f.NumRows())
	require.Equal(t, 3, f.NumCols())
	require.Equal(t, []string{"ts", "load", "host"}, f.Columns())

	load, ok := f.Column("load")
	require.True(t, ok)
	require.Equal(t, []float64{0.5, 0.75, 0.25}, load.Values())

	_, ok = f.Column("missing")
	require.False(t, ok)

	require.Equal(t, "ts", f.ColumnAt(0).Name())

	var seen []string
	for col := range f.All() {
		seen = append(seen, col.Name())
	}
	require.Equal(t, []string{"ts", "load", "host"}, seen)
}

func TestNewFrame_Empty(t *testing.T) {
	f, err := NewFrame()
	require.NoError(t, err)
	require.Equal(t, 0, f.NumRows())
	require.Equal(t, 0, f.NumCols())
	require.Empty(t, f.Columns())
}

func TestNewFrame_Validation(t *testing.T) {
	a, err := NewSeries("a", []int64{1, 2})
	require.NoError(t, err)
	b, err := NewSeries("b", []int64{1, 2, 3})
	require.NoError(t, err)
	unnamed, err := NewSeries("", []int64{1, 2})
	require.NoError(t, err)
	aDup, err := NewSeries("a", []float64{1, 2})
	require.NoError(t, err)

	t.Run("LengthMismatch", func(t *testing.T) {
		_, err := NewFrame(a, b)
		require.ErrorIs(t, err, errs.ErrLengthMismatch)
	})

	t.Run("UnnamedColumn", func(t *testing.T) {
		_, err := NewFrame(a, unnamed)
		require.Error(t, err)
		require.Contains(t, err.Error(), "no name")
	})

	t.Run("DuplicateName", func(t *testing.T) {
		_, err := NewFrame(a, aDup)
		require.Error(t, err)
		require.Contains(t, err.Error(), "duplicate")
	})
}

func TestNewArray_Basic(t *testing.T) {
	a, err := NewArray([]int{2, 3}, []float64{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)
	require.Equal(t, []int{2, 3}, a.Shape())
	require.Equal(t, format.DTypeFloat64, a.DType())
	require.Equal(t, 6, a.Len())

	// Row-major: element [1][2] is the flat index 1*3+2.
	v, err := a.At(1, 2)
	require.NoError(t, err)
	require.Equal(t, 6.0, v)

	v, err = a.At(0, 0)
	require.NoError(t, err)
	require.Equal(t, 1.0, v)
}

func TestNewArray_ZeroDimension(t *testing.T) {
	a, err := NewArray([]int{0, 3}, []int64{})
	require.NoError(t, err)
	require.Equal(t, 0, a.Len())
}

func TestNewArray_Validation(t *testing.T) {
	t.Run("EmptyShape", func(t *testing.T) {
		_, err := NewArray(nil, []float64{1})
		require.Error(t, err)
	})

	t.Run("NegativeDimension", func(t *testing.T) {
		_, err := NewArray([]int{-1}, []float64{1})
		require.Error(t, err)
	})

	t.Run("LengthMismatch", func(t *testing.T) {
		_, err := NewArray([]int{2, 2}, []float64{1, 2, 3})
		require.ErrorIs(t, err, errs.ErrLengthMismatch)
	})

	t.Run("UnsupportedData", func(t *testing.T) {
		_, err := NewArray([]int{1}, []complex64{1})
		require.ErrorIs(t, err, errs.ErrUnsupportedType)
	})

	t.Run("OverflowingShape", func(t *testing.T) {
		// dim*dim is exactly 2^wordsize, which wraps to zero in int and
		// would agree with the empty backing slice.
		dim := 1 << (bits.UintSize / 2)
		_, err := NewArray([]int{dim, dim}, []float64{})
		require.Error(t, err)
		require.Contains(t, err.Error(), "overflows")
	})
}

func TestArray_At_Errors(t *testing.T) {
	a, err := NewArray([]int{2, 2}, []int64{1, 2, 3, 4})
	require.NoError(t, err)

	_, err = a.At(0)
	require.Error(t, err)

	_, err = a.At(2, 0)
	require.Error(t, err)

	_, err = a.At(0, -1)
	require.Error(t, err)
}

func TestArray_ShapeIsolation(t *testing.T) {
	shape := []int{2, 2}
	a, err := NewArray(shape, []int64{1, 2, 3, 4})
	require.NoError(t, err)

	// Mutating the caller's slice or the returned copy must not change
	// the array.
	shape[0] = 99
	got := a.Shape()
	got[1] = 99
	require.Equal(t, []int{2, 2}, a.Shape())
}
