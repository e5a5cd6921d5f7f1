package frame

import (
	"fmt"
	"iter"
	"math"
	"reflect"
	"slices"

	"github.com/holdall-io/holdall/errs"
	"github.com/holdall-io/holdall/format"
)

// Series is one named column: a typed slice of equal-kind elements.
//
// The backing slice must be one of the supported column types: []bool,
// []int8 through []int64, []uint8 through []uint64, []float32, []float64,
// []string, []time.Time, or []any for heterogeneous data. The element
// dtype is derived from the slice type at construction.
//
// Series is an immutable value type. Copying it is cheap; the backing
// slice is shared, not cloned.
type Series struct {
	name   string
	dtype  format.DType
	values any
}

// NewSeries creates a column over the given backing slice.
//
// Parameters:
//   - name: Column name. May be empty for a standalone series, but columns
//     added to a Frame must be named.
//   - values: Backing slice of a supported column type.
//
// Returns:
//   - Series: The constructed column
//   - error: errs.ErrUnsupportedType if the slice type has no column dtype
func NewSeries(name string, values any) (Series, error) {
	dtype, _, err := dtypeOf(values)
	if err != nil {
		return Series{}, fmt.Errorf("series %q: %w", name, err)
	}

	return Series{name: name, dtype: dtype, values: values}, nil
}

// Name returns the column name.
func (s Series) Name() string { return s.name }

// DType returns the element dtype derived from the backing slice type.
func (s Series) DType() format.DType { return s.dtype }

// Len returns the number of elements.
func (s Series) Len() int {
	if s.values == nil {
		return 0
	}

	_, n, err := dtypeOf(s.values)
	if err != nil {
		return 0
	}

	return n
}

// Values returns the backing slice. The caller must not modify it while
// the series is in use.
func (s Series) Values() any { return s.values }

// Frame is an ordered collection of equal-length named columns.
//
// Frames are constructed once and read many times. The zero value is an
// empty frame with no columns.
type Frame struct {
	columns []Series
	byName  map[string]int
}

// NewFrame creates a frame from the given columns.
//
// Every column must carry a unique, non-empty name, and all columns must
// have the same length. Column order is preserved and becomes the
// serialized order.
//
// Returns:
//   - *Frame: The constructed frame
//   - error: errs.ErrLengthMismatch if column lengths differ, or a plain
//     error for missing or duplicate names
func NewFrame(columns ...Series) (*Frame, error) {
	f := &Frame{
		columns: slices.Clone(columns),
		byName:  make(map[string]int, len(columns)),
	}

	for i, col := range f.columns {
		if col.name == "" {
			return nil, fmt.Errorf("frame column %d has no name", i)
		}
		if _, dup := f.byName[col.name]; dup {
			return nil, fmt.Errorf("duplicate frame column %q", col.name)
		}
		if col.Len() != f.columns[0].Len() {
			return nil, fmt.Errorf("%w: column %q has %d rows, column %q has %d",
				errs.ErrLengthMismatch, col.name, col.Len(), f.columns[0].name, f.columns[0].Len())
		}

		f.byName[col.name] = i
	}

	return f, nil
}

// NumRows returns the row count, zero for a frame with no columns.
func (f *Frame) NumRows() int {
	if len(f.columns) == 0 {
		return 0
	}

	return f.columns[0].Len()
}

// NumCols returns the column count.
func (f *Frame) NumCols() int { return len(f.columns) }

// Columns returns the column names in serialized order.
func (f *Frame) Columns() []string {
	names := make([]string, len(f.columns))
	for i, col := range f.columns {
		names[i] = col.name
	}

	return names
}

// Column returns the named column, reporting whether it exists.
func (f *Frame) Column(name string) (Series, bool) {
	i, ok := f.byName[name]
	if !ok {
		return Series{}, false
	}

	return f.columns[i], true
}

// ColumnAt returns the column at position i. It panics if i is out of
// range, matching slice indexing.
func (f *Frame) ColumnAt(i int) Series { return f.columns[i] }

// All returns an iterator over the columns in serialized order.
func (f *Frame) All() iter.Seq[Series] {
	return func(yield func(Series) bool) {
		for _, col := range f.columns {
			if !yield(col) {
				return
			}
		}
	}
}

// Array is an n-dimensional rectangular array stored as a flat slice in
// row-major order.
//
// The backing slice accepts the same element types as Series. The shape
// must multiply out to the flat length; a dimension of zero yields an
// empty array.
type Array struct {
	shape []int
	dtype format.DType
	data  any
}

// shapeElems returns the element count a shape describes, rejecting
// negative dimensions and products that overflow int.
func shapeElems(shape []int) (int, error) {
	total := 1
	for _, dim := range shape {
		if dim < 0 {
			return 0, fmt.Errorf("negative array dimension %d", dim)
		}
		if dim > 0 && total > math.MaxInt/dim {
			return 0, fmt.Errorf("array shape %v overflows the element count", shape)
		}
		total *= dim
	}

	return total, nil
}

// NewArray creates an array over the given flat backing slice.
//
// Parameters:
//   - shape: Dimension sizes, outermost first. Must be non-empty with no
//     negative dimension.
//   - data: Flat backing slice in row-major order. Its length must equal
//     the product of the dimensions.
//
// Returns:
//   - *Array: The constructed array
//   - error: errs.ErrUnsupportedType for an unsupported slice type, or
//     errs.ErrLengthMismatch when shape and data length disagree
func NewArray(shape []int, data any) (*Array, error) {
	if len(shape) == 0 {
		return nil, fmt.Errorf("array shape is empty")
	}

	total, err := shapeElems(shape)
	if err != nil {
		return nil, err
	}

	dtype, n, err := dtypeOf(data)
	if err != nil {
		return nil, fmt.Errorf("array: %w", err)
	}
	if n != total {
		return nil, fmt.Errorf("%w: shape %v wants %d elements, data has %d",
			errs.ErrLengthMismatch, shape, total, n)
	}

	return &Array{shape: slices.Clone(shape), dtype: dtype, data: data}, nil
}

// Shape returns a copy of the dimension sizes.
func (a *Array) Shape() []int { return slices.Clone(a.shape) }

// DType returns the element dtype derived from the backing slice type.
func (a *Array) DType() format.DType { return a.dtype }

// Len returns the total element count across all dimensions.
func (a *Array) Len() int {
	_, n, err := dtypeOf(a.data)
	if err != nil {
		return 0
	}

	return n
}

// Data returns the flat backing slice in row-major order. The caller must
// not modify it while the array is in use.
func (a *Array) Data() any { return a.data }

// At returns the element at the given multi-dimensional index.
//
// The number of indices must match the number of dimensions, and each
// index must be within its dimension.
func (a *Array) At(indices ...int) (any, error) {
	if len(indices) != len(a.shape) {
		return nil, fmt.Errorf("array index has %d dimensions, shape has %d", len(indices), len(a.shape))
	}

	offset := 0
	for i, idx := range indices {
		if idx < 0 || idx >= a.shape[i] {
			return nil, fmt.Errorf("array index %d out of range for dimension %d of size %d", idx, i, a.shape[i])
		}
		offset = offset*a.shape[i] + idx
	}

	return reflect.ValueOf(a.data).Index(offset).Interface(), nil
}
