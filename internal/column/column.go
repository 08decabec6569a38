package column

import (
	"fmt"
	"io"

	"github.com/harshithgowdakt/granulestream/internal/types"
)

// Column is an in-memory columnar array of a single type.
type Column interface {
	DataType() types.DataType
	Len() int
	Value(i int) types.Value
	Append(v types.Value)
	Slice(from, to int) Column
	Clone() Column
	// ByteSize is the resident size of the column payload.
	ByteSize() int
	Filter(mask []bool) Column
	Gather(indices []int) Column
	// AppendFrom bulk-appends all rows of src, which must have the same type.
	AppendFrom(src Column)

	encodeTo(w io.Writer) error
}

type fixedValue interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~int8 | ~int16 | ~int32 | ~int64 |
		~float32 | ~float64
}

// NewColumn creates an empty column of the given type.
func NewColumn(dt types.DataType) Column {
	return NewColumnWithCapacity(dt, 0)
}

// NewColumnWithCapacity creates a column pre-allocated for n rows.
func NewColumnWithCapacity(dt types.DataType, n int) Column {
	switch dt {
	case types.TypeUInt8:
		return newVector[uint8](dt, n)
	case types.TypeUInt16:
		return newVector[uint16](dt, n)
	case types.TypeUInt32, types.TypeDateTime:
		return newVector[uint32](dt, n)
	case types.TypeUInt64:
		return newVector[uint64](dt, n)
	case types.TypeInt8:
		return newVector[int8](dt, n)
	case types.TypeInt16:
		return newVector[int16](dt, n)
	case types.TypeInt32:
		return newVector[int32](dt, n)
	case types.TypeInt64:
		return newVector[int64](dt, n)
	case types.TypeFloat32:
		return newVector[float32](dt, n)
	case types.TypeFloat64:
		return newVector[float64](dt, n)
	case types.TypeString:
		return &StringColumn{Data: make([]string, 0, n)}
	default:
		panic(fmt.Sprintf("unsupported data type %d", dt))
	}
}

// --- Vector ---

// Vector is a column of fixed-width values.
type Vector[T fixedValue] struct {
	dt   types.DataType
	Data []T
}

func newVector[T fixedValue](dt types.DataType, n int) *Vector[T] {
	return &Vector[T]{dt: dt, Data: make([]T, 0, n)}
}

// NewUInt64 builds a UInt64 column holding data.
func NewUInt64(data ...uint64) *Vector[uint64] {
	return &Vector[uint64]{dt: types.TypeUInt64, Data: data}
}

// NewInt64 builds an Int64 column holding data.
func NewInt64(data ...int64) *Vector[int64] {
	return &Vector[int64]{dt: types.TypeInt64, Data: data}
}

// NewFloat64 builds a Float64 column holding data.
func NewFloat64(data ...float64) *Vector[float64] {
	return &Vector[float64]{dt: types.TypeFloat64, Data: data}
}

// NewDateTime builds a DateTime column from unix seconds.
func NewDateTime(data ...uint32) *Vector[uint32] {
	return &Vector[uint32]{dt: types.TypeDateTime, Data: data}
}

func (c *Vector[T]) DataType() types.DataType { return c.dt }
func (c *Vector[T]) Len() int                 { return len(c.Data) }
func (c *Vector[T]) Value(i int) types.Value  { return c.Data[i] }
func (c *Vector[T]) Append(v types.Value)     { c.Data = append(c.Data, v.(T)) }
func (c *Vector[T]) ByteSize() int            { return len(c.Data) * c.dt.FixedSize() }

func (c *Vector[T]) Slice(from, to int) Column {
	d := make([]T, to-from)
	copy(d, c.Data[from:to])
	return &Vector[T]{dt: c.dt, Data: d}
}

func (c *Vector[T]) Clone() Column { return c.Slice(0, len(c.Data)) }

func (c *Vector[T]) Filter(mask []bool) Column {
	return &Vector[T]{dt: c.dt, Data: filterSlice(c.Data, mask)}
}

func (c *Vector[T]) Gather(indices []int) Column {
	return &Vector[T]{dt: c.dt, Data: gatherSlice(c.Data, indices)}
}

func (c *Vector[T]) AppendFrom(src Column) {
	c.Data = append(c.Data, src.(*Vector[T]).Data...)
}

// --- StringColumn ---

// StringColumn holds variable-length strings.
type StringColumn struct{ Data []string }

// NewString builds a String column holding data.
func NewString(data ...string) *StringColumn { return &StringColumn{Data: data} }

func (c *StringColumn) DataType() types.DataType { return types.TypeString }
func (c *StringColumn) Len() int                 { return len(c.Data) }
func (c *StringColumn) Value(i int) types.Value  { return c.Data[i] }
func (c *StringColumn) Append(v types.Value)     { c.Data = append(c.Data, v.(string)) }

// ByteSize counts the characters plus one 8-byte offset per row.
func (c *StringColumn) ByteSize() int {
	n := 8 * len(c.Data)
	for _, s := range c.Data {
		n += len(s)
	}
	return n
}

func (c *StringColumn) Slice(from, to int) Column {
	d := make([]string, to-from)
	copy(d, c.Data[from:to])
	return &StringColumn{Data: d}
}

func (c *StringColumn) Clone() Column { return c.Slice(0, len(c.Data)) }

func (c *StringColumn) Filter(mask []bool) Column {
	return &StringColumn{Data: filterSlice(c.Data, mask)}
}

func (c *StringColumn) Gather(indices []int) Column {
	return &StringColumn{Data: gatherSlice(c.Data, indices)}
}

func (c *StringColumn) AppendFrom(src Column) {
	c.Data = append(c.Data, src.(*StringColumn).Data...)
}

// filterSlice returns elements of data where mask[i] is true.
func filterSlice[T any](data []T, mask []bool) []T {
	n := 0
	for _, m := range mask {
		if m {
			n++
		}
	}
	out := make([]T, 0, n)
	for i, m := range mask {
		if m {
			out = append(out, data[i])
		}
	}
	return out
}

// gatherSlice reorders data by the given index array.
func gatherSlice[T any](data []T, indices []int) []T {
	out := make([]T, len(indices))
	for i, idx := range indices {
		out[i] = data[idx]
	}
	return out
}
