package column

import (
	"fmt"
	"slices"

	"github.com/harshithgowdakt/granulestream/internal/types"
)

// Block is a chunk of columnar data with named columns, all the same length.
type Block struct {
	ColumnNames []string
	Columns     []Column
	nameIndex   map[string]int
}

// NewBlock creates a block from parallel slices of names and columns.
func NewBlock(names []string, cols []Column) *Block {
	b := &Block{ColumnNames: names, Columns: cols}
	b.rebuildIndex()
	return b
}

// NumRows returns the number of rows in the block.
func (b *Block) NumRows() int {
	if len(b.Columns) == 0 {
		return 0
	}
	return b.Columns[0].Len()
}

// NumColumns returns the number of columns.
func (b *Block) NumColumns() int {
	return len(b.Columns)
}

// ByteSize returns the resident size of all columns.
func (b *Block) ByteSize() int {
	n := 0
	for _, c := range b.Columns {
		n += c.ByteSize()
	}
	return n
}

// Names returns a copy of the column names.
func (b *Block) Names() []string {
	return slices.Clone(b.ColumnNames)
}

// GetColumn returns the column with the given name.
func (b *Block) GetColumn(name string) (Column, bool) {
	i, ok := b.GetColumnIndex(name)
	if !ok {
		return nil, false
	}
	return b.Columns[i], true
}

// GetColumnIndex returns the index of a column by name.
func (b *Block) GetColumnIndex(name string) (int, bool) {
	if b.nameIndex == nil {
		b.rebuildIndex()
	}
	i, ok := b.nameIndex[name]
	return i, ok
}

// ColumnTypes returns the data types of all columns.
func (b *Block) ColumnTypes() []types.DataType {
	dts := make([]types.DataType, len(b.Columns))
	for i, c := range b.Columns {
		dts[i] = c.DataType()
	}
	return dts
}

func (b *Block) rebuildIndex() {
	b.nameIndex = make(map[string]int, len(b.ColumnNames))
	for i, n := range b.ColumnNames {
		b.nameIndex[n] = i
	}
}

// AppendBlock appends all rows from another block with the same schema.
func (b *Block) AppendBlock(other *Block) error {
	if len(b.Columns) != len(other.Columns) {
		return fmt.Errorf("column count mismatch: %d vs %d", len(b.Columns), len(other.Columns))
	}
	for i := range b.Columns {
		if b.Columns[i].DataType() != other.Columns[i].DataType() {
			return fmt.Errorf("column %s: type mismatch: %s vs %s",
				b.ColumnNames[i], b.Columns[i].DataType().Name(), other.Columns[i].DataType().Name())
		}
	}
	for i := range b.Columns {
		b.Columns[i].AppendFrom(other.Columns[i])
	}
	return nil
}

// CloneEmpty returns a block with the same schema and no rows.
func (b *Block) CloneEmpty() *Block {
	cols := make([]Column, len(b.Columns))
	for i, c := range b.Columns {
		cols[i] = NewColumn(c.DataType())
	}
	return NewBlock(b.Names(), cols)
}

// SliceRows returns a new block with rows [from, to).
func (b *Block) SliceRows(from, to int) *Block {
	cols := make([]Column, len(b.Columns))
	for i, c := range b.Columns {
		cols[i] = c.Slice(from, to)
	}
	return NewBlock(b.Names(), cols)
}

// SortByColumns sorts the block by the given column names in ascending order.
func (b *Block) SortByColumns(sortCols []string) error {
	keys := make([]int, len(sortCols))
	for i, name := range sortCols {
		idx, ok := b.GetColumnIndex(name)
		if !ok {
			return fmt.Errorf("sort column not found: %s", name)
		}
		keys[i] = idx
	}
	if b.NumRows() <= 1 {
		return nil
	}

	indices := make([]int, b.NumRows())
	for i := range indices {
		indices[i] = i
	}
	slices.SortStableFunc(indices, func(x, y int) int {
		for _, k := range keys {
			col := b.Columns[k]
			if c := types.CompareValues(col.DataType(), col.Value(x), col.Value(y)); c != 0 {
				return c
			}
		}
		return 0
	})

	for i, c := range b.Columns {
		b.Columns[i] = c.Gather(indices)
	}
	return nil
}

// SelectColumns returns a new block with only the specified columns.
func (b *Block) SelectColumns(names []string) (*Block, error) {
	cols := make([]Column, len(names))
	for i, name := range names {
		c, ok := b.GetColumn(name)
		if !ok {
			return nil, fmt.Errorf("column not found: %s", name)
		}
		cols[i] = c
	}
	return NewBlock(slices.Clone(names), cols), nil
}

// FilterRowsByMask returns a new block keeping only rows where mask[i] is true.
func (b *Block) FilterRowsByMask(mask []bool) *Block {
	cols := make([]Column, len(b.Columns))
	for i, c := range b.Columns {
		cols[i] = c.Filter(mask)
	}
	return NewBlock(b.Names(), cols)
}
