package engine

import (
	"slices"
	"strings"

	"github.com/harshithgowdakt/granulestream/internal/column"
	"github.com/harshithgowdakt/granulestream/internal/stream"
)

// sortProducer materializes all input blocks and emits one sorted block.
type sortProducer struct {
	unary
	orderBy []string
	desc    bool
	done    bool
}

// NewSortStream sorts input by orderBy, ascending unless desc is set.
func NewSortStream(input stream.Stream, orderBy []string, desc bool, opts ...stream.Option) *stream.Profiled {
	return stream.NewProfiled(&sortProducer{unary: unary{input: input}, orderBy: orderBy, desc: desc}, opts...)
}

func (s *sortProducer) Name() string {
	name := "Sort(" + strings.Join(s.orderBy, ", ")
	if s.desc {
		name += " DESC"
	}
	return name + ")"
}

func (s *sortProducer) ReadImpl() (*column.Block, error) {
	if s.done {
		return nil, nil
	}
	s.done = true

	var all *column.Block
	for {
		b, err := s.readInput()
		if err != nil {
			return nil, err
		}
		if b == nil {
			break
		}
		if all == nil {
			all = b.CloneEmpty()
		}
		if err := all.AppendBlock(b); err != nil {
			return nil, err
		}
	}
	if all == nil || all.NumRows() == 0 {
		return nil, nil
	}

	if err := all.SortByColumns(s.orderBy); err != nil {
		return nil, err
	}
	if s.desc {
		indices := make([]int, all.NumRows())
		for i := range indices {
			indices[i] = i
		}
		slices.Reverse(indices)
		for c, col := range all.Columns {
			all.Columns[c] = col.Gather(indices)
		}
	}
	return all, nil
}
