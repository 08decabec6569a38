package engine

import (
	"github.com/harshithgowdakt/granulestream/internal/column"
	"github.com/harshithgowdakt/granulestream/internal/stream"
)

// sourceProducer emits in-memory blocks in order.
type sourceProducer struct {
	blocks []*column.Block
	next   int
}

// NewSourceStream creates a leaf stream over blocks. Zero-row blocks are
// emitted like any other block.
func NewSourceStream(blocks []*column.Block, opts ...stream.Option) *stream.Profiled {
	return stream.NewProfiled(&sourceProducer{blocks: blocks}, opts...)
}

func (s *sourceProducer) Name() string              { return "Source" }
func (s *sourceProducer) Children() []stream.Stream { return nil }

func (s *sourceProducer) ReadImpl() (*column.Block, error) {
	if s.next >= len(s.blocks) {
		return nil, nil
	}
	b := s.blocks[s.next]
	s.next++
	return b, nil
}
