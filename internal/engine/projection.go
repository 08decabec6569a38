package engine

import (
	"strings"

	"github.com/harshithgowdakt/granulestream/internal/column"
	"github.com/harshithgowdakt/granulestream/internal/stream"
)

// projectionProducer keeps the named columns, in the given order.
type projectionProducer struct {
	unary
	columns []string
}

// NewProjectionStream selects columns from input.
func NewProjectionStream(input stream.Stream, columns []string, opts ...stream.Option) *stream.Profiled {
	return stream.NewProfiled(&projectionProducer{unary: unary{input: input}, columns: columns}, opts...)
}

func (p *projectionProducer) Name() string {
	return "Projection(" + strings.Join(p.columns, ", ") + ")"
}

func (p *projectionProducer) ReadImpl() (*column.Block, error) {
	b, err := p.readInput()
	if err != nil || b == nil {
		return nil, err
	}
	return b.SelectColumns(p.columns)
}
