package engine

import (
	"fmt"

	"github.com/harshithgowdakt/granulestream/internal/column"
	"github.com/harshithgowdakt/granulestream/internal/stream"
)

// limitProducer limits the number of output rows.
type limitProducer struct {
	unary
	limit   int64
	emitted int64
}

// NewLimitStream passes through at most limit rows of input.
func NewLimitStream(input stream.Stream, limit int64, opts ...stream.Option) *stream.Profiled {
	return stream.NewProfiled(&limitProducer{unary: unary{input: input}, limit: limit}, opts...)
}

func (l *limitProducer) Name() string { return fmt.Sprintf("Limit(%d)", l.limit) }

func (l *limitProducer) ReadImpl() (*column.Block, error) {
	if l.emitted >= l.limit {
		return nil, nil
	}

	b, err := l.readInput()
	if err != nil || b == nil {
		return nil, err
	}

	remaining := l.limit - l.emitted
	if int64(b.NumRows()) > remaining {
		b = b.SliceRows(0, int(remaining))
	}
	l.emitted += int64(b.NumRows())
	return b, nil
}
