// Package engine holds the concrete production steps of the execution tree.
// Every constructor returns a *stream.Profiled, so each operator records its
// own timing and volume and links the profiles of its inputs.
package engine

import (
	"github.com/harshithgowdakt/granulestream/internal/column"
	"github.com/harshithgowdakt/granulestream/internal/stream"
)

// unary is the common shape of single-input producers.
type unary struct {
	input stream.Stream
}

func (u *unary) Children() []stream.Stream { return []stream.Stream{u.input} }

// readInput pulls one block, or nil at end of stream, from the input.
func (u *unary) readInput() (*column.Block, error) {
	return u.input.Read()
}
