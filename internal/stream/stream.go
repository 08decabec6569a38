// Package stream implements the profiling pull protocol shared by execution
// operators. A Stream hands out blocks on demand; a Profiled stream also
// times each production step and counts what it produced, and can aggregate
// the counters of its profiling children on request.
package stream

import (
	"errors"
	"io"

	"github.com/jonboulle/clockwork"

	"github.com/harshithgowdakt/granulestream/internal/column"
)

// Stream is a node of the execution tree.
type Stream interface {
	Name() string
	// Read returns the next block, or nil when exhausted.
	Read() (*column.Block, error)
	// Children returns the streams this node owns and pulls from.
	Children() []Stream
	// Profile returns the node's profiling view, or nil when the node does
	// not record one. Nodes without a view contribute nothing to their
	// parent's aggregation.
	Profile() *ProfileInfo
	// Close releases the node and everything it owns.
	Close() error
}

// Producer is the operator-specific production step. A Producer that holds
// resources may also implement io.Closer.
type Producer interface {
	Name() string
	// ReadImpl returns the next block, nil at end of stream, or an error.
	ReadImpl() (*column.Block, error)
	Children() []Stream
}

// Option configures a Profiled stream.
type Option func(*options)

type options struct {
	clock clockwork.Clock
}

// WithClock sets the clock the stream's stopwatches read.
func WithClock(clock clockwork.Clock) Option {
	return func(o *options) { o.clock = clock }
}

// Profiled wraps a Producer and records a ProfileInfo for it.
type Profiled struct {
	producer Producer
	info     *ProfileInfo
	closed   bool
}

// NewProfiled wraps p.
func NewProfiled(p Producer, opts ...Option) *Profiled {
	o := options{clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Profiled{producer: p, info: newProfileInfo(o.clock)}
}

func (s *Profiled) Name() string          { return s.producer.Name() }
func (s *Profiled) Children() []Stream    { return s.producer.Children() }
func (s *Profiled) Profile() *ProfileInfo { return s.info }

// Producer returns the wrapped production step.
func (s *Profiled) Producer() Producer { return s.producer }

// Read runs one production step under the work stopwatch. The first call
// also starts the total stopwatch and links the children's profiles.
// Errors from the step are returned unchanged and leave the counters as
// they were.
func (s *Profiled) Read() (*column.Block, error) {
	if !s.info.Started() {
		s.info.start(s.producer.Children())
	}

	b, err := s.readImpl()
	if err != nil {
		return nil, err
	}
	if b != nil {
		s.info.update(b)
	}
	return b, nil
}

func (s *Profiled) readImpl() (*column.Block, error) {
	defer s.info.beginWork()()
	return s.producer.ReadImpl()
}

// Info returns a snapshot of the node's own counters.
func (s *Profiled) Info() Info { return s.info.Snapshot() }

// Aggregate returns the node's counters combined with its children's.
func (s *Profiled) Aggregate() Aggregate { return s.info.Aggregate() }

func (s *Profiled) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return closeProducer(s.producer)
}

// Opaque adapts a Producer without recording a profile.
type Opaque struct {
	producer Producer
	closed   bool
}

// NewOpaque wraps p.
func NewOpaque(p Producer) *Opaque { return &Opaque{producer: p} }

func (s *Opaque) Name() string                 { return s.producer.Name() }
func (s *Opaque) Read() (*column.Block, error) { return s.producer.ReadImpl() }
func (s *Opaque) Children() []Stream           { return s.producer.Children() }
func (s *Opaque) Profile() *ProfileInfo        { return nil }

func (s *Opaque) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return closeProducer(s.producer)
}

// closeProducer releases the producer before its children, so a producer
// still pulling from a child on another goroutine stops first.
func closeProducer(p Producer) error {
	var errs []error
	if c, ok := p.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	for _, child := range p.Children() {
		errs = append(errs, child.Close())
	}
	return errors.Join(errs...)
}

// Func builds a Producer from a read function.
func Func(name string, read func() (*column.Block, error), children ...Stream) Producer {
	return &funcProducer{name: name, read: read, children: children}
}

type funcProducer struct {
	name     string
	read     func() (*column.Block, error)
	children []Stream
}

func (f *funcProducer) Name() string                     { return f.name }
func (f *funcProducer) ReadImpl() (*column.Block, error) { return f.read() }
func (f *funcProducer) Children() []Stream               { return f.children }

// Walk visits root and its descendants depth-first, parents before children.
// It stops at the first error fn returns.
func Walk(root Stream, fn func(s Stream, depth int) error) error {
	return walk(root, 0, fn)
}

func walk(s Stream, depth int, fn func(Stream, int) error) error {
	if err := fn(s, depth); err != nil {
		return err
	}
	for _, child := range s.Children() {
		if err := walk(child, depth+1, fn); err != nil {
			return err
		}
	}
	return nil
}

// Drain reads s until it is exhausted and returns the number of rows seen.
func Drain(s Stream) (int, error) {
	rows := 0
	for {
		b, err := s.Read()
		if err != nil {
			return rows, err
		}
		if b == nil {
			return rows, nil
		}
		rows += b.NumRows()
	}
}
