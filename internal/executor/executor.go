// Package executor drives a stream tree to completion.
package executor

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/harshithgowdakt/granulestream/internal/column"
	"github.com/harshithgowdakt/granulestream/internal/metrics"
	"github.com/harshithgowdakt/granulestream/internal/stream"
)

// Sink consumes the blocks of a run. Returning an error stops the run.
type Sink func(b *column.Block) error

// Discard is a Sink that drops every block.
func Discard(*column.Block) error { return nil }

// Result summarizes a finished run.
type Result struct {
	QueryID     string
	Rows        int
	Blocks      int
	ColumnNames []string
	Elapsed     time.Duration
}

// Executor loops on a root stream's Read.
type Executor struct {
	logger  zerolog.Logger
	metrics *metrics.RunMetrics
}

// Option configures an Executor.
type Option func(*Executor)

// WithMetrics records run outcomes in m.
func WithMetrics(m *metrics.RunMetrics) Option {
	return func(e *Executor) { e.metrics = m }
}

// New creates an Executor.
func New(logger zerolog.Logger, opts ...Option) *Executor {
	e := &Executor{logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewQueryID returns a fresh run identifier.
func NewQueryID() string { return uuid.NewString() }

// Run reads root until it is exhausted, it fails, sink fails or ctx is done.
// Cancellation is observed between reads; a Read in progress is not
// interrupted. Errors are returned unchanged. Run does not close root.
func (e *Executor) Run(ctx context.Context, queryID string, root stream.Stream, sink Sink) (*Result, error) {
	logger := e.logger.With().Str("query_id", queryID).Str("root", root.Name()).Logger()
	logger.Debug().Msg("run started")

	res := &Result{QueryID: queryID}
	start := time.Now()
	err := e.drain(ctx, root, sink, res)
	res.Elapsed = time.Since(start)

	e.observe(res, err)

	ev := logger.Info()
	if err != nil {
		ev = logger.Error().Err(err)
	}
	if p := root.Profile(); p != nil {
		agg := p.Aggregate()
		ev = ev.Dur("work", agg.WorkElapsed).Dur("self", agg.SelfElapsed).Uint64("bytes", agg.Bytes)
	}
	ev.Int("rows", res.Rows).
		Int("blocks", res.Blocks).
		Dur("elapsed", res.Elapsed).
		Msg("run finished")

	return res, err
}

func (e *Executor) drain(ctx context.Context, root stream.Stream, sink Sink, res *Result) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		b, err := root.Read()
		if err != nil {
			return err
		}
		if b == nil {
			return nil
		}
		if res.ColumnNames == nil {
			res.ColumnNames = b.Names()
		}
		res.Rows += b.NumRows()
		res.Blocks++
		if err := sink(b); err != nil {
			return err
		}
	}
}

func (e *Executor) observe(res *Result, err error) {
	if e.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	e.metrics.Runs.WithLabelValues(status).Inc()
	e.metrics.Duration.Observe(res.Elapsed.Seconds())
	e.metrics.Rows.Add(float64(res.Rows))
	e.metrics.Blocks.Add(float64(res.Blocks))
}
