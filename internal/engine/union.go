package engine

import (
	"context"

	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"

	"github.com/harshithgowdakt/granulestream/internal/column"
	"github.com/harshithgowdakt/granulestream/internal/stream"
)

// unionProducer drains every input on its own goroutine and hands blocks to
// the single caller in arrival order. Each input is read by exactly one
// goroutine, so the one-caller rule of Read holds for the inputs too.
type unionProducer struct {
	ctx    context.Context
	cancel context.CancelFunc
	inputs []stream.Stream

	out     chan *column.Block
	err     error // written before out is closed
	started bool
}

// NewUnionStream merges inputs concurrently. Block order across inputs is not
// defined. The first input error is returned unchanged; the other inputs
// are then abandoned. A panic in an input is returned as an error.
func NewUnionStream(ctx context.Context, inputs []stream.Stream, opts ...stream.Option) *stream.Profiled {
	ctx, cancel := context.WithCancel(ctx)
	return stream.NewProfiled(&unionProducer{
		ctx:    ctx,
		cancel: cancel,
		inputs: inputs,
		out:    make(chan *column.Block, len(inputs)),
	}, opts...)
}

func (u *unionProducer) Name() string              { return "Union" }
func (u *unionProducer) Children() []stream.Stream { return u.inputs }

func (u *unionProducer) start() {
	u.started = true
	p := pool.New().WithContext(u.ctx).WithCancelOnError().WithFirstError()
	for _, in := range u.inputs {
		p.Go(func(ctx context.Context) error {
			var err error
			if recovered := panics.Try(func() { err = u.pump(ctx, in) }); recovered != nil {
				return recovered.AsError()
			}
			return err
		})
	}
	go func() {
		u.err = p.Wait()
		close(u.out)
	}()
}

// pump forwards the blocks of one input until it is exhausted, fails or ctx
// is done.
func (u *unionProducer) pump(ctx context.Context, in stream.Stream) error {
	for ctx.Err() == nil {
		b, err := in.Read()
		if err != nil {
			return err
		}
		if b == nil {
			return nil
		}
		select {
		case u.out <- b:
		case <-ctx.Done():
		}
	}
	return ctx.Err()
}

func (u *unionProducer) ReadImpl() (*column.Block, error) {
	if !u.started {
		u.start()
	}
	b, ok := <-u.out
	if !ok {
		return nil, u.err
	}
	return b, nil
}

// Close stops the input goroutines and waits for them before the inputs
// themselves are closed.
func (u *unionProducer) Close() error {
	u.cancel()
	if u.started {
		for range u.out {
		}
	}
	return nil
}
