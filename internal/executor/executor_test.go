package executor_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harshithgowdakt/granulestream/internal/column"
	"github.com/harshithgowdakt/granulestream/internal/engine"
	"github.com/harshithgowdakt/granulestream/internal/executor"
	"github.com/harshithgowdakt/granulestream/internal/metrics"
	"github.com/harshithgowdakt/granulestream/internal/stream"
)

func source(rows ...int) *stream.Profiled {
	var blocks []*column.Block
	for _, n := range rows {
		blocks = append(blocks, column.NewBlock([]string{"n"}, []column.Column{column.NewInt64(make([]int64, n)...)}))
	}
	return engine.NewSourceStream(blocks)
}

func TestRun(t *testing.T) {
	var logs bytes.Buffer
	reg := prometheus.NewRegistry()
	m := metrics.NewRunMetrics(reg)
	ex := executor.New(zerolog.New(&logs), executor.WithMetrics(m))

	var seen int
	res, err := ex.Run(context.Background(), "q-1", source(10, 0, 5), func(b *column.Block) error {
		seen += b.NumRows()
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 15, res.Rows)
	assert.Equal(t, 3, res.Blocks)
	assert.Equal(t, 15, seen)
	assert.Equal(t, []string{"n"}, res.ColumnNames)
	assert.Equal(t, "q-1", res.QueryID)

	assert.Contains(t, logs.String(), `"query_id":"q-1"`)
	assert.Contains(t, logs.String(), `"rows":15`)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("ok")))
	assert.Equal(t, 15.0, testutil.ToFloat64(m.Rows))
}

func TestRunStopsOnSinkError(t *testing.T) {
	ex := executor.New(zerolog.Nop())
	stop := errors.New("client went away")
	root := source(1, 1, 1)
	res, err := ex.Run(context.Background(), executor.NewQueryID(), root, func(*column.Block) error { return stop })
	require.Same(t, stop, err)
	assert.Equal(t, 1, res.Blocks)
	assert.Equal(t, uint64(1), root.Info().Blocks)
}

func TestRunPropagatesStreamError(t *testing.T) {
	boom := errors.New("corrupt frame")
	root := stream.NewProfiled(stream.Func("bad", func() (*column.Block, error) { return nil, boom }))

	reg := prometheus.NewRegistry()
	m := metrics.NewRunMetrics(reg)
	_, err := executor.New(zerolog.Nop(), executor.WithMetrics(m)).Run(context.Background(), "q", root, executor.Discard)
	require.Same(t, boom, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("error")))
}

func TestRunHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	root := source(1, 1, 1)
	res, err := executor.New(zerolog.Nop()).Run(ctx, "q", root, func(*column.Block) error {
		cancel()
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, res.Blocks)
	assert.Equal(t, uint64(1), root.Info().Blocks)
}
