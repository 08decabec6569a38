package stream_test

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harshithgowdakt/granulestream/internal/column"
	"github.com/harshithgowdakt/granulestream/internal/stream"
)

func rowsBlock(names []string, rows int) *column.Block {
	cols := make([]column.Column, len(names))
	for i := range names {
		data := make([]uint64, rows)
		for r := range data {
			data[r] = uint64(r)
		}
		cols[i] = column.NewUInt64(data...)
	}
	return column.NewBlock(names, cols)
}

// sliceProducer emits the given blocks, advancing clock by step per call.
func sliceProducer(name string, clock *clockwork.FakeClock, step time.Duration, blocks ...*column.Block) stream.Producer {
	i := 0
	return stream.Func(name, func() (*column.Block, error) {
		if clock != nil {
			clock.Advance(step)
		}
		if i >= len(blocks) {
			return nil, nil
		}
		b := blocks[i]
		i++
		return b, nil
	})
}

func TestLazyInit(t *testing.T) {
	child := stream.NewProfiled(sliceProducer("child", nil, 0, rowsBlock([]string{"a"}, 1)))
	children := []stream.Stream{child}
	calls := 0
	parent := stream.NewProfiled(&growingProducer{children: &children, calls: &calls})

	info := parent.Info()
	assert.False(t, info.Started)
	assert.Zero(t, info.Rows)
	assert.Zero(t, info.NestedCount)
	assert.False(t, parent.Profile().Started())

	_, err := parent.Read()
	require.NoError(t, err)
	assert.True(t, parent.Info().Started)
	assert.Equal(t, 1, parent.Info().NestedCount)

	// Children added after the first read are never linked.
	children = append(children, stream.NewProfiled(sliceProducer("late", nil, 0)))
	_, err = parent.Read()
	require.NoError(t, err)
	assert.Equal(t, 1, parent.Info().NestedCount)
}

type growingProducer struct {
	children *[]stream.Stream
	calls    *int
}

func (g *growingProducer) Name() string               { return "growing" }
func (g *growingProducer) Children() []stream.Stream { return *g.children }
func (g *growingProducer) ReadImpl() (*column.Block, error) {
	*g.calls++
	return (*g.children)[0].Read()
}

func TestLeafCountsBlocksIncludingEmpty(t *testing.T) {
	names := []string{"id"}
	s := stream.NewProfiled(sliceProducer("leaf", nil, 0,
		rowsBlock(names, 10), rowsBlock(names, 0), rowsBlock(names, 5)))

	rows, err := stream.Drain(s)
	require.NoError(t, err)
	assert.Equal(t, 15, rows)

	info := s.Info()
	assert.Equal(t, uint64(3), info.Blocks)
	assert.Equal(t, uint64(15), info.Rows)
	assert.Equal(t, uint64(15*8), info.Bytes)

	// Reading past the end changes nothing.
	b, err := s.Read()
	require.NoError(t, err)
	assert.Nil(t, b)
	assert.Equal(t, info.Blocks, s.Info().Blocks)
	assert.Equal(t, info.Rows, s.Info().Rows)
}

func TestColumnNamesCapturedOnce(t *testing.T) {
	s := stream.NewProfiled(sliceProducer("leaf", nil, 0,
		rowsBlock([]string{"a", "b"}, 0),
		rowsBlock([]string{"c"}, 4),
		rowsBlock([]string{"d", "e", "f"}, 2),
	))
	_, err := s.Read()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, s.Info().ColumnNames)

	_, err = stream.Drain(s)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, s.Info().ColumnNames)

	// Snapshots are copies.
	info := s.Info()
	info.ColumnNames[0] = "mutated"
	assert.Equal(t, []string{"a", "b"}, s.Info().ColumnNames)
}

func TestFailurePropagatesAndStopsTimer(t *testing.T) {
	clock := clockwork.NewFakeClock()
	boom := errors.New("boom")
	calls := 0
	s := stream.NewProfiled(stream.Func("failing", func() (*column.Block, error) {
		calls++
		clock.Advance(7 * time.Millisecond)
		if calls == 1 {
			return rowsBlock([]string{"x"}, 2), nil
		}
		return rowsBlock([]string{"x"}, 99), boom
	}), stream.WithClock(clock))

	_, err := s.Read()
	require.NoError(t, err)

	b, err := s.Read()
	require.Same(t, boom, err)
	assert.Nil(t, b)

	info := s.Info()
	assert.Equal(t, uint64(1), info.Blocks)
	assert.Equal(t, uint64(2), info.Rows)
	// Both steps were timed and the stopwatch is closed.
	assert.Equal(t, 14*time.Millisecond, info.WorkElapsed)
	clock.Advance(time.Second)
	assert.Equal(t, 14*time.Millisecond, s.Info().WorkElapsed)
}

func TestPanicStillStopsTimer(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := stream.NewProfiled(stream.Func("panicking", func() (*column.Block, error) {
		clock.Advance(time.Millisecond)
		panic("operator bug")
	}), stream.WithClock(clock))

	require.Panics(t, func() { _, _ = s.Read() })
	clock.Advance(time.Second)
	assert.Equal(t, time.Millisecond, s.Info().WorkElapsed)
}

func TestTotalElapsedIncludesIdleTime(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := stream.NewProfiled(sliceProducer("leaf", clock, time.Millisecond,
		rowsBlock([]string{"a"}, 1)), stream.WithClock(clock))

	_, err := s.Read()
	require.NoError(t, err)
	clock.Advance(time.Second)

	info := s.Info()
	assert.Equal(t, time.Millisecond, info.WorkElapsed)
	assert.Equal(t, time.Second+time.Millisecond, info.TotalElapsed)
}

func newScenarioTree(t *testing.T, childWork ...time.Duration) (*stream.Profiled, []*stream.Profiled, *clockwork.FakeClock) {
	t.Helper()
	var children []stream.Stream
	var profiled []*stream.Profiled
	for i, d := range childWork {
		clock := clockwork.NewFakeClock()
		c := stream.NewProfiled(sliceProducer("child", clock, d,
			rowsBlock([]string{"v"}, (i+1)*10)), stream.WithClock(clock))
		children = append(children, c)
		profiled = append(profiled, c)
	}

	parentClock := clockwork.NewFakeClock()
	parent := stream.NewProfiled(stream.Func("parent", func() (*column.Block, error) {
		var out *column.Block
		for _, c := range children {
			b, err := c.Read()
			if err != nil {
				return nil, err
			}
			if out == nil {
				out = b
			}
		}
		parentClock.Advance(350 * time.Millisecond)
		return out, nil
	}, children...), stream.WithClock(parentClock))
	return parent, profiled, parentClock
}

func TestAggregateMaxElapsedSumVolume(t *testing.T) {
	parent, children, _ := newScenarioTree(t, 100*time.Millisecond, 300*time.Millisecond)

	_, err := parent.Read()
	require.NoError(t, err)

	agg := parent.Aggregate()
	assert.Equal(t, 350*time.Millisecond, agg.WorkElapsed)
	assert.Equal(t, 300*time.Millisecond, agg.NestedElapsed)
	assert.Equal(t, 50*time.Millisecond, agg.SelfElapsed)
	assert.Equal(t, uint64(10+20), agg.NestedRows)
	assert.Equal(t, uint64(2), agg.NestedBlocks)
	assert.Equal(t, uint64((10+20)*8), agg.NestedBytes)
	assert.True(t, agg.HasNested())

	// Aggregation reads the children without changing them.
	assert.Equal(t, uint64(10), children[0].Info().Rows)
	assert.Equal(t, agg, parent.Aggregate())
}

func TestLeafSelfElapsedEqualsWork(t *testing.T) {
	clock := clockwork.NewFakeClock()
	leaf := stream.NewProfiled(sliceProducer("leaf", clock, 40*time.Millisecond,
		rowsBlock([]string{"a"}, 3)), stream.WithClock(clock))
	_, err := leaf.Read()
	require.NoError(t, err)

	agg := leaf.Aggregate()
	assert.False(t, agg.HasNested())
	assert.Zero(t, agg.NestedElapsed)
	assert.Equal(t, agg.WorkElapsed, agg.SelfElapsed)
	assert.Equal(t, 40*time.Millisecond, agg.SelfElapsed)
}

func TestSelfElapsedClampedAtZero(t *testing.T) {
	parent, _, _ := newScenarioTree(t, 500*time.Millisecond)
	_, err := parent.Read()
	require.NoError(t, err)

	agg := parent.Aggregate()
	assert.Equal(t, time.Duration(0), agg.SelfElapsed)
	assert.Equal(t, -150*time.Millisecond, agg.RawSelfElapsed)
}

func TestOpaqueChildExcluded(t *testing.T) {
	clock := clockwork.NewFakeClock()
	profiled := stream.NewProfiled(sliceProducer("profiled", clock, 10*time.Millisecond,
		rowsBlock([]string{"a"}, 4)), stream.WithClock(clock))
	opaque := stream.NewOpaque(sliceProducer("opaque", clock, time.Hour,
		rowsBlock([]string{"a"}, 1000)))

	parent := stream.NewProfiled(stream.Func("parent", func() (*column.Block, error) {
		if _, err := opaque.Read(); err != nil {
			return nil, err
		}
		return profiled.Read()
	}, opaque, profiled), stream.WithClock(clock))

	_, err := parent.Read()
	require.NoError(t, err)

	agg := parent.Aggregate()
	assert.Equal(t, 1, agg.NestedCount)
	assert.Equal(t, uint64(4), agg.NestedRows)
	assert.Equal(t, uint64(1), agg.NestedBlocks)
	assert.Equal(t, 10*time.Millisecond, agg.NestedElapsed)
	assert.Nil(t, opaque.Profile())
}

func TestUndefinedMetrics(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := stream.NewProfiled(sliceProducer("empty", clock, 0), stream.WithClock(clock))
	_, err := s.Read()
	require.NoError(t, err)

	agg := s.Aggregate()
	require.Zero(t, agg.Blocks)
	_, ok := agg.AverageBlockSize()
	assert.False(t, ok)
	_, ok = agg.RowsPerSecond()
	assert.False(t, ok)

	var buf bytes.Buffer
	require.NoError(t, stream.WriteReport(&buf, agg, 0))
	assert.Contains(t, buf.String(), "Average block size (out): n/a")
}

func TestRates(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := stream.NewProfiled(sliceProducer("leaf", clock, 500*time.Millisecond,
		rowsBlock([]string{"a"}, 100), rowsBlock([]string{"a"}, 50)), stream.WithClock(clock))
	_, err := stream.Drain(s)
	require.NoError(t, err)

	// Three steps: two blocks and the end-of-stream call.
	agg := s.Aggregate()
	require.Equal(t, 1500*time.Millisecond, agg.WorkElapsed)
	rps, ok := agg.RowsPerSecond()
	require.True(t, ok)
	assert.InDelta(t, 100.0, rps, 1e-9)
	bps, ok := agg.BlocksPerSecond()
	require.True(t, ok)
	assert.InDelta(t, 2.0/1.5, bps, 1e-9)
	avg, ok := agg.AverageBlockSize()
	require.True(t, ok)
	assert.InDelta(t, 75.0, avg, 1e-9)
}

func TestConcurrentAggregation(t *testing.T) {
	child := stream.NewProfiled(stream.Func("child", func() func() (*column.Block, error) {
		n := 0
		return func() (*column.Block, error) {
			if n == 1000 {
				return nil, nil
			}
			n++
			return rowsBlock([]string{"a"}, 1), nil
		}
	}()))
	parent := stream.NewProfiled(stream.Func("parent", func() (*column.Block, error) {
		return nil, nil
	}, child))
	_, err := parent.Read()
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = stream.Drain(child)
	}()
	var last uint64
	for i := 0; i < 100; i++ {
		agg := parent.Aggregate()
		assert.GreaterOrEqual(t, agg.NestedRows, last)
		last = agg.NestedRows
	}
	wg.Wait()
	assert.Equal(t, uint64(1000), parent.Aggregate().NestedRows)
}

type closeRecorder struct {
	stream.Producer
	closed *[]string
	err    error
}

func (c *closeRecorder) Close() error {
	*c.closed = append(*c.closed, c.Name())
	return c.err
}

func TestCloseCascades(t *testing.T) {
	var closed []string
	leafErr := errors.New("leaf close")
	leaf := stream.NewProfiled(&closeRecorder{Producer: sliceProducer("leaf", nil, 0), closed: &closed, err: leafErr})
	root := stream.NewProfiled(&closeRecorder{
		Producer: stream.Func("root", func() (*column.Block, error) { return leaf.Read() }, leaf),
		closed:   &closed,
	})

	err := root.Close()
	require.ErrorIs(t, err, leafErr)
	assert.Equal(t, []string{"root", "leaf"}, closed)
	require.NoError(t, root.Close())
	assert.Len(t, closed, 2)
}

func TestWriteTree(t *testing.T) {
	parent, _, _ := newScenarioTree(t, 100*time.Millisecond, 300*time.Millisecond)
	_, err := parent.Read()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, stream.WriteTree(&buf, parent))
	out := buf.String()
	assert.Contains(t, out, "parent\n")
	assert.Contains(t, out, "  child\n")
	assert.Contains(t, out, "Elapsed (self): 0.05 sec.")
	assert.Contains(t, out, "Rows (in):      30")
	assert.Contains(t, out, "Columns: v")
}

func TestWriteTreeMarksOpaqueAndUnstarted(t *testing.T) {
	opaque := stream.NewOpaque(sliceProducer("opaque", nil, 0))
	root := stream.NewProfiled(sliceProducer("root", nil, 0))
	parent := stream.NewProfiled(stream.Func("top", func() (*column.Block, error) { return nil, nil }, opaque, root))

	var buf bytes.Buffer
	require.NoError(t, stream.WriteTree(&buf, parent))
	assert.Contains(t, buf.String(), "(not started)")
	assert.Contains(t, buf.String(), "(not profiled)")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("sink closed") }

func TestReportReturnsSinkError(t *testing.T) {
	s := stream.NewProfiled(sliceProducer("leaf", nil, 0))
	require.EqualError(t, stream.WriteReport(failingWriter{}, s.Aggregate(), 0), "sink closed")
}
