package stopwatch_test

import (
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/harshithgowdakt/granulestream/internal/stopwatch"
)

func TestSegmentsAccumulate(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sw := stopwatch.NewWithClock(clock)
	require.Zero(t, sw.Elapsed())

	sw.Start()
	clock.Advance(10 * time.Millisecond)
	require.Equal(t, 10*time.Millisecond, sw.Stop())

	// Idle time between segments is not counted.
	clock.Advance(time.Second)

	sw.Start()
	clock.Advance(5 * time.Millisecond)
	require.True(t, sw.Running())
	require.Equal(t, 15*time.Millisecond, sw.Elapsed())
	sw.Stop()

	require.Equal(t, int64(15000), sw.ElapsedMicros())
	require.Zero(t, sw.Stop())
}

func TestStartIsIdempotentWhileRunning(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sw := stopwatch.NewWithClock(clock)
	sw.Start()
	clock.Advance(time.Millisecond)
	sw.Start()
	clock.Advance(time.Millisecond)
	sw.Stop()
	require.Equal(t, 2*time.Millisecond, sw.Elapsed())
}

func TestDeferredStopRunsOnError(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sw := stopwatch.NewWithClock(clock)
	step := func() error {
		defer sw.Start()()
		clock.Advance(3 * time.Millisecond)
		return errors.New("boom")
	}
	require.Error(t, step())
	require.False(t, sw.Running())
	require.Equal(t, 3*time.Millisecond, sw.Elapsed())
}

func TestReset(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sw := stopwatch.NewWithClock(clock)
	sw.Start()
	clock.Advance(time.Second)
	sw.Reset()
	require.False(t, sw.Running())
	require.Zero(t, sw.Elapsed())
}
