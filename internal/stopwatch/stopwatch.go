// Package stopwatch provides a resumable timer over a monotonic clock.
package stopwatch

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Stopwatch accumulates time across start/stop segments. It is not safe for
// concurrent use; the owner serializes access.
type Stopwatch struct {
	clock   clockwork.Clock
	started time.Time
	running bool
	elapsed time.Duration
}

// New returns a stopped stopwatch reading the real clock.
func New() *Stopwatch {
	return NewWithClock(clockwork.NewRealClock())
}

// NewWithClock returns a stopped stopwatch reading clock.
func NewWithClock(clock clockwork.Clock) *Stopwatch {
	return &Stopwatch{clock: clock}
}

// Start begins or resumes timing. Starting a running stopwatch is a no-op.
// The returned func stops the stopwatch, so a scope can be timed with
// defer sw.Start()().
func (s *Stopwatch) Start() (stop func()) {
	if !s.running {
		s.started = s.clock.Now()
		s.running = true
	}
	return s.stopFunc
}

func (s *Stopwatch) stopFunc() { s.Stop() }

// Stop ends the current segment and returns its duration. Stopping a stopped
// stopwatch returns 0.
func (s *Stopwatch) Stop() time.Duration {
	if !s.running {
		return 0
	}
	d := s.clock.Since(s.started)
	if d < 0 {
		d = 0
	}
	s.elapsed += d
	s.running = false
	return d
}

// Running reports whether a segment is open.
func (s *Stopwatch) Running() bool { return s.running }

// Elapsed returns the accumulated time including any running segment.
func (s *Stopwatch) Elapsed() time.Duration {
	if s.running {
		if d := s.clock.Since(s.started); d > 0 {
			return s.elapsed + d
		}
	}
	return s.elapsed
}

// ElapsedMicros is Elapsed in whole microseconds.
func (s *Stopwatch) ElapsedMicros() int64 {
	return s.Elapsed().Microseconds()
}

// Reset stops the stopwatch and clears the accumulated time.
func (s *Stopwatch) Reset() {
	s.running = false
	s.elapsed = 0
}
