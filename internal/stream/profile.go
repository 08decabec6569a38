package stream

import (
	"slices"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/harshithgowdakt/granulestream/internal/column"
	"github.com/harshithgowdakt/granulestream/internal/stopwatch"
)

// ProfileInfo holds the counters of one stream node. Only the owning node's
// Read mutates it. Every field another goroutine may observe is published
// atomically, so parents and metric scrapes can snapshot a node that is
// being driven elsewhere.
type ProfileInfo struct {
	started atomic.Bool
	rows    atomic.Uint64
	blocks  atomic.Uint64
	bytes   atomic.Uint64

	columnNames atomic.Pointer[[]string]

	// Owner only. workNanos mirrors work after every Stop.
	work      *stopwatch.Stopwatch
	workNanos atomic.Int64

	// Started once before started is published and never stopped, so readers
	// that observed started may read it.
	total *stopwatch.Stopwatch

	// Written once before started is published; read-only afterwards.
	nested []*ProfileInfo
}

func newProfileInfo(clock clockwork.Clock) *ProfileInfo {
	return &ProfileInfo{
		work:  stopwatch.NewWithClock(clock),
		total: stopwatch.NewWithClock(clock),
	}
}

// start runs on the first Read: it starts the total stopwatch and links the
// profiles of children that expose one.
func (p *ProfileInfo) start(children []Stream) {
	p.total.Start()
	for _, child := range children {
		if info := child.Profile(); info != nil {
			p.nested = append(p.nested, info)
		}
	}
	p.started.Store(true)
}

// beginWork opens a work segment. The returned func closes it and publishes
// the new work total; it must run on every exit path.
func (p *ProfileInfo) beginWork() (end func()) {
	p.work.Start()
	return p.endWork
}

func (p *ProfileInfo) endWork() {
	p.work.Stop()
	p.workNanos.Store(int64(p.work.Elapsed()))
}

// update folds a present block into the counters. The column names are taken
// from the first block only.
func (p *ProfileInfo) update(b *column.Block) {
	p.blocks.Add(1)
	p.rows.Add(uint64(b.NumRows()))
	p.bytes.Add(uint64(b.ByteSize()))

	if p.columnNames.Load() == nil {
		names := b.Names()
		p.columnNames.Store(&names)
	}
}

// Started reports whether the owning node has been read at least once.
func (p *ProfileInfo) Started() bool { return p.started.Load() }

// Info is an immutable snapshot of a ProfileInfo.
type Info struct {
	Started     bool
	Rows        uint64
	Blocks      uint64
	Bytes       uint64
	ColumnNames []string
	// WorkElapsed covers completed production steps only.
	WorkElapsed  time.Duration
	TotalElapsed time.Duration
	NestedCount  int
}

// Snapshot copies the current counters. A zero Info is returned for a node
// that was never read.
func (p *ProfileInfo) Snapshot() Info {
	if !p.started.Load() {
		return Info{}
	}
	info := Info{
		Started:      true,
		Rows:         p.rows.Load(),
		Blocks:       p.blocks.Load(),
		Bytes:        p.bytes.Load(),
		WorkElapsed:  time.Duration(p.workNanos.Load()),
		TotalElapsed: p.total.Elapsed(),
		NestedCount:  len(p.nested),
	}
	if names := p.columnNames.Load(); names != nil {
		info.ColumnNames = slices.Clone(*names)
	}
	return info
}

// Aggregate is a node's snapshot combined with the snapshots of its
// profiling children.
type Aggregate struct {
	Info

	// NestedElapsed is the largest child work time. Children may run
	// concurrently with each other and with this node, so their times overlap
	// and are not summed.
	NestedElapsed time.Duration
	NestedRows    uint64
	NestedBlocks  uint64
	NestedBytes   uint64

	// SelfElapsed is WorkElapsed minus NestedElapsed, clamped at zero.
	SelfElapsed time.Duration
	// RawSelfElapsed is the unclamped difference.
	RawSelfElapsed time.Duration
}

// Aggregate computes the on-demand view over this node and its profiling
// children. It never mutates the tree.
func (p *ProfileInfo) Aggregate() Aggregate {
	agg := Aggregate{Info: p.Snapshot()}
	if !agg.Started {
		return agg
	}
	for _, child := range p.nested {
		ci := child.Snapshot()
		agg.NestedElapsed = max(agg.NestedElapsed, ci.WorkElapsed)
		agg.NestedRows += ci.Rows
		agg.NestedBlocks += ci.Blocks
		agg.NestedBytes += ci.Bytes
	}
	agg.RawSelfElapsed = agg.WorkElapsed - agg.NestedElapsed
	agg.SelfElapsed = max(agg.RawSelfElapsed, 0)
	return agg
}

// HasNested reports whether any profiling child was linked.
func (a Aggregate) HasNested() bool { return a.NestedCount > 0 }

// The rate helpers return ok == false when the value is undefined: no work
// time was recorded, or no blocks were produced.

// RowsPerSecond is the outbound row rate over work time.
func (a Aggregate) RowsPerSecond() (float64, bool) { return perSecond(a.Rows, a.WorkElapsed) }

// BlocksPerSecond is the outbound block rate over work time.
func (a Aggregate) BlocksPerSecond() (float64, bool) { return perSecond(a.Blocks, a.WorkElapsed) }

// MegabytesPerSecond is the outbound memory throughput in MB/s.
func (a Aggregate) MegabytesPerSecond() (float64, bool) {
	v, ok := perSecond(a.Bytes, a.WorkElapsed)
	return v / 1e6, ok
}

// InRowsPerSecond is the children's row total over this node's work time.
func (a Aggregate) InRowsPerSecond() (float64, bool) { return perSecond(a.NestedRows, a.WorkElapsed) }

// InBlocksPerSecond is the children's block total over this node's work time.
func (a Aggregate) InBlocksPerSecond() (float64, bool) {
	return perSecond(a.NestedBlocks, a.WorkElapsed)
}

// InMegabytesPerSecond is the children's memory volume over this node's work
// time in MB/s.
func (a Aggregate) InMegabytesPerSecond() (float64, bool) {
	v, ok := perSecond(a.NestedBytes, a.WorkElapsed)
	return v / 1e6, ok
}

// AverageBlockSize is rows per outbound block.
func (a Aggregate) AverageBlockSize() (float64, bool) {
	if a.Blocks == 0 {
		return 0, false
	}
	return float64(a.Rows) / float64(a.Blocks), true
}

func perSecond(n uint64, d time.Duration) (float64, bool) {
	if d <= 0 {
		return 0, false
	}
	return float64(n) / d.Seconds(), true
}

// percentOf returns d as a percentage of total.
func percentOf(d, total time.Duration) (float64, bool) {
	if total <= 0 {
		return 0, false
	}
	return float64(d) * 100 / float64(total), true
}
