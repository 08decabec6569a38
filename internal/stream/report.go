package stream

import (
	"fmt"
	"io"
	"strings"
	"time"
)

const undefined = "n/a"

// WriteReport writes the diagnostic report of one node. Percentages are
// relative to runTotal, or to the node's own total elapsed time when runTotal
// is zero. Undefined rates print as n/a; only errors from w are returned.
func WriteReport(w io.Writer, agg Aggregate, runTotal time.Duration) error {
	return writeReport(&reportWriter{w: w}, agg, runTotal)
}

func writeReport(rw *reportWriter, agg Aggregate, runTotal time.Duration) error {
	if runTotal <= 0 {
		runTotal = agg.TotalElapsed
	}

	rw.printf("Columns: %s\n", strings.Join(agg.ColumnNames, ", "))
	rw.printf("Elapsed:        %.2f sec. (%s)\n", agg.WorkElapsed.Seconds(), pct(agg.WorkElapsed, runTotal))

	if agg.HasNested() {
		rw.printf("Elapsed (self): %.2f sec. (%s)\n", agg.SelfElapsed.Seconds(), pct(agg.SelfElapsed, runTotal))
		rw.printf("Rows (in):      %d, per second: %s\n", agg.NestedRows, num(agg.InRowsPerSecond()))
		rw.printf("Blocks (in):    %d, per second: %s\n", agg.NestedBlocks, num(agg.InBlocksPerSecond()))
		rw.printf("                %.2f MB (memory), %s MB/s (memory)\n",
			float64(agg.NestedBytes)/1e6, num(agg.InMegabytesPerSecond()))
	}

	rw.printf("Rows (out):     %d, per second: %s\n", agg.Rows, num(agg.RowsPerSecond()))
	rw.printf("Blocks (out):   %d, per second: %s\n", agg.Blocks, num(agg.BlocksPerSecond()))
	rw.printf("                %.2f MB (memory), %s MB/s (memory)\n",
		float64(agg.Bytes)/1e6, num(agg.MegabytesPerSecond()))
	rw.printf("Average block size (out): %s\n", num(agg.AverageBlockSize()))
	return rw.err
}

// WriteTree writes a report for every node under root. Percentages are
// relative to the root's total elapsed time.
func WriteTree(w io.Writer, root Stream) error {
	var runTotal time.Duration
	if p := root.Profile(); p != nil {
		runTotal = p.Snapshot().TotalElapsed
	}

	rw := &reportWriter{w: w}
	err := Walk(root, func(s Stream, depth int) error {
		indent := strings.Repeat("  ", depth)
		node := &reportWriter{w: &indentWriter{w: rw, prefix: indent + "  "}}

		rw.printf("%s%s\n", indent, s.Name())
		p := s.Profile()
		if p == nil {
			node.printf("(not profiled)\n")
			return node.err
		}
		if !p.Started() {
			node.printf("(not started)\n")
			return node.err
		}
		return writeReport(node, p.Aggregate(), runTotal)
	})
	if err != nil {
		return err
	}
	return rw.err
}

func pct(d, total time.Duration) string {
	v, ok := percentOf(d, total)
	if !ok {
		return undefined
	}
	return fmt.Sprintf("%.2f%%", v)
}

func num(v float64, ok bool) string {
	if !ok {
		return undefined
	}
	return fmt.Sprintf("%.2f", v)
}

// reportWriter remembers the first write error and skips later writes.
type reportWriter struct {
	w   io.Writer
	err error
}

func (r *reportWriter) printf(format string, args ...any) {
	if r.err != nil {
		return
	}
	_, r.err = fmt.Fprintf(r.w, format, args...)
}

func (r *reportWriter) Write(p []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	var n int
	n, r.err = r.w.Write(p)
	return n, r.err
}

// indentWriter prefixes every line it writes. Callers write whole lines.
type indentWriter struct {
	w      io.Writer
	prefix string
}

func (iw *indentWriter) Write(p []byte) (int, error) {
	if _, err := io.WriteString(iw.w, iw.prefix); err != nil {
		return 0, err
	}
	return iw.w.Write(p)
}
