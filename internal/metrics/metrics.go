// Package metrics exports run and stream-tree statistics to Prometheus.
package metrics

import (
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/harshithgowdakt/granulestream/internal/stream"
)

const namespace = "granulestream"

// RunMetrics are the per-run counters the executor observes.
type RunMetrics struct {
	Runs     *prometheus.CounterVec
	Duration prometheus.Histogram
	Rows     prometheus.Counter
	Blocks   prometheus.Counter
}

// NewRunMetrics registers the run metrics on reg.
func NewRunMetrics(reg prometheus.Registerer) *RunMetrics {
	factory := promauto.With(reg)
	return &RunMetrics{
		Runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "The total number of stream tree runs by outcome.",
		}, []string{"status"}),
		Duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a stream tree run.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		Rows: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "output_rows_total",
			Help:      "Rows delivered by root streams.",
		}),
		Blocks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "output_blocks_total",
			Help:      "Blocks delivered by root streams.",
		}),
	}
}

var (
	nodeLabels = []string{"query_id", "path", "operator"}

	rowsDesc = prometheus.NewDesc(namespace+"_stream_rows",
		"Rows produced by a stream node.", nodeLabels, nil)
	blocksDesc = prometheus.NewDesc(namespace+"_stream_blocks",
		"Blocks produced by a stream node.", nodeLabels, nil)
	bytesDesc = prometheus.NewDesc(namespace+"_stream_bytes",
		"Resident bytes of the blocks produced by a stream node.", nodeLabels, nil)
	workDesc = prometheus.NewDesc(namespace+"_stream_work_seconds",
		"Time spent inside a stream node's production steps.", nodeLabels, nil)
	selfDesc = prometheus.NewDesc(namespace+"_stream_self_seconds",
		"Work time net of the slowest profiling child.", nodeLabels, nil)
)

// TreeCollector exposes the profile of every node of one stream tree. It
// only reads atomic snapshots, so it may be scraped while the tree runs.
type TreeCollector struct {
	queryID string
	root    stream.Stream
}

// NewTreeCollector returns a collector over root.
func NewTreeCollector(queryID string, root stream.Stream) *TreeCollector {
	return &TreeCollector{queryID: queryID, root: root}
}

func (c *TreeCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{rowsDesc, blocksDesc, bytesDesc, workDesc, selfDesc} {
		ch <- d
	}
}

func (c *TreeCollector) Collect(ch chan<- prometheus.Metric) {
	var path []int
	_ = stream.Walk(c.root, func(s stream.Stream, depth int) error {
		path = append(path[:depth], 0)
		if depth > 0 {
			path[depth-1]++
		}
		p := s.Profile()
		if p == nil || !p.Started() {
			return nil
		}
		agg := p.Aggregate()
		labels := []string{c.queryID, formatPath(path[:depth]), s.Name()}
		ch <- prometheus.MustNewConstMetric(rowsDesc, prometheus.CounterValue, float64(agg.Rows), labels...)
		ch <- prometheus.MustNewConstMetric(blocksDesc, prometheus.CounterValue, float64(agg.Blocks), labels...)
		ch <- prometheus.MustNewConstMetric(bytesDesc, prometheus.CounterValue, float64(agg.Bytes), labels...)
		ch <- prometheus.MustNewConstMetric(workDesc, prometheus.CounterValue, agg.WorkElapsed.Seconds(), labels...)
		ch <- prometheus.MustNewConstMetric(selfDesc, prometheus.GaugeValue, agg.SelfElapsed.Seconds(), labels...)
		return nil
	})
}

// formatPath renders the child indexes leading to a node: the root is "0",
// its second child "0.1". path holds 1-based sibling counters.
func formatPath(path []int) string {
	var sb strings.Builder
	sb.WriteString("0")
	for _, p := range path {
		sb.WriteByte('.')
		sb.WriteString(strconv.Itoa(p - 1))
	}
	return sb.String()
}
