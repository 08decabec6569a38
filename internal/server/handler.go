package server

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/harshithgowdakt/granulestream/internal/engine"
	"github.com/harshithgowdakt/granulestream/internal/executor"
	"github.com/harshithgowdakt/granulestream/internal/metrics"
	"github.com/harshithgowdakt/granulestream/internal/stream"
)

// QueryHandler runs scan pipelines over native files in a data directory.
type QueryHandler struct {
	dataDir  string
	logger   zerolog.Logger
	exec     *executor.Executor
	registry prometheus.Registerer

	mu   sync.Mutex
	last *metrics.TreeCollector
}

// NewQueryHandler creates a query handler. The profile of the most recent
// run is exported through registry.
func NewQueryHandler(dataDir string, logger zerolog.Logger, registry prometheus.Registerer, exec *executor.Executor) *QueryHandler {
	return &QueryHandler{dataDir: dataDir, logger: logger, exec: exec, registry: registry}
}

// HandleQuery runs the pipeline described by the URL parameters:
//
//	files=a.native,b.native filter="id > 3" columns=id,name order_by=id desc=1 limit=10
//
// With profile=1 the rows are discarded and the stream tree report is
// returned instead.
func (h *QueryHandler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, r.URL.Query().Get("profile") == "1")
}

// HandleProfile is HandleQuery with profile=1.
func (h *QueryHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, true)
}

func (h *QueryHandler) serve(w http.ResponseWriter, r *http.Request, profile bool) {
	q := r.URL.Query()
	cfg := engine.PlanConfig{
		Files:   splitList(q.Get("files")),
		Filter:  q.Get("filter"),
		Columns: splitList(q.Get("columns")),
		OrderBy: splitList(q.Get("order_by")),
		Desc:    q.Get("desc") == "1" || q.Get("desc") == "true",
	}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid limit: %v", err), http.StatusBadRequest)
			return
		}
		cfg.Limit = n
	}
	format := ParseFormat(q.Get("format"))

	root, err := engine.Plan(r.Context(), cfg, h.open, h.logger)
	if err != nil {
		http.Error(w, fmt.Sprintf("plan error: %v", err), http.StatusBadRequest)
		return
	}
	defer root.Close()

	queryID := executor.NewQueryID()
	h.track(queryID, root)

	var body bytes.Buffer
	rw := NewRowWriter(&body, format)
	sink := rw.WriteBlock
	if profile {
		sink = executor.Discard
	}
	if _, err := h.exec.Run(r.Context(), queryID, root, sink); err != nil {
		http.Error(w, fmt.Sprintf("execution error: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("X-Query-Id", queryID)
	if profile {
		w.Header().Set("Content-Type", "text/plain")
		if err := stream.WriteTree(&body, root); err != nil {
			http.Error(w, fmt.Sprintf("report error: %v", err), http.StatusInternalServerError)
			return
		}
	} else {
		if err := rw.Close(); err != nil {
			http.Error(w, fmt.Sprintf("format error: %v", err), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", format.ContentType())
	}
	_, _ = io.Copy(w, &body)
}

// HandlePing responds with "Ok." for health checks.
func (h *QueryHandler) HandlePing(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, "Ok.")
}

// open resolves name inside the data directory.
func (h *QueryHandler) open(name string) (io.ReadCloser, error) {
	path := filepath.Join(h.dataDir, filepath.Clean("/"+name))
	return os.Open(path)
}

// track replaces the exported tree with root's.
func (h *QueryHandler) track(queryID string, root stream.Stream) {
	if h.registry == nil {
		return
	}
	c := metrics.NewTreeCollector(queryID, root)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.last != nil {
		h.registry.Unregister(h.last)
	}
	if err := h.registry.Register(c); err != nil {
		h.logger.Warn().Err(err).Msg("register tree collector")
		h.last = nil
		return
	}
	h.last = c
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
