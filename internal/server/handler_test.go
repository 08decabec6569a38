package server_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harshithgowdakt/granulestream/internal/column"
	"github.com/harshithgowdakt/granulestream/internal/compression"
	"github.com/harshithgowdakt/granulestream/internal/executor"
	"github.com/harshithgowdakt/granulestream/internal/native"
	"github.com/harshithgowdakt/granulestream/internal/server"
)

func writeNative(t *testing.T, path string, blocks ...*column.Block) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	codec, err := compression.CodecByName("lz4")
	require.NoError(t, err)
	w := native.NewWriter(f, codec)
	for _, b := range blocks {
		require.NoError(t, w.WriteBlock(b))
	}
}

func setupTestServer(t *testing.T) (http.Handler, *prometheus.Registry) {
	t.Helper()
	dir := t.TempDir()
	writeNative(t, filepath.Join(dir, "events.native"),
		column.NewBlock([]string{"id", "kind"}, []column.Column{
			column.NewUInt64(1, 2, 3), column.NewString("a", "b", "c"),
		}),
		column.NewBlock([]string{"id", "kind"}, []column.Column{
			column.NewUInt64(4, 5), column.NewString("d", "e"),
		}),
	)

	reg := prometheus.NewRegistry()
	logger := zerolog.Nop()
	h := server.NewQueryHandler(dir, logger, reg, executor.New(logger))
	return server.NewServer(":0", h, reg, logger).Routes(), reg
}

func doGet(t *testing.T, h http.Handler, target string) (*http.Response, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	resp := w.Result()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestPing(t *testing.T) {
	h, _ := setupTestServer(t)
	resp, body := doGet(t, h, "/ping")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Ok.\n", body)
}

func TestQueryTabSeparated(t *testing.T) {
	h, _ := setupTestServer(t)
	resp, body := doGet(t, h, "/?files=events.native&filter=id%3E2&order_by=id&desc=1&limit=2")
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.NotEmpty(t, resp.Header.Get("X-Query-Id"))
	assert.Equal(t, "id\tkind\n5\te\n4\td\n", body)
}

func TestQueryCSV(t *testing.T) {
	h, _ := setupTestServer(t)
	resp, body := doGet(t, h, "/?files=events.native&columns=kind&limit=2&format=csv")
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "text/csv", resp.Header.Get("Content-Type"))
	assert.Equal(t, "kind\na\nb\n", body)
}

func TestQueryJSON(t *testing.T) {
	h, _ := setupTestServer(t)
	resp, body := doGet(t, h, "/?files=events.native&filter=kind%3D'c'&format=json")
	require.Equal(t, http.StatusOK, resp.StatusCode, body)

	var out struct {
		Meta []map[string]string `json:"meta"`
		Data []map[string]any    `json:"data"`
		Rows int                 `json:"rows"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	assert.Equal(t, 1, out.Rows)
	assert.Equal(t, "UInt64", out.Meta[0]["type"])
	assert.Equal(t, "c", out.Data[0]["kind"])
}

func TestProfileReport(t *testing.T) {
	h, reg := setupTestServer(t)
	resp, body := doGet(t, h, "/profile?files=events.native&filter=id%3E1")
	require.Equal(t, http.StatusOK, resp.StatusCode, body)

	assert.True(t, strings.HasPrefix(body, "Filter(id > 1)\n"), body)
	assert.Contains(t, body, "  Native(events.native)\n")
	assert.Contains(t, body, "Rows (out):     4,")
	assert.Contains(t, body, "Rows (in):      5,")

	families, err := reg.Gather()
	require.NoError(t, err)
	var names []string
	for _, mf := range families {
		names = append(names, mf.GetName())
	}
	assert.Contains(t, names, "granulestream_stream_rows")
}

func TestMetricsEndpoint(t *testing.T) {
	h, _ := setupTestServer(t)
	_, _ = doGet(t, h, "/?files=events.native")
	resp, body := doGet(t, h, "/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `granulestream_stream_rows{operator="Native(events.native)",path="0",query_id="`)
}

func TestQueryErrors(t *testing.T) {
	h, _ := setupTestServer(t)

	resp, _ := doGet(t, h, "/?files=events.native&limit=x")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doGet(t, h, "/?files=missing.native")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doGet(t, h, "/?files=events.native&columns=nope")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestQueryConfinedToDataDir(t *testing.T) {
	h, _ := setupTestServer(t)
	resp, _ := doGet(t, h, "/?files=../../etc/passwd")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
