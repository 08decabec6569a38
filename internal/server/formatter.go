package server

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/harshithgowdakt/granulestream/internal/column"
	"github.com/harshithgowdakt/granulestream/internal/types"
)

// OutputFormat specifies the result format.
type OutputFormat string

const (
	FormatTabSeparated OutputFormat = "TabSeparated"
	FormatJSON         OutputFormat = "JSON"
	FormatCSV          OutputFormat = "CSV"
)

// ParseFormat parses a format string (case-insensitive).
func ParseFormat(s string) OutputFormat {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON
	case "csv":
		return FormatCSV
	default:
		return FormatTabSeparated
	}
}

// ContentType returns the MIME type for f.
func (f OutputFormat) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatCSV:
		return "text/csv"
	default:
		return "text/tab-separated-values"
	}
}

// RowWriter renders blocks as rows. The header comes from the first block.
// JSON output is written on Close; the other formats stream.
type RowWriter struct {
	w      io.Writer
	format OutputFormat
	csv    *csv.Writer
	names  []string
	json   jsonResult
	err    error
}

type jsonResult struct {
	Meta []map[string]string `json:"meta"`
	Data []map[string]any    `json:"data"`
	Rows int                 `json:"rows"`
}

// NewRowWriter creates a RowWriter.
func NewRowWriter(w io.Writer, format OutputFormat) *RowWriter {
	rw := &RowWriter{w: w, format: format}
	if format == FormatCSV {
		rw.csv = csv.NewWriter(w)
	}
	return rw
}

// WriteBlock renders every row of b.
func (rw *RowWriter) WriteBlock(b *column.Block) error {
	if rw.err != nil {
		return rw.err
	}
	if rw.names == nil {
		rw.names = b.Names()
		rw.writeHeader(b)
	}
	for row := range b.NumRows() {
		rw.writeRow(b, row)
	}
	return rw.err
}

func (rw *RowWriter) writeHeader(b *column.Block) {
	switch rw.format {
	case FormatJSON:
		for i, name := range rw.names {
			rw.json.Meta = append(rw.json.Meta, map[string]string{
				"name": name,
				"type": b.Columns[i].DataType().Name(),
			})
		}
	case FormatCSV:
		rw.err = rw.csv.Write(rw.names)
	default:
		_, rw.err = fmt.Fprintln(rw.w, strings.Join(rw.names, "\t"))
	}
}

func (rw *RowWriter) writeRow(b *column.Block, row int) {
	if rw.err != nil {
		return
	}
	if rw.format == FormatJSON {
		m := make(map[string]any, len(rw.names))
		for c, name := range rw.names {
			m[name] = b.Columns[c].Value(row)
		}
		rw.json.Data = append(rw.json.Data, m)
		rw.json.Rows++
		return
	}

	vals := make([]string, b.NumColumns())
	for c, col := range b.Columns {
		vals[c] = formatValue(col.DataType(), col.Value(row))
	}
	if rw.format == FormatCSV {
		rw.err = rw.csv.Write(vals)
		return
	}
	_, rw.err = fmt.Fprintln(rw.w, strings.Join(vals, "\t"))
}

// Close flushes buffered output.
func (rw *RowWriter) Close() error {
	if rw.err != nil {
		return rw.err
	}
	switch rw.format {
	case FormatJSON:
		enc := json.NewEncoder(rw.w)
		enc.SetIndent("", "  ")
		return enc.Encode(rw.json)
	case FormatCSV:
		rw.csv.Flush()
		return rw.csv.Error()
	}
	return nil
}

func formatValue(dt types.DataType, v types.Value) string {
	switch dt {
	case types.TypeFloat32:
		return fmt.Sprintf("%g", v.(float32))
	case types.TypeFloat64:
		return fmt.Sprintf("%g", v.(float64))
	default:
		return types.ValueToString(v)
	}
}
