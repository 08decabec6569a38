// Package native reads and writes blocks as a sequence of compressed frames.
//
// Each frame decompresses to:
//
//	VarUInt(columns) VarUInt(rows)
//	per column: String(name) String(type name) encoded column data
package native

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/harshithgowdakt/granulestream/internal/column"
	"github.com/harshithgowdakt/granulestream/internal/compression"
	"github.com/harshithgowdakt/granulestream/internal/types"
)

// Writer encodes blocks to an underlying writer.
type Writer struct {
	w     io.Writer
	codec compression.Codec
	buf   bytes.Buffer
}

// NewWriter returns a Writer compressing frames with codec.
func NewWriter(w io.Writer, codec compression.Codec) *Writer {
	return &Writer{w: w, codec: codec}
}

// WriteBlock writes b as one frame.
func (w *Writer) WriteBlock(b *column.Block) error {
	w.buf.Reset()
	if err := column.WriteVarUInt(&w.buf, uint64(b.NumColumns())); err != nil {
		return err
	}
	if err := column.WriteVarUInt(&w.buf, uint64(b.NumRows())); err != nil {
		return err
	}
	for i, col := range b.Columns {
		if err := column.WriteString(&w.buf, b.ColumnNames[i]); err != nil {
			return err
		}
		if err := column.WriteString(&w.buf, col.DataType().Name()); err != nil {
			return err
		}
		if err := column.EncodeColumn(&w.buf, col); err != nil {
			return fmt.Errorf("encode column %s: %w", b.ColumnNames[i], err)
		}
	}

	frame, err := compression.CompressBlock(w.codec, w.buf.Bytes())
	if err != nil {
		return err
	}
	_, err = w.w.Write(frame)
	return err
}

// Reader decodes blocks written by Writer.
type Reader struct {
	r *bufio.Reader
	// FrameInfo describes the frame behind the last block returned.
	FrameInfo compression.Header
	frames    int
}

// NewReader returns a Reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// ReadBlock returns the next block, or io.EOF after the last one.
func (r *Reader) ReadBlock() (*column.Block, error) {
	h, frame, err := compression.ReadFrame(r.r)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("frame %d: %w", r.frames, err)
	}
	payload, err := compression.DecompressBlock(frame)
	if err != nil {
		return nil, fmt.Errorf("frame %d: %w", r.frames, err)
	}
	r.FrameInfo = h
	r.frames++

	b, err := decodeBlock(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("frame %d: %w", r.frames-1, err)
	}
	return b, nil
}

func decodeBlock(r *bytes.Reader) (*column.Block, error) {
	numCols, err := column.ReadVarUInt(r)
	if err != nil {
		return nil, fmt.Errorf("reading column count: %w", err)
	}
	numRows, err := column.ReadVarUInt(r)
	if err != nil {
		return nil, fmt.Errorf("reading row count: %w", err)
	}
	if numCols > uint64(r.Len()) {
		return nil, fmt.Errorf("corrupt block: %d columns in %d bytes", numCols, r.Len())
	}
	if numCols > 0 && numRows > uint64(r.Len()) {
		return nil, fmt.Errorf("corrupt block: %d rows in %d bytes", numRows, r.Len())
	}

	names := make([]string, 0, numCols)
	cols := make([]column.Column, 0, numCols)
	for i := uint64(0); i < numCols; i++ {
		name, err := column.ReadString(r)
		if err != nil {
			return nil, fmt.Errorf("reading column %d name: %w", i, err)
		}
		typeName, err := column.ReadString(r)
		if err != nil {
			return nil, fmt.Errorf("reading column %s type: %w", name, err)
		}
		dt, err := types.ParseDataType(typeName)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", name, err)
		}
		col, err := column.DecodeColumn(r, dt, int(numRows))
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", name, err)
		}
		names = append(names, name)
		cols = append(cols, col)
	}
	return column.NewBlock(names, cols), nil
}
