package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/harshithgowdakt/granulestream/internal/compression"
	"github.com/harshithgowdakt/granulestream/internal/native"
)

type columnJSON struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Bytes int    `json:"bytes"`
}

type frameJSON struct {
	Frame            int          `json:"frame"`
	Offset           int64        `json:"offset"`
	Method           string       `json:"method"`
	CompressedBytes  uint32       `json:"compressed_bytes_with_header"`
	UncompressedSize uint32       `json:"uncompressed_bytes"`
	Rows             int          `json:"rows"`
	Columns          []columnJSON `json:"columns"`
}

type dumpJSON struct {
	File     string      `json:"file"`
	FileSize int64       `json:"file_size"`
	Rows     int         `json:"rows"`
	Frames   []frameJSON `json:"frames"`
}

func newDumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dump <file>",
		Short: "Describe every frame of a native block file as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := dumpFile(args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
}

func dumpFile(path string) (*dumpJSON, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	out := &dumpJSON{File: path, FileSize: st.Size(), Frames: []frameJSON{}}

	r := native.NewReader(f)
	var offset int64
	for i := 0; ; i++ {
		b, err := r.ReadBlock()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}

		h := r.FrameInfo
		fr := frameJSON{
			Frame:            i,
			Offset:           offset,
			Method:           methodName(h.Method),
			CompressedBytes:  h.CompressedSize,
			UncompressedSize: h.UncompressedSize,
			Rows:             b.NumRows(),
		}
		for c, name := range b.ColumnNames {
			col := b.Columns[c]
			fr.Columns = append(fr.Columns, columnJSON{
				Name:  name,
				Type:  col.DataType().Name(),
				Bytes: col.ByteSize(),
			})
		}
		out.Frames = append(out.Frames, fr)
		out.Rows += fr.Rows
		offset += int64(h.CompressedSize)
	}
}

func methodName(m byte) string {
	switch m {
	case compression.MethodLZ4:
		return "lz4"
	case compression.MethodNone:
		return "none"
	default:
		return fmt.Sprintf("0x%02x", m)
	}
}
