package engine

import (
	"errors"
	"io"

	"github.com/rs/zerolog"

	"github.com/harshithgowdakt/granulestream/internal/column"
	"github.com/harshithgowdakt/granulestream/internal/native"
	"github.com/harshithgowdakt/granulestream/internal/stream"
)

// nativeProducer decodes blocks from a native block file.
type nativeProducer struct {
	name   string
	rc     io.ReadCloser
	reader *native.Reader
	logger zerolog.Logger
}

// NewNativeStream creates a leaf stream reading rc. The stream owns rc and
// closes it on Close.
func NewNativeStream(name string, rc io.ReadCloser, logger zerolog.Logger, opts ...stream.Option) *stream.Profiled {
	return stream.NewProfiled(&nativeProducer{
		name:   name,
		rc:     rc,
		reader: native.NewReader(rc),
		logger: logger,
	}, opts...)
}

func (n *nativeProducer) Name() string              { return "Native(" + n.name + ")" }
func (n *nativeProducer) Children() []stream.Stream { return nil }

func (n *nativeProducer) ReadImpl() (*column.Block, error) {
	b, err := n.reader.ReadBlock()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	n.logger.Trace().
		Str("source", n.name).
		Int("rows", b.NumRows()).
		Uint32("compressed_bytes", n.reader.FrameInfo.CompressedSize).
		Msg("read frame")
	return b, nil
}

func (n *nativeProducer) Close() error { return n.rc.Close() }
