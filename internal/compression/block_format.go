package compression

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Compressed block format (matching ClickHouse, minus the 16-byte CityHash checksum):
//   [method_byte (1)] [compressed_size_with_header (4 LE)] [uncompressed_size (4 LE)] [payload...]
//
// compressed_size_with_header includes the 9-byte header itself.

const HeaderSize = 9

// Header describes one compressed frame.
type Header struct {
	Method           byte
	CompressedSize   uint32 // including the header
	UncompressedSize uint32
}

// CompressBlock compresses data and returns the full frame (header + payload).
// Data the codec cannot shrink is stored with MethodNone.
func CompressBlock(codec Codec, data []byte) ([]byte, error) {
	compressed, err := codec.Compress(data)
	if errors.Is(err, ErrIncompressible) {
		codec = &NoneCodec{}
		compressed, err = codec.Compress(data)
	}
	if err != nil {
		return nil, err
	}

	total := HeaderSize + len(compressed)
	frame := make([]byte, total)
	frame[0] = codec.MethodByte()
	binary.LittleEndian.PutUint32(frame[1:5], uint32(total))
	binary.LittleEndian.PutUint32(frame[5:9], uint32(len(data)))
	copy(frame[HeaderSize:], compressed)
	return frame, nil
}

// DecompressBlock validates a full frame and returns its payload.
func DecompressBlock(data []byte) ([]byte, error) {
	h, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}
	if int(h.CompressedSize) > len(data) {
		return nil, fmt.Errorf("compressed block size mismatch: header says %d, have %d",
			h.CompressedSize, len(data))
	}
	codec, err := codecForMethod(h.Method)
	if err != nil {
		return nil, err
	}
	return codec.Decompress(data[HeaderSize:h.CompressedSize], int(h.UncompressedSize))
}

// ParseHeader reads the frame header at the start of data.
func ParseHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, fmt.Errorf("compressed block too small: %d bytes", len(data))
	}
	h := Header{
		Method:           data[0],
		CompressedSize:   binary.LittleEndian.Uint32(data[1:5]),
		UncompressedSize: binary.LittleEndian.Uint32(data[5:9]),
	}
	if h.CompressedSize < HeaderSize {
		return Header{}, fmt.Errorf("invalid compressed size %d", h.CompressedSize)
	}
	return h, nil
}

// ReadFrame reads one whole frame from r. It returns io.EOF only when r is
// exhausted before the first header byte.
func ReadFrame(r io.Reader) (Header, []byte, error) {
	var head [HeaderSize]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Header{}, nil, fmt.Errorf("truncated frame header: %w", err)
		}
		return Header{}, nil, err
	}
	h, err := ParseHeader(head[:])
	if err != nil {
		return Header{}, nil, err
	}
	frame := make([]byte, h.CompressedSize)
	copy(frame, head[:])
	if _, err := io.ReadFull(r, frame[HeaderSize:]); err != nil {
		return Header{}, nil, fmt.Errorf("truncated frame payload: %w", io.ErrUnexpectedEOF)
	}
	return h, frame, nil
}
