package compression

import (
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// LZ4Codec implements LZ4 block compression.
type LZ4Codec struct {
	c lz4.Compressor
}

func (c *LZ4Codec) MethodByte() byte { return MethodLZ4 }

func (c *LZ4Codec) Compress(src []byte) ([]byte, error) {
	if len(src) == 0 {
		return nil, ErrIncompressible
	}
	dst := make([]byte, lz4.CompressBlockBound(len(src)))
	n, err := c.c.CompressBlock(src, dst)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	if n == 0 || n >= len(src) {
		return nil, ErrIncompressible
	}
	return dst[:n], nil
}

// maxLZ4Expansion is the most output a single LZ4 block input byte can yield.
const maxLZ4Expansion = 255

func (c *LZ4Codec) Decompress(src []byte, decompressedSize int) ([]byte, error) {
	if decompressedSize == 0 {
		return []byte{}, nil
	}
	if decompressedSize < 0 || decompressedSize > maxLZ4Expansion*len(src)+16 {
		return nil, fmt.Errorf("lz4 decompress: %d bytes cannot expand to %d", len(src), decompressedSize)
	}
	dst := make([]byte, decompressedSize)
	n, err := lz4.UncompressBlock(src, dst)
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress: %w", err)
	}
	if n != decompressedSize {
		return nil, fmt.Errorf("lz4 decompress: expected %d bytes, got %d", decompressedSize, n)
	}
	return dst, nil
}
