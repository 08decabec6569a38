package column

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/harshithgowdakt/granulestream/internal/types"
)

// ByteStream is what DecodeColumn needs from its source; *bytes.Reader and
// *bufio.Reader both qualify.
type ByteStream interface {
	io.Reader
	io.ByteReader
}

// WriteVarUInt writes a variable-length unsigned integer (same encoding as protobuf varint).
func WriteVarUInt(w io.Writer, v uint64) error {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], v)
	_, err := w.Write(buf[:n])
	return err
}

// ReadVarUInt reads a variable-length unsigned integer.
func ReadVarUInt(r io.ByteReader) (uint64, error) {
	return binary.ReadUvarint(r)
}

// WriteString writes a varuint length followed by the raw bytes.
func WriteString(w io.Writer, s string) error {
	if err := WriteVarUInt(w, uint64(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

// ReadString reads a string written by WriteString.
func ReadString(r ByteStream) (string, error) {
	n, err := ReadVarUInt(r)
	if err != nil {
		return "", err
	}
	if left, ok := remaining(r); ok && n > uint64(left) {
		return "", fmt.Errorf("string length %d exceeds %d remaining bytes", n, left)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// EncodeColumn writes a column in native format.
// Fixed-size types: raw little-endian contiguous values.
// String: VarUInt(length) + raw bytes per string.
func EncodeColumn(w io.Writer, col Column) error {
	return col.encodeTo(w)
}

func (c *Vector[T]) encodeTo(w io.Writer) error {
	return binary.Write(w, binary.LittleEndian, c.Data)
}

func (c *StringColumn) encodeTo(w io.Writer) error {
	for _, s := range c.Data {
		if err := WriteString(w, s); err != nil {
			return err
		}
	}
	return nil
}

// DecodeColumn reads numRows values of type dt written by EncodeColumn.
// Sources that report their remaining length are checked up front, so a
// corrupt row count fails instead of allocating.
func DecodeColumn(r ByteStream, dt types.DataType, numRows int) (Column, error) {
	if numRows < 0 {
		return nil, fmt.Errorf("negative row count %d", numRows)
	}
	if left, ok := remaining(r); ok {
		// Strings take at least their one-byte length prefix per row.
		perRow := uint64(max(dt.FixedSize(), 1))
		if uint64(numRows) > uint64(left)/perRow {
			return nil, fmt.Errorf("%d %s rows do not fit in %d remaining bytes", numRows, dt.Name(), left)
		}
	}

	if dt == types.TypeString {
		col := &StringColumn{Data: make([]string, 0, numRows)}
		for i := 0; i < numRows; i++ {
			s, err := ReadString(r)
			if err != nil {
				return nil, fmt.Errorf("reading string at row %d: %w", i, err)
			}
			col.Data = append(col.Data, s)
		}
		return col, nil
	}

	col := NewColumnWithCapacity(dt, numRows)
	var err error
	switch c := col.(type) {
	case *Vector[uint8]:
		err = decodeFixed(r, c, numRows)
	case *Vector[uint16]:
		err = decodeFixed(r, c, numRows)
	case *Vector[uint32]:
		err = decodeFixed(r, c, numRows)
	case *Vector[uint64]:
		err = decodeFixed(r, c, numRows)
	case *Vector[int8]:
		err = decodeFixed(r, c, numRows)
	case *Vector[int16]:
		err = decodeFixed(r, c, numRows)
	case *Vector[int32]:
		err = decodeFixed(r, c, numRows)
	case *Vector[int64]:
		err = decodeFixed(r, c, numRows)
	case *Vector[float32]:
		err = decodeFixed(r, c, numRows)
	case *Vector[float64]:
		err = decodeFixed(r, c, numRows)
	default:
		return nil, fmt.Errorf("unsupported data type for decoding: %s", dt.Name())
	}
	if err != nil {
		return nil, fmt.Errorf("decoding %s column: %w", dt.Name(), err)
	}
	return col, nil
}

func decodeFixed[T fixedValue](r io.Reader, c *Vector[T], numRows int) error {
	c.Data = c.Data[:numRows]
	return binary.Read(r, binary.LittleEndian, c.Data)
}

// remaining reports how many unread bytes r holds, if r can tell.
func remaining(r io.Reader) (int, bool) {
	l, ok := r.(interface{ Len() int })
	if !ok {
		return 0, false
	}
	return l.Len(), true
}
