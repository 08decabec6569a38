package types

import (
	"cmp"
	"fmt"
	"strconv"
)

// Value represents a single database value. Concrete types use native Go types:
//
//	UInt8 -> uint8, UInt16 -> uint16, ..., String -> string, DateTime -> uint32
type Value = any

// CompareValues compares two values of the same DataType.
// Returns -1 if a < b, 0 if a == b, 1 if a > b.
func CompareValues(dt DataType, a, b Value) int {
	switch dt {
	case TypeUInt8:
		return cmp.Compare(a.(uint8), b.(uint8))
	case TypeUInt16:
		return cmp.Compare(a.(uint16), b.(uint16))
	case TypeUInt32, TypeDateTime:
		return cmp.Compare(a.(uint32), b.(uint32))
	case TypeUInt64:
		return cmp.Compare(a.(uint64), b.(uint64))
	case TypeInt8:
		return cmp.Compare(a.(int8), b.(int8))
	case TypeInt16:
		return cmp.Compare(a.(int16), b.(int16))
	case TypeInt32:
		return cmp.Compare(a.(int32), b.(int32))
	case TypeInt64:
		return cmp.Compare(a.(int64), b.(int64))
	case TypeFloat32:
		return cmp.Compare(a.(float32), b.(float32))
	case TypeFloat64:
		return cmp.Compare(a.(float64), b.(float64))
	case TypeString:
		return cmp.Compare(a.(string), b.(string))
	default:
		return 0
	}
}

// ParseValue converts literal text into a value of the given type.
func ParseValue(dt DataType, s string) (Value, error) {
	switch dt {
	case TypeUInt8, TypeUInt16, TypeUInt32, TypeUInt64, TypeDateTime:
		n, err := strconv.ParseUint(s, 10, dt.FixedSize()*8)
		if err != nil {
			return nil, fmt.Errorf("parse %s literal %q: %w", dt.Name(), s, err)
		}
		switch dt {
		case TypeUInt8:
			return uint8(n), nil
		case TypeUInt16:
			return uint16(n), nil
		case TypeUInt64:
			return n, nil
		default:
			return uint32(n), nil
		}
	case TypeInt8, TypeInt16, TypeInt32, TypeInt64:
		n, err := strconv.ParseInt(s, 10, dt.FixedSize()*8)
		if err != nil {
			return nil, fmt.Errorf("parse %s literal %q: %w", dt.Name(), s, err)
		}
		switch dt {
		case TypeInt8:
			return int8(n), nil
		case TypeInt16:
			return int16(n), nil
		case TypeInt32:
			return int32(n), nil
		default:
			return n, nil
		}
	case TypeFloat32, TypeFloat64:
		f, err := strconv.ParseFloat(s, dt.FixedSize()*8)
		if err != nil {
			return nil, fmt.Errorf("parse %s literal %q: %w", dt.Name(), s, err)
		}
		if dt == TypeFloat32 {
			return float32(f), nil
		}
		return f, nil
	case TypeString:
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported type for literal: %s", dt.Name())
	}
}

// ValueToString converts a value to its string representation.
func ValueToString(v Value) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprintf("%v", v)
}
