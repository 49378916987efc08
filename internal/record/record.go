// Package record defines the engine's value and schema model and the
// fixed-width row codec the table heap depends on.
//
// The teacher's rowcodec.go (internal/storage) encodes TEXT/BYTES as a
// u16 length prefix followed by exactly that many bytes — a genuinely
// variable-width row. This engine's heap requires every row in a table
// to occupy the same number of bytes (so a tombstoned slot is always
// reusable by any later insert into that table), so ColText/ColBytes
// here carry a fixed capacity: a u16 actual-length prefix followed by
// exactly FixedLen bytes, zero-padded. Total row width is therefore
// determined entirely by the schema, never by the data.
package record

import (
	"fmt"
	"math"

	"github.com/corvusdb/corvusdb/internal/alias/bx"
	"github.com/corvusdb/corvusdb/internal/dberr"
)

// ColumnType enumerates the fixed set of value kinds a column may hold.
// Extends the teacher's ColInt32/ColInt64/ColBool/ColFloat64/ColText/
// ColBytes with an unsigned integer and a date type, per the domain
// stack's expanded type set.
type ColumnType uint8

const (
	ColInt32 ColumnType = iota
	ColInt64
	ColUint64
	ColBool
	ColFloat64
	ColText  // fixed-capacity UTF-8, see Column.FixedLen
	ColBytes // fixed-capacity opaque bytes, see Column.FixedLen
	ColDate  // days since epoch, stored as int32
)

// Column describes one field of a Schema. FixedLen is the byte capacity
// reserved for ColText/ColBytes payloads; it is ignored for fixed-size
// scalar types.
type Column struct {
	Name     string
	Type     ColumnType
	Nullable bool
	FixedLen int // required (>0) for ColText/ColBytes
}

// width returns the number of bytes Column occupies in an encoded row,
// not counting the schema-wide null bitmap.
func (c Column) width() (int, error) {
	switch c.Type {
	case ColInt32, ColDate:
		return 4, nil
	case ColInt64, ColUint64, ColFloat64:
		return 8, nil
	case ColBool:
		return 1, nil
	case ColText, ColBytes:
		if c.FixedLen <= 0 {
			return 0, fmt.Errorf("record: column %q of variable type needs FixedLen > 0", c.Name)
		}
		return 2 + c.FixedLen, nil
	default:
		return 0, fmt.Errorf("record: column %q has unsupported type %d", c.Name, c.Type)
	}
}

// Schema is an ordered list of columns with a schema-wide constant
// encoded row width (spec §4.E: "Schemas fix total row width").
type Schema struct {
	Cols []Column
}

func (s Schema) NumCols() int { return len(s.Cols) }

// nullBitmapLen returns the number of leading bytes reserved for the
// null bitmap, one bit per column, present whenever any column is
// nullable (so a fully non-nullable schema carries zero overhead).
func (s Schema) nullBitmapLen() int {
	for _, c := range s.Cols {
		if c.Nullable {
			return (len(s.Cols) + 7) / 8
		}
	}
	return 0
}

// RowWidth returns the exact number of bytes EncodeRow always produces
// for this schema.
func (s Schema) RowWidth() (int, error) {
	total := s.nullBitmapLen()
	for _, c := range s.Cols {
		w, err := c.width()
		if err != nil {
			return 0, err
		}
		total += w
	}
	return total, nil
}

// ColumnIndex returns the position of name in the schema, or -1.
func (s Schema) ColumnIndex(name string) int {
	for i, c := range s.Cols {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Value is a tagged union over the schema's fixed type set; exactly one
// field is meaningful per Type, chosen by Null or by the column's type.
type Value struct {
	Type  ColumnType
	Null  bool
	I32   int32
	I64   int64
	U64   uint64
	Bool  bool
	F64   float64
	Bytes []byte // owns its storage; used for ColText (UTF-8) and ColBytes
}

// Equal compares two values of possibly different types. Cross-type
// comparison fails with dberr.ErrTypeMismatch rather than silently
// coercing, per spec §4.E ("cross-type comparisons fail with
// TypeMismatch").
func (v Value) Equal(other Value) (bool, error) {
	if v.Type != other.Type {
		return false, dberr.ErrTypeMismatch
	}
	if v.Null || other.Null {
		return v.Null && other.Null, nil
	}
	switch v.Type {
	case ColInt32, ColDate:
		return v.I32 == other.I32, nil
	case ColInt64:
		return v.I64 == other.I64, nil
	case ColUint64:
		return v.U64 == other.U64, nil
	case ColBool:
		return v.Bool == other.Bool, nil
	case ColFloat64:
		return v.F64 == other.F64, nil
	case ColText, ColBytes:
		return string(v.Bytes) == string(other.Bytes), nil
	default:
		return false, fmt.Errorf("record: comparing unsupported type %d", v.Type)
	}
}

// Less reports whether v orders before other; used by ordered indexes
// and range-scan predicates. Cross-type comparison fails the same way
// Equal does.
func (v Value) Less(other Value) (bool, error) {
	if v.Type != other.Type {
		return false, dberr.ErrTypeMismatch
	}
	if v.Null || other.Null {
		return false, nil
	}
	switch v.Type {
	case ColInt32, ColDate:
		return v.I32 < other.I32, nil
	case ColInt64:
		return v.I64 < other.I64, nil
	case ColUint64:
		return v.U64 < other.U64, nil
	case ColBool:
		return !v.Bool && other.Bool, nil
	case ColFloat64:
		return v.F64 < other.F64, nil
	case ColText, ColBytes:
		return string(v.Bytes) < string(other.Bytes), nil
	default:
		return false, fmt.Errorf("record: comparing unsupported type %d", v.Type)
	}
}

// EncodeRow serializes values into a schema-width byte slice: a leading
// null bitmap (if any column is nullable) followed by each column's
// fixed-width field in declared order.
func EncodeRow(s Schema, values []Value) ([]byte, error) {
	if len(values) != s.NumCols() {
		return nil, dberr.ErrSchemaMismatch
	}

	width, err := s.RowWidth()
	if err != nil {
		return nil, fmt.Errorf("record: %w", err)
	}
	out := make([]byte, width)
	nb := s.nullBitmapLen()
	cursor := nb

	for i, col := range s.Cols {
		v := values[i]
		if v.Null {
			if !col.Nullable {
				return nil, dberr.ErrSchemaMismatch
			}
			out[i/8] |= 1 << uint(i%8)
			w, _ := col.width()
			cursor += w
			continue
		}
		if v.Type != col.Type {
			return nil, dberr.ErrSchemaMismatch
		}

		switch col.Type {
		case ColInt32:
			bx.PutU32At(out, cursor, uint32(v.I32))
			cursor += 4
		case ColDate:
			bx.PutU32At(out, cursor, uint32(v.I32))
			cursor += 4
		case ColInt64:
			bx.PutU64At(out, cursor, uint64(v.I64))
			cursor += 8
		case ColUint64:
			bx.PutU64At(out, cursor, v.U64)
			cursor += 8
		case ColBool:
			if v.Bool {
				out[cursor] = 1
			}
			cursor++
		case ColFloat64:
			bx.PutU64At(out, cursor, math.Float64bits(v.F64))
			cursor += 8
		case ColText, ColBytes:
			if len(v.Bytes) > col.FixedLen {
				return nil, fmt.Errorf("record: column %q value length %d exceeds FixedLen %d: %w",
					col.Name, len(v.Bytes), col.FixedLen, dberr.ErrSchemaMismatch)
			}
			bx.PutU16At(out, cursor, uint16(len(v.Bytes)))
			copy(out[cursor+2:cursor+2+len(v.Bytes)], v.Bytes)
			cursor += 2 + col.FixedLen
		default:
			return nil, fmt.Errorf("record: unsupported type %d", col.Type)
		}
	}
	return out, nil
}

// DecodeRow reconstructs the column values encoded by EncodeRow. buf
// must be exactly schema.RowWidth() bytes.
func DecodeRow(s Schema, buf []byte) ([]Value, error) {
	width, err := s.RowWidth()
	if err != nil {
		return nil, fmt.Errorf("record: %w", err)
	}
	if len(buf) != width {
		return nil, dberr.ErrSchemaMismatch
	}

	nb := s.nullBitmapLen()
	cursor := nb
	out := make([]Value, s.NumCols())

	for i, col := range s.Cols {
		isNull := nb > 0 && (buf[i/8]>>uint(i%8))&1 == 1
		if isNull {
			out[i] = Value{Type: col.Type, Null: true}
			w, _ := col.width()
			cursor += w
			continue
		}

		switch col.Type {
		case ColInt32:
			out[i] = Value{Type: col.Type, I32: int32(bx.U32At(buf, cursor))}
			cursor += 4
		case ColDate:
			out[i] = Value{Type: col.Type, I32: int32(bx.U32At(buf, cursor))}
			cursor += 4
		case ColInt64:
			out[i] = Value{Type: col.Type, I64: int64(bx.U64At(buf, cursor))}
			cursor += 8
		case ColUint64:
			out[i] = Value{Type: col.Type, U64: bx.U64At(buf, cursor)}
			cursor += 8
		case ColBool:
			out[i] = Value{Type: col.Type, Bool: buf[cursor] != 0}
			cursor++
		case ColFloat64:
			out[i] = Value{Type: col.Type, F64: math.Float64frombits(bx.U64At(buf, cursor))}
			cursor += 8
		case ColText, ColBytes:
			n := int(bx.U16At(buf, cursor))
			data := make([]byte, n)
			copy(data, buf[cursor+2:cursor+2+n])
			out[i] = Value{Type: col.Type, Bytes: data}
			cursor += 2 + col.FixedLen
		default:
			return nil, fmt.Errorf("record: unsupported type %d", col.Type)
		}
	}
	return out, nil
}
