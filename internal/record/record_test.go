package record

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corvusdb/corvusdb/internal/dberr"
)

func sampleSchema() Schema {
	return Schema{Cols: []Column{
		{Name: "id", Type: ColInt32},
		{Name: "name", Type: ColText, FixedLen: 16, Nullable: true},
		{Name: "balance", Type: ColFloat64},
	}}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	s := sampleSchema()
	in := []Value{
		{Type: ColInt32, I32: 7},
		{Type: ColText, Bytes: []byte("alice")},
		{Type: ColFloat64, F64: 12.5},
	}
	buf, err := EncodeRow(s, in)
	require.NoError(t, err)

	width, err := s.RowWidth()
	require.NoError(t, err)
	require.Len(t, buf, width)

	out, err := DecodeRow(s, buf)
	require.NoError(t, err)
	require.Equal(t, int32(7), out[0].I32)
	require.Equal(t, []byte("alice"), out[1].Bytes)
	require.Equal(t, 12.5, out[2].F64)
}

func TestRowWidthIsSchemaConstant(t *testing.T) {
	s := sampleSchema()
	w1, err := s.RowWidth()
	require.NoError(t, err)

	short := []Value{{Type: ColInt32, I32: 1}, {Type: ColText, Bytes: []byte("x")}, {Type: ColFloat64, F64: 0}}
	buf1, err := EncodeRow(s, short)
	require.NoError(t, err)

	long := []Value{{Type: ColInt32, I32: 2}, {Type: ColText, Bytes: []byte("abcdefghij")}, {Type: ColFloat64, F64: 0}}
	buf2, err := EncodeRow(s, long)
	require.NoError(t, err)

	require.Len(t, buf1, w1)
	require.Len(t, buf2, w1)
}

func TestEncodeRowRejectsOversizedText(t *testing.T) {
	s := sampleSchema()
	vals := []Value{
		{Type: ColInt32, I32: 1},
		{Type: ColText, Bytes: make([]byte, 17)},
		{Type: ColFloat64, F64: 0},
	}
	_, err := EncodeRow(s, vals)
	require.ErrorIs(t, err, dberr.ErrSchemaMismatch)
}

func TestEncodeRowRejectsNullOnNonNullable(t *testing.T) {
	s := sampleSchema()
	vals := []Value{
		{Null: true},
		{Type: ColText, Bytes: []byte("x")},
		{Type: ColFloat64, F64: 0},
	}
	_, err := EncodeRow(s, vals)
	require.ErrorIs(t, err, dberr.ErrSchemaMismatch)
}

func TestNullRoundTrip(t *testing.T) {
	s := sampleSchema()
	vals := []Value{
		{Type: ColInt32, I32: 3},
		{Null: true},
		{Type: ColFloat64, F64: 1},
	}
	buf, err := EncodeRow(s, vals)
	require.NoError(t, err)

	out, err := DecodeRow(s, buf)
	require.NoError(t, err)
	require.True(t, out[1].Null)
}

func TestValueEqualCrossTypeMismatch(t *testing.T) {
	a := Value{Type: ColInt32, I32: 1}
	b := Value{Type: ColInt64, I64: 1}
	_, err := a.Equal(b)
	require.ErrorIs(t, err, dberr.ErrTypeMismatch)
}

func TestValueLessOrdersNumerically(t *testing.T) {
	a := Value{Type: ColInt64, I64: 1}
	b := Value{Type: ColInt64, I64: 2}
	lt, err := a.Less(b)
	require.NoError(t, err)
	require.True(t, lt)
}
