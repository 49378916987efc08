package operator

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corvusdb/corvusdb/internal/dberr"
	"github.com/corvusdb/corvusdb/internal/record"
)

var exprSchema = record.Schema{Cols: []record.Column{
	{Name: "a", Type: record.ColInt64},
	{Name: "b", Type: record.ColInt64},
}}

func TestArithmeticDivByZeroInt(t *testing.T) {
	expr := Arithmetic{
		Op:    OpDiv,
		Left:  Literal{Value: record.Value{Type: record.ColInt64, I64: 10}},
		Right: Literal{Value: record.Value{Type: record.ColInt64, I64: 0}},
	}
	_, err := expr.Eval(exprSchema, nil)
	require.ErrorIs(t, err, dberr.ErrDivByZero)
}

func TestArithmeticDivByZeroFloat(t *testing.T) {
	expr := Arithmetic{
		Op:    OpDiv,
		Left:  Literal{Value: record.Value{Type: record.ColFloat64, F64: 10}},
		Right: Literal{Value: record.Value{Type: record.ColFloat64, F64: 0}},
	}
	_, err := expr.Eval(exprSchema, nil)
	require.ErrorIs(t, err, dberr.ErrDivByZero)
}

func TestArithmeticDivNonZeroSucceeds(t *testing.T) {
	expr := Arithmetic{
		Op:    OpDiv,
		Left:  Literal{Value: record.Value{Type: record.ColInt64, I64: 10}},
		Right: Literal{Value: record.Value{Type: record.ColInt64, I64: 2}},
	}
	v, err := expr.Eval(exprSchema, nil)
	require.NoError(t, err)
	require.Equal(t, int64(5), v.I64)
}

func TestComparisonNullPropagates(t *testing.T) {
	cmp := Comparison{
		Op:    OpEq,
		Left:  Literal{Value: record.Value{Type: record.ColInt64, Null: true}},
		Right: Literal{Value: record.Value{Type: record.ColInt64, I64: 1}},
	}
	v, err := cmp.Eval(exprSchema, nil)
	require.NoError(t, err)
	require.True(t, v.Null)
}

func TestLogicalAndShortCircuits(t *testing.T) {
	logical := Logical{
		Op: OpAnd,
		Children: []Expr{
			Literal{Value: record.Value{Type: record.ColBool, Bool: false}},
			Literal{Value: record.Value{Type: record.ColBool, Null: true}},
		},
	}
	v, err := logical.Eval(exprSchema, nil)
	require.NoError(t, err)
	require.False(t, v.Null)
	require.False(t, v.Bool)
}
