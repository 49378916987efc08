package operator

import (
	"fmt"

	"github.com/corvusdb/corvusdb/internal/dberr"
	"github.com/corvusdb/corvusdb/internal/record"
)

// CompareOp enumerates the comparison operators a Comparison node may
// apply.
type CompareOp int

const (
	OpEq CompareOp = iota
	OpNeq
	OpLt
	OpLte
	OpGt
	OpGte
)

// LogicalOp enumerates boolean connectives.
type LogicalOp int

const (
	OpAnd LogicalOp = iota
	OpOr
	OpNot
)

// ArithOp enumerates arithmetic operators over numeric columns.
type ArithOp int

const (
	OpAdd ArithOp = iota
	OpSub
	OpMul
	OpDiv
)

// Expr is a node in the predicate/projection expression tree: leaves are
// {ColumnRef, Literal}, inner nodes are {Comparison, Logical, Arithmetic}
// (spec §4.H). Eval computes the node's value against one input tuple,
// given the schema that tuple is shaped by.
type Expr interface {
	Eval(schema record.Schema, row Tuple) (record.Value, error)
}

// ColumnRef reads one column by position, resolved once at plan build
// time rather than by name lookup on every row.
type ColumnRef struct {
	Index int
}

func (c ColumnRef) Eval(_ record.Schema, row Tuple) (record.Value, error) {
	if c.Index < 0 || c.Index >= len(row) {
		return record.Value{}, fmt.Errorf("operator: column index %d out of range", c.Index)
	}
	return row[c.Index], nil
}

// Literal is a constant value.
type Literal struct {
	Value record.Value
}

func (l Literal) Eval(record.Schema, Tuple) (record.Value, error) { return l.Value, nil }

// Comparison evaluates Left `Op` Right to a ColBool value.
type Comparison struct {
	Op    CompareOp
	Left  Expr
	Right Expr
}

func (c Comparison) Eval(schema record.Schema, row Tuple) (record.Value, error) {
	lv, err := c.Left.Eval(schema, row)
	if err != nil {
		return record.Value{}, err
	}
	rv, err := c.Right.Eval(schema, row)
	if err != nil {
		return record.Value{}, err
	}
	if lv.Null || rv.Null {
		return record.Value{Type: record.ColBool, Null: true}, nil
	}

	switch c.Op {
	case OpEq:
		eq, err := lv.Equal(rv)
		return boolResult(eq), err
	case OpNeq:
		eq, err := lv.Equal(rv)
		return boolResult(!eq), err
	case OpLt:
		lt, err := lv.Less(rv)
		return boolResult(lt), err
	case OpGte:
		lt, err := lv.Less(rv)
		return boolResult(!lt), err
	case OpGt:
		lt, err := rv.Less(lv)
		return boolResult(lt), err
	case OpLte:
		lt, err := rv.Less(lv)
		return boolResult(!lt), err
	default:
		return record.Value{}, fmt.Errorf("operator: unknown comparison op %d", c.Op)
	}
}

func boolResult(b bool) record.Value {
	return record.Value{Type: record.ColBool, Bool: b}
}

// Logical evaluates AND/OR/NOT with short-circuit semantics (spec
// §4.H: "Short-circuit evaluation for AND/OR").
type Logical struct {
	Op       LogicalOp
	Children []Expr
}

func (l Logical) Eval(schema record.Schema, row Tuple) (record.Value, error) {
	switch l.Op {
	case OpAnd:
		for _, c := range l.Children {
			v, err := c.Eval(schema, row)
			if err != nil {
				return record.Value{}, err
			}
			if v.Null {
				return v, nil
			}
			if !v.Bool {
				return boolResult(false), nil
			}
		}
		return boolResult(true), nil

	case OpOr:
		for _, c := range l.Children {
			v, err := c.Eval(schema, row)
			if err != nil {
				return record.Value{}, err
			}
			if !v.Null && v.Bool {
				return boolResult(true), nil
			}
		}
		return boolResult(false), nil

	case OpNot:
		if len(l.Children) != 1 {
			return record.Value{}, fmt.Errorf("operator: NOT expects exactly one child")
		}
		v, err := l.Children[0].Eval(schema, row)
		if err != nil {
			return record.Value{}, err
		}
		if v.Null {
			return v, nil
		}
		return boolResult(!v.Bool), nil

	default:
		return record.Value{}, fmt.Errorf("operator: unknown logical op %d", l.Op)
	}
}

// Arithmetic evaluates numeric Left `Op` Right. Only the ColInt64 and
// ColFloat64 domains are supported; cross-type operands fail with
// dberr.ErrTypeMismatch.
type Arithmetic struct {
	Op    ArithOp
	Left  Expr
	Right Expr
}

func (a Arithmetic) Eval(schema record.Schema, row Tuple) (record.Value, error) {
	lv, err := a.Left.Eval(schema, row)
	if err != nil {
		return record.Value{}, err
	}
	rv, err := a.Right.Eval(schema, row)
	if err != nil {
		return record.Value{}, err
	}
	if lv.Type != rv.Type {
		return record.Value{}, dberr.ErrTypeMismatch
	}
	if lv.Null || rv.Null {
		return record.Value{Type: lv.Type, Null: true}, nil
	}

	if a.Op == OpDiv {
		switch lv.Type {
		case record.ColInt64:
			if rv.I64 == 0 {
				return record.Value{}, dberr.ErrDivByZero
			}
		case record.ColFloat64:
			if rv.F64 == 0 {
				return record.Value{}, dberr.ErrDivByZero
			}
		}
	}

	switch lv.Type {
	case record.ColInt64:
		return record.Value{Type: record.ColInt64, I64: applyInt(a.Op, lv.I64, rv.I64)}, nil
	case record.ColFloat64:
		return record.Value{Type: record.ColFloat64, F64: applyFloat(a.Op, lv.F64, rv.F64)}, nil
	default:
		return record.Value{}, fmt.Errorf("operator: arithmetic unsupported on type %d: %w", lv.Type, dberr.ErrTypeMismatch)
	}
}

func applyInt(op ArithOp, l, r int64) int64 {
	switch op {
	case OpAdd:
		return l + r
	case OpSub:
		return l - r
	case OpMul:
		return l * r
	case OpDiv:
		return l / r
	default:
		return 0
	}
}

func applyFloat(op ArithOp, l, r float64) float64 {
	switch op {
	case OpAdd:
		return l + r
	case OpSub:
		return l - r
	case OpMul:
		return l * r
	case OpDiv:
		return l / r
	default:
		return 0
	}
}
