package physical

import (
	"context"

	"github.com/corvusdb/corvusdb/internal/dberr"
	"github.com/corvusdb/corvusdb/internal/heap"
	"github.com/corvusdb/corvusdb/internal/operator"
	"github.com/corvusdb/corvusdb/internal/record"
)

// ridSource is implemented by scan operators that can identify the
// storage location of the tuple they most recently returned. Delete
// walks down through any chain of ridSource-forwarding operators (such
// as Filter) to find the RID of each row it needs to erase.
type ridSource interface {
	CurrentRID() heap.RID
}

// Filter passes through only the child tuples for which Predicate
// evaluates true; NULL and false both exclude the row. Grounded on the
// teacher's matchWhere, generalized from a hardwired WHERE-clause
// struct to the shared operator.Expr tree so any expression shape can
// drive it.
type Filter struct {
	child     operator.Operator
	predicate operator.Expr
}

func NewFilter(child operator.Operator, predicate operator.Expr) *Filter {
	return &Filter{child: child, predicate: predicate}
}

func (f *Filter) Open(ctx context.Context) error {
	return f.child.Open(ctx)
}

func (f *Filter) Next(ctx context.Context) (operator.Tuple, bool, error) {
	for {
		if err := checkAborted(ctx, "physical.Filter"); err != nil {
			return nil, false, err
		}
		row, end, err := f.child.Next(ctx)
		if err != nil {
			return nil, false, dberr.Wrap("physical.Filter", err)
		}
		if end {
			return nil, true, nil
		}
		v, err := f.predicate.Eval(f.child.Schema(), row)
		if err != nil {
			return nil, false, dberr.Wrap("physical.Filter", err)
		}
		if !v.Null && v.Type == record.ColBool && v.Bool {
			return row, false, nil
		}
	}
}

func (f *Filter) Close(ctx context.Context) error {
	return f.child.Close(ctx)
}

func (f *Filter) Schema() record.Schema { return f.child.Schema() }
func (f *Filter) YieldsData() bool      { return true }

// CurrentRID forwards to the child when it is itself a ridSource,
// letting Delete see through a Filter sitting between it and a scan.
func (f *Filter) CurrentRID() heap.RID {
	if rs, ok := f.child.(ridSource); ok {
		return rs.CurrentRID()
	}
	return heap.RID{}
}
