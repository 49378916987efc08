package physical

import (
	"context"

	"github.com/corvusdb/corvusdb/internal/dberr"
	"github.com/corvusdb/corvusdb/internal/operator"
	"github.com/corvusdb/corvusdb/internal/record"
)

// Projection narrows each child tuple to the evaluation of Exprs,
// exposing Out as its own schema. Grounded on the teacher's SELECT
// column-list handling in Executor.execPlan, pulled out of the
// dispatch switch into a standalone operator so it composes with any
// child, and generalized from plain column references to arbitrary
// operator.Expr (so computed columns project too).
type Projection struct {
	child operator.Operator
	exprs []operator.Expr
	out   record.Schema
}

func NewProjection(child operator.Operator, exprs []operator.Expr, out record.Schema) *Projection {
	return &Projection{child: child, exprs: exprs, out: out}
}

func (p *Projection) Open(ctx context.Context) error {
	return p.child.Open(ctx)
}

func (p *Projection) Next(ctx context.Context) (operator.Tuple, bool, error) {
	if err := checkAborted(ctx, "physical.Projection"); err != nil {
		return nil, false, err
	}
	row, end, err := p.child.Next(ctx)
	if err != nil {
		return nil, false, dberr.Wrap("physical.Projection", err)
	}
	if end {
		return nil, true, nil
	}
	out := make(operator.Tuple, len(p.exprs))
	childSchema := p.child.Schema()
	for i, e := range p.exprs {
		v, err := e.Eval(childSchema, row)
		if err != nil {
			return nil, false, dberr.Wrap("physical.Projection", err)
		}
		out[i] = v
	}
	return out, false, nil
}

func (p *Projection) Close(ctx context.Context) error {
	return p.child.Close(ctx)
}

func (p *Projection) Schema() record.Schema { return p.out }
func (p *Projection) YieldsData() bool      { return true }
