package optimizer

import (
	"github.com/corvusdb/corvusdb/internal/operator"
	"github.com/corvusdb/corvusdb/internal/planview"
)

// SwapOperands normalizes every Comparison in a Filter's predicate tree
// so a column reference is always the left operand, flipping the
// comparison operator to preserve meaning (`5 > col` becomes `col <
// 5`). IndexScanOptimization relies on this canonical shape to recognize
// "column op literal" without also matching "literal op column".
type SwapOperands struct{}

func (SwapOperands) Apply(v planview.View) (planview.View, bool, error) {
	var target planview.Node
	var rewrittenExpr operator.Expr
	found := false

	v.Walk(func(n planview.Node) {
		if found || n.Kind != planview.NodeFilter || n.Predicate == nil {
			return
		}
		if e, changed := swapExpr(n.Predicate); changed {
			target = n
			rewrittenExpr = e
			found = true
		}
	})
	if !found {
		return v, false, nil
	}

	newNode := target
	newNode.Predicate = rewrittenExpr
	return v.WithNode(newNode), true, nil
}

// swapExpr rewrites the first Literal-op-ColumnRef comparison it finds
// in e's tree into the canonical ColumnRef-op-Literal form, reporting
// whether it changed anything.
func swapExpr(e operator.Expr) (operator.Expr, bool) {
	switch n := e.(type) {
	case operator.Comparison:
		if _, lok := n.Left.(operator.Literal); lok {
			if _, rok := n.Right.(operator.ColumnRef); rok {
				return operator.Comparison{Op: flip(n.Op), Left: n.Right, Right: n.Left}, true
			}
		}
		if left, changed := swapExpr(n.Left); changed {
			return operator.Comparison{Op: n.Op, Left: left, Right: n.Right}, true
		}
		if right, changed := swapExpr(n.Right); changed {
			return operator.Comparison{Op: n.Op, Left: n.Left, Right: right}, true
		}
		return n, false

	case operator.Logical:
		for i, c := range n.Children {
			if rewritten, changed := swapExpr(c); changed {
				children := append([]operator.Expr(nil), n.Children...)
				children[i] = rewritten
				return operator.Logical{Op: n.Op, Children: children}, true
			}
		}
		return n, false

	default:
		return e, false
	}
}

func flip(op operator.CompareOp) operator.CompareOp {
	switch op {
	case operator.OpLt:
		return operator.OpGt
	case operator.OpLte:
		return operator.OpGte
	case operator.OpGt:
		return operator.OpLt
	case operator.OpGte:
		return operator.OpLte
	default:
		return op // Eq/Neq are symmetric
	}
}
