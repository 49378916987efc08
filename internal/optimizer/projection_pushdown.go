package optimizer

import (
	"sort"

	"github.com/corvusdb/corvusdb/internal/operator"
	"github.com/corvusdb/corvusdb/internal/planview"
	"github.com/corvusdb/corvusdb/internal/record"
)

// ProjectionPushdown narrows a TableScan's output schema down to only
// the columns a Projection sitting directly above it actually
// references, per spec §4.I's "narrow the row width as early as
// possible" — the scan decodes and the rest of the plan carries fewer
// columns instead of the full row only to have Projection discard most
// of it at the very end. It matches Projection(TableScan) exactly; a
// Projection with a Filter between it and the scan is left alone,
// since the filter's own predicate may need columns the final
// projection doesn't, and pruning past it without tracking the
// filter's column usage too would break it.
type ProjectionPushdown struct{}

func (ProjectionPushdown) Apply(v planview.View) (planview.View, bool, error) {
	var target, scan planview.Node
	found := false
	v.Walk(func(n planview.Node) {
		if found || n.Kind != planview.NodeProjection || len(n.Children) != 1 {
			return
		}
		child, ok := v.Node(n.Children[0])
		if !ok || child.Kind != planview.NodeTableScan {
			return
		}
		target, scan = n, child
		found = true
	})
	if !found {
		return v, false, nil
	}

	needed := map[int]bool{}
	for _, e := range target.Projections {
		collectColumnIndices(e, needed)
	}
	if len(needed) == 0 || len(needed) >= scan.OutputSchema.NumCols() {
		// Nothing to prune, or the projection already needs every
		// column the scan produces.
		return v, false, nil
	}

	ordered := make([]int, 0, len(needed))
	for idx := range needed {
		ordered = append(ordered, idx)
	}
	sort.Ints(ordered)

	remap := make(map[int]int, len(ordered))
	newCols := make([]record.Column, len(ordered))
	for newIdx, oldIdx := range ordered {
		remap[oldIdx] = newIdx
		newCols[newIdx] = scan.OutputSchema.Cols[oldIdx]
	}

	newScan := scan
	newScan.OutputSchema = record.Schema{Cols: newCols}

	newExprs := make([]operator.Expr, len(target.Projections))
	for i, e := range target.Projections {
		newExprs[i] = remapColumnIndices(e, remap)
	}
	newProj := target
	newProj.Projections = newExprs

	rewritten := v.WithNode(newScan).WithNode(newProj)
	return rewritten, true, nil
}

// remapColumnIndices rebuilds e with every ColumnRef.Index translated
// through remap, for a projection expression whose upstream scan just
// had unreferenced columns pruned out from under it.
func remapColumnIndices(e operator.Expr, remap map[int]int) operator.Expr {
	switch n := e.(type) {
	case operator.ColumnRef:
		if newIdx, ok := remap[n.Index]; ok {
			return operator.ColumnRef{Index: newIdx}
		}
		return n
	case operator.Comparison:
		return operator.Comparison{Op: n.Op, Left: remapColumnIndices(n.Left, remap), Right: remapColumnIndices(n.Right, remap)}
	case operator.Logical:
		children := make([]operator.Expr, len(n.Children))
		for i, c := range n.Children {
			children[i] = remapColumnIndices(c, remap)
		}
		return operator.Logical{Op: n.Op, Children: children}
	case operator.Arithmetic:
		return operator.Arithmetic{Op: n.Op, Left: remapColumnIndices(n.Left, remap), Right: remapColumnIndices(n.Right, remap)}
	default:
		return e
	}
}
