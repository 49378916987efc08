package optimizer

import (
	"github.com/google/uuid"

	"github.com/corvusdb/corvusdb/internal/operator"
	"github.com/corvusdb/corvusdb/internal/planview"
)

// PredicatePushdown moves a Filter below the Projection or LogicalJoin
// sitting directly above it, per spec §4.I's "push selections below
// joins/projections". It matches at most one site per call; repeated
// passes make no further change once every such site has been pushed,
// which is what lets Run's fixpoint loop terminate.
type PredicatePushdown struct{}

func (PredicatePushdown) Apply(v planview.View) (planview.View, bool, error) {
	if rewritten, changed, err := pushFilterBelowProjection(v); changed || err != nil {
		return rewritten, changed, err
	}
	return pushFilterBelowJoin(v)
}

// pushFilterBelowProjection moves a Filter below a Projection that sits
// directly above it, so the predicate evaluates against the wider
// pre-projection row instead of forcing Projection to retain columns the
// final output doesn't need just so a higher Filter can reference them.
func pushFilterBelowProjection(v planview.View) (planview.View, bool, error) {
	var target planview.Node
	found := false
	v.Walk(func(n planview.Node) {
		if found || n.Kind != planview.NodeFilter || len(n.Children) != 1 {
			return
		}
		child, ok := v.Node(n.Children[0])
		if !ok || child.Kind != planview.NodeProjection || len(child.Children) != 1 {
			return
		}
		target = n
		found = true
	})
	if !found {
		return v, false, nil
	}

	proj, _ := v.Node(target.Children[0])
	grandchildID := proj.Children[0]

	newFilterID := uuid.New()
	newFilter := target
	newFilter.ID = newFilterID
	newFilter.Children = []uuid.UUID{grandchildID}

	newProj := proj
	newProj.Children = []uuid.UUID{newFilterID}

	rewritten := v.WithNode(newFilter).WithNode(newProj)
	rewritten = rewritten.Replace(target.ID, proj.ID)
	return rewritten, true, nil
}

// pushFilterBelowJoin moves a Filter that sits directly above a
// LogicalJoin below whichever side of the join all of its predicate's
// column references resolve to, narrowing that side's row count before
// the join evaluates instead of after. A LogicalJoin's OutputSchema is
// the concatenation of its left child's columns followed by its right
// child's, so a ColumnRef.Index below the left child's NumCols belongs
// to the left side and one at or above it belongs to the right (shifted
// down by the left side's width once moved there). A predicate that
// references columns from both sides is the join condition itself, not
// a pushable selection, and is left in place.
func pushFilterBelowJoin(v planview.View) (planview.View, bool, error) {
	var filterNode, joinNode planview.Node
	found := false
	v.Walk(func(n planview.Node) {
		if found || n.Kind != planview.NodeFilter || len(n.Children) != 1 {
			return
		}
		child, ok := v.Node(n.Children[0])
		if !ok || child.Kind != planview.NodeLogicalJoin || len(child.Children) != 2 {
			return
		}
		filterNode, joinNode = n, child
		found = true
	})
	if !found {
		return v, false, nil
	}

	left, ok := v.Node(joinNode.Children[0])
	if !ok {
		return v, false, nil
	}
	leftN := left.OutputSchema.NumCols()

	cols := map[int]bool{}
	collectColumnIndices(filterNode.Predicate, cols)
	if len(cols) == 0 {
		return v, false, nil
	}

	side := -1
	for idx := range cols {
		s := 0
		if idx >= leftN {
			s = 1
		}
		if side == -1 {
			side = s
		} else if side != s {
			// References both sides: this is the join condition, not a
			// selection pushable to a single side.
			return v, false, nil
		}
	}

	pred := filterNode.Predicate
	var newJoinChildren [2]uuid.UUID
	newJoinChildren[0], newJoinChildren[1] = joinNode.Children[0], joinNode.Children[1]

	var targetChildID uuid.UUID
	if side == 0 {
		targetChildID = joinNode.Children[0]
	} else {
		targetChildID = joinNode.Children[1]
		pred = shiftColumnIndices(pred, -leftN)
	}

	newFilterID := uuid.New()
	newFilter := planview.Node{
		ID:        newFilterID,
		Kind:      planview.NodeFilter,
		Children:  []uuid.UUID{targetChildID},
		Predicate: pred,
	}
	newJoinChildren[side] = newFilterID

	newJoin := joinNode
	newJoin.Children = []uuid.UUID{newJoinChildren[0], newJoinChildren[1]}

	rewritten := v.WithNode(newFilter).WithNode(newJoin)
	rewritten = rewritten.Replace(filterNode.ID, joinNode.ID)
	return rewritten, true, nil
}

// collectColumnIndices gathers every ColumnRef.Index reachable from e
// into out.
func collectColumnIndices(e operator.Expr, out map[int]bool) {
	switch n := e.(type) {
	case operator.ColumnRef:
		out[n.Index] = true
	case operator.Comparison:
		collectColumnIndices(n.Left, out)
		collectColumnIndices(n.Right, out)
	case operator.Logical:
		for _, c := range n.Children {
			collectColumnIndices(c, out)
		}
	case operator.Arithmetic:
		collectColumnIndices(n.Left, out)
		collectColumnIndices(n.Right, out)
	}
}

// shiftColumnIndices rebuilds e with every ColumnRef.Index offset by
// delta, for a predicate moving to a join side whose columns start at a
// different offset than the joined row it was originally written
// against.
func shiftColumnIndices(e operator.Expr, delta int) operator.Expr {
	switch n := e.(type) {
	case operator.ColumnRef:
		return operator.ColumnRef{Index: n.Index + delta}
	case operator.Comparison:
		return operator.Comparison{Op: n.Op, Left: shiftColumnIndices(n.Left, delta), Right: shiftColumnIndices(n.Right, delta)}
	case operator.Logical:
		children := make([]operator.Expr, len(n.Children))
		for i, c := range n.Children {
			children[i] = shiftColumnIndices(c, delta)
		}
		return operator.Logical{Op: n.Op, Children: children}
	case operator.Arithmetic:
		return operator.Arithmetic{Op: n.Op, Left: shiftColumnIndices(n.Left, delta), Right: shiftColumnIndices(n.Right, delta)}
	default:
		return e
	}
}
