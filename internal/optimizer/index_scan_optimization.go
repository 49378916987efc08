package optimizer

import (
	"github.com/corvusdb/corvusdb/internal/operator"
	"github.com/corvusdb/corvusdb/internal/planview"
)

// IndexSpec names an index available over one table's column, for
// IndexScanOptimization to recognize a Filter it can satisfy without a
// full table scan.
type IndexSpec struct {
	TableName   string
	ColumnName  string
	ColumnIndex int
	IndexName   string
}

// IndexScanOptimization rewrites Filter(TableScan(t)) into a bare
// IndexScan node when the filter is an equality comparison on a column
// t has an index over, per available. The plan builder's later lowering
// step is responsible for turning the resulting NodeIndexScan into a
// physical.IndexScan bound to the live index.Index instance; this rule
// only decides that it's legal to do so.
//
// With a nil/empty available (the zero value returned by
// DefaultRules()), this rule never matches — a caller that wants it
// live constructs one with NewIndexScanOptimization(specs) from its
// catalog's index list.
type IndexScanOptimization struct {
	available map[string]IndexSpec // keyed by TableName + "." + ColumnName
}

func NewIndexScanOptimization(specs []IndexSpec) IndexScanOptimization {
	m := make(map[string]IndexSpec, len(specs))
	for _, s := range specs {
		m[s.TableName+"."+s.ColumnName] = s
	}
	return IndexScanOptimization{available: m}
}

func (r IndexScanOptimization) Apply(v planview.View) (planview.View, bool, error) {
	if len(r.available) == 0 {
		return v, false, nil
	}

	var filterNode, scanNode planview.Node
	var spec IndexSpec
	var keyLiteral operator.Literal
	found := false

	v.Walk(func(n planview.Node) {
		if found || n.Kind != planview.NodeFilter || len(n.Children) != 1 {
			return
		}
		child, ok := v.Node(n.Children[0])
		if !ok || child.Kind != planview.NodeTableScan {
			return
		}
		cmp, ok := n.Predicate.(operator.Comparison)
		if !ok || cmp.Op != operator.OpEq {
			return
		}
		col, ok := cmp.Left.(operator.ColumnRef)
		if !ok {
			return
		}
		lit, ok := cmp.Right.(operator.Literal)
		if !ok {
			return
		}
		if col.Index < 0 || col.Index >= child.OutputSchema.NumCols() {
			return
		}
		colName := child.OutputSchema.Cols[col.Index].Name
		s, ok := r.available[child.TableName+"."+colName]
		if !ok || s.ColumnIndex != col.Index {
			return
		}
		filterNode, scanNode, spec, keyLiteral, found = n, child, s, lit, true
	})
	if !found {
		return v, false, nil
	}

	newNode := planview.Node{
		ID:           filterNode.ID,
		Kind:         planview.NodeIndexScan,
		TableName:    scanNode.TableName,
		ColumnName:   spec.ColumnName,
		IndexName:    spec.IndexName,
		Predicate:    operator.Comparison{Op: operator.OpEq, Left: operator.ColumnRef{Index: spec.ColumnIndex}, Right: keyLiteral},
		OutputSchema: scanNode.OutputSchema,
	}
	return v.WithNode(newNode), true, nil
}
