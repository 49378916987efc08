// Package planview implements an immutable logical plan: a tree of
// Nodes addressed by opaque uuid.UUID handles rather than pointers, so
// rewrite rules (internal/optimizer) can describe "replace node X with
// this subtree" without ever mutating a shared struct in place. Every
// rewrite produces a brand new View; the old one remains valid and
// unchanged, which is what lets the optimizer's fixpoint driver compare
// successive views for "did anything change" without aliasing bugs.
//
// Grounded on the teacher's planner.Plan closed interface (plan.go):
// the same "fixed set of node kinds behind one sealed interface"
// discipline, generalized from the teacher's single mutable tree built
// once per statement to a handle-addressable, copy-on-rewrite view, and
// supplemented with a LogicalJoin node the teacher's single-table
// planner never needed, as a pushdown target for the optimizer's rules.
package planview

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/corvusdb/corvusdb/internal/operator"
	"github.com/corvusdb/corvusdb/internal/record"
)

// NodeKind enumerates the logical node shapes a View may contain.
type NodeKind int

const (
	NodeTableScan NodeKind = iota
	NodeIndexScan
	NodeFilter
	NodeProjection
	NodeLimit
	NodeLogicalJoin
	NodeInsert
	NodeDelete
	NodeBuildIndex
)

// Node is one immutable logical operator in a View, identified by ID.
// Children are referenced by ID, not by pointer, so a rewrite can swap
// a child's ID without touching the parent's fields.
type Node struct {
	ID       uuid.UUID
	Kind     NodeKind
	Children []uuid.UUID

	// Populated according to Kind; a node only ever uses the fields its
	// kind documents, the rest are zero.
	TableName    string
	ColumnName   string
	IndexName    string
	Predicate    operator.Expr
	Projections  []operator.Expr
	OutputSchema record.Schema
	LimitCount   int
	LimitOffset  int
	JoinOn       operator.Expr
}

// View is an immutable logical plan: a set of Nodes plus the ID of the
// root. Every query-rewrite produces a new View value; nothing in an
// existing View is ever mutated after construction.
type View struct {
	nodes map[uuid.UUID]Node
	root  uuid.UUID
}

// New builds a View from a node set and its root ID, copying the map so
// the caller's slice/map cannot mutate the View after construction.
func New(nodes []Node, root uuid.UUID) (View, error) {
	m := make(map[uuid.UUID]Node, len(nodes))
	for _, n := range nodes {
		m[n.ID] = n
	}
	if _, ok := m[root]; !ok {
		return View{}, fmt.Errorf("planview: root %s not present among nodes", root)
	}
	return View{nodes: m, root: root}, nil
}

// Root returns the plan's root node ID.
func (v View) Root() uuid.UUID { return v.root }

// Node looks up a node by ID. The second return is false if id is not
// present in this view.
func (v View) Node(id uuid.UUID) (Node, bool) {
	n, ok := v.nodes[id]
	return n, ok
}

// Children returns the direct child nodes of id, in order.
func (v View) Children(id uuid.UUID) []Node {
	n, ok := v.nodes[id]
	if !ok {
		return nil
	}
	out := make([]Node, 0, len(n.Children))
	for _, cid := range n.Children {
		if c, ok := v.nodes[cid]; ok {
			out = append(out, c)
		}
	}
	return out
}

// Walk visits every node reachable from the root exactly once, in
// pre-order, calling fn(node). Walk never mutates v; rewrites go through
// Replace/WithNode instead.
func (v View) Walk(fn func(Node)) {
	seen := make(map[uuid.UUID]bool)
	var rec func(id uuid.UUID)
	rec = func(id uuid.UUID) {
		if seen[id] {
			return
		}
		seen[id] = true
		n, ok := v.nodes[id]
		if !ok {
			return
		}
		fn(n)
		for _, c := range n.Children {
			rec(c)
		}
	}
	rec(v.root)
}

// WithNode returns a new View equal to v except that replaced's ID now
// maps to replaced, leaving v itself untouched. If replaced.ID equals
// v.Root() and that ID is not yet present, it additionally becomes the
// new view's root.
func (v View) WithNode(replaced Node) View {
	m := make(map[uuid.UUID]Node, len(v.nodes)+1)
	for id, n := range v.nodes {
		m[id] = n
	}
	m[replaced.ID] = replaced
	return View{nodes: m, root: v.root}
}

// Replace returns a new View where every reference to oldID (as root or
// as a child of any node) is rewritten to newID, and oldID's own entry
// is dropped. Used by
// rewrite rules that fold two nodes into one or substitute a subtree.
func (v View) Replace(oldID, newID uuid.UUID) View {
	m := make(map[uuid.UUID]Node, len(v.nodes))
	for id, n := range v.nodes {
		if id == oldID {
			continue
		}
		cp := n
		children := make([]uuid.UUID, len(n.Children))
		for i, c := range n.Children {
			if c == oldID {
				children[i] = newID
			} else {
				children[i] = c
			}
		}
		cp.Children = children
		m[id] = cp
	}
	root := v.root
	if root == oldID {
		root = newID
	}
	return View{nodes: m, root: root}
}

// NodeCount reports how many nodes are reachable from the root, for
// tests and diagnostics.
func (v View) NodeCount() int {
	n := 0
	v.Walk(func(Node) { n++ })
	return n
}
