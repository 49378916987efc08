// Package operator defines the volcano-style execution contract shared
// by every physical operator: open/next/close plus static schema() and
// yields_data(), and the expression tree predicates/projections are
// built from. It generalizes the teacher's SQL executor (which walked a
// planner.Plan with one big type switch in Executor.execPlan) into a
// composable pull-based iterator tree, per spec §4.G/4.H.
package operator

import (
	"context"

	"go.uber.org/multierr"

	"github.com/corvusdb/corvusdb/internal/record"
)

// Tuple is one row flowing through the operator tree, column-ordered
// per the owning operator's Schema.
type Tuple []record.Value

// Operator is the triple every physical operator exposes. Open is
// called exactly once before any Next; Next returns (nil, true, nil) on
// exhaustion and must keep doing so on every subsequent call; Close is
// called exactly once and must close every child. Non-yielding
// operators (Insert, Delete, BuildIndex) perform all their side effects
// inside Next and signal completion by returning END on the very first
// call, per spec §4.G.
type Operator interface {
	Open(ctx context.Context) error
	// Next returns the next tuple, or end=true if the operator is
	// exhausted. err is non-nil only on failure; on failure the
	// transaction aborts (see dberr.ErrAborted) and end/tuple are not
	// meaningful.
	Next(ctx context.Context) (tuple Tuple, end bool, err error)
	Close(ctx context.Context) error

	// Schema describes the columns Next's tuples carry.
	Schema() record.Schema
	// YieldsData reports whether Next ever returns a live tuple; false
	// for Insert/Delete/BuildIndex.
	YieldsData() bool
}

// CloseAll closes every child in order, aggregating every failure
// instead of stopping (or silently swallowing all but one) at the first
// error, so a failure on one child never skips closing the rest. Nil
// children are skipped, so callers can pass optional children (e.g. a
// BuildIndex's catalog-registration child) unconditionally.
func CloseAll(ctx context.Context, children ...Operator) error {
	var err error
	for _, c := range children {
		if c == nil {
			continue
		}
		err = multierr.Append(err, c.Close(ctx))
	}
	return err
}
