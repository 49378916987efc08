// Package optimizer implements the rule-based rewriter over
// internal/planview: a fixed battery of rules, each either rewriting
// one View into another or reporting "no match", driven to a fixpoint
// by repeated application. Grounded on the teacher's planner.Builder
// (internal/sql/planner/builder.go), which picks one fixed transform
// (seq scan vs index lookup) per statement at build time; this package
// generalizes that single hand-picked choice into a set of independently
// applicable, composable rewrite rules run to convergence, per spec's
// optimizer requirement.
package optimizer

import (
	"fmt"
	"log/slog"

	"github.com/corvusdb/corvusdb/internal/dberr"
	"github.com/corvusdb/corvusdb/internal/planview"
)

const logPrefix = "optimizer: "

// maxFixpointIterations bounds the rewrite loop; a rule set that keeps
// finding changes past this many passes is diverging (e.g. two rules
// undoing each other) rather than converging, and the plan is rejected
// instead of looping forever.
const maxFixpointIterations = 32

// Rule rewrites a View. Apply returns the rewritten view and changed
// =true if it matched and rewrote something; changed=false (with the
// input view returned unchanged) if the rule found nothing to do.
type Rule interface {
	Apply(v planview.View) (rewritten planview.View, changed bool, err error)
}

// DefaultRules returns the engine's four required rewrite rules, in the
// order Run applies them each pass.
func DefaultRules() []Rule {
	return []Rule{
		PredicatePushdown{},
		ProjectionPushdown{},
		SwapOperands{},
		IndexScanOptimization{},
	}
}

// Run drives rules to a fixpoint: each pass applies every rule in
// order, and the loop repeats as long as any rule changed the view in
// the last pass. It returns dberr.ErrOptimizerDiverged if no fixpoint is
// reached within maxFixpointIterations passes.
func Run(v planview.View, rules []Rule) (planview.View, error) {
	for i := 0; i < maxFixpointIterations; i++ {
		changedThisPass := false
		for _, r := range rules {
			rewritten, changed, err := r.Apply(v)
			if err != nil {
				return planview.View{}, err
			}
			if changed {
				slog.Debug(logPrefix+"rule applied", "rule", fmt.Sprintf("%T", r), "pass", i)
				v = rewritten
				changedThisPass = true
			}
		}
		if !changedThisPass {
			slog.Debug(logPrefix+"reached fixpoint", "pass", i)
			return v, nil
		}
	}
	slog.Warn(logPrefix+"did not reach fixpoint", "maxPasses", maxFixpointIterations)
	return planview.View{}, dberr.ErrOptimizerDiverged
}
