package physical

import (
	"context"

	"github.com/corvusdb/corvusdb/internal/dberr"
	"github.com/corvusdb/corvusdb/internal/heap"
	"github.com/corvusdb/corvusdb/internal/operator"
	"github.com/corvusdb/corvusdb/internal/record"
)

// Delete is a non-yielding operator: a single Next call drains Child
// (typically a TableScan, possibly filtered) entirely, erasing the row
// at each yielded tuple's RID, then returns END. Like Insert, it holds
// its target page pinned across consecutive deletes landing on the
// same page via heap.FixHeld, only releasing it on a page switch or at
// the end of the scan. Grounded on the teacher's execDelete.
//
// Child must be, or forward to, a ridSource (TableScan and Filter both
// qualify); any other child is a construction-time error by the plan
// builder, not something Delete can recover from at runtime.
type Delete struct {
	child operator.Operator
	heap  *heap.Heap

	deleted int
	done    bool
}

func NewDelete(child operator.Operator, h *heap.Heap) *Delete {
	return &Delete{child: child, heap: h}
}

func (d *Delete) Open(ctx context.Context) error {
	d.done = false
	d.deleted = 0
	return d.child.Open(ctx)
}

func (d *Delete) Next(ctx context.Context) (operator.Tuple, bool, error) {
	if d.done {
		return nil, true, nil
	}
	d.done = true

	rs, ok := d.child.(ridSource)
	if !ok {
		return nil, false, dberr.Wrap("physical.Delete",
			dberr.ErrConfig)
	}

	var held *heap.PinnedPage
	for {
		if err := checkAborted(ctx, "physical.Delete"); err != nil {
			_ = d.heap.ReleaseHeld(held)
			return nil, false, err
		}
		_, end, err := d.child.Next(ctx)
		if err != nil {
			_ = d.heap.ReleaseHeld(held)
			return nil, false, dberr.Wrap("physical.Delete", err)
		}
		if end {
			break
		}
		rid := rs.CurrentRID()

		newHeld, err := d.heap.FixHeld(rid.PageID, held)
		held = newHeld
		if err != nil {
			_ = d.heap.ReleaseHeld(held)
			return nil, false, dberr.Wrap("physical.Delete", err)
		}
		if err := d.heap.EraseHeld(held, rid.Slot); err != nil {
			_ = d.heap.ReleaseHeld(held)
			return nil, false, dberr.Wrap("physical.Delete", err)
		}
		d.deleted++
	}
	if err := d.heap.ReleaseHeld(held); err != nil {
		return nil, false, dberr.Wrap("physical.Delete", err)
	}
	return nil, true, nil
}

func (d *Delete) Close(ctx context.Context) error {
	return d.child.Close(ctx)
}

func (d *Delete) Schema() record.Schema { return record.Schema{} }
func (d *Delete) YieldsData() bool      { return false }

// Deleted reports how many rows the last Next call erased.
func (d *Delete) Deleted() int { return d.deleted }
