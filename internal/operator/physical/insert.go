package physical

import (
	"context"

	"github.com/corvusdb/corvusdb/internal/dberr"
	"github.com/corvusdb/corvusdb/internal/heap"
	"github.com/corvusdb/corvusdb/internal/operator"
	"github.com/corvusdb/corvusdb/internal/record"
)

// Insert is a non-yielding operator: a single Next call drains Child
// entirely, encoding and inserting every row into Table, then returns
// END. It holds the heap's tail page pinned across consecutive rows
// landing on the same page (spec §4.H's "_last_pinned_page"
// optimization) rather than re-fixing per row, via heap.InsertHeld.
// Grounded on the teacher's execInsert, split out of the executor's
// dispatch switch and restructured around the held-pin heap API.
type Insert struct {
	child  operator.Operator
	heap   *heap.Heap
	schema record.Schema

	inserted int
	done     bool
}

func NewInsert(child operator.Operator, h *heap.Heap, schema record.Schema) *Insert {
	return &Insert{child: child, heap: h, schema: schema}
}

func (ins *Insert) Open(ctx context.Context) error {
	ins.done = false
	ins.inserted = 0
	return ins.child.Open(ctx)
}

func (ins *Insert) Next(ctx context.Context) (operator.Tuple, bool, error) {
	if ins.done {
		return nil, true, nil
	}
	ins.done = true

	var held *heap.PinnedPage
	for {
		if err := checkAborted(ctx, "physical.Insert"); err != nil {
			_ = ins.heap.ReleaseHeld(held)
			return nil, false, err
		}
		row, end, err := ins.child.Next(ctx)
		if err != nil {
			_ = ins.heap.ReleaseHeld(held)
			return nil, false, dberr.Wrap("physical.Insert", err)
		}
		if end {
			break
		}
		buf, err := record.EncodeRow(ins.schema, row)
		if err != nil {
			_ = ins.heap.ReleaseHeld(held)
			return nil, false, dberr.Wrap("physical.Insert", err)
		}
		_, newHeld, err := ins.heap.InsertHeld(buf, held)
		held = newHeld
		if err != nil {
			_ = ins.heap.ReleaseHeld(held)
			return nil, false, dberr.Wrap("physical.Insert", err)
		}
		ins.inserted++
	}
	if err := ins.heap.ReleaseHeld(held); err != nil {
		return nil, false, dberr.Wrap("physical.Insert", err)
	}
	return nil, true, nil
}

func (ins *Insert) Close(ctx context.Context) error {
	return ins.child.Close(ctx)
}

func (ins *Insert) Schema() record.Schema { return record.Schema{} }
func (ins *Insert) YieldsData() bool      { return false }

// Inserted reports how many rows the last Next call wrote, for callers
// (e.g. a server response) that want an affected-row count.
func (ins *Insert) Inserted() int { return ins.inserted }
