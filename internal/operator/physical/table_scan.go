// Package physical implements the representative physical operators of
// spec §4.H over the operator.Operator contract: table scan, index
// scan, filter, projection, limit, insert, delete, build-index. Every
// operator generalizes a corresponding case from the teacher's
// Executor.execPlan type switch (execSeqScan, execIndexLookup,
// matchWhere, execInsert, execDelete) into a standalone pull-based
// iterator so they compose into trees instead of being hardwired into
// one big dispatch function.
package physical

import (
	"context"

	"github.com/corvusdb/corvusdb/internal/dberr"
	"github.com/corvusdb/corvusdb/internal/heap"
	"github.com/corvusdb/corvusdb/internal/operator"
	"github.com/corvusdb/corvusdb/internal/record"
)

// TableScan streams every live row of a table heap in RID order,
// decoding each with the table's schema. Grounded on the teacher's
// Table.Scan callback, restructured as a pull cursor so it fits
// open/next/close instead of driving a callback to completion in one
// call.
type TableScan struct {
	heap   *heap.Heap
	schema record.Schema

	cursor  *heap.Cursor
	lastRID heap.RID
}

func NewTableScan(h *heap.Heap, schema record.Schema) *TableScan {
	return &TableScan{heap: h, schema: schema}
}

func (t *TableScan) Open(ctx context.Context) error {
	if err := checkAborted(ctx, "physical.TableScan"); err != nil {
		return err
	}
	t.cursor = heap.NewCursor(t.heap)
	return t.cursor.Open()
}

func (t *TableScan) Next(ctx context.Context) (operator.Tuple, bool, error) {
	if err := checkAborted(ctx, "physical.TableScan"); err != nil {
		return nil, false, err
	}
	rid, raw, ok, err := t.cursor.Next()
	if err != nil {
		return nil, false, dberr.Wrap("physical.TableScan", err)
	}
	if !ok {
		return nil, true, nil
	}
	row, err := record.DecodeRow(t.schema, raw)
	if err != nil {
		return nil, false, dberr.Wrap("physical.TableScan", err)
	}
	t.lastRID = rid
	return operator.Tuple(row), false, nil
}

// CurrentRID reports the RID of the tuple most recently returned by
// Next. Delete walks the operator tree down to a ridSource to learn
// which row to erase after its predicate child accepts it.
func (t *TableScan) CurrentRID() heap.RID { return t.lastRID }

func (t *TableScan) Close(context.Context) error {
	return t.cursor.Close()
}

func (t *TableScan) Schema() record.Schema { return t.schema }
func (t *TableScan) YieldsData() bool      { return true }
