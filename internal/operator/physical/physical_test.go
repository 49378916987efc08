package physical

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corvusdb/corvusdb/internal/buffer"
	"github.com/corvusdb/corvusdb/internal/dberr"
	"github.com/corvusdb/corvusdb/internal/heap"
	"github.com/corvusdb/corvusdb/internal/index"
	"github.com/corvusdb/corvusdb/internal/operator"
	"github.com/corvusdb/corvusdb/internal/record"
	"github.com/corvusdb/corvusdb/internal/replacement"
	"github.com/corvusdb/corvusdb/internal/storage"
)

func testSchema() record.Schema {
	return record.Schema{Cols: []record.Column{
		{Name: "id", Type: record.ColInt64},
		{Name: "name", Type: record.ColText, FixedLen: 16},
	}}
}

func newTestHeapForScan(t *testing.T, capacity int) *heap.Heap {
	t.Helper()
	dm, err := storage.OpenDiskManager(filepath.Join(t.TempDir(), "physical.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = dm.Close() })

	bm := buffer.New(dm, capacity, replacement.NewLRU())
	hp, err := heap.New(bm)
	require.NoError(t, err)
	return hp
}

// constRows feeds a fixed in-memory slice of tuples, acting as a stand-
// in "values" source for exercising Insert in isolation.
type constRows struct {
	schema record.Schema
	rows   []operator.Tuple
	pos    int
}

func (c *constRows) Open(context.Context) error { c.pos = 0; return nil }
func (c *constRows) Next(context.Context) (operator.Tuple, bool, error) {
	if c.pos >= len(c.rows) {
		return nil, true, nil
	}
	row := c.rows[c.pos]
	c.pos++
	return row, false, nil
}
func (c *constRows) Close(context.Context) error  { return nil }
func (c *constRows) Schema() record.Schema        { return c.schema }
func (c *constRows) YieldsData() bool             { return true }

func mustInsertRows(t *testing.T, hp *heap.Heap, schema record.Schema, rows []operator.Tuple) {
	t.Helper()
	ctx := context.Background()
	src := &constRows{schema: schema, rows: rows}
	ins := NewInsert(src, hp, schema)
	require.NoError(t, ins.Open(ctx))
	_, end, err := ins.Next(ctx)
	require.NoError(t, err)
	require.True(t, end)
	require.Equal(t, len(rows), ins.Inserted())
	require.NoError(t, ins.Close(ctx))
}

func TestTableScanYieldsInsertedRows(t *testing.T) {
	schema := testSchema()
	hp := newTestHeapForScan(t, 4)
	mustInsertRows(t, hp, schema, []operator.Tuple{
		{record.Value{Type: record.ColInt64, I64: 1}, record.Value{Type: record.ColText, Bytes: []byte("alice")}},
		{record.Value{Type: record.ColInt64, I64: 2}, record.Value{Type: record.ColText, Bytes: []byte("bob")}},
	})

	ctx := context.Background()
	scan := NewTableScan(hp, schema)
	require.NoError(t, scan.Open(ctx))
	defer scan.Close(ctx)

	var ids []int64
	for {
		row, end, err := scan.Next(ctx)
		require.NoError(t, err)
		if end {
			break
		}
		ids = append(ids, row[0].I64)
	}
	require.ElementsMatch(t, []int64{1, 2}, ids)
}

func TestFilterPassesOnlyMatchingRows(t *testing.T) {
	schema := testSchema()
	hp := newTestHeapForScan(t, 4)
	mustInsertRows(t, hp, schema, []operator.Tuple{
		{record.Value{Type: record.ColInt64, I64: 1}, record.Value{Type: record.ColText, Bytes: []byte("alice")}},
		{record.Value{Type: record.ColInt64, I64: 2}, record.Value{Type: record.ColText, Bytes: []byte("bob")}},
	})

	ctx := context.Background()
	scan := NewTableScan(hp, schema)
	pred := operator.Comparison{
		Op:    operator.OpEq,
		Left:  operator.ColumnRef{Index: 0},
		Right: operator.Literal{Value: record.Value{Type: record.ColInt64, I64: 2}},
	}
	filter := NewFilter(scan, pred)
	require.NoError(t, filter.Open(ctx))
	defer filter.Close(ctx)

	row, end, err := filter.Next(ctx)
	require.NoError(t, err)
	require.False(t, end)
	require.Equal(t, int64(2), row[0].I64)

	_, end, err = filter.Next(ctx)
	require.NoError(t, err)
	require.True(t, end)
}

func TestProjectionNarrowsSchema(t *testing.T) {
	schema := testSchema()
	hp := newTestHeapForScan(t, 4)
	mustInsertRows(t, hp, schema, []operator.Tuple{
		{record.Value{Type: record.ColInt64, I64: 7}, record.Value{Type: record.ColText, Bytes: []byte("x")}},
	})

	ctx := context.Background()
	scan := NewTableScan(hp, schema)
	out := record.Schema{Cols: []record.Column{{Name: "id", Type: record.ColInt64}}}
	proj := NewProjection(scan, []operator.Expr{operator.ColumnRef{Index: 0}}, out)
	require.NoError(t, proj.Open(ctx))
	defer proj.Close(ctx)

	row, end, err := proj.Next(ctx)
	require.NoError(t, err)
	require.False(t, end)
	require.Len(t, row, 1)
	require.Equal(t, int64(7), row[0].I64)
}

func TestLimitWithOffset(t *testing.T) {
	schema := testSchema()
	hp := newTestHeapForScan(t, 4)
	mustInsertRows(t, hp, schema, []operator.Tuple{
		{record.Value{Type: record.ColInt64, I64: 1}, record.Value{Type: record.ColText, Bytes: []byte("a")}},
		{record.Value{Type: record.ColInt64, I64: 2}, record.Value{Type: record.ColText, Bytes: []byte("b")}},
		{record.Value{Type: record.ColInt64, I64: 3}, record.Value{Type: record.ColText, Bytes: []byte("c")}},
	})

	ctx := context.Background()
	scan := NewTableScan(hp, schema)
	lim := NewLimit(scan, 1, 1)
	require.NoError(t, lim.Open(ctx))
	defer lim.Close(ctx)

	row, end, err := lim.Next(ctx)
	require.NoError(t, err)
	require.False(t, end)
	require.NotNil(t, row)

	_, end, err = lim.Next(ctx)
	require.NoError(t, err)
	require.True(t, end)
}

func TestInsertThenDeleteRemovesRow(t *testing.T) {
	schema := testSchema()
	hp := newTestHeapForScan(t, 4)
	mustInsertRows(t, hp, schema, []operator.Tuple{
		{record.Value{Type: record.ColInt64, I64: 1}, record.Value{Type: record.ColText, Bytes: []byte("a")}},
		{record.Value{Type: record.ColInt64, I64: 2}, record.Value{Type: record.ColText, Bytes: []byte("b")}},
	})

	ctx := context.Background()
	scan := NewTableScan(hp, schema)
	pred := operator.Comparison{
		Op:    operator.OpEq,
		Left:  operator.ColumnRef{Index: 0},
		Right: operator.Literal{Value: record.Value{Type: record.ColInt64, I64: 1}},
	}
	filter := NewFilter(scan, pred)
	del := NewDelete(filter, hp)
	require.NoError(t, del.Open(ctx))
	_, end, err := del.Next(ctx)
	require.NoError(t, err)
	require.True(t, end)
	require.Equal(t, 1, del.Deleted())
	require.NoError(t, del.Close(ctx))
	require.Equal(t, uint64(1), hp.RecordCount())

	remaining := NewTableScan(hp, schema)
	require.NoError(t, remaining.Open(ctx))
	defer remaining.Close(ctx)
	var ids []int64
	for {
		row, end, err := remaining.Next(ctx)
		require.NoError(t, err)
		if end {
			break
		}
		ids = append(ids, row[0].I64)
	}
	require.Equal(t, []int64{2}, ids)
}

func TestBuildIndexPopulatesFromScan(t *testing.T) {
	schema := testSchema()
	hp := newTestHeapForScan(t, 4)
	mustInsertRows(t, hp, schema, []operator.Tuple{
		{record.Value{Type: record.ColInt64, I64: 1}, record.Value{Type: record.ColText, Bytes: []byte("a")}},
		{record.Value{Type: record.ColInt64, I64: 2}, record.Value{Type: record.ColText, Bytes: []byte("b")}},
	})

	ctx := context.Background()
	scan := NewTableScan(hp, schema)
	idx := index.NewOrdered()
	bi := NewBuildIndex(nil, scan, idx, 0)
	require.NoError(t, bi.Open(ctx))
	_, end, err := bi.Next(ctx)
	require.NoError(t, err)
	require.True(t, end)
	require.Equal(t, 2, bi.Built())
	require.NoError(t, bi.Close(ctx))

	rids, err := idx.SearchEqual(record.Value{Type: record.ColInt64, I64: 2})
	require.NoError(t, err)
	require.Len(t, rids, 1)
}

func TestIndexScanEqualFetchesMatchingTuple(t *testing.T) {
	schema := testSchema()
	hp := newTestHeapForScan(t, 4)
	mustInsertRows(t, hp, schema, []operator.Tuple{
		{record.Value{Type: record.ColInt64, I64: 5}, record.Value{Type: record.ColText, Bytes: []byte("five")}},
	})

	ctx := context.Background()
	scan := NewTableScan(hp, schema)
	idx := index.NewOrdered()
	bi := NewBuildIndex(nil, scan, idx, 0)
	require.NoError(t, bi.Open(ctx))
	_, _, err := bi.Next(ctx)
	require.NoError(t, err)
	require.NoError(t, bi.Close(ctx))

	iscan := NewIndexScanEqual(hp, idx, schema, record.Value{Type: record.ColInt64, I64: 5})
	require.NoError(t, iscan.Open(ctx))
	defer iscan.Close(ctx)

	row, end, err := iscan.Next(ctx)
	require.NoError(t, err)
	require.False(t, end)
	require.Equal(t, int64(5), row[0].I64)

	_, end, err = iscan.Next(ctx)
	require.NoError(t, err)
	require.True(t, end)
}

func TestIndexScanSkipsStaleEntryAfterErase(t *testing.T) {
	schema := testSchema()
	hp := newTestHeapForScan(t, 4)
	mustInsertRows(t, hp, schema, []operator.Tuple{
		{record.Value{Type: record.ColInt64, I64: 5}, record.Value{Type: record.ColText, Bytes: []byte("five")}},
		{record.Value{Type: record.ColInt64, I64: 7}, record.Value{Type: record.ColText, Bytes: []byte("seven")}},
	})

	ctx := context.Background()
	scan := NewTableScan(hp, schema)
	idx := index.NewOrdered()
	bi := NewBuildIndex(nil, scan, idx, 0)
	require.NoError(t, bi.Open(ctx))
	_, _, err := bi.Next(ctx)
	require.NoError(t, err)
	require.NoError(t, bi.Close(ctx))

	// Erase the row under key 5 directly through the heap, leaving the
	// index's entry for it stale (pointing at a now-tombstoned slot).
	rids, err := idx.SearchEqual(record.Value{Type: record.ColInt64, I64: 5})
	require.NoError(t, err)
	require.Len(t, rids, 1)
	require.NoError(t, hp.Erase(rids[0]))

	iscan := NewIndexScanEqual(hp, idx, schema, record.Value{Type: record.ColInt64, I64: 5})
	require.NoError(t, iscan.Open(ctx))
	defer iscan.Close(ctx)

	_, end, err := iscan.Next(ctx)
	require.NoError(t, err)
	require.True(t, end, "stale index entry should be silently skipped, not surfaced as an error")
}

func TestTableScanAbortsOnCanceledContext(t *testing.T) {
	schema := testSchema()
	hp := newTestHeapForScan(t, 4)
	mustInsertRows(t, hp, schema, []operator.Tuple{
		{record.Value{Type: record.ColInt64, I64: 1}, record.Value{Type: record.ColText, Bytes: []byte("a")}},
	})

	ctx, cancel := context.WithCancel(context.Background())
	scan := NewTableScan(hp, schema)
	require.NoError(t, scan.Open(ctx))
	defer scan.Close(context.Background())

	cancel()
	_, _, err := scan.Next(ctx)
	require.Error(t, err)
	require.True(t, errors.Is(err, dberr.ErrAborted))
}
