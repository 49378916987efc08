package heap

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corvusdb/corvusdb/internal/buffer"
	"github.com/corvusdb/corvusdb/internal/replacement"
	"github.com/corvusdb/corvusdb/internal/storage"
)

func newTestHeap(t *testing.T, capacity int) *Heap {
	t.Helper()
	dm, err := storage.OpenDiskManager(filepath.Join(t.TempDir(), "heap.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = dm.Close() })

	bm := buffer.New(dm, capacity, replacement.NewLRU())
	hp, err := New(bm)
	require.NoError(t, err)
	return hp
}

func TestInsertLookupRoundTrip(t *testing.T) {
	hp := newTestHeap(t, 4)

	rid, err := hp.Insert([]byte("row-one"))
	require.NoError(t, err)

	got, err := hp.Lookup(rid)
	require.NoError(t, err)
	require.Equal(t, []byte("row-one"), got)
	require.Equal(t, uint64(1), hp.RecordCount())
}

func TestEraseThenScanSkipsTombstone(t *testing.T) {
	hp := newTestHeap(t, 4)

	r1, err := hp.Insert([]byte("keep"))
	require.NoError(t, err)
	r2, err := hp.Insert([]byte("drop"))
	require.NoError(t, err)
	require.NoError(t, hp.Erase(r2))

	c := NewCursor(hp)
	require.NoError(t, c.Open())
	defer c.Close()

	rid, tup, ok, err := c.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, r1, rid)
	require.Equal(t, []byte("keep"), tup)

	_, _, ok, err = c.Next()
	require.NoError(t, err)
	require.False(t, ok, "tombstoned row must be skipped and chain exhausted")
}

func TestScanSpansMultiplePagesInOrder(t *testing.T) {
	hp := newTestHeap(t, 3)

	tup := make([]byte, 512)
	const n = 64
	var rids []RID
	for i := 0; i < n; i++ {
		row := append([]byte(nil), tup...)
		copy(row, fmt.Sprintf("row-%03d", i))
		rid, err := hp.Insert(row)
		require.NoError(t, err)
		rids = append(rids, rid)
	}
	require.Greater(t, hp.LastPageID(), hp.FirstPageID(), "64 rows of 512 bytes must span more than one page")

	c := NewCursor(hp)
	require.NoError(t, c.Open())
	defer c.Close()

	var seen []RID
	for {
		rid, _, ok, err := c.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		seen = append(seen, rid)
	}
	require.Equal(t, rids, seen, "scan must yield RIDs in page-chain then slot order")
}

func TestCursorNextIsIdempotentAfterEnd(t *testing.T) {
	hp := newTestHeap(t, 4)
	_, err := hp.Insert([]byte("x"))
	require.NoError(t, err)

	c := NewCursor(hp)
	require.NoError(t, c.Open())
	defer c.Close()

	_, _, ok, err := c.Next()
	require.NoError(t, err)
	require.True(t, ok)

	for i := 0; i < 3; i++ {
		_, _, ok, err := c.Next()
		require.NoError(t, err)
		require.False(t, ok)
	}
}

func TestInsertReusesTombstonedSlot(t *testing.T) {
	hp := newTestHeap(t, 4)

	r1, err := hp.Insert([]byte("aaaa"))
	require.NoError(t, err)
	require.NoError(t, hp.Erase(r1))

	r2, err := hp.Insert([]byte("bbbb"))
	require.NoError(t, err)
	require.Equal(t, r1, r2)
}
