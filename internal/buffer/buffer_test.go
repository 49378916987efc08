package buffer

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corvusdb/corvusdb/internal/dberr"
	"github.com/corvusdb/corvusdb/internal/replacement"
	"github.com/corvusdb/corvusdb/internal/storage"
)

func newTestManager(t *testing.T, capacity int) (*Manager, *storage.DiskManager) {
	t.Helper()
	dm, err := storage.OpenDiskManager(filepath.Join(t.TempDir(), "t.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = dm.Close() })
	return New(dm, capacity, replacement.NewLRU()), dm
}

func TestNewPageAndFix(t *testing.T) {
	m, _ := newTestManager(t, 4)

	pageID, h, err := m.NewPage(storage.PageTypeData)
	require.NoError(t, err)
	require.NoError(t, m.Unfix(h, true))

	h2, err := m.Fix(pageID, ReadMode)
	require.NoError(t, err)
	require.Equal(t, pageID, h2.PageID)
	require.NoError(t, m.Unfix(h2, false))
}

func TestFixEvictsWhenFull(t *testing.T) {
	m, _ := newTestManager(t, 2)

	id1, h1, err := m.NewPage(storage.PageTypeData)
	require.NoError(t, err)
	require.NoError(t, m.Unfix(h1, true))

	id2, h2, err := m.NewPage(storage.PageTypeData)
	require.NoError(t, err)
	require.NoError(t, m.Unfix(h2, true))

	// Both frames are now unpinned; fixing a third page must evict one.
	id3, h3, err := m.NewPage(storage.PageTypeData)
	require.NoError(t, err)
	require.NoError(t, m.Unfix(h3, true))

	// All three ids must still be independently readable afterward.
	for _, id := range []uint32{id1, id2, id3} {
		h, err := m.Fix(id, ReadMode)
		require.NoError(t, err)
		require.NoError(t, m.Unfix(h, false))
	}
}

func TestFixReturnsNoFreeFrameWhenAllPinned(t *testing.T) {
	m, _ := newTestManager(t, 1)

	_, h1, err := m.NewPage(storage.PageTypeData)
	require.NoError(t, err)

	_, _, err = m.NewPage(storage.PageTypeData)
	require.ErrorIs(t, err, dberr.ErrNoFreeFrame)

	require.NoError(t, m.Unfix(h1, false))
}

func TestUnfixRejectsDoubleUnpin(t *testing.T) {
	m, _ := newTestManager(t, 2)

	_, h, err := m.NewPage(storage.PageTypeData)
	require.NoError(t, err)
	require.NoError(t, m.Unfix(h, false))
	require.Error(t, m.Unfix(h, false))
}

func TestFlushAllClearsDirtyPages(t *testing.T) {
	m, dm := newTestManager(t, 2)

	pageID, h, err := m.NewPage(storage.PageTypeData)
	require.NoError(t, err)
	page := storage.Page{Buf: h.Bytes(m)}
	_, err = page.InsertTuple([]byte("payload"))
	require.NoError(t, err)
	require.NoError(t, m.Unfix(h, true))

	require.NoError(t, m.FlushAll())

	raw, err := dm.Read(pageID)
	require.NoError(t, err)
	onDisk := storage.Page{Buf: raw}
	tup, err := onDisk.ReadTuple(0)
	require.NoError(t, err)
	require.Equal(t, []byte("payload"), tup)
}
