// Package heap implements the table heap: a doubly-linked chain of
// slotted data pages holding one table's rows, addressed by RID
// (page id, slot index). It generalizes the teacher's internal/heap
// package, replacing its callback-style Table.Scan and overflow-chain
// tuple storage with a restartable pull cursor (TableScan's open/next/
// close needs a resumable position, not a single callback sweep) and no
// overflow manager (fixed-width rows bounded by FixedLen always fit a
// page, per spec §4.E, so there is nothing to spill).
package heap

import (
	"errors"
	"log/slog"

	"go.uber.org/atomic"

	"github.com/corvusdb/corvusdb/internal/buffer"
	"github.com/corvusdb/corvusdb/internal/dberr"
	"github.com/corvusdb/corvusdb/internal/storage"
)

const logPrefix = "heap: "

// RID (Row ID) identifies one tuple's storage location: the data page
// holding it and its slot index within that page's slot directory.
type RID struct {
	PageID uint32
	Slot   int
}

// Heap is one table's chain of data pages. It does not know its
// schema's encoding; callers pass and receive already-encoded tuple
// bytes (record.EncodeRow/DecodeRow happen one layer up, in the table
// scan / insert / delete operators).
type Heap struct {
	bm          *buffer.Manager
	firstPageID uint32
	lastPageID  atomic.Uint32
	recordCount atomic.Uint64
}

// New allocates a fresh, empty heap: a single empty data page that is
// both the head and tail of the chain.
func New(bm *buffer.Manager) (*Heap, error) {
	pageID, h, err := bm.NewPage(storage.PageTypeData)
	if err != nil {
		return nil, err
	}
	if err := bm.Unfix(h, true); err != nil {
		return nil, err
	}
	hp := &Heap{bm: bm, firstPageID: pageID}
	hp.lastPageID.Store(pageID)
	return hp, nil
}

// Open wraps an existing page chain, e.g. one reloaded from the
// catalog, given its first/last page ids and current row count.
func Open(bm *buffer.Manager, firstPageID, lastPageID uint32, recordCount uint64) *Heap {
	hp := &Heap{bm: bm, firstPageID: firstPageID}
	hp.lastPageID.Store(lastPageID)
	hp.recordCount.Store(recordCount)
	return hp
}

func (hp *Heap) FirstPageID() uint32   { return hp.firstPageID }
func (hp *Heap) LastPageID() uint32    { return hp.lastPageID.Load() }
func (hp *Heap) RecordCount() uint64   { return hp.recordCount.Load() }

// Insert writes tup starting from the current last page, extending the
// chain via a freshly allocated page when the tail is full (spec §4.F:
// "find a page with free slots ... falling back to extending the chain
// via new_page").
func (hp *Heap) Insert(tup []byte) (RID, error) {
	pageID := hp.lastPageID.Load()

	for {
		h, err := hp.bm.Fix(pageID, buffer.WriteMode)
		if err != nil {
			return RID{}, err
		}
		page := storage.Page{Buf: h.Bytes(hp.bm)}

		slot, err := page.InsertTuple(tup)
		if errors.Is(err, storage.ErrNoSpace) {
			if uerr := hp.bm.Unfix(h, false); uerr != nil {
				return RID{}, uerr
			}
			nextID, err := hp.extendChain(pageID)
			if err != nil {
				return RID{}, err
			}
			pageID = nextID
			continue
		}
		if err != nil {
			_ = hp.bm.Unfix(h, false)
			return RID{}, err
		}

		if err := hp.bm.Unfix(h, true); err != nil {
			return RID{}, err
		}
		hp.recordCount.Add(1)
		return RID{PageID: pageID, Slot: slot}, nil
	}
}

// extendChain allocates a new tail page, links it after prevID, and
// advances the heap's last-page pointer.
func (hp *Heap) extendChain(prevID uint32) (uint32, error) {
	slog.Debug(logPrefix+"extending chain, page full", "prevPageID", prevID)
	newID, nh, err := hp.bm.NewPage(storage.PageTypeData)
	if err != nil {
		return 0, err
	}
	newPage := storage.Page{Buf: nh.Bytes(hp.bm)}
	newPage.SetPrevPageID(prevID)
	if err := hp.bm.Unfix(nh, true); err != nil {
		return 0, err
	}

	ph, err := hp.bm.Fix(prevID, buffer.WriteMode)
	if err != nil {
		return 0, err
	}
	prevPage := storage.Page{Buf: ph.Bytes(hp.bm)}
	prevPage.SetNextPageID(newID)
	if err := hp.bm.Unfix(ph, true); err != nil {
		return 0, err
	}

	hp.lastPageID.Store(newID)
	return newID, nil
}

// Erase tombstones the slot at rid. The reserved span is left in place
// for a future Insert to reuse (spec §4.F: "Space is not compacted").
func (hp *Heap) Erase(rid RID) error {
	h, err := hp.bm.Fix(rid.PageID, buffer.WriteMode)
	if err != nil {
		return err
	}
	page := storage.Page{Buf: h.Bytes(hp.bm)}
	if err := page.DeleteTuple(rid.Slot); err != nil {
		_ = hp.bm.Unfix(h, false)
		return err
	}
	if err := hp.bm.Unfix(h, true); err != nil {
		return err
	}
	hp.recordCount.Add(^uint64(0)) // decrement
	return nil
}

// Lookup fetches the tuple bytes stored at rid by direct page/slot
// access. A stale RID — out of range, or pointing at a tombstoned slot —
// reports dberr.ErrNotFound rather than the raw storage error, per spec
// §7's "NotFound ... converts to no matching tuple" for probe paths such
// as IndexScan.
func (hp *Heap) Lookup(rid RID) ([]byte, error) {
	h, err := hp.bm.Fix(rid.PageID, buffer.ReadMode)
	if err != nil {
		return nil, err
	}
	defer func() { _ = hp.bm.Unfix(h, false) }()

	page := storage.Page{Buf: h.Bytes(hp.bm)}
	raw, err := page.ReadTuple(rid.Slot)
	if errors.Is(err, storage.ErrBadSlot) {
		slog.Debug(logPrefix+"lookup found stale slot", "pageID", rid.PageID, "slot", rid.Slot)
		return nil, dberr.Wrap("heap.Heap", dberr.ErrNotFound)
	}
	if err != nil {
		return nil, dberr.Wrap("heap.Heap", err)
	}
	out := make([]byte, len(raw))
	copy(out, raw)
	return out, nil
}

// PinnedPage is a page handle a caller can hold open across consecutive
// operations that target the same page, avoiding a Fix/Unfix round trip
// per row. Insert and Delete physical operators use this to implement
// the spec's "_last_pinned_page" optimization (§4.H).
type PinnedPage struct {
	PageID uint32
	handle buffer.Handle
}

// InsertHeld writes tup into held if held is non-nil and still has
// room; otherwise it releases held (dirty) and fixes/extends onto a
// page with space, exactly like Insert. It returns the pinned page the
// caller should keep holding for the next call.
func (hp *Heap) InsertHeld(tup []byte, held *PinnedPage) (RID, *PinnedPage, error) {
	if held != nil {
		page := storage.Page{Buf: held.handle.Bytes(hp.bm)}
		if slot, err := page.InsertTuple(tup); err == nil {
			hp.recordCount.Add(1)
			return RID{PageID: held.PageID, Slot: slot}, held, nil
		} else if !errors.Is(err, storage.ErrNoSpace) {
			return RID{}, held, err
		}
	}

	if err := hp.ReleaseHeld(held); err != nil {
		return RID{}, nil, err
	}

	pageID := hp.lastPageID.Load()
	for {
		h, err := hp.bm.Fix(pageID, buffer.WriteMode)
		if err != nil {
			return RID{}, nil, err
		}
		page := storage.Page{Buf: h.Bytes(hp.bm)}

		slot, err := page.InsertTuple(tup)
		if errors.Is(err, storage.ErrNoSpace) {
			if uerr := hp.bm.Unfix(h, false); uerr != nil {
				return RID{}, nil, uerr
			}
			nextID, err := hp.extendChain(pageID)
			if err != nil {
				return RID{}, nil, err
			}
			pageID = nextID
			continue
		}
		if err != nil {
			_ = hp.bm.Unfix(h, false)
			return RID{}, nil, err
		}

		hp.recordCount.Add(1)
		return RID{PageID: pageID, Slot: slot}, &PinnedPage{PageID: pageID, handle: h}, nil
	}
}

// FixHeld pins pageID into held, reusing it without a refix if held
// already refers to pageID. Used by Delete to hold its target page
// across contiguous erases of the same page.
func (hp *Heap) FixHeld(pageID uint32, held *PinnedPage) (*PinnedPage, error) {
	if held != nil && held.PageID == pageID {
		return held, nil
	}
	if err := hp.ReleaseHeld(held); err != nil {
		return nil, err
	}
	h, err := hp.bm.Fix(pageID, buffer.WriteMode)
	if err != nil {
		return nil, err
	}
	return &PinnedPage{PageID: pageID, handle: h}, nil
}

// Page returns held's live page view for direct mutation (e.g. Delete's
// DeleteTuple call) without another Fix.
func (held *PinnedPage) Page(hp *Heap) storage.Page {
	return storage.Page{Buf: held.handle.Bytes(hp.bm)}
}

// EraseHeld tombstones the slot at (held.PageID, slot) on the page held
// already has pinned, and keeps the heap's record count consistent with
// Erase. The page is left pinned (dirty) for the caller to keep holding
// across further same-page deletes.
func (hp *Heap) EraseHeld(held *PinnedPage, slot int) error {
	page := held.Page(hp)
	if err := page.DeleteTuple(slot); err != nil {
		return err
	}
	hp.recordCount.Add(^uint64(0)) // decrement
	return nil
}

// ReleaseHeld unpins held as dirty. Safe to call with a nil held.
func (hp *Heap) ReleaseHeld(held *PinnedPage) error {
	if held == nil {
		return nil
	}
	return hp.bm.Unfix(held.handle, true)
}

// Cursor is a restartable, pull-based scan position over a Heap: Open
// pins the first page, Next yields (RID, tuple) pairs in page-chain then
// slot order and re-pins across page boundaries, Close releases any held
// pin. It exists because TableScan's open/next/close contract needs a
// resumable position, unlike the teacher's one-shot Table.Scan callback.
type Cursor struct {
	heap    *Heap
	pageID  uint32
	slot    int
	handle  buffer.Handle
	pinned  bool
	started bool
	done    bool
}

// NewCursor constructs a cursor over hp. It does not pin anything until
// Open is called.
func NewCursor(hp *Heap) *Cursor {
	return &Cursor{heap: hp}
}

// Open pins the heap's first page and positions the cursor before its
// first slot.
func (c *Cursor) Open() error {
	c.pageID = c.heap.firstPageID
	c.slot = -1
	c.started = true
	c.done = false
	return c.pinCurrent()
}

func (c *Cursor) pinCurrent() error {
	h, err := c.heap.bm.Fix(c.pageID, buffer.ReadMode)
	if err != nil {
		return err
	}
	c.handle = h
	c.pinned = true
	return nil
}

func (c *Cursor) unpinCurrent() error {
	if !c.pinned {
		return nil
	}
	err := c.heap.bm.Unfix(c.handle, false)
	c.pinned = false
	return err
}

// Next advances to the next live tuple, returning ok=false once the
// chain is exhausted. Idempotent after exhaustion.
func (c *Cursor) Next() (rid RID, tuple []byte, ok bool, err error) {
	if !c.started {
		return RID{}, nil, false, errors.New("heap: Cursor.Next called before Open")
	}
	if c.done {
		return RID{}, nil, false, nil
	}

	for {
		page := storage.Page{Buf: c.handle.Bytes(c.heap.bm)}
		c.slot++

		if c.slot < page.SlotCount() {
			if !page.IsLive(c.slot) {
				continue
			}
			raw, rerr := page.ReadTuple(c.slot)
			if rerr != nil {
				return RID{}, nil, false, dberr.Wrap("heap.Cursor", rerr)
			}
			out := make([]byte, len(raw))
			copy(out, raw)
			return RID{PageID: c.pageID, Slot: c.slot}, out, true, nil
		}

		next := page.NextPageID()
		if err := c.unpinCurrent(); err != nil {
			return RID{}, nil, false, err
		}
		if next == storage.InvalidPageID {
			c.done = true
			return RID{}, nil, false, nil
		}
		c.pageID = next
		c.slot = -1
		if err := c.pinCurrent(); err != nil {
			return RID{}, nil, false, err
		}
	}
}

// Close releases any pin the cursor currently holds. Safe to call
// multiple times.
func (c *Cursor) Close() error {
	c.done = true
	return c.unpinCurrent()
}
