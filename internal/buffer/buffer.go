// Package buffer implements the buffer manager: the sole owner of a
// fixed-size pool of frames through which every page access to the disk
// manager passes. It generalizes the teacher's GlobalPool to the spec's
// fix/unfix/new_page/flush contract and makes eviction pluggable via
// internal/replacement instead of hard-coding a Clock adapter.
package buffer

import (
	"fmt"
	"log/slog"
	"sync"

	"go.uber.org/atomic"

	"github.com/corvusdb/corvusdb/internal/dberr"
	"github.com/corvusdb/corvusdb/internal/replacement"
	"github.com/corvusdb/corvusdb/internal/storage"
)

const logPrefix = "buffer: "

// Mode is the access intent a caller declares when fixing a page. The
// current implementation does not enforce reader/writer exclusion at
// this layer (that is left to the transaction context), but the mode is
// threaded through so a future latch implementation has it on hand.
type Mode int

const (
	ReadMode Mode = iota
	WriteMode
)

// frame is one slot of the pool: either empty or resident with a page.
type frame struct {
	pageID   uint32
	pageType storage.PageType
	buf      []byte
	dirty    bool
	pinCount int
}

// Handle is a pinned reference to a frame's byte buffer. Callers must
// call Manager.Unfix exactly once per Handle obtained from Fix or
// NewPage.
type Handle struct {
	PageID uint32
	Type   storage.PageType
	frame  int
}

// Bytes returns the handle's page buffer. It is the caller's
// responsibility not to retain the slice past Unfix.
func (h Handle) Bytes(m *Manager) []byte {
	return m.frames[h.frame].buf
}

// Manager is the single buffer manager for one disk manager's worth of
// pages. It owns its frame pool exclusively; pages are shared-by-handle.
type Manager struct {
	mu     sync.Mutex
	disk   *storage.DiskManager
	strat  replacement.Strategy
	clock  atomic.Uint64
	frames []frame
	table  map[uint32]int // pageID -> frame index
	free   []int          // free frame indices
}

// New constructs a Manager over disk with capacity frames and the given
// replacement strategy.
func New(disk *storage.DiskManager, capacity int, strat replacement.Strategy) *Manager {
	free := make([]int, capacity)
	for i := range free {
		free[i] = capacity - 1 - i // pop from the back, frame 0 handed out first
	}
	return &Manager{
		disk:   disk,
		strat:  strat,
		frames: make([]frame, capacity),
		table:  make(map[uint32]int),
		free:   free,
	}
}

// Fix pins pageID, reading it from disk on a miss. It returns
// dberr.ErrNoFreeFrame if every frame is pinned and no frame currently
// holds pageID.
func (m *Manager) Fix(pageID uint32, _ Mode) (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if idx, ok := m.table[pageID]; ok {
		m.frames[idx].pinCount++
		ts := m.clock.Add(1)
		m.strat.OnPin(idx, ts)
		return Handle{PageID: pageID, Type: m.frames[idx].pageType, frame: idx}, nil
	}

	idx, err := m.acquireFrame()
	if err != nil {
		return Handle{}, err
	}
	slog.Debug(logPrefix+"fix miss, reading from disk", "pageID", pageID, "frameIdx", idx)

	buf, err := m.disk.Read(pageID)
	if err != nil {
		m.free = append(m.free, idx)
		return Handle{}, dberr.Wrap("buffer.Manager", err)
	}

	m.frames[idx] = frame{pageID: pageID, pageType: storage.PageTypeData, buf: buf, pinCount: 1}
	m.table[pageID] = idx
	ts := m.clock.Add(1)
	m.strat.OnPin(idx, ts)
	return Handle{PageID: pageID, Type: storage.PageTypeData, frame: idx}, nil
}

// NewPage allocates a fresh page id from the disk manager and returns a
// pinned, dirty, zero-initialized Handle for it.
func (m *Manager) NewPage(pt storage.PageType) (uint32, Handle, error) {
	pageID, err := m.disk.Allocate()
	if err != nil {
		return 0, Handle{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	idx, err := m.acquireFrame()
	if err != nil {
		return 0, Handle{}, err
	}

	buf := make([]byte, storage.PageSize)
	if _, perr := storage.NewPage(buf, pageID); perr != nil {
		m.free = append(m.free, idx)
		return 0, Handle{}, dberr.Wrap("buffer.Manager", perr)
	}

	m.frames[idx] = frame{pageID: pageID, pageType: pt, buf: buf, dirty: true, pinCount: 1}
	m.table[pageID] = idx
	ts := m.clock.Add(1)
	m.strat.OnPin(idx, ts)
	return pageID, Handle{PageID: pageID, Type: pt, frame: idx}, nil
}

// acquireFrame returns a free frame index, evicting a victim if the free
// list is empty. Caller must hold m.mu.
func (m *Manager) acquireFrame() (int, error) {
	if n := len(m.free); n > 0 {
		idx := m.free[n-1]
		m.free = m.free[:n-1]
		return idx, nil
	}

	states := make([]replacement.FrameState, len(m.frames))
	for i, f := range m.frames {
		states[i] = replacement.FrameState{Index: i, PinCount: f.pinCount}
	}
	victim := m.strat.FindVictim(states)
	if victim == replacement.NoVictim {
		slog.Warn(logPrefix+"no eligible victim frame", "frames", len(m.frames))
		return 0, dberr.ErrNoFreeFrame
	}

	v := &m.frames[victim]
	slog.Debug(logPrefix+"evicting frame", "frameIdx", victim, "pageID", v.pageID, "dirty", v.dirty)
	if v.dirty {
		if err := m.disk.Write(v.pageID, v.buf); err != nil {
			return 0, dberr.Wrap("buffer.Manager", err)
		}
		v.dirty = false
	}
	delete(m.table, v.pageID)
	m.strat.Remove(victim)
	return victim, nil
}

// Unfix decrements the pin count on h's frame, OR-ing in dirty.
func (m *Manager) Unfix(h Handle, dirty bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	f := &m.frames[h.frame]
	if f.pageID != h.PageID {
		slog.Error(logPrefix+"unfix stale handle", "pageID", h.PageID, "frameIdx", h.frame, "residentPageID", f.pageID)
		return dberr.Wrap("buffer.Manager", fmt.Errorf("unfix: stale handle for page %d", h.PageID))
	}
	if f.pinCount <= 0 {
		slog.Error(logPrefix+"unfix on unpinned page", "pageID", h.PageID)
		return dberr.Wrap("buffer.Manager", fmt.Errorf("unfix: page %d is not pinned", h.PageID))
	}
	f.pinCount--
	f.dirty = f.dirty || dirty
	return nil
}

// Flush writes pageID's frame to disk if dirty and clears the dirty bit.
// It is a no-op (not an error) if the page is not currently resident.
func (m *Manager) Flush(pageID uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flushLocked(pageID)
}

func (m *Manager) flushLocked(pageID uint32) error {
	idx, ok := m.table[pageID]
	if !ok {
		return nil
	}
	f := &m.frames[idx]
	if !f.dirty {
		return nil
	}
	if err := m.disk.Write(pageID, f.buf); err != nil {
		return dberr.Wrap("buffer.Manager", err)
	}
	f.dirty = false
	return nil
}

// FlushAll writes every resident dirty frame to disk.
func (m *Manager) FlushAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for pageID := range m.table {
		if err := m.flushLocked(pageID); err != nil {
			return err
		}
	}
	return nil
}

// Capacity returns the number of frames the pool manages.
func (m *Manager) Capacity() int {
	return len(m.frames)
}
