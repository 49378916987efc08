// Package replacement implements the buffer manager's pluggable
// cache-eviction policies: LRU, LFU, LRU-K, Random, and FIFO. Every
// strategy shares one contract so the buffer manager can swap policies
// without changing its own pinning logic.
package replacement

import "math"

// NoVictim is returned by FindVictim when every frame is pinned.
const NoVictim = -1

// FrameState describes one buffer frame's eligibility and pin count as
// the strategy needs to see it to choose a victim. The buffer manager
// owns the authoritative pin counts; strategies never mutate PinCount.
type FrameState struct {
	Index    int
	PinCount int
}

// Strategy selects an eviction victim among candidate frames and records
// pin events so future selections can take them into account. Strategy
// implementations are not expected to be safe for concurrent use; the
// buffer manager serializes access under its own latch (per the coarse
// single-mutex discipline the rest of the engine uses).
type Strategy interface {
	// FindVictim returns the frame index to evict among frames, or
	// NoVictim if every frame's PinCount is greater than zero.
	FindVictim(frames []FrameState) int

	// OnPin records that frame was just pinned at logical clock
	// timestamp. The buffer manager calls this after every successful
	// fix, including cache hits.
	OnPin(frame int, timestamp uint64)

	// Remove forgets a frame's history, called when its page is
	// evicted or the frame is otherwise reset.
	Remove(frame int)
}

// eligible filters frames to those with PinCount == 0.
func eligible(frames []FrameState) []FrameState {
	out := make([]FrameState, 0, len(frames))
	for _, f := range frames {
		if f.PinCount == 0 {
			out = append(out, f)
		}
	}
	return out
}

// LRU evicts the eligible frame with the smallest last-pin timestamp,
// breaking ties by smallest frame index. Grounded on the LRU branch of
// the teacher's storage.BufferPool.evictLRU, reworked around a logical
// clock instead of container/list ordering so it composes with the
// shared Strategy contract.
type LRU struct {
	last map[int]uint64
}

func NewLRU() *LRU {
	return &LRU{last: make(map[int]uint64)}
}

func (s *LRU) FindVictim(frames []FrameState) int {
	best := NoVictim
	var bestTS uint64
	for _, f := range eligible(frames) {
		ts, ok := s.last[f.Index]
		if !ok {
			ts = 0
		}
		if best == NoVictim || ts < bestTS || (ts == bestTS && f.Index < best) {
			best, bestTS = f.Index, ts
		}
	}
	return best
}

func (s *LRU) OnPin(frame int, timestamp uint64) { s.last[frame] = timestamp }
func (s *LRU) Remove(frame int)                  { delete(s.last, frame) }

// LFU evicts the eligible frame with the smallest pin counter, breaking
// ties by smallest frame index. Grounded on the teacher's
// storage.BufferPool LFUPolicy / BufferDescriptor.useCount.
type LFU struct {
	count map[int]uint64
}

func NewLFU() *LFU {
	return &LFU{count: make(map[int]uint64)}
}

func (s *LFU) FindVictim(frames []FrameState) int {
	best := NoVictim
	var bestCount uint64
	for _, f := range eligible(frames) {
		c := s.count[f.Index]
		if best == NoVictim || c < bestCount || (c == bestCount && f.Index < best) {
			best, bestCount = f.Index, c
		}
	}
	return best
}

func (s *LFU) OnPin(frame int, _ uint64) { s.count[frame]++ }
func (s *LFU) Remove(frame int)          { delete(s.count, frame) }

// LRUK tracks, per frame, a ring of the K most recent pin timestamps and
// evicts the eligible frame whose K-th most recent timestamp is
// smallest. A frame with fewer than K recorded pins is treated as
// having a K-th timestamp of +Inf — i.e. it ranks as the LEAST likely
// victim whenever any fully-historied frame is also eligible. This
// mirrors a documented deviation from the canonical LRU-K paper (see
// DESIGN.md): the convention here is deliberately the reverse of "least
// history evicts first".
type LRUK struct {
	k      int
	ring   map[int][]uint64 // most recent first, capped at k
	seenAt map[int]uint64   // clock value as of the last OnPin; FindVictim does not read it
}

func NewLRUK(k int) *LRUK {
	if k < 1 {
		k = 1
	}
	return &LRUK{
		k:      k,
		ring:   make(map[int][]uint64),
		seenAt: make(map[int]uint64),
	}
}

func (s *LRUK) FindVictim(frames []FrameState) int {
	best := NoVictim
	bestKth := math.Inf(1)
	for _, f := range eligible(frames) {
		kth := s.kthTimestamp(f.Index)
		if best == NoVictim || kth < bestKth || (kth == bestKth && f.Index < best) {
			best, bestKth = f.Index, kth
		}
	}
	return best
}

// kthTimestamp returns the frame's K-th most recent pin timestamp, or
// +Inf if fewer than K pins have been recorded for it (per the
// documented "insufficient history ranks last" convention).
func (s *LRUK) kthTimestamp(frame int) float64 {
	hist := s.ring[frame]
	if len(hist) < s.k {
		return math.Inf(1)
	}
	return float64(hist[s.k-1])
}

func (s *LRUK) OnPin(frame int, timestamp uint64) {
	hist := s.ring[frame]
	hist = append([]uint64{timestamp}, hist...)
	if len(hist) > s.k {
		hist = hist[:s.k]
	}
	s.ring[frame] = hist
	s.seenAt[frame] = timestamp
}

func (s *LRUK) Remove(frame int) {
	delete(s.ring, frame)
	delete(s.seenAt, frame)
}

// Random picks a uniformly random eligible frame using the engine's own
// seedable Tausworthe-style source rather than math/rand, so behavior is
// reproducible under a fixed seed (spec's PRNG requirement).
type Random struct {
	src interface{ Intn(int) int }
}

func NewRandom(src interface{ Intn(int) int }) *Random {
	return &Random{src: src}
}

func (s *Random) FindVictim(frames []FrameState) int {
	el := eligible(frames)
	if len(el) == 0 {
		return NoVictim
	}
	return el[s.src.Intn(len(el))].Index
}

func (s *Random) OnPin(int, uint64) {}
func (s *Random) Remove(int)        {}

// FIFO evicts the oldest resident eligible frame, tracked by insertion
// order rather than re-access order (so, unlike LRU, a re-pin of an
// already-resident frame does not move it to the back of the queue).
// Grounded on the teacher's freeFrames/pageToFrame bookkeeping style in
// the reference buffer pool manager.
type FIFO struct {
	order    []int
	posOf    map[int]int
	resident map[int]bool
}

func NewFIFO() *FIFO {
	return &FIFO{
		posOf:    make(map[int]int),
		resident: make(map[int]bool),
	}
}

func (s *FIFO) FindVictim(frames []FrameState) int {
	pinned := make(map[int]bool, len(frames))
	for _, f := range frames {
		pinned[f.Index] = f.PinCount > 0
	}
	for _, idx := range s.order {
		if s.resident[idx] && !pinned[idx] {
			return idx
		}
	}
	return NoVictim
}

func (s *FIFO) OnPin(frame int, _ uint64) {
	if s.resident[frame] {
		return
	}
	s.resident[frame] = true
	s.posOf[frame] = len(s.order)
	s.order = append(s.order, frame)
}

func (s *FIFO) Remove(frame int) {
	delete(s.resident, frame)
	delete(s.posOf, frame)
	for i, idx := range s.order {
		if idx == frame {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}
