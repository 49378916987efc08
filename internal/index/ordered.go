package index

import (
	"fmt"
	"sort"
	"sync"

	"github.com/corvusdb/corvusdb/internal/heap"
	"github.com/corvusdb/corvusdb/internal/record"
)

// entry is one (key, RIDs) bucket kept in key order.
type entry struct {
	key  record.Value
	rids []heap.RID
}

// OrderedIndex is a B-tree-like ordered index: entries are kept sorted
// by key so RangeScan is a contiguous slice, and Insert/SearchEqual/
// Delete locate their key by binary search.
//
// It is grounded on the teacher's internal/btree package's sorted-leaf
// discipline (entries kept sorted, rebuilt on every mutation via
// leaf.rebuildSorted) but collapses the teacher's multi-level,
// page-resident split/merge machinery into a single in-memory sorted
// structure: the teacher's Tree additionally required int64-only keys
// and non-decreasing insertion order, both of which this index lifts
// by keying on record.Value.Less instead of raw integer comparison —
// porting the page-split/merge logic to an arbitrary, user-ordered key
// domain was out of proportion to the index's share of the engine (see
// DESIGN.md). The index is held only in memory: it has no backing
// file and is not rebuilt when a database is reopened.
type OrderedIndex struct {
	mu      sync.RWMutex
	entries []entry
}

// NewOrdered constructs an empty ordered index.
func NewOrdered() *OrderedIndex {
	return &OrderedIndex{}
}

// find returns the position of key in oi.entries (exact match) and
// whether it was found; otherwise the insertion point. Caller must hold
// oi.mu.
func (oi *OrderedIndex) find(key record.Value) (int, bool, error) {
	var searchErr error
	i := sort.Search(len(oi.entries), func(i int) bool {
		if searchErr != nil {
			return true
		}
		less, err := key.Less(oi.entries[i].key)
		if err != nil {
			searchErr = err
			return true
		}
		if less {
			return true
		}
		eq, err := key.Equal(oi.entries[i].key)
		if err != nil {
			searchErr = err
			return true
		}
		return eq
	})
	if searchErr != nil {
		return 0, false, searchErr
	}
	if i < len(oi.entries) {
		eq, err := key.Equal(oi.entries[i].key)
		if err != nil {
			return 0, false, err
		}
		if eq {
			return i, true, nil
		}
	}
	return i, false, nil
}

func (oi *OrderedIndex) Insert(key record.Value, rid heap.RID) error {
	oi.mu.Lock()
	defer oi.mu.Unlock()

	i, found, err := oi.find(key)
	if err != nil {
		return fmt.Errorf("index: %w", err)
	}
	if found {
		oi.entries[i].rids = append(oi.entries[i].rids, rid)
		return nil
	}

	oi.entries = append(oi.entries, entry{})
	copy(oi.entries[i+1:], oi.entries[i:])
	oi.entries[i] = entry{key: key, rids: []heap.RID{rid}}
	return nil
}

func (oi *OrderedIndex) SearchEqual(key record.Value) ([]heap.RID, error) {
	oi.mu.RLock()
	defer oi.mu.RUnlock()

	i, found, err := oi.find(key)
	if err != nil {
		return nil, fmt.Errorf("index: %w", err)
	}
	if !found {
		return nil, nil
	}
	out := make([]heap.RID, len(oi.entries[i].rids))
	copy(out, oi.entries[i].rids)
	return out, nil
}

func (oi *OrderedIndex) RangeScan(minKey, maxKey record.Value) ([]heap.RID, error) {
	oi.mu.RLock()
	defer oi.mu.RUnlock()

	start, _, err := oi.find(minKey)
	if err != nil {
		return nil, fmt.Errorf("index: %w", err)
	}

	var out []heap.RID
	for i := start; i < len(oi.entries); i++ {
		gt, err := maxKey.Less(oi.entries[i].key)
		if err != nil {
			return nil, fmt.Errorf("index: %w", err)
		}
		if gt {
			break
		}
		out = append(out, oi.entries[i].rids...)
	}
	return out, nil
}

func (oi *OrderedIndex) Delete(key record.Value, rid heap.RID) error {
	oi.mu.Lock()
	defer oi.mu.Unlock()

	i, found, err := oi.find(key)
	if err != nil {
		return fmt.Errorf("index: %w", err)
	}
	if !found {
		return nil
	}
	rids := oi.entries[i].rids
	for j, r := range rids {
		if r == rid {
			rids = append(rids[:j], rids[j+1:]...)
			break
		}
	}
	if len(rids) == 0 {
		oi.entries = append(oi.entries[:i], oi.entries[i+1:]...)
		return nil
	}
	oi.entries[i].rids = rids
	return nil
}
