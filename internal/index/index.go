// Package index implements the engine's Value → RID mapping in two
// flavors, ordered and hash, per spec §3 ("Index. Abstract entity
// mapping Value → Record ID; concrete variants are ordered (B-tree-like)
// or hash"). The Index interface generalizes the teacher's
// internal/btree.Index (Insert/SearchEqual/RangeScan over an int64
// KeyType) to the engine's record.Value key domain and supplements it
// with Delete, which the teacher's B+Tree never implemented.
package index

import (
	"github.com/corvusdb/corvusdb/internal/heap"
	"github.com/corvusdb/corvusdb/internal/record"
)

// Index maps key values to the RIDs of rows that carry them. Every live
// record in an indexed column has exactly one index entry; erased
// records have none (spec §3).
type Index interface {
	// Insert adds (key, rid). Multiple RIDs may share a key (duplicates
	// are not rejected at this layer).
	Insert(key record.Value, rid heap.RID) error

	// SearchEqual returns every RID inserted under key.
	SearchEqual(key record.Value) ([]heap.RID, error)

	// RangeScan returns every RID whose key falls in [minKey, maxKey]
	// (inclusive). Only meaningful for ordered indexes; hash indexes
	// reject it with dberr.ErrTypeMismatch-free dedicated error, see
	// HashIndex.RangeScan.
	RangeScan(minKey, maxKey record.Value) ([]heap.RID, error)

	// Delete removes one (key, rid) entry. It is not an error to delete
	// a key with no matching entry.
	Delete(key record.Value, rid heap.RID) error
}
