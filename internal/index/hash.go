package index

import (
	"errors"
	"fmt"
	"sync"

	"github.com/corvusdb/corvusdb/internal/heap"
	"github.com/corvusdb/corvusdb/internal/record"
)

// ErrRangeScanUnsupported is returned by HashIndex.RangeScan: a hash
// index has no notion of key ordering, so range queries never route to
// it (the optimizer's IndexScanOptimization rule only rewrites equality
// predicates, so it never plans a range scan on any index).
var ErrRangeScanUnsupported = errors.New("index: hash index does not support range scan")

// hashKey renders a record.Value into a comparable map key. Equal
// values must render identically; this mirrors Value.Equal's
// case-by-case type switch rather than reusing Go's == on the struct,
// since record.Value carries a []byte field that is not comparable.
func hashKey(v record.Value) (string, error) {
	if v.Null {
		return "\x00null", nil
	}
	switch v.Type {
	case record.ColInt32, record.ColDate:
		return fmt.Sprintf("i32:%d", v.I32), nil
	case record.ColInt64:
		return fmt.Sprintf("i64:%d", v.I64), nil
	case record.ColUint64:
		return fmt.Sprintf("u64:%d", v.U64), nil
	case record.ColBool:
		return fmt.Sprintf("b:%t", v.Bool), nil
	case record.ColFloat64:
		return fmt.Sprintf("f64:%v", v.F64), nil
	case record.ColText, record.ColBytes:
		return "s:" + string(v.Bytes), nil
	default:
		return "", fmt.Errorf("index: unsupported key type %d", v.Type)
	}
}

// HashIndex is an in-memory hash-table index: O(1) equality lookup,
// no ordering. Supplements the teacher's corpus, which only carried a
// B-tree; a hash variant is named directly in spec §3 ("concrete
// variants are ordered (B-tree-like) or hash").
type HashIndex struct {
	mu      sync.RWMutex
	buckets map[string][]bucketEntry
}

type bucketEntry struct {
	key  record.Value
	rids []heap.RID
}

func NewHash() *HashIndex {
	return &HashIndex{buckets: make(map[string][]bucketEntry)}
}

func (hi *HashIndex) Insert(key record.Value, rid heap.RID) error {
	hk, err := hashKey(key)
	if err != nil {
		return err
	}

	hi.mu.Lock()
	defer hi.mu.Unlock()

	for i, e := range hi.buckets[hk] {
		if eq, _ := e.key.Equal(key); eq {
			hi.buckets[hk][i].rids = append(e.rids, rid)
			return nil
		}
	}
	hi.buckets[hk] = append(hi.buckets[hk], bucketEntry{key: key, rids: []heap.RID{rid}})
	return nil
}

func (hi *HashIndex) SearchEqual(key record.Value) ([]heap.RID, error) {
	hk, err := hashKey(key)
	if err != nil {
		return nil, err
	}

	hi.mu.RLock()
	defer hi.mu.RUnlock()

	for _, e := range hi.buckets[hk] {
		if eq, _ := e.key.Equal(key); eq {
			out := make([]heap.RID, len(e.rids))
			copy(out, e.rids)
			return out, nil
		}
	}
	return nil, nil
}

func (hi *HashIndex) RangeScan(record.Value, record.Value) ([]heap.RID, error) {
	return nil, ErrRangeScanUnsupported
}

func (hi *HashIndex) Delete(key record.Value, rid heap.RID) error {
	hk, err := hashKey(key)
	if err != nil {
		return err
	}

	hi.mu.Lock()
	defer hi.mu.Unlock()

	bucket := hi.buckets[hk]
	for i, e := range bucket {
		if eq, _ := e.key.Equal(key); eq {
			rids := e.rids
			for j, r := range rids {
				if r == rid {
					rids = append(rids[:j], rids[j+1:]...)
					break
				}
			}
			if len(rids) == 0 {
				hi.buckets[hk] = append(bucket[:i], bucket[i+1:]...)
			} else {
				bucket[i].rids = rids
			}
			return nil
		}
	}
	return nil
}
