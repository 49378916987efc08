// Package dbctx ties together the buffer manager, the table heaps, and
// the in-memory catalog that names them into one database handle.
// Grounded on the teacher's Database (database.go/internal/database.go):
// same mutex-guarded, ensureOpen-checked handle shape and Close/closed
// discipline, generalized from the teacher's single-pager,
// single-table-file design to the buffer-managed, multi-table catalog
// this engine's spec requires, and from database_index.go/
// index_registry.go's on-disk JSON index registry to an in-memory
// catalog entry per index (there is no on-disk index metadata file here
// — catalog state is rebuilt by replaying BuildIndex at startup, which
// is out of this package's scope).
package dbctx

import (
	"fmt"
	"log/slog"
	"sync"

	"go.uber.org/atomic"

	"github.com/corvusdb/corvusdb/internal/buffer"
	"github.com/corvusdb/corvusdb/internal/dberr"
	"github.com/corvusdb/corvusdb/internal/heap"
	"github.com/corvusdb/corvusdb/internal/index"
	"github.com/corvusdb/corvusdb/internal/optimizer"
	"github.com/corvusdb/corvusdb/internal/prng"
	"github.com/corvusdb/corvusdb/internal/record"
	"github.com/corvusdb/corvusdb/internal/storage"
)

const logPrefix = "dbctx: "

// TableInfo is one catalog entry: a table's schema and the heap backing
// it.
type TableInfo struct {
	Name   string
	Schema record.Schema
	Heap   *heap.Heap
}

// IndexKind names which concrete index.Index implementation backs an
// IndexInfo.
type IndexKind string

const (
	IndexOrdered IndexKind = "ordered"
	IndexHash    IndexKind = "hash"
)

// IndexInfo is one catalog entry for an index over a table's column.
type IndexInfo struct {
	Name        string
	TableName   string
	ColumnName  string
	ColumnIndex int
	Kind        IndexKind
	Index       index.Index
}

// DBContext is the database's single in-process handle: the buffer
// manager backing every table's pages, and the catalog naming the
// tables and indexes built on top of it.
type DBContext struct {
	mu     sync.RWMutex
	disk   *storage.DiskManager
	bm     *buffer.Manager
	closed bool

	tables map[string]*TableInfo
	idxs   map[string]*IndexInfo // keyed by tableName + "." + indexName

	nextObjectID atomic.Uint64
}

// Open creates (or reopens) the database file named by cfg.DataFile and
// wires up the buffer manager with cfg's configured capacity and
// replacement strategy.
func Open(cfg Config) (*DBContext, error) {
	disk, err := storage.OpenDiskManager(cfg.DataFile)
	if err != nil {
		return nil, dberr.Wrap("dbctx", err)
	}
	strat, err := cfg.Strategy(prng.New(1))
	if err != nil {
		_ = disk.Close()
		return nil, err
	}
	bm := buffer.New(disk, cfg.BufferPoolFrames, strat)
	slog.Info(logPrefix+"opened", "dataFile", cfg.DataFile, "bufferPoolFrames", cfg.BufferPoolFrames, "replacementStrategy", cfg.ReplacementStrategy)

	return &DBContext{
		disk:   disk,
		bm:     bm,
		tables: make(map[string]*TableInfo),
		idxs:   make(map[string]*IndexInfo),
	}, nil
}

func (db *DBContext) ensureOpen() error {
	if db.closed {
		return fmt.Errorf("dbctx: database is closed: %w", dberr.ErrAborted)
	}
	return nil
}

// Close flushes every dirty page and closes the underlying disk file.
// The DBContext is unusable afterward.
func (db *DBContext) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return nil
	}
	if err := db.bm.FlushAll(); err != nil {
		return dberr.Wrap("dbctx", err)
	}
	if err := db.disk.Close(); err != nil {
		return dberr.Wrap("dbctx", err)
	}
	db.closed = true
	slog.Info(logPrefix + "closed")
	return nil
}

// BufferManager exposes the shared buffer manager for physical
// operators to fix/unfix pages through.
func (db *DBContext) BufferManager() *buffer.Manager { return db.bm }

// CreateTable registers a new, empty table with the given schema,
// allocating its first heap page.
func (db *DBContext) CreateTable(name string, schema record.Schema) (*TableInfo, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.ensureOpen(); err != nil {
		return nil, err
	}
	if _, exists := db.tables[name]; exists {
		return nil, fmt.Errorf("dbctx: table %q already exists: %w", name, dberr.ErrDuplicateKey)
	}
	if _, err := schema.RowWidth(); err != nil {
		return nil, dberr.Wrap("dbctx", err)
	}

	hp, err := heap.New(db.bm)
	if err != nil {
		return nil, dberr.Wrap("dbctx", err)
	}
	info := &TableInfo{Name: name, Schema: schema, Heap: hp}
	db.tables[name] = info
	return info, nil
}

// Table returns the catalog entry for name.
func (db *DBContext) Table(name string) (*TableInfo, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if err := db.ensureOpen(); err != nil {
		return nil, err
	}
	info, ok := db.tables[name]
	if !ok {
		return nil, fmt.Errorf("dbctx: table %q: %w", name, dberr.ErrNotFound)
	}
	return info, nil
}

// DropTable removes a table and every index registered over it from
// the catalog. The heap's pages are not reclaimed (there is no
// page-deallocation path back to the disk manager's free list for a
// whole chain at once); this mirrors the teacher's CreateBTreeIndex
// leaving stale files as a known, documented limitation rather than
// silently losing data on a half-finished reclaim.
func (db *DBContext) DropTable(name string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.ensureOpen(); err != nil {
		return err
	}
	if _, ok := db.tables[name]; !ok {
		return fmt.Errorf("dbctx: table %q: %w", name, dberr.ErrNotFound)
	}
	delete(db.tables, name)
	for key, idx := range db.idxs {
		if idx.TableName == name {
			delete(db.idxs, key)
		}
	}
	return nil
}

// CreateIndex builds a fresh, empty index.Index of kind over table's
// columnName and registers it in the catalog under indexName. It does
// not backfill existing rows; callers drive a physical.BuildIndex over
// the registered (empty) index for that, mirroring the
// createChild-then-data two-phase shape BuildIndex itself expects.
func (db *DBContext) CreateIndex(tableName, indexName, columnName string, kind IndexKind) (*IndexInfo, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.ensureOpen(); err != nil {
		return nil, err
	}
	tbl, ok := db.tables[tableName]
	if !ok {
		return nil, fmt.Errorf("dbctx: table %q: %w", tableName, dberr.ErrNotFound)
	}
	colIdx := tbl.Schema.ColumnIndex(columnName)
	if colIdx < 0 {
		return nil, fmt.Errorf("dbctx: column %q not in table %q: %w", columnName, tableName, dberr.ErrSchemaMismatch)
	}
	key := tableName + "." + indexName
	if _, exists := db.idxs[key]; exists {
		return nil, fmt.Errorf("dbctx: index %q already exists on table %q: %w", indexName, tableName, dberr.ErrDuplicateKey)
	}

	var idx index.Index
	switch kind {
	case IndexHash:
		idx = index.NewHash()
	case IndexOrdered, "":
		idx = index.NewOrdered()
		kind = IndexOrdered
	default:
		return nil, fmt.Errorf("dbctx: unknown index kind %q: %w", kind, dberr.ErrConfig)
	}

	info := &IndexInfo{Name: indexName, TableName: tableName, ColumnName: columnName, ColumnIndex: colIdx, Kind: kind, Index: idx}
	db.idxs[key] = info
	return info, nil
}

// Index returns the catalog entry for an index by table and index name.
func (db *DBContext) Index(tableName, indexName string) (*IndexInfo, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if err := db.ensureOpen(); err != nil {
		return nil, err
	}
	info, ok := db.idxs[tableName+"."+indexName]
	if !ok {
		return nil, fmt.Errorf("dbctx: index %q on table %q: %w", indexName, tableName, dberr.ErrNotFound)
	}
	return info, nil
}

// DropIndex removes an index from the catalog.
func (db *DBContext) DropIndex(tableName, indexName string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.ensureOpen(); err != nil {
		return err
	}
	key := tableName + "." + indexName
	if _, ok := db.idxs[key]; !ok {
		return fmt.Errorf("dbctx: index %q on table %q: %w", indexName, tableName, dberr.ErrNotFound)
	}
	delete(db.idxs, key)
	return nil
}

// IndexSpecs returns every registered index as an optimizer.IndexSpec,
// ready to feed optimizer.NewIndexScanOptimization so the rule sees the
// catalog's current index set.
func (db *DBContext) IndexSpecs() []optimizer.IndexSpec {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]optimizer.IndexSpec, 0, len(db.idxs))
	for _, idx := range db.idxs {
		out = append(out, optimizer.IndexSpec{
			TableName:   idx.TableName,
			ColumnName:  idx.ColumnName,
			ColumnIndex: idx.ColumnIndex,
			IndexName:   idx.Name,
		})
	}
	return out
}

// NextObjectID returns a process-unique, monotonically increasing id,
// for callers that need to name an anonymous object (e.g. a
// system-generated index name).
func (db *DBContext) NextObjectID() uint64 {
	return db.nextObjectID.Inc()
}
