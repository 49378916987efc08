package storage

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/corvusdb/corvusdb/internal/alias/bx"
	"github.com/corvusdb/corvusdb/internal/dberr"
)

const logPrefix = "storage: "

// metaPage is the fixed layout of page 0 of every file managed by a
// DiskManager, per spec §6: magic(8B), page_size(4B),
// next_free_page_id(4B), free_list_head(4B):
//
//	offset  0 (8B): magic
//	offset  8 (4B): page_size
//	offset 12 (4B): next_free_page_id (high-water mark for never-allocated pages)
//	offset 16 (4B): free_list_head (InvalidPageID if empty)
//
// A freed page's own body is repurposed to hold the next link of the free
// list: its first 4 bytes become the previous free_list_head. This mirrors
// the teacher's single-file, page-addressed disk manager but adds the free
// list spec §4.B requires ("allocate reuses a freed page id before growing
// the file").
const (
	metaPageSizeOff  = 8
	metaNextFreeOff  = 12
	metaFreeHeadOff  = 16
	metaHeaderFields = 20
)

// DiskManager owns one backing file and hands out fixed-size pages by id.
// Page 0 is reserved for file metadata; table/index data begins at page 1.
// A single mutex serializes all I/O, matching the coarse buffer-manager
// latch discipline the rest of the engine assumes.
type DiskManager struct {
	mu   sync.Mutex
	file *os.File
}

// OpenDiskManager opens (creating if necessary) the file at path and
// formats page 0 with a meta-page if the file is new.
func OpenDiskManager(path string) (*DiskManager, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, FileMode0644)
	if err != nil {
		return nil, dberr.Wrap("storage.DiskManager", fmt.Errorf("%w: open %s: %v", dberr.ErrIO, path, err))
	}
	dm := &DiskManager{file: f}
	if err := dm.ensureMeta(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return dm, nil
}

func (dm *DiskManager) ensureMeta() error {
	fi, err := dm.file.Stat()
	if err != nil {
		return dberr.Wrap("storage.DiskManager", fmt.Errorf("%w: stat: %v", dberr.ErrIO, err))
	}
	if fi.Size() >= PageSize {
		buf := make([]byte, PageSize)
		if _, err := dm.file.ReadAt(buf, 0); err != nil {
			return dberr.Wrap("storage.DiskManager", fmt.Errorf("%w: read meta: %v", dberr.ErrIO, err))
		}
		if bx.U64At(buf, 0) != metaMagic {
			return dberr.Wrap("storage.DiskManager", ErrBadMeta)
		}
		return nil
	}

	buf := make([]byte, PageSize)
	bx.PutU64At(buf, 0, metaMagic)
	bx.PutU32At(buf, metaPageSizeOff, uint32(PageSize))
	bx.PutU32At(buf, metaNextFreeOff, 1)
	bx.PutU32At(buf, metaFreeHeadOff, InvalidPageID)
	if _, err := dm.file.WriteAt(buf, 0); err != nil {
		return dberr.Wrap("storage.DiskManager", fmt.Errorf("%w: write meta: %v", dberr.ErrIO, err))
	}
	return nil
}

func (dm *DiskManager) readMeta() ([]byte, error) {
	buf := make([]byte, PageSize)
	if _, err := dm.file.ReadAt(buf, 0); err != nil {
		return nil, dberr.Wrap("storage.DiskManager", fmt.Errorf("%w: read meta: %v", dberr.ErrIO, err))
	}
	return buf, nil
}

func (dm *DiskManager) writeMeta(buf []byte) error {
	if _, err := dm.file.WriteAt(buf, 0); err != nil {
		return dberr.Wrap("storage.DiskManager", fmt.Errorf("%w: write meta: %v", dberr.ErrIO, err))
	}
	return nil
}

// Allocate reserves a page id: it pops the free list if non-empty, else
// advances the high-water mark. The returned page is not yet written to
// disk; the caller must Write it.
func (dm *DiskManager) Allocate() (uint32, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	meta, err := dm.readMeta()
	if err != nil {
		return InvalidPageID, err
	}

	freeHead := bx.U32At(meta, metaFreeHeadOff)
	if freeHead != InvalidPageID {
		body := make([]byte, PageSize)
		off := int64(freeHead) * PageSize
		if _, err := dm.file.ReadAt(body, off); err != nil {
			return InvalidPageID, dberr.Wrap("storage.DiskManager", fmt.Errorf("%w: read free page: %v", dberr.ErrIO, err))
		}
		next := bx.U32At(body, 0)
		bx.PutU32At(meta, metaFreeHeadOff, next)
		if err := dm.writeMeta(meta); err != nil {
			return InvalidPageID, err
		}
		slog.Debug(logPrefix+"allocate reused free page", "pageID", freeHead)
		return freeHead, nil
	}

	id := bx.U32At(meta, metaNextFreeOff)
	bx.PutU32At(meta, metaNextFreeOff, id+1)
	if err := dm.writeMeta(meta); err != nil {
		return InvalidPageID, err
	}
	slog.Debug(logPrefix+"allocate grew file", "pageID", id)
	return id, nil
}

// Free pushes pageID onto the free list for future reuse by Allocate. The
// page's own storage becomes the next pointer, so it must not be read as
// tuple data again until reallocated.
func (dm *DiskManager) Free(pageID uint32) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	meta, err := dm.readMeta()
	if err != nil {
		return err
	}
	prevHead := bx.U32At(meta, metaFreeHeadOff)

	body := make([]byte, PageSize)
	bx.PutU32At(body, 0, prevHead)
	off := int64(pageID) * PageSize
	if _, err := dm.file.WriteAt(body, off); err != nil {
		return dberr.Wrap("storage.DiskManager", fmt.Errorf("%w: write free page: %v", dberr.ErrIO, err))
	}

	bx.PutU32At(meta, metaFreeHeadOff, pageID)
	slog.Debug(logPrefix+"free pushed page onto free list", "pageID", pageID, "prevHead", prevHead)
	return dm.writeMeta(meta)
}

// Read loads pageID's bytes into a fresh PageSize buffer.
func (dm *DiskManager) Read(pageID uint32) ([]byte, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	buf := make([]byte, PageSize)
	off := int64(pageID) * PageSize
	n, err := dm.file.ReadAt(buf, off)
	if err != nil && n != PageSize {
		return nil, dberr.Wrap("storage.DiskManager", fmt.Errorf("%w: read page %d: %v", dberr.ErrIO, pageID, err))
	}
	return buf, nil
}

// Write persists buf (exactly PageSize bytes) as pageID's contents.
func (dm *DiskManager) Write(pageID uint32, buf []byte) error {
	if len(buf) != PageSize {
		return dberr.Wrap("storage.DiskManager", ErrBadPageSize)
	}
	dm.mu.Lock()
	defer dm.mu.Unlock()

	off := int64(pageID) * PageSize
	if _, err := dm.file.WriteAt(buf, off); err != nil {
		return dberr.Wrap("storage.DiskManager", fmt.Errorf("%w: write page %d: %v", dberr.ErrIO, pageID, err))
	}
	return nil
}

// Sync flushes the OS file cache to stable storage.
func (dm *DiskManager) Sync() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if err := dm.file.Sync(); err != nil {
		return dberr.Wrap("storage.DiskManager", fmt.Errorf("%w: sync: %v", dberr.ErrIO, err))
	}
	return nil
}

// Close releases the underlying file descriptor.
func (dm *DiskManager) Close() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if err := dm.file.Close(); err != nil {
		return dberr.Wrap("storage.DiskManager", fmt.Errorf("%w: close: %v", dberr.ErrIO, err))
	}
	return nil
}
