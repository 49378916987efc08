package storage

import "errors"

const (
	OneKB = 1024
	OneMB = OneKB * 1024

	// PageSize is the fixed page size P referenced throughout spec §3/§4.
	// 8 KiB, matching the teacher's postgres-style page size.
	PageSize = OneKB * 8

	// InvalidPageID is the reserved sentinel for "no page" (spec §3).
	InvalidPageID uint32 = 0xFFFFFFFF

	// HeaderSize is the fixed data-page header: page_id(4) prev(4) next(4)
	// slot_count(2) free_space_offset(2), per spec §6 "Page layout".
	HeaderSize = 16

	// SlotSize is one slot-directory entry: offset(2) length(2) flags(1).
	SlotSize = 5

	// slotLiveBit is bit0 of a slot's flags byte.
	slotLiveBit = 0x01

	// metaMagic identifies a page-0 meta-page.
	metaMagic uint64 = 0x4E4F44455F4D4554 // "NODE_MET"

	FileMode0644 = 0o644
	FileMode0755 = 0o755
)

// PageType tags the kind of content a page holds. It is carried by the
// buffer manager's Frame (spec §3 Page attribute "page_type"), not encoded
// into the on-disk byte layout itself.
type PageType uint8

const (
	PageTypeData PageType = iota + 1
	PageTypeIndex
	PageTypeMeta
)

var (
	ErrShortIO     = errors.New("storage: short read/write")
	ErrBadPageSize = errors.New("storage: buffer is not exactly PageSize bytes")
	ErrNoSpace     = errors.New("storage: page has no free space for this tuple")
	ErrBadSlot     = errors.New("storage: slot index out of range or not live")
	ErrBadMeta     = errors.New("storage: meta-page magic mismatch")
)
