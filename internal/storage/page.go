package storage

import "github.com/corvusdb/corvusdb/internal/alias/bx"

// Page is a fixed-size, contiguous byte buffer with the layout spec §6
// fixes for data pages:
//
//	offset  0 (4B): page_id
//	offset  4 (4B): prev_page_id
//	offset  8 (4B): next_page_id
//	offset 12 (2B): slot_count
//	offset 14 (2B): free_space_offset
//	offset 16:      slot directory (offset u16, length u16, flags u8) growing up
//	end-aligned:    tuples packed downward
//
// Because every tuple written to a data page belongs to one table whose
// encoded row width is schema-constant (spec §4.E), a tombstoned slot's
// reserved span is always exactly the right size for a future insert, so
// InsertTuple reuses dead slots opportunistically without any compaction.
type Page struct {
	Buf []byte
}

// NewPage wraps buf (which must be exactly PageSize bytes) as an empty,
// freshly initialized page with the given id and no chain neighbors.
func NewPage(buf []byte, pageID uint32) (Page, error) {
	if len(buf) != PageSize {
		return Page{}, ErrBadPageSize
	}
	p := Page{Buf: buf}
	p.Reset(pageID)
	return p, nil
}

// Reset reinitializes p in place as an empty page with the given id.
func (p Page) Reset(pageID uint32) {
	for i := range p.Buf {
		p.Buf[i] = 0
	}
	bx.PutU32At(p.Buf, 0, pageID)
	bx.PutU32At(p.Buf, 4, InvalidPageID)
	bx.PutU32At(p.Buf, 8, InvalidPageID)
	bx.PutU16At(p.Buf, 12, 0)
	bx.PutU16At(p.Buf, 14, uint16(PageSize))
}

func (p Page) PageID() uint32     { return bx.U32At(p.Buf, 0) }
func (p Page) SetPageID(v uint32) { bx.PutU32At(p.Buf, 0, v) }

func (p Page) PrevPageID() uint32     { return bx.U32At(p.Buf, 4) }
func (p Page) SetPrevPageID(v uint32) { bx.PutU32At(p.Buf, 4, v) }

func (p Page) NextPageID() uint32     { return bx.U32At(p.Buf, 8) }
func (p Page) SetNextPageID(v uint32) { bx.PutU32At(p.Buf, 8, v) }

func (p Page) SlotCount() int { return int(bx.U16At(p.Buf, 12)) }
func (p Page) setSlotCount(n int) {
	bx.PutU16At(p.Buf, 12, uint16(n))
}

func (p Page) freeSpaceOffset() int { return int(bx.U16At(p.Buf, 14)) }
func (p Page) setFreeSpaceOffset(v int) {
	bx.PutU16At(p.Buf, 14, uint16(v))
}

func (p Page) slotOffset(i int) int { return HeaderSize + i*SlotSize }

// GetSlot returns slot i's (dataOffset, length, flags).
func (p Page) GetSlot(i int) (offset, length int, flags byte) {
	o := p.slotOffset(i)
	return int(bx.U16At(p.Buf, o)), int(bx.U16At(p.Buf, o+2)), p.Buf[o+4]
}

func (p Page) putSlot(i, offset, length int, flags byte) {
	o := p.slotOffset(i)
	bx.PutU16At(p.Buf, o, uint16(offset))
	bx.PutU16At(p.Buf, o+2, uint16(length))
	p.Buf[o+4] = flags
}

// IsLive reports whether slot i's live bit is set.
func (p Page) IsLive(i int) bool {
	if i < 0 || i >= p.SlotCount() {
		return false
	}
	_, _, flags := p.GetSlot(i)
	return flags&slotLiveBit != 0
}

// freeBytes returns the space currently available between the end of the
// slot directory and the start of the tuple-data area.
func (p Page) freeBytes() int {
	return p.freeSpaceOffset() - (HeaderSize + p.SlotCount()*SlotSize)
}

// findDeadSlot returns the index of a tombstoned slot whose reserved span
// is at least need bytes, or -1 if none exists.
func (p Page) findDeadSlot(need int) int {
	for i := 0; i < p.SlotCount(); i++ {
		offset, length, flags := p.GetSlot(i)
		if flags&slotLiveBit == 0 && offset != 0 && length >= need {
			return i
		}
	}
	return -1
}

// InsertTuple writes tup into the page, reusing a tombstoned slot of
// sufficient size if one exists, else appending a new slot and claiming
// space from the free area. Returns ErrNoSpace if neither fits.
func (p Page) InsertTuple(tup []byte) (slot int, err error) {
	if i := p.findDeadSlot(len(tup)); i >= 0 {
		offset, length, _ := p.GetSlot(i)
		copy(p.Buf[offset:offset+len(tup)], tup)
		p.putSlot(i, offset, length, slotLiveBit)
		return i, nil
	}

	need := len(tup) + SlotSize
	if p.freeBytes() < need {
		return -1, ErrNoSpace
	}

	newOffset := p.freeSpaceOffset() - len(tup)
	copy(p.Buf[newOffset:newOffset+len(tup)], tup)
	p.setFreeSpaceOffset(newOffset)

	i := p.SlotCount()
	p.putSlot(i, newOffset, len(tup), slotLiveBit)
	p.setSlotCount(i + 1)
	return i, nil
}

// ReadTuple returns the bytes stored at slot i. ErrBadSlot if the slot is
// out of range or tombstoned.
func (p Page) ReadTuple(slot int) ([]byte, error) {
	if slot < 0 || slot >= p.SlotCount() {
		return nil, ErrBadSlot
	}
	offset, length, flags := p.GetSlot(slot)
	if flags&slotLiveBit == 0 {
		return nil, ErrBadSlot
	}
	return p.Buf[offset : offset+length], nil
}

// DeleteTuple tombstones slot without reclaiming its reserved span (spec
// §4.F: "Space is not compacted; subsequent insert may reuse tombstoned
// slots.").
func (p Page) DeleteTuple(slot int) error {
	if slot < 0 || slot >= p.SlotCount() {
		return ErrBadSlot
	}
	offset, length, flags := p.GetSlot(slot)
	if flags&slotLiveBit == 0 {
		return ErrBadSlot
	}
	p.putSlot(slot, offset, length, 0)
	return nil
}

// IsUninitialized reports whether p has never been formatted (all zero
// header).
func (p Page) IsUninitialized() bool {
	return p.SlotCount() == 0 && p.freeSpaceOffset() == 0
}
