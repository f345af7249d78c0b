package disk

import (
	"slotted-db-golang/src/common"
)

type slot struct {
	offset  int32
	length  int32
	isValid bool
}

// Page is a slotted page: records are packed from the front of the data
// area up to freeSpaceOffset, the slot directory grows from the back.
type Page struct {
	pageId          common.PageId
	dirty           bool
	lsn             int64
	freeSpaceOffset int32
	slots           []slot
	data            []byte
}

func NewPage() *Page {
	return &Page{
		pageId: common.InvalidPageId,
		data:   make([]byte, PageDataSize),
	}
}

func (p *Page) PageId() common.PageId { return p.pageId }

func (p *Page) SetPageId(id common.PageId) { p.pageId = id }

func (p *Page) IsDirty() bool { return p.dirty }

func (p *Page) MakeDirty() { p.dirty = true }

func (p *Page) LSN() int64 { return p.lsn }

func (p *Page) SetLSN(lsn int64) { p.lsn = lsn }

func (p *Page) NumSlots() int { return len(p.slots) }

func (p *Page) FreeSpace() int32 {
	return PageDataSize - int32(len(p.slots))*SlotSize - p.freeSpaceOffset
}

// InsertRecord appends the record and a slot for it. Returns the new slot
// id, or -1 if the record is empty or the page cannot hold record+slot.
func (p *Page) InsertRecord(record []byte) int {
	if len(record) == 0 {
		return -1
	}
	if p.FreeSpace() < int32(len(record))+SlotSize {
		return -1
	}
	copy(p.data[p.freeSpaceOffset:], record)
	p.slots = append(p.slots, slot{
		offset:  p.freeSpaceOffset,
		length:  int32(len(record)),
		isValid: true,
	})
	p.freeSpaceOffset += int32(len(record))
	p.dirty = true
	return len(p.slots) - 1
}

// GetRecord copies the record at slotId into buf, which must hold at least
// the record's length. Returns the record length, or -1 for an out-of-range
// or invalid slot.
func (p *Page) GetRecord(slotId int, buf []byte) int {
	if slotId < 0 || slotId >= len(p.slots) {
		return -1
	}
	s := p.slots[slotId]
	if !s.isValid {
		return -1
	}
	copy(buf, p.data[s.offset:s.offset+s.length])
	return int(s.length)
}

// DeleteRecord removes the record and its slot entry, shifting the record
// bytes after it left so that records stay contiguous. Slot ids above
// slotId shift down by one.
func (p *Page) DeleteRecord(slotId int) bool {
	if slotId < 0 || slotId >= len(p.slots) {
		return false
	}
	s := p.slots[slotId]
	if !s.isValid {
		return false
	}
	if tail := p.freeSpaceOffset - (s.offset + s.length); tail > 0 {
		copy(p.data[s.offset:], p.data[s.offset+s.length:p.freeSpaceOffset])
	}
	p.freeSpaceOffset -= s.length
	p.slots = append(p.slots[:slotId], p.slots[slotId+1:]...)
	for i := range p.slots {
		if p.slots[i].offset > s.offset {
			p.slots[i].offset -= s.length
		}
	}
	p.dirty = true
	return true
}

func (p *Page) Clear() {
	p.pageId = common.InvalidPageId
	p.dirty = false
	p.lsn = 0
	p.freeSpaceOffset = 0
	p.slots = p.slots[:0]
	for i := range p.data {
		p.data[i] = 0
	}
}
