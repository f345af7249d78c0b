package disk

import (
	"encoding/binary"
	"fmt"

	log "github.com/sirupsen/logrus"

	"slotted-db-golang/src/common"
)

// On-disk page image, little-endian:
//
//   [0:4)   pageId
//   [4:5)   dirty flag
//   [5:8)   padding
//   [8:16)  lsn
//   [16:20) freeSpaceOffset
//   [20:24) numberOfSlots
//   [24:24+freeSpaceOffset) record bytes
//   [PageSize-numberOfSlots*SlotSize:PageSize) slot directory, slot i at
//   PageSize-(i+1)*SlotSize as {offset, length, valid byte, 3 pad bytes}
//
// The gap between the record bytes and the slot directory is undefined and
// may hold stale bytes from earlier writes.
const (
	PageSize = 4096

	pageHeaderSize = 24
	PageDataSize   = PageSize - pageHeaderSize

	SlotSize = 12
)

func (p *Page) Serialize(buf []byte) {
	if len(buf) < PageSize {
		log.Fatalf("Serialize buffer is smaller than a page.")
	}
	binary.LittleEndian.PutUint32(buf[0:4], uint32(p.pageId))
	if p.dirty {
		buf[4] = 1
	} else {
		buf[4] = 0
	}
	buf[5], buf[6], buf[7] = 0, 0, 0
	binary.LittleEndian.PutUint64(buf[8:16], uint64(p.lsn))
	binary.LittleEndian.PutUint32(buf[16:20], uint32(p.freeSpaceOffset))
	binary.LittleEndian.PutUint32(buf[20:24], uint32(len(p.slots)))

	copy(buf[pageHeaderSize:], p.data[:p.freeSpaceOffset])

	for i, s := range p.slots {
		off := PageSize - (i+1)*SlotSize
		binary.LittleEndian.PutUint32(buf[off:off+4], uint32(s.offset))
		binary.LittleEndian.PutUint32(buf[off+4:off+8], uint32(s.length))
		if s.isValid {
			buf[off+8] = 1
		} else {
			buf[off+8] = 0
		}
		buf[off+9], buf[off+10], buf[off+11] = 0, 0, 0
	}
}

func (p *Page) Deserialize(buf []byte) error {
	if len(buf) < PageSize {
		return fmt.Errorf("Deserialize buffer is smaller than a page.")
	}
	pageId := common.PageId(binary.LittleEndian.Uint32(buf[0:4]))
	dirty := buf[4] != 0
	lsn := int64(binary.LittleEndian.Uint64(buf[8:16]))
	freeSpaceOffset := int32(binary.LittleEndian.Uint32(buf[16:20]))
	numberOfSlots := int32(binary.LittleEndian.Uint32(buf[20:24]))

	if numberOfSlots < 0 || numberOfSlots > PageDataSize/SlotSize ||
		freeSpaceOffset < 0 || freeSpaceOffset > PageDataSize-numberOfSlots*SlotSize {
		return fmt.Errorf("Corrupt page header: freeSpaceOffset %d, numberOfSlots %d.",
			freeSpaceOffset, numberOfSlots)
	}

	slots := p.slots[:0]
	for i := 0; i < int(numberOfSlots); i++ {
		off := PageSize - (i+1)*SlotSize
		s := slot{
			offset:  int32(binary.LittleEndian.Uint32(buf[off : off+4])),
			length:  int32(binary.LittleEndian.Uint32(buf[off+4 : off+8])),
			isValid: buf[off+8] != 0,
		}
		if s.isValid && (s.offset < 0 || s.length < 0 || s.offset+s.length > freeSpaceOffset) {
			return fmt.Errorf("Corrupt slot %d: offset %d, length %d.", i, s.offset, s.length)
		}
		slots = append(slots, s)
	}

	p.pageId = pageId
	p.dirty = dirty
	p.lsn = lsn
	p.freeSpaceOffset = freeSpaceOffset
	p.slots = slots
	// Only the used prefix is restored; the rest of the data area keeps
	// whatever it held before.
	copy(p.data[:freeSpaceOffset], buf[pageHeaderSize:pageHeaderSize+int(freeSpaceOffset)])
	return nil
}
