package table

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"slotted-db-golang/src/common"
	"slotted-db-golang/src/disk"
)

// Largest record a page can hold together with its slot entry.
const maxRecordSize = int(disk.PageDataSize - disk.SlotSize)

// TableHeap stores records across pages, routing each insert to a page
// with enough room. The per-page free-space map lives in memory only and
// is rebuilt by scanning the file on open.
type TableHeap struct {
	bufferPool  *disk.BufferPool
	diskManager *disk.DiskManager
	freeSpace   map[common.PageId]int32 // bytes insertable without a new page
}

func NewTableHeap(bufferPool *disk.BufferPool, diskManager *disk.DiskManager) *TableHeap {
	th := &TableHeap{
		bufferPool:  bufferPool,
		diskManager: diskManager,
		freeSpace:   make(map[common.PageId]int32),
	}
	for id := common.PageId(0); int32(id) < diskManager.NumberOfPages(); id++ {
		page, err := bufferPool.FixPage(id, false)
		if err != nil {
			log.WithError(err).Fatalf("Cannot scan page %d.", id)
		}
		th.freeSpace[id] = page.FreeSpace() - disk.SlotSize
		bufferPool.UnfixPage(page, false)
	}
	return th
}

// Insert places the record on any page with room, allocating a fresh page
// when none has enough, and returns the record's RID.
func (th *TableHeap) Insert(record []byte) (common.RID, error) {
	if len(record) == 0 || len(record) > maxRecordSize {
		return common.RID{}, fmt.Errorf("Record of length %d does not fit a page.", len(record))
	}
	for pageId, room := range th.freeSpace {
		if int(room) >= len(record) {
			if rid, ok := th.insertIntoPage(record, pageId); ok {
				return rid, nil
			}
		}
	}

	pageId, err := th.diskManager.AllocateNewPage()
	if err != nil {
		return common.RID{}, err
	}
	page, err := th.bufferPool.FixPage(pageId, true)
	if err != nil {
		return common.RID{}, err
	}
	slotId := page.InsertRecord(record)
	if slotId < 0 {
		log.Fatalf("Unexpected: insert into fresh page %d failed.", pageId)
	}
	th.freeSpace[pageId] = page.FreeSpace() - disk.SlotSize
	th.bufferPool.UnfixPage(page, true)
	return common.RID{PageId: pageId, SlotNum: slotId}, nil
}

func (th *TableHeap) insertIntoPage(record []byte, pageId common.PageId) (common.RID, bool) {
	page, err := th.bufferPool.FixPage(pageId, false)
	if err != nil {
		log.WithError(err).Warnf("Cannot fetch page %d.", pageId)
		return common.RID{}, false
	}
	slotId := page.InsertRecord(record)
	th.freeSpace[pageId] = page.FreeSpace() - disk.SlotSize
	if slotId < 0 {
		th.bufferPool.UnfixPage(page, false)
		return common.RID{}, false
	}
	th.bufferPool.UnfixPage(page, true)
	return common.RID{PageId: pageId, SlotNum: slotId}, true
}

func (th *TableHeap) Get(rid common.RID) ([]byte, bool) {
	if _, ok := th.freeSpace[rid.PageId]; !ok {
		return nil, false
	}
	page, err := th.bufferPool.FixPage(rid.PageId, false)
	if err != nil {
		log.WithError(err).Warnf("Cannot fetch page %d.", rid.PageId)
		return nil, false
	}
	buf := make([]byte, disk.PageDataSize)
	n := page.GetRecord(rid.SlotNum, buf)
	th.bufferPool.UnfixPage(page, false)
	if n < 0 {
		return nil, false
	}
	record := make([]byte, n)
	copy(record, buf[:n])
	return record, true
}

// Delete removes the record. RIDs of later slots on the same page are
// invalidated by the page's slot compaction.
func (th *TableHeap) Delete(rid common.RID) bool {
	if _, ok := th.freeSpace[rid.PageId]; !ok {
		return false
	}
	page, err := th.bufferPool.FixPage(rid.PageId, false)
	if err != nil {
		log.WithError(err).Warnf("Cannot fetch page %d.", rid.PageId)
		return false
	}
	deleted := page.DeleteRecord(rid.SlotNum)
	th.freeSpace[rid.PageId] = page.FreeSpace() - disk.SlotSize
	th.bufferPool.UnfixPage(page, deleted)
	return deleted
}

// Update replaces the record and returns its new RID: in-page compaction
// renumbers slots, so the record's identity moves even when it stays on
// the same page.
func (th *TableHeap) Update(rid common.RID, record []byte) (common.RID, bool) {
	if len(record) == 0 || len(record) > maxRecordSize {
		return common.RID{}, false
	}
	if _, ok := th.freeSpace[rid.PageId]; !ok {
		return common.RID{}, false
	}
	page, err := th.bufferPool.FixPage(rid.PageId, false)
	if err != nil {
		log.WithError(err).Warnf("Cannot fetch page %d.", rid.PageId)
		return common.RID{}, false
	}
	if !page.DeleteRecord(rid.SlotNum) {
		th.bufferPool.UnfixPage(page, false)
		return common.RID{}, false
	}
	slotId := page.InsertRecord(record)
	th.freeSpace[rid.PageId] = page.FreeSpace() - disk.SlotSize
	th.bufferPool.UnfixPage(page, true)
	if slotId >= 0 {
		return common.RID{PageId: rid.PageId, SlotNum: slotId}, true
	}
	// No longer fits on its page; move it.
	newRid, err := th.Insert(record)
	if err != nil {
		log.WithError(err).Errorf("Record %s was deleted but could not be reinserted.", rid.String())
		return common.RID{}, false
	}
	return newRid, true
}
