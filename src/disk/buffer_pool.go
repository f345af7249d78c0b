package disk

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"slotted-db-golang/src/common"
)

type frame struct {
	page       Page
	pinCount   int
	isDirty    bool
	lastAccess time.Time
}

// BufferPool caches up to size pages in fixed frames. Pages are fixed
// (pinned) by callers and evicted LRU among unpinned frames, writing dirty
// victims back through the DiskManager. Single-threaded by contract.
type BufferPool struct {
	size        int
	frames      []frame
	pageTable   map[common.PageId]int
	diskManager *DiskManager
}

func NewBufferPool(size int, diskManager *DiskManager) *BufferPool {
	bp := &BufferPool{
		size:        size,
		frames:      make([]frame, size),
		pageTable:   make(map[common.PageId]int),
		diskManager: diskManager,
	}
	now := time.Now()
	for i := 0; i < size; i++ {
		bp.frames[i].page = *NewPage()
		bp.frames[i].lastAccess = now
	}
	return bp
}

// FixPage pins the page and returns a handle valid until the matching
// UnfixPage. Returns nil when every frame is pinned, the victim's write-back
// fails (the victim then stays cached and dirty), or the disk read fails.
func (bp *BufferPool) FixPage(pageId common.PageId, forWrite bool) (*Page, error) {
	if frameId, ok := bp.pageTable[pageId]; ok {
		f := &bp.frames[frameId]
		f.pinCount++
		f.isDirty = f.isDirty || forWrite
		f.lastAccess = time.Now()
		return &f.page, nil
	}

	frameId := bp.findEmptyFrame()
	if frameId == -1 {
		frameId = bp.findVictim()
		if frameId == -1 {
			log.Warnf("Buffer pool is full.")
			return nil, fmt.Errorf("Buffer pool is full.")
		}
		f := &bp.frames[frameId]
		victimId := f.page.PageId()
		if f.isDirty && victimId != common.InvalidPageId {
			if err := bp.diskManager.WritePage(victimId, &f.page); err != nil {
				log.WithError(err).Errorf("Cannot write page %d back.", victimId)
				return nil, err
			}
			f.isDirty = false
		}
		delete(bp.pageTable, victimId)
	}

	f := &bp.frames[frameId]
	if err := bp.diskManager.ReadPage(pageId, &f.page); err != nil {
		log.WithError(err).Warnf("Cannot read page %d from disk.", pageId)
		f.page.Clear()
		f.pinCount = 0
		f.isDirty = false
		return nil, err
	}
	f.page.SetPageId(pageId)
	f.pinCount = 1
	f.isDirty = forWrite
	f.lastAccess = time.Now()
	bp.pageTable[pageId] = frameId
	return &f.page, nil
}

// UnfixPage releases one pin on the page's frame. Unknown pages and frames
// with no pins are ignored; the pin count never goes below zero.
func (bp *BufferPool) UnfixPage(page *Page, markDirty bool) {
	frameId, ok := bp.pageTable[page.PageId()]
	if !ok {
		log.Warnf("Trying to unfix page %d, but the page is not in the buffer.", page.PageId())
		return
	}
	f := &bp.frames[frameId]
	if f.pinCount == 0 {
		log.Warnf("Trying to unfix page %d, but page's pin count is zero.", page.PageId())
		return
	}
	f.pinCount--
	f.isDirty = f.isDirty || markDirty
	f.lastAccess = time.Now()
}

// FlushAllPages writes every dirty unpinned frame back to disk. Pinned
// dirty frames are skipped.
func (bp *BufferPool) FlushAllPages() error {
	for i := range bp.frames {
		f := &bp.frames[i]
		if f.isDirty && f.pinCount == 0 && f.page.PageId() != common.InvalidPageId {
			if err := bp.diskManager.WritePage(f.page.PageId(), &f.page); err != nil {
				log.WithError(err).Errorf("Cannot flush page %d.", f.page.PageId())
				return err
			}
			f.isDirty = false
		}
	}
	return nil
}

// Close flushes all unpinned dirty frames. Pinned dirty frames at shutdown
// are a caller bug; they are skipped rather than waited on.
func (bp *BufferPool) Close() error {
	return bp.FlushAllPages()
}

func (bp *BufferPool) findEmptyFrame() int {
	for i := range bp.frames {
		f := &bp.frames[i]
		if f.pinCount == 0 && f.page.PageId() == common.InvalidPageId {
			return i
		}
	}
	return -1
}

// findVictim picks the unpinned frame with the oldest access time, lowest
// frame index on ties.
func (bp *BufferPool) findVictim() int {
	victim := -1
	for i := range bp.frames {
		f := &bp.frames[i]
		if f.pinCount != 0 {
			continue
		}
		if victim == -1 || f.lastAccess.Before(bp.frames[victim].lastAccess) {
			victim = i
		}
	}
	return victim
}
