package disk

import (
	"fmt"
	"io"
	"os"

	"github.com/ncw/directio"
	log "github.com/sirupsen/logrus"

	"slotted-db-golang/src/common"
)

// DiskManager owns one backing file; page k lives at byte offset
// k * PageSize. Pages are allocated by appending.
type DiskManager struct {
	fileName string
	fi       *os.File
	numPages int32

	scratch []byte // aligned block reused for page I/O
}

func NewDiskManager(fileName string) *DiskManager {
	fi, err := directio.OpenFile(fileName, os.O_CREATE|os.O_RDWR|os.O_SYNC, 0644)
	if err != nil {
		log.WithError(err).Fatalf("Cannot open file.")
	}
	dm := &DiskManager{
		fileName: fileName,
		fi:       fi,
		scratch:  directio.AlignedBlock(PageSize),
	}
	size, err := dm.getFileSize()
	if err != nil {
		log.WithError(err).Fatalf("Cannot get file size.")
	}
	dm.numPages = int32(size / PageSize)
	return dm
}

func (dm *DiskManager) Close() error {
	return dm.fi.Close()
}

func (dm *DiskManager) NumberOfPages() int32 {
	return dm.numPages
}

// ReadPage reads page pageId from disk and deserializes it into page.
func (dm *DiskManager) ReadPage(pageId common.PageId, page *Page) error {
	if pageId < 0 || int32(pageId) >= dm.numPages {
		return fmt.Errorf("Page id %d is outside [0, %d).", pageId, dm.numPages)
	}
	if _, err := dm.fi.Seek(int64(pageId)*PageSize, io.SeekStart); err != nil {
		return err
	}
	n, err := dm.fi.Read(dm.scratch)
	if err != nil {
		return err
	}
	if n < PageSize {
		return fmt.Errorf("Read less than a page.")
	}
	return page.Deserialize(dm.scratch)
}

// WritePage serializes page and writes it at pageId. pageId must be an
// existing page or the append position numPages; the append case extends
// the file by one page.
func (dm *DiskManager) WritePage(pageId common.PageId, page *Page) error {
	if pageId < 0 || int32(pageId) > dm.numPages {
		return fmt.Errorf("Page id %d is past the append position %d.", pageId, dm.numPages)
	}
	page.Serialize(dm.scratch)
	if _, err := dm.fi.Seek(int64(pageId)*PageSize, io.SeekStart); err != nil {
		return err
	}
	n, err := dm.fi.Write(dm.scratch)
	if err != nil {
		return err
	}
	if n < PageSize {
		return fmt.Errorf("Wrote less than a page.")
	}
	if int32(pageId) == dm.numPages {
		dm.numPages++
	}
	return nil
}

// AllocateNewPage appends an empty page and returns its id, or
// InvalidPageId on I/O failure.
func (dm *DiskManager) AllocateNewPage() (common.PageId, error) {
	page := NewPage()
	pageId := common.PageId(dm.numPages)
	page.SetPageId(pageId)
	if err := dm.WritePage(pageId, page); err != nil {
		log.WithError(err).Errorf("Cannot allocate page %d.", pageId)
		return common.InvalidPageId, err
	}
	return pageId, nil
}

func (dm *DiskManager) getFileSize() (int64, error) {
	stat, err := dm.fi.Stat()
	if err != nil {
		return 0, err
	}
	return stat.Size(), nil
}
