package disk

import (
	"math/rand"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"slotted-db-golang/src/common"
)

var testFileName = "tmp-file"

func TestNewDiskManager(t *testing.T) {
	defer os.Remove(testFileName)
	dm := NewDiskManager(testFileName)
	defer dm.Close()

	require.Equal(t, testFileName, dm.fileName)
	require.Equal(t, int32(0), dm.NumberOfPages())
}

func TestDiskManager_WriteReadRoundtrip(t *testing.T) {
	defer os.Remove(testFileName)
	dm := NewDiskManager(testFileName)
	defer dm.Close()

	page := NewPage()
	page.SetPageId(common.PageId(0))
	page.SetLSN(42)
	require.Equal(t, 0, page.InsertRecord([]byte("alpha")))
	require.Equal(t, 1, page.InsertRecord([]byte("beta")))
	require.True(t, page.DeleteRecord(0))
	require.Nil(t, dm.WritePage(common.PageId(0), page))
	require.Equal(t, int32(1), dm.NumberOfPages())

	got := NewPage()
	require.Nil(t, dm.ReadPage(common.PageId(0), got))
	require.Equal(t, page.PageId(), got.PageId())
	require.Equal(t, page.LSN(), got.LSN())
	require.Equal(t, page.freeSpaceOffset, got.freeSpaceOffset)
	require.Equal(t, page.NumSlots(), got.NumSlots())

	buf := make([]byte, PageDataSize)
	n := got.GetRecord(0, buf)
	require.Equal(t, []byte("beta"), buf[:n])
}

func TestDiskManager_Allocate(t *testing.T) {
	defer os.Remove(testFileName)
	dm := NewDiskManager(testFileName)

	for i := 0; i < 5; i++ {
		pageId, err := dm.AllocateNewPage()
		require.Nil(t, err)
		require.Equal(t, common.PageId(i), pageId)
		require.Equal(t, int32(i+1), dm.NumberOfPages())
	}
	dm.Close()

	newDm := NewDiskManager(testFileName)
	defer newDm.Close()
	require.Equal(t, int32(5), newDm.NumberOfPages())
	pageId, err := newDm.AllocateNewPage()
	require.Nil(t, err)
	require.Equal(t, common.PageId(5), pageId)
}

func TestDiskManager_Bounds(t *testing.T) {
	defer os.Remove(testFileName)
	dm := NewDiskManager(testFileName)
	defer dm.Close()

	page := NewPage()
	require.NotNil(t, dm.ReadPage(common.PageId(0), page)) // empty file
	require.NotNil(t, dm.ReadPage(common.PageId(-1), page))

	page.SetPageId(common.PageId(2))
	require.NotNil(t, dm.WritePage(common.PageId(2), page)) // past the append position
	require.Equal(t, int32(0), dm.NumberOfPages())

	page.SetPageId(common.PageId(0))
	require.Nil(t, dm.WritePage(common.PageId(0), page)) // append
	page.SetPageId(common.PageId(1))
	require.Nil(t, dm.WritePage(common.PageId(1), page)) // append
	require.Nil(t, dm.WritePage(common.PageId(1), page)) // overwrite
	require.Equal(t, int32(2), dm.NumberOfPages())
	require.NotNil(t, dm.ReadPage(common.PageId(2), page))
}

func TestDiskManager_Persistence(t *testing.T) {
	defer os.Remove(testFileName)
	allRecords := make([][]byte, 0)
	{
		dm := NewDiskManager(testFileName)
		for i := 0; i < 10; i++ {
			pageId, err := dm.AllocateNewPage()
			require.Nil(t, err)
			page := NewPage()
			require.Nil(t, dm.ReadPage(pageId, page))
			record := make([]byte, rand.Intn(512)+1)
			rand.Read(record)
			require.Equal(t, 0, page.InsertRecord(record))
			require.Nil(t, dm.WritePage(pageId, page))
			allRecords = append(allRecords, record)
		}
		dm.Close()
	}
	{
		dm := NewDiskManager(testFileName)
		defer dm.Close()
		require.Equal(t, int32(10), dm.NumberOfPages())
		buf := make([]byte, PageDataSize)
		for i := 0; i < 10; i++ {
			page := NewPage()
			require.Nil(t, dm.ReadPage(common.PageId(i), page))
			n := page.GetRecord(0, buf)
			require.Equal(t, len(allRecords[i]), n)
			require.Equal(t, allRecords[i], buf[:n])
		}
	}
}
