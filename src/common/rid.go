package common

import "fmt"

// RID names a record by the page holding it and its slot within that page.
// Deleting a record compacts the slot directory, so RIDs of later slots on
// the same page are invalidated by a delete.
type RID struct {
	PageId  PageId
	SlotNum int
}

func (rid *RID) String() string {
	return fmt.Sprintf("[Page id %d, slot num %d]", rid.PageId, rid.SlotNum)
}
