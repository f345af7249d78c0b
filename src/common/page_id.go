package common

type PageId int32

const (
	InvalidPageId = PageId(-1)
)
