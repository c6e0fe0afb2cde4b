package models

import (
	"fmt"
	"time"
)

// PageKey identifies a page: the document it belongs to and its page number.
type PageKey struct {
	DocID  string `json:"doc_id"`
	PageNo int    `json:"page_no"`
}

func (k PageKey) String() string {
	return fmt.Sprintf("%s#%d", k.DocID, k.PageNo)
}

// PageRecord is the persisted state of one page. Boxes are in reading order;
// Groups hold indexes into Boxes.
type PageRecord struct {
	PageKey
	SourcePath  string
	Boxes       []Box
	Groups      [][]int
	Validated   bool
	ValidatedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PageStatus is the validation state of a saved page.
type PageStatus struct {
	PageKey
	BoxCount    int
	Validated   bool
	ValidatedAt *time.Time
	UpdatedAt   time.Time
}
