package models

import "fmt"

// Category is the layout element type of a box.
type Category string

const (
	CategoryCaption       Category = "Caption"
	CategoryFootnote      Category = "Footnote"
	CategoryFormula       Category = "Formula"
	CategoryListItem      Category = "List-item"
	CategoryPageFooter    Category = "Page-footer"
	CategoryPageHeader    Category = "Page-header"
	CategoryPicture       Category = "Picture"
	CategorySectionHeader Category = "Section-header"
	CategoryTable         Category = "Table"
	CategoryText          Category = "Text"
	CategoryTitle         Category = "Title"
)

// Categories lists every layout category in display order.
var Categories = []Category{
	CategoryCaption,
	CategoryFootnote,
	CategoryFormula,
	CategoryListItem,
	CategoryPageFooter,
	CategoryPageHeader,
	CategoryPicture,
	CategorySectionHeader,
	CategoryTable,
	CategoryText,
	CategoryTitle,
}

// ParseCategory resolves a category name. Names are case sensitive.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}

// Valid reports whether c is one of the fixed categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// HasText reports whether boxes of this category normally carry text.
func (c Category) HasText() bool {
	return c != CategoryPicture
}
