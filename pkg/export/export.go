// Package export turns saved pages into page, document and project exports.
// Exports are read-only: a page's saved record is used when there is one,
// otherwise its original file.
package export

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dtnitsch/layout-editor/models"
	"github.com/dtnitsch/layout-editor/pkg/catalog"
	"github.com/dtnitsch/layout-editor/pkg/db"
	"github.com/dtnitsch/layout-editor/pkg/mapreduce"
)

// PageSource lists pages and reads their original files.
type PageSource interface {
	ListDocuments() ([]catalog.DocumentInfo, error)
	ListPages(docID string) ([]catalog.PageInfo, error)
	ReadBoxes(page catalog.PageInfo) ([]models.Box, error)
	PageImage(page catalog.PageInfo) (*catalog.Image, error)
}

// RecordStore reads saved pages.
type RecordStore interface {
	LoadPage(ctx context.Context, docID string, pageNo int) (*models.PageRecord, error)
}

// PageExport is one page of a document export.
type PageExport struct {
	PageNo      int          `json:"page_no" yaml:"page_no"`
	Name        string       `json:"name" yaml:"name"`
	Validated   bool         `json:"validated" yaml:"validated"`
	ValidatedAt *time.Time   `json:"validated_at,omitempty" yaml:"validated_at,omitempty"`
	Width       int          `json:"width" yaml:"width"`
	Height      int          `json:"height" yaml:"height"`
	Edited      bool         `json:"edited" yaml:"edited"`
	Boxes       []models.Box `json:"boxes" yaml:"boxes"`
	Groups      [][]int      `json:"groups,omitempty" yaml:"groups,omitempty"`
}

// DocumentExport is every page of a document with document metadata.
type DocumentExport struct {
	DocID          string                  `json:"doc_id" yaml:"doc_id"`
	Folder         string                  `json:"folder" yaml:"folder"`
	PageCount      int                     `json:"page_count" yaml:"page_count"`
	ValidatedPages int                     `json:"validated_pages" yaml:"validated_pages"`
	Language       string                  `json:"language,omitempty" yaml:"language,omitempty"`
	Categories     map[models.Category]int `json:"categories" yaml:"categories"`
	ExportedAt     time.Time               `json:"exported_at" yaml:"exported_at"`
	Pages          []PageExport            `json:"pages" yaml:"pages"`
}

// ProjectExport is every document in the catalog.
type ProjectExport struct {
	ExportedAt time.Time        `json:"exported_at" yaml:"exported_at"`
	Documents  []DocumentExport `json:"documents" yaml:"documents"`
}

// Service builds exports from the catalog and the page store.
type Service struct {
	pages    PageSource
	records  RecordStore
	detector *LanguageDetector
	now      func() time.Time
}

// NewService creates an export service. detector may be nil, in which case
// documents carry no language.
func NewService(pages PageSource, records RecordStore, detector *LanguageDetector) *Service {
	return &Service{pages: pages, records: records, detector: detector, now: time.Now}
}

// Page returns the current box list of one page in reading order.
func (s *Service) Page(ctx context.Context, docID string, pageNo int) ([]models.Box, error) {
	page, err := s.findPage(docID, pageNo)
	if err != nil {
		return nil, err
	}
	p, err := s.pageExport(ctx, page, false)
	if err != nil {
		return nil, err
	}
	return p.Boxes, nil
}

// Document returns the export of one document.
func (s *Service) Document(ctx context.Context, docID string) (*DocumentExport, error) {
	pages, err := s.pages.ListPages(docID)
	if err != nil {
		return nil, err
	}
	doc := &DocumentExport{
		DocID:      docID,
		PageCount:  len(pages),
		ExportedAt: s.now().UTC(),
		Pages:      make([]PageExport, 0, len(pages)),
	}
	if len(pages) > 0 {
		doc.Folder = pages[0].Folder
	}

	var (
		text   strings.Builder
		counts []map[models.Category]int
	)
	for _, page := range pages {
		p, err := s.pageExport(ctx, page, true)
		if err != nil {
			return nil, err
		}
		if p.Validated {
			doc.ValidatedPages++
		}
		for _, b := range p.Boxes {
			if b.Text != nil && *b.Text != "" {
				text.WriteString(*b.Text)
				text.WriteByte('\n')
			}
		}
		counts = append(counts, mapreduce.Map(p.Boxes))
		doc.Pages = append(doc.Pages, p)
	}
	doc.Categories = mapreduce.Reduce(counts)

	if s.detector != nil {
		doc.Language = s.detector.Detect(text.String())
	}
	return doc, nil
}

// Project returns the export of every document.
func (s *Service) Project(ctx context.Context) (*ProjectExport, error) {
	docs, err := s.pages.ListDocuments()
	if err != nil {
		return nil, err
	}
	project := &ProjectExport{
		ExportedAt: s.now().UTC(),
		Documents:  make([]DocumentExport, 0, len(docs)),
	}
	for _, d := range docs {
		doc, err := s.Document(ctx, d.DocID)
		if err != nil {
			return nil, fmt.Errorf("failed to export %s: %w", d.DocID, err)
		}
		project.Documents = append(project.Documents, *doc)
	}
	return project, nil
}

func (s *Service) findPage(docID string, pageNo int) (catalog.PageInfo, error) {
	pages, err := s.pages.ListPages(docID)
	if err != nil {
		return catalog.PageInfo{}, err
	}
	for _, p := range pages {
		if p.PageNo == pageNo {
			return p, nil
		}
	}
	return catalog.PageInfo{}, fmt.Errorf("page %d of %q: %w", pageNo, docID, catalog.ErrNotFound)
}

func (s *Service) pageExport(ctx context.Context, page catalog.PageInfo, withSize bool) (PageExport, error) {
	out := PageExport{PageNo: page.PageNo, Name: page.Name}

	rec, err := s.records.LoadPage(ctx, page.DocID, page.PageNo)
	switch {
	case err == nil:
		out.Boxes = rec.Boxes
		out.Groups = rec.Groups
		out.Validated = rec.Validated
		out.ValidatedAt = rec.ValidatedAt
		out.Edited = true
	case errors.Is(err, db.ErrPageNotFound):
		out.Boxes, err = s.pages.ReadBoxes(page)
		if err != nil {
			return PageExport{}, fmt.Errorf("failed to read %s: %w", page.JSONPath, err)
		}
	default:
		return PageExport{}, err
	}
	if len(out.Groups) == 0 {
		out.Groups = nil
	}

	if withSize {
		img, err := s.pages.PageImage(page)
		if err != nil {
			return PageExport{}, err
		}
		out.Width, out.Height = img.Width, img.Height
	}
	return out, nil
}
