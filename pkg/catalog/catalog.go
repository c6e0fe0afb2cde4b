// Package catalog enumerates annotated pages on disk. A page is a JSON box
// list with a sibling page image; pages whose file names share a stem and
// differ only by page number form one document.
package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/dtnitsch/layout-editor/models"
)

// ErrNotFound is returned for unknown documents, pages and images.
var ErrNotFound = errors.New("not found")

// ImageExtensions are tried in order when looking for a page image.
var ImageExtensions = []string{".png", ".jpg", ".jpeg", ".tif", ".tiff", ".bmp", ".webp"}

// imageSuffixes are tried in order for each extension.
var imageSuffixes = []string{"_original", "", "_annotated"}

var (
	pageNumberPattern    = regexp.MustCompile(`(?i)^(.*?)[_-]?page[_-]?(\d+)$`)
	trailingDigitPattern = regexp.MustCompile(`^(.*?)[_-](\d+)$`)
)

// Root is a directory scanned for pages. Document ids found under it are
// prefixed with Name.
type Root struct {
	Name string
	Dir  string
}

// PageInfo describes one page on disk. Paths are slash separated and
// relative to the root directory.
type PageInfo struct {
	DocID     string `json:"doc_id"`
	PageNo    int    `json:"page_no"`
	Name      string `json:"name"`
	Folder    string `json:"folder"`
	JSONPath  string `json:"json_path"`
	ImagePath string `json:"image_path"`

	root string
}

// Key returns the page key.
func (p PageInfo) Key() models.PageKey {
	return models.PageKey{DocID: p.DocID, PageNo: p.PageNo}
}

// DocumentInfo summarizes one document.
type DocumentInfo struct {
	DocID     string `json:"doc_id"`
	Folder    string `json:"folder"`
	PageCount int    `json:"page_count"`
}

// Image is a page image with its decoded dimensions.
type Image struct {
	Data   []byte
	Format string
	Width  int
	Height int
}

// Catalog reads pages from a set of roots. It rescans on every call, so
// files added on disk show up without a restart.
type Catalog struct {
	roots []Root
}

// New creates a catalog over the given roots. Missing directories are
// treated as empty.
func New(roots ...Root) *Catalog {
	return &Catalog{roots: roots}
}

// scan walks every root and returns pages grouped by document, each document
// ordered by page number.
func (c *Catalog) scan() (map[string][]PageInfo, error) {
	docs := make(map[string][]PageInfo)

	for _, root := range c.roots {
		if _, err := os.Stat(root.Dir); errors.Is(err, os.ErrNotExist) {
			continue
		}
		err := filepath.WalkDir(root.Dir, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !strings.EqualFold(filepath.Ext(p), ".json") {
				return nil
			}
			page, ok := c.describe(root, p)
			if ok {
				docs[page.DocID] = append(docs[page.DocID], page)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", root.Dir, err)
		}
	}

	for id := range docs {
		pages := docs[id]
		sort.SliceStable(pages, func(i, j int) bool {
			if pages[i].PageNo != pages[j].PageNo {
				return pages[i].PageNo < pages[j].PageNo
			}
			return pages[i].Name < pages[j].Name
		})
	}
	return docs, nil
}

// describe builds the page for a JSON file, if it has an image next to it.
func (c *Catalog) describe(root Root, jsonPath string) (PageInfo, bool) {
	dir := filepath.Dir(jsonPath)
	base := filepath.Base(jsonPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	imagePath, ok := findImage(dir, stem)
	if !ok {
		return PageInfo{}, false
	}

	relDir, err := filepath.Rel(root.Dir, dir)
	if err != nil {
		return PageInfo{}, false
	}
	relDir = filepath.ToSlash(relDir)
	if relDir == "." {
		relDir = ""
	}

	docStem, pageNo := SplitPageNumber(stem)
	folder := path.Base(relDir)
	if relDir == "" {
		folder = "Root"
	}
	relImage, _ := filepath.Rel(root.Dir, imagePath)

	return PageInfo{
		DocID:     path.Join(root.Name, relDir, docStem),
		PageNo:    pageNo,
		Name:      stem,
		Folder:    folder,
		JSONPath:  path.Join(relDir, base),
		ImagePath: filepath.ToSlash(relImage),
		root:      root.Dir,
	}, true
}

func findImage(dir, stem string) (string, bool) {
	for _, ext := range ImageExtensions {
		for _, suffix := range imageSuffixes {
			candidate := filepath.Join(dir, stem+suffix+ext)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate, true
			}
		}
	}
	return "", false
}

// SplitPageNumber separates the page number from a file stem:
// "report_page_3" -> ("report", 3), "scan-12" -> ("scan", 12). Stems
// without a number are single pages numbered 0.
func SplitPageNumber(stem string) (string, int) {
	for _, pattern := range []*regexp.Regexp{pageNumberPattern, trailingDigitPattern} {
		m := pattern.FindStringSubmatch(stem)
		if m == nil || m[1] == "" {
			continue
		}
		n, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		return m[1], n
	}
	return stem, 0
}

// ListDocuments returns every document ordered by id.
func (c *Catalog) ListDocuments() ([]DocumentInfo, error) {
	docs, err := c.scan()
	if err != nil {
		return nil, err
	}
	out := make([]DocumentInfo, 0, len(docs))
	for id, pages := range docs {
		out = append(out, DocumentInfo{DocID: id, Folder: pages[0].Folder, PageCount: len(pages)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DocID < out[j].DocID })
	return out, nil
}

// ListPages returns the pages of a document ordered by page number.
func (c *Catalog) ListPages(docID string) ([]PageInfo, error) {
	docs, err := c.scan()
	if err != nil {
		return nil, err
	}
	pages, ok := docs[docID]
	if !ok {
		return nil, fmt.Errorf("document %q: %w", docID, ErrNotFound)
	}
	return pages, nil
}

// Page returns one page of a document.
func (c *Catalog) Page(docID string, pageNo int) (PageInfo, error) {
	pages, err := c.ListPages(docID)
	if err != nil {
		return PageInfo{}, err
	}
	for _, p := range pages {
		if p.PageNo == pageNo {
			return p, nil
		}
	}
	return PageInfo{}, fmt.Errorf("page %d of %q: %w", pageNo, docID, ErrNotFound)
}

// Navigate returns the page after (or before) the given one, wrapping around
// at the ends of the document, together with its 1-based position.
func (c *Catalog) Navigate(docID string, pageNo int, forward bool) (PageInfo, int, int, error) {
	pages, err := c.ListPages(docID)
	if err != nil {
		return PageInfo{}, 0, 0, err
	}
	current := -1
	for i, p := range pages {
		if p.PageNo == pageNo {
			current = i
			break
		}
	}
	if current < 0 {
		return PageInfo{}, 0, 0, fmt.Errorf("page %d of %q: %w", pageNo, docID, ErrNotFound)
	}

	n := len(pages)
	next := (current + 1) % n
	if !forward {
		next = (current - 1 + n) % n
	}
	return pages[next], next + 1, n, nil
}

// ReadBoxes reads the original box list of a page from disk.
func (c *Catalog) ReadBoxes(page PageInfo) ([]models.Box, error) {
	data, err := os.ReadFile(c.abs(page, page.JSONPath))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", page.JSONPath, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", page.JSONPath, err)
	}
	boxes, err := models.DecodeBoxes(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", page.JSONPath, err)
	}
	return boxes, nil
}

// SourcePath returns the page's JSON file path on disk.
func (c *Catalog) SourcePath(page PageInfo) string {
	return c.abs(page, page.JSONPath)
}

// PageImage reads a page image and decodes its dimensions.
func (c *Catalog) PageImage(page PageInfo) (*Image, error) {
	data, err := os.ReadFile(c.abs(page, page.ImagePath))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("image %s: %w", page.ImagePath, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read image %s: %w", page.ImagePath, err)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", page.ImagePath, err)
	}
	return &Image{Data: data, Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}

func (c *Catalog) abs(page PageInfo, rel string) string {
	root := page.root
	if root == "" {
		root = c.rootFor(page.DocID)
	}
	return filepath.Join(root, filepath.FromSlash(rel))
}

// rootFor finds the root directory of a document id built by describe.
func (c *Catalog) rootFor(docID string) string {
	for _, r := range c.roots {
		if r.Name != "" && strings.HasPrefix(docID, r.Name+"/") {
			return r.Dir
		}
	}
	for _, r := range c.roots {
		if r.Name == "" {
			return r.Dir
		}
	}
	return ""
}
