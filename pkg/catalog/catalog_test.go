package catalog

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/dtnitsch/layout-editor/models"
)

const sampleJSON = `[{"bbox":[1,2,3,4],"category":"Text","text":"hi"}]`

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

// setupTree lays out:
//
//	report/report_page_1.json + report_page_1_original.png
//	report/report_page_2.json + report_page_2.png
//	report/report_page_10.json + report_page_10_annotated.jpg (not a jpeg, still paired)
//	report/orphan_page_3.json (no image, skipped)
//	cover.json + cover.png
func setupTree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	img := pngBytes(t, 40, 30)

	writeFile(t, filepath.Join(dir, "report", "report_page_1.json"), []byte(sampleJSON))
	writeFile(t, filepath.Join(dir, "report", "report_page_1_original.png"), img)
	writeFile(t, filepath.Join(dir, "report", "report_page_2.json"), []byte(sampleJSON))
	writeFile(t, filepath.Join(dir, "report", "report_page_2.png"), img)
	writeFile(t, filepath.Join(dir, "report", "report_page_10.json"), []byte(sampleJSON))
	writeFile(t, filepath.Join(dir, "report", "report_page_10_annotated.jpg"), img)
	writeFile(t, filepath.Join(dir, "report", "orphan_page_3.json"), []byte(sampleJSON))
	writeFile(t, filepath.Join(dir, "cover.json"), []byte(sampleJSON))
	writeFile(t, filepath.Join(dir, "cover.png"), img)
	return dir
}

func TestSplitPageNumber(t *testing.T) {
	tests := []struct {
		stem     string
		wantDoc  string
		wantPage int
	}{
		{"report_page_3", "report", 3},
		{"report_Page12", "report", 12},
		{"report-page-7", "report", 7},
		{"scan_12", "scan", 12},
		{"scan-0004", "scan", 4},
		{"page_1", "page", 1},
		{"cover", "cover", 0},
		{"2023", "2023", 0},
	}
	for _, tt := range tests {
		t.Run(tt.stem, func(t *testing.T) {
			doc, page := SplitPageNumber(tt.stem)
			if doc != tt.wantDoc || page != tt.wantPage {
				t.Errorf("SplitPageNumber(%q) = %q, %d, want %q, %d", tt.stem, doc, page, tt.wantDoc, tt.wantPage)
			}
		})
	}
}

func TestListDocuments(t *testing.T) {
	c := New(Root{Dir: setupTree(t)})

	docs, err := c.ListDocuments()
	if err != nil {
		t.Fatalf("ListDocuments() error = %v", err)
	}
	want := []DocumentInfo{
		{DocID: "cover", Folder: "Root", PageCount: 1},
		{DocID: "report/report", Folder: "report", PageCount: 3},
	}
	if diff := cmp.Diff(want, docs); diff != "" {
		t.Errorf("ListDocuments() mismatch (-want +got):\n%s", diff)
	}
}

func TestListPages_OrderAndImages(t *testing.T) {
	c := New(Root{Dir: setupTree(t)})

	pages, err := c.ListPages("report/report")
	if err != nil {
		t.Fatalf("ListPages() error = %v", err)
	}
	want := []PageInfo{
		{DocID: "report/report", PageNo: 1, Name: "report_page_1", Folder: "report", JSONPath: "report/report_page_1.json", ImagePath: "report/report_page_1_original.png"},
		{DocID: "report/report", PageNo: 2, Name: "report_page_2", Folder: "report", JSONPath: "report/report_page_2.json", ImagePath: "report/report_page_2.png"},
		{DocID: "report/report", PageNo: 10, Name: "report_page_10", Folder: "report", JSONPath: "report/report_page_10.json", ImagePath: "report/report_page_10_annotated.jpg"},
	}
	if diff := cmp.Diff(want, pages, cmpopts.IgnoreUnexported(PageInfo{})); diff != "" {
		t.Errorf("ListPages() mismatch (-want +got):\n%s", diff)
	}

	if _, err := c.ListPages("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("ListPages(nope) error = %v, want ErrNotFound", err)
	}
}

func TestNavigate_Wraps(t *testing.T) {
	c := New(Root{Dir: setupTree(t)})

	tests := []struct {
		from     int
		forward  bool
		wantPage int
		wantPos  int
	}{
		{1, true, 2, 2},
		{10, true, 1, 1},
		{1, false, 10, 3},
		{2, false, 1, 1},
	}
	for _, tt := range tests {
		page, pos, total, err := c.Navigate("report/report", tt.from, tt.forward)
		if err != nil {
			t.Fatalf("Navigate(%d, %v) error = %v", tt.from, tt.forward, err)
		}
		if page.PageNo != tt.wantPage || pos != tt.wantPos || total != 3 {
			t.Errorf("Navigate(%d, %v) = page %d pos %d/%d, want page %d pos %d/3",
				tt.from, tt.forward, page.PageNo, pos, total, tt.wantPage, tt.wantPos)
		}
	}

	if _, _, _, err := c.Navigate("report/report", 99, true); !errors.Is(err, ErrNotFound) {
		t.Errorf("Navigate() unknown page error = %v, want ErrNotFound", err)
	}
}

func TestReadBoxesAndImage(t *testing.T) {
	c := New(Root{Dir: setupTree(t)})

	page, err := c.Page("report/report", 2)
	if err != nil {
		t.Fatalf("Page() error = %v", err)
	}
	boxes, err := c.ReadBoxes(page)
	if err != nil {
		t.Fatalf("ReadBoxes() error = %v", err)
	}
	if len(boxes) != 1 || boxes[0].TextValue() != "hi" {
		t.Errorf("ReadBoxes() = %+v", boxes)
	}

	img, err := c.PageImage(page)
	if err != nil {
		t.Fatalf("PageImage() error = %v", err)
	}
	if img.Width != 40 || img.Height != 30 || img.Format != "png" {
		t.Errorf("PageImage() = %dx%d %s, want 40x30 png", img.Width, img.Height, img.Format)
	}
}

func TestReadBoxes_InvalidInput(t *testing.T) {
	dir := setupTree(t)
	writeFile(t, filepath.Join(dir, "report", "report_page_2.json"), []byte(`[{"bbox":[0,0,1,1],"category":"Banner"}]`))
	c := New(Root{Dir: dir})

	page, err := c.Page("report/report", 2)
	if err != nil {
		t.Fatalf("Page() error = %v", err)
	}
	if _, err := c.ReadBoxes(page); !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("ReadBoxes() error = %v, want models.ErrInvalidInput", err)
	}
}

func TestMissingRoot(t *testing.T) {
	c := New(Root{Dir: filepath.Join(t.TempDir(), "does-not-exist")})
	docs, err := c.ListDocuments()
	if err != nil {
		t.Fatalf("ListDocuments() error = %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("ListDocuments() = %v, want none", docs)
	}
}

func TestSaveUpload(t *testing.T) {
	data := setupTree(t)
	uploads := filepath.Join(t.TempDir(), "uploads")
	c := New(Root{Dir: data}, Root{Name: "uploads", Dir: uploads})

	page, err := c.SaveUpload("uploads", "My Scan page 4.json", []byte(sampleJSON), "photo.PNG", pngBytes(t, 8, 8))
	if err != nil {
		t.Fatalf("SaveUpload() error = %v", err)
	}
	if page.DocID != "uploads/My_Scan" || page.PageNo != 4 {
		t.Errorf("SaveUpload() page = %s#%d, want uploads/My_Scan#4", page.DocID, page.PageNo)
	}

	boxes, err := c.ReadBoxes(page)
	if err != nil || len(boxes) != 1 {
		t.Errorf("ReadBoxes() = %v, %v", boxes, err)
	}
	if _, err := c.PageImage(page); err != nil {
		t.Errorf("PageImage() error = %v", err)
	}
}

func TestSaveUpload_Rejects(t *testing.T) {
	uploads := t.TempDir()
	c := New(Root{Name: "uploads", Dir: uploads})
	img := pngBytes(t, 8, 8)

	tests := []struct {
		name      string
		jsonName  string
		jsonData  string
		imageName string
		imageData []byte
	}{
		{"bad json", "a.json", `{"not":"a list"}`, "a.png", img},
		{"bad category", "a.json", `[{"bbox":[0,0,1,1],"category":"Banner"}]`, "a.png", img},
		{"not json ext", "a.txt", sampleJSON, "a.png", img},
		{"not image ext", "a.json", sampleJSON, "a.gif", img},
		{"not an image", "a.json", sampleJSON, "a.png", []byte("hello")},
		{"empty name", "", sampleJSON, "a.png", img},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.SaveUpload("uploads", tt.jsonName, []byte(tt.jsonData), tt.imageName, tt.imageData)
			if !errors.Is(err, ErrInvalidUpload) {
				t.Errorf("SaveUpload() error = %v, want ErrInvalidUpload", err)
			}
		})
	}

	entries, _ := os.ReadDir(uploads)
	if len(entries) != 0 {
		t.Errorf("rejected uploads left %d files", len(entries))
	}
}
