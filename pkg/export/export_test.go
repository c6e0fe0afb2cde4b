package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/image/tiff"
	"gopkg.in/yaml.v3"

	"github.com/dtnitsch/layout-editor/models"
	"github.com/dtnitsch/layout-editor/pkg/catalog"
	"github.com/dtnitsch/layout-editor/pkg/db"
)

const englishPage = `[
	{"bbox":[10,10,200,40],"category":"Title","text":"Annual report of the harbour authority"},
	{"bbox":[10,50,200,150],"category":"Text","text":"The board reviewed the shipping volumes and agreed to extend the northern quay before the winter season."},
	{"bbox":[10,160,200,300],"category":"Picture"}
]`

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

func encodeImage(t *testing.T, tiffFormat bool) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 320, 400))
	var buf bytes.Buffer
	var err error
	if tiffFormat {
		err = tiff.Encode(&buf, img, nil)
	} else {
		err = png.Encode(&buf, img)
	}
	if err != nil {
		t.Fatalf("encode image error = %v", err)
	}
	return buf.Bytes()
}

type fixture struct {
	svc   *Service
	store *db.DB
}

// setupFixture lays out one two-page document, "harbour/harbour", whose
// second page image is a TIFF.
func setupFixture(t *testing.T, detector *LanguageDetector) fixture {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "harbour", "harbour_page_1.json"), []byte(englishPage))
	writeFile(t, filepath.Join(dir, "harbour", "harbour_page_1.png"), encodeImage(t, false))
	writeFile(t, filepath.Join(dir, "harbour", "harbour_page_2.json"), []byte(`[{"bbox":[5,5,50,50],"category":"Table"}]`))
	writeFile(t, filepath.Join(dir, "harbour", "harbour_page_2.tiff"), encodeImage(t, true))

	store, err := db.Open(filepath.Join(t.TempDir(), "export.db"))
	if err != nil {
		t.Fatalf("db.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	svc := NewService(catalog.New(catalog.Root{Dir: dir}), store, detector)
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return fixture{svc: svc, store: store}
}

func TestDocument_FallsBackToOriginal(t *testing.T) {
	f := setupFixture(t, nil)

	doc, err := f.svc.Document(context.Background(), "harbour/harbour")
	if err != nil {
		t.Fatalf("Document() error = %v", err)
	}
	if doc.PageCount != 2 || doc.ValidatedPages != 0 || doc.Folder != "harbour" {
		t.Errorf("Document() = %d pages, %d validated, folder %q", doc.PageCount, doc.ValidatedPages, doc.Folder)
	}
	if doc.Language != "" {
		t.Errorf("Language = %q without a detector", doc.Language)
	}
	wantCounts := map[models.Category]int{
		models.CategoryTitle:   1,
		models.CategoryText:    1,
		models.CategoryPicture: 1,
		models.CategoryTable:   1,
	}
	if diff := cmp.Diff(wantCounts, doc.Categories); diff != "" {
		t.Errorf("Categories mismatch (-want +got):\n%s", diff)
	}
	first := doc.Pages[0]
	if first.Edited || len(first.Boxes) != 3 || first.Width != 320 || first.Height != 400 {
		t.Errorf("page 1 = edited %v, %d boxes, %dx%d", first.Edited, len(first.Boxes), first.Width, first.Height)
	}
}

func TestDocument_UsesSavedRecord(t *testing.T) {
	f := setupFixture(t, nil)
	ctx := context.Background()

	key := models.PageKey{DocID: "harbour/harbour", PageNo: 2}
	rec := models.PageRecord{
		PageKey: key,
		Boxes: []models.Box{
			{BBox: models.BBox{0, 0, 10, 10}, Category: models.CategoryText, Text: models.StringPtr("a")},
			{BBox: models.BBox{0, 20, 10, 30}, Category: models.CategoryText, Text: models.StringPtr("b")},
		},
		Groups: [][]int{{0, 1}},
	}
	if err := f.store.SavePage(ctx, rec); err != nil {
		t.Fatalf("SavePage() error = %v", err)
	}
	at := time.Date(2024, 4, 30, 8, 0, 0, 0, time.UTC)
	if err := f.store.MarkValidated(ctx, key, true, at); err != nil {
		t.Fatalf("MarkValidated() error = %v", err)
	}

	doc, err := f.svc.Document(ctx, "harbour/harbour")
	if err != nil {
		t.Fatalf("Document() error = %v", err)
	}
	if doc.ValidatedPages != 1 {
		t.Errorf("ValidatedPages = %d, want 1", doc.ValidatedPages)
	}
	second := doc.Pages[1]
	if !second.Edited || !second.Validated || second.ValidatedAt == nil || !second.ValidatedAt.Equal(at) {
		t.Errorf("page 2 = edited %v validated %v at %v", second.Edited, second.Validated, second.ValidatedAt)
	}
	if diff := cmp.Diff(rec.Boxes, second.Boxes); diff != "" {
		t.Errorf("page 2 boxes mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(rec.Groups, second.Groups); diff != "" {
		t.Errorf("page 2 groups mismatch (-want +got):\n%s", diff)
	}
}

func TestPage(t *testing.T) {
	f := setupFixture(t, nil)

	boxes, err := f.svc.Page(context.Background(), "harbour/harbour", 1)
	if err != nil {
		t.Fatalf("Page() error = %v", err)
	}
	var buf bytes.Buffer
	if err := WriteJSON(&buf, boxes); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	var wire []map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &wire); err != nil {
		t.Fatalf("page export is not a JSON list: %v", err)
	}
	if len(wire) != 3 {
		t.Fatalf("len(wire) = %d, want 3", len(wire))
	}
	if _, ok := wire[2]["text"]; ok {
		t.Error("picture box gained a text key")
	}

	if _, err := f.svc.Page(context.Background(), "harbour/harbour", 7); !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("Page() unknown page error = %v, want catalog.ErrNotFound", err)
	}
}

func TestProject_YAML(t *testing.T) {
	f := setupFixture(t, nil)

	project, err := f.svc.Project(context.Background())
	if err != nil {
		t.Fatalf("Project() error = %v", err)
	}
	if len(project.Documents) != 1 {
		t.Fatalf("len(Documents) = %d, want 1", len(project.Documents))
	}

	var buf bytes.Buffer
	if err := WriteYAML(&buf, project); err != nil {
		t.Fatalf("WriteYAML() error = %v", err)
	}
	var decoded struct {
		Documents []struct {
			DocID string `yaml:"doc_id"`
			Pages []struct {
				PageNo int `yaml:"page_no"`
				Boxes  []struct {
					BBox     []float64 `yaml:"bbox"`
					Category string    `yaml:"category"`
				} `yaml:"boxes"`
			} `yaml:"pages"`
		} `yaml:"documents"`
	}
	if err := yaml.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("yaml.Unmarshal() error = %v\n%s", err, buf.String())
	}
	d := decoded.Documents[0]
	if d.DocID != "harbour/harbour" || len(d.Pages) != 2 || d.Pages[0].Boxes[0].Category != "Title" {
		t.Errorf("decoded project = %+v", decoded)
	}
	if diff := cmp.Diff([]float64{10, 10, 200, 40}, d.Pages[0].Boxes[0].BBox); diff != "" {
		t.Errorf("bbox mismatch (-want +got):\n%s", diff)
	}
}

func TestDocument_Language(t *testing.T) {
	detector, err := NewLanguageDetector([]string{"en", "de", "fr", "es"})
	if err != nil {
		t.Fatalf("NewLanguageDetector() error = %v", err)
	}
	f := setupFixture(t, detector)

	doc, err := f.svc.Document(context.Background(), "harbour/harbour")
	if err != nil {
		t.Fatalf("Document() error = %v", err)
	}
	if doc.Language != "en" {
		t.Errorf("Language = %q, want en", doc.Language)
	}
}

func TestLanguageDetector(t *testing.T) {
	if _, err := NewLanguageDetector([]string{"en"}); err == nil {
		t.Error("NewLanguageDetector() with one language should fail")
	}
	if _, err := NewLanguageDetector([]string{"en", "xx"}); err == nil {
		t.Error("NewLanguageDetector() with an unknown code should fail")
	}

	d, err := NewLanguageDetector([]string{"EN", "de", "en"})
	if err != nil {
		t.Fatalf("NewLanguageDetector() error = %v", err)
	}
	if got := d.Detect("Der Vorstand hat die Zahlen des vergangenen Jahres geprüft und freigegeben."); got != "de" {
		t.Errorf("Detect(german) = %q, want de", got)
	}
	if got := d.Detect("ok"); got != "" {
		t.Errorf("Detect(short) = %q, want empty", got)
	}
}

func TestWritePDF(t *testing.T) {
	f := setupFixture(t, nil)

	var buf bytes.Buffer
	if err := f.svc.WritePDF(context.Background(), &buf); err != nil {
		t.Fatalf("WritePDF() error = %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Errorf("WritePDF() output does not start with a PDF header: %q", buf.Bytes()[:min(16, buf.Len())])
	}

	if err := f.svc.WritePDF(context.Background(), &buf, "missing"); !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("WritePDF(missing) error = %v, want catalog.ErrNotFound", err)
	}
}

func TestBoxLabel(t *testing.T) {
	long := strings.Repeat("word ", 20)
	tests := []struct {
		name string
		box  models.Box
		want string
	}{
		{"no text", models.Box{Category: models.CategoryPicture}, "3 Picture"},
		{"text", models.Box{Category: models.CategoryText, Text: models.StringPtr("  Grüße\n aus Köln ")}, "3 Text: Grüße aus Köln"},
		{"truncated", models.Box{Category: models.CategoryText, Text: models.StringPtr(long)}, "3 Text: " + long[:40] + "..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := boxLabel(3, tt.box); got != tt.want {
				t.Errorf("boxLabel() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWritePDF_UnreadableImage(t *testing.T) {
	f := setupFixture(t, nil)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "scan_page_1.json"), []byte(englishPage))
	writeFile(t, filepath.Join(dir, "scan_page_1.png"), []byte("not a png"))
	svc := NewService(catalog.New(catalog.Root{Dir: dir}), f.store, nil)

	var buf bytes.Buffer
	if err := svc.WritePDF(context.Background(), &buf, "scan"); err == nil {
		t.Error("WritePDF() with an unreadable image succeeded, want error")
	}
	if buf.Len() != 0 {
		t.Errorf("WritePDF() wrote %d bytes before failing", buf.Len())
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatJSON, false},
		{"JSON", FormatJSON, false},
		{"yml", FormatYAML, false},
		{"pdf", FormatPDF, false},
		{"csv", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
	if FormatPDF.ContentType() != "application/pdf" || FormatYAML.Extension() != ".yaml" {
		t.Error("unexpected format metadata")
	}
}
