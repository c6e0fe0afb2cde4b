package models

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"
)

func TestDecodeBoxes(t *testing.T) {
	input := `[
		{"id": 7, "bbox": [1, 2.5, 3, 4], "category": "Text", "text": "", "confidence": 0.93},
		{"id": "cap", "bbox": [0, 0, 1, 1], "category": "Caption", "text": null},
		{"bbox": [0, 0, 1, 1], "category": "Picture"}
	]`
	boxes, err := DecodeBoxes([]byte(input))
	if err != nil {
		t.Fatalf("DecodeBoxes() error = %v", err)
	}
	if len(boxes) != 3 {
		t.Fatalf("len(boxes) = %d, want 3", len(boxes))
	}

	first := boxes[0]
	if first.ID != "7" || first.BBox != (BBox{1, 2.5, 3, 4}) || first.Text == nil || *first.Text != "" {
		t.Errorf("first box = %+v", first)
	}
	if string(first.Extra["confidence"]) != "0.93" {
		t.Errorf("Extra = %v, want confidence kept", first.Extra)
	}
	if boxes[1].ID != "cap" || boxes[1].Text != nil {
		t.Errorf("second box = %+v, want id cap and no text", boxes[1])
	}
}

func TestDecodeBoxes_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not a list", `{"bbox":[0,0,1,1]}`},
		{"missing bbox", `[{"category":"Text"}]`},
		{"short bbox", `[{"bbox":[0,0,1],"category":"Text"}]`},
		{"string coords", `[{"bbox":["0",0,1,1],"category":"Text"}]`},
		{"missing category", `[{"bbox":[0,0,1,1]}]`},
		{"unknown category", `[{"bbox":[0,0,1,1],"category":"text"}]`},
		{"numeric text", `[{"bbox":[0,0,1,1],"category":"Text","text":5}]`},
		{"object id", `[{"id":{},"bbox":[0,0,1,1],"category":"Text"}]`},
		{"null box", `[null]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeBoxes([]byte(tt.input)); !errors.Is(err, ErrInvalidInput) {
				t.Errorf("DecodeBoxes(%s) error = %v, want ErrInvalidInput", tt.input, err)
			}
		})
	}
}

func TestEncodeBoxes_PreservesShape(t *testing.T) {
	input := `[{"id":"x","bbox":[1,2,3,4],"category":"Text","zeta":true,"alpha":[1,2]},{"bbox":[0,0,1,1],"category":"Picture","text":""}]`
	boxes, err := DecodeBoxes([]byte(input))
	if err != nil {
		t.Fatalf("DecodeBoxes() error = %v", err)
	}
	out, err := EncodeBoxes(boxes)
	if err != nil {
		t.Fatalf("EncodeBoxes() error = %v", err)
	}

	compact := strings.Join(strings.Fields(string(out)), "")
	want := `[{"bbox":[1,2,3,4],"category":"Text","alpha":[1,2],"zeta":true},{"bbox":[0,0,1,1],"category":"Picture","text":""}]`
	if compact != want {
		t.Errorf("EncodeBoxes() = %s\nwant %s", compact, want)
	}

	empty, err := EncodeBoxes(nil)
	if err != nil || string(empty) != "[]" {
		t.Errorf("EncodeBoxes(nil) = %s, %v", empty, err)
	}
}

func TestBox_MarshalYAML(t *testing.T) {
	boxes, err := DecodeBoxes([]byte(`[{"bbox":[1,2,3,4.5],"category":"Title","text":"42","score":0.5}]`))
	if err != nil {
		t.Fatalf("DecodeBoxes() error = %v", err)
	}
	out, err := yaml.Marshal(boxes)
	if err != nil {
		t.Fatalf("yaml.Marshal() error = %v", err)
	}

	var got []map[string]interface{}
	if err := yaml.Unmarshal(out, &got); err != nil {
		t.Fatalf("yaml.Unmarshal() error = %v\n%s", err, out)
	}
	want := []map[string]interface{}{{
		"bbox":     []interface{}{1, 2, 3, 4.5},
		"category": "Title",
		"text":     "42",
		"score":    0.5,
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("YAML mismatch (-want +got):\n%s", diff)
	}
	if i, j := strings.Index(string(out), "bbox"), strings.Index(string(out), "category"); i > j {
		t.Errorf("bbox should come before category:\n%s", out)
	}
}

func TestBBox(t *testing.T) {
	tests := []struct {
		name    string
		box     BBox
		wantErr bool
	}{
		{"ok", BBox{0, 0, 1, 1}, false},
		{"degenerate", BBox{1, 1, 1, 1}, false},
		{"negative", BBox{-1, 0, 1, 1}, true},
		{"inverted", BBox{2, 0, 1, 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.box.Check(); (err != nil) != tt.wantErr {
				t.Errorf("Check() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	if got := (BBox{10, 10, 120, 90}).Clamp(100, 80); got != (BBox{10, 10, 100, 80}) {
		t.Errorf("Clamp() = %v", got)
	}
	if got := (BBox{0, 5, 2, 6}).Union(BBox{1, 0, 3, 4}); got != (BBox{0, 0, 3, 6}) {
		t.Errorf("Union() = %v", got)
	}
}

func TestParseCategory(t *testing.T) {
	for _, c := range Categories {
		if got, err := ParseCategory(string(c)); err != nil || got != c {
			t.Errorf("ParseCategory(%q) = %q, %v", c, got, err)
		}
	}
	if _, err := ParseCategory("Banner"); err == nil {
		t.Error("ParseCategory(Banner) should fail")
	}
	if CategoryPicture.HasText() || !CategoryCaption.HasText() {
		t.Error("HasText() should be false only for pictures")
	}
}
