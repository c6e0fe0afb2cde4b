package common

import "testing"

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "page_1.json", "page_1.json"},
		{"spaces", "scan page 2.png", "scan_page_2.png"},
		{"traversal", "../../etc/passwd", "passwd"},
		{"windows path", `C:\scans\page_3.jpg`, "page_3.jpg"},
		{"accents", "Page 1 (é).png", "Page_1_e.png"},
		{"hidden", ".hidden.json", "hidden.json"},
		{"empty", "", ""},
		{"only symbols", "(*)", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeFilename(tt.in); got != tt.want {
				t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestContentHash(t *testing.T) {
	a := ContentHash([]byte(`[{"bbox":[0,0,1,1],"category":"Text"}]`))
	b := ContentHash([]byte(`[{"bbox":[0,0,1,1],"category":"Title"}]`))
	if len(a) != 64 {
		t.Errorf("len(ContentHash()) = %d, want 64", len(a))
	}
	if a == b {
		t.Error("different content produced the same hash")
	}
}
