package common

import (
	"crypto/sha256"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ContentHash computes SHA256 hash of content and returns hex string.
func ContentHash(data []byte) string {
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%x", hash)
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// SanitizeFilename reduces an uploaded file name to a safe base name.
// Directory parts are dropped, accents are stripped, spaces become
// underscores and anything outside [A-Za-z0-9_.-] is removed.
// Example: "../My Scans/Page 1 (é).png" -> "Page_1_e.png"
func SanitizeFilename(name string) string {
	// Take the last path element for both separators
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base("/" + name)

	// Decompose accented letters so the base letter survives the filter
	decomposed := norm.NFKD.String(name)
	var b strings.Builder
	for _, r := range decomposed {
		if r < 0x80 {
			b.WriteRune(r)
		}
	}

	cleaned := strings.Join(strings.Fields(b.String()), "_")
	cleaned = unsafeFilenameChars.ReplaceAllString(cleaned, "")
	cleaned = strings.Trim(cleaned, "._")
	cleaned = strings.ReplaceAll(cleaned, "_.", ".")
	return cleaned
}
