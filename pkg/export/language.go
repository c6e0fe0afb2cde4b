package export

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pemistahl/lingua-go"
)

// minDetectRunes is the shortest text worth running detection on.
const minDetectRunes = 20

// LanguageDetector tags documents with the language of their text.
type LanguageDetector struct {
	detector lingua.LanguageDetector
}

// NewLanguageDetector builds a detector restricted to the given ISO 639-1
// codes. At least two languages are required.
func NewLanguageDetector(codes []string) (*LanguageDetector, error) {
	byCode := make(map[string]lingua.Language)
	for _, lang := range lingua.AllLanguages() {
		byCode[strings.ToLower(lang.IsoCode639_1().String())] = lang
	}

	var languages []lingua.Language
	seen := make(map[lingua.Language]bool)
	for _, code := range codes {
		lang, ok := byCode[strings.ToLower(strings.TrimSpace(code))]
		if !ok {
			return nil, fmt.Errorf("unknown language code %q", code)
		}
		if !seen[lang] {
			seen[lang] = true
			languages = append(languages, lang)
		}
	}
	if len(languages) < 2 {
		return nil, fmt.Errorf("language detection needs at least 2 languages, got %d", len(languages))
	}

	detector := lingua.NewLanguageDetectorBuilder().
		FromLanguages(languages...).
		Build()
	return &LanguageDetector{detector: detector}, nil
}

// Detect returns the lower-case ISO 639-1 code of the text's language, or ""
// when the text is too short or no language is reliable.
func (d *LanguageDetector) Detect(text string) string {
	if utf8.RuneCountInString(strings.TrimSpace(text)) < minDetectRunes {
		return ""
	}
	lang, ok := d.detector.DetectLanguageOf(text)
	if !ok {
		return ""
	}
	return strings.ToLower(lang.IsoCode639_1().String())
}
