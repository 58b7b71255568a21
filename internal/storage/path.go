package storage

import (
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var asciiFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// SanitizeFilename folds accented characters to ASCII and replaces anything
// unsafe for an object key. Owner-supplied filenames routinely carry spaces
// and Spanish diacritics.
func SanitizeFilename(name string) string {
	folded, _, err := transform.String(asciiFold, name)
	if err != nil {
		folded = name
	}

	ext := filepath.Ext(folded)
	base := strings.TrimSuffix(folded, ext)

	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ' || r == '.':
			b.WriteRune('_')
		}
	}

	cleaned := b.String()
	if cleaned == "" {
		cleaned = "file"
	}
	return cleaned + strings.ToLower(ext)
}
