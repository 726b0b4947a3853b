// Package normalize provides utilities for normalizing and sanitizing data.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	// Matches any run of whitespace, including newlines.
	whitespaceRun = regexp.MustCompile(`\s+`)
	// Matches any non-alphanumeric character.
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)
	// Matches multiple hyphens.
	multipleHyphens = regexp.MustCompile(`-+`)
)

// HighlightText canonicalizes highlight text exported from a reading device.
// The same underlying highlight can arrive with different line endings,
// soft-wrap newlines, or compatibility codepoints depending on the export
// run, so everything that compares highlight text must compare this form.
//
// It applies, in order:
//   - NFKC unicode normalization (folds compatibility variants).
//   - Null byte removal (some export formats include terminators).
//   - Collapse of all whitespace runs (spaces, tabs, CR/LF) to one space.
//   - Trim of leading/trailing whitespace.
func HighlightText(s string) string {
	s = norm.NFKC.String(s)
	s = sanitizeString(s)
	s = whitespaceRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Slugify converts a string to a URL-safe slug.
// "Science Fiction" -> "science-fiction".
// "Re-Read" -> "re-read".
// "Quotes/Favorites" -> "quotes-favorites".
func Slugify(s string) string {
	// Normalize unicode (decompose accented characters).
	s = norm.NFKD.String(s)

	// Remove non-ASCII characters.
	s = strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, s)

	// Lowercase.
	s = strings.ToLower(s)

	// Replace non-alphanumeric with hyphens.
	s = nonAlphanumeric.ReplaceAllString(s, "-")

	// Collapse multiple hyphens.
	s = multipleHyphens.ReplaceAllString(s, "-")

	// Trim leading/trailing hyphens.
	s = strings.Trim(s, "-")

	return s
}

// sanitizeString removes null bytes from strings, which can cause
// issues in databases and JSON parsing.
func sanitizeString(s string) string {
	return strings.Map(func(r rune) rune {
		if r == 0 { // null byte
			return -1 // drop it
		}
		return r
	}, s)
}
