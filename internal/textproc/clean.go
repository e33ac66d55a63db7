// Package textproc cleans and segments OCR output from photographed Chinese
// book pages before it is handed to the translation pipeline, and provides a
// local pinyin fallback for when the LLM path is unavailable.
package textproc

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	// Standalone page numbers, optionally wrapped in dashes or dots
	pageNumberRe = regexp.MustCompile(`^[\s\-–—.·]*\d{1,4}[\s\-–—.·]*$`)

	// Page separators emitted by multi-page OCR aggregation
	pageMarkerRe = regexp.MustCompile(`^-{2,}\s*Page\s*\d+\s*-{2,}$`)

	// Runs of whitespace inside a line
	innerSpaceRe = regexp.MustCompile(`[ \t\x{3000}]+`)
)

// CleanOptions tunes noise filtering for a page of OCR text.
type CleanOptions struct {
	// MinCJKRatio is the minimum share of CJK runes a line must carry to
	// survive; lines below it are treated as OCR garbage (rulers, smudges,
	// latin running heads). Lines holding any CJK at all are kept when the
	// ratio is 0.
	MinCJKRatio float64

	// KeepLatinLines keeps lines with no CJK content at all. Off by default
	// because photographed Chinese readers surround the text with latin
	// pagination and publisher marks.
	KeepLatinLines bool
}

// DefaultCleanOptions returns the options used by the note pipeline.
func DefaultCleanOptions() CleanOptions {
	return CleanOptions{MinCJKRatio: 0.25}
}

// Clean strips OCR noise from a raw page: page numbers, page markers, lines
// with no meaningful CJK content, and redundant whitespace. Line order is
// preserved; surviving lines are joined with single newlines.
func Clean(raw string, opts CleanOptions) string {
	var kept []string

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if pageNumberRe.MatchString(line) || pageMarkerRe.MatchString(line) {
			continue
		}

		line = innerSpaceRe.ReplaceAllString(line, " ")

		cjk, total := cjkDensity(line)
		if cjk == 0 {
			if opts.KeepLatinLines && hasLetter(line) {
				kept = append(kept, line)
			}
			continue
		}
		if total > 0 && float64(cjk)/float64(total) < opts.MinCJKRatio {
			continue
		}

		kept = append(kept, line)
	}

	return strings.Join(kept, "\n")
}

// cjkDensity counts CJK runes and total non-space runes in a line.
func cjkDensity(line string) (cjk, total int) {
	for _, r := range line {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if isCJK(r) {
			cjk++
		}
	}
	return cjk, total
}

// isCJK reports whether r is a Han character or CJK punctuation.
func isCJK(r rune) bool {
	if unicode.Is(unicode.Han, r) {
		return true
	}
	// CJK punctuation blocks: symbols, fullwidth forms
	return (r >= 0x3000 && r <= 0x303F) || (r >= 0xFF00 && r <= 0xFF65)
}

func hasLetter(line string) bool {
	for _, r := range line {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
