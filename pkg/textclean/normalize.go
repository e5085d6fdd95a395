// Package textclean turns raw extracted document text into a single line of
// speakable prose.
package textclean

import (
	"regexp"
	"strings"
	"unicode"
)

var hyphenBreakRe = regexp.MustCompile(`-\n`)

// Normalize applies, in order:
//  1. end-of-line hyphenation removal ("exam-\nple" -> "example")
//  2. every remaining line break becomes a space
//  3. runs of whitespace collapse to one space
//  4. leading and trailing whitespace is stripped
//
// The order matters: a line break must still be present for rule 1 to see
// the hyphenation. The result is a fixed point, Normalize(Normalize(s)) ==
// Normalize(s).
func Normalize(text string) string {
	text = hyphenBreakRe.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "\n", " ")
	text = strings.Join(strings.FieldsFunc(text, isSpace), " ")
	return strings.TrimSpace(text)
}

// isSpace extends unicode.IsSpace with the ASCII information separators
// U+001C..U+001F, which some PDF producers emit between words.
func isSpace(r rune) bool {
	return unicode.IsSpace(r) || (r >= 0x1c && r <= 0x1f)
}

// JoinPages concatenates page fragments in order with single spaces, the form
// Normalize expects as input.
func JoinPages(pages []string) string {
	return strings.Join(pages, " ")
}
