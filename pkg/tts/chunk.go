package tts

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// sentenceEnds are the marks after which text may be cut when followed by
// whitespace or end of input.
const sentenceEnds = ".!?;:,…。！？；：，、"

// Split cuts normalized text into pieces of at most max runes, preferring
// sentence and clause boundaries, then word boundaries, and hard-splitting
// only words longer than max. Pieces without any letter or digit are dropped.
func Split(text string, max int) []string {
	if max <= 0 {
		max = DefaultChunkSize
	}

	c := &chunker{max: max}
	for _, part := range clauses(text) {
		if utf8.RuneCountInString(part) <= max {
			c.add(part)
			continue
		}
		for _, word := range strings.Fields(part) {
			for _, piece := range hardSplit(word, max) {
				c.add(piece)
			}
		}
	}
	c.flush()
	return c.out
}

type chunker struct {
	max    int
	cur    strings.Builder
	curLen int
	out    []string
}

func (c *chunker) add(piece string) {
	n := utf8.RuneCountInString(piece)
	if c.curLen > 0 && c.curLen+1+n > c.max {
		c.flush()
	}
	if c.curLen > 0 {
		c.cur.WriteByte(' ')
		c.curLen++
	}
	c.cur.WriteString(piece)
	c.curLen += n
}

func (c *chunker) flush() {
	if c.curLen == 0 {
		return
	}
	if s := c.cur.String(); speakable(s) {
		c.out = append(c.out, s)
	}
	c.cur.Reset()
	c.curLen = 0
}

// clauses splits text after sentence punctuation that is followed by a space.
func clauses(text string) []string {
	var parts []string
	runes := []rune(text)
	start := 0
	for i, r := range runes {
		if !strings.ContainsRune(sentenceEnds, r) {
			continue
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if p := strings.TrimSpace(string(runes[start : i+1])); p != "" {
			parts = append(parts, p)
		}
		start = i + 1
	}
	if p := strings.TrimSpace(string(runes[start:])); p != "" {
		parts = append(parts, p)
	}
	return parts
}

func hardSplit(word string, max int) []string {
	runes := []rune(word)
	if len(runes) <= max {
		return []string{word}
	}
	var pieces []string
	for len(runes) > max {
		pieces = append(pieces, string(runes[:max]))
		runes = runes[max:]
	}
	if len(runes) > 0 {
		pieces = append(pieces, string(runes))
	}
	return pieces
}

func speakable(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
