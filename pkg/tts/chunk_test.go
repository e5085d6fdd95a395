package tts

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name string
		text string
		max  int
		want []string
	}{
		{name: "FitsWhole", text: "Hello world", max: 100, want: []string{"Hello world"}},
		{name: "Empty", text: "", max: 100, want: nil},
		{name: "PunctuationOnly", text: "... !!", max: 100, want: nil},
		{name: "PacksSentences", text: "One. Two. Three.", max: 9, want: []string{"One. Two.", "Three."}},
		{name: "ClauseBoundaries", text: "Hello, world! How are you?", max: 13, want: []string{"Hello, world!", "How are you?"}},
		{name: "LongSentenceByWords", text: "the quick brown fox jumps", max: 10, want: []string{"the quick", "brown fox", "jumps"}},
		{name: "HardSplitLongWord", text: "abcdefghij", max: 4, want: []string{"abcd", "efgh", "ij"}},
		{name: "DecimalNotCut", text: "Pi is 3.14 roughly", max: 100, want: []string{"Pi is 3.14 roughly"}},
		{name: "RuneCounting", text: "Grüße aus Köln.", max: 15, want: []string{"Grüße aus Köln."}},
		{name: "DefaultMax", text: "short", max: 0, want: []string{"short"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Split(tt.text, tt.max))
		})
	}
}

func TestSplit_Bounds(t *testing.T) {
	text := strings.Repeat("Lorem ipsum dolor sit amet, consectetur adipiscing elit. ", 40) +
		strings.Repeat("x", 250)

	for _, max := range []int{5, 17, 100} {
		chunks := Split(text, max)
		assert.NotEmpty(t, chunks)
		for _, c := range chunks {
			assert.LessOrEqual(t, utf8.RuneCountInString(c), max, "chunk %q", c)
			assert.Equal(t, strings.TrimSpace(c), c)
		}
		// No word is lost or reordered.
		assert.Equal(t, strings.ReplaceAll(text, " ", ""), strings.ReplaceAll(strings.Join(chunks, ""), " ", ""), "max=%d", max)
	}
}
