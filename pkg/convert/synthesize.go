package convert

import (
	"context"

	"pdfspeak/pkg/tts"
)

// Synthesize speaks text into outputPath. Empty text is rejected before the
// provider is called, so no file is created.
func Synthesize(ctx context.Context, p tts.Provider, text, lang, outputPath string, slow bool) error {
	if text == "" {
		return ErrEmptyContent
	}
	return p.Synthesize(ctx, tts.Request{Text: text, Language: lang, Slow: slow}, outputPath)
}
