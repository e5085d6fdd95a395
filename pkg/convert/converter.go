package convert

import (
	"context"
	"log/slog"
	"time"

	"pdfspeak/pkg/language"
	"pdfspeak/pkg/tts"
)

// TextExtractor turns a document into one normalized string.
type TextExtractor interface {
	ExtractAndClean(path string) (string, error)
}

// Request describes one conversion.
type Request struct {
	SourcePath string
	Language   string
	OutputPath string // optional: file path or existing directory
}

// Converter runs the validate -> extract -> resolve -> synthesize pipeline.
// It is not safe for concurrent use with the same output path.
type Converter struct {
	extractor TextExtractor
	provider  tts.Provider
	languages *language.Registry

	// DefaultOutput is used when a Request names no output.
	DefaultOutput string
	// Slow requests a reduced speaking rate.
	Slow bool
}

// New creates a Converter. A nil registry means the built-in fallback set.
func New(ex TextExtractor, p tts.Provider, reg *language.Registry) *Converter {
	if reg == nil {
		reg = language.Fallback()
	}
	return &Converter{extractor: ex, provider: p, languages: reg}
}

// Convert runs one conversion and returns the written audio path.
// Every stage error is returned unchanged.
func (c *Converter) Convert(ctx context.Context, req Request) (string, error) {
	start := time.Now()

	if err := Validate(req.SourcePath, req.Language, c.languages); err != nil {
		return "", err
	}

	text, err := c.extractor.ExtractAndClean(req.SourcePath)
	if err != nil {
		return "", err
	}
	slog.Debug("Extracted text", "path", req.SourcePath, "chars", len(text))

	explicit := req.OutputPath
	if explicit == "" {
		explicit = c.DefaultOutput
	}
	out, err := ResolveOutput(req.SourcePath, explicit)
	if err != nil {
		return "", err
	}

	if err := Synthesize(ctx, c.provider, text, req.Language, out, c.Slow); err != nil {
		return "", err
	}

	slog.Info("Conversion complete",
		"source", req.SourcePath,
		"output", out,
		"lang", req.Language,
		"language", c.languages.Name(req.Language),
		"engine", c.provider.Name(),
		"elapsed", time.Since(start).Round(time.Millisecond))
	return out, nil
}
