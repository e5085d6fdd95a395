// Package session implements the console conversation: ask for a document
// and a language, convert, report.
package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/common-nighthawk/go-figure"

	"pdfspeak/pkg/convert"
)

const (
	bannerText = "PDF->MP3"
	bannerFont = "bulbhead"

	pathPrompt     = "\nEnter PDF file path: "
	languagePrompt = "Enter language code (e.g., 'en', 'de'): "
	completed      = "\n--- Process completed ---"
)

// Banner renders the start-up banner in the bulbhead FIGlet font.
func Banner() string {
	return figure.NewFigure(bannerText, bannerFont, true).String()
}

// Converter runs one conversion.
type Converter interface {
	Convert(ctx context.Context, req convert.Request) (string, error)
}

// DurationFunc measures an audio file.
type DurationFunc func(path string) (time.Duration, error)

// Session drives one prompt-convert-report cycle.
type Session struct {
	conv     Converter
	out      io.Writer
	duration DurationFunc
}

// New creates a session writing to out. duration may be nil.
func New(conv Converter, out io.Writer, duration DurationFunc) *Session {
	return &Session{conv: conv, out: out, duration: duration}
}

// Run prints the banner, asks for a path and language, and converts.
// Errors are reported to out, never returned; the completion notice is
// always printed.
func (s *Session) Run(ctx context.Context, p Prompter) {
	fmt.Fprintln(s.out, Banner())
	defer fmt.Fprintln(s.out, completed)

	path, err := p.Prompt(pathPrompt)
	if err != nil {
		s.fail(err)
		return
	}
	lang, err := p.Prompt(languagePrompt)
	if err != nil {
		s.fail(err)
		return
	}

	s.convert(ctx, convert.Request{
		SourcePath: strings.TrimSpace(path),
		Language:   strings.ToLower(strings.TrimSpace(lang)),
	})
}

// RunOnce converts req without prompting and reports like Run.
func (s *Session) RunOnce(ctx context.Context, req convert.Request) {
	defer fmt.Fprintln(s.out, completed)
	req.Language = strings.ToLower(strings.TrimSpace(req.Language))
	s.convert(ctx, req)
}

func (s *Session) convert(ctx context.Context, req convert.Request) {
	out, err := s.safeConvert(ctx, req)
	if err != nil {
		s.fail(err)
		return
	}

	fmt.Fprintf(s.out, "\nSuccess! Created audio file: %s\n", out)
	if s.duration == nil {
		return
	}
	d, err := s.duration(out)
	if err != nil {
		slog.Debug("Could not measure audio duration", "path", out, "error", err)
		return
	}
	slog.Info("Audio written", "path", out, "duration", d.Round(time.Second))
	fmt.Fprintf(s.out, "Duration: %s\n", d.Round(time.Second))
}

// safeConvert turns a panic in the pipeline into an error so the session can
// still report it.
func (s *Session) safeConvert(ctx context.Context, req convert.Request) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = "", fmt.Errorf("conversion aborted: %v", r)
		}
	}()
	return s.conv.Convert(ctx, req)
}

func (s *Session) fail(err error) {
	slog.Info("Conversion failed", "error", err)
	fmt.Fprintf(s.out, "\nError: %v\n", err)
}
