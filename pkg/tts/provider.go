package tts

import (
	"context"
	"errors"
)

// DefaultChunkSize is the largest piece of text sent in one backend request.
// The Google Translate endpoint rejects longer input.
const DefaultChunkSize = 100

// ErrNoSpeakableText is returned when text is non-empty but contains nothing
// a voice could read (e.g. only punctuation).
var ErrNoSpeakableText = errors.New("no speakable text")

// Request describes one synthesis job.
type Request struct {
	Text     string
	Language string // registry code, e.g. "en", "de", "zh-cn"
	Slow     bool   // reduced speaking rate
}

// Provider defines the interface for Text-To-Speech engines.
type Provider interface {
	// Name identifies the engine in logs and tracker stats.
	Name() string

	// Synthesize renders req as mp3 and writes it to outputPath, replacing
	// any existing file. A failure may leave a partial file behind.
	Synthesize(ctx context.Context, req Request, outputPath string) error

	// Languages returns the languages this engine can speak, code -> name.
	Languages(ctx context.Context) (map[string]string, error)
}

// FatalError is a backend answer that retrying will not fix.
// Examples: auth failures (401/403), bad requests (400), exhausted retries.
type FatalError struct {
	StatusCode int
	Message    string
}

func (e *FatalError) Error() string {
	return e.Message
}

// NewFatalError creates a new FatalError with the given status code and message.
func NewFatalError(statusCode int, message string) *FatalError {
	return &FatalError{StatusCode: statusCode, Message: message}
}

// IsFatalError checks if err is, or wraps, a FatalError.
func IsFatalError(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}
