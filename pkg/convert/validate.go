package convert

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"pdfspeak/pkg/language"
)

const (
	// DocumentExt is the only accepted source extension (compared case-insensitively).
	DocumentExt = ".pdf"
	// AudioExt is the extension of every derived output path.
	AudioExt = ".mp3"
)

// Validate checks a conversion's inputs. The extension is checked before the
// file's existence, so a ".txt" path is rejected as a format error whether or
// not it exists.
func Validate(path, lang string, reg *language.Registry) error {
	if !strings.EqualFold(filepath.Ext(path), DocumentExt) {
		return fmt.Errorf("%w: only PDF files are supported, got %q", ErrInvalidFormat, path)
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if reg == nil {
		reg = language.Fallback()
	}
	if !reg.Has(lang) {
		return &UnsupportedLanguageError{Code: lang, Supported: reg.Codes()}
	}
	return nil
}
