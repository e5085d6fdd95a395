package convert

import (
	"errors"
	"fmt"
	"strings"
)

// Pipeline failures callers can test for with errors.Is.
var (
	ErrNotFound            = errors.New("file not found")
	ErrInvalidFormat       = errors.New("invalid file format")
	ErrUnsupportedLanguage = errors.New("unsupported language")
	ErrEmptyContent        = errors.New("no text found in PDF document")
)

// UnsupportedLanguageError names the rejected code and every supported one.
type UnsupportedLanguageError struct {
	Code      string
	Supported []string // sorted
}

func (e *UnsupportedLanguageError) Error() string {
	return fmt.Sprintf("unsupported language %q. Available options: %s", e.Code, strings.Join(e.Supported, ", "))
}

// Is makes errors.Is(err, ErrUnsupportedLanguage) hold.
func (e *UnsupportedLanguageError) Is(target error) bool {
	return target == ErrUnsupportedLanguage
}
