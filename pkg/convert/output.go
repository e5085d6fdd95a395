package convert

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ResolveOutput derives the audio path for src.
//
// An empty explicit path replaces src's extension with AudioExt. An existing
// directory yields dir/<stem of src>.mp3. Anything else is returned unchanged.
func ResolveOutput(src, explicit string) (string, error) {
	if explicit == "" {
		return replaceExt(src, AudioExt), nil
	}

	info, err := os.Stat(explicit)
	switch {
	case err == nil && info.IsDir():
		return filepath.Join(explicit, stem(src)+AudioExt), nil
	case err == nil, errors.Is(err, fs.ErrNotExist):
		return explicit, nil
	default:
		return "", err
	}
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func replaceExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}
