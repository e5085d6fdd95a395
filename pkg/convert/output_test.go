package convert

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveOutput(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "audio")
	require.NoError(t, os.Mkdir(outDir, 0o755))
	existingFile := filepath.Join(dir, "existing.wav")
	require.NoError(t, os.WriteFile(existingFile, nil, 0o644))

	src := filepath.Join(dir, "docs", "Report.PDF")

	tests := []struct {
		name     string
		explicit string
		want     string
	}{
		{"NoExplicit", "", filepath.Join(dir, "docs", "Report.mp3")},
		{"ExistingDirectory", outDir, filepath.Join(outDir, "Report.mp3")},
		{"ExistingFileKeepsExtension", existingFile, existingFile},
		{"NewFile", filepath.Join(dir, "new.ogg"), filepath.Join(dir, "new.ogg")},
		{"NewFileNoExtension", filepath.Join(dir, "speech"), filepath.Join(dir, "speech")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveOutput(src, tt.explicit)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveOutput_DoesNotTouchFilesystem(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "later.mp3")

	_, err := ResolveOutput(filepath.Join(dir, "a.pdf"), target)
	require.NoError(t, err)

	_, statErr := os.Stat(target)
	assert.True(t, os.IsNotExist(statErr))
}

func TestResolveOutput_SubstitutesExtension(t *testing.T) {
	for _, p := range []string{"a.pdf", "dir/b.pdf", "/abs/c.d.pdf", "x/UPPER.PDF"} {
		got, err := ResolveOutput(p, "")
		require.NoError(t, err)
		assert.Equal(t, p[:len(p)-len(".pdf")]+".mp3", got)
	}
}
