package audio

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSilence(t *testing.T, path string, rate beep.SampleRate, d time.Duration) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	format := beep.Format{SampleRate: rate, NumChannels: 1, Precision: 2}
	require.NoError(t, wav.Encode(f, beep.Silence(rate.N(d)), format))
}

func TestGetDuration(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name     string
		rate     beep.SampleRate
		duration time.Duration
	}{
		{"OneSecond", 8000, time.Second},
		{"HalfSecond", 22050, 500 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".wav")
			writeSilence(t, path, tt.rate, tt.duration)

			got, err := GetDuration(path)
			require.NoError(t, err)
			assert.InDelta(t, tt.duration.Seconds(), got.Seconds(), 0.01)
		})
	}
}

func TestGetDuration_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := GetDuration(filepath.Join(dir, "missing.mp3"))
	assert.Error(t, err)

	garbage := filepath.Join(dir, "garbage.mp3")
	require.NoError(t, os.WriteFile(garbage, []byte("definitely not audio"), 0o644))
	_, err = GetDuration(garbage)
	assert.Error(t, err)
}
