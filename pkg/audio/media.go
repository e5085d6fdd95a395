package audio

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/wav"
)

// DecodeMedia opens path as MP3, falling back to WAV.
// The caller must close the returned streamer.
func DecodeMedia(path string) (beep.StreamSeekCloser, beep.Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, beep.Format{}, err
	}

	streamer, format, err := mp3.Decode(f)
	if err == nil {
		return streamer, format, nil
	}
	f.Close()

	// Reopen: a failed MP3 probe leaves the read offset undefined.
	f, err = os.Open(path)
	if err != nil {
		return nil, beep.Format{}, err
	}
	streamer, format, err = wav.Decode(f)
	if err != nil {
		f.Close()
		slog.Debug("Failed to decode audio file", "path", path, "error", err)
		return nil, beep.Format{}, fmt.Errorf("unsupported audio file %s: %w", path, err)
	}
	return streamer, format, nil
}

// GetDuration returns the duration of the audio file at the given path.
func GetDuration(path string) (time.Duration, error) {
	streamer, format, err := DecodeMedia(path)
	if err != nil {
		return 0, err
	}
	defer streamer.Close()

	return format.SampleRate.D(streamer.Len()), nil
}
