package tts

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"pdfspeak/pkg/cache"
	"pdfspeak/pkg/tracker"
)

// FetchFunc renders one segment to mp3 bytes.
type FetchFunc func(ctx context.Context, segment string) ([]byte, error)

// SegmentWriter splits a request into segments, renders each through a
// FetchFunc, and appends the audio to one output file. Rendered segments are
// cached when a Cacher is set.
type SegmentWriter struct {
	Engine    string
	ChunkSize int
	Cache     cache.Cacher
	Tracker   *tracker.Tracker
}

// CacheKey identifies one rendered segment.
func CacheKey(engine, lang string, slow bool, segment string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%s", engine, lang, strconv.FormatBool(slow), segment)
	return "tts:" + hex.EncodeToString(h.Sum(nil))
}

// Write renders req into outputPath. The file is truncated before the first
// segment, so a failure part way through leaves a partial file.
func (w *SegmentWriter) Write(ctx context.Context, req Request, outputPath string, fetch FetchFunc) error {
	segments := Split(req.Text, w.ChunkSize)
	if len(segments) == 0 {
		return ErrNoSpeakableText
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	slog.Debug("Synthesizing", "engine", w.Engine, "lang", req.Language, "segments", len(segments))
	for i, seg := range segments {
		if err := ctx.Err(); err != nil {
			return err
		}
		audio, err := w.segment(ctx, req, seg, fetch)
		if err != nil {
			return fmt.Errorf("segment %d/%d: %w", i+1, len(segments), err)
		}
		if _, err := f.Write(audio); err != nil {
			return fmt.Errorf("write audio data failed: %w", err)
		}
	}
	return f.Sync()
}

func (w *SegmentWriter) segment(ctx context.Context, req Request, seg string, fetch FetchFunc) ([]byte, error) {
	key := CacheKey(w.Engine, req.Language, req.Slow, seg)
	if w.Cache != nil {
		if audio, ok := w.Cache.GetCache(ctx, key); ok && len(audio) > 0 {
			w.track(func(t *tracker.Tracker) { t.TrackCacheHit(w.Engine) })
			return audio, nil
		}
		w.track(func(t *tracker.Tracker) { t.TrackCacheMiss(w.Engine) })
	}

	audio, err := fetch(ctx, seg)
	if err != nil {
		Log(w.Engine, seg, 0, err)
		return nil, err
	}
	if len(audio) == 0 {
		err = fmt.Errorf("%s returned no audio", w.Engine)
		Log(w.Engine, seg, 0, err)
		return nil, err
	}
	Log(w.Engine, seg, 200, nil)

	if w.Cache != nil {
		if err := w.Cache.SetCache(ctx, key, audio); err != nil {
			slog.Warn("Failed to cache segment", "engine", w.Engine, "error", err)
		}
	}
	return audio, nil
}

func (w *SegmentWriter) track(fn func(*tracker.Tracker)) {
	if w.Tracker != nil {
		fn(w.Tracker)
	}
}
