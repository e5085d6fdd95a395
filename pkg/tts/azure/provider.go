package azure

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"

	"pdfspeak/pkg/config"
	"pdfspeak/pkg/request"
	"pdfspeak/pkg/tracker"
	"pdfspeak/pkg/tts"
)

// Name is the engine name used in config and stats.
const Name = "azure-speech"

// Provider implements tts.Provider for Azure Speech.
type Provider struct {
	key     string
	region  string
	voiceID string
	voices  map[string]string
	client  *request.Client
	url     string
	writer  *tts.SegmentWriter
}

// NewProvider creates a new Azure Speech TTS provider.
// Rendered segments are cached by rc, keyed by tts.CacheKey over the voice.
func NewProvider(cfg config.AzureSpeechConfig, rc *request.Client, chunkSize int, t *tracker.Tracker) *Provider {
	voices := make(map[string]string, len(cfg.Voices)+1)
	if cfg.VoiceID != "" {
		voices[tts.VoiceLanguage(cfg.VoiceID)] = cfg.VoiceID
	}
	for lang, v := range cfg.Voices {
		voices[lang] = v
	}
	return &Provider{
		key:     cfg.Key,
		region:  cfg.Region,
		voiceID: cfg.VoiceID,
		voices:  voices,
		client:  rc,
		url:     fmt.Sprintf("https://%s.tts.speech.microsoft.com/cognitiveservices/v1", cfg.Region),
		writer: &tts.SegmentWriter{
			Engine:    Name,
			ChunkSize: chunkSize,
			Tracker:   t,
		},
	}
}

// WithURL overrides the synthesis endpoint.
func (p *Provider) WithURL(u string) *Provider {
	p.url = u
	return p
}

// Name returns the engine name.
func (p *Provider) Name() string { return Name }

// Languages returns the languages with a configured voice, code -> voice.
func (p *Provider) Languages(_ context.Context) (map[string]string, error) {
	out := make(map[string]string, len(p.voices))
	for lang, v := range p.voices {
		if v != "" {
			out[lang] = v
		}
	}
	return out, nil
}

// Synthesize generates speech from text using Azure Speech.
func (p *Provider) Synthesize(ctx context.Context, req tts.Request, outputPath string) error {
	if p.key == "" || p.region == "" {
		return tts.NewFatalError(0, "azure speech key and region must be configured")
	}
	voice, ok := tts.ResolveVoice(p.voices, req.Language)
	if !ok {
		return tts.NewFatalError(0, fmt.Sprintf("no azure voice configured for language %q", req.Language))
	}

	return p.writer.Write(ctx, req, outputPath, func(ctx context.Context, segment string) ([]byte, error) {
		ssml := tts.BuildSSML(voice, segment, req.Slow)
		if err := validateSSML(ssml); err != nil {
			return nil, fmt.Errorf("invalid ssml: %w", err)
		}
		return p.fetch(ctx, ssml, tts.CacheKey(Name, voice, req.Slow, segment))
	})
}

func (p *Provider) fetch(ctx context.Context, ssml, cacheKey string) ([]byte, error) {
	headers := map[string]string{
		"Ocp-Apim-Subscription-Key": p.key,
		"Content-Type":              "application/ssml+xml",
		"X-Microsoft-OutputFormat":  "audio-24khz-160kbitrate-mono-mp3",
	}
	audio, err := p.client.PostWithCache(ctx, p.url, []byte(ssml), headers, cacheKey)
	if err != nil {
		var se *request.StatusError
		if errors.As(err, &se) {
			body := se.Body
			if body == "" {
				body = "[empty body]"
			}
			return nil, tts.NewFatalError(se.StatusCode,
				fmt.Sprintf("azure speech api error (status %d): %s", se.StatusCode, body))
		}
		return nil, fmt.Errorf("api request failed: %w", err)
	}
	return audio, nil
}

// validateSSML checks if the SSML string is well-formed XML.
func validateSSML(ssml string) error {
	decoder := xml.NewDecoder(bytes.NewReader([]byte(ssml)))
	for {
		_, err := decoder.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
