package gtranslate

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"pdfspeak/pkg/request"
	"pdfspeak/pkg/tracker"
	"pdfspeak/pkg/tts"
)

const (
	// Name is the engine name used in config and stats.
	Name = "gtranslate"

	rpcID   = "jQ1olc"
	rpcPath = "/_/TranslateWebserverUi/data/batchexecute"
)

var audioRe = regexp.MustCompile(`jQ1olc","\[\\"(.*?)\\"]`)

// Provider implements tts.Provider on the Google Translate speech endpoint.
type Provider struct {
	client  *request.Client
	baseURL string
	writer  *tts.SegmentWriter
}

// NewProvider creates a provider for translate.google.<tld>. Segments are
// cached by rc, keyed by tts.CacheKey.
func NewProvider(rc *request.Client, tld string, chunkSize int, t *tracker.Tracker) *Provider {
	if tld == "" {
		tld = "com"
	}
	return &Provider{
		client:  rc,
		baseURL: "https://translate.google." + tld,
		writer: &tts.SegmentWriter{
			Engine:    Name,
			ChunkSize: chunkSize,
			Tracker:   t,
		},
	}
}

// WithBaseURL overrides the endpoint host, e.g. for tests.
func (p *Provider) WithBaseURL(u string) *Provider {
	p.baseURL = strings.TrimRight(u, "/")
	return p
}

// Name returns the engine name.
func (p *Provider) Name() string { return Name }

// Languages returns the endpoint's language table.
func (p *Provider) Languages(_ context.Context) (map[string]string, error) {
	out := make(map[string]string, len(languages))
	for k, v := range languages {
		out[k] = v
	}
	return out, nil
}

// Synthesize renders req segment by segment into outputPath.
func (p *Provider) Synthesize(ctx context.Context, req tts.Request, outputPath string) error {
	lang, ok := canonical(req.Language)
	if !ok {
		return tts.NewFatalError(0, fmt.Sprintf("gtranslate: unsupported language %q", req.Language))
	}
	return p.writer.Write(ctx, req, outputPath, func(ctx context.Context, segment string) ([]byte, error) {
		return p.fetch(ctx, segment, lang, req.Slow)
	})
}

func (p *Provider) fetch(ctx context.Context, segment, lang string, slow bool) ([]byte, error) {
	body, err := packageRPC(segment, lang, slow)
	if err != nil {
		return nil, err
	}
	headers := map[string]string{
		"Referer":      "http://translate.google.com/",
		"Content-Type": "application/x-www-form-urlencoded;charset=utf-8",
	}

	key := tts.CacheKey(Name, lang, slow, segment)
	resp, err := p.client.PostWithCache(ctx, p.baseURL+rpcPath, body, headers, key)
	if err != nil {
		var se *request.StatusError
		if errors.As(err, &se) && se.StatusCode < 500 && se.StatusCode != 429 {
			return nil, tts.NewFatalError(se.StatusCode, fmt.Sprintf("gtranslate: %v", err))
		}
		return nil, fmt.Errorf("gtranslate request failed: %w", err)
	}
	return decodeAudio(resp)
}

// packageRPC builds the form body of a batchexecute speech call.
func packageRPC(text, lang string, slow bool) ([]byte, error) {
	speed := any(nil)
	if slow {
		speed = true
	}
	inner, err := json.Marshal([]any{text, lang, speed, "null"})
	if err != nil {
		return nil, fmt.Errorf("failed to encode rpc parameters: %w", err)
	}
	outer, err := json.Marshal([]any{[]any{[]any{rpcID, string(inner), nil, "generic"}}})
	if err != nil {
		return nil, fmt.Errorf("failed to encode rpc envelope: %w", err)
	}
	return []byte("f.req=" + url.QueryEscape(string(outer)) + "&"), nil
}

// decodeAudio pulls the base64 mp3 payload out of a batchexecute response.
func decodeAudio(resp []byte) ([]byte, error) {
	var audio []byte
	for _, line := range strings.Split(string(resp), "\n") {
		if !strings.Contains(line, rpcID) {
			continue
		}
		m := audioRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		chunk, err := base64.StdEncoding.DecodeString(m[1])
		if err != nil {
			return nil, fmt.Errorf("failed to decode audio: %w", err)
		}
		audio = append(audio, chunk...)
	}
	if len(audio) == 0 {
		return nil, errors.New("gtranslate: no audio in response")
	}
	return audio, nil
}
