package edgetts

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"pdfspeak/pkg/cache"
	"pdfspeak/pkg/tracker"
	"pdfspeak/pkg/tts"
)

// Name is the engine name used in config and stats.
const Name = "edge-tts"

// builtinVoices is used for languages the config voice map does not cover.
var builtinVoices = map[string]string{
	"en": "en-US-AvaMultilingualNeural",
	"de": "de-DE-SeraphinaNeural",
	"fr": "fr-FR-VivienneNeural",
	"es": "es-ES-ElviraNeural",
	"it": "it-IT-ElsaNeural",
	"ru": "ru-RU-SvetlanaNeural",
}

// Provider implements tts.Provider for Microsoft Edge TTS.
type Provider struct {
	voices  map[string]string
	tracker *tracker.Tracker
	writer  *tts.SegmentWriter
}

// NewProvider creates a new Edge TTS provider. voices maps language codes to
// voice names and overrides the built-in table.
func NewProvider(voices map[string]string, chunkSize int, c cache.Cacher, t *tracker.Tracker) *Provider {
	merged := make(map[string]string, len(builtinVoices)+len(voices))
	for k, v := range builtinVoices {
		merged[k] = v
	}
	for k, v := range voices {
		if v != "" {
			merged[strings.ToLower(k)] = v
		}
	}
	return &Provider{
		voices:  merged,
		tracker: t,
		writer: &tts.SegmentWriter{
			Engine:    Name,
			ChunkSize: chunkSize,
			Cache:     c,
			Tracker:   t,
		},
	}
}

// Name returns the engine name.
func (p *Provider) Name() string { return Name }

// Languages returns the languages with a known voice, code -> voice.
func (p *Provider) Languages(_ context.Context) (map[string]string, error) {
	out := make(map[string]string, len(p.voices))
	for k, v := range p.voices {
		out[k] = v
	}
	return out, nil
}

// Synthesize generates an .mp3 file using Edge TTS, one websocket turn per segment.
func (p *Provider) Synthesize(ctx context.Context, req tts.Request, outputPath string) error {
	voice, ok := tts.ResolveVoice(p.voices, req.Language)
	if !ok {
		return tts.NewFatalError(0, fmt.Sprintf("no edge-tts voice for language %q", req.Language))
	}
	return p.writer.Write(ctx, req, outputPath, func(ctx context.Context, segment string) ([]byte, error) {
		audio, err := p.turn(ctx, voice, segment, req.Slow)
		if p.tracker != nil {
			if err != nil {
				p.tracker.TrackAPIFailure(Name)
			} else {
				p.tracker.TrackAPISuccess(Name)
			}
		}
		return audio, err
	})
}

func (p *Provider) turn(ctx context.Context, voice, text string, slow bool) ([]byte, error) {
	conn, err := p.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	// ReadMessage has no deadline of its own; closing the conn unblocks it.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if err := p.sendConfig(conn); err != nil {
		return nil, err
	}

	requestID := strings.ReplaceAll(uuid.New().String(), "-", "")
	if err := p.sendSSML(conn, voice, text, slow, requestID); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := p.consumeResponses(ctx, conn, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func requireEnv(name string) (string, error) {
	v := os.Getenv(name)
	if v == "" {
		return "", tts.NewFatalError(0, fmt.Sprintf("%s environment variable is required", name))
	}
	return v, nil
}

func (p *Provider) dial(ctx context.Context) (*websocket.Conn, error) {
	edgeOrigin, err := requireEnv("EDGE_TTS_ORIGIN")
	if err != nil {
		return nil, err
	}
	userAgent, err := requireEnv("EDGE_TTS_USER_AGENT")
	if err != nil {
		return nil, err
	}
	trustedClientToken, err := requireEnv("EDGE_TTS_TRUSTED_CLIENT_TOKEN")
	if err != nil {
		return nil, err
	}
	version, err := requireEnv("EDGE_TTS_SEC_MS_GEC_VERSION")
	if err != nil {
		return nil, err
	}
	edgeBaseURL, err := requireEnv("EDGE_TTS_BASE_URL")
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("Origin", edgeOrigin)
	header.Set("Pragma", "no-cache")
	header.Set("Cache-Control", "no-cache")
	header.Set("User-Agent", userAgent)
	header.Set("Accept-Language", "en-US,en;q=0.9")

	muid := strings.ReplaceAll(uuid.New().String(), "-", "")
	header.Set("Cookie", fmt.Sprintf("muid=%s", muid))

	url := fmt.Sprintf("%s?TrustedClientToken=%s&Sec-MS-GEC=%s&Sec-MS-GEC-Version=%s",
		edgeBaseURL, trustedClientToken, generateSecMSGec(trustedClientToken, time.Now()), version)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			slog.Warn("EdgeTTS: handshake failure", "status", resp.Status, "status_code", resp.StatusCode)
		}
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return conn, nil
}

// generateSecMSGec derives the Sec-MS-GEC token: Windows file-time ticks,
// rounded down to five minutes, hashed with the client token.
func generateSecMSGec(trustedClientToken string, now time.Time) string {
	ticks := now.Unix() + 11644473600
	ticks -= ticks % 300
	strToHash := fmt.Sprintf("%d0000000%s", ticks, trustedClientToken)

	hash := sha256.Sum256([]byte(strToHash))
	return strings.ToUpper(hex.EncodeToString(hash[:]))
}

func (p *Provider) sendConfig(conn *websocket.Conn) error {
	configMsg := "Content-Type:application/json; charset=utf-8\r\nPath:speech.config\r\n\r\n{\"context\":{\"synthesis\":{\"audio\":{\"metadataoptions\":{\"sentenceBoundaryEnabled\":\"false\",\"wordBoundaryEnabled\":\"false\"},\"outputFormat\":\"audio-24khz-48kbitrate-mono-mp3\"}}}}"
	if err := conn.WriteMessage(websocket.TextMessage, []byte(configMsg)); err != nil {
		return fmt.Errorf("failed to send speech.config: %w", err)
	}
	return nil
}

func (p *Provider) sendSSML(conn *websocket.Conn, voice, text string, slow bool, requestID string) error {
	ssml := tts.BuildSSML(voice, text, slow)
	ssmlMsg := fmt.Sprintf("X-RequestId:%s\r\nContent-Type:application/ssml+xml\r\nPath:ssml\r\n\r\n%s", requestID, ssml)
	if err := conn.WriteMessage(websocket.TextMessage, []byte(ssmlMsg)); err != nil {
		return fmt.Errorf("failed to send ssml: %w", err)
	}
	return nil
}

func (p *Provider) consumeResponses(ctx context.Context, conn *websocket.Conn, w io.Writer) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("read message failed: %w", err)
		}

		switch msgType {
		case websocket.TextMessage:
			if strings.Contains(string(data), "Path:turn.end") {
				return nil
			}
		case websocket.BinaryMessage:
			if err := handleBinaryMessage(data, w); err != nil {
				return err
			}
		}
	}
}

// handleBinaryMessage strips the length-prefixed header of an audio frame.
func handleBinaryMessage(data []byte, w io.Writer) error {
	if len(data) < 2 {
		return nil
	}
	headerLength := int(uint16(data[0])<<8 | uint16(data[1]))
	if len(data) < 2+headerLength {
		return nil
	}
	audioData := data[2+headerLength:]
	if len(audioData) > 0 {
		if _, err := w.Write(audioData); err != nil {
			return fmt.Errorf("write audio data failed: %w", err)
		}
	}
	return nil
}
