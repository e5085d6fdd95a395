package convert

import (
	"fmt"

	"pdfspeak/pkg/cache"
	"pdfspeak/pkg/config"
	"pdfspeak/pkg/request"
	"pdfspeak/pkg/tracker"
	"pdfspeak/pkg/tts"
	"pdfspeak/pkg/tts/azure"
	"pdfspeak/pkg/tts/edgetts"
	"pdfspeak/pkg/tts/gtranslate"
)

// NewTTSProvider builds the engine named in cfg.Engine. The HTTP engines cache
// through rc; c is the segment cache of engines that bypass rc and may be nil.
func NewTTSProvider(cfg config.TTSConfig, rc *request.Client, c cache.Cacher, t *tracker.Tracker) (tts.Provider, error) {
	switch cfg.Engine {
	case config.EngineGTranslate, "":
		return gtranslate.NewProvider(rc, cfg.GTranslate.TLD, cfg.ChunkSize, t), nil
	case config.EngineEdgeTTS:
		return edgetts.NewProvider(cfg.EdgeTTS.Voices, cfg.ChunkSize, c, t), nil
	case config.EngineAzureSpeech:
		return azure.NewProvider(cfg.AzureSpeech, rc, cfg.ChunkSize, t), nil
	default:
		return nil, fmt.Errorf("unknown tts engine %q", cfg.Engine)
	}
}
