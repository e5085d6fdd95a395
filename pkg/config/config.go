package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Engine names accepted in tts.engine.
const (
	EngineGTranslate  = "gtranslate"
	EngineEdgeTTS     = "edge-tts"
	EngineAzureSpeech = "azure-speech"
)

// Config holds the application configuration.
type Config struct {
	Convert ConvertConfig `yaml:"convert"`
	TTS     TTSConfig     `yaml:"tts"`
	Request RequestConfig `yaml:"request"`
	Cache   CacheConfig   `yaml:"cache"`
	Log     LogConfig     `yaml:"log"`
	History HistoryConfig `yaml:"history"`
}

// ConvertConfig holds settings for the conversion pipeline.
type ConvertConfig struct {
	// OutputDir, when set, is used as the explicit output for every conversion
	// that does not name one itself. Empty means "next to the source document".
	OutputDir string `yaml:"output_dir"`
	Slow      bool   `yaml:"slow"`
}

// TTSConfig holds Text-To-Speech settings.
type TTSConfig struct {
	Engine      string            `yaml:"engine"`
	ChunkSize   int               `yaml:"chunk_size"` // max characters per backend request
	GTranslate  GTranslateConfig  `yaml:"gtranslate"`
	EdgeTTS     EdgeTTSConfig     `yaml:"edge_tts"`
	AzureSpeech AzureSpeechConfig `yaml:"azure_speech"`
}

// GTranslateConfig holds settings for the Google Translate speech endpoint.
type GTranslateConfig struct {
	TLD string `yaml:"tld"` // e.g. "com", "co.uk"
}

// EdgeTTSConfig holds settings for Edge TTS.
type EdgeTTSConfig struct {
	Voices map[string]string `yaml:"voices"` // language code -> voice name
}

// AzureSpeechConfig holds settings for Azure Speech TTS.
type AzureSpeechConfig struct {
	Key     string            `yaml:"key"`
	Region  string            `yaml:"region"` // e.g., "eastus"
	VoiceID string            `yaml:"voice"`
	Voices  map[string]string `yaml:"voices"` // language code -> voice name
}

// RequestConfig holds HTTP request settings.
type RequestConfig struct {
	Retries int           `yaml:"retries"`
	Timeout Duration      `yaml:"timeout"`
	Backoff BackoffConfig `yaml:"backoff"`
}

// BackoffConfig holds exponential backoff settings.
type BackoffConfig struct {
	BaseDelay Duration `yaml:"base_delay"`
	MaxDelay  Duration `yaml:"max_delay"`
}

// CacheConfig holds settings for the synthesized audio cache.
type CacheConfig struct {
	Enabled bool     `yaml:"enabled"`
	Path    string   `yaml:"path"`
	TTL     Duration `yaml:"ttl"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	App LogSettings `yaml:"app"`
}

// LogSettings holds settings for a specific logger.
type LogSettings struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// HistoryConfig holds settings for request history logs.
type HistoryConfig struct {
	TTS HistorySettings `yaml:"tts"`
}

// HistorySettings toggles one history log.
type HistorySettings struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		TTS: TTSConfig{
			Engine:    EngineGTranslate,
			ChunkSize: 100,
			GTranslate: GTranslateConfig{
				TLD: "com",
			},
			EdgeTTS: EdgeTTSConfig{
				Voices: map[string]string{
					"en": "en-US-AvaMultilingualNeural",
					"de": "de-DE-SeraphinaNeural",
				},
			},
			AzureSpeech: AzureSpeechConfig{
				VoiceID: "en-US-AvaMultilingualNeural",
			},
		},
		Request: RequestConfig{
			Retries: 0,
			Timeout: Duration(60 * time.Second),
			Backoff: BackoffConfig{
				BaseDelay: Duration(500 * time.Millisecond),
				MaxDelay:  Duration(10 * time.Second),
			},
		},
		Cache: CacheConfig{
			Enabled: true,
			Path:    "./data/pdfspeak.db",
			TTL:     Duration(30 * Day),
		},
		Log: LogConfig{
			App: LogSettings{
				Path:  "./logs/pdfspeak.log",
				Level: "INFO",
			},
		},
		History: HistoryConfig{
			TTS: HistorySettings{
				Enabled: false,
				Path:    "./logs/tts.log",
			},
		},
	}
}

// Load loads the configuration from the given path.
// If the file does not exist, it creates it with default values.
// If the file exists, its values are merged over the defaults but nothing is
// written back, so user formatting and comments survive.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if err := Save(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config file: %w", err)
	}

	// Secrets may live in the environment (or .env) instead of the file.
	if cfg.TTS.AzureSpeech.Key == "" {
		cfg.TTS.AzureSpeech.Key = os.Getenv("AZURE_SPEECH_KEY")
	}
	if cfg.TTS.AzureSpeech.Region == "" {
		cfg.TTS.AzureSpeech.Region = os.Getenv("AZURE_SPEECH_REGION")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late, mid-conversion.
func (c *Config) Validate() error {
	switch c.TTS.Engine {
	case EngineGTranslate, EngineEdgeTTS, EngineAzureSpeech:
	default:
		return fmt.Errorf("invalid tts engine %q: must be one of %s, %s, %s",
			c.TTS.Engine, EngineGTranslate, EngineEdgeTTS, EngineAzureSpeech)
	}
	if c.TTS.ChunkSize <= 0 {
		return fmt.Errorf("invalid tts chunk_size %d: must be positive", c.TTS.ChunkSize)
	}
	if c.Request.Retries < 0 {
		return fmt.Errorf("invalid request retries %d: must not be negative", c.Request.Retries)
	}
	if c.Cache.Enabled && c.Cache.Path == "" {
		return fmt.Errorf("cache is enabled but cache path is empty")
	}
	return nil
}

var reEngine = regexp.MustCompile(`(?m)^(\s+)engine:`)

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# pdfspeak configuration
# ---------------------
# Durations accept: ns, us, ms, s, m, h, d (day), w (week)
# Secrets may be left empty and supplied via AZURE_SPEECH_KEY / AZURE_SPEECH_REGION.

`)
	data = append(header, data...)
	data = reEngine.ReplaceAll(data, []byte("${1}# Options: gtranslate, edge-tts, azure-speech\n${1}engine:"))

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return Save(path, DefaultConfig())
}
