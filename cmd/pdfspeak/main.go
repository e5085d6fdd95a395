package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"pdfspeak/pkg/audio"
	"pdfspeak/pkg/cache"
	"pdfspeak/pkg/config"
	"pdfspeak/pkg/convert"
	"pdfspeak/pkg/db"
	"pdfspeak/pkg/language"
	"pdfspeak/pkg/logging"
	"pdfspeak/pkg/pdftext"
	"pdfspeak/pkg/request"
	"pdfspeak/pkg/session"
	"pdfspeak/pkg/tracker"
	"pdfspeak/pkg/tts"
	"pdfspeak/pkg/version"
)

const defaultConfigPath = "configs/pdfspeak.yaml"

var (
	configPath = flag.String("config", defaultConfigPath, "Path to the config file")
	initConfig = flag.Bool("init-config", false, "Generate default config file and exit")
	inPath     = flag.String("in", "", "PDF to convert without prompting")
	langCode   = flag.String("lang", "", "Language code for -in")
	outPath    = flag.String("out", "", "Output file or directory for -in")
)

// options selects between the interactive session and a single conversion.
type options struct {
	ConfigPath string
	In         string
	Lang       string
	Out        string
}

func main() {
	flag.Parse()

	// Secrets (AZURE_SPEECH_KEY, EDGE_TTS_*) may live in .env.
	_ = godotenv.Load()

	if *initConfig {
		if err := config.GenerateDefault(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Config file generated: %s\n", *configPath)
		return
	}

	opts := options{ConfigPath: *configPath, In: *inPath, Lang: *langCode, Out: *outPath}
	if err := run(context.Background(), opts, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, in io.Reader, out io.Writer) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	appCfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cleanupLogs, err := logging.Init(appCfg.Log.App)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()

	tts.SetLogPath(appCfg.History.TTS.Path)
	tts.SetEnabled(appCfg.History.TTS.Enabled)

	slog.Info("pdfspeak started", "version", version.Version, "engine", appCfg.TTS.Engine)

	tr := tracker.New()
	defer logStats(tr)

	segCache, closeCache, err := initCache(appCfg.Cache)
	if err != nil {
		return err
	}
	defer closeCache()

	rc := request.New(segCache, tr, request.Options{
		Timeout:   appCfg.Request.Timeout.Std(),
		Retries:   appCfg.Request.Retries,
		BaseDelay: appCfg.Request.Backoff.BaseDelay.Std(),
		MaxDelay:  appCfg.Request.Backoff.MaxDelay.Std(),
	})

	provider, err := convert.NewTTSProvider(appCfg.TTS, rc, segCache, tr)
	if err != nil {
		return fmt.Errorf("failed to initialize tts: %w", err)
	}

	reg, fellBack := language.Load(ctx, provider)
	slog.Info("Languages loaded", "count", reg.Len(), "fallback", fellBack)

	conv := convert.New(pdftext.NewExtractor(), provider, reg)
	conv.DefaultOutput = appCfg.Convert.OutputDir
	conv.Slow = appCfg.Convert.Slow

	sess := session.New(conv, out, audio.GetDuration)

	if opts.In != "" {
		sess.RunOnce(ctx, convert.Request{SourcePath: opts.In, Language: opts.Lang, OutputPath: opts.Out})
		return nil
	}

	prompter, closePrompter := newPrompter(in, out)
	defer closePrompter()
	sess.Run(ctx, prompter)
	return nil
}

// initCache opens the segment cache and prunes expired entries. A disabled
// cache yields a nil Cacher.
func initCache(cfg config.CacheConfig) (cache.Cacher, func(), error) {
	if !cfg.Enabled {
		return nil, func() {}, nil
	}

	dbConn, err := db.Init(cfg.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize cache database: %w", err)
	}

	if ttl := cfg.TTL.Std(); ttl > 0 {
		n, err := dbConn.PruneCache(ttl)
		if err != nil {
			slog.Warn("Cache pruning failed", "error", err)
		} else if n > 0 {
			slog.Info("Pruned expired cache entries", "count", n)
		}
	}

	closeFn := func() {
		if err := dbConn.Close(); err != nil {
			slog.Warn("Failed to close cache database", "error", err)
		}
	}
	return cache.NewSQLiteCache(dbConn), closeFn, nil
}

// newPrompter uses line editing on the real terminal and plain line reads
// everywhere else.
func newPrompter(in io.Reader, out io.Writer) (session.Prompter, func()) {
	if f, ok := in.(*os.File); ok && f == os.Stdin {
		rl, err := session.NewReadlinePrompter("")
		if err == nil {
			return rl, func() { _ = rl.Close() }
		}
		slog.Warn("Readline unavailable, falling back to simple input", "error", err)
	}
	return session.NewLinePrompter(in, out), func() {}
}

func logStats(tr *tracker.Tracker) {
	snap := tr.Snapshot()
	for _, name := range tr.Providers() {
		s := snap[name]
		slog.Info("Usage",
			"provider", name,
			"cache_hits", s.CacheHits,
			"cache_misses", s.CacheMisses,
			"api_success", s.APISuccess,
			"api_failures", s.APIFailures)
	}
}
