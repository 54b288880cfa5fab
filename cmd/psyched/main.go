package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"psyched/internal/backend"
	"psyched/internal/config"
	"psyched/internal/httpapi"
	"psyched/internal/hub"
	"psyched/internal/inference"
	"psyched/internal/queue"
)

func main() {
	// Flags with environment variable defaults
	defaultAddr := config.DefaultAddr
	if v := os.Getenv("PSYCHED_ADDR"); v != "" {
		defaultAddr = v
	}
	defaultBackend := config.DefaultBackendURL
	if v := os.Getenv("PSYCHED_BACKEND_URL"); v != "" {
		defaultBackend = v
	}
	addr := flag.String("addr", defaultAddr, "HTTP listen address, e.g. :8000")
	backendURL := flag.String("backend-url", defaultBackend, "Base URL of the img2img model server")
	configPath := flag.String("config", "", "Optional config file (yaml/json/toml); flags override")
	testImage := flag.String("test-image", "seed-images/hanbok-red.jpg", "Seed image for /test-inference")
	testImagesDir := flag.String("test-images-dir", "test_images", "Directory of image_<n>.jpg frames for /test-stream")
	logLevel := flag.String("log-level", "info", "Log level: debug|info|warn|error")
	flag.Parse()

	log := newLogger(*logLevel)

	var cfg config.Config
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", *configPath).Msg("loading config")
		}
	}
	if *addr != defaultAddr || cfg.Addr == "" {
		cfg.Addr = *addr
	}
	if *backendURL != defaultBackend || cfg.BackendURL == "" {
		cfg.BackendURL = *backendURL
	}
	cfg.ApplyDefaults()

	// Root context: canceled on SIGINT/SIGTERM, stops the worker, the
	// connection logger, and any submitter still waiting in a handler.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gen := backend.NewHTTPGenerator(cfg.BackendURL, 0, 10*time.Second)
	q := queue.New(gen, queue.Config{MaxDepth: cfg.MaxQueueDepth, MaxWait: cfg.MaxWait()}, log)
	q.Start(ctx)
	svc := inference.New(q, inference.Defaults{
		Steps:         cfg.DefaultSteps,
		Strength:      cfg.DefaultStrength,
		GuidanceScale: cfg.DefaultGuidance,
		NumImages:     cfg.DefaultImages,
	}, log)

	reg := hub.NewRegistry(cfg.CanvasSlugs, log)
	go reg.LogLoop(ctx, cfg.ConnLogInterval())
	bc := hub.NewBroadcaster(reg, log)

	httpapi.SetLogger(log)
	httpapi.SetBaseContext(ctx)
	httpapi.SetCORSOptions(cfg.CORSEnabled, cfg.CORSOrigins)

	slugs := cfg.CanvasSlugs
	mux := httpapi.NewMux(svc, reg, bc, httpapi.Options{
		TestImagePath: *testImage,
		TestImagesDir: *testImagesDir,
		DefaultPrompt: cfg.DefaultPrompt,
		SendInterval:  cfg.SendInterval(),
		SourceCanvas:  slugs[0],
		TargetCanvas:  slugs[len(slugs)-1],
	})
	srv := &http.Server{Addr: cfg.Addr, Handler: mux}

	go func() {
		log.Info().Str("addr", cfg.Addr).Str("backend", cfg.BackendURL).Strs("canvases", cfg.CanvasSlugs).Msg("psyched listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	cancel()
	reg.Close()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown error")
	}
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}
