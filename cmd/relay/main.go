package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/stirixi/copilot-relay/internal/backend"
	"github.com/stirixi/copilot-relay/internal/config"
	"github.com/stirixi/copilot-relay/internal/genai"
	"github.com/stirixi/copilot-relay/internal/health"
	"github.com/stirixi/copilot-relay/internal/insights"
	"github.com/stirixi/copilot-relay/internal/metrics"
	"github.com/stirixi/copilot-relay/internal/relay"
)

func main() {
	// Setup structured logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()

	if os.Getenv("ENVIRONMENT") == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	log.Logger = logger

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err == nil {
		zerolog.SetGlobalLevel(level)
	}

	logger.Info().
		Str("environment", cfg.Environment).
		Int("http_port", cfg.HTTPPort).
		Str("backend", cfg.BackendBaseURL).
		Str("model", cfg.GeminiModel).
		Bool("generation_enabled", cfg.GenerationEnabled()).
		Msg("starting copilot relay")

	if !cfg.GenerationEnabled() {
		logger.Warn().Msg("GEMINI_API_KEY not set: chat turns will fail fast, insights still served")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	m := metrics.New()
	checker := health.NewChecker(logger)

	backendClient := backend.NewClient(cfg.BackendBaseURL, cfg.BackendTimeout, logger)
	checker.Register("backend", func(ctx context.Context) health.Status {
		if err := backendClient.Ping(ctx); err != nil {
			return health.StatusDown
		}
		return health.StatusOK
	})

	aggregator := insights.NewAggregator(backendClient, m, logger)
	cache := insights.NewCache(aggregator.Gather, cfg.InsightsCacheTTL, m)

	gen := genai.NewClient(cfg.GeminiAPIKey,
		genai.WithModel(cfg.GeminiModel),
		genai.WithBaseURL(cfg.GeminiBaseURL),
		genai.WithIdleTimeout(cfg.StreamIdleTimeout),
		genai.WithMetrics(m),
		genai.WithLogger(logger),
	)

	server := relay.NewServer(relay.ServerConfig{
		ListenAddr: fmt.Sprintf(":%d", cfg.HTTPPort),
		AuthConfig: relay.AuthConfig{
			Mode:   cfg.AuthMode,
			APIKey: cfg.APIKey,
		},
		RateLimit: relay.RateLimitConfig{
			RPS:   cfg.RateLimitRPS,
			Burst: cfg.RateLimitBurst,
		},
		CORSOrigins: cfg.CORSOrigins,
	}, cache, gen, checker, m, logger)

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("relay server error")
		}
	}()

	sig := <-sigCh
	logger.Info().Str("signal", sig.String()).Msg("shutting down gracefully")

	shutdownDone := make(chan error, 1)
	go func() { shutdownDone <- server.Shutdown() }()

	select {
	case err := <-shutdownDone:
		if err != nil {
			logger.Error().Err(err).Msg("relay server shutdown error")
		}
	case <-time.After(10 * time.Second):
		logger.Warn().Msg("forced shutdown after timeout")
	}

	logger.Info().Msg("copilot relay stopped")
}
