package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/satriahrh/speaklab/adapters/decoder"
	"github.com/satriahrh/speaklab/adapters/stt"
	"github.com/satriahrh/speaklab/domain/repositories"
	"github.com/satriahrh/speaklab/internal/api"
	"github.com/satriahrh/speaklab/internal/config"
	"github.com/satriahrh/speaklab/internal/metrics"
	"github.com/satriahrh/speaklab/internal/silencegate"
	"github.com/satriahrh/speaklab/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Initialize logger
	logger, err := config.NewLogger(cfg.Settings.LogLevel)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	for _, warning := range cfg.Warnings {
		logger.Warn("Invalid configuration value", zap.String("detail", warning))
	}

	logger.Info("Silence gate configured",
		zap.Int("frame_ms", cfg.Gate.FrameDurationMs),
		zap.Int("sample_rate_hz", cfg.Gate.SampleRateHz),
		zap.Float64("threshold_dbfs", cfg.Gate.SilenceThresholdDBFS),
		zap.Float64("threshold_linear", cfg.Gate.SilenceThresholdLinear()),
		zap.Float64("ratio_cutoff", cfg.Gate.SilenceRatioCutoff),
		zap.Float64("min_duration_sec", cfg.Gate.MinDurationSec),
		zap.Duration("decode_timeout", cfg.GateOpts.DecodeTimeout),
		zap.Int("max_concurrent_decodes", cfg.GateOpts.MaxConcurrentDecodes))

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector("speaklab", registry, logger)

	// Initialize adapters
	ffmpeg := decoder.NewFFmpegDecoder(decoder.FFmpegConfig{BinaryPath: cfg.Settings.FFmpegPath}, logger)
	if err := ffmpeg.Available(); err != nil {
		logger.Warn("ffmpeg not available; silence gate will fail open",
			zap.String("path", cfg.Settings.FFmpegPath),
			zap.Bool("silence_gate_fallback", true),
			zap.Error(err))
	}

	speechToText, closeSTT, err := newSpeechToText(context.Background(), cfg.Settings, logger)
	if err != nil {
		logger.Fatal("Failed to initialize speech-to-text", zap.Error(err))
	}
	defer closeSTT()

	// Initialize usecase services
	gate := silencegate.NewGate(cfg.Gate, ffmpeg, cfg.GateOpts, collector, logger)
	transcriptionService := usecase.NewTranscriptionService(gate, speechToText, usecase.TranscriptionConfig{
		TempDir:  cfg.Settings.UploadTempDir,
		Provider: cfg.Settings.STTProvider,
		Language: cfg.Settings.TranscribeLanguage,
		Prompt:   cfg.Settings.TranscribePrompt,
	}, collector, logger)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.RequestID())
	e.Use(api.RequestLogger(logger, collector))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Initialize API routes
	api.InitRoutes(e, transcriptionService, api.RouteConfig{
		BodyLimit: cfg.Settings.BodyLimit(),
		Metrics:   promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
	}, logger)

	port := cfg.Settings.Port

	// Graceful shutdown
	go func() {
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Server started",
		zap.String("port", port),
		zap.String("stt_provider", cfg.Settings.STTProvider))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.GateOpts.DecodeTimeout+10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

// newSpeechToText selects the provider named by STT_PROVIDER. The returned
// func releases provider resources.
func newSpeechToText(ctx context.Context, settings config.Settings, logger *zap.Logger) (repositories.SpeechToText, func(), error) {
	noop := func() {}

	switch settings.STTProvider {
	case config.ProviderGoogle:
		google, err := stt.NewGoogleSpeechToText(ctx, logger)
		if err != nil {
			return nil, noop, err
		}
		return google, func() {
			if err := google.Close(); err != nil {
				logger.Warn("Failed to close Google Speech client", zap.Error(err))
			}
		}, nil
	case config.ProviderMock:
		return stt.NewMockSpeechToText(logger), noop, nil
	default:
		whisper, err := stt.NewWhisperSpeechToText(stt.WhisperConfig{
			APIKey:  settings.OpenAIAPIKey,
			Model:   settings.WhisperModel,
			BaseURL: settings.OpenAIBaseURL,
		}, logger)
		if err != nil {
			return nil, noop, err
		}
		return whisper, noop, nil
	}
}
