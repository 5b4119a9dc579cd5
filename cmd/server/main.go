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
	"time"

	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/Rayan-Farhan/IELTS-tutor/internal/asr"
	"github.com/Rayan-Farhan/IELTS-tutor/internal/config"
	"github.com/Rayan-Farhan/IELTS-tutor/internal/conversation"
	"github.com/Rayan-Farhan/IELTS-tutor/internal/llm"
	"github.com/Rayan-Farhan/IELTS-tutor/internal/metrics"
	"github.com/Rayan-Farhan/IELTS-tutor/internal/server"
	"github.com/Rayan-Farhan/IELTS-tutor/internal/tts"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "ielts-tutor-service"
	serviceVersion    = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	// Log service startup
	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	// Log configuration summary
	logger.Info("Configuration loaded",
		slog.Int("http_port", cfg.HTTP.Port),
		slog.String("bind_address", cfg.HTTP.Address),
		slog.Int("max_upload_mb", cfg.HTTP.MaxUploadMB),
		slog.String("asr_binary", cfg.ASR.Binary),
		slog.String("asr_model", cfg.ASR.Model),
		slog.String("llm_binary", cfg.LLM.Binary),
		slog.String("llm_model", cfg.LLM.Model),
		slog.Int("context_window", cfg.LLM.ContextWindow),
		slog.String("tts_output_dir", cfg.TTS.OutputDir),
		slog.String("log_level", cfg.Logging.Level),
	)

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Prometheus metrics
	appMetrics := metrics.NewMetrics()
	logger.Info("Prometheus metrics initialized")

	// Initialize the transcription engine
	transcriber := asr.NewTranscriber(asr.Config{
		Binary:   cfg.ASR.Binary,
		Model:    cfg.ASR.Model,
		Language: cfg.ASR.Language,
		BeamSize: cfg.ASR.BeamSize,
		Timeout:  cfg.ASR.GetTimeoutDuration(),
	}, logger)
	logger.Info("Transcription engine initialized",
		slog.String("binary", cfg.ASR.Binary),
		slog.String("model", cfg.ASR.Model),
	)

	// Initialize the language model runner and conversation tutor
	runner := llm.NewOllamaRunner(llm.OllamaConfig{
		Binary:  cfg.LLM.Binary,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.GetTimeoutDuration(),
	}, logger)

	store := conversation.NewMemoryStore()
	tutor := conversation.NewTutor(store, runner, cfg.LLM.ContextWindow, logger)
	logger.Info("Conversation tutor initialized",
		slog.String("generator", runner.Name()),
		slog.Int("context_window", cfg.LLM.ContextWindow),
	)

	// Initialize the speech synthesis client
	synth := tts.NewClient(tts.Config{
		Endpoint:  cfg.TTS.Endpoint,
		Language:  cfg.TTS.Language,
		OutputDir: cfg.TTS.OutputDir,
		Timeout:   cfg.TTS.GetTimeoutDuration(),
	}, logger)
	logger.Info("Speech synthesis client initialized",
		slog.String("output_dir", cfg.TTS.OutputDir),
	)

	// Initialize HTTP API server
	httpConfig := server.HTTPServerConfig{
		Port:           cfg.HTTP.Port,
		Address:        cfg.HTTP.Address,
		MaxUploadBytes: cfg.HTTP.GetMaxUploadBytes(),
		AudioDir:       cfg.TTS.OutputDir,
	}
	httpServer := server.NewHTTPServer(httpConfig, logger, store, tutor, transcriber, synth, appMetrics)
	logger.Info("HTTP API server initialized",
		slog.String("address", fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port)),
	)

	// Start HTTP server
	if err := httpServer.Start(); err != nil {
		logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Service started successfully, waiting for signals...",
		slog.String("http_address", fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port)),
	)

	// Wait for shutdown signal
	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("Context cancelled, shutting down")
	}

	logger.Info("Starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
	}

	// Get final statistics
	tutorStats := tutor.Stats()
	asrStats := transcriber.Stats()
	ttsStats := synth.Stats()
	logger.Info("Final service statistics",
		slog.Int("sessions", store.Sessions()),
		slog.Uint64("responses", tutorStats.Responses),
		slog.Uint64("generation_failures", tutorStats.Failures),
		slog.Uint64("transcriptions", asrStats.Requests),
		slog.Uint64("synthesis_requests", ttsStats.Requests),
		slog.Uint64("synthesis_failures", ttsStats.Failures),
	)

	logger.Info("Service stopped")
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	// Parse log level
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo // default fallback
	}

	// Configure handler options
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug, // Add source info for debug level
	}

	// Determine output destination. File paths get rotation.
	var output io.Writer
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		output = &lumberjack.Logger{
			Filename:   cfg.Output,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
	}

	// Create handler based on format
	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	case "text", "":
		handler = slog.NewTextHandler(output, opts)
	default:
		// Default to text format
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
