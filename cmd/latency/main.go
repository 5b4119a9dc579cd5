// Command latency runs the full tutoring pipeline once against a sample
// audio file and reports per-stage and total timings. Each stage is also
// recorded as an OpenTelemetry span for offline inspection.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Rayan-Farhan/IELTS-tutor/internal/asr"
	"github.com/Rayan-Farhan/IELTS-tutor/internal/config"
	"github.com/Rayan-Farhan/IELTS-tutor/internal/conversation"
	"github.com/Rayan-Farhan/IELTS-tutor/internal/llm"
	"github.com/Rayan-Farhan/IELTS-tutor/internal/telemetry"
	"github.com/Rayan-Farhan/IELTS-tutor/internal/tts"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	audioPath := flag.String("audio", "data/input_audio/sample.wav", "Path to sample audio file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	ctx := context.Background()
	tracer, cleanup, err := telemetry.InitTracing(ctx, "ielts-tutor-latency", "1.0.0", "logs")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracing: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	audio, err := os.ReadFile(*audioPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read sample audio %s: %v\n", *audioPath, err)
		os.Exit(1)
	}

	transcriber := asr.NewTranscriber(asr.Config{
		Binary:   cfg.ASR.Binary,
		Model:    cfg.ASR.Model,
		Language: cfg.ASR.Language,
		BeamSize: cfg.ASR.BeamSize,
		Timeout:  cfg.ASR.GetTimeoutDuration(),
	}, logger)

	runner := llm.NewOllamaRunner(llm.OllamaConfig{
		Binary:  cfg.LLM.Binary,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.GetTimeoutDuration(),
	}, logger)
	tutor := conversation.NewTutor(conversation.NewMemoryStore(), runner, cfg.LLM.ContextWindow, logger)

	synth := tts.NewClient(tts.Config{
		Endpoint:  cfg.TTS.Endpoint,
		Language:  cfg.TTS.Language,
		OutputDir: cfg.TTS.OutputDir,
		Timeout:   cfg.TTS.GetTimeoutDuration(),
	}, logger)

	sessionID := uuid.NewString()

	fmt.Println("Starting end-to-end latency test...")
	fmt.Printf("Session: %s\n\n", sessionID)

	ctx, pipelineSpan := tracer.Start(ctx, "pipeline")
	totalStart := time.Now()

	// Stage 1: speech to text
	stageCtx, span := tracer.Start(ctx, "transcribe")
	start := time.Now()
	result := transcriber.Transcribe(stageCtx, audio)
	asrElapsed := time.Since(start)
	span.SetAttributes(
		attribute.String("text", result.Text),
		attribute.Float64("confidence", result.Confidence),
	)
	span.End()
	fmt.Printf("Transcribed text: %q\n", result.Text)
	fmt.Printf("Confidence: %.2f\n", result.Confidence)
	fmt.Printf("ASR latency: %.2fs\n\n", asrElapsed.Seconds())

	// Stage 2: tutor response
	stageCtx, span = tracer.Start(ctx, "respond")
	start = time.Now()
	reply := tutor.Respond(stageCtx, sessionID, result.Text)
	chatElapsed := time.Since(start)
	span.SetAttributes(attribute.Int("reply_chars", len(reply)))
	span.End()
	fmt.Printf("Tutor response: %q\n", reply)
	fmt.Printf("Chat latency: %.2fs\n\n", chatElapsed.Seconds())

	// Stage 3: text to speech
	stageCtx, span = tracer.Start(ctx, "synthesize")
	start = time.Now()
	audioFile := synth.Synthesize(stageCtx, reply, sessionID)
	ttsElapsed := time.Since(start)
	span.SetAttributes(attribute.String("artifact", audioFile))
	span.End()
	fmt.Printf("Audio saved at: %s\n", audioFile)
	fmt.Printf("TTS latency: %.2fs\n\n", ttsElapsed.Seconds())

	pipelineSpan.End()

	fmt.Printf("TOTAL PIPELINE LATENCY: %.2f seconds\n", time.Since(totalStart).Seconds())
}
