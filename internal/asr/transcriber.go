package asr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	defaultBinary   = "whisper"
	defaultModel    = "tiny"
	defaultLanguage = "en"
	defaultBeamSize = 5
	defaultTimeout  = 120 * time.Second

	inputFileName = "input.wav"
)

// Config contains transcriber configuration
type Config struct {
	Binary   string
	Model    string
	Language string
	BeamSize int
	Timeout  time.Duration
}

// Segment is one recognized span of speech with its time bounds in seconds
type Segment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Result is a single transcription outcome. Confidence is the arithmetic mean
// of the segments' average log-probabilities rounded to 2 decimals, or 0 when
// no segments were recognized.
type Result struct {
	Text       string    `json:"text"`
	Confidence float64   `json:"confidence"`
	Segments   []Segment `json:"segments"`
}

// Stats represents transcriber statistics
type Stats struct {
	Requests          uint64        `json:"requests"`
	EmptyResults      uint64        `json:"empty_results"`
	AvgProcessingTime time.Duration `json:"avg_processing_time"`
}

// Transcriber wraps the Whisper CLI as a black-box speech-to-text engine.
// Decoding parameters are fixed: deterministic decoding (temperature 0), the
// configured beam width, and the configured target language.
type Transcriber struct {
	config Config
	logger *slog.Logger

	// Statistics
	mu           sync.Mutex
	requests     uint64
	emptyResults uint64
	avgDuration  time.Duration
}

// whisperOutput mirrors the JSON transcript the engine writes
type whisperOutput struct {
	Text     string `json:"text"`
	Segments []struct {
		Text       string  `json:"text"`
		Start      float64 `json:"start"`
		End        float64 `json:"end"`
		AvgLogprob float64 `json:"avg_logprob"`
	} `json:"segments"`
}

// NewTranscriber creates a transcriber, applying defaults for zero values
func NewTranscriber(cfg Config, logger *slog.Logger) *Transcriber {
	if cfg.Binary == "" {
		cfg.Binary = defaultBinary
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Language == "" {
		cfg.Language = defaultLanguage
	}
	if cfg.BeamSize <= 0 {
		cfg.BeamSize = defaultBeamSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	return &Transcriber{
		config: cfg,
		logger: logger,
	}
}

// Transcribe converts an uploaded audio blob into text, confidence, and
// segment timestamps. Engine failures degrade to an empty Result; they are
// never propagated to the caller. The audio is staged in a scoped temporary
// directory that is removed on every exit path.
func (t *Transcriber) Transcribe(ctx context.Context, audio []byte) Result {
	start := time.Now()
	defer func() { t.record(time.Since(start)) }()

	tmpDir, err := os.MkdirTemp("", "ielts-asr-")
	if err != nil {
		t.logger.Error("Failed to create temp directory", slog.String("error", err.Error()))
		return t.empty()
	}
	defer os.RemoveAll(tmpDir)

	audioPath := filepath.Join(tmpDir, inputFileName)
	if err := os.WriteFile(audioPath, audio, 0644); err != nil {
		t.logger.Error("Failed to stage audio file", slog.String("error", err.Error()))
		return t.empty()
	}

	ctx, cancel := context.WithTimeout(ctx, t.config.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, t.config.Binary, audioPath,
		"--model", t.config.Model,
		"--language", t.config.Language,
		"--temperature", "0",
		"--beam_size", strconv.Itoa(t.config.BeamSize),
		"--output_format", "json",
		"--output_dir", tmpDir,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.WaitDelay = 5 * time.Second

	if err := cmd.Run(); err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) &&
			(errors.Is(execErr.Err, exec.ErrNotFound) || errors.Is(execErr.Err, fs.ErrNotExist)) {
			t.logger.Warn("Speech-to-text binary not found",
				slog.String("binary", t.config.Binary),
			)
			return t.empty()
		}

		t.logger.Error("Speech-to-text engine failed",
			slog.String("binary", t.config.Binary),
			slog.String("error", err.Error()),
			slog.String("stderr", stderr.String()),
		)
		return t.empty()
	}

	transcriptPath := filepath.Join(tmpDir, transcriptName(inputFileName))
	data, err := os.ReadFile(transcriptPath)
	if err != nil {
		t.logger.Error("Failed to read transcript", slog.String("error", err.Error()))
		return t.empty()
	}

	var out whisperOutput
	if err := json.Unmarshal(data, &out); err != nil {
		t.logger.Error("Failed to parse transcript JSON", slog.String("error", err.Error()))
		return t.empty()
	}

	return t.buildResult(out)
}

// buildResult converts the engine transcript into a Result
func (t *Transcriber) buildResult(out whisperOutput) Result {
	result := Result{
		Text:     strings.TrimSpace(out.Text),
		Segments: make([]Segment, 0, len(out.Segments)),
	}

	var logprobSum float64
	for _, seg := range out.Segments {
		result.Segments = append(result.Segments, Segment{
			Text:  strings.TrimSpace(seg.Text),
			Start: seg.Start,
			End:   seg.End,
		})
		logprobSum += seg.AvgLogprob
	}

	if len(out.Segments) > 0 {
		result.Confidence = round2(logprobSum / float64(len(out.Segments)))
	}

	if result.Text == "" && len(result.Segments) == 0 {
		t.mu.Lock()
		t.emptyResults++
		t.mu.Unlock()
	}

	return result
}

// empty records and returns the degraded zero result
func (t *Transcriber) empty() Result {
	t.mu.Lock()
	t.emptyResults++
	t.mu.Unlock()
	return Result{Segments: []Segment{}}
}

func (t *Transcriber) record(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.requests++
	if t.avgDuration == 0 {
		t.avgDuration = d
	} else {
		t.avgDuration = (t.avgDuration + d) / 2
	}
}

// Stats returns current transcriber statistics
func (t *Transcriber) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	return Stats{
		Requests:          t.requests,
		EmptyResults:      t.emptyResults,
		AvgProcessingTime: t.avgDuration,
	}
}

// transcriptName maps the staged audio name to the JSON transcript the engine
// writes next to it (input.wav -> input.json).
func transcriptName(audioName string) string {
	ext := filepath.Ext(audioName)
	return audioName[:len(audioName)-len(ext)] + ".json"
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
