package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

const (
	defaultBinary  = "ollama"
	defaultModel   = "phi3:mini"
	defaultTimeout = 120 * time.Second
)

// OllamaConfig contains Ollama runner configuration
type OllamaConfig struct {
	Binary  string
	Model   string
	Timeout time.Duration
}

// OllamaRunner invokes a local Ollama model as a subprocess. The prompt is
// written to the process's standard input and the completion is read from its
// standard output. One invocation per call, no retries.
type OllamaRunner struct {
	binary  string
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

// NewOllamaRunner creates a runner, applying defaults for zero values.
func NewOllamaRunner(cfg OllamaConfig, logger *slog.Logger) *OllamaRunner {
	if cfg.Binary == "" {
		cfg.Binary = defaultBinary
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	return &OllamaRunner{
		binary:  cfg.Binary,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		logger:  logger,
	}
}

// Name returns the backend tool name
func (r *OllamaRunner) Name() string {
	return r.binary
}

// Timeout returns the configured wall-clock bound
func (r *OllamaRunner) Timeout() time.Duration {
	return r.timeout
}

// Generate runs the model process and returns its raw standard output.
// Cancellation is not supported beyond the timeout: once launched, the
// process runs until it exits or the deadline kills it.
func (r *OllamaRunner) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.binary, "run", r.model)
	cmd.Stdin = strings.NewReader(prompt)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	// Keep Wait from hanging on pipes held open by orphaned children
	// after the deadline kills the process.
	cmd.WaitDelay = 5 * time.Second

	r.logger.Debug("Running model process",
		slog.String("binary", r.binary),
		slog.String("model", r.model),
		slog.Int("prompt_len", len(prompt)),
	)

	start := time.Now()
	err := cmd.Run()

	if ctx.Err() == context.DeadlineExceeded {
		r.logger.Warn("Model process timed out",
			slog.String("binary", r.binary),
			slog.Duration("timeout", r.timeout),
		)
		return "", fmt.Errorf("%w after %s", ErrTimeout, r.timeout)
	}

	if err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) &&
			(errors.Is(execErr.Err, exec.ErrNotFound) || errors.Is(execErr.Err, fs.ErrNotExist)) {
			return "", ErrNotInstalled
		}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", &ExitError{
				Code:   exitErr.ExitCode(),
				Stdout: stdout.String(),
				Stderr: stderr.String(),
			}
		}

		return "", fmt.Errorf("failed to run %s: %w", r.binary, err)
	}

	r.logger.Debug("Model process completed",
		slog.Duration("duration", time.Since(start)),
		slog.Int("output_len", stdout.Len()),
	)

	return stdout.String(), nil
}
