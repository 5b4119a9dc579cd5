package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Generator is the narrow port over a text-generation backend. The tutor core
// depends only on this interface so the backend (local process, RPC service,
// hosted API) is swappable.
type Generator interface {
	// Name returns the backend tool name used in diagnostic messages.
	Name() string

	// Generate produces a completion for the given prompt. Failures are
	// reported through the error taxonomy below, never through the text.
	Generate(ctx context.Context, prompt string) (string, error)
}

// ErrNotInstalled indicates the backend binary could not be located in PATH.
var ErrNotInstalled = errors.New("model binary not installed")

// ErrTimeout indicates the generation exceeded its wall-clock bound.
var ErrTimeout = errors.New("generation timed out")

// ExitError indicates the backend process exited with a non-zero status.
type ExitError struct {
	Code   int
	Stdout string
	Stderr string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("model process exited with code %d: %s", e.Code, e.Output())
}

// Output returns the captured standard error, falling back to standard output
// when stderr is empty, trimmed of surrounding whitespace.
func (e *ExitError) Output() string {
	if out := strings.TrimSpace(e.Stderr); out != "" {
		return out
	}
	return strings.TrimSpace(e.Stdout)
}
