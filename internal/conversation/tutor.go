package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Rayan-Farhan/IELTS-tutor/internal/llm"
)

// Tutor drives the multi-turn tutoring conversation. It owns the sequencing
// contract: student turn recorded first, then the generator invoked with the
// bounded transcript window, then the tutor turn recorded, whatever the
// generation outcome was.
type Tutor struct {
	store  Store
	gen    llm.Generator
	window int
	logger *slog.Logger

	// Statistics
	mu          sync.Mutex
	responses   uint64
	failures    uint64
	avgDuration time.Duration
}

// TutorStats represents tutoring statistics
type TutorStats struct {
	Responses         uint64        `json:"responses"`
	Failures          uint64        `json:"failures"`
	AvgGenerationTime time.Duration `json:"avg_generation_time"`
}

// NewTutor creates a tutor over the given store and generator. A window of
// zero or less selects DefaultContextWindow.
func NewTutor(store Store, gen llm.Generator, window int, logger *slog.Logger) *Tutor {
	if window <= 0 {
		window = DefaultContextWindow
	}

	return &Tutor{
		store:  store,
		gen:    gen,
		window: window,
		logger: logger,
	}
}

// Respond records the student's utterance, generates the tutor's reply, and
// records it. Generation failures are rendered as diagnostic reply text and
// recorded like any other tutor turn; Respond never fails the conversation.
func (t *Tutor) Respond(ctx context.Context, sessionID, userText string) string {
	t.store.Append(sessionID, Turn{Role: RoleStudent, Content: userText})

	prompt := BuildPrompt(t.store.Snapshot(sessionID), t.window)

	start := time.Now()
	reply := t.generate(ctx, prompt)
	t.recordDuration(time.Since(start))

	t.store.Append(sessionID, Turn{Role: RoleTutor, Content: reply})

	return reply
}

// generate invokes the generator once and converts every failure class into
// a human-readable diagnostic string.
func (t *Tutor) generate(ctx context.Context, prompt string) string {
	out, err := t.gen.Generate(ctx, prompt)
	if err == nil {
		return strings.TrimSpace(out)
	}

	t.recordFailure()
	t.logger.Warn("Generation failed",
		slog.String("tool", t.gen.Name()),
		slog.String("error", err.Error()),
	)

	var exitErr *llm.ExitError
	switch {
	case errors.Is(err, llm.ErrNotInstalled):
		return fmt.Sprintf("Error: %s is not installed or not found in PATH.", t.gen.Name())
	case errors.Is(err, llm.ErrTimeout):
		return fmt.Sprintf("Error generating response: %s timed out.", t.gen.Name())
	case errors.As(err, &exitErr):
		return fmt.Sprintf("%s error: %s", t.gen.Name(), exitErr.Output())
	default:
		return fmt.Sprintf("Error generating response: %s", err.Error())
	}
}

func (t *Tutor) recordDuration(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.responses++
	if t.avgDuration == 0 {
		t.avgDuration = d
	} else {
		t.avgDuration = (t.avgDuration + d) / 2
	}
}

func (t *Tutor) recordFailure() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failures++
}

// Stats returns current tutoring statistics
func (t *Tutor) Stats() TutorStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	return TutorStats{
		Responses:         t.responses,
		Failures:          t.failures,
		AvgGenerationTime: t.avgDuration,
	}
}
