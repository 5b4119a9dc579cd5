package conversation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/Rayan-Farhan/IELTS-tutor/internal/llm"
)

// stubGenerator records prompts and returns canned results.
type stubGenerator struct {
	reply   string
	err     error
	prompts []string
}

func (g *stubGenerator) Name() string { return "ollama" }

func (g *stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	return g.reply, g.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRespondRecordsAlternatingTurns(t *testing.T) {
	store := NewMemoryStore()
	gen := &stubGenerator{reply: "Correct: \"Well done\"\nContinue: \"What is your hometown like?\""}
	tutor := NewTutor(store, gen, 20, testLogger())

	const n = 4
	for i := 0; i < n; i++ {
		tutor.Respond(context.Background(), "s1", fmt.Sprintf("sentence %d", i))
	}

	turns := store.Snapshot("s1")
	if len(turns) != 2*n {
		t.Fatalf("expected %d turns after %d responds, got %d", 2*n, n, len(turns))
	}
	for i, turn := range turns {
		want := RoleStudent
		if i%2 == 1 {
			want = RoleTutor
		}
		if turn.Role != want {
			t.Errorf("turn %d: expected role %q, got %q", i, want, turn.Role)
		}
	}
}

func TestRespondTrimsReply(t *testing.T) {
	store := NewMemoryStore()
	gen := &stubGenerator{reply: "\n  Nice work!  \n\n"}
	tutor := NewTutor(store, gen, 20, testLogger())

	reply := tutor.Respond(context.Background(), "s1", "I am ready")
	if reply != "Nice work!" {
		t.Errorf("expected trimmed reply, got %q", reply)
	}
	if store.Snapshot("s1")[1].Content != "Nice work!" {
		t.Error("the trimmed reply must be what gets recorded")
	}
}

func TestRespondPromptContainsGreetingInstruction(t *testing.T) {
	store := NewMemoryStore()
	gen := &stubGenerator{reply: "Hello! Let's begin. Where are you from?"}
	tutor := NewTutor(store, gen, 20, testLogger())

	tutor.Respond(context.Background(), "s1", "Hello")

	if len(gen.prompts) != 1 {
		t.Fatalf("expected 1 generation, got %d", len(gen.prompts))
	}
	prompt := gen.prompts[0]
	if !strings.Contains(prompt, "greeting") {
		t.Error("prompt must carry the greeting-handling instruction")
	}
	if !strings.HasSuffix(prompt, "Student: Hello\nTutor:") {
		t.Errorf("prompt must end with the fresh student turn and the cue, got tail %q", prompt[len(prompt)-30:])
	}
}

func TestRespondWindowBoundsPrompt(t *testing.T) {
	store := NewMemoryStore()
	gen := &stubGenerator{reply: "ok"}
	tutor := NewTutor(store, gen, 6, testLogger())

	for i := 0; i < 10; i++ {
		tutor.Respond(context.Background(), "s1", fmt.Sprintf("sentence %d", i))
	}

	last := gen.prompts[len(gen.prompts)-1]
	transcript := strings.TrimPrefix(last, systemInstruction+"\n\n")
	lines := strings.Split(strings.TrimSuffix(transcript, "Tutor:"), "\n")

	var turnLines int
	for _, line := range lines {
		if strings.HasPrefix(line, "Student: ") || strings.HasPrefix(line, "Tutor: ") {
			turnLines++
		}
	}
	if turnLines != 6 {
		t.Errorf("expected 6 transcript lines in the window, got %d", turnLines)
	}
	if !strings.HasSuffix(last, "Student: sentence 9\nTutor:") {
		t.Error("window must always end with the most recent student turn")
	}
}

func TestRespondMissingBinaryDiagnostic(t *testing.T) {
	store := NewMemoryStore()
	gen := &stubGenerator{err: llm.ErrNotInstalled}
	tutor := NewTutor(store, gen, 20, testLogger())

	reply := tutor.Respond(context.Background(), "s1", "Hello")

	want := "Error: ollama is not installed or not found in PATH."
	if reply != want {
		t.Errorf("expected %q, got %q", want, reply)
	}

	// The session still records both the student turn and the diagnostic.
	turns := store.Snapshot("s1")
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	if turns[1].Role != RoleTutor || turns[1].Content != want {
		t.Errorf("expected diagnostic recorded as tutor turn, got %+v", turns[1])
	}
}

func TestRespondTimeoutDiagnostic(t *testing.T) {
	store := NewMemoryStore()
	gen := &stubGenerator{err: fmt.Errorf("%w after 120s", llm.ErrTimeout)}
	tutor := NewTutor(store, gen, 20, testLogger())

	reply := tutor.Respond(context.Background(), "s1", "Hello")
	if reply != "Error generating response: ollama timed out." {
		t.Errorf("unexpected timeout diagnostic: %q", reply)
	}
}

func TestRespondExitErrorDiagnostic(t *testing.T) {
	store := NewMemoryStore()
	gen := &stubGenerator{err: &llm.ExitError{Code: 1, Stderr: "model 'phi3:mini' not found\n"}}
	tutor := NewTutor(store, gen, 20, testLogger())

	reply := tutor.Respond(context.Background(), "s1", "Hello")
	if reply != "ollama error: model 'phi3:mini' not found" {
		t.Errorf("unexpected exit diagnostic: %q", reply)
	}
}

func TestRespondGenericFailureDiagnostic(t *testing.T) {
	store := NewMemoryStore()
	gen := &stubGenerator{err: errors.New("pipe closed")}
	tutor := NewTutor(store, gen, 20, testLogger())

	reply := tutor.Respond(context.Background(), "s1", "Hello")
	if reply != "Error generating response: pipe closed" {
		t.Errorf("unexpected generic diagnostic: %q", reply)
	}
}

func TestTutorStats(t *testing.T) {
	store := NewMemoryStore()
	gen := &stubGenerator{err: llm.ErrNotInstalled}
	tutor := NewTutor(store, gen, 20, testLogger())

	tutor.Respond(context.Background(), "s1", "Hello")
	tutor.Respond(context.Background(), "s1", "Hello again")

	stats := tutor.Stats()
	if stats.Responses != 2 {
		t.Errorf("expected 2 responses, got %d", stats.Responses)
	}
	if stats.Failures != 2 {
		t.Errorf("expected 2 failures, got %d", stats.Failures)
	}
}
