package conversation

import (
	"strings"
	"sync"
)

// Role identifies the speaker of a turn
type Role string

const (
	RoleStudent Role = "student"
	RoleTutor   Role = "tutor"
)

// Display returns the capitalized form used when rendering transcript lines
func (r Role) Display() string {
	if r == "" {
		return ""
	}
	return strings.ToUpper(string(r[:1])) + string(r[1:])
}

// Turn is one utterance in a conversation, attributed to student or tutor
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Store owns per-session turn history. Sessions are created implicitly on
// first reference and live for the lifetime of the process. Implementations
// must be safe for concurrent use.
type Store interface {
	// Append adds a turn to the session, creating the session if unseen.
	Append(sessionID string, turn Turn)

	// Len returns the number of turns recorded for the session.
	Len(sessionID string) int

	// Snapshot returns a copy of the session's turns in append order.
	Snapshot(sessionID string) []Turn

	// Sessions returns the number of sessions created so far.
	Sessions() int
}

// MemoryStore is the in-memory Store implementation. A single lock guards the
// session map so concurrent requests addressing the same session cannot
// interleave their appends.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]Turn
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string][]Turn),
	}
}

// Append adds a turn to the session, creating the session if unseen
func (s *MemoryStore) Append(sessionID string, turn Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = append(s.sessions[sessionID], turn)
}

// Len returns the number of turns recorded for the session
func (s *MemoryStore) Len(sessionID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions[sessionID])
}

// Snapshot returns a copy of the session's turns in append order
func (s *MemoryStore) Snapshot(sessionID string) []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := s.sessions[sessionID]
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}

// Sessions returns the number of sessions created so far
func (s *MemoryStore) Sessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
