package gateway

import (
	"sync"

	"github.com/ziadkadry99/switchboard/internal/llm"
)

// SessionStore holds per-user conversation history in memory. History
// is capped FIFO at maxMessages; generation only ever sees the last
// window messages, so old context ages out on both axes.
type SessionStore struct {
	mu          sync.Mutex
	byUser      map[string][]llm.Message
	maxMessages int
	window      int
}

// NewSessionStore creates a SessionStore. Non-positive caps fall back
// to sane defaults.
func NewSessionStore(maxMessages, window int) *SessionStore {
	if maxMessages <= 0 {
		maxMessages = 20
	}
	if window <= 0 {
		window = 10
	}
	return &SessionStore{
		byUser:      make(map[string][]llm.Message),
		maxMessages: maxMessages,
		window:      window,
	}
}

// Append adds messages to a user's history, dropping the oldest past
// the cap.
func (s *SessionStore) Append(userID string, messages ...llm.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := append(s.byUser[userID], messages...)
	if len(history) > s.maxMessages {
		history = history[len(history)-s.maxMessages:]
	}
	s.byUser[userID] = history
}

// Window returns a copy of the most recent messages for generation.
func (s *SessionStore) Window(userID string) []llm.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.byUser[userID]
	if len(history) > s.window {
		history = history[len(history)-s.window:]
	}
	out := make([]llm.Message, len(history))
	copy(out, history)
	return out
}

// Len reports the stored history length for one user.
func (s *SessionStore) Len(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byUser[userID])
}

// Clear drops a user's history.
func (s *SessionStore) Clear(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byUser, userID)
}
