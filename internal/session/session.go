// Package session holds per-conversation state: a bounded message history
// and a cumulative token counter.
//
// A Session is an explicit object rather than process-wide state, so
// multiple independent conversations can run concurrently. All methods are
// safe for concurrent use; reads return copies.
package session

import (
	"sync"

	"github.com/google/uuid"
)

// Message roles. Mirrors the chat completion wire roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DefaultMaxMessages caps history length when no explicit cap is given.
const DefaultMaxMessages = 30

// Message is one role-tagged history entry. Order is chronological.
type Message struct {
	Role    string
	Content string
}

// Session is a single conversation. The zero value is not usable; call New.
type Session struct {
	id uuid.UUID

	mu          sync.Mutex
	maxMessages int
	messages    []Message
	totalTokens int
}

// New creates a Session capped at maxMessages history entries.
// maxMessages <= 0 selects DefaultMaxMessages.
func New(maxMessages int) *Session {
	if maxMessages <= 0 {
		maxMessages = DefaultMaxMessages
	}
	return &Session{
		id:          uuid.New(),
		maxMessages: maxMessages,
	}
}

// ID returns the session identifier.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Messages returns a copy of the history in chronological order.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len returns the current history length.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// TotalTokens returns the cumulative token usage across turns.
func (s *Session) TotalTokens() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalTokens
}

// LastAssistant returns the most recent assistant message, if any.
// Used to ground follow-up retrieval on the previous answer.
func (s *Session) LastAssistant() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].Role == RoleAssistant {
			return s.messages[i].Content, true
		}
	}
	return "", false
}

// Append records one completed turn (user question, assistant answer) and
// adds the turn's token usage to the running total. When the history
// exceeds the cap, the oldest user/assistant pair is evicted; the cap is
// enforced on the stored history itself, not on a copy.
func (s *Session) Append(userInput, assistantResponse string, tokens int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = append(s.messages,
		Message{Role: RoleUser, Content: userInput},
		Message{Role: RoleAssistant, Content: assistantResponse},
	)
	s.totalTokens += tokens

	for len(s.messages) > s.maxMessages && len(s.messages) >= 2 {
		s.messages = s.messages[2:]
	}
}

// Reset clears the history and zeroes the token counter.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
	s.totalTokens = 0
}
