package history

import (
	"strings"
	"sync"
	"time"

	"github.com/m-mizutani/cygnet/pkg/model"
)

const defaultTTL = 24 * time.Hour

type record struct {
	lastAccess time.Time
	messages   []model.Message
}

// Store keeps per-conversation message sequences in memory. Records expire
// after the TTL of idle time; reads slide the TTL window. The store is shared
// across request handlers, so every operation holds the mutex.
type Store struct {
	mu            sync.Mutex
	ttl           time.Duration
	conversations map[model.ConversationID]*record
}

type Option func(*Store)

func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func New(opts ...Option) *Store {
	s := &Store{
		ttl:           defaultTTL,
		conversations: make(map[model.ConversationID]*record),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add appends a message with the current timestamp and sweeps expired
// conversations as a side effect.
func (s *Store) Add(id model.ConversationID, role model.Role, content string) error {
	if err := role.Validate(); err != nil {
		return err
	}

	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.conversations[id]
	if !ok {
		rec = &record{}
		s.conversations[id] = rec
	}
	rec.messages = append(rec.messages, model.Message{
		Role:      role,
		Content:   content,
		CreatedAt: now,
	})
	rec.lastAccess = now

	s.sweepLocked(now)
	return nil
}

// Messages returns a copy of the conversation's messages, empty for unknown
// IDs. Access refreshes the TTL window.
func (s *Store) Messages(id model.ConversationID) []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.conversations[id]
	if !ok {
		return nil
	}
	rec.lastAccess = time.Now()

	messages := make([]model.Message, len(rec.messages))
	copy(messages, rec.messages)
	return messages
}

// Formatted returns the conversation both as a display string ("User:" /
// "Assistant:" lines) and as completed user/assistant pairs for prompt
// consumption. A trailing user message without a matching assistant response
// stays in the display string but is dropped from the pairs.
func (s *Store) Formatted(id model.ConversationID) (string, []model.MessagePair) {
	messages := s.Messages(id)

	var lines []string
	var pairs []model.MessagePair
	var currentUser, currentAssistant string

	for _, msg := range messages {
		switch msg.Role {
		case model.RoleUser:
			if currentUser != "" && currentAssistant != "" {
				pairs = append(pairs, model.MessagePair{User: currentUser, Assistant: currentAssistant})
				currentUser = ""
				currentAssistant = ""
			}
			currentUser = msg.Content
			lines = append(lines, "User: "+msg.Content)
		case model.RoleAssistant:
			currentAssistant = msg.Content
			lines = append(lines, "Assistant: "+msg.Content)
		}
	}

	if currentUser != "" && currentAssistant != "" {
		pairs = append(pairs, model.MessagePair{User: currentUser, Assistant: currentAssistant})
	}

	return strings.Join(lines, "\n"), pairs
}

// Clear removes a conversation and reports whether it existed
func (s *Store) Clear(id model.ConversationID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[id]; !ok {
		return false
	}
	delete(s.conversations, id)
	return true
}

// Count returns the number of active conversations
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conversations)
}

// Sweep evicts all conversations idle beyond the TTL and reports how many
// were removed. Also used by the background reaper in serve mode.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(time.Now())
}

func (s *Store) sweepLocked(now time.Time) int {
	removed := 0
	for id, rec := range s.conversations {
		if now.Sub(rec.lastAccess) > s.ttl {
			delete(s.conversations, id)
			removed++
		}
	}
	return removed
}
