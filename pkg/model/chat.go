package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

var (
	ErrInvalidRole = goerr.New("invalid message role")

	// ErrDeadline marks an external call that exceeded its per-call timeout
	ErrDeadline = goerr.New("external call deadline exceeded")
)

type ConversationID string

// NewConversationID generates a new unique ConversationID
func NewConversationID() ConversationID {
	return ConversationID(uuid.New().String())
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Validate checks if the role is valid
func (r Role) Validate() error {
	switch r {
	case RoleUser, RoleAssistant:
		return nil
	default:
		return goerr.Wrap(ErrInvalidRole, "unknown role", goerr.V("role", r))
	}
}

// Message is a single utterance in a conversation. Immutable once created.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// MessagePair is a completed user/assistant exchange used for prompt context
type MessagePair struct {
	User      string `json:"userMessage"`
	Assistant string `json:"assistantResponse"`
}

// ChatContext carries optional concept information attached to a chat request.
// All fields may be zero; absence is checked on the struct pointer, not per field.
type ChatContext struct {
	ConceptID          ConceptID     `json:"conceptId,omitempty"`
	ConceptTitle       string        `json:"conceptTitle,omitempty"`
	ConceptDescription string        `json:"conceptDescription,omitempty"`
	EventDetails       *EventDetails `json:"eventDetails,omitempty"`
	PreviousMessages   []MessagePair `json:"previousMessages,omitempty"`
}

type ChatRequest struct {
	Message        string         `json:"message"`
	ConversationID ConversationID `json:"conversationId,omitempty"`
	Context        *ChatContext   `json:"context,omitempty"`
}

// Source is a retrieved document excerpt reference returned with a chat response
type Source struct {
	DocumentID DocumentID `json:"documentId"`
	Filename   string     `json:"filename"`
	Confidence float64    `json:"confidence"`
}

type TokenUsage struct {
	Prompt   int `json:"prompt"`
	Response int `json:"response"`
	Total    int `json:"total"`
}

type ChatResponse struct {
	Response          string             `json:"response"`
	Suggestions       []string           `json:"suggestions"`
	FollowUpQuestions []string           `json:"followUpQuestions"`
	Sources           []*Source          `json:"sources"`
	Confidence        float64            `json:"confidence"`
	ConceptSuggestion *ConceptSuggestion `json:"conceptSuggestion,omitempty"`
	Tokens            TokenUsage         `json:"tokens"`
	ConversationID    ConversationID     `json:"conversationId,omitempty"`
}
