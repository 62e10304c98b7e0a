package model

import (
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

type ConceptID string

// NewConceptID generates a new unique ConceptID
func NewConceptID() ConceptID {
	return ConceptID(uuid.New().String())
}

type EventFormat string

const (
	EventFormatPhysical EventFormat = "PHYSICAL"
	EventFormatVirtual  EventFormat = "VIRTUAL"
	EventFormatHybrid   EventFormat = "HYBRID"
)

// Validate checks if the event format is valid
func (f EventFormat) Validate() error {
	switch f {
	case EventFormatPhysical, EventFormatVirtual, EventFormatHybrid:
		return nil
	default:
		return goerr.New("invalid event format", goerr.V("format", f))
	}
}

type AgendaType string

const (
	AgendaTypeKeynote    AgendaType = "KEYNOTE"
	AgendaTypeWorkshop   AgendaType = "WORKSHOP"
	AgendaTypePanel      AgendaType = "PANEL"
	AgendaTypeNetworking AgendaType = "NETWORKING"
	AgendaTypeBreak      AgendaType = "BREAK"
	AgendaTypeLunch      AgendaType = "LUNCH"
)

// Validate checks if the agenda item type is valid
func (t AgendaType) Validate() error {
	switch t {
	case AgendaTypeKeynote, AgendaTypeWorkshop, AgendaTypePanel, AgendaTypeNetworking, AgendaTypeBreak, AgendaTypeLunch:
		return nil
	default:
		return goerr.New("invalid agenda item type", goerr.V("type", t))
	}
}

const (
	// DefaultAgendaDuration is applied when an agenda item omits its duration (minutes)
	DefaultAgendaDuration = 60

	// DefaultCurrency is applied when a pricing block omits its currency
	DefaultCurrency = "USD"

	// DefaultSuggestionTitle is used when no concept JSON is found in a response
	DefaultSuggestionTitle = "Event Concept Suggestion"
)

type EventDetails struct {
	Theme          string      `json:"theme,omitempty"`
	Format         EventFormat `json:"format,omitempty"`
	Capacity       int         `json:"capacity,omitempty"`
	Duration       string      `json:"duration,omitempty"`
	TargetAudience string      `json:"targetAudience,omitempty"`
	Location       string      `json:"location,omitempty"`
}

type AgendaItem struct {
	Time     string     `json:"time,omitempty"`
	Title    string     `json:"title"`
	Type     AgendaType `json:"type"`
	Duration int        `json:"duration"`
}

type Speaker struct {
	Name           string `json:"name"`
	Expertise      string `json:"expertise,omitempty"`
	SuggestedTopic string `json:"suggestedTopic,omitempty"`
}

type Pricing struct {
	Currency  string   `json:"currency"`
	Regular   *float64 `json:"regular,omitempty"`
	EarlyBird *float64 `json:"earlyBird,omitempty"`
	VIP       *float64 `json:"vip,omitempty"`
	Student   *float64 `json:"student,omitempty"`
}

// ConceptSuggestion is the structured event proposal extracted from one LLM
// response. Produced fresh per response, never mutated after construction.
// Empty agenda/speakers are nil, not empty slices.
type ConceptSuggestion struct {
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	EventDetails *EventDetails `json:"eventDetails,omitempty"`
	Agenda       []*AgendaItem `json:"agenda,omitempty"`
	Speakers     []*Speaker    `json:"speakers,omitempty"`
	Pricing      *Pricing      `json:"pricing,omitempty"`
	Notes        string        `json:"notes,omitempty"`
	Reasoning    string        `json:"reasoning,omitempty"`
	Confidence   float64       `json:"confidence"`
}
