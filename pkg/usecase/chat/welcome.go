package chat

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"text/template"

	"github.com/m-mizutani/cygnet/pkg/model"
	"github.com/m-mizutani/cygnet/pkg/service/respond"
	"github.com/m-mizutani/cygnet/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

//go:embed prompt/welcome.md
var welcomePromptRaw string

var welcomePromptTmpl = template.Must(template.New("welcome").Parse(welcomePromptRaw))

// initFallbackSuggestions is used when the welcome LLM call fails and there is
// no concept state to derive suggestions from
var initFallbackSuggestions = []string{
	"Generate an initial agenda",
	"Suggest keynote speakers",
	"Upload relevant documents",
	"Define target audience",
}

// InitResult is the outcome of starting a new conversation for a concept
type InitResult struct {
	Message        string               `json:"message"`
	Suggestions    []string             `json:"suggestions"`
	ConversationID model.ConversationID `json:"conversationId"`
}

// Init starts a new conversation: generates a welcome message for the concept,
// mints a conversation ID, and proposes initial suggestions. LLM failure falls
// back to a fixed welcome and suggestion set; Init itself does not fail on
// external errors.
func (u *UseCase) Init(ctx context.Context, userID, conceptTitle string) (*InitResult, error) {
	logger := logging.From(ctx)

	if userID == "" {
		return nil, goerr.New("user ID is required")
	}
	if conceptTitle == "" {
		return nil, goerr.New("concept title is required")
	}

	conversationID := model.NewConversationID()

	message, generated := u.welcome(ctx, userID, conceptTitle)

	var suggestions []string
	if generated {
		suggestions = respond.Suggestions(&model.ConceptSuggestion{
			Title:       conceptTitle,
			Description: message,
		}, 3)
	} else {
		suggestions = initFallbackSuggestions
	}

	// Seed the conversation so the first chat turn sees the welcome
	if err := u.history.Add(conversationID, model.RoleAssistant, message); err != nil {
		return nil, err
	}

	logger.Info("chat initialized",
		"conversation_id", conversationID,
		"concept_title", conceptTitle,
		"llm_welcome", generated)

	return &InitResult{
		Message:        message,
		Suggestions:    suggestions,
		ConversationID: conversationID,
	}, nil
}

// welcome generates the welcome message, reporting whether the LLM produced it
// or the fixed fallback was used
func (u *UseCase) welcome(ctx context.Context, userID, conceptTitle string) (string, bool) {
	logger := logging.From(ctx)

	var buf bytes.Buffer
	if err := welcomePromptTmpl.Execute(&buf, map[string]any{
		"UserName":           userID,
		"ConceptName":        conceptTitle,
		"ConceptDescription": "",
	}); err != nil {
		logger.Error("failed to execute welcome prompt template", "error", err)
		return fallbackWelcome(userID, conceptTitle), false
	}

	contents := []*genai.Content{genai.NewContentFromText(buf.String(), genai.RoleUser)}
	resp, err := u.generate(ctx, contents, &genai.GenerateContentConfig{})
	if err != nil {
		logger.Error("welcome generation failed", "error", err)
		return fallbackWelcome(userID, conceptTitle), false
	}

	text, err := responseText(resp)
	if err != nil {
		logger.Error("welcome response unusable", "error", err)
		return fallbackWelcome(userID, conceptTitle), false
	}

	return text, true
}

func fallbackWelcome(userID, conceptTitle string) string {
	return fmt.Sprintf("Welcome, %s! I'm here to help you develop your event concept '%s'. Let's get started!", userID, conceptTitle)
}
