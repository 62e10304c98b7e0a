package chat_test

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/cygnet/pkg/adapter"
	"github.com/m-mizutani/cygnet/pkg/model"
	"github.com/m-mizutani/cygnet/pkg/repository"
	"github.com/m-mizutani/cygnet/pkg/service/history"
	"github.com/m-mizutani/cygnet/pkg/usecase/chat"
	"github.com/m-mizutani/gt"
)

func newTestUseCase(gemini adapter.Gemini) (*chat.UseCase, *history.Store, *repository.Memory) {
	hist := history.New()
	repo := repository.NewMemory()
	return chat.New(gemini, repo, hist), hist, repo
}

func TestInit(t *testing.T) {
	gemini := adapter.NewMockGemini("Welcome aboard! Let's plan your summit together.")
	uc, hist, _ := newTestUseCase(gemini)

	result, err := uc.Init(context.Background(), "u1", "Tech Summit")
	gt.NoError(t, err)
	gt.V(t, result.Message).Equal("Welcome aboard! Let's plan your summit together.")
	gt.V(t, string(result.ConversationID)).NotEqual("")
	gt.A(t, result.Suggestions).Length(3)

	// the welcome message seeds the conversation
	messages := hist.Messages(result.ConversationID)
	gt.A(t, messages).Length(1)
	gt.V(t, messages[0].Role).Equal(model.RoleAssistant)
}

func TestInitValidation(t *testing.T) {
	uc, _, _ := newTestUseCase(adapter.NewMockGemini())

	_, err := uc.Init(context.Background(), "", "Tech Summit")
	gt.Error(t, err)

	_, err = uc.Init(context.Background(), "u1", "")
	gt.Error(t, err)
}

func TestInitFallbackOnLLMFailure(t *testing.T) {
	gemini := adapter.NewMockGemini()
	gemini.Err = errors.New("backend unavailable")
	uc, hist, _ := newTestUseCase(gemini)

	result, err := uc.Init(context.Background(), "u1", "Tech Summit")
	gt.NoError(t, err)
	gt.V(t, result.Message).Equal("Welcome, u1! I'm here to help you develop your event concept 'Tech Summit'. Let's get started!")
	gt.A(t, result.Suggestions).Length(4)
	gt.V(t, result.Suggestions[0]).Equal("Generate an initial agenda")

	gt.A(t, hist.Messages(result.ConversationID)).Length(1)
}

func TestChat(t *testing.T) {
	gemini := adapter.NewMockGemini(
		"A keynote is a great anchor.\n```json\n{\"title\": \"Tech Summit\", \"agenda\": [{\"time\": \"09:00\", \"title\": \"Opening Keynote\", \"type\": \"KEYNOTE\", \"duration\": 45}]}\n```",
	)
	uc, hist, _ := newTestUseCase(gemini)

	resp, err := uc.Chat(context.Background(), &model.ChatRequest{
		Message: "Add a keynote to the agenda",
	})
	gt.NoError(t, err)
	gt.V(t, string(resp.ConversationID)).NotEqual("")
	gt.V(t, resp.Response).Equal("A keynote is a great anchor.")
	gt.A(t, resp.Suggestions).Length(3)
	gt.A(t, resp.FollowUpQuestions).Length(3)

	gt.V(t, resp.ConceptSuggestion).NotNil()
	gt.V(t, resp.ConceptSuggestion.Title).Equal("Tech Summit")
	gt.A(t, resp.ConceptSuggestion.Agenda).Length(1)
	gt.V(t, resp.ConceptSuggestion.Agenda[0].Type).Equal(model.AgendaTypeKeynote)

	// the agenda is present, so the first suggestion is the refine variant
	gt.V(t, resp.Suggestions[0]).Equal("Can you refine the agenda with more detailed sessions?")

	// no usage metadata from the mock; placeholder token counts apply
	gt.V(t, resp.Tokens.Total).Equal(250)

	// user turn plus cleaned assistant turn are recorded
	messages := hist.Messages(resp.ConversationID)
	gt.A(t, messages).Length(2)
	gt.V(t, messages[0].Content).Equal("Add a keynote to the agenda")
	gt.V(t, messages[1].Content).Equal("A keynote is a great anchor.")
}

func TestChatContinuesConversation(t *testing.T) {
	gemini := adapter.NewMockGemini("First answer.", "Second answer.")
	uc, hist, _ := newTestUseCase(gemini)

	first, err := uc.Chat(context.Background(), &model.ChatRequest{Message: "First question"})
	gt.NoError(t, err)

	second, err := uc.Chat(context.Background(), &model.ChatRequest{
		Message:        "Second question",
		ConversationID: first.ConversationID,
	})
	gt.NoError(t, err)
	gt.V(t, second.ConversationID).Equal(first.ConversationID)

	gt.A(t, hist.Messages(first.ConversationID)).Length(4)
}

func TestChatApologyOnLLMFailure(t *testing.T) {
	gemini := adapter.NewMockGemini()
	gemini.Err = errors.New("backend unavailable")
	uc, _, _ := newTestUseCase(gemini)

	resp, err := uc.Chat(context.Background(), &model.ChatRequest{Message: "Hello"})
	gt.NoError(t, err)
	gt.V(t, resp.Response).Equal("I'm sorry, I encountered an error while processing your request. Please try again.")
	gt.A(t, resp.Sources).Length(0)
	gt.A(t, resp.Suggestions).Length(3)
}

func TestChatWithRetrieval(t *testing.T) {
	gemini := adapter.NewMockGemini("The venue document suggests a capacity of 500.")
	uc, _, repo := newTestUseCase(gemini)

	conceptID := model.NewConceptID()
	docID := model.NewDocumentID()
	embedResp, err := gemini.Embedding(context.Background(), "venue capacity")
	gt.NoError(t, err)

	gt.NoError(t, repo.PutChunks(context.Background(), []*model.Chunk{
		{
			DocumentID: docID,
			ConceptID:  conceptID,
			Filename:   "venue.pdf",
			Seq:        0,
			Content:    "The venue holds up to 500 attendees.",
			Embedding:  firestore.Vector32(embedResp.Embeddings[0].Values),
		},
	}))

	resp, err := uc.Chat(context.Background(), &model.ChatRequest{
		Message: "What capacity does the venue support?",
		Context: &model.ChatContext{
			ConceptID:    conceptID,
			ConceptTitle: "Tech Summit",
		},
	})
	gt.NoError(t, err)
	gt.A(t, resp.Sources).Length(1)
	gt.V(t, resp.Sources[0].Filename).Equal("venue.pdf")
	gt.V(t, resp.Sources[0].DocumentID).Equal(docID)
	gt.V(t, resp.Sources[0].Confidence).Equal(0.9)
}

func TestClear(t *testing.T) {
	gemini := adapter.NewMockGemini("An answer.")
	uc, _, _ := newTestUseCase(gemini)

	resp, err := uc.Chat(context.Background(), &model.ChatRequest{Message: "Hello"})
	gt.NoError(t, err)

	gt.V(t, uc.Clear(resp.ConversationID)).Equal(true)
	gt.V(t, uc.Clear(resp.ConversationID)).Equal(false)
}
