package chat

import (
	"bytes"
	"context"
	_ "embed"
	"strings"
	"text/template"

	"github.com/m-mizutani/cygnet/pkg/model"
	"github.com/m-mizutani/cygnet/pkg/service/respond"
	"github.com/m-mizutani/cygnet/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

//go:embed prompt/chat.md
var chatPromptRaw string

var chatPromptTmpl = template.Must(template.New("chat").Parse(chatPromptRaw))

const (
	systemPrompt = "You are an AI assistant for event planning and concept development."

	// apologyResponse replaces the LLM output whenever an external dependency
	// fails; the chat contract is "always return a well-formed response"
	apologyResponse = "I'm sorry, I encountered an error while processing your request. Please try again."

	retrievalConfidence = 0.9
)

// Chat runs one conversation turn. It never returns an error for external
// failures; those are logged and answered with the apology response. Only
// input validation can fail the call.
func (u *UseCase) Chat(ctx context.Context, req *model.ChatRequest) (*model.ChatResponse, error) {
	logger := logging.From(ctx)

	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = model.NewConversationID()
	}

	if err := u.history.Add(conversationID, model.RoleUser, req.Message); err != nil {
		return nil, err
	}

	display, pairs := u.history.Formatted(conversationID)
	if len(pairs) == 0 && req.Context != nil && len(req.Context.PreviousMessages) > 0 {
		pairs = req.Context.PreviousMessages
		display = formatPairs(pairs) + "\nUser: " + req.Message
	}

	answer, sources, usage := u.converse(ctx, req, display)
	if answer == "" {
		answer = apologyResponse
		sources = nil
	}

	resp := respond.Create(ctx, answer, sources)
	resp.ConversationID = conversationID
	if usage != nil {
		resp.Tokens = model.TokenUsage{
			Prompt:   int(usage.PromptTokenCount),
			Response: int(usage.CandidatesTokenCount),
			Total:    int(usage.TotalTokenCount),
		}
	}

	if err := u.history.Add(conversationID, model.RoleAssistant, resp.Response); err != nil {
		return nil, err
	}

	logger.Info("chat turn completed",
		"conversation_id", conversationID,
		"sources", len(resp.Sources),
		"tokens", resp.Tokens.Total)

	return resp, nil
}

// converse retrieves context and calls the LLM, returning the raw answer
// text, retrieval sources, and token usage when reported. Any failure is
// logged and reported as an empty answer; the caller substitutes the apology.
func (u *UseCase) converse(ctx context.Context, req *model.ChatRequest, chatHistory string) (string, []*model.Source, *genai.GenerateContentResponseUsageMetadata) {
	logger := logging.From(ctx)

	contextBlock := "No specific context available."
	var sources []*model.Source

	if req.Context != nil && req.Context.ConceptID != "" {
		block, retrieved, err := u.retrieve(ctx, req.Context.ConceptID, req.Message)
		if err != nil {
			logger.Error("retrieval failed", "error", err, "concept_id", req.Context.ConceptID)
			return "", nil, nil
		}
		if block != "" {
			contextBlock = block
			sources = retrieved
		} else {
			contextBlock = "No specific documents available for this concept."
		}
	}

	prompt, err := buildChatPrompt(req, contextBlock, chatHistory)
	if err != nil {
		logger.Error("failed to build chat prompt", "error", err)
		return "", nil, nil
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, ""),
	}
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	resp, err := u.generate(ctx, contents, config)
	if err != nil {
		logger.Error("llm call failed", "error", err)
		return "", nil, nil
	}

	text, err := responseText(resp)
	if err != nil {
		logger.Error("llm returned unusable response", "error", err)
		return "", nil, nil
	}

	return text, sources, resp.UsageMetadata
}

// retrieve embeds the question and searches the chunk repository for the
// concept's documents. An empty block means the concept has no indexed chunks.
func (u *UseCase) retrieve(ctx context.Context, conceptID model.ConceptID, question string) (string, []*model.Source, error) {
	embedding, err := u.embed(ctx, question)
	if err != nil {
		return "", nil, goerr.Wrap(err, "failed to embed question")
	}

	chunks, err := u.repo.SearchChunks(ctx, conceptID, embedding, u.retrievalLimit)
	if err != nil {
		return "", nil, goerr.Wrap(err, "failed to search chunks")
	}
	if len(chunks) == 0 {
		return "", nil, nil
	}

	var buf strings.Builder
	var sources []*model.Source
	seen := map[model.DocumentID]bool{}

	for _, chunk := range chunks {
		buf.WriteString(chunk.Content)
		buf.WriteString("\n---\n")

		if !seen[chunk.DocumentID] {
			seen[chunk.DocumentID] = true
			sources = append(sources, &model.Source{
				DocumentID: chunk.DocumentID,
				Filename:   chunk.Filename,
				Confidence: retrievalConfidence,
			})
		}
	}

	return buf.String(), sources, nil
}

func buildChatPrompt(req *model.ChatRequest, contextBlock, chatHistory string) (string, error) {
	data := map[string]any{
		"Context":     contextBlock,
		"ChatHistory": chatHistory,
		"Question":    req.Message,
	}
	if req.Context != nil {
		data["ConceptTitle"] = req.Context.ConceptTitle
		data["ConceptDescription"] = req.Context.ConceptDescription
		data["EventDetails"] = req.Context.EventDetails
	}

	var buf bytes.Buffer
	if err := chatPromptTmpl.Execute(&buf, data); err != nil {
		return "", goerr.Wrap(err, "failed to execute chat prompt template")
	}
	return buf.String(), nil
}

func formatPairs(pairs []model.MessagePair) string {
	var lines []string
	for _, pair := range pairs {
		lines = append(lines, "User: "+pair.User, "Assistant: "+pair.Assistant)
	}
	return strings.Join(lines, "\n")
}
