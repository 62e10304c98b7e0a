package chat

import (
	"context"
	"errors"
	"time"

	"github.com/m-mizutani/cygnet/pkg/adapter"
	"github.com/m-mizutani/cygnet/pkg/model"
	"github.com/m-mizutani/cygnet/pkg/repository"
	"github.com/m-mizutani/cygnet/pkg/service/history"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

const (
	defaultTimeout        = 60 * time.Second
	defaultRetrievalLimit = 10
)

// UseCase orchestrates a chat turn: history, retrieval context, LLM call, and
// response assembly. External failures never escape Chat; they degrade to the
// apology response so the API contract always holds.
type UseCase struct {
	gemini  adapter.Gemini
	repo    repository.Repository
	history *history.Store

	timeout        time.Duration
	retrievalLimit int
}

type Option func(*UseCase)

// WithTimeout sets the per-call deadline applied to LLM and retrieval calls
func WithTimeout(d time.Duration) Option {
	return func(u *UseCase) {
		if d > 0 {
			u.timeout = d
		}
	}
}

// WithRetrievalLimit sets how many chunks retrieval may contribute to a prompt
func WithRetrievalLimit(n int) Option {
	return func(u *UseCase) {
		if n > 0 {
			u.retrievalLimit = n
		}
	}
}

func New(gemini adapter.Gemini, repo repository.Repository, hist *history.Store, opts ...Option) *UseCase {
	u := &UseCase{
		gemini:         gemini,
		repo:           repo,
		history:        hist,
		timeout:        defaultTimeout,
		retrievalLimit: defaultRetrievalLimit,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// History exposes the conversation store for serve-mode maintenance (sweeper)
func (u *UseCase) History() *history.Store {
	return u.history
}

// Clear removes a conversation's history and reports whether it existed
func (u *UseCase) Clear(id model.ConversationID) bool {
	return u.history.Clear(id)
}

// generate invokes the LLM under the per-call deadline. Deadline expiry is
// reported as model.ErrDeadline so callers can tell timeouts from transport
// failures.
func (u *UseCase) generate(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	resp, err := u.gemini.GenerateContent(ctx, contents, config)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, goerr.Wrap(model.ErrDeadline, "llm call exceeded deadline",
				goerr.V("timeout", u.timeout), goerr.V("cause", err))
		}
		return nil, err
	}
	return resp, nil
}

// embed computes the query embedding under the per-call deadline
func (u *UseCase) embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	resp, err := u.gemini.Embedding(ctx, text)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, goerr.Wrap(model.ErrDeadline, "embedding call exceeded deadline",
				goerr.V("timeout", u.timeout), goerr.V("cause", err))
		}
		return nil, err
	}

	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, goerr.New("embedding response is empty")
	}
	return resp.Embeddings[0].Values, nil
}

// responseText flattens the first candidate's text parts
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", goerr.New("invalid response structure from gemini")
	}

	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		text += part.Text
	}
	if text == "" {
		return "", goerr.New("empty response from gemini")
	}
	return text, nil
}
