package respond

import (
	"context"
	"regexp"
	"strings"

	"github.com/m-mizutani/cygnet/pkg/model"
	"github.com/m-mizutani/cygnet/pkg/service/extract"
)

// Placeholder confidence and token counts; the orchestrator overwrites the
// token counts when the backend reports real usage.
const (
	placeholderConfidence   = 0.9
	placeholderPromptTokens = 100
	placeholderReplyTokens  = 150
)

var (
	fencedJSONPtn = regexp.MustCompile("(?s)```json.*?```")
	fencedAnyPtn  = regexp.MustCompile("(?s)```.*?```")
	bareObjectPtn = regexp.MustCompile(`\{(?:[^{}]|(?:\{(?:[^{}]|(?:\{[^{}]*\}))*\}))*\}`)
	examplePtn    = regexp.MustCompile(`Example:\s*`)
	preamblePtn   = regexp.MustCompile(`Here(?:'s| is) (?:a|the) (?:summary|concept|JSON structure)[^:]*:\s*`)
	blankLinesPtn = regexp.MustCompile(`\n{2,}`)
)

// Create assembles the user-facing chat response: extracts the concept
// suggestion, strips machine-readable blocks from the display text, and
// derives follow-up suggestions and questions from the concept's completeness.
func Create(ctx context.Context, responseText string, sources []*model.Source) *model.ChatResponse {
	if sources == nil {
		sources = []*model.Source{}
	}

	suggestion := extract.Extract(ctx, responseText)

	return &model.ChatResponse{
		Response:          StripBlocks(responseText),
		Suggestions:       Suggestions(suggestion, 3),
		FollowUpQuestions: FollowUpQuestions(suggestion, 3),
		Sources:           sources,
		Confidence:        placeholderConfidence,
		ConceptSuggestion: suggestion,
		Tokens: model.TokenUsage{
			Prompt:   placeholderPromptTokens,
			Response: placeholderReplyTokens,
			Total:    placeholderPromptTokens + placeholderReplyTokens,
		},
	}
}

// StripBlocks removes JSON/code blocks and templated preamble phrases from the
// response text. Stable under re-application: stripping already-cleaned text
// is a no-op.
func StripBlocks(text string) string {
	text = fencedJSONPtn.ReplaceAllString(text, "")
	text = fencedAnyPtn.ReplaceAllString(text, "")
	text = bareObjectPtn.ReplaceAllString(text, "")
	text = examplePtn.ReplaceAllString(text, "")
	text = preamblePtn.ReplaceAllString(text, "")
	text = blankLinesPtn.ReplaceAllString(text, "\n")
	return strings.TrimSpace(text)
}

// fallbackSuggestions is consumed in declared order when missing-field checks
// produce fewer than the requested number of items
var fallbackSuggestions = []string{
	"How can I make this event more interactive?",
	"What technologies should we use for this event?",
	"How can we promote this event effectively?",
	"What are the key success metrics for this type of event?",
	"How can we incorporate networking opportunities?",
	"What sponsorship opportunities would be appropriate?",
	"How should we handle registration and check-in?",
	"What post-event activities would you recommend?",
}

var fallbackQuestions = []string{
	"What is your budget for this event?",
	"When are you planning to hold this event?",
	"What are your main objectives for this event?",
	"Are there any specific themes or topics you want to focus on?",
	"Do you have any preferred speakers in mind?",
	"What has worked well for similar events in the past?",
	"What challenges do you anticipate for this event?",
	"How will you measure the success of this event?",
}

// Suggestions derives up to max follow-up prompts from the suggestion's
// populated sub-fields: a "refine" variant when a field is present, a
// "propose" variant when absent. Field-derived items always precede fallback
// padding.
func Suggestions(suggestion *model.ConceptSuggestion, max int) []string {
	var items []string

	if len(suggestion.Agenda) == 0 {
		items = append(items, "Can you suggest an agenda for this event?")
	} else {
		items = append(items, "Can you refine the agenda with more detailed sessions?")
	}

	if len(suggestion.Speakers) == 0 {
		items = append(items, "Who would be good speakers for this event?")
	} else {
		items = append(items, "Can you suggest additional speakers with expertise in this field?")
	}

	if suggestion.Pricing == nil {
		items = append(items, "What pricing structure would work for this event?")
	} else {
		items = append(items, "How can I optimize the pricing strategy for maximum attendance?")
	}

	return pad(items, fallbackSuggestions, max)
}

// FollowUpQuestions derives up to max questions keyed on event-details
// completeness, padded from the fixed fallback list.
func FollowUpQuestions(suggestion *model.ConceptSuggestion, max int) []string {
	var items []string
	details := suggestion.EventDetails

	if details == nil || details.TargetAudience == "" {
		items = append(items, "Who is the target audience for this event?")
	}
	if details == nil || details.Duration == "" {
		items = append(items, "How long should this event be?")
	}
	if details == nil || details.Location == "" {
		items = append(items, "Where would be an ideal location for this event?")
	}

	return pad(items, fallbackQuestions, max)
}

func pad(items, fallback []string, max int) []string {
	for _, item := range fallback {
		if len(items) >= max {
			break
		}
		items = append(items, item)
	}
	if len(items) > max {
		items = items[:max]
	}
	return items
}
