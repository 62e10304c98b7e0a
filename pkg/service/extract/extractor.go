package extract

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/m-mizutani/cygnet/pkg/model"
	"github.com/m-mizutani/cygnet/pkg/utils/logging"
)

// extractedConfidence is the fixed confidence attached to extracted suggestions
const extractedConfidence = 0.9

var (
	fencedJSONPtn = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")
	fencedAnyPtn  = regexp.MustCompile("(?s)```\\s*(\\{.*?\\})\\s*```")

	// Balanced-brace object up to 3 nesting levels. LLM concept blocks are
	// object -> section -> item, so 3 levels cover the contract.
	bareObjectPtn = regexp.MustCompile(`\{(?:[^{}]|(?:\{(?:[^{}]|(?:\{[^{}]*\}))*\}))*\}`)
)

// Extract pulls a structured concept suggestion out of free-form LLM response
// text. It never fails: when no parseable JSON is found, the result is a
// minimal suggestion whose description is the raw text.
func Extract(ctx context.Context, text string) *model.ConceptSuggestion {
	data := extractObject(ctx, text)
	if len(data) == 0 {
		return &model.ConceptSuggestion{
			Title:       model.DefaultSuggestionTitle,
			Description: text,
			Confidence:  extractedConfidence,
		}
	}

	return fromObject(data)
}

// extractObject locates a JSON object in the text and parses it, applying the
// repair ladder on parse failure. Returns an empty map when nothing usable is
// found.
func extractObject(ctx context.Context, text string) map[string]any {
	logger := logging.From(ctx)

	raw, where := locate(text)
	if raw == "" {
		logger.Debug("no JSON block found in response text", "length", len(text))
		return nil
	}
	logger.Debug("located JSON candidate", "via", where, "length", len(raw))

	data, repair := parseObject(raw)
	if data == nil {
		logger.Debug("JSON candidate did not parse", "via", where)
		return nil
	}
	if repair != "" {
		logger.Debug("JSON parsed after repair", "repair", repair)
	}

	return data
}

// locate runs the ordered fallback chain: fenced json block, generic fenced
// block starting with '{', then the first balanced-brace object in raw text.
func locate(text string) (raw, where string) {
	if m := fencedJSONPtn.FindStringSubmatch(text); m != nil {
		return m[1], "json fence"
	}
	if m := fencedAnyPtn.FindStringSubmatch(text); m != nil {
		return m[1], "generic fence"
	}
	if m := bareObjectPtn.FindString(text); m != "" {
		return m, "bare object"
	}
	return "", ""
}

// repairs are applied cumulatively, re-attempting a strict parse after each
// one. Order matters: structural fixes first, cosmetic ones last.
var repairs = []struct {
	name string
	fn   func(string) string
}{
	{"strip trailing commas", stripTrailingCommas},
	{"requote single quotes", requoteSingleQuotes},
	{"quote bare keys", quoteBareKeys},
	{"strip stray newlines", stripStrayNewlines},
}

// parseObject attempts a strict JSON parse, then walks the repair ladder, and
// finally tries to salvage an inner object. The second return names the repair
// that succeeded (empty for a strict parse, "salvage" for the last resort).
func parseObject(raw string) (map[string]any, string) {
	if data := tryParse(raw); data != nil {
		return data, ""
	}

	fixed := raw
	for _, repair := range repairs {
		fixed = repair.fn(fixed)
		if data := tryParse(fixed); data != nil {
			return data, repair.name
		}
	}

	if data := salvage(fixed); data != nil {
		return data, "salvage"
	}

	return nil, ""
}

func tryParse(raw string) map[string]any {
	var data map[string]any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil
	}
	return data
}

var (
	trailingCommaObjPtn = regexp.MustCompile(`,\s*}`)
	trailingCommaArrPtn = regexp.MustCompile(`,\s*]`)
	singleQuotedKeyPtn  = regexp.MustCompile(`'([^']*)':`)
	singleQuotedValPtn  = regexp.MustCompile(`:\s*'([^']*)'`)
	bareKeyPtn          = regexp.MustCompile(`([{,])\s*(\w+):`)
	newlineBeforePtn    = regexp.MustCompile(`[\n\r]+\s*(["}\]])`)
)

func stripTrailingCommas(s string) string {
	s = trailingCommaObjPtn.ReplaceAllString(s, "}")
	return trailingCommaArrPtn.ReplaceAllString(s, "]")
}

func requoteSingleQuotes(s string) string {
	s = singleQuotedKeyPtn.ReplaceAllString(s, `"$1":`)
	return singleQuotedValPtn.ReplaceAllString(s, `: "$1"`)
}

func quoteBareKeys(s string) string {
	return bareKeyPtn.ReplaceAllString(s, `$1"$2":`)
}

func stripStrayNewlines(s string) string {
	return newlineBeforePtn.ReplaceAllString(s, "$1")
}

var innerObjectPtn = regexp.MustCompile(`\{[^{}]*\}`)

// salvage scans for any flat inner object that parses to a non-empty map
func salvage(raw string) map[string]any {
	for _, candidate := range innerObjectPtn.FindAllString(raw, -1) {
		if data := tryParse(candidate); len(data) > 0 {
			return data
		}
	}
	return nil
}

func fromObject(data map[string]any) *model.ConceptSuggestion {
	return &model.ConceptSuggestion{
		Title:        str(data, "title"),
		Description:  str(data, "description"),
		EventDetails: eventDetails(obj(data, "eventDetails")),
		Agenda:       agendaItems(arr(data, "agenda")),
		Speakers:     speakers(arr(data, "speakers")),
		Pricing:      pricing(obj(data, "pricing")),
		Notes:        str(data, "notes"),
		Reasoning:    str(data, "reasoning"),
		Confidence:   extractedConfidence,
	}
}

func eventDetails(data map[string]any) *model.EventDetails {
	if len(data) == 0 {
		return nil
	}
	return &model.EventDetails{
		Theme:          str(data, "theme"),
		Format:         model.EventFormat(strings.ToUpper(str(data, "format"))),
		Capacity:       num(data, "capacity", 0),
		Duration:       str(data, "duration"),
		TargetAudience: str(data, "targetAudience"),
		Location:       str(data, "location"),
	}
}

func agendaItems(items []any) []*model.AgendaItem {
	var agenda []*model.AgendaItem
	for _, raw := range items {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}

		itemType := model.AgendaType(strings.ToUpper(str(item, "type")))
		if itemType.Validate() != nil {
			itemType = model.AgendaTypeKeynote
		}

		agenda = append(agenda, &model.AgendaItem{
			Time:     str(item, "time"),
			Title:    str(item, "title"),
			Type:     itemType,
			Duration: num(item, "duration", model.DefaultAgendaDuration),
		})
	}
	return agenda
}

func speakers(items []any) []*model.Speaker {
	var result []*model.Speaker
	for _, raw := range items {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		result = append(result, &model.Speaker{
			Name:           str(item, "name"),
			Expertise:      str(item, "expertise"),
			SuggestedTopic: str(item, "suggestedTopic"),
		})
	}
	return result
}

func pricing(data map[string]any) *model.Pricing {
	if len(data) == 0 {
		return nil
	}

	currency := str(data, "currency")
	if currency == "" {
		currency = model.DefaultCurrency
	}

	return &model.Pricing{
		Currency:  currency,
		Regular:   floatPtr(data, "regular"),
		EarlyBird: floatPtr(data, "earlyBird"),
		VIP:       floatPtr(data, "vip"),
		Student:   floatPtr(data, "student"),
	}
}

func str(data map[string]any, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}

func obj(data map[string]any, key string) map[string]any {
	if v, ok := data[key].(map[string]any); ok {
		return v
	}
	return nil
}

func arr(data map[string]any, key string) []any {
	if v, ok := data[key].([]any); ok {
		return v
	}
	return nil
}

func num(data map[string]any, key string, fallback int) int {
	if v, ok := data[key].(float64); ok {
		return int(v)
	}
	return fallback
}

func floatPtr(data map[string]any, key string) *float64 {
	if v, ok := data[key].(float64); ok {
		return &v
	}
	return nil
}
