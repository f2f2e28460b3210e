// Package responder defines shared plumbing for the AI responder adapters:
// prompt assembly from retrieved knowledge-base passages and parsing of the
// model's structured verdict. Concrete providers live in the anthropic and
// openai subpackages behind the core.Responder interface.
package responder

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hupe1980/supportmesh/core"
)

// Info describes a concrete responder implementation.
type Info struct {
	Name     string
	Provider string
}

// DefaultSystemPrompt instructs the model to answer from the provided
// passages only and to emit a JSON verdict the routing engine can parse.
const DefaultSystemPrompt = `You are a customer support assistant. Answer using ONLY the reference passages provided below. Reply with a single JSON object of the form {"outcome":"answer|handoff_offer|no_knowledge","text":"...","intent":"...","category":"...","confidence":0.0}. Use outcome "handoff_offer" when the customer shows purchase interest, frustration, or explicitly asks for a human. Use "no_knowledge" when the passages do not cover the question.`

// BuildSystemPrompt splices retrieved passages under the base instruction.
// With no passages the instruction alone is returned so the model falls back
// to a no_knowledge verdict.
func BuildSystemPrompt(base string, passages []core.Passage) string {
	if base == "" {
		base = DefaultSystemPrompt
	}
	if len(passages) == 0 {
		return base
	}
	var b strings.Builder
	b.WriteString(base)
	b.WriteString("\n\nReference passages:\n")
	for i, p := range passages {
		fmt.Fprintf(&b, "[%d] (%s) %s\n", i+1, p.Source, p.Text)
	}
	return b.String()
}

// Retrieve fetches passages through the optional provider, tolerating both a
// nil provider and retrieval failures: grounding is best-effort and a search
// outage must degrade, not fail, the conversation.
func Retrieve(ctx context.Context, provider core.ContextProvider, query string) []core.Passage {
	if provider == nil {
		return nil
	}
	passages, err := provider.Retrieve(ctx, query)
	if err != nil {
		return nil
	}
	return passages
}

// Sources extracts the distinct source labels of the given passages in order.
func Sources(passages []core.Passage) []string {
	seen := make(map[string]bool, len(passages))
	var out []string
	for _, p := range passages {
		if p.Source == "" || seen[p.Source] {
			continue
		}
		seen[p.Source] = true
		out = append(out, p.Source)
	}
	return out
}

// rawVerdict mirrors the JSON shape the system prompt asks for.
type rawVerdict struct {
	Outcome    string  `json:"outcome"`
	Text       string  `json:"text"`
	Intent     string  `json:"intent"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// ParseVerdict interprets the model output. A well-formed JSON verdict is
// mapped onto core.Verdict; anything else is treated as a plain answer so a
// model that ignores the format still produces a usable reply.
func ParseVerdict(raw string, sources []string) *core.Verdict {
	trimmed := strings.TrimSpace(raw)
	// Models occasionally fence the JSON in markdown.
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	var rv rawVerdict
	if err := json.Unmarshal([]byte(trimmed), &rv); err == nil && rv.Text != "" {
		outcome := core.Outcome(rv.Outcome)
		switch outcome {
		case core.OutcomeAnswer, core.OutcomeHandoffOffer, core.OutcomeNoKnowledge:
		default:
			outcome = core.OutcomeAnswer
		}
		return &core.Verdict{
			Outcome:    outcome,
			Text:       rv.Text,
			Sources:    sources,
			Intent:     rv.Intent,
			Category:   rv.Category,
			Confidence: rv.Confidence,
		}
	}

	return &core.Verdict{Outcome: core.OutcomeAnswer, Text: raw, Sources: sources}
}
