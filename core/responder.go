package core

import "context"

// Outcome classifies an AI responder verdict.
type Outcome string

const (
	// OutcomeAnswer means the responder produced a grounded answer.
	OutcomeAnswer Outcome = "answer"
	// OutcomeHandoffOffer means the responder detected handoff intent
	// (purchase interest, frustration, explicit request) and wants to offer
	// a human agent.
	OutcomeHandoffOffer Outcome = "handoff_offer"
	// OutcomeNoKnowledge means the knowledge base had nothing relevant.
	// The routing engine treats it exactly like OutcomeHandoffOffer.
	OutcomeNoKnowledge Outcome = "no_knowledge"
	// OutcomeError means the provider call failed; the engine degrades to an
	// apology plus handoff offer rather than surfacing the failure.
	OutcomeError Outcome = "error"
)

// Verdict is the structured result of one AI responder call.
type Verdict struct {
	Outcome    Outcome  `json:"outcome"`
	Text       string   `json:"text"`
	Sources    []string `json:"sources,omitempty"`
	Intent     string   `json:"intent,omitempty"`
	Category   string   `json:"category,omitempty"`
	Confidence float64  `json:"confidence,omitempty"`
}

// OffersHandoff reports whether the verdict should trigger the handoff
// offer dialog.
func (v *Verdict) OffersHandoff() bool {
	return v.Outcome == OutcomeHandoffOffer || v.Outcome == OutcomeNoKnowledge
}

// Responder generates an AI reply for a customer message given the
// conversation so far. Calls may block on network I/O; the routing engine
// invokes Generate outside its lock and re-validates session state when the
// verdict arrives.
type Responder interface {
	Generate(ctx context.Context, message string, history []Message) (*Verdict, error)
}

// ContextProvider supplies retrieved document context for a customer
// message. Vector search itself is an external system; responder adapters
// only splice the returned passages into their prompt.
type ContextProvider interface {
	Retrieve(ctx context.Context, query string) ([]Passage, error)
}

// Passage is one retrieved knowledge-base snippet.
type Passage struct {
	Source string  `json:"source"`
	Text   string  `json:"text"`
	Score  float64 `json:"score,omitempty"`
}
