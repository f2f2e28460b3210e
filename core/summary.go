package core

import (
	"context"
	"time"
)

// End reasons recorded when a session leaves human or AI handling.
const (
	EndReasonCustomer     = "customer_ended"
	EndReasonAgent        = "agent_ended"
	EndReasonAgentTimeout = "agent_timeout"
	EndReasonIdleTimeout  = "idle_timeout"
	EndReasonDisconnected = "customer_disconnected"
)

// ChatSummary is the record handed to persistence when a chat ends. The core
// keeps no durable state; whatever the store does with the summary is out of
// scope.
type ChatSummary struct {
	SessionID  string        `json:"session_id"`
	AgentID    string        `json:"agent_id,omitempty"`
	AgentName  string        `json:"agent_name,omitempty"`
	Reason     string        `json:"reason"`
	Customer   *CustomerInfo `json:"customer,omitempty"`
	Transcript []Message     `json:"transcript"`
	EndedAt    time.Time     `json:"ended_at"`
}

// Feedback is one satisfaction survey result.
type Feedback struct {
	SessionID   string    `json:"session_id"`
	AgentID     string    `json:"agent_id,omitempty"`
	Rating      int       `json:"rating"`
	Comment     string    `json:"comment,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// SummaryStore persists chat summaries and survey feedback. Store failures
// degrade to a log line; they never interrupt routing.
type SummaryStore interface {
	SaveSummary(ctx context.Context, sum ChatSummary) error
	SaveFeedback(ctx context.Context, fb Feedback) error
}
