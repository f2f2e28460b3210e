package core

import (
	"context"
	"time"
)

// IntentRecord is one analytics entry describing how a customer message was
// handled (intent classification, matched documents, response type).
type IntentRecord struct {
	SessionID    string        `json:"session_id"`
	Message      string        `json:"message"`
	Intent       string        `json:"intent,omitempty"`
	Category     string        `json:"category,omitempty"`
	Confidence   float64       `json:"confidence,omitempty"`
	MatchedDocs  []string      `json:"matched_docs,omitempty"`
	ResponseType string        `json:"response_type"`
	Customer     *CustomerInfo `json:"customer,omitempty"`
	RecordedAt   time.Time     `json:"recorded_at"`
}

// IntentRecorder receives analytics records fire-and-forget. Implementations
// must never block the conversation: failures are logged and dropped.
type IntentRecorder interface {
	Record(ctx context.Context, rec IntentRecord) error
}
