package core

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Role identifies the author of a transcript message.
type Role string

const (
	// RoleCustomer is a message typed by the customer in the widget.
	RoleCustomer Role = "customer"
	// RoleAssistant is a message produced by the AI responder.
	RoleAssistant Role = "assistant"
	// RoleAgent is a message typed by a human agent in the dashboard.
	RoleAgent Role = "agent"
	// RoleSystem is a server-generated notice kept in the transcript.
	RoleSystem Role = "system"
)

// Message is one ordered transcript entry. After being appended it should be
// treated as immutable; the timestamp is always server-assigned.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage constructs a message with a fresh ID and UTC timestamp.
func NewMessage(role Role, text string) Message {
	return Message{ID: NewID(), Role: role, Text: text, Timestamp: time.Now().UTC()}
}

// NewID generates a new unique identifier for messages and agent records.
func NewID() string { return uuid.NewString() }

// Preview returns a shortened single-line form of the message text suitable
// for queue broadcasts to agents. max counts runes so truncation never cuts
// through a multi-byte character.
func (m Message) Preview(max int) string {
	text := strings.Join(strings.Fields(m.Text), " ")
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return string(runes[:max]) + "…"
}

// LastCustomerMessage returns the most recent customer-authored entry of a
// transcript, or a zero Message when none exists.
func LastCustomerMessage(transcript []Message) (Message, bool) {
	for i := len(transcript) - 1; i >= 0; i-- {
		if transcript[i].Role == RoleCustomer {
			return transcript[i], true
		}
	}
	return Message{}, false
}

// ConversationHistory filters a transcript down to the roles that carry
// conversational signal for the AI responder (customer, assistant, agent).
// System notices are excluded.
func ConversationHistory(transcript []Message) []Message {
	res := make([]Message, 0, len(transcript))
	for _, m := range transcript {
		if m.Role == RoleSystem {
			continue
		}
		res = append(res, m)
	}
	return res
}
