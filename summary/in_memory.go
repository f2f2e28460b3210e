// Package summary houses implementations of core.SummaryStore, the sink for
// chat summaries and satisfaction feedback once a conversation ends. The
// core keeps no durable state; these stores are where transcripts go to die.
package summary

import (
	"context"
	"sync"

	"github.com/hupe1980/supportmesh/core"
)

// InMemoryStore is a volatile core.SummaryStore suited for tests and demos.
type InMemoryStore struct {
	mu        sync.Mutex
	summaries []core.ChatSummary
	feedback  []core.Feedback
}

// NewInMemoryStore constructs an empty in-memory summary store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// SaveSummary appends the chat summary.
func (s *InMemoryStore) SaveSummary(_ context.Context, sum core.ChatSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries = append(s.summaries, sum)
	return nil
}

// SaveFeedback appends the survey feedback.
func (s *InMemoryStore) SaveFeedback(_ context.Context, fb core.Feedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feedback = append(s.feedback, fb)
	return nil
}

// Summaries returns a defensive copy of the stored summaries.
func (s *InMemoryStore) Summaries() []core.ChatSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.ChatSummary, len(s.summaries))
	copy(out, s.summaries)
	return out
}

// Feedback returns a defensive copy of the stored feedback.
func (s *InMemoryStore) Feedback() []core.Feedback {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Feedback, len(s.feedback))
	copy(out, s.feedback)
	return out
}
