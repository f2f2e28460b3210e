// Package redis provides a core.SummaryStore backed by Redis. Summaries and
// feedback are stored as JSON values and indexed per day so operational
// tooling can page through recent conversations.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hupe1980/supportmesh/core"
	"github.com/redis/go-redis/v9"
)

// Options configures the Redis summary store.
type Options struct {
	// KeyPrefix namespaces all keys written by the store.
	KeyPrefix string
	// TTL bounds how long summaries are retained. Zero disables expiry.
	TTL time.Duration
}

// Store implements core.SummaryStore on top of a Redis client.
type Store struct {
	client *redis.Client
	opts   Options
}

// NewStore wraps an existing Redis client.
func NewStore(client *redis.Client, optFns ...func(o *Options)) *Store {
	opts := Options{KeyPrefix: "supportmesh", TTL: 30 * 24 * time.Hour}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Store{client: client, opts: opts}
}

// SaveSummary writes the summary under a per-session key and pushes the key
// onto the day index.
func (s *Store) SaveSummary(ctx context.Context, sum core.ChatSummary) error {
	body, err := json.Marshal(sum)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	key := fmt.Sprintf("%s:summary:%s:%d", s.opts.KeyPrefix, sum.SessionID, sum.EndedAt.UnixNano())
	if err := s.client.Set(ctx, key, body, s.opts.TTL).Err(); err != nil {
		return fmt.Errorf("redis set summary: %w", err)
	}
	index := fmt.Sprintf("%s:summaries:%s", s.opts.KeyPrefix, sum.EndedAt.UTC().Format("2006-01-02"))
	if err := s.client.LPush(ctx, index, key).Err(); err != nil {
		return fmt.Errorf("redis index summary: %w", err)
	}
	if s.opts.TTL > 0 {
		s.client.Expire(ctx, index, s.opts.TTL)
	}
	return nil
}

// SaveFeedback appends the survey feedback to the per-day feedback list.
func (s *Store) SaveFeedback(ctx context.Context, fb core.Feedback) error {
	body, err := json.Marshal(fb)
	if err != nil {
		return fmt.Errorf("marshal feedback: %w", err)
	}
	key := fmt.Sprintf("%s:feedback:%s", s.opts.KeyPrefix, fb.SubmittedAt.UTC().Format("2006-01-02"))
	if err := s.client.LPush(ctx, key, body).Err(); err != nil {
		return fmt.Errorf("redis push feedback: %w", err)
	}
	if s.opts.TTL > 0 {
		s.client.Expire(ctx, key, s.opts.TTL)
	}
	return nil
}
