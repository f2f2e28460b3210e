// Package intent houses implementations of core.IntentRecorder. Recording is
// fire-and-forget: the routing engine invokes it on a best-effort goroutine
// and drops failures after a log line.
package intent

import (
	"context"
	"sync"

	"github.com/hupe1980/supportmesh/core"
)

// InMemoryRecorder keeps the most recent records in a bounded ring. Suited
// for tests and development setups; production deployments publish to a
// broker (see the amqp subpackage).
type InMemoryRecorder struct {
	mu      sync.Mutex
	records []core.IntentRecord
	cap     int
}

// NewInMemoryRecorder constructs a recorder keeping at most cap records
// (unbounded when cap <= 0).
func NewInMemoryRecorder(cap int) *InMemoryRecorder {
	return &InMemoryRecorder{cap: cap}
}

// Record appends the record, evicting the oldest once the cap is reached.
func (r *InMemoryRecorder) Record(_ context.Context, rec core.IntentRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	if r.cap > 0 && len(r.records) > r.cap {
		r.records = r.records[len(r.records)-r.cap:]
	}
	return nil
}

// Records returns a defensive copy of the retained records.
func (r *InMemoryRecorder) Records() []core.IntentRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]core.IntentRecord, len(r.records))
	copy(out, r.records)
	return out
}

// Len reports the number of retained records.
func (r *InMemoryRecorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}
