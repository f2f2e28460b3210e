package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/supportmesh/core"
)

// ScriptedResponder returns canned verdicts in order. Once the script is
// exhausted it keeps returning the last verdict.
type ScriptedResponder struct {
	mu      sync.Mutex
	script  []*core.Verdict
	calls   int
	lastMsg string
}

// NewScriptedResponder builds a responder that plays back the given verdicts.
func NewScriptedResponder(verdicts ...*core.Verdict) *ScriptedResponder {
	return &ScriptedResponder{script: verdicts}
}

// Generate implements core.Responder.
func (r *ScriptedResponder) Generate(_ context.Context, message string, _ []core.Message) (*core.Verdict, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastMsg = message
	idx := r.calls
	r.calls++

	if len(r.script) == 0 {
		return nil, fmt.Errorf("no scripted verdicts")
	}
	if idx >= len(r.script) {
		idx = len(r.script) - 1
	}
	return r.script[idx], nil
}

// Calls returns how many times Generate was invoked.
func (r *ScriptedResponder) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// LastMessage returns the most recent message passed to Generate.
func (r *ScriptedResponder) LastMessage() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastMsg
}

// FailingResponder always returns an error from Generate.
type FailingResponder struct{}

// Generate implements core.Responder.
func (FailingResponder) Generate(context.Context, string, []core.Message) (*core.Verdict, error) {
	return nil, fmt.Errorf("model unavailable")
}

// GatedResponder blocks inside Generate until Open is called, letting tests
// interleave other engine operations while a model call is in flight.
type GatedResponder struct {
	verdict *core.Verdict
	entered chan struct{}
	gate    chan struct{}
	once    sync.Once
}

// NewGatedResponder builds a responder that will return verdict once released.
func NewGatedResponder(verdict *core.Verdict) *GatedResponder {
	return &GatedResponder{
		verdict: verdict,
		entered: make(chan struct{}, 16),
		gate:    make(chan struct{}),
	}
}

// Generate implements core.Responder. It signals Entered, then blocks until
// Open is called or the context is done.
func (r *GatedResponder) Generate(ctx context.Context, _ string, _ []core.Message) (*core.Verdict, error) {
	r.entered <- struct{}{}
	select {
	case <-r.gate:
		return r.verdict, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Entered receives one signal per call that reached Generate.
func (r *GatedResponder) Entered() <-chan struct{} {
	return r.entered
}

// Open releases all pending and future Generate calls. Idempotent.
func (r *GatedResponder) Open() {
	r.once.Do(func() { close(r.gate) })
}
