package routing

import (
	"context"
	"time"

	"github.com/hupe1980/supportmesh/core"
)

// send writes one frame to a connection, silently skipping dead targets.
// Send failures are logged and swallowed: the reconnection machinery, not
// the send path, is responsible for recovery.
func (e *Engine) send(conn core.Conn, v any, who, id string) {
	if conn == nil || !conn.Alive() {
		e.logger.Debug("send skipped, connection not writable", "target", who, "id", id)
		return
	}
	if err := conn.Send(v); err != nil {
		e.logger.Warn("send failed", "target", who, "id", id, "error", err)
	}
}

func (e *Engine) sendCustomer(s *core.Session, ev core.CustomerEvent) {
	e.send(s.Conn, ev, "customer", s.ID)
}

func (e *Engine) sendAgent(a *core.Agent, ev core.AgentEvent) {
	e.send(a.Conn, ev, "agent", a.ID)
}

// broadcastAgents fans one event out to every agent holding a live
// connection.
func (e *Engine) broadcastAgents(ev core.AgentEvent) {
	for _, a := range e.agents.LiveConns() {
		e.sendAgent(a, ev)
	}
}

// broadcastQueueUpdate tells every live agent the new queue length.
func (e *Engine) broadcastQueueUpdate() {
	n := e.queue.Len()
	e.broadcastAgents(core.AgentEvent{Type: core.EvQueueUpdate, QueueSize: &n})
	e.metrics.queueLength.Set(float64(n))
}

// pendingRequestEvent builds the broadcast frame for a newly queued session:
// position plus a preview of the last customer message.
func (e *Engine) pendingRequestEvent(s *core.Session, position int) core.AgentEvent {
	preview := ""
	if last, ok := core.LastCustomerMessage(s.Transcript); ok {
		preview = last.Preview(e.config.PreviewLength)
	}
	return core.AgentEvent{
		Type:      core.EvPendingRequest,
		SessionID: s.ID,
		Position:  position,
		Preview:   preview,
		Customer:  s.Customer,
	}
}

// recordIntent hands an analytics record to the recorder on a best-effort
// goroutine. Failures never block or fail the conversation.
func (e *Engine) recordIntent(rec core.IntentRecord) {
	if e.recorder == nil {
		return
	}
	rec.RecordedAt = time.Now().UTC()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.recorder.Record(ctx, rec); err != nil {
			e.logger.Warn("intent record dropped", "session_id", rec.SessionID, "error", err)
		}
	}()
}

// persistSummary hands a chat summary to the store on a best-effort
// goroutine.
func (e *Engine) persistSummary(sum core.ChatSummary) {
	if e.summaries == nil {
		e.logger.Debug("summary dropped, no store configured", "session_id", sum.SessionID)
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.summaries.SaveSummary(ctx, sum); err != nil {
			e.logger.Error("summary persist failed", "session_id", sum.SessionID, "error", err)
		}
	}()
}
