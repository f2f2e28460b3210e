package routing_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/supportmesh/agent"
	"github.com/hupe1980/supportmesh/core"
	"github.com/hupe1980/supportmesh/intent"
	"github.com/hupe1980/supportmesh/internal/testutil"
	"github.com/hupe1980/supportmesh/queue"
	"github.com/hupe1980/supportmesh/routing"
	"github.com/hupe1980/supportmesh/session"
	"github.com/hupe1980/supportmesh/summary"
)

type fixture struct {
	engine    *routing.Engine
	sessions  *session.Registry
	agents    *agent.Registry
	queue     *queue.FIFO
	summaries *summary.InMemoryStore
	recorder  *intent.InMemoryRecorder
}

func newFixture(t *testing.T, optFns ...func(o *routing.Options)) *fixture {
	t.Helper()

	f := &fixture{
		sessions:  session.NewRegistry(),
		agents:    agent.NewRegistry(),
		queue:     queue.NewFIFO(),
		summaries: summary.NewInMemoryStore(),
		recorder:  intent.NewInMemoryRecorder(100),
	}

	opts := []func(o *routing.Options){
		routing.WithSessions(f.sessions),
		routing.WithAgents(f.agents),
		routing.WithQueue(f.queue),
		routing.WithSummaries(f.summaries),
		routing.WithRecorder(f.recorder),
	}
	opts = append(opts, optFns...)

	f.engine = routing.New(opts...)
	t.Cleanup(f.engine.Shutdown)
	return f
}

// queueForHuman walks a session through the degraded handoff offer, the
// acceptance and the contact form so it ends up queued. The fixture must
// have no responder configured, which makes every step synchronous.
func queueForHuman(t *testing.T, f *fixture, sessionID string, conn *testutil.FakeConn) {
	t.Helper()

	f.engine.CustomerConnect(sessionID, conn)
	f.engine.CustomerMessage(sessionID, "I want to talk to a human")
	require.True(t, conn.HasCustomerEvent(core.EvHandoffOffer))

	f.engine.CustomerHandoffResponse(sessionID, true)
	require.True(t, conn.HasCustomerEvent(core.EvInfoRequest))

	f.engine.CustomerInfo(sessionID, core.CustomerInfo{Name: "Ana", Email: "ana@example.com", Country: "PT"})
}

// connectAgent joins an agent with a fresh live connection.
func connectAgent(f *fixture, id, name string) *testutil.FakeConn {
	conn := testutil.NewFakeConn()
	f.engine.AgentConnect(id, name, "agent", conn)
	return conn
}

func TestCustomerConnect(t *testing.T) {
	t.Run("fresh session gets status push", func(t *testing.T) {
		f := newFixture(t)
		conn := testutil.NewFakeConn()

		f.engine.CustomerConnect("s1", conn)

		require.Equal(t, 1, f.engine.SessionCount())
		evs := conn.CustomerEvents()
		require.Len(t, evs, 1)
		assert.Equal(t, core.EvSessionStatus, evs[0].Type)
		require.NotNil(t, evs[0].HasHuman)
		assert.False(t, *evs[0].HasHuman)
		assert.Empty(t, evs[0].History)
	})

	t.Run("reconnect restores history and tells the agent", func(t *testing.T) {
		f := newFixture(t)
		customer := testutil.NewFakeConn()
		agentConn := connectAgent(f, "a1", "Sam")

		queueForHuman(t, f, "s1", customer)
		f.engine.AgentAccept("a1", "s1")
		f.engine.CustomerDisconnect("s1", customer)

		fresh := testutil.NewFakeConn()
		f.engine.CustomerConnect("s1", fresh)

		evs := fresh.CustomerEvents()
		require.Len(t, evs, 1)
		assert.Equal(t, core.EvSessionStatus, evs[0].Type)
		require.NotNil(t, evs[0].HasHuman)
		assert.True(t, *evs[0].HasHuman)
		assert.Equal(t, "Sam", evs[0].AgentName)
		assert.NotEmpty(t, evs[0].History)
		assert.True(t, agentConn.HasAgentEvent(core.EvCustomerReconnected))
	})
}

func TestAIReply(t *testing.T) {
	t.Run("answer verdict reaches the customer", func(t *testing.T) {
		responder := testutil.NewScriptedResponder(&core.Verdict{
			Outcome:    core.OutcomeAnswer,
			Text:       "Resets happen in account settings.",
			Sources:    []string{"kb/42"},
			Intent:     "password_reset",
			Confidence: 0.93,
		})
		f := newFixture(t, routing.WithResponder(responder))
		conn := testutil.NewFakeConn()

		f.engine.CustomerConnect("s1", conn)
		f.engine.CustomerMessage("s1", "how do I reset my password?")

		require.Eventually(t, func() bool {
			return conn.HasCustomerEvent(core.EvAIReply)
		}, time.Second, 5*time.Millisecond)

		var reply core.CustomerEvent
		for _, ev := range conn.CustomerEvents() {
			if ev.Type == core.EvAIReply {
				reply = ev
			}
		}
		assert.Equal(t, "Resets happen in account settings.", reply.Text)
		assert.Equal(t, []string{"kb/42"}, reply.Sources)

		s := f.sessions.Get("s1")
		require.NotNil(t, s)
		transcript := s.TranscriptCopy()
		require.Len(t, transcript, 2)
		assert.Equal(t, core.RoleCustomer, transcript[0].Role)
		assert.Equal(t, core.RoleAssistant, transcript[1].Role)

		require.Eventually(t, func() bool {
			return f.recorder.Len() == 1
		}, time.Second, 5*time.Millisecond)
		rec := f.recorder.Records()[0]
		assert.Equal(t, "password_reset", rec.Intent)
		assert.Equal(t, string(core.OutcomeAnswer), rec.ResponseType)
	})

	t.Run("transcript alternates over several exchanges", func(t *testing.T) {
		responder := testutil.NewScriptedResponder(&core.Verdict{
			Outcome: core.OutcomeAnswer,
			Text:    "Happy to help.",
		})
		f := newFixture(t, routing.WithResponder(responder))
		conn := testutil.NewFakeConn()

		f.engine.CustomerConnect("s1", conn)
		for i, text := range []string{"first question", "second question", "third question"} {
			f.engine.CustomerMessage("s1", text)
			want := (i + 1) * 2
			require.Eventually(t, func() bool {
				return len(f.sessions.Get("s1").TranscriptCopy()) == want
			}, time.Second, 5*time.Millisecond)
		}

		transcript := f.sessions.Get("s1").TranscriptCopy()
		require.Len(t, transcript, 6)
		for i, m := range transcript {
			if i%2 == 0 {
				assert.Equal(t, core.RoleCustomer, m.Role)
			} else {
				assert.Equal(t, core.RoleAssistant, m.Role)
			}
		}
	})

	t.Run("handoff verdict sets the pending offer", func(t *testing.T) {
		responder := testutil.NewScriptedResponder(&core.Verdict{
			Outcome: core.OutcomeHandoffOffer,
			Text:    "Would you like to talk to a colleague?",
		})
		f := newFixture(t, routing.WithResponder(responder))
		conn := testutil.NewFakeConn()

		f.engine.CustomerConnect("s1", conn)
		f.engine.CustomerMessage("s1", "I am furious about my bill")

		require.Eventually(t, func() bool {
			return conn.HasCustomerEvent(core.EvHandoffOffer)
		}, time.Second, 5*time.Millisecond)
		assert.True(t, f.sessions.Get("s1").PendingOffer)
	})

	t.Run("missing responder degrades to handoff offer", func(t *testing.T) {
		f := newFixture(t)
		conn := testutil.NewFakeConn()

		f.engine.CustomerConnect("s1", conn)
		f.engine.CustomerMessage("s1", "hello?")

		assert.True(t, conn.HasCustomerEvent(core.EvHandoffOffer))
		assert.True(t, f.sessions.Get("s1").PendingOffer)
	})

	t.Run("responder failure degrades to handoff offer", func(t *testing.T) {
		f := newFixture(t, routing.WithResponder(testutil.FailingResponder{}))
		conn := testutil.NewFakeConn()

		f.engine.CustomerConnect("s1", conn)
		f.engine.CustomerMessage("s1", "hello?")

		require.Eventually(t, func() bool {
			return conn.HasCustomerEvent(core.EvHandoffOffer)
		}, time.Second, 5*time.Millisecond)
		assert.False(t, conn.HasCustomerEvent(core.EvAIReply))
	})

	t.Run("saturated limiter degrades immediately", func(t *testing.T) {
		gated := testutil.NewGatedResponder(&core.Verdict{Outcome: core.OutcomeAnswer, Text: "late"})
		f := newFixture(t,
			routing.WithResponder(gated),
			routing.WithConfig(routing.Config{MaxResponderCalls: 1}),
		)
		first := testutil.NewFakeConn()
		second := testutil.NewFakeConn()

		f.engine.CustomerConnect("s1", first)
		f.engine.CustomerConnect("s2", second)

		f.engine.CustomerMessage("s1", "question one")
		<-gated.Entered()

		f.engine.CustomerMessage("s2", "question two")
		assert.True(t, second.HasCustomerEvent(core.EvHandoffOffer))

		gated.Open()
		require.Eventually(t, func() bool {
			return first.HasCustomerEvent(core.EvAIReply)
		}, time.Second, 5*time.Millisecond)
	})
}

func TestVerdictRecheck(t *testing.T) {
	t.Run("dropped when a human joined mid-call", func(t *testing.T) {
		gated := testutil.NewGatedResponder(&core.Verdict{Outcome: core.OutcomeAnswer, Text: "late answer"})
		f := newFixture(t, routing.WithResponder(gated))
		conn := testutil.NewFakeConn()

		f.engine.CustomerConnect("s1", conn)
		f.engine.CustomerMessage("s1", "anyone there?")
		<-gated.Entered()

		f.sessions.MarkHumanJoined("s1", "a1")
		gated.Open()

		assert.Never(t, func() bool {
			return conn.HasCustomerEvent(core.EvAIReply)
		}, 200*time.Millisecond, 10*time.Millisecond)
	})

	t.Run("dropped when the session ended mid-call", func(t *testing.T) {
		gated := testutil.NewGatedResponder(&core.Verdict{Outcome: core.OutcomeAnswer, Text: "late answer"})
		f := newFixture(t, routing.WithResponder(gated))
		conn := testutil.NewFakeConn()

		f.engine.CustomerConnect("s1", conn)
		f.engine.CustomerMessage("s1", "anyone there?")
		<-gated.Entered()

		f.engine.CustomerEnd("s1")
		gated.Open()

		assert.Never(t, func() bool {
			return conn.HasCustomerEvent(core.EvAIReply)
		}, 200*time.Millisecond, 10*time.Millisecond)
	})
}

func TestHandoffFlow(t *testing.T) {
	t.Run("accept opens the contact form, submission queues", func(t *testing.T) {
		f := newFixture(t)
		agentConn := connectAgent(f, "a1", "Sam")
		conn := testutil.NewFakeConn()

		queueForHuman(t, f, "s1", conn)

		require.Equal(t, 1, f.engine.QueueLen())
		assert.Equal(t, core.PhaseQueued, f.sessions.Get("s1").Phase)

		var queued core.CustomerEvent
		for _, ev := range conn.CustomerEvents() {
			if ev.Type == core.EvQueued {
				queued = ev
			}
		}
		assert.Equal(t, 1, queued.Position)

		var pending core.AgentEvent
		for _, ev := range agentConn.AgentEvents() {
			if ev.Type == core.EvPendingRequest {
				pending = ev
			}
		}
		assert.Equal(t, "s1", pending.SessionID)
		assert.Equal(t, 1, pending.Position)
		assert.Contains(t, pending.Preview, "I want to talk to a human")
		require.NotNil(t, pending.Customer)
		assert.Equal(t, "Ana", pending.Customer.Name)
	})

	t.Run("decline returns to AI handling", func(t *testing.T) {
		f := newFixture(t)
		connectAgent(f, "a1", "Sam")
		conn := testutil.NewFakeConn()

		f.engine.CustomerConnect("s1", conn)
		f.engine.CustomerMessage("s1", "humans please")
		f.engine.CustomerHandoffResponse("s1", false)

		s := f.sessions.Get("s1")
		assert.False(t, s.PendingOffer)
		assert.False(t, s.AwaitingInfo)
		assert.False(t, conn.HasCustomerEvent(core.EvInfoRequest))
		assert.Equal(t, 0, f.engine.QueueLen())
	})

	t.Run("response without pending offer is ignored", func(t *testing.T) {
		f := newFixture(t)
		conn := testutil.NewFakeConn()

		f.engine.CustomerConnect("s1", conn)
		f.engine.CustomerHandoffResponse("s1", true)

		assert.False(t, conn.HasCustomerEvent(core.EvInfoRequest))
	})

	t.Run("no live agents means no queueing", func(t *testing.T) {
		f := newFixture(t)
		conn := testutil.NewFakeConn()

		f.engine.CustomerConnect("s1", conn)
		f.engine.CustomerMessage("s1", "humans please")
		f.engine.CustomerHandoffResponse("s1", true)
		f.engine.CustomerInfo("s1", core.CustomerInfo{Name: "Ana"})

		assert.True(t, conn.HasCustomerEvent(core.EvNoAgents))
		assert.False(t, conn.HasCustomerEvent(core.EvQueued))
		assert.Equal(t, 0, f.engine.QueueLen())
	})

	t.Run("queue positions follow arrival order", func(t *testing.T) {
		f := newFixture(t)
		connectAgent(f, "a1", "Sam")

		first := testutil.NewFakeConn()
		second := testutil.NewFakeConn()
		queueForHuman(t, f, "s1", first)
		queueForHuman(t, f, "s2", second)

		assert.Equal(t, 1, f.queue.Position("s1"))
		assert.Equal(t, 2, f.queue.Position("s2"))

		var queued core.CustomerEvent
		for _, ev := range second.CustomerEvents() {
			if ev.Type == core.EvQueued {
				queued = ev
			}
		}
		assert.Equal(t, 2, queued.Position)
	})
}

func TestAgentAccept(t *testing.T) {
	t.Run("assigns the session and notifies everyone", func(t *testing.T) {
		f := newFixture(t)
		samConn := connectAgent(f, "a1", "Sam")
		kimConn := connectAgent(f, "a2", "Kim")
		conn := testutil.NewFakeConn()
		queueForHuman(t, f, "s1", conn)

		f.engine.AgentAccept("a1", "s1")

		s := f.sessions.Get("s1")
		assert.True(t, s.HasHuman)
		assert.Equal(t, "a1", s.AgentID)
		assert.Equal(t, core.PhaseHumanHandling, s.Phase)
		assert.Equal(t, 0, f.engine.QueueLen())

		var joined core.CustomerEvent
		for _, ev := range conn.CustomerEvents() {
			if ev.Type == core.EvAgentJoined {
				joined = ev
			}
		}
		assert.Equal(t, "Sam", joined.AgentName)

		var assigned core.AgentEvent
		for _, ev := range samConn.AgentEvents() {
			if ev.Type == core.EvSessionAssigned {
				assigned = ev
			}
		}
		assert.Equal(t, "s1", assigned.SessionID)
		assert.NotEmpty(t, assigned.Transcript)
		require.NotNil(t, assigned.Customer)
		assert.Equal(t, "Ana", assigned.Customer.Name)

		assert.True(t, kimConn.HasAgentEvent(core.EvRequestTaken))
		assert.False(t, samConn.HasAgentEvent(core.EvRequestTaken))
	})

	t.Run("second accept loses the race", func(t *testing.T) {
		f := newFixture(t)
		connectAgent(f, "a1", "Sam")
		kimConn := connectAgent(f, "a2", "Kim")
		conn := testutil.NewFakeConn()
		queueForHuman(t, f, "s1", conn)

		f.engine.AgentAccept("a1", "s1")
		f.engine.AgentAccept("a2", "s1")

		var rejected core.AgentEvent
		for _, ev := range kimConn.AgentEvents() {
			if ev.Type == core.EvAcceptRejected {
				rejected = ev
			}
		}
		assert.Equal(t, "already_taken", rejected.Reason)
		assert.Equal(t, "a1", f.sessions.Get("s1").AgentID)

		joined := 0
		for _, ev := range conn.CustomerEvents() {
			if ev.Type == core.EvAgentJoined {
				joined++
			}
		}
		assert.Equal(t, 1, joined)
	})

	t.Run("busy agent cannot claim a second session", func(t *testing.T) {
		f := newFixture(t)
		samConn := connectAgent(f, "a1", "Sam")
		first := testutil.NewFakeConn()
		second := testutil.NewFakeConn()
		queueForHuman(t, f, "s1", first)
		queueForHuman(t, f, "s2", second)

		f.engine.AgentAccept("a1", "s1")
		f.engine.AgentAccept("a1", "s2")

		var rejected core.AgentEvent
		for _, ev := range samConn.AgentEvents() {
			if ev.Type == core.EvAcceptRejected {
				rejected = ev
			}
		}
		assert.Equal(t, "agent_busy", rejected.Reason)
		assert.Equal(t, "s2", rejected.SessionID)

		// The first assignment stays intact on both sides.
		assert.Equal(t, "s1", f.agents.Get("a1").SessionID)
		assert.True(t, f.sessions.Get("s1").HasHuman)
		assert.False(t, f.sessions.Get("s2").HasHuman)
		assert.Equal(t, 1, f.queue.Position("s2"))

		// Ending the first chat frees the agent for the second.
		f.engine.AgentEnd("a1", "s1")
		f.engine.AgentAccept("a1", "s2")
		assert.Equal(t, "s2", f.agents.Get("a1").SessionID)
		assert.True(t, f.sessions.Get("s2").HasHuman)
	})

	t.Run("unknown session is rejected", func(t *testing.T) {
		f := newFixture(t)
		samConn := connectAgent(f, "a1", "Sam")

		f.engine.AgentAccept("a1", "nope")

		var rejected core.AgentEvent
		for _, ev := range samConn.AgentEvents() {
			if ev.Type == core.EvAcceptRejected {
				rejected = ev
			}
		}
		assert.Equal(t, "not_found", rejected.Reason)
	})

	t.Run("fresh agent sees the pending queue on connect", func(t *testing.T) {
		f := newFixture(t)
		connectAgent(f, "a1", "Sam")
		conn := testutil.NewFakeConn()
		queueForHuman(t, f, "s1", conn)

		late := connectAgent(f, "a2", "Kim")

		var pending core.AgentEvent
		for _, ev := range late.AgentEvents() {
			if ev.Type == core.EvPendingRequest {
				pending = ev
			}
		}
		assert.Equal(t, "s1", pending.SessionID)
		assert.Equal(t, 1, pending.Position)
	})
}

func TestHumanRelay(t *testing.T) {
	t.Run("messages flow both ways", func(t *testing.T) {
		f := newFixture(t)
		samConn := connectAgent(f, "a1", "Sam")
		conn := testutil.NewFakeConn()
		queueForHuman(t, f, "s1", conn)
		f.engine.AgentAccept("a1", "s1")

		f.engine.AgentMessage("a1", "s1", "Hi, Sam here.")
		var agentMsg core.CustomerEvent
		for _, ev := range conn.CustomerEvents() {
			if ev.Type == core.EvAgentMessage {
				agentMsg = ev
			}
		}
		assert.Equal(t, "Hi, Sam here.", agentMsg.Text)
		assert.Equal(t, "Sam", agentMsg.AgentName)

		f.engine.CustomerMessage("s1", "thanks Sam")
		var customerMsg core.AgentEvent
		for _, ev := range samConn.AgentEvents() {
			if ev.Type == core.EvCustomerMessage {
				customerMsg = ev
			}
		}
		assert.Equal(t, "thanks Sam", customerMsg.Text)
		assert.Equal(t, "s1", customerMsg.SessionID)

		transcript := f.sessions.Get("s1").TranscriptCopy()
		roles := make([]core.Role, 0, len(transcript))
		for _, m := range transcript {
			roles = append(roles, m.Role)
		}
		assert.Contains(t, roles, core.RoleAgent)
	})

	t.Run("unassigned agent cannot speak into a session", func(t *testing.T) {
		f := newFixture(t)
		connectAgent(f, "a1", "Sam")
		connectAgent(f, "a2", "Kim")
		conn := testutil.NewFakeConn()
		queueForHuman(t, f, "s1", conn)
		f.engine.AgentAccept("a1", "s1")

		f.engine.AgentMessage("a2", "s1", "let me in")

		for _, ev := range conn.CustomerEvents() {
			if ev.Type == core.EvAgentMessage {
				assert.NotEqual(t, "let me in", ev.Text)
			}
		}
	})
}

func TestEndChat(t *testing.T) {
	t.Run("customer end evicts and requests a survey", func(t *testing.T) {
		f := newFixture(t)
		conn := testutil.NewFakeConn()
		f.engine.CustomerConnect("s1", conn)
		f.engine.CustomerMessage("s1", "never mind")

		f.engine.CustomerEnd("s1")

		var ended core.CustomerEvent
		for _, ev := range conn.CustomerEvents() {
			if ev.Type == core.EvChatEnded {
				ended = ev
			}
		}
		assert.Equal(t, core.EndReasonCustomer, ended.Reason)
		assert.True(t, conn.HasCustomerEvent(core.EvSurveyRequest))
		assert.Equal(t, 0, f.engine.SessionCount())

		require.Eventually(t, func() bool {
			return len(f.summaries.Summaries()) == 1
		}, time.Second, 5*time.Millisecond)
		assert.Equal(t, core.EndReasonCustomer, f.summaries.Summaries()[0].Reason)
	})

	t.Run("agent end releases the agent for the next chat", func(t *testing.T) {
		f := newFixture(t)
		samConn := connectAgent(f, "a1", "Sam")
		conn := testutil.NewFakeConn()
		queueForHuman(t, f, "s1", conn)
		f.engine.AgentAccept("a1", "s1")

		f.engine.AgentEnd("a1", "s1")

		var ended core.CustomerEvent
		for _, ev := range conn.CustomerEvents() {
			if ev.Type == core.EvChatEnded {
				ended = ev
			}
		}
		assert.Equal(t, core.EndReasonAgent, ended.Reason)
		assert.True(t, samConn.HasAgentEvent(core.EvSessionEnded))
		assert.Equal(t, 0, f.engine.SessionCount())

		a := f.agents.Get("a1")
		require.NotNil(t, a)
		assert.Equal(t, core.AgentOnline, a.Status)
		assert.Empty(t, a.SessionID)

		next := testutil.NewFakeConn()
		queueForHuman(t, f, "s2", next)
		f.engine.AgentAccept("a1", "s2")
		assert.True(t, f.sessions.Get("s2").HasHuman)
	})

	t.Run("summary carries the transcript and agent", func(t *testing.T) {
		f := newFixture(t)
		connectAgent(f, "a1", "Sam")
		conn := testutil.NewFakeConn()
		queueForHuman(t, f, "s1", conn)
		f.engine.AgentAccept("a1", "s1")
		f.engine.AgentMessage("a1", "s1", "resolved!")

		f.engine.AgentEnd("a1", "s1")

		require.Eventually(t, func() bool {
			return len(f.summaries.Summaries()) == 1
		}, time.Second, 5*time.Millisecond)
		sum := f.summaries.Summaries()[0]
		assert.Equal(t, "a1", sum.AgentID)
		assert.Equal(t, "Sam", sum.AgentName)
		assert.NotEmpty(t, sum.Transcript)
		require.NotNil(t, sum.Customer)
		assert.Equal(t, "Ana", sum.Customer.Name)
	})
}

func TestSurvey(t *testing.T) {
	t.Run("feedback is recorded after the chat ended", func(t *testing.T) {
		f := newFixture(t)
		conn := testutil.NewFakeConn()
		f.engine.CustomerConnect("s1", conn)
		f.engine.CustomerEnd("s1")

		f.engine.CustomerSurvey("s1", 4, "quick and helpful")

		require.Eventually(t, func() bool {
			return len(f.summaries.Feedback()) == 1
		}, time.Second, 5*time.Millisecond)
		fb := f.summaries.Feedback()[0]
		assert.Equal(t, "s1", fb.SessionID)
		assert.Equal(t, 4, fb.Rating)
		assert.Equal(t, "quick and helpful", fb.Comment)
	})

	t.Run("survey submitted while the agent ends the chat", func(t *testing.T) {
		f := newFixture(t)
		connectAgent(f, "a1", "Sam")
		conn := testutil.NewFakeConn()
		queueForHuman(t, f, "s1", conn)
		f.engine.AgentAccept("a1", "s1")

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			f.engine.AgentEnd("a1", "s1")
		}()
		go func() {
			defer wg.Done()
			f.engine.CustomerSurvey("s1", 5, "Sam was great")
		}()
		wg.Wait()

		require.Eventually(t, func() bool {
			return len(f.summaries.Feedback()) == 1
		}, time.Second, 5*time.Millisecond)
		fb := f.summaries.Feedback()[0]
		assert.Equal(t, "s1", fb.SessionID)
		assert.Equal(t, 5, fb.Rating)
	})
}

func TestTimers(t *testing.T) {
	t.Run("inactivity dequeues and warns", func(t *testing.T) {
		f := newFixture(t, routing.WithConfig(routing.Config{
			InactivityWarn: 30 * time.Millisecond,
			IdleTimeout:    time.Minute,
		}))
		agentConn := connectAgent(f, "a1", "Sam")
		conn := testutil.NewFakeConn()
		queueForHuman(t, f, "s1", conn)
		require.Equal(t, 1, f.engine.QueueLen())

		require.Eventually(t, func() bool {
			return conn.HasCustomerEvent(core.EvIdleWarning)
		}, time.Second, 5*time.Millisecond)
		assert.Equal(t, 0, f.engine.QueueLen())
		assert.True(t, agentConn.HasAgentEvent(core.EvQueueUpdate))
		assert.Equal(t, 1, f.engine.SessionCount())
	})

	t.Run("customer messages re-arm the warning", func(t *testing.T) {
		f := newFixture(t, routing.WithConfig(routing.Config{
			InactivityWarn: 250 * time.Millisecond,
			IdleTimeout:    time.Minute,
		}))
		conn := testutil.NewFakeConn()
		f.engine.CustomerConnect("s1", conn)

		time.Sleep(150 * time.Millisecond)
		f.engine.CustomerMessage("s1", "still here")
		time.Sleep(150 * time.Millisecond)

		// The original timer would have fired by now; the message pushed it.
		assert.False(t, conn.HasCustomerEvent(core.EvIdleWarning))

		require.Eventually(t, func() bool {
			return conn.HasCustomerEvent(core.EvIdleWarning)
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("idle timeout evicts without a survey", func(t *testing.T) {
		f := newFixture(t, routing.WithConfig(routing.Config{
			InactivityWarn: 10 * time.Millisecond,
			IdleTimeout:    40 * time.Millisecond,
		}))
		conn := testutil.NewFakeConn()
		f.engine.CustomerConnect("s1", conn)

		require.Eventually(t, func() bool {
			return f.engine.SessionCount() == 0
		}, time.Second, 5*time.Millisecond)

		var ended core.CustomerEvent
		for _, ev := range conn.CustomerEvents() {
			if ev.Type == core.EvChatEnded {
				ended = ev
			}
		}
		assert.Equal(t, core.EndReasonIdleTimeout, ended.Reason)
		assert.False(t, conn.HasCustomerEvent(core.EvSurveyRequest))
	})
}

func TestAgentGrace(t *testing.T) {
	t.Run("reconnect within grace restores the assignment", func(t *testing.T) {
		f := newFixture(t, routing.WithConfig(routing.Config{AgentGrace: time.Minute}))
		samConn := connectAgent(f, "a1", "Sam")
		conn := testutil.NewFakeConn()
		queueForHuman(t, f, "s1", conn)
		f.engine.AgentAccept("a1", "s1")

		f.engine.AgentDisconnect("a1", samConn)
		assert.True(t, conn.HasCustomerEvent(core.EvAgentDisconnected))
		require.NotNil(t, f.agents.Get("a1"))

		fresh := testutil.NewFakeConn()
		f.engine.AgentConnect("a1", "Sam", "agent", fresh)

		var assigned core.AgentEvent
		for _, ev := range fresh.AgentEvents() {
			if ev.Type == core.EvSessionAssigned {
				assigned = ev
			}
		}
		assert.Equal(t, "s1", assigned.SessionID)
		assert.NotEmpty(t, assigned.Transcript)
		assert.True(t, conn.HasCustomerEvent(core.EvAgentReconnected))
		assert.Equal(t, 1, f.engine.SessionCount())
	})

	t.Run("grace expiry ends the chat", func(t *testing.T) {
		f := newFixture(t, routing.WithConfig(routing.Config{AgentGrace: 30 * time.Millisecond}))
		samConn := connectAgent(f, "a1", "Sam")
		conn := testutil.NewFakeConn()
		queueForHuman(t, f, "s1", conn)
		f.engine.AgentAccept("a1", "s1")

		f.engine.AgentDisconnect("a1", samConn)

		require.Eventually(t, func() bool {
			return f.engine.SessionCount() == 0
		}, time.Second, 5*time.Millisecond)

		var ended core.CustomerEvent
		for _, ev := range conn.CustomerEvents() {
			if ev.Type == core.EvChatEnded {
				ended = ev
			}
		}
		assert.Equal(t, core.EndReasonAgentTimeout, ended.Reason)
		assert.True(t, conn.HasCustomerEvent(core.EvSurveyRequest))
		assert.Nil(t, f.agents.Get("a1"))
	})

	t.Run("unassigned disconnect drops the record", func(t *testing.T) {
		f := newFixture(t)
		samConn := connectAgent(f, "a1", "Sam")

		f.engine.AgentDisconnect("a1", samConn)

		assert.Nil(t, f.agents.Get("a1"))
	})

	t.Run("stale disconnect after reconnection is ignored", func(t *testing.T) {
		f := newFixture(t, routing.WithConfig(routing.Config{AgentGrace: 30 * time.Millisecond}))
		old := connectAgent(f, "a1", "Sam")
		conn := testutil.NewFakeConn()
		queueForHuman(t, f, "s1", conn)
		f.engine.AgentAccept("a1", "s1")

		fresh := testutil.NewFakeConn()
		f.engine.AgentConnect("a1", "Sam", "agent", fresh)

		// The old socket's read loop reports its close only now.
		f.engine.AgentDisconnect("a1", old)

		a := f.agents.Get("a1")
		require.NotNil(t, a)
		assert.True(t, a.ConnAlive())
		assert.Equal(t, "s1", a.SessionID)

		// The grace timer must not have been armed: the chat stays alive
		// well past the grace window.
		assert.Never(t, func() bool {
			return f.engine.SessionCount() == 0
		}, 150*time.Millisecond, 10*time.Millisecond)
		assert.False(t, conn.HasCustomerEvent(core.EvChatEnded))
	})
}

func TestCustomerDisconnect(t *testing.T) {
	t.Run("queued session is dequeued", func(t *testing.T) {
		f := newFixture(t)
		agentConn := connectAgent(f, "a1", "Sam")
		conn := testutil.NewFakeConn()
		queueForHuman(t, f, "s1", conn)
		require.Equal(t, 1, f.engine.QueueLen())

		f.engine.CustomerDisconnect("s1", conn)

		assert.Equal(t, 0, f.engine.QueueLen())
		assert.Equal(t, core.PhaseAIHandling, f.sessions.Get("s1").Phase)
		assert.True(t, agentConn.HasAgentEvent(core.EvQueueUpdate))
		assert.Equal(t, 1, f.engine.SessionCount())
	})

	t.Run("human-handled session survives for reconnection", func(t *testing.T) {
		f := newFixture(t)
		samConn := connectAgent(f, "a1", "Sam")
		conn := testutil.NewFakeConn()
		queueForHuman(t, f, "s1", conn)
		f.engine.AgentAccept("a1", "s1")

		f.engine.CustomerDisconnect("s1", conn)

		assert.True(t, samConn.HasAgentEvent(core.EvCustomerDisconnected))
		assert.Equal(t, 1, f.engine.SessionCount())
		assert.True(t, f.sessions.Get("s1").HasHuman)

		require.Eventually(t, func() bool {
			return len(f.summaries.Summaries()) == 1
		}, time.Second, 5*time.Millisecond)
		assert.Equal(t, core.EndReasonDisconnected, f.summaries.Summaries()[0].Reason)
	})

	t.Run("abandoned session is evicted by the idle timer", func(t *testing.T) {
		f := newFixture(t, routing.WithConfig(routing.Config{
			InactivityWarn: 10 * time.Millisecond,
			IdleTimeout:    40 * time.Millisecond,
		}))
		conn := testutil.NewFakeConn()
		f.engine.CustomerConnect("s1", conn)

		f.engine.CustomerDisconnect("s1", conn)

		require.Eventually(t, func() bool {
			return f.engine.SessionCount() == 0
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("stale disconnect after reconnection is ignored", func(t *testing.T) {
		f := newFixture(t)
		samConn := connectAgent(f, "a1", "Sam")
		old := testutil.NewFakeConn()
		queueForHuman(t, f, "s1", old)
		f.engine.AgentAccept("a1", "s1")

		fresh := testutil.NewFakeConn()
		f.engine.CustomerConnect("s1", fresh)

		// The old socket's read loop reports its close only now.
		f.engine.CustomerDisconnect("s1", old)

		s := f.sessions.Get("s1")
		require.NotNil(t, s)
		assert.NotNil(t, s.Conn)
		assert.False(t, samConn.HasAgentEvent(core.EvCustomerDisconnected))
		assert.Empty(t, f.summaries.Summaries())

		f.engine.AgentMessage("a1", "s1", "still with me?")
		assert.True(t, fresh.HasCustomerEvent(core.EvAgentMessage))
	})
}
