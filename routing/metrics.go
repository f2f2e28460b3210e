package routing

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type engineMetrics struct {
	activeSessions  prometheus.Gauge
	queueLength     prometheus.Gauge
	aiReplies       prometheus.Counter
	handoffsOffered prometheus.Counter
	handoffsTaken   prometheus.Counter
	acceptRejected  prometheus.Counter
	sessionEnds     *prometheus.CounterVec
}

var (
	metricsOnce sync.Once
	metricsInst *engineMetrics
)

// globalMetrics registers the engine collectors exactly once; multiple
// Engine instances in one process (tests) share them.
func globalMetrics() *engineMetrics {
	metricsOnce.Do(func() {
		metricsInst = newEngineMetrics()
	})
	return metricsInst
}

func newEngineMetrics() *engineMetrics {
	return &engineMetrics{
		activeSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "supportmesh",
			Subsystem: "routing",
			Name:      "active_sessions",
			Help:      "Customer sessions currently held in memory",
		}),
		queueLength: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "supportmesh",
			Subsystem: "routing",
			Name:      "queue_length",
			Help:      "Sessions waiting for a human agent",
		}),
		aiReplies: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "supportmesh",
			Subsystem: "routing",
			Name:      "ai_replies_total",
			Help:      "AI responder verdicts delivered to customers",
		}),
		handoffsOffered: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "supportmesh",
			Subsystem: "routing",
			Name:      "handoffs_offered_total",
			Help:      "Handoff offers shown to customers",
		}),
		handoffsTaken: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "supportmesh",
			Subsystem: "routing",
			Name:      "handoffs_taken_total",
			Help:      "Queued sessions accepted by a human agent",
		}),
		acceptRejected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "supportmesh",
			Subsystem: "routing",
			Name:      "accept_rejected_total",
			Help:      "Accept attempts that lost the claim race",
		}),
		sessionEnds: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "supportmesh",
			Subsystem: "routing",
			Name:      "session_ends_total",
			Help:      "Sessions ended, labeled by reason",
		}, []string{"reason"}),
	}
}

func (e *Engine) syncGauges() {
	e.metrics.activeSessions.Set(float64(e.sessions.Len()))
	e.metrics.queueLength.Set(float64(e.queue.Len()))
}
