package observability

import (
	"time"

	"github.com/aretw0/figflow/pkg/writeback"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "figflow"

// Message directions.
const (
	DirectionHostToPanel = "host_to_panel"
	DirectionPanelToHost = "panel_to_host"
)

// Metrics bundles every figflow collector.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	WriteBackStarted  prometheus.Counter
	WriteBackFinished *prometheus.CounterVec
	RunesWritten      prometheus.Counter
	TransformRequests *prometheus.CounterVec
	TransformDuration *prometheus.HistogramVec
	Messages          *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		WriteBackStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "writeback_jobs_started_total",
			Help:      "Total number of write-back jobs started",
		}),
		WriteBackFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "writeback_jobs_finished_total",
			Help:      "Total number of write-back jobs finished, by outcome",
		}, []string{"outcome"}),
		RunesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "writeback_runes_total",
			Help:      "Total number of characters inserted by write-back jobs",
		}),
		TransformRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transform_requests_total",
			Help:      "Total number of transformation requests, by transport and outcome",
		}, []string{"transport", "outcome"}),
		TransformDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transform_duration_seconds",
			Help:      "Duration of transformation requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"transport"}),
		Messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "protocol_messages_total",
			Help:      "Total number of protocol messages, by direction and command",
		}, []string{"direction", "command"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.WriteBackStarted,
			m.WriteBackFinished,
			m.RunesWritten,
			m.TransformRequests,
			m.TransformDuration,
			m.Messages,
		)
	}
	return m
}

// WriteBackHooks returns write-back hooks that feed these metrics, chained before next.
func (m *Metrics) WriteBackHooks(next writeback.Hooks) writeback.Hooks {
	if m == nil {
		return next
	}
	return writeback.Hooks{
		OnStart: func(doc string, total int) {
			m.WriteBackStarted.Inc()
			if next.OnStart != nil {
				next.OnStart(doc, total)
			}
		},
		OnRune: func(doc string, cursor, total int) {
			m.RunesWritten.Inc()
			if next.OnRune != nil {
				next.OnRune(doc, cursor, total)
			}
		},
		OnFinish: func(doc string, outcome writeback.Outcome, err error) {
			m.WriteBackFinished.WithLabelValues(string(outcome)).Inc()
			if next.OnFinish != nil {
				next.OnFinish(doc, outcome, err)
			}
		},
	}
}

// ObserveTransform records one transformation request.
func (m *Metrics) ObserveTransform(transport string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.TransformRequests.WithLabelValues(transport, outcome).Inc()
	m.TransformDuration.WithLabelValues(transport).Observe(elapsed.Seconds())
}

// ObserveMessage records one protocol message.
func (m *Metrics) ObserveMessage(direction, command string) {
	if m == nil {
		return
	}
	if command == "" {
		command = "unknown"
	}
	m.Messages.WithLabelValues(direction, command).Inc()
}
