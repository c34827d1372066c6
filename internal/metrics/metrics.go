// Package metrics records conversation metrics with Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder receives dialogue events.
type Recorder interface {
	ObserveTurn(task, outcome string, duration time.Duration)
	ObserveDispatch(task string, succeeded bool)
	ObserveCorrection(field string, accepted bool)
}

// Nop discards everything.
type Nop struct{}

func (Nop) ObserveTurn(string, string, time.Duration) {}
func (Nop) ObserveDispatch(string, bool)              {}
func (Nop) ObserveCorrection(string, bool)            {}

// PrometheusRecorder implements Recorder with Prometheus collectors.
type PrometheusRecorder struct {
	turnsTotal       *prometheus.CounterVec
	turnDuration     *prometheus.HistogramVec
	dispatchTotal    *prometheus.CounterVec
	correctionsTotal *prometheus.CounterVec
}

// NewPrometheusRecorder registers the collectors on reg.
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	factory := promauto.With(reg)
	return &PrometheusRecorder{
		turnsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assistant_turns_total",
				Help: "Total number of conversation turns by task and outcome",
			},
			[]string{"task", "outcome"},
		),
		turnDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "assistant_turn_duration_seconds",
				Help:    "Duration of conversation turns in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"task"},
		),
		dispatchTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assistant_dispatch_total",
				Help: "Total number of business commands dispatched by task and status",
			},
			[]string{"task", "status"},
		),
		correctionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assistant_corrections_total",
				Help: "Total number of answered name corrections by field and answer",
			},
			[]string{"field", "answer"},
		),
	}
}

// ObserveTurn records a completed turn.
func (p *PrometheusRecorder) ObserveTurn(task, outcome string, duration time.Duration) {
	if task == "" {
		task = "none"
	}
	p.turnsTotal.WithLabelValues(task, outcome).Inc()
	p.turnDuration.WithLabelValues(task).Observe(duration.Seconds())
}

// ObserveDispatch records a command dispatch.
func (p *PrometheusRecorder) ObserveDispatch(task string, succeeded bool) {
	status := "success"
	if !succeeded {
		status = "error"
	}
	p.dispatchTotal.WithLabelValues(task, status).Inc()
}

// ObserveCorrection records the answer to a "did you mean" question.
func (p *PrometheusRecorder) ObserveCorrection(field string, accepted bool) {
	answer := "rejected"
	if accepted {
		answer = "accepted"
	}
	p.correctionsTotal.WithLabelValues(field, answer).Inc()
}
