// Package metrics exposes Prometheus instrumentation for review invocations.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder registers and updates the service metrics. A nil Recorder is valid
// and records nothing, which keeps one-shot CLI runs free of a registry.
type Recorder struct {
	reviews    *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	tokens     prometheus.Counter
	queueDepth prometheus.Gauge
}

// NewRecorder registers the metrics with reg, or with the default registerer
// when reg is nil.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Recorder{
		reviews: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "diff_scout",
			Name:      "reviews_total",
			Help:      "Completed review invocations by outcome.",
		}, []string{"outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "diff_scout",
			Name:      "review_duration_seconds",
			Help:      "End to end review invocation latency.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}, []string{"outcome"}),
		tokens: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "diff_scout",
			Name:      "llm_tokens_total",
			Help:      "Tokens consumed by language model calls.",
		}),
		queueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "diff_scout",
			Name:      "job_queue_depth",
			Help:      "Review jobs waiting for a worker.",
		}),
	}
}

// ObserveReview records one finished invocation.
func (r *Recorder) ObserveReview(outcome string, latency time.Duration, tokens int) {
	if r == nil {
		return
	}
	r.reviews.WithLabelValues(outcome).Inc()
	r.duration.WithLabelValues(outcome).Observe(latency.Seconds())
	if tokens > 0 {
		r.tokens.Add(float64(tokens))
	}
}

// SetQueueDepth tracks the dispatcher backlog.
func (r *Recorder) SetQueueDepth(n int) {
	if r == nil {
		return
	}
	r.queueDepth.Set(float64(n))
}
