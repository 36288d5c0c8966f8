package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PollsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "temponest",
		Subsystem: "scheduler",
		Name:      "polls_total",
		Help:      "Number of polling ticks executed.",
	})

	DispatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "temponest",
		Subsystem: "scheduler",
		Name:      "dispatches_total",
		Help:      "Task dispatches by terminal outcome.",
	}, []string{"outcome"})

	DispatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "temponest",
		Subsystem: "scheduler",
		Name:      "dispatch_duration_seconds",
		Help:      "End-to-end duration of one task dispatch.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 14),
	})

	ActiveWorkersGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "temponest",
		Subsystem: "scheduler",
		Name:      "active_workers",
		Help:      "Workers currently dispatching a task.",
	})

	DueBatchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "temponest",
		Subsystem: "scheduler",
		Name:      "due_batch_size",
		Help:      "Number of due tasks fetched per tick.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
	})
)

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
