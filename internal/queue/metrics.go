package queue

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	jobEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "queue_job_events_total",
		Help: "Job lifecycle events by queue and kind",
	}, []string{"queue", "event"})

	jobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "queue_job_duration_seconds",
		Help:    "Handler execution time of completed jobs",
		Buckets: prometheus.DefBuckets,
	}, []string{"queue"})
)

// MetricsSink counts events in Prometheus
type MetricsSink struct{}

func (MetricsSink) Emit(_ context.Context, event Event) {
	n := 1
	if event.Count > 0 {
		n = event.Count
	}
	jobEvents.WithLabelValues(event.Queue, string(event.Kind)).Add(float64(n))

	if event.Kind == EventJobCompleted && event.Duration > 0 {
		jobDuration.WithLabelValues(event.Queue).Observe(event.Duration.Seconds())
	}
}
