package reporter

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Gauges mirrors queue counts into Prometheus
type Gauges struct {
	reporter *Reporter
	jobs     *prometheus.GaugeVec
}

// NewGauges registers the queue_jobs gauge on reg
func NewGauges(reporter *Reporter, reg prometheus.Registerer) *Gauges {
	return &Gauges{
		reporter: reporter,
		jobs: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "queue_jobs",
			Help: "Current number of jobs per queue and state",
		}, []string{"queue", "state"}),
	}
}

// Refresh reads a fresh snapshot and updates the gauges
func (g *Gauges) Refresh(ctx context.Context) error {
	stats, err := g.reporter.Stats(ctx, "all", false)
	if err != nil {
		return err
	}

	for name, s := range stats {
		g.jobs.WithLabelValues(name, "pending").Set(float64(s.Pending))
		g.jobs.WithLabelValues(name, "reserved").Set(float64(s.Reserved))
		g.jobs.WithLabelValues(name, "failed").Set(float64(s.Failed))
	}

	return nil
}
