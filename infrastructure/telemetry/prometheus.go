// Package telemetry provides concrete ports.MetricsCollector and
// ports.Tracer implementations backed by Prometheus and OpenTelemetry.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector implements ports.MetricsCollector by registering a
// small set of stage-latency and merge-round metrics with a Prometheus
// registerer.
type PrometheusCollector struct {
	stageStarted  *prometheus.CounterVec
	stageLatency  *prometheus.HistogramVec
	mergeRounds   *prometheus.CounterVec
	mergePartials *prometheus.HistogramVec
	mergeLatency  *prometheus.HistogramVec
}

// NewPrometheusCollector registers its metrics with reg and returns the
// collector. reg is typically prometheus.DefaultRegisterer.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	c := &PrometheusCollector{
		stageStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flowbatch",
			Name:      "stage_started_total",
			Help:      "Number of times a physical stage began executing.",
		}, []string{"stage"}),
		stageLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "flowbatch",
			Name:      "stage_duration_seconds",
			Help:      "Wall-clock duration of one stage processing all of its partitions.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		mergeRounds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flowbatch",
			Name:      "merge_rounds_total",
			Help:      "Number of associative-tree merge groups run for a barrier, counted once per group in each round.",
		}, []string{"stage"}),
		mergePartials: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "flowbatch",
			Name:      "merge_round_partials",
			Help:      "Number of partials folded into one merge group.",
			Buckets:   []float64{1, 2, 4, 8, 16, 32, 64, 128},
		}, []string{"stage"}),
		mergeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "flowbatch",
			Name:      "merge_round_duration_seconds",
			Help:      "Wall-clock duration of one merge group.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
	}
	reg.MustRegister(c.stageStarted, c.stageLatency, c.mergeRounds, c.mergePartials, c.mergeLatency)
	return c
}

func (c *PrometheusCollector) StageStarted(stage string) {
	c.stageStarted.WithLabelValues(stage).Inc()
}

func (c *PrometheusCollector) StageCompleted(stage string, durationSeconds float64) {
	c.stageLatency.WithLabelValues(stage).Observe(durationSeconds)
}

func (c *PrometheusCollector) MergeRound(stage string, partialsIn int, durationSeconds float64) {
	c.mergeRounds.WithLabelValues(stage).Inc()
	c.mergePartials.WithLabelValues(stage).Observe(float64(partialsIn))
	c.mergeLatency.WithLabelValues(stage).Observe(durationSeconds)
}
