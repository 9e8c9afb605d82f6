package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the serving core.
type Metrics struct {
	PredictionsTotal   *prometheus.CounterVec
	PredictionDuration *prometheus.HistogramVec
	CacheOpsTotal      *prometheus.CounterVec
	ModelReloadsTotal  *prometheus.CounterVec
	ActiveModels       *prometheus.GaugeVec
}

// NewMetrics registers the serving collectors on the default registry.
func NewMetrics() *Metrics {
	return &Metrics{
		PredictionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "floodguard",
				Name:      "predictions_total",
				Help:      "Total predictions served, by kind and result.",
			},
			[]string{"kind", "result"},
		),
		PredictionDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "floodguard",
				Name:      "prediction_duration_seconds",
				Help:      "Prediction latency in seconds, by kind.",
				Buckets:   []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"kind"},
		),
		CacheOpsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "floodguard",
				Name:      "cache_operations_total",
				Help:      "Cache lookups by kind and outcome (hit, miss, error).",
			},
			[]string{"kind", "outcome"},
		),
		ModelReloadsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "floodguard",
				Name:      "model_reloads_total",
				Help:      "Model reload attempts by family and result.",
			},
			[]string{"family", "result"},
		),
		ActiveModels: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "floodguard",
				Name:      "model_generation",
				Help:      "Generation counter of the active model handle per family.",
			},
			[]string{"family"},
		),
	}
}

// ObservePrediction records one served prediction.
func (m *Metrics) ObservePrediction(kind string, d time.Duration, cached, failed bool) {
	result := "success"
	switch {
	case failed:
		result = "failure"
	case cached:
		result = "cached"
	}
	m.PredictionsTotal.WithLabelValues(kind, result).Inc()
	if !failed {
		m.PredictionDuration.WithLabelValues(kind).Observe(d.Seconds())
	}
}

// ObserveCache records one cache lookup outcome.
func (m *Metrics) ObserveCache(kind, outcome string) {
	m.CacheOpsTotal.WithLabelValues(kind, outcome).Inc()
}

// ObserveReload records a reload attempt and, on success, the new generation.
func (m *Metrics) ObserveReload(family string, generation uint64, err error) {
	if err != nil {
		m.ModelReloadsTotal.WithLabelValues(family, "failure").Inc()
		return
	}
	m.ModelReloadsTotal.WithLabelValues(family, "success").Inc()
	m.ActiveModels.WithLabelValues(family).Set(float64(generation))
}
