// Package monitoring exposes Prometheus metrics for model loads and
// predictions.
package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "svmpredict"

// Result label values.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Metrics groups the collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	modelLoads         *prometheus.CounterVec
	sampleLoads        *prometheus.CounterVec
	predictions        *prometheus.CounterVec
	predictionDuration *prometheus.HistogramVec
}

// NewMetrics registers the collectors on a fresh registry together with the
// Go runtime and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		modelLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_loads_total",
			Help:      "Classifier artifact loads by dataset and result.",
		}, []string{"dataset", "result"}),
		sampleLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sample_loads_total",
			Help:      "Sample table loads by dataset and result.",
		}, []string{"dataset", "result"}),
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Predictions by dataset and result.",
		}, []string{"dataset", "result"}),
		predictionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "prediction_duration_seconds",
			Help:      "Single-row inference latency.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"dataset"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.modelLoads,
		m.sampleLoads,
		m.predictions,
		m.predictionDuration,
	)
	return m
}

// ModelLoaded counts one classifier load for dataset.
func (m *Metrics) ModelLoaded(dataset string, err error) {
	if m == nil {
		return
	}
	m.modelLoads.WithLabelValues(dataset, result(err)).Inc()
}

// SampleLoaded counts one sample table load for dataset.
func (m *Metrics) SampleLoaded(dataset string, err error) {
	if m == nil {
		return
	}
	m.sampleLoads.WithLabelValues(dataset, result(err)).Inc()
}

// Predicted counts one prediction and observes its latency.
func (m *Metrics) Predicted(dataset string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.predictions.WithLabelValues(dataset, result(err)).Inc()
	m.predictionDuration.WithLabelValues(dataset).Observe(elapsed.Seconds())
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}
