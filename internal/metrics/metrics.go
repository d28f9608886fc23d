// Package metrics exposes Prometheus collectors for classifications and
// annotation-service traffic.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/inodb/vibe-acmg/internal/criteria"
	"github.com/inodb/vibe-acmg/internal/gateway"
)

const namespace = "vibe_acmg"

// Collector implements acmg.Observer and gateway.Recorder.
type Collector struct {
	classifications  *prometheus.CounterVec
	classifyDuration *prometheus.HistogramVec
	criteria         *prometheus.CounterVec
	requests         *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		classifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifications_total",
			Help:      "Variant classifications by variant kind and outcome.",
		}, []string{"kind", "outcome"}),
		classifyDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "classification_duration_seconds",
			Help:      "Time to classify one variant, including annotation requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"kind"}),
		criteria: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "criteria_total",
			Help:      "Criterion results by criterion and prediction.",
		}, []string{"criterion", "prediction"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_requests_total",
			Help:      "Annotation service requests by service and outcome.",
		}, []string{"service", "outcome"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gateway_request_duration_seconds",
			Help:      "Annotation service request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service"}),
	}

	for _, col := range []prometheus.Collector{
		c.classifications,
		c.classifyDuration,
		c.criteria,
		c.requests,
		c.requestDuration,
	} {
		if err := reg.Register(col); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}
	return c, nil
}

// ObserveClassification records one classification attempt.
func (c *Collector) ObserveClassification(kind, outcome string, elapsed time.Duration) {
	if kind == "" {
		kind = "unknown"
	}
	c.classifications.WithLabelValues(kind, outcome).Inc()
	c.classifyDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// ObserveCriterion records one criterion result.
func (c *Collector) ObserveCriterion(r criteria.Result) {
	c.criteria.WithLabelValues(string(r.Criterion), r.Prediction.String()).Inc()
}

// ObserveRequest records one annotation service request. Cache hits are
// counted but not timed.
func (c *Collector) ObserveRequest(service, outcome string, elapsed time.Duration) {
	c.requests.WithLabelValues(service, outcome).Inc()
	if outcome != gateway.OutcomeCached {
		c.requestDuration.WithLabelValues(service).Observe(elapsed.Seconds())
	}
}
