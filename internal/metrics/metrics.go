// Package metrics holds the Prometheus collectors of the engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Operation results.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Collectors groups the engine metrics. A nil *Collectors records nothing.
type Collectors struct {
	operations     *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	cyclesReversed prometheus.Counter
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) (*Collectors, error) {
	c := &Collectors{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bamboo_pipeline_operations_total",
				Help: "Total number of pipeline operations by outcome",
			},
			[]string{"operation", "result"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bamboo_pipeline_operation_duration_seconds",
				Help:    "Duration of pipeline operations",
				Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
			},
			[]string{"operation"},
		),
		cyclesReversed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "bamboo_pipeline_cycles_reversed_total",
				Help: "Total number of back-edges reversed to break cycles",
			},
		),
	}
	for _, col := range []prometheus.Collector{c.operations, c.duration, c.cyclesReversed} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Observe records one operation that started at start and ended with err.
func (c *Collectors) Observe(operation string, start time.Time, err error) {
	if c == nil {
		return
	}
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	c.operations.WithLabelValues(operation, result).Inc()
	c.duration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// CyclesReversed adds n reversed back-edges.
func (c *Collectors) CyclesReversed(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.cyclesReversed.Add(float64(n))
}
