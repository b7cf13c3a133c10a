package vecgo

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetricsCollector is a MetricsCollector backed by
// client_golang counter/histogram pairs, one per operation. Register
// it with a custom prometheus.Registerer (or prometheus.DefaultRegisterer
// via NewPrometheusMetricsCollector) to expose operation counts,
// error counts, and latency distributions on a /metrics endpoint.
type PrometheusMetricsCollector struct {
	requestsTotal *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	duration      *prometheus.HistogramVec
}

// NewPrometheusMetricsCollector registers its metrics with reg and
// returns the collector. Passing prometheus.DefaultRegisterer matches
// the common case of a process-wide /metrics endpoint.
func NewPrometheusMetricsCollector(reg prometheus.Registerer) *PrometheusMetricsCollector {
	c := &PrometheusMetricsCollector{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vecgo_operations_total",
			Help: "Total number of index operations processed.",
		}, []string{"operation"}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vecgo_operation_errors_total",
			Help: "Total number of index operations that returned an error.",
		}, []string{"operation"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vecgo_operation_duration_seconds",
			Help:    "Duration of index operations in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}

	reg.MustRegister(c.requestsTotal, c.errorsTotal, c.duration)

	return c
}

func (c *PrometheusMetricsCollector) record(op string, duration time.Duration, err error) {
	c.requestsTotal.WithLabelValues(op).Inc()
	c.duration.WithLabelValues(op).Observe(duration.Seconds())
	if err != nil {
		c.errorsTotal.WithLabelValues(op).Inc()
	}
}

func (c *PrometheusMetricsCollector) RecordInsert(duration time.Duration, err error) {
	c.record("insert", duration, err)
}

func (c *PrometheusMetricsCollector) RecordSearch(_ int, duration time.Duration, err error) {
	c.record("search", duration, err)
}

func (c *PrometheusMetricsCollector) RecordDelete(duration time.Duration, err error) {
	c.record("delete", duration, err)
}

func (c *PrometheusMetricsCollector) RecordUpdate(duration time.Duration, err error) {
	c.record("update", duration, err)
}
