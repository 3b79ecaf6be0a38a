package middleware

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	vangoedge "github.com/vango-go/vango-edge"
	"github.com/vango-go/vango-edge/pkg/serverfn"
)

// MetricsConfig configures the Prometheus metrics middleware.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "vango_edge").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for invocation duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics middleware.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

// defaultMetricsConfig returns the default metrics configuration.
func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "vango_edge",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// metrics holds the Prometheus metrics for server-function invocations.
type metrics struct {
	invocationsTotal *prometheus.CounterVec
	invokeDuration   *prometheus.HistogramVec
	invokeErrors     *prometheus.CounterVec
	inFlight         prometheus.Gauge
}

// globalMetrics is the singleton metrics instance, created on the first call
// to Prometheus(). Prometheus registries reject duplicate registration, so
// repeated middleware construction shares one set.
var (
	globalMetrics   *metrics
	globalMetricsMu sync.Mutex
)

func initMetrics(config MetricsConfig) *metrics {
	factory := promauto.With(config.Registry)

	return &metrics{
		invocationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "invocations_total",
			Help:        "Total number of server-function invocations",
			ConstLabels: config.ConstLabels,
		}, []string{"path", "status"}),

		invokeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "invoke_duration_seconds",
			Help:        "Server-function invocation duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"path"}),

		invokeErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "invoke_errors_total",
			Help:        "Total number of server-function invocation errors",
			ConstLabels: config.ConstLabels,
		}, []string{"path", "error_type"}),

		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "in_flight_invocations",
			Help:        "Number of server-function invocations currently running",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// Prometheus creates middleware that collects Prometheus metrics for every
// server-function invocation.
//
// Metrics collected:
//   - vango_edge_invocations_total: Counter of invocations by path and status
//   - vango_edge_invoke_duration_seconds: Histogram of invocation duration
//   - vango_edge_invoke_errors_total: Counter of errors by path and error type
//   - vango_edge_in_flight_invocations: Gauge of running invocations
func Prometheus(opts ...MetricsOption) vangoedge.Middleware {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	globalMetricsMu.Lock()
	if globalMetrics == nil {
		globalMetrics = initMetrics(config)
	}
	m := globalMetrics
	globalMetricsMu.Unlock()

	return func(next vangoedge.InvokeFunc) vangoedge.InvokeFunc {
		return func(ctx context.Context, fn serverfn.Fn, data []byte) (serverfn.Payload, error) {
			path := fn.Path()

			m.inFlight.Inc()
			start := time.Now()

			payload, err := next(ctx, fn, data)

			m.inFlight.Dec()
			m.invokeDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())

			status := "success"
			if err != nil {
				status = "error"
				m.invokeErrors.WithLabelValues(path, categorizeError(err)).Inc()
			}
			m.invocationsTotal.WithLabelValues(path, status).Inc()

			return payload, err
		}
	}
}

// categorizeError returns a coarse category for the error. Categories keep
// the error_type label low-cardinality; raw error messages never become
// labels.
func categorizeError(err error) string {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "decoding arguments"):
		return "bad_arguments"
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline"):
		return "timeout"
	case strings.Contains(msg, "canceled"):
		return "canceled"
	case strings.Contains(msg, "not found"):
		return "not_found"
	case strings.Contains(msg, "unauthorized"):
		return "unauthorized"
	case strings.Contains(msg, "forbidden"):
		return "forbidden"
	case strings.Contains(msg, "validation"):
		return "validation"
	default:
		return "internal"
	}
}
