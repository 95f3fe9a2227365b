// Package metrics provides Prometheus metrics collection for the gateway.
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds all Prometheus metrics for the gateway.
type Collector struct {
	// Request metrics
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	// Auth metrics
	AuthFailures prometheus.Counter

	// Quota metrics
	RateLimitHits   *prometheus.CounterVec
	DocQuotaHits    *prometheus.CounterVec
	DegradedAdmits  prometheus.Counter
	DegradedRejects prometheus.Counter

	// Counter store metrics
	StoreErrors   prometheus.Counter
	StoreDuration *prometheus.HistogramVec

	// Conversion metrics
	ConversionsTotal *prometheus.CounterVec

	// Config metrics
	ConfigReloads      prometheus.Counter
	ConfigReloadErrors prometheus.Counter
}

// New creates a new metrics collector with all metrics registered on reg.
// Pass prometheus.DefaultRegisterer outside of tests.
func New(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "kazuba",
				Name:      "requests_total",
				Help:      "Total number of requests processed",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "kazuba",
				Name:      "request_duration_seconds",
				Help:      "Request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path", "status"},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "kazuba",
				Name:      "requests_in_flight",
				Help:      "Number of requests currently being processed",
			},
		),

		AuthFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "kazuba",
				Name:      "auth_failures_total",
				Help:      "Total number of authentication failures",
			},
		),

		RateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "kazuba",
				Name:      "rate_limit_hits_total",
				Help:      "Total number of daily rate limit rejections",
			},
			[]string{"tier"},
		),
		DocQuotaHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "kazuba",
				Name:      "doc_quota_hits_total",
				Help:      "Total number of monthly document quota rejections",
			},
			[]string{"tier"},
		),
		DegradedAdmits: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "kazuba",
				Name:      "degraded_admits_total",
				Help:      "Requests admitted uncounted because the counter store was unavailable",
			},
		),
		DegradedRejects: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "kazuba",
				Name:      "degraded_rejects_total",
				Help:      "Requests rejected because the counter store was unavailable",
			},
		),

		StoreErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "kazuba",
				Name:      "store_errors_total",
				Help:      "Total number of counter store failures",
			},
		),
		StoreDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "kazuba",
				Name:      "counter_op_duration_seconds",
				Help:      "Counter store operation duration in seconds",
				Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"op"},
		),

		ConversionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "kazuba",
				Name:      "conversions_total",
				Help:      "Total number of document conversions",
			},
			[]string{"format", "outcome"},
		),

		ConfigReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "kazuba",
				Name:      "config_reloads_total",
				Help:      "Total number of successful config reloads",
			},
		),
		ConfigReloadErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "kazuba",
				Name:      "config_reload_errors_total",
				Help:      "Total number of failed config reloads",
			},
		),
	}
}

// NormalizePath collapses request paths to a bounded label set so path
// cardinality cannot blow up the metric store.
func NormalizePath(path string) string {
	switch {
	case path == "/" || path == "":
		return "/"
	case strings.HasPrefix(path, "/convert"):
		return "/convert"
	case strings.HasPrefix(path, "/usage"):
		return "/usage"
	case strings.HasPrefix(path, "/health"):
		return "/health"
	default:
		return "other"
	}
}
