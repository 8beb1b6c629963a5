package hummingbird

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Navigation outcomes used as the "outcome" label.
const (
	OutcomeApplied   = "applied"
	OutcomeRestored  = "restored"
	OutcomeDiscarded = "discarded"
	OutcomeFailed    = "failed"
	OutcomeFallback  = "fallback"
)

// MetricsConfig configures the Prometheus collectors.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "hummingbird").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for fetch duration.
	// Default: prometheus.DefBuckets
	Buckets []float64
}

// MetricsOption configures NewMetrics.
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

// WithBuckets sets the fetch duration histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// Metrics holds the runtime's collectors. A nil *Metrics records nothing.
type Metrics struct {
	mounts       *prometheus.CounterVec
	unregistered *prometheus.CounterVec
	failures     *prometheus.CounterVec
	navigations  *prometheus.CounterVec
	fetchSeconds prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer, opts ...MetricsOption) *Metrics {
	cfg := MetricsConfig{
		Namespace: "hummingbird",
		Buckets:   prometheus.DefBuckets,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	m := &Metrics{
		mounts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "components_mounted_total",
			Help:        "Marked elements whose initializer ran successfully.",
			ConstLabels: cfg.ConstLabels,
		}, []string{"component"}),
		unregistered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "components_unregistered_total",
			Help:        "Marked elements naming a component missing from the registry.",
			ConstLabels: cfg.ConstLabels,
		}, []string{"component"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "components_failed_total",
			Help:        "Marked elements skipped because of malformed props or a failing initializer.",
			ConstLabels: cfg.ConstLabels,
		}, []string{"component"}),
		navigations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "navigations_total",
			Help:        "Partial navigations by outcome.",
			ConstLabels: cfg.ConstLabels,
		}, []string{"outcome"}),
		fetchSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "navigation_fetch_duration_seconds",
			Help:        "Time spent fetching navigation responses.",
			ConstLabels: cfg.ConstLabels,
			Buckets:     cfg.Buckets,
		}),
	}

	if reg != nil {
		reg.MustRegister(m.mounts, m.unregistered, m.failures, m.navigations, m.fetchSeconds)
	}
	return m
}

func (m *Metrics) mounted(name string) {
	if m != nil {
		m.mounts.WithLabelValues(name).Inc()
	}
}

func (m *Metrics) missing(name string) {
	if m != nil {
		m.unregistered.WithLabelValues(name).Inc()
	}
}

func (m *Metrics) failed(name string) {
	if m != nil {
		m.failures.WithLabelValues(name).Inc()
	}
}

func (m *Metrics) navigation(outcome string) {
	if m != nil {
		m.navigations.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) fetched(d time.Duration) {
	if m != nil {
		m.fetchSeconds.Observe(d.Seconds())
	}
}
