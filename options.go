package hummingbird

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/12153/hummingbird/lib/encoding"
	"go.opentelemetry.io/otel/trace"
)

// Option configures NewRegistry, NewHydrator and NewNavigator. Each
// constructor reads the settings that concern it and ignores the rest.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	metrics  *Metrics
	markers  Markers
	once     bool
	client   Doer
	region   string
	swap     SwapMode
	timeout  time.Duration
	tracer   trace.Tracer
	store    encoding.Store
	codec    *encoding.Codec
	onError  func(error)
	fallback FallbackFunc
	noFall   bool
}

func newOptions(opts []Option) *options {
	o := &options{
		markers: DefaultMarkers,
		region:  DefaultRegion,
		swap:    SwapInner,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.client == nil {
		o.client = http.DefaultClient
	}
	return o
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics records hydration and navigation metrics.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithMarkers overrides the attribute names of the marker contract.
func WithMarkers(m Markers) Option {
	return func(o *options) { o.markers = m.withDefaults() }
}

// WithOnce makes hydration idempotent: mounted elements are flagged with the
// Hydrated marker and skipped by later passes.
func WithOnce() Option {
	return func(o *options) { o.once = true }
}

// WithClient sets the HTTP client used for navigation fetches.
func WithClient(c Doer) Option {
	return func(o *options) { o.client = c }
}

// WithRegion sets the CSS selector of the content region. Defaults to "main".
func WithRegion(selector string) Option {
	return func(o *options) { o.region = selector }
}

// WithSwap sets how responses are placed into the content region.
func WithSwap(mode SwapMode) Option {
	return func(o *options) { o.swap = mode }
}

// WithTimeout bounds each navigation fetch. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithTracer sets the tracer for navigation spans. Defaults to the global
// provider's "github.com/12153/hummingbird" tracer.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

// WithSnapshots sets where region snapshots for back/forward are kept and the
// codec that signs them.
func WithSnapshots(store encoding.Store, codec *encoding.Codec) Option {
	return func(o *options) {
		o.store = store
		o.codec = codec
	}
}

// WithErrorHandler is called on the document loop for every failed
// navigation that was not superseded.
func WithErrorHandler(fn func(error)) Option {
	return func(o *options) { o.onError = fn }
}

// WithFallback replaces the default full page load run after a failed
// partial navigation.
func WithFallback(fn FallbackFunc) Option {
	return func(o *options) { o.fallback = fn }
}

// WithoutFallback leaves the page as it was after a failed partial
// navigation. The error still reaches the error handler and Wait.
func WithoutFallback() Option {
	return func(o *options) { o.noFall = true }
}
