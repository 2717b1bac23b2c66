package server

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the anonymization service.
type Metrics struct {
	// Anonymization metrics
	textsTotal   *prometheus.CounterVec
	textDuration prometheus.Histogram
	textBytes    prometheus.Histogram
	spansTotal   *prometheus.CounterVec

	// Registry and configuration metrics
	registriesCached prometheus.GaugeFunc
	configReloads    *prometheus.CounterVec

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics instance. cachedRegistries is polled
// on scrape to report how many recognizer registries are cached.
func NewMetrics(cachedRegistries func() int) *Metrics {
	registry := prometheus.NewRegistry()

	if cachedRegistries == nil {
		cachedRegistries = func() int { return 0 }
	}

	m := &Metrics{
		textsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "anonymizer_texts_total",
				Help: "Total number of texts processed by status",
			},
			[]string{"status"},
		),

		textDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "anonymizer_text_duration_seconds",
				Help:    "Anonymization latency per text in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),

		textBytes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "anonymizer_text_bytes",
				Help:    "Input text size in bytes",
				Buckets: prometheus.ExponentialBuckets(64, 4, 8),
			},
		),

		spansTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "anonymizer_spans_total",
				Help: "Total number of redacted spans by display label",
			},
			[]string{"label"},
		),

		registriesCached: prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "anonymizer_registries_cached",
				Help: "Number of recognizer registries currently cached",
			},
			func() float64 { return float64(cachedRegistries()) },
		),

		configReloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "anonymizer_config_reloads_total",
				Help: "Total number of configuration reload events by status",
			},
			[]string{"status"},
		),

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "anonymizer_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "anonymizer_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		registry: registry,
	}

	registry.MustRegister(
		m.textsTotal,
		m.textDuration,
		m.textBytes,
		m.spansTotal,
		m.registriesCached,
		m.configReloads,
		m.httpRequestsTotal,
		m.httpRequestDuration,
	)

	return m
}

// RecordText records metrics for one processed text.
func (m *Metrics) RecordText(status string, textBytes int, duration time.Duration) {
	m.textsTotal.WithLabelValues(status).Inc()
	m.textDuration.Observe(duration.Seconds())
	m.textBytes.Observe(float64(textBytes))
}

// RecordSpans records redacted span counts keyed by display label.
func (m *Metrics) RecordSpans(statistics map[string]int) {
	for label, count := range statistics {
		m.spansTotal.WithLabelValues(label).Add(float64(count))
	}
}

// RecordConfigReload records a configuration reload event.
func (m *Metrics) RecordConfigReload(status string) {
	m.configReloads.WithLabelValues(status).Inc()
}

// RecordHTTPRequest records an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// Handler returns the Prometheus metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Middleware creates HTTP middleware that records request metrics.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		endpoint := endpointName(r.URL.Path)
		statusCode := strconv.Itoa(wrapped.statusCode)

		m.RecordHTTPRequest(r.Method, endpoint, statusCode, duration)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := rw.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, fmt.Errorf("underlying ResponseWriter does not support http.Hijacker")
}

func (rw *responseWriter) Push(target string, opts *http.PushOptions) error {
	if pusher, ok := rw.ResponseWriter.(http.Pusher); ok {
		return pusher.Push(target, opts)
	}
	return http.ErrNotSupported
}

// endpointName extracts a normalized endpoint name from the path.
func endpointName(path string) string {
	switch path {
	case "/api/anonymize":
		return "anonymize"
	case "/api/anonymize/batch":
		return "anonymize_batch"
	case "/api/profiles":
		return "profiles"
	case "/healthz":
		return "healthz"
	case "/metrics":
		return "metrics"
	default:
		return "unknown"
	}
}
