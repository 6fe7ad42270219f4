// Package metrics exposes Prometheus metrics for the import service.
package metrics

import (
	"bufio"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/JonMunkholm/weddingplanner/internal/core"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "guest_import"

var latencyBuckets = []float64{
	0.001, 0.002, 0.005,
	0.01, 0.02, 0.05,
	0.1, 0.2, 0.5,
	1, 2, 5, 10,
}

// Metrics holds the service's collectors on a private registry. It
// implements core.Recorder.
type Metrics struct {
	registry *prometheus.Registry

	sessionsStarted     *prometheus.CounterVec
	rowsPreviewed       *prometheus.CounterVec
	existingCheckFailed prometheus.Counter
	submits             *prometheus.CounterVec
	guestsSubmitted     *prometheus.CounterVec
	sessionsExpired     prometheus.Counter

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
}

var _ core.Recorder = (*Metrics)(nil)

// New registers all collectors, plus the Go and process collectors, on a
// fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		sessionsStarted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Import sessions started, by uploaded file format.",
		}, []string{"format"}),
		rowsPreviewed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_previewed_total",
			Help:      "Rows evaluated by preview builds, by outcome.",
		}, []string{"outcome"}),
		existingCheckFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "existing_check_failures_total",
			Help:      "Existing-email lookups that failed and were skipped.",
		}),
		submits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submits_total",
			Help:      "Bulk guest submits, by result.",
		}, []string{"result"}),
		guestsSubmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guests_submitted_total",
			Help:      "Guests sent to the backend, by backend outcome.",
		}, []string{"outcome"}),
		sessionsExpired: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_expired_total",
			Help:      "Idle import sessions removed by the janitor.",
		}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests, by route pattern, method and status class.",
		}, []string{"route", "method", "result"}),
		httpLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "latency_seconds",
			Help:      "HTTP request latency, by route pattern and status class.",
			Buckets:   latencyBuckets,
		}, []string{"route", "result"}),
	}
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// TrackGauge registers a gauge whose value is read from fn at scrape time,
// such as the number of open sessions.
func (m *Metrics) TrackGauge(name, help string, fn func() float64) {
	promauto.With(m.registry).NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, fn)
}

func (m *Metrics) SessionStarted(format string) {
	m.sessionsStarted.WithLabelValues(format).Inc()
}

func (m *Metrics) PreviewBuilt(s core.PreviewSummary) {
	m.rowsPreviewed.WithLabelValues("valid").Add(float64(s.Valid))
	m.rowsPreviewed.WithLabelValues("invalid").Add(float64(s.Invalid))
	m.rowsPreviewed.WithLabelValues("duplicate").Add(float64(s.Duplicate))
	m.rowsPreviewed.WithLabelValues("existing").Add(float64(s.Existing))
}

func (m *Metrics) ExistingCheckFailed() {
	m.existingCheckFailed.Inc()
}

func (m *Metrics) SubmitFinished(result *core.BulkImportGuestResult, err error) {
	if err != nil || result == nil {
		m.submits.WithLabelValues("error").Inc()
		return
	}
	m.submits.WithLabelValues("success").Inc()
	m.guestsSubmitted.WithLabelValues("created").Add(float64(result.Created))
	m.guestsSubmitted.WithLabelValues("skipped").Add(float64(result.Skipped))
	m.guestsSubmitted.WithLabelValues("failed").Add(float64(result.Failed))
}

func (m *Metrics) SessionsExpired(n int) {
	m.sessionsExpired.Add(float64(n))
}

// Middleware records request counts and latency per chi route pattern.
// Unmatched requests are labelled "unmatched" to keep cardinality bounded.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		result := statusClass(rec.status)

		m.httpRequests.WithLabelValues(route, r.Method, result).Inc()
		m.httpLatency.WithLabelValues(route, result).Observe(time.Since(start).Seconds())
	})
}

func statusClass(status int) string {
	return strconv.Itoa(status/100) + "xx"
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusRecorder) WriteHeader(status int) {
	if !w.wroteHeader {
		w.status = status
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *statusRecorder) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, http.ErrNotSupported
	}
	return h.Hijack()
}
