// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"x1-token-verifier/internal/domain"
	"x1-token-verifier/internal/risk"
	"x1-token-verifier/internal/solana"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// RPC gateway metrics
	RPCCallLatency *prometheus.HistogramVec
	RPCCallErrors  *prometheus.CounterVec

	// Scoring metrics
	AssessmentsTotal *prometheus.CounterVec
	RiskScore        prometheus.Histogram

	// Report metrics
	ReportsTotal *prometheus.CounterVec

	// Watcher metrics
	WatchNotifications *prometheus.CounterVec
	WatchedMints       prometheus.Gauge

	// HTTP metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// Compile-time interface checks.
var (
	_ solana.Observer = (*Metrics)(nil)
	_ risk.Observer   = (*Metrics)(nil)
)

// NewMetrics creates a Metrics instance registered on reg.
// A nil reg uses a fresh registry, which keeps tests independent.
func NewMetrics(namespace string, reg *prometheus.Registry) *Metrics {
	if namespace == "" {
		namespace = "x1_token_verifier"
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		RPCCallLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "call_latency_seconds",
			Help:      "JSON-RPC call latency in seconds by endpoint and method",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint", "method"}),
		RPCCallErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "call_errors_total",
			Help:      "Total number of failed JSON-RPC attempts by endpoint and method",
		}, []string{"endpoint", "method"}),

		AssessmentsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "assessments_total",
			Help:      "Total number of risk assessments by status and trigger",
		}, []string{"status", "trigger"}),
		RiskScore: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "score",
			Help:      "Distribution of risk scores",
			Buckets:   []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		}),

		ReportsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reports",
			Name:      "submitted_total",
			Help:      "Total number of report submissions by outcome",
		}, []string{"outcome"}),

		WatchNotifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watch",
			Name:      "notifications_total",
			Help:      "Total number of log notifications by action taken",
		}, []string{"action"}),
		WatchedMints: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "watch",
			Name:      "mints",
			Help:      "Number of mints with an active log subscription",
		}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route and status code",
		}, []string{"route", "code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),

		gatherer: reg,
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ObserveRPC records one gateway attempt.
func (m *Metrics) ObserveRPC(endpoint, method string, elapsed time.Duration, err error) {
	m.RPCCallLatency.WithLabelValues(endpoint, method).Observe(elapsed.Seconds())
	if err != nil {
		m.RPCCallErrors.WithLabelValues(endpoint, method).Inc()
	}
}

// ObserveAssessment records a completed assessment.
func (m *Metrics) ObserveAssessment(a domain.RiskAssessment, trigger string) {
	m.AssessmentsTotal.WithLabelValues(string(a.Status), trigger).Inc()
	m.RiskScore.Observe(float64(a.RiskScore))
}

// ObserveReport records a report submission outcome.
func (m *Metrics) ObserveReport(outcome string) {
	m.ReportsTotal.WithLabelValues(outcome).Inc()
}

// ObserveWatch records what the watcher did with a notification.
func (m *Metrics) ObserveWatch(action string) {
	m.WatchNotifications.WithLabelValues(action).Inc()
}

// SetWatchedMints updates the subscription gauge.
func (m *Metrics) SetWatchedMints(n int) {
	m.WatchedMints.Set(float64(n))
}

// InstrumentHandler wraps h, recording request count and latency under route.
func (m *Metrics) InstrumentHandler(route string, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h.ServeHTTP(rec, r)
		m.HTTPRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		m.HTTPRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
