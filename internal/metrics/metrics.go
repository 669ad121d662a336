// Package metrics exposes Prometheus collectors for the exchange server.
package metrics

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "skillswap"

// Metrics is nil-safe: every method is a no-op on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	matchesFound      prometheus.Histogram
	matchFallbacks    prometheus.Counter
	sessionsCreated   prometheus.Counter
	ratingsSubmitted  *prometheus.CounterVec
	partialLedger     prometheus.Counter
	ledgerDivergent   prometheus.Gauge
	messagesSent      prometheus.Counter
	filesUploaded     prometheus.Counter
	realtimeListeners *prometheus.GaugeVec
}

// New registers every collector on a fresh registry, plus the Go runtime and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		matchesFound: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "match",
			Name:      "results",
			Help:      "Mutual matches found per lookup.",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
		}),
		matchFallbacks: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "match",
			Name:      "fallbacks_total",
			Help:      "Lookups that fell back to the community list.",
		}),
		sessionsCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "created_total",
			Help:      "Sessions created by connect.",
		}),
		ratingsSubmitted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "ratings_total",
			Help:      "Ratings submitted by score.",
		}, []string{"rating"}),
		partialLedger: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "partial_completions_total",
			Help:      "Ratings where only one of the two writes landed.",
		}),
		ledgerDivergent: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "divergent_profiles",
			Help:      "Profiles whose rating count disagrees with completed sessions.",
		}),
		messagesSent: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "room",
			Name:      "messages_total",
			Help:      "Chat messages sent.",
		}),
		filesUploaded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "room",
			Name:      "files_uploaded_total",
			Help:      "Files shared into sessions.",
		}),
		realtimeListeners: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "listeners",
			Help:      "Open realtime streams by transport.",
		}, []string{"transport"}),
	}
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RegisterDB exports connection pool stats for db.
func (m *Metrics) RegisterDB(db *sql.DB) {
	if m == nil || db == nil {
		return
	}
	m.registry.MustRegister(collectors.NewDBStatsCollector(db, namespace))
}

func (m *Metrics) ObserveHTTP(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, status).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) ObserveMatches(found int, fallback bool) {
	if m == nil {
		return
	}
	m.matchesFound.Observe(float64(found))
	if fallback {
		m.matchFallbacks.Inc()
	}
}

func (m *Metrics) SessionCreated() {
	if m == nil {
		return
	}
	m.sessionsCreated.Inc()
}

func (m *Metrics) RatingSubmitted(rating int) {
	if m == nil {
		return
	}
	m.ratingsSubmitted.WithLabelValues(ratingLabel(rating)).Inc()
}

func (m *Metrics) PartialCompletion() {
	if m == nil {
		return
	}
	m.partialLedger.Inc()
}

func (m *Metrics) SetLedgerDivergent(n int) {
	if m == nil {
		return
	}
	m.ledgerDivergent.Set(float64(n))
}

func (m *Metrics) MessageSent() {
	if m == nil {
		return
	}
	m.messagesSent.Inc()
}

func (m *Metrics) FileUploaded() {
	if m == nil {
		return
	}
	m.filesUploaded.Inc()
}

func (m *Metrics) ListenerOpened(transport string) {
	if m == nil {
		return
	}
	m.realtimeListeners.WithLabelValues(transport).Inc()
}

func (m *Metrics) ListenerClosed(transport string) {
	if m == nil {
		return
	}
	m.realtimeListeners.WithLabelValues(transport).Dec()
}

func ratingLabel(rating int) string {
	if rating < 1 || rating > 5 {
		return "invalid"
	}
	return strconv.Itoa(rating)
}
