package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
	"github.com/tribly/growthqr-bff-go/internal/domain"
)

// Metrics holds all Prometheus metrics for the BFF.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	externalErrors  *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	paymentsTotal   *prometheus.CounterVec
	qrValidations   *prometheus.CounterVec
	requestsTotal   *prometheus.CounterVec
	editSessions    prometheus.Gauge
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "growthqr_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "growthqr_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "growthqr_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "growthqr_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		paymentsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "growthqr_payments_total",
				Help: "Payment sessions by final status.",
			},
			[]string{"status"},
		),
		qrValidations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "growthqr_qr_validations_total",
				Help: "QR validation attempts by result.",
			},
			[]string{"result"},
		),
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "growthqr_requests_total",
				Help: "Total requests processed.",
			},
			[]string{"status"},
		),
		editSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "growthqr_edit_sessions_open",
				Help: "Currently open dashboard edit sessions.",
			},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrPayment counts a payment session reaching a final status.
func (m *Metrics) IncrPayment(status string) {
	m.paymentsTotal.WithLabelValues(status).Inc()
}

// IncrQRValidation counts a QR validation attempt by result.
func (m *Metrics) IncrQRValidation(result string) {
	m.qrValidations.WithLabelValues(result).Inc()
}

// IncrRequest increments the request counter with a status label.
func (m *Metrics) IncrRequest(status string) {
	m.requestsTotal.WithLabelValues(status).Inc()
}

// EditSessionOpened tracks a newly opened edit session.
func (m *Metrics) EditSessionOpened() {
	m.editSessions.Inc()
}

// EditSessionClosed tracks a closed edit session.
func (m *Metrics) EditSessionClosed() {
	m.editSessions.Dec()
}

// GetPaymentSnapshot returns a snapshot of payment-related metrics for
// the GET /v1/metrics/payments endpoint.
func (m *Metrics) GetPaymentSnapshot() *domain.PaymentMetrics {
	succeeded := getCounterValue(m.paymentsTotal, string(domain.PaymentSuccess))
	failed := getCounterValue(m.paymentsTotal, string(domain.PaymentFailed))
	expired := getCounterValue(m.paymentsTotal, string(domain.PaymentExpired))
	total := succeeded + failed + expired

	successRate := float64(0)
	if total > 0 {
		successRate = succeeded / total
	}

	return &domain.PaymentMetrics{
		TotalSessions: int64(total),
		Succeeded:     int64(succeeded),
		Failed:        int64(failed),
		Expired:       int64(expired),
		SuccessRate:   successRate,
		Period:        "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
