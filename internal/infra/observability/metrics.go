package observability

import (
	"time"

	"github.com/escolahub/payments-gateway-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the gateway.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	operationDuration *prometheus.HistogramVec
	providerErrors    *prometheus.CounterVec
	operationsTotal   *prometheus.CounterVec
	tokenRefreshes    *prometheus.CounterVec
	webhookRejections *prometheus.CounterVec
	cacheHits         *prometheus.CounterVec
	cacheMisses       *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		operationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gateway_operation_duration_seconds",
				Help:    "Duration of provider operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider", "operation"},
		),
		providerErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_provider_errors_total",
				Help: "Total errors returned by provider operations.",
			},
			[]string{"provider", "operation"},
		),
		operationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_operations_total",
				Help: "Total provider operations by outcome.",
			},
			[]string{"status"},
		),
		tokenRefreshes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_token_refreshes_total",
				Help: "Total OAuth2 token exchanges performed.",
			},
			[]string{"provider"},
		),
		webhookRejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_webhook_rejections_total",
				Help: "Total webhook deliveries rejected by validation.",
			},
			[]string{"provider"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
	}
}

// RecordOperationDuration records the duration of a provider operation.
func (m *Metrics) RecordOperationDuration(provider, operation string, d time.Duration) {
	m.operationDuration.WithLabelValues(provider, operation).Observe(d.Seconds())
}

// IncrProviderError increments the provider error counter.
func (m *Metrics) IncrProviderError(provider, operation string) {
	m.providerErrors.WithLabelValues(provider, operation).Inc()
}

// IncrOperation increments the operation counter with a status label.
func (m *Metrics) IncrOperation(status string) {
	m.operationsTotal.WithLabelValues(status).Inc()
}

// IncrTokenRefresh increments the token exchange counter.
func (m *Metrics) IncrTokenRefresh(provider string) {
	m.tokenRefreshes.WithLabelValues(provider).Inc()
}

// IncrWebhookRejection increments the rejected-webhook counter.
func (m *Metrics) IncrWebhookRejection(provider string) {
	m.webhookRejections.WithLabelValues(provider).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// GetSnapshot returns an aggregate view of gateway metrics suitable for the
// GET /v1/metrics/gateway endpoint.
func (m *Metrics) GetSnapshot() *domain.MetricsSnapshot {
	success := getCounterValue(m.operationsTotal, "success")
	errors := getCounterValue(m.operationsTotal, "error")
	total := success + errors

	adapterHits := getCounterValue(m.cacheHits, "adapter")
	adapterMisses := getCounterValue(m.cacheMisses, "adapter")

	errorRate := float64(0)
	if total > 0 {
		errorRate = errors / total
	}
	cacheHitRate := float64(0)
	if adapterHits+adapterMisses > 0 {
		cacheHitRate = adapterHits / (adapterHits + adapterMisses)
	}

	var refreshes, rejections float64
	for _, p := range domain.AllProviders {
		refreshes += getCounterValue(m.tokenRefreshes, string(p))
		rejections += getCounterValue(m.webhookRejections, string(p))
	}

	return &domain.MetricsSnapshot{
		TotalOperations:   int64(total),
		ErrorRate:         errorRate,
		CacheHitRate:      cacheHitRate,
		TokenRefreshes:    int64(refreshes),
		WebhookRejections: int64(rejections),
		Period:            "all_time",
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
