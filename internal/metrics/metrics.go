package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// UpstreamRequestsTotal tracks outbound calls to remote providers
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coinapp_upstream_requests_total",
			Help: "Total number of outbound provider requests",
		},
		[]string{"method", "path", "status"},
	)

	// UpstreamRequestErrors tracks failed outbound calls
	UpstreamRequestErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coinapp_upstream_request_errors_total",
			Help: "Total number of failed outbound provider requests",
		},
		[]string{"method", "path"},
	)

	// UpstreamRequestDuration tracks outbound call latency
	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "coinapp_upstream_request_duration_seconds",
			Help:    "Outbound provider request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// WebhookNotificationsTotal tracks processed webhook notifications by type and outcome
	WebhookNotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coinapp_webhook_notifications_total",
			Help: "Total number of webhook notifications processed",
		},
		[]string{"notification_type", "outcome"},
	)

	// BalanceRefreshTotal tracks balance sync attempts by result
	BalanceRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coinapp_balance_refresh_total",
			Help: "Total number of balance refresh attempts",
		},
		[]string{"result"},
	)
)

// Collector implements the HTTP client's MetricsCollector interface on top of
// the Prometheus registry.
type Collector struct{}

// NewCollector returns a Collector backed by the default registry.
func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) RecordRequestDuration(method, path string, statusCode int, duration time.Duration) {
	UpstreamRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func (c *Collector) RecordRequestCount(method, path string, statusCode int) {
	UpstreamRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
}

func (c *Collector) RecordRequestError(method, path string) {
	UpstreamRequestErrors.WithLabelValues(method, path).Inc()
}
