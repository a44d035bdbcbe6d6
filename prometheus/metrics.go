package prometheus

import (
	"time"

	"compliance-service/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	HttpRequestsTotal   prometheus.CounterVec
	HttpRequestDuration prometheus.HistogramVec

	// Authentication metrics
	AuthAttemptsCounter prometheus.Counter
	AuthSuccessCounter  prometheus.Counter
	AuthErrorsCounter   prometheus.Counter

	// Company context metrics
	CompanyContextMissingCounter prometheus.Counter

	// Database operation metrics
	DbOperationDuration prometheus.HistogramVec

	// Domain operation counters
	ScanOperationsCounter     prometheus.CounterVec
	CampaignOperationsCounter prometheus.CounterVec
	PortalOperationsCounter   prometheus.CounterVec
	AIOperationsCounter       prometheus.CounterVec

	// Campaign delivery outcomes per recipient
	CampaignEmailsCounter prometheus.CounterVec

	// Vendors per verification status
	VendorStatusGauge prometheus.GaugeVec
)

// InitMetrics initializes Prometheus metrics with configuration
func InitMetrics(cfg *config.Config) {
	prefix := cfg.Metrics.Prefix

	HttpRequestsTotal = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HttpRequestDuration = *promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	AuthAttemptsCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
	)

	AuthSuccessCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_auth_success_total",
			Help: "Total number of successful authentications",
		},
	)

	AuthErrorsCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_auth_errors_total",
			Help: "Total number of authentication errors",
		},
	)

	CompanyContextMissingCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_company_context_missing_total",
			Help: "Total number of requests without company context",
		},
	)

	DbOperationDuration = *promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation_type"},
	)

	ScanOperationsCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_scan_operations_total",
			Help: "Total number of website scan operations",
		},
		[]string{"operation"},
	)

	CampaignOperationsCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_campaign_operations_total",
			Help: "Total number of campaign operations",
		},
		[]string{"operation"},
	)

	PortalOperationsCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_portal_operations_total",
			Help: "Total number of vendor portal operations",
		},
		[]string{"operation"},
	)

	AIOperationsCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_ai_operations_total",
			Help: "Total number of model provider operations",
		},
		[]string{"operation"},
	)

	CampaignEmailsCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_campaign_emails_total",
			Help: "Total number of campaign emails by outcome",
		},
		[]string{"outcome"},
	)

	VendorStatusGauge = *promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: prefix + "_vendors_by_status",
			Help: "Number of company vendors per verification status",
		},
		[]string{"status"},
	)
}

// TrackDBOperation returns a function that records the duration of a database operation
func TrackDBOperation(operationType string) func(startTime time.Time) {
	return func(startTime time.Time) {
		duration := time.Since(startTime).Seconds()
		DbOperationDuration.WithLabelValues(operationType).Observe(duration)
	}
}

// RecordScanOperation increments the counter for scan operations
func RecordScanOperation(operation string) {
	ScanOperationsCounter.WithLabelValues(operation).Inc()
}

// RecordCampaignOperation increments the counter for campaign operations
func RecordCampaignOperation(operation string) {
	CampaignOperationsCounter.WithLabelValues(operation).Inc()
}

// RecordPortalOperation increments the counter for portal operations
func RecordPortalOperation(operation string) {
	PortalOperationsCounter.WithLabelValues(operation).Inc()
}

// RecordAIOperation increments the counter for model provider operations
func RecordAIOperation(operation string) {
	AIOperationsCounter.WithLabelValues(operation).Inc()
}

// RecordCampaignEmail records one per-recipient campaign delivery outcome
func RecordCampaignEmail(outcome string) {
	CampaignEmailsCounter.WithLabelValues(outcome).Inc()
}

// UpdateVendorStatusCount updates the per-status vendor gauge
func UpdateVendorStatusCount(status string, count int) {
	VendorStatusGauge.WithLabelValues(status).Set(float64(count))
}
