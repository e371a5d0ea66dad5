// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Solana metrics
	RPCCallLatency      *prometheus.HistogramVec
	ConfirmationLatency *prometheus.HistogramVec

	// Balance metrics
	BalanceCacheLookups *prometheus.CounterVec
	RateLimitRetries    prometheus.Counter

	// Investment metrics
	InvestmentsTotal     *prometheus.CounterVec
	InvestedLamports     prometheus.Counter
	UnrecordedTransfers  prometheus.Counter
	AnalyticsWriteErrors prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance registered with reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "capitoro"
	}
	factory := promauto.With(reg)

	return &Metrics{
		RPCCallLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		ConfirmationLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "confirmation_latency_seconds",
			Help:      "Time from submission to confirmation outcome in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 90},
		}, []string{"outcome"}),

		BalanceCacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "balance",
			Name:      "cache_lookups_total",
			Help:      "Balance cache lookups by result (hit, miss, forced)",
		}, []string{"result"}),
		RateLimitRetries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "balance",
			Name:      "rate_limit_retries_total",
			Help:      "Total number of balance fetch retries after rate limiting",
		}),

		InvestmentsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "investment",
			Name:      "submissions_total",
			Help:      "Investment submissions by outcome",
		}, []string{"outcome"}),
		InvestedLamports: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "investment",
			Name:      "invested_lamports_total",
			Help:      "Total lamports transferred by recorded investments",
		}),
		UnrecordedTransfers: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "investment",
			Name:      "unrecorded_transfers_total",
			Help:      "Confirmed transfers whose investment record could not be persisted",
		}),
		AnalyticsWriteErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "investment",
			Name:      "analytics_write_errors_total",
			Help:      "Failed writes to the analytics mirror",
		}),

		DBQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"route", "code"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", prometheus.DefaultRegisterer)

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordConfirmation records how long confirmation took and how it ended.
func RecordConfirmation(outcome string, seconds float64) {
	DefaultMetrics.ConfirmationLatency.WithLabelValues(outcome).Observe(seconds)
}

// RecordBalanceLookup records a balance cache lookup result.
func RecordBalanceLookup(result string) {
	DefaultMetrics.BalanceCacheLookups.WithLabelValues(result).Inc()
}

// RecordRateLimitRetry increments the rate-limit retry counter.
func RecordRateLimitRetry() {
	DefaultMetrics.RateLimitRetries.Inc()
}

// RecordInvestment records a submission outcome. Lamports are counted only for "success".
func RecordInvestment(outcome string, lamports uint64) {
	DefaultMetrics.InvestmentsTotal.WithLabelValues(outcome).Inc()
	if outcome == "success" {
		DefaultMetrics.InvestedLamports.Add(float64(lamports))
	}
}

// RecordUnrecordedTransfer counts a confirmed transfer that was not persisted.
func RecordUnrecordedTransfer() {
	DefaultMetrics.UnrecordedTransfers.Inc()
}

// RecordAnalyticsError counts a failed analytics mirror write.
func RecordAnalyticsError() {
	DefaultMetrics.AnalyticsWriteErrors.Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordHTTPRequest counts a served HTTP request.
func RecordHTTPRequest(route, code string) {
	DefaultMetrics.HTTPRequests.WithLabelValues(route, code).Inc()
}
