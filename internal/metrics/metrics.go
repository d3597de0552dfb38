package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ledger operations
	LedgerOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalmarket_ledger_operations_total",
			Help: "Total number of mutating ledger operations",
		},
		[]string{"operation", "result"}, // create_market/place_bet/resolve/claim, ok or a reason code
	)

	LedgerOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "signalmarket_ledger_operation_duration_seconds",
			Help:    "Duration of mutating ledger operations including lock wait",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)

	// Money flow, in whole token units
	StakeVolume = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "signalmarket_stake_volume_units_total",
			Help: "Total stake accepted into pools",
		},
	)

	PayoutVolume = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "signalmarket_payout_volume_units_total",
			Help: "Total payouts released to winners",
		},
	)

	MarketsClosed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "signalmarket_markets_closed_total",
			Help: "Total number of markets closed by the deadline sweeper",
		},
	)

	ReportsArchived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalmarket_settlement_reports_total",
			Help: "Total number of settlement reports archived",
		},
		[]string{"status"}, // success/error
	)

	// HTTP
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalmarket_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "signalmarket_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "signalmarket_ws_connections",
			Help: "Open websocket connections",
		},
	)
)

// RecordLedgerOperation records one mutating ledger call. result is "ok" or
// the rejection reason code.
func RecordLedgerOperation(operation, result string, duration time.Duration) {
	LedgerOperations.WithLabelValues(operation, result).Inc()
	LedgerOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordStake records an accepted stake.
func RecordStake(units float64) {
	StakeVolume.Add(units)
}

// RecordPayout records a released payout.
func RecordPayout(units float64) {
	PayoutVolume.Add(units)
}

// RecordMarketsClosed records markets closed by one sweep.
func RecordMarketsClosed(n int) {
	MarketsClosed.Add(float64(n))
}

// RecordReportArchived records a settlement report upload
func RecordReportArchived(err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	ReportsArchived.WithLabelValues(status).Inc()
}

// RecordHTTPRequest records HTTP request metrics
func RecordHTTPRequest(route, status string, duration time.Duration) {
	HTTPRequests.WithLabelValues(route, status).Inc()
	HTTPRequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}
