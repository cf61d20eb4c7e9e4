package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the voucher service.
type Metrics struct {
	VouchersIssued      prometheus.Counter
	RedemptionsSettled  prometheus.Counter
	RedemptionsRejected *prometheus.CounterVec
	AuditRowsWritten    prometheus.Counter
	AuditAppendFailures prometheus.Counter
	PendingStaged       prometheus.Counter
	PendingConsumed     prometheus.Counter
	PendingExpired      prometheus.Counter
	SettlementDuration  prometheus.Histogram
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		VouchersIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voucher_ledger_vouchers_issued_total",
			Help: "Total number of vouchers issued across all tranches",
		}),
		RedemptionsSettled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voucher_ledger_redemptions_settled_total",
			Help: "Total number of redemption transactions settled",
		}),
		RedemptionsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "voucher_ledger_redemptions_rejected_total",
			Help: "Total number of redemption attempts rejected, by reason",
		}, []string{"reason"}),
		AuditRowsWritten: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voucher_ledger_audit_rows_written_total",
			Help: "Total number of rows appended to hourly settlement CSVs",
		}),
		AuditAppendFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voucher_ledger_audit_append_failures_total",
			Help: "Total number of failed settlement CSV appends (ledger state unaffected)",
		}),
		PendingStaged: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voucher_ledger_pending_staged_total",
			Help: "Total number of staged pending redemption requests",
		}),
		PendingConsumed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voucher_ledger_pending_consumed_total",
			Help: "Total number of pending redemption requests consumed by a confirm",
		}),
		PendingExpired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voucher_ledger_pending_expired_total",
			Help: "Total number of pending redemption requests that expired unresolved",
		}),
		SettlementDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "voucher_ledger_settlement_duration_seconds",
			Help:    "Latency of confirm-redemption settlement calls",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncRejected increments the rejection counter for a reason label.
func (m *Metrics) IncRejected(reason string) {
	if m == nil {
		return
	}
	m.RedemptionsRejected.WithLabelValues(reason).Inc()
}
