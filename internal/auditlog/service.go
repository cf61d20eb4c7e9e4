// Package auditlog projects settled transactions into hour-bucketed CSV files
// for merchant reimbursement. The ledger is the state of record; this log is
// a best-effort downstream projection whose failures go to an operator
// channel instead of rolling anything back.
package auditlog

import (
	"context"
	"log/slog"

	"voucher-ledger/internal/platform/metrics"
	"voucher-ledger/internal/settlement/models"
	"voucher-ledger/pkg/requestcontext"
)

// Service wraps the Writer with failure reporting. Append never propagates an
// error to the settlement path.
type Service struct {
	writer   *Writer
	notifier Notifier
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewService constructs the audit service. notifier may not be nil; pass a
// LogNotifier when no broker is configured.
func NewService(writer *Writer, notifier Notifier, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{writer: writer, notifier: notifier, logger: logger, metrics: m}
}

// Append records the transaction's rows in its hourly bucket. On failure the
// event is reported and counted; the caller's committed state is untouched.
func (s *Service) Append(ctx context.Context, tx *models.RedemptionTransaction) {
	if err := s.writer.Append(ctx, tx); err != nil {
		if s.metrics != nil {
			s.metrics.AuditAppendFailures.Inc()
		}
		s.notifier.AppendFailed(ctx, FailureEvent{
			TransactionID: tx.ID,
			HouseholdID:   tx.HouseholdID,
			MerchantID:    tx.MerchantID,
			Bucket:        BucketName(tx),
			Error:         err.Error(),
			OccurredAt:    requestcontext.Now(ctx),
		})
		return
	}
	if s.metrics != nil {
		s.metrics.AuditRowsWritten.Add(float64(len(tx.Vouchers)))
	}
}
