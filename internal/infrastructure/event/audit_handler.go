package event

import (
	"context"

	"github.com/rentledger/backend/internal/domain/rent"
	"github.com/rentledger/backend/internal/domain/shared"
	"github.com/rentledger/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// LedgerAuditHandler writes one structured audit line per ledger event.
// Property managers reconcile against these lines, so every money movement
// carries its transaction id and amount in minor units.
type LedgerAuditHandler struct {
	logger *zap.Logger
}

// NewLedgerAuditHandler logs to l under the "audit" name.
func NewLedgerAuditHandler(l *zap.Logger) *LedgerAuditHandler {
	return &LedgerAuditHandler{logger: l.Named("audit")}
}

func (h *LedgerAuditHandler) EventTypes() []string {
	return []string{
		rent.EventTypeTenancyCreated,
		rent.EventTypeTenancyTerminated,
		rent.EventTypePaymentRecorded,
		rent.EventTypePaymentRefunded,
	}
}

func (h *LedgerAuditHandler) Handle(ctx context.Context, ev shared.DomainEvent) error {
	fields := []zap.Field{
		zap.String("event_id", ev.EventID().String()),
		zap.String("event_type", ev.EventType()),
		zap.Time("occurred_at", ev.OccurredAt()),
		zap.String("tenancy_id", ev.AggregateID().String()),
	}

	switch e := ev.(type) {
	case *rent.TenancyCreatedEvent:
		fields = append(fields,
			zap.String("unit_id", e.UnitID.String()),
			zap.String("tenant_id", e.TenantID.String()),
			zap.String("start_date", e.StartDate.Format("2006-01-02")),
			zap.Int64("monthly_rent_minor", e.MonthlyRent.Minor()),
			zap.String("currency", e.MonthlyRent.Currency().String()),
		)
	case *rent.TenancyTerminatedEvent:
		fields = append(fields,
			zap.String("unit_id", e.UnitID.String()),
			zap.String("end_date", e.EndDate.Format("2006-01-02")),
		)
	case *rent.PaymentRecordedEvent:
		months := make([]string, len(e.BillingMonths))
		for i, m := range e.BillingMonths {
			months[i] = m.String()
		}
		fields = append(fields,
			zap.String("payment_id", e.PaymentID.String()),
			zap.String("transaction_id", e.TransactionID),
			zap.Int64("amount_minor", e.Amount.Minor()),
			zap.String("currency", e.Amount.Currency().String()),
			zap.String("purpose", string(e.Purpose)),
			zap.String("method", string(e.Method)),
			zap.Strings("billing_months", months),
		)
	case *rent.PaymentRefundedEvent:
		fields = append(fields,
			zap.String("payment_id", e.PaymentID.String()),
			zap.String("transaction_id", e.TransactionID),
			zap.Int64("amount_minor", e.Amount.Minor()),
			zap.String("currency", e.Amount.Currency().String()),
			zap.String("purpose", string(e.Purpose)),
			zap.String("reason", e.Reason),
		)
	}

	logger.With(ctx, h.logger).Info("ledger event", fields...)
	return nil
}

var _ shared.EventHandler = (*LedgerAuditHandler)(nil)
