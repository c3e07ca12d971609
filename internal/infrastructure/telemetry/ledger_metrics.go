package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName is the instrumentation scope of ledger metrics
const MeterName = "rentledger"

// ErrMeterNil is returned when metrics are built without a meter
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// LedgerMetrics counts ledger writes and times the locked section.
type LedgerMetrics struct {
	paymentsRecorded *Counter
	amountRecorded   *Counter
	paymentsRefunded *Counter
	replays          *Counter
	conflicts        *Counter
	writeDuration    *Histogram
}

// NewLedgerMetrics registers the ledger instruments on meter.
func NewLedgerMetrics(meter metric.Meter) (*LedgerMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	var (
		m   LedgerMetrics
		err error
	)
	if m.paymentsRecorded, err = NewCounter(meter, "rent_payments_recorded_total", "Payments appended to tenancy ledgers", "{payments}"); err != nil {
		return nil, err
	}
	if m.amountRecorded, err = NewCounter(meter, "rent_payment_amount_minor_total", "Recorded payment amounts in currency minor units", "{minor}"); err != nil {
		return nil, err
	}
	if m.paymentsRefunded, err = NewCounter(meter, "rent_payments_refunded_total", "Payments moved to REFUNDED", "{payments}"); err != nil {
		return nil, err
	}
	if m.replays, err = NewCounter(meter, "rent_idempotent_replays_total", "Record requests answered from an idempotency key", "{requests}"); err != nil {
		return nil, err
	}
	if m.conflicts, err = NewCounter(meter, "rent_write_conflicts_total", "Ledger writes rejected by lock or version checks", "{writes}"); err != nil {
		return nil, err
	}
	if m.writeDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "rent_ledger_write_duration_seconds",
		Description: "Time spent inside the per-tenancy locked section",
		Unit:        "s",
		Boundaries:  SmallDurationBuckets,
	}); err != nil {
		return nil, err
	}
	return &m, nil
}

// PaymentRecorded counts one appended payment
func (m *LedgerMetrics) PaymentRecorded(ctx context.Context, purpose, method, currency string, amountMinor int64) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{AttrPurpose.String(purpose), AttrMethod.String(method), AttrCurrency.String(currency)}
	m.paymentsRecorded.Inc(ctx, attrs...)
	m.amountRecorded.Add(ctx, amountMinor, attrs...)
}

// PaymentRefunded counts one refund correction
func (m *LedgerMetrics) PaymentRefunded(ctx context.Context, purpose string) {
	if m == nil {
		return
	}
	m.paymentsRefunded.Inc(ctx, AttrPurpose.String(purpose))
}

// IdempotentReplay counts a request served from a stored idempotency key
func (m *LedgerMetrics) IdempotentReplay(ctx context.Context) {
	if m == nil {
		return
	}
	m.replays.Inc(ctx)
}

// WriteConflict counts a rejected concurrent write
func (m *LedgerMetrics) WriteConflict(ctx context.Context, operation string) {
	if m == nil {
		return
	}
	m.conflicts.Inc(ctx, AttrOperation.String(operation))
}

// ObserveWrite records how long a locked ledger write took
func (m *LedgerMetrics) ObserveWrite(ctx context.Context, operation string, d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.writeDuration.RecordDuration(ctx, d, AttrOperation.String(operation), AttrOutcome.String(outcome))
}
