package rent

import (
	"github.com/google/uuid"
	"github.com/rentledger/backend/internal/domain/shared"
	"github.com/rentledger/backend/internal/domain/shared/valueobject"
)

// Ledger is the append-only payment history of a single tenancy
type Ledger struct {
	tenancyID uuid.UUID
	payments  []*Payment
	byTxn     map[string]struct{}
}

// NewLedger builds a ledger from stored payments, in stored order
func NewLedger(tenancyID uuid.UUID, payments []*Payment) (*Ledger, error) {
	l := &Ledger{
		tenancyID: tenancyID,
		payments:  make([]*Payment, 0, len(payments)),
		byTxn:     make(map[string]struct{}, len(payments)),
	}
	for _, p := range payments {
		if err := l.Append(p); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// TenancyID returns the tenancy this ledger belongs to
func (l *Ledger) TenancyID() uuid.UUID {
	return l.tenancyID
}

// Append adds a payment to the end of the ledger
func (l *Ledger) Append(p *Payment) error {
	if p == nil {
		return shared.NewValidationError("payment cannot be nil")
	}
	if p.TenancyID != l.tenancyID {
		return shared.NewValidationError("payment %s belongs to tenancy %s, not %s", p.ID, p.TenancyID, l.tenancyID)
	}
	if _, dup := l.byTxn[p.TransactionID]; dup {
		return shared.NewConflictError("transaction ID %s already exists", p.TransactionID)
	}
	l.byTxn[p.TransactionID] = struct{}{}
	l.payments = append(l.payments, p)
	return nil
}

// Len returns the number of entries
func (l *Ledger) Len() int {
	return len(l.payments)
}

// Payments returns every entry, including deposits and non-successful ones
func (l *Ledger) Payments() []*Payment {
	out := make([]*Payment, len(l.payments))
	copy(out, l.payments)
	return out
}

// SuccessfulRentPayments returns SUCCESS payments with purpose MONTHLY_RENT
func (l *Ledger) SuccessfulRentPayments() []*Payment {
	out := make([]*Payment, 0, len(l.payments))
	for _, p := range l.payments {
		if p.CountsAsRentPaid() {
			out = append(out, p)
		}
	}
	return out
}

// PaidMonths returns the billing months covered by at least one SUCCESS rent payment, sorted
func (l *Ledger) PaidMonths() []valueobject.Period {
	seen := make(map[valueobject.Period]struct{})
	out := make([]valueobject.Period, 0)
	for _, p := range l.SuccessfulRentPayments() {
		for _, m := range p.BillingMonths {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	valueobject.SortPeriods(out)
	return out
}

// Find returns the payment with the given ID, or nil
func (l *Ledger) Find(paymentID uuid.UUID) *Payment {
	for _, p := range l.payments {
		if p.ID == paymentID {
			return p
		}
	}
	return nil
}
