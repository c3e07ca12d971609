package rent

import (
	"time"

	"github.com/rentledger/backend/internal/domain/shared/valueobject"
)

// Statement is a full account of one tenancy as of an instant
type Statement struct {
	Tenancy  *Tenancy
	Payments []*Payment
	Balance  BalanceReport
	Overdue  []valueobject.Period
	AsOf     time.Time
}

// BuildStatement assembles the statement from a tenancy and its ledger
func BuildStatement(t *Tenancy, ledger *Ledger, asOf time.Time) (Statement, error) {
	report, err := CalculateBalance(t, ledger, asOf)
	if err != nil {
		return Statement{}, err
	}
	return Statement{
		Tenancy:  t,
		Payments: ledger.Payments(),
		Balance:  report,
		Overdue:  OverdueMonths(t, ledger, asOf),
		AsOf:     asOf,
	}, nil
}

// TotalsByPurpose sums SUCCESS payments per purpose, in AllPaymentPurposes order
func (s Statement) TotalsByPurpose() []PurposeTotal {
	totals := make(map[PaymentPurpose]valueobject.Money)
	for _, p := range s.Payments {
		if !p.Status.CountsTowardBalance() {
			continue
		}
		sum, ok := totals[p.Purpose]
		if !ok {
			sum = valueobject.Zero(p.Amount.Currency())
		}
		totals[p.Purpose] = sum.MustAdd(p.Amount)
	}

	out := make([]PurposeTotal, 0, len(totals))
	for _, purpose := range AllPaymentPurposes {
		if sum, ok := totals[purpose]; ok {
			out = append(out, PurposeTotal{Purpose: purpose, Total: sum})
		}
	}
	return out
}

// PurposeTotal is one row of TotalsByPurpose
type PurposeTotal struct {
	Purpose PaymentPurpose
	Total   valueobject.Money
}
