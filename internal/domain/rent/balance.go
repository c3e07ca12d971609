package rent

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rentledger/backend/internal/domain/shared"
	"github.com/rentledger/backend/internal/domain/shared/valueobject"
)

// BalanceReport is the derived due/paid/overdue snapshot of a tenancy at a point in time
type BalanceReport struct {
	TenancyID uuid.UUID `json:"tenancy_id"`
	AsOf      time.Time `json:"as_of"`
	// EffectiveDate is the date the figures were computed through:
	// the end date of a terminated tenancy, otherwise AsOf.
	EffectiveDate time.Time         `json:"effective_date"`
	TotalDue      valueobject.Money `json:"total_due"`
	TotalPaid     valueobject.Money `json:"total_paid"`
	DepositCredit valueobject.Money `json:"deposit_credit"`
	// Balance is TotalDue - TotalPaid - DepositCredit. Positive means owed.
	Balance       valueobject.Money `json:"balance"`
	MonthsElapsed int               `json:"months_elapsed"`
	// MonthsPaid counts successful rent transactions, not months covered
	MonthsPaid    int `json:"months_paid"`
	MonthsCovered int `json:"months_covered"`
	MonthsOverdue int `json:"months_overdue"`
}

// IsSettled returns true when nothing is owed
func (r BalanceReport) IsSettled() bool {
	return !r.Balance.IsPositive()
}

// SameFigures reports whether two reports carry identical money and month figures
func (r BalanceReport) SameFigures(other BalanceReport) bool {
	return r.TotalDue.Equals(other.TotalDue) &&
		r.TotalPaid.Equals(other.TotalPaid) &&
		r.DepositCredit.Equals(other.DepositCredit) &&
		r.Balance.Equals(other.Balance) &&
		r.MonthsElapsed == other.MonthsElapsed &&
		r.MonthsPaid == other.MonthsPaid &&
		r.MonthsCovered == other.MonthsCovered &&
		r.MonthsOverdue == other.MonthsOverdue
}

// ParseAsOf accepts a YYYY-MM-DD date or an RFC 3339 instant and returns it in UTC.
// Empty means now.
func ParseAsOf(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, value, time.UTC)
	if err != nil {
		return nil, shared.NewFormatError("as of must be YYYY-MM-DD or an RFC 3339 timestamp, got %q", value)
	}
	return &t, nil
}

// effectiveDate is endDate (if any) clamped so it never exceeds asOf
func effectiveDate(t *Tenancy, asOf time.Time) time.Time {
	asOfDate := DateOf(asOf)
	if t.EndDate != nil && t.EndDate.Before(asOfDate) {
		return *t.EndDate
	}
	return asOfDate
}

// MonthsElapsed counts billing months from the start through the effective date, minimum 1
func MonthsElapsed(t *Tenancy, asOf time.Time) int {
	n := valueobject.MonthsBetweenInclusive(t.StartPeriod(), valueobject.PeriodOf(effectiveDate(t, asOf)))
	if n < 1 {
		return 1
	}
	return n
}

// CalculateBalance computes the balance report of a tenancy as of the given instant.
// It is a pure function of its inputs.
func CalculateBalance(t *Tenancy, ledger *Ledger, asOf time.Time) (BalanceReport, error) {
	if t == nil || ledger == nil {
		return BalanceReport{}, shared.NewValidationError("tenancy and ledger are required")
	}
	if ledger.TenancyID() != t.ID {
		return BalanceReport{}, shared.NewValidationError("ledger belongs to tenancy %s, not %s", ledger.TenancyID(), t.ID)
	}
	if !t.MonthlyRent.IsPositive() {
		return BalanceReport{}, shared.NewValidationError("tenancy %s has no positive monthly rent", t.ID)
	}

	cur := t.Currency()
	elapsed := MonthsElapsed(t, asOf)

	totalDue, err := t.MonthlyRent.MultiplyByInt(int64(elapsed))
	if err != nil {
		return BalanceReport{}, err
	}

	totalPaid := valueobject.Zero(cur)
	rentPayments := ledger.SuccessfulRentPayments()
	for _, p := range rentPayments {
		if totalPaid, err = totalPaid.Add(p.Amount); err != nil {
			return BalanceReport{}, err
		}
	}

	balance, err := totalDue.Subtract(totalPaid)
	if err != nil {
		return BalanceReport{}, err
	}
	if balance, err = balance.Subtract(t.DepositPaid); err != nil {
		return BalanceReport{}, err
	}

	overdue := 0
	if balance.IsPositive() {
		rent := t.MonthlyRent.Minor()
		overdue = int((balance.Minor() + rent - 1) / rent)
	}

	return BalanceReport{
		TenancyID:     t.ID,
		AsOf:          asOf,
		EffectiveDate: effectiveDate(t, asOf),
		TotalDue:      totalDue,
		TotalPaid:     totalPaid,
		DepositCredit: t.DepositPaid,
		Balance:       balance,
		MonthsElapsed: elapsed,
		MonthsPaid:    len(rentPayments),
		MonthsCovered: len(ledger.PaidMonths()),
		MonthsOverdue: overdue,
	}, nil
}

// OverdueMonths lists the elapsed billing months not covered by a successful rent payment, in order
func OverdueMonths(t *Tenancy, ledger *Ledger, asOf time.Time) []valueobject.Period {
	paid := make(map[valueobject.Period]struct{})
	for _, m := range ledger.PaidMonths() {
		paid[m] = struct{}{}
	}
	out := make([]valueobject.Period, 0)
	for _, m := range valueobject.PeriodRange(t.StartPeriod(), MonthsElapsed(t, asOf)) {
		if _, ok := paid[m]; !ok {
			out = append(out, m)
		}
	}
	return out
}

// SuggestedAmount is the default amount for paying n months at the tenancy's rent.
// It is a convenience for callers and is never enforced when recording.
func SuggestedAmount(t *Tenancy, months int) (valueobject.Money, error) {
	if months < 1 {
		return valueobject.Money{}, shared.NewValidationError("number of months must be at least 1, got %d", months)
	}
	return t.MonthlyRent.MultiplyByInt(int64(months))
}
