package rent

import (
	"errors"
	"testing"
	"time"

	"github.com/rentledger/backend/internal/domain/shared"
	"github.com/rentledger/backend/internal/domain/shared/valueobject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// record mirrors what the payment recorder does: create, fold into the tenancy, append.
func record(t *testing.T, tenancy *Tenancy, ledger *Ledger, amount int64, purpose PaymentPurpose, billing ...string) *Payment {
	t.Helper()
	p, err := NewPayment(tenancy.ID, kes(amount), purpose, MethodCash, months(billing...), date(2025, 3, 15))
	require.NoError(t, err)
	require.NoError(t, tenancy.ApplyPayment(p))
	require.NoError(t, ledger.Append(p))
	return p
}

func mustBalance(t *testing.T, tenancy *Tenancy, ledger *Ledger, asOf time.Time) BalanceReport {
	t.Helper()
	report, err := CalculateBalance(tenancy, ledger, asOf)
	require.NoError(t, err)
	return report
}

func TestCalculateBalance_Scenarios(t *testing.T) {
	tenancy := newTestTenancy(t, date(2025, 1, 1))
	ledger, err := NewLedger(tenancy.ID, nil)
	require.NoError(t, err)
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

	t.Run("no payments", func(t *testing.T) {
		r := mustBalance(t, tenancy, ledger, now)
		assert.Equal(t, 3, r.MonthsElapsed)
		assert.Equal(t, int64(1500000), r.TotalDue.Minor())
		assert.Equal(t, int64(0), r.TotalPaid.Minor())
		assert.Equal(t, int64(1500000), r.Balance.Minor())
		assert.Equal(t, 3, r.MonthsOverdue)
	})

	t.Run("single month rent", func(t *testing.T) {
		record(t, tenancy, ledger, 500000, PurposeMonthlyRent, "2025-01")
		r := mustBalance(t, tenancy, ledger, now)
		assert.Equal(t, int64(500000), r.TotalPaid.Minor())
		assert.Equal(t, int64(1000000), r.Balance.Minor())
		assert.Equal(t, 2, r.MonthsOverdue)
	})

	t.Run("multi-month rent", func(t *testing.T) {
		record(t, tenancy, ledger, 1000000, PurposeMonthlyRent, "2025-02", "2025-03")
		r := mustBalance(t, tenancy, ledger, now)
		assert.Equal(t, int64(1500000), r.TotalPaid.Minor())
		assert.Equal(t, int64(0), r.Balance.Minor())
		assert.Equal(t, 0, r.MonthsOverdue)
		assert.Equal(t, 2, r.MonthsPaid)
		assert.Equal(t, 3, r.MonthsCovered)
		assert.True(t, r.IsSettled())
	})

	t.Run("security deposit", func(t *testing.T) {
		record(t, tenancy, ledger, 500000, PurposeSecurityDeposit)
		r := mustBalance(t, tenancy, ledger, now)
		assert.Equal(t, int64(500000), tenancy.DepositPaid.Minor())
		assert.Equal(t, int64(500000), r.DepositCredit.Minor())
		assert.Equal(t, int64(-500000), r.Balance.Minor())
		assert.Equal(t, int64(1500000), r.TotalPaid.Minor())
		assert.Equal(t, 0, r.MonthsOverdue)
	})

	t.Run("terminated tenancy freezes", func(t *testing.T) {
		require.NoError(t, tenancy.Terminate(date(2025, 3, 20)))
		atEnd := mustBalance(t, tenancy, ledger, time.Date(2025, 3, 20, 18, 0, 0, 0, time.UTC))
		later := mustBalance(t, tenancy, ledger, date(2025, 6, 1))
		assert.True(t, atEnd.SameFigures(later))
		assert.Equal(t, 3, later.MonthsElapsed)
		assert.Equal(t, date(2025, 3, 20), later.EffectiveDate)
	})

	t.Run("rent without billing months is rejected", func(t *testing.T) {
		before := ledger.Len()
		deposit := tenancy.DepositPaid
		_, err := NewPayment(tenancy.ID, kes(500000), PurposeMonthlyRent, MethodCash, []valueobject.Period{}, now)
		assert.True(t, errors.Is(err, shared.ErrValidation))
		assert.Equal(t, before, ledger.Len())
		assert.True(t, deposit.Equals(tenancy.DepositPaid))
	})
}

func TestCalculateBalance_MinimumOneMonth(t *testing.T) {
	tests := []struct {
		name  string
		start time.Time
		asOf  time.Time
	}{
		{"started today", date(2025, 5, 10), date(2025, 5, 10)},
		{"started later this month", date(2025, 5, 28), date(2025, 5, 1)},
		{"starts next year", date(2026, 1, 1), date(2025, 5, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tenancy := newTestTenancy(t, tt.start)
			ledger, err := NewLedger(tenancy.ID, nil)
			require.NoError(t, err)

			r := mustBalance(t, tenancy, ledger, tt.asOf)
			assert.Equal(t, 1, r.MonthsElapsed)
			assert.Equal(t, int64(testRent), r.TotalDue.Minor())
		})
	}
}

func TestCalculateBalance_FutureEndDateUsesAsOf(t *testing.T) {
	tenancy := newTestTenancy(t, date(2025, 1, 1))
	require.NoError(t, tenancy.Terminate(date(2025, 12, 31)))
	ledger, err := NewLedger(tenancy.ID, nil)
	require.NoError(t, err)

	r := mustBalance(t, tenancy, ledger, date(2025, 4, 2))
	assert.Equal(t, 4, r.MonthsElapsed)
}

func TestCalculateBalance_SameInstantAnyZone(t *testing.T) {
	tenancy := newTestTenancy(t, date(2025, 1, 1))
	ledger, err := NewLedger(tenancy.ID, nil)
	require.NoError(t, err)

	instant := time.Date(2025, 4, 1, 4, 30, 0, 0, time.UTC)
	utc := mustBalance(t, tenancy, ledger, instant)
	west := mustBalance(t, tenancy, ledger, instant.In(time.FixedZone("UTC-5", -5*60*60)))
	east := mustBalance(t, tenancy, ledger, instant.In(time.FixedZone("UTC+9", 9*60*60)))

	assert.Equal(t, 4, utc.MonthsElapsed)
	assert.Equal(t, int64(4*testRent), utc.TotalDue.Minor())
	assert.True(t, utc.SameFigures(west))
	assert.True(t, utc.SameFigures(east))
	assert.Equal(t, date(2025, 4, 1), west.EffectiveDate)
}

func TestCalculateBalance_PartialPaymentRoundsOverdueUp(t *testing.T) {
	tenancy := newTestTenancy(t, date(2025, 1, 1))
	ledger, err := NewLedger(tenancy.ID, nil)
	require.NoError(t, err)
	record(t, tenancy, ledger, 200000, PurposeMonthlyRent, "2025-01")

	r := mustBalance(t, tenancy, ledger, date(2025, 2, 10))
	assert.Equal(t, int64(800000), r.Balance.Minor())
	assert.Equal(t, 2, r.MonthsOverdue)
}

func TestCalculateBalance_IgnoresNonRentAndRefunded(t *testing.T) {
	tenancy := newTestTenancy(t, date(2025, 1, 1))
	ledger, err := NewLedger(tenancy.ID, nil)
	require.NoError(t, err)

	record(t, tenancy, ledger, 7000, PurposeUtilities)
	record(t, tenancy, ledger, 2000, PurposeLateFee)
	refunded := record(t, tenancy, ledger, 500000, PurposeMonthlyRent, "2025-01")
	require.NoError(t, refunded.Refund("bounced", date(2025, 1, 20)))

	r := mustBalance(t, tenancy, ledger, date(2025, 1, 31))
	assert.True(t, r.TotalPaid.IsZero())
	assert.Equal(t, 0, r.MonthsPaid)
	assert.Equal(t, 0, r.MonthsCovered)
	assert.Equal(t, months("2025-01"), OverdueMonths(tenancy, ledger, date(2025, 1, 31)))
}

func TestCalculateBalance_Properties(t *testing.T) {
	t.Run("monotonic in successful rent payments", func(t *testing.T) {
		tenancy := newTestTenancy(t, date(2024, 6, 1))
		ledger, err := NewLedger(tenancy.ID, nil)
		require.NoError(t, err)
		asOf := date(2025, 3, 1)

		prev := mustBalance(t, tenancy, ledger, asOf)
		for i, amount := range []int64{1, 499999, 500000, 1250000, 3} {
			record(t, tenancy, ledger, amount, PurposeMonthlyRent, valueobject.MustParsePeriod("2024-06").AddMonths(i).String())
			next := mustBalance(t, tenancy, ledger, asOf)

			assert.GreaterOrEqual(t, next.TotalPaid.Minor(), prev.TotalPaid.Minor())
			assert.LessOrEqual(t, next.Balance.Minor(), prev.Balance.Minor())
			assert.GreaterOrEqual(t, next.TotalDue.Minor(), tenancy.MonthlyRent.Minor())
			prev = next
		}
	})

	t.Run("idempotent read", func(t *testing.T) {
		tenancy := newTestTenancy(t, date(2025, 1, 1))
		ledger, err := NewLedger(tenancy.ID, nil)
		require.NoError(t, err)
		record(t, tenancy, ledger, 123456, PurposeMonthlyRent, "2025-01")
		asOf := date(2025, 2, 14)

		assert.Equal(t, mustBalance(t, tenancy, ledger, asOf), mustBalance(t, tenancy, ledger, asOf))
	})

	t.Run("deposit isolation", func(t *testing.T) {
		tenancy := newTestTenancy(t, date(2025, 1, 1))
		ledger, err := NewLedger(tenancy.ID, nil)
		require.NoError(t, err)
		asOf := date(2025, 2, 14)

		before := mustBalance(t, tenancy, ledger, asOf)
		depositBefore := tenancy.DepositPaid.Minor()
		record(t, tenancy, ledger, 250000, PurposeBookingDeposit)
		after := mustBalance(t, tenancy, ledger, asOf)

		assert.Equal(t, depositBefore+250000, tenancy.DepositPaid.Minor())
		assert.True(t, before.TotalPaid.Equals(after.TotalPaid))
		assert.Equal(t, before.Balance.Minor()-250000, after.Balance.Minor())
	})
}

func TestCalculateBalance_RejectsForeignLedger(t *testing.T) {
	tenancy := newTestTenancy(t, date(2025, 1, 1))
	other := newTestTenancy(t, date(2025, 1, 1))
	ledger, err := NewLedger(other.ID, nil)
	require.NoError(t, err)

	_, err = CalculateBalance(tenancy, ledger, date(2025, 2, 1))
	assert.True(t, errors.Is(err, shared.ErrValidation))
}

func TestOverdueMonths(t *testing.T) {
	tenancy := newTestTenancy(t, date(2024, 11, 15))
	ledger, err := NewLedger(tenancy.ID, nil)
	require.NoError(t, err)
	record(t, tenancy, ledger, 500000, PurposeMonthlyRent, "2024-12")
	record(t, tenancy, ledger, 500000, PurposeMonthlyRent, "2025-06")

	got := OverdueMonths(tenancy, ledger, date(2025, 2, 3))
	assert.Equal(t, months("2024-11", "2025-01", "2025-02"), got)

	require.NoError(t, tenancy.Terminate(date(2025, 1, 5)))
	assert.Equal(t, months("2024-11", "2025-01"), OverdueMonths(tenancy, ledger, date(2025, 8, 1)))
}

func TestSuggestedAmount(t *testing.T) {
	tenancy := newTestTenancy(t, date(2025, 1, 1))

	amount, err := SuggestedAmount(tenancy, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(1500000), amount.Minor())

	_, err = SuggestedAmount(tenancy, 0)
	assert.True(t, errors.Is(err, shared.ErrValidation))
}

func TestParseAsOf(t *testing.T) {
	got, err := ParseAsOf("")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = ParseAsOf(" 2025-03-20 ")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC), *got)

	got, err = ParseAsOf("2025-03-20T23:30:00+03:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 20, 20, 30, 0, 0, time.UTC), *got)
	assert.Equal(t, time.UTC, got.Location())

	for _, bad := range []string{"20/03/2025", "2025-3-20", "now"} {
		_, err := ParseAsOf(bad)
		assert.True(t, errors.Is(err, shared.ErrInvalidFormat), bad)
	}
}
