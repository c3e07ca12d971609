package rent

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectReceipt(t *testing.T) {
	tenancy := newTestTenancy(t, date(2025, 1, 1))
	ledger, err := NewLedger(tenancy.ID, nil)
	require.NoError(t, err)
	p := record(t, tenancy, ledger, 1000000, PurposeMonthlyRent, "2025-01", "2025-02")
	report := mustBalance(t, tenancy, ledger, date(2025, 3, 15))

	snapshot := TenantSnapshot{TenantID: tenancy.TenantID, Name: "Achieng Otieno", Email: "achieng@example.com", UnitID: tenancy.UnitID, UnitLabel: "B4"}
	receipt := ProjectReceipt(p, report, snapshot)

	assert.Equal(t, p.ID, receipt.PaymentID)
	assert.Equal(t, p.TransactionID, receipt.TransactionID)
	assert.Equal(t, *p.PaidAt, receipt.IssuedAt)
	assert.Equal(t, months("2025-01", "2025-02"), receipt.CoveredMonths)
	assert.Equal(t, snapshot, receipt.Tenant)
	assert.Equal(t, int64(1500000), receipt.TotalDue.Minor())
	assert.Equal(t, int64(1000000), receipt.TotalPaid.Minor())
	assert.Equal(t, int64(500000), receipt.Balance.Minor())
	assert.Equal(t, 1, receipt.MonthsOverdue)

	t.Run("later payments do not alter the receipt", func(t *testing.T) {
		record(t, tenancy, ledger, 500000, PurposeMonthlyRent, "2025-03")
		assert.Equal(t, int64(500000), receipt.Balance.Minor())
	})

	t.Run("covered months are copied", func(t *testing.T) {
		p.BillingMonths[0] = p.BillingMonths[1]
		assert.Equal(t, "2025-01", receipt.CoveredMonths[0].String())
	})

	t.Run("falls back to created time", func(t *testing.T) {
		unpaid := &Payment{TenancyID: uuid.New()}
		unpaid.CreatedAt = date(2025, 5, 5)
		assert.Equal(t, date(2025, 5, 5), ProjectReceipt(unpaid, report, TenantSnapshot{}).IssuedAt)
	})
}
