package rent

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rentledger/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedger_Append(t *testing.T) {
	tenancyID := uuid.New()
	ledger, err := NewLedger(tenancyID, nil)
	require.NoError(t, err)

	p, err := NewPayment(tenancyID, kes(1), PurposeOther, MethodCash, nil, date(2025, 1, 1))
	require.NoError(t, err)
	require.NoError(t, ledger.Append(p))
	assert.Equal(t, 1, ledger.Len())
	assert.Same(t, p, ledger.Find(p.ID))
	assert.Nil(t, ledger.Find(uuid.New()))

	t.Run("duplicate transaction id conflicts", func(t *testing.T) {
		dup := *p
		dup.ID = uuid.New()
		err := ledger.Append(&dup)
		assert.True(t, errors.Is(err, shared.ErrConcurrencyConflict))
		assert.Equal(t, 1, ledger.Len())
	})

	t.Run("foreign payment rejected", func(t *testing.T) {
		foreign, err := NewPayment(uuid.New(), kes(1), PurposeOther, MethodCash, nil, date(2025, 1, 1))
		require.NoError(t, err)
		assert.True(t, errors.Is(ledger.Append(foreign), shared.ErrValidation))
	})

	t.Run("nil rejected", func(t *testing.T) {
		assert.Error(t, ledger.Append(nil))
	})
}

func TestNewLedger_RejectsDuplicates(t *testing.T) {
	tenancyID := uuid.New()
	p, err := NewPayment(tenancyID, kes(1), PurposeOther, MethodCash, nil, date(2025, 1, 1))
	require.NoError(t, err)

	_, err = NewLedger(tenancyID, []*Payment{p, p})
	assert.True(t, errors.Is(err, shared.ErrConcurrencyConflict))
}

func TestLedger_Queries(t *testing.T) {
	tenancyID := uuid.New()
	rentJan, _ := NewPayment(tenancyID, kes(testRent), PurposeMonthlyRent, MethodCash, months("2025-01"), date(2025, 1, 3))
	deposit, _ := NewPayment(tenancyID, kes(testRent), PurposeSecurityDeposit, MethodCash, nil, date(2025, 1, 3))
	rentFebMar, _ := NewPayment(tenancyID, kes(testRent*2), PurposeMonthlyRent, MethodCash, months("2025-03", "2025-02"), date(2025, 2, 3))
	rentJanAgain, _ := NewPayment(tenancyID, kes(100), PurposeMonthlyRent, MethodCash, months("2025-01"), date(2025, 2, 4))
	refunded, _ := NewPayment(tenancyID, kes(testRent), PurposeMonthlyRent, MethodCash, months("2025-04"), date(2025, 2, 5))
	require.NoError(t, refunded.Refund("duplicate", date(2025, 2, 6)))

	ledger, err := NewLedger(tenancyID, []*Payment{rentJan, deposit, rentFebMar, rentJanAgain, refunded})
	require.NoError(t, err)

	assert.Len(t, ledger.Payments(), 5)
	assert.Equal(t, []*Payment{rentJan, rentFebMar, rentJanAgain}, ledger.SuccessfulRentPayments())
	assert.Equal(t, months("2025-01", "2025-02", "2025-03"), ledger.PaidMonths())

	t.Run("payments copy is detached", func(t *testing.T) {
		ps := ledger.Payments()
		ps[0] = nil
		assert.NotNil(t, ledger.Payments()[0])
	})
}
