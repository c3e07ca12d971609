package persistence

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	apprent "github.com/rentledger/backend/internal/application/rent"
	"github.com/rentledger/backend/internal/domain/rent"
	"github.com/rentledger/backend/internal/infrastructure/lock"
	"github.com/rentledger/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestGormTransactionScope_RollsBack(t *testing.T) {
	db := setupLedgerTestDB(t)
	scope := NewGormTransactionScope(db)
	ctx := context.Background()
	boom := errors.New("boom")

	tenancy := newTenancy(t)
	err := scope.Execute(ctx, func(repos apprent.TransactionalRepositories) error {
		if err := repos.TenancyRepo().Create(ctx, tenancy); err != nil {
			return err
		}
		if err := repos.PaymentRepo().Create(ctx, newRentPayment(t, tenancy.ID, "2025-01")); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var tenancies, payments int64
	require.NoError(t, db.Model(&models.TenancyModel{}).Count(&tenancies).Error)
	require.NoError(t, db.Model(&models.PaymentModel{}).Count(&payments).Error)
	assert.Zero(t, tenancies)
	assert.Zero(t, payments)
}

func TestLedgerService_OnSQLite(t *testing.T) {
	db := setupLedgerTestDB(t)
	scope := NewGormTransactionScope(db)
	locker := lock.NewLocalLocker(5 * time.Second)
	tenancyRepo := NewGormTenancyRepository(db)
	directory := NewGormTenantDirectory(db)
	ctx := context.Background()

	tenancies := apprent.NewTenancyService(scope, tenancyRepo, locker, zap.NewNop())
	ledger := apprent.NewLedgerService(scope, tenancyRepo, NewGormPaymentRepository(db), NewGormReceiptRepository(db), locker, zap.NewNop(),
		apprent.WithTenantDirectory(directory),
		apprent.WithClock(apprent.FixedClock(time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC))),
	)

	tenantID, unitID := uuid.New(), uuid.New()
	now := time.Now()
	require.NoError(t, directory.SaveProfile(ctx, &models.TenantProfileModel{ID: tenantID, Name: "Achieng Otieno", CreatedAt: now, UpdatedAt: now}))

	created, err := tenancies.Create(ctx, apprent.CreateTenancyCommand{
		UnitID: unitID, TenantID: tenantID, StartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), MonthlyRentMinor: 500000,
	})
	require.NoError(t, err)

	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := ledger.RecordPayment(ctx, apprent.RecordPaymentCommand{
				TenancyID:      created.ID,
				AmountMinor:    250000,
				Purpose:        string(rent.PurposeMonthlyRent),
				Method:         string(rent.MethodCash),
				BillingMonths:  []string{fmt.Sprintf("2025-%02d", i+1)},
				IdempotencyKey: fmt.Sprintf("req-%d", i),
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	balance, err := ledger.ComputeBalance(ctx, created.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(writers*250000), balance.TotalPaid.Minor())
	assert.Equal(t, int64(1500000-writers*250000), balance.Balance.Minor())

	reloaded, err := tenancies.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 1+writers, reloaded.Version)

	replay, err := ledger.RecordPayment(ctx, apprent.RecordPaymentCommand{
		TenancyID:      created.ID,
		AmountMinor:    250000,
		Purpose:        string(rent.PurposeMonthlyRent),
		Method:         string(rent.MethodCash),
		BillingMonths:  []string{"2025-01"},
		IdempotencyKey: "req-0",
	})
	require.NoError(t, err)
	assert.True(t, replay.Replayed)
	assert.Equal(t, "Achieng Otieno", replay.Receipt.Tenant.Name)

	payments, err := ledger.PaymentsFor(ctx, created.ID)
	require.NoError(t, err)
	assert.Len(t, payments, writers)
}
