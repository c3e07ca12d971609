package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	rentapp "github.com/rentledger/backend/internal/application/rent"
	"github.com/rentledger/backend/internal/bootstrap"
	"github.com/rentledger/backend/internal/infrastructure/auth"
	"github.com/rentledger/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

// seedTenancy points the environment at a fresh sqlite file holding one
// tenancy that started 2025-01-01 with one month paid.
func seedTenancy(t *testing.T) uuid.UUID {
	t.Helper()
	t.Setenv("RENT_DATABASE_DRIVER", "sqlite")
	t.Setenv("RENT_DATABASE_SQLITE_PATH", filepath.Join(t.TempDir(), "ledger.db"))

	cfg, err := config.Load()
	require.NoError(t, err)

	ctx := context.Background()
	c, err := bootstrap.Open(ctx, cfg, zap.NewNop(), bootstrap.Options{Migrate: true})
	require.NoError(t, err)
	defer c.Close()

	tenancy, err := c.Tenancies.Create(ctx, rentapp.CreateTenancyCommand{
		UnitID:           uuid.New(),
		TenantID:         uuid.New(),
		StartDate:        time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		MonthlyRentMinor: 500000,
	})
	require.NoError(t, err)
	_, err = c.Ledger.RecordPayment(ctx, rentapp.RecordPaymentCommand{
		TenancyID:     tenancy.ID,
		AmountMinor:   500000,
		Purpose:       "MONTHLY_RENT",
		Method:        "CASH",
		BillingMonths: []string{"2025-01"},
	})
	require.NoError(t, err)
	return tenancy.ID
}

func TestBalanceAndOverdue(t *testing.T) {
	id := seedTenancy(t)

	out, err := execute(t, "balance", id.String(), "--as-of", "2025-03-10")
	require.NoError(t, err)
	assert.Contains(t, out, "Months overdue  2")

	out, err = execute(t, "overdue", id.String(), "--as-of", "2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-02", "2025-03"}, strings.Split(out, "\n")[:2])

	out, err = execute(t, "overdue", id.String(), "--as-of", "2025-01-20")
	require.NoError(t, err)
	assert.Contains(t, out, "no overdue months")

	_, err = execute(t, "balance", uuid.NewString())
	assert.Error(t, err)
}

func TestStatement(t *testing.T) {
	id := seedTenancy(t)
	path := filepath.Join(t.TempDir(), "statement.xlsx")

	out, err := execute(t, "statement", id.String(), "-o", path, "--as-of", "2025-02-15")
	require.NoError(t, err)
	assert.Equal(t, path, strings.TrimSpace(out))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Summary", "Payments", "Overdue"}, f.GetSheetList())
}

func TestToken(t *testing.T) {
	t.Setenv("RENT_JWT_SECRET", "ledgerctl-test-secret")
	operator := uuid.New()

	out, err := execute(t, "token", "--operator", operator.String(), "--name", "Front desk", "--ttl", "1h")
	require.NoError(t, err)

	claims, err := auth.NewTokenService(config.JWTConfig{Secret: "ledgerctl-test-secret", Issuer: "rentledger"}).
		Verify(strings.TrimSpace(out))
	require.NoError(t, err)
	got, err := claims.OperatorID()
	require.NoError(t, err)
	assert.Equal(t, operator, got)
	assert.Equal(t, "Front desk", claims.Name)
}

func TestArgumentValidation(t *testing.T) {
	t.Setenv("RENT_JWT_SECRET", "")
	tests := []struct {
		name string
		args []string
	}{
		{"balance bad id", []string{"balance", "not-a-uuid"}},
		{"balance bad as-of", []string{"balance", uuid.NewString(), "--as-of", "March"}},
		{"overdue missing id", []string{"overdue"}},
		{"token without secret", []string{"token"}},
		{"token bad operator", []string{"token", "--operator", "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			assert.Error(t, err)
		})
	}
}
