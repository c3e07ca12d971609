package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	rentapp "github.com/rentledger/backend/internal/application/rent"
	"github.com/rentledger/backend/internal/domain/shared"
	"github.com/rentledger/backend/internal/infrastructure/cache"
	"github.com/rentledger/backend/internal/infrastructure/lock"
	"github.com/rentledger/backend/internal/infrastructure/persistence"
	"github.com/rentledger/backend/internal/infrastructure/persistence/models"
	"github.com/rentledger/backend/internal/interfaces/http/dto"
	"github.com/rentledger/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var testNow = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

type envelope[T any] struct {
	Success bool           `json:"success"`
	Data    T              `json:"data"`
	Error   *dto.ErrorInfo `json:"error"`
	Meta    *dto.Meta      `json:"meta"`
}

type apiFixture struct {
	engine   *gin.Engine
	db       *gorm.DB
	operator uuid.UUID
	unitID   uuid.UUID
	tenantID uuid.UUID
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	require.NoError(t, middleware.SetupValidator())

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(persistence.LedgerModels()...))

	f := &apiFixture{db: db, operator: uuid.New(), unitID: uuid.New(), tenantID: uuid.New()}

	directory := persistence.NewGormTenantDirectory(db)
	ctx := context.Background()
	require.NoError(t, directory.SaveProfile(ctx, &models.TenantProfileModel{ID: f.tenantID, Name: "Wanjiru Kamau", Phone: "+254700000001"}))
	require.NoError(t, directory.SaveUnit(ctx, &models.UnitModel{ID: f.unitID, Label: "Block C, 12"}))

	store := cache.NewInMemoryIdempotencyStore(time.Minute)
	t.Cleanup(func() { _ = store.Close() })

	locker := lock.NewLocalLocker(time.Second)
	scope := persistence.NewGormTransactionScope(db)
	tenancyRepo := persistence.NewGormTenancyRepository(db)

	tenancies := rentapp.NewTenancyService(scope, tenancyRepo, locker, zap.NewNop())
	ledger := rentapp.NewLedgerService(scope, tenancyRepo,
		persistence.NewGormPaymentRepository(db),
		persistence.NewGormReceiptRepository(db),
		locker, zap.NewNop(),
		rentapp.WithClock(rentapp.FixedClock(testNow)),
		rentapp.WithTenantDirectory(directory),
		rentapp.WithIdempotencyStore(store, shared.IdempotencyConfig{Enabled: true, TTL: time.Hour}),
	)

	th := NewTenancyHandler(tenancies)
	lh := NewLedgerHandler(ledger)
	hh := NewHealthHandler(sqlDB, "test")

	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.GET("/health", hh.Health)

	api := engine.Group("/api/v1", func(c *gin.Context) {
		c.Set(middleware.OperatorIDKey, f.operator)
		c.Next()
	})
	api.POST("/tenancies", th.Create)
	api.GET("/tenancies", th.List)
	api.GET("/tenancies/:id", th.GetByID)
	api.POST("/tenancies/:id/terminate", th.Terminate)
	api.GET("/tenancies/:id/balance", lh.Balance)
	api.GET("/tenancies/:id/overdue-months", lh.OverdueMonths)
	api.GET("/tenancies/:id/payments", lh.Payments)
	api.POST("/tenancies/:id/payments", lh.RecordPayment)
	api.POST("/tenancies/:id/payments/:paymentId/refund", lh.RefundPayment)
	api.GET("/tenancies/:id/paid-months", lh.PaidMonths)
	api.GET("/tenancies/:id/suggested-amount", lh.SuggestedAmount)
	api.GET("/tenancies/:id/statement.xlsx", lh.Statement)
	api.GET("/payments/:paymentId/receipt", lh.Receipt)

	f.engine = engine
	return f
}

func (f *apiFixture) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var env envelope[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

// createTenancy opens a KES 5,000.00/month tenancy starting 2025-01-01 and returns its id
func (f *apiFixture) createTenancy(t *testing.T) string {
	t.Helper()
	w := f.do(t, http.MethodPost, "/api/v1/tenancies", gin.H{
		"unit_id":            f.unitID,
		"tenant_id":          f.tenantID,
		"start_date":         "2025-01-01",
		"monthly_rent_minor": 500000,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[rentapp.TenancyResponse](t, w).Data.ID.String()
}

func (f *apiFixture) pay(t *testing.T, tenancyID string, body gin.H, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	return f.do(t, http.MethodPost, "/api/v1/tenancies/"+tenancyID+"/payments", body, headers...)
}
