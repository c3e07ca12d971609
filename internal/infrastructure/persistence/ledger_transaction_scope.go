package persistence

import (
	"context"

	apprent "github.com/rentledger/backend/internal/application/rent"
	"github.com/rentledger/backend/internal/domain/rent"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// The tenancy update, payment insert and receipt insert commit or roll back together.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos apprent.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// TenancyRepo returns the tenancy repository scoped to the current transaction.
func (r *gormTransactionalRepositories) TenancyRepo() rent.TenancyRepository {
	return NewGormTenancyRepository(r.tx)
}

// PaymentRepo returns the payment repository scoped to the current transaction.
func (r *gormTransactionalRepositories) PaymentRepo() rent.PaymentRepository {
	return NewGormPaymentRepository(r.tx)
}

// ReceiptRepo returns the receipt repository scoped to the current transaction.
func (r *gormTransactionalRepositories) ReceiptRepo() rent.ReceiptRepository {
	return NewGormReceiptRepository(r.tx)
}

var _ apprent.TransactionScope = (*GormTransactionScope)(nil)
var _ apprent.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
