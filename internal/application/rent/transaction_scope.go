package rent

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rentledger/backend/internal/domain/rent"
)

// TransactionScope provides transactional access to ledger repositories.
// All repository operations inside Execute commit or roll back together.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories exposes repositories sharing one transaction.
//   - TenancyRepo: the Tenancy aggregate root; holds depositPaid and the version used to serialize writers.
//   - PaymentRepo: the append-only ledger.
//   - ReceiptRepo: receipt snapshots written alongside each payment.
type TransactionalRepositories interface {
	TenancyRepo() rent.TenancyRepository
	PaymentRepo() rent.PaymentRepository
	ReceiptRepo() rent.ReceiptRepository
}

// NoOpTransactionScope runs the function against plain repositories without a transaction.
// Used in tests.
type NoOpTransactionScope struct {
	tenancyRepo rent.TenancyRepository
	paymentRepo rent.PaymentRepository
	receiptRepo rent.ReceiptRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	tenancyRepo rent.TenancyRepository,
	paymentRepo rent.PaymentRepository,
	receiptRepo rent.ReceiptRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		tenancyRepo: tenancyRepo,
		paymentRepo: paymentRepo,
		receiptRepo: receiptRepo,
	}
}

// Execute runs fn directly.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

func (s *NoOpTransactionScope) TenancyRepo() rent.TenancyRepository { return s.tenancyRepo }
func (s *NoOpTransactionScope) PaymentRepo() rent.PaymentRepository { return s.paymentRepo }
func (s *NoOpTransactionScope) ReceiptRepo() rent.ReceiptRepository { return s.receiptRepo }

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)

// Clock supplies the instant used as asOf when a caller does not pass one
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock always returns the same instant
type FixedClock time.Time

func (c FixedClock) Now() time.Time { return time.Time(c) }

func tenancyLockKey(id uuid.UUID) string {
	return "tenancy:" + id.String()
}

func unitLockKey(id uuid.UUID) string {
	return "unit:" + id.String()
}
