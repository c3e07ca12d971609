package rent

import (
	"context"

	"github.com/google/uuid"
	"github.com/rentledger/backend/internal/domain/shared"
)

// TenancyFilter defines filtering options for tenancy queries
type TenancyFilter struct {
	shared.Filter
	UnitID   *uuid.UUID
	TenantID *uuid.UUID
	Status   *TenancyStatus
}

// TenancyRepository defines the interface for tenancy persistence.
// Finders return (nil, nil) when nothing matches.
type TenancyRepository interface {
	// FindByID finds a tenancy by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Tenancy, error)

	// FindByIDForUpdate finds a tenancy and locks its row until the surrounding transaction ends
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Tenancy, error)

	// FindActiveByUnit finds the ACTIVE tenancy of a unit
	FindActiveByUnit(ctx context.Context, unitID uuid.UUID) (*Tenancy, error)

	// FindAll finds tenancies matching the filter and the total match count
	FindAll(ctx context.Context, filter TenancyFilter) ([]Tenancy, int64, error)

	// Create inserts a new tenancy
	Create(ctx context.Context, tenancy *Tenancy) error

	// SaveWithLock updates a tenancy if its stored version is one behind the in-memory version.
	// Returns a CONCURRENCY_CONFLICT error otherwise.
	SaveWithLock(ctx context.Context, tenancy *Tenancy) error
}

// PaymentRepository defines the interface for ledger persistence.
// Payments are appended and their status corrected; they are never deleted.
type PaymentRepository interface {
	// FindByID finds a payment by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)

	// FindByTenancy returns a tenancy's payments in ledger order
	FindByTenancy(ctx context.Context, tenancyID uuid.UUID) ([]*Payment, error)

	// FindByIdempotencyKey finds the payment recorded for a client idempotency key
	FindByIdempotencyKey(ctx context.Context, tenancyID uuid.UUID, key string) (*Payment, error)

	// Create appends a payment. A duplicate transaction ID yields a CONCURRENCY_CONFLICT error.
	Create(ctx context.Context, payment *Payment) error

	// UpdateStatus persists a status correction (refund)
	UpdateStatus(ctx context.Context, payment *Payment) error
}

// ReceiptRepository stores receipt snapshots
type ReceiptRepository interface {
	// FindByPaymentID finds the receipt issued for a payment
	FindByPaymentID(ctx context.Context, paymentID uuid.UUID) (*Receipt, error)

	// Create stores a receipt snapshot
	Create(ctx context.Context, receipt *Receipt) error
}

// TenantDirectory resolves tenant and unit display identity.
// It is owned by the property management side of the application.
type TenantDirectory interface {
	Lookup(ctx context.Context, tenantID, unitID uuid.UUID) (TenantSnapshot, error)
}
