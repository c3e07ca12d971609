package rent

import (
	"time"

	"github.com/google/uuid"
	"github.com/rentledger/backend/internal/domain/shared"
	"github.com/rentledger/backend/internal/domain/shared/valueobject"
)

// Event type names
const (
	EventTypeTenancyCreated    = "TenancyCreated"
	EventTypeTenancyTerminated = "TenancyTerminated"
	EventTypePaymentRecorded   = "PaymentRecorded"
	EventTypePaymentRefunded   = "PaymentRefunded"

	aggregateTypeTenancy = "Tenancy"
)

// TenancyCreatedEvent is raised when a unit is assigned to a tenant
type TenancyCreatedEvent struct {
	shared.BaseDomainEvent
	TenancyID   uuid.UUID         `json:"tenancy_id"`
	UnitID      uuid.UUID         `json:"unit_id"`
	TenantID    uuid.UUID         `json:"tenant_id"`
	StartDate   time.Time         `json:"start_date"`
	MonthlyRent valueobject.Money `json:"monthly_rent"`
	DepositPaid valueobject.Money `json:"deposit_paid"`
}

// NewTenancyCreatedEvent creates a new TenancyCreatedEvent
func NewTenancyCreatedEvent(t *Tenancy) *TenancyCreatedEvent {
	return &TenancyCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTenancyCreated, aggregateTypeTenancy, t.ID),
		TenancyID:       t.ID,
		UnitID:          t.UnitID,
		TenantID:        t.TenantID,
		StartDate:       t.StartDate,
		MonthlyRent:     t.MonthlyRent,
		DepositPaid:     t.DepositPaid,
	}
}

// TenancyTerminatedEvent is raised when a tenancy ends
type TenancyTerminatedEvent struct {
	shared.BaseDomainEvent
	TenancyID uuid.UUID `json:"tenancy_id"`
	UnitID    uuid.UUID `json:"unit_id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	EndDate   time.Time `json:"end_date"`
}

// NewTenancyTerminatedEvent creates a new TenancyTerminatedEvent
func NewTenancyTerminatedEvent(t *Tenancy) *TenancyTerminatedEvent {
	var end time.Time
	if t.EndDate != nil {
		end = *t.EndDate
	}
	return &TenancyTerminatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTenancyTerminated, aggregateTypeTenancy, t.ID),
		TenancyID:       t.ID,
		UnitID:          t.UnitID,
		TenantID:        t.TenantID,
		EndDate:         end,
	}
}

// PaymentRecordedEvent is raised when a payment is appended to the ledger
type PaymentRecordedEvent struct {
	shared.BaseDomainEvent
	TenancyID     uuid.UUID            `json:"tenancy_id"`
	TenantID      uuid.UUID            `json:"tenant_id"`
	PaymentID     uuid.UUID            `json:"payment_id"`
	TransactionID string               `json:"transaction_id"`
	Amount        valueobject.Money    `json:"amount"`
	Purpose       PaymentPurpose       `json:"purpose"`
	Method        PaymentMethod        `json:"method"`
	BillingMonths []valueobject.Period `json:"billing_months"`
}

// NewPaymentRecordedEvent creates a new PaymentRecordedEvent
func NewPaymentRecordedEvent(t *Tenancy, p *Payment) *PaymentRecordedEvent {
	return &PaymentRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentRecorded, aggregateTypeTenancy, t.ID),
		TenancyID:       t.ID,
		TenantID:        t.TenantID,
		PaymentID:       p.ID,
		TransactionID:   p.TransactionID,
		Amount:          p.Amount,
		Purpose:         p.Purpose,
		Method:          p.Method,
		BillingMonths:   p.BillingMonths,
	}
}

// PaymentRefundedEvent is raised when a payment is refunded
type PaymentRefundedEvent struct {
	shared.BaseDomainEvent
	TenancyID     uuid.UUID         `json:"tenancy_id"`
	TenantID      uuid.UUID         `json:"tenant_id"`
	PaymentID     uuid.UUID         `json:"payment_id"`
	TransactionID string            `json:"transaction_id"`
	Amount        valueobject.Money `json:"amount"`
	Purpose       PaymentPurpose    `json:"purpose"`
	Reason        string            `json:"reason"`
}

// NewPaymentRefundedEvent creates a new PaymentRefundedEvent
func NewPaymentRefundedEvent(t *Tenancy, p *Payment) *PaymentRefundedEvent {
	return &PaymentRefundedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentRefunded, aggregateTypeTenancy, t.ID),
		TenancyID:       t.ID,
		TenantID:        t.TenantID,
		PaymentID:       p.ID,
		TransactionID:   p.TransactionID,
		Amount:          p.Amount,
		Purpose:         p.Purpose,
		Reason:          p.RefundReason,
	}
}
