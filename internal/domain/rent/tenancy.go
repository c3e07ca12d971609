package rent

import (
	"time"

	"github.com/google/uuid"
	"github.com/rentledger/backend/internal/domain/shared"
	"github.com/rentledger/backend/internal/domain/shared/valueobject"
)

// TenancyStatus represents the lifecycle state of a tenancy
type TenancyStatus string

const (
	TenancyStatusActive     TenancyStatus = "ACTIVE"
	TenancyStatusTerminated TenancyStatus = "TERMINATED"
)

// IsValid checks if the status is a valid TenancyStatus
func (s TenancyStatus) IsValid() bool {
	switch s {
	case TenancyStatusActive, TenancyStatusTerminated:
		return true
	}
	return false
}

// String returns the string representation of TenancyStatus
func (s TenancyStatus) String() string {
	return string(s)
}

// CanTerminate returns true if a tenancy in this status may be terminated
func (s TenancyStatus) CanTerminate() bool {
	return s == TenancyStatusActive
}

// Tenancy binds one tenant to one unit at a fixed monthly rent.
// MonthlyRent and StartDate never change after creation; a rent change is
// modelled as terminating this tenancy and creating a new one.
type Tenancy struct {
	shared.BaseAggregateRoot
	UnitID       uuid.UUID
	TenantID     uuid.UUID
	StartDate    time.Time
	EndDate      *time.Time
	MonthlyRent  valueobject.Money
	DepositPaid  valueobject.Money
	Status       TenancyStatus
	TerminatedAt *time.Time
	Note         string
}

// DateOf truncates the instant t to its UTC calendar date
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NewTenancy creates an ACTIVE tenancy
func NewTenancy(
	unitID, tenantID uuid.UUID,
	startDate time.Time,
	monthlyRent, depositPaid valueobject.Money,
) (*Tenancy, error) {
	if unitID == uuid.Nil {
		return nil, shared.NewValidationError("unit ID cannot be empty")
	}
	if tenantID == uuid.Nil {
		return nil, shared.NewValidationError("tenant ID cannot be empty")
	}
	if startDate.IsZero() {
		return nil, shared.NewValidationError("start date is required")
	}
	if !monthlyRent.IsPositive() {
		return nil, shared.NewValidationError("monthly rent must be greater than zero")
	}
	if depositPaid.IsNegative() {
		return nil, shared.NewValueError("deposit paid must not be negative")
	}
	if depositPaid.Currency() == "" {
		depositPaid = valueobject.Zero(monthlyRent.Currency())
	}
	if depositPaid.Currency() != monthlyRent.Currency() {
		return nil, shared.NewValidationError("deposit currency %s does not match rent currency %s", depositPaid.Currency(), monthlyRent.Currency())
	}

	t := &Tenancy{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		UnitID:            unitID,
		TenantID:          tenantID,
		StartDate:         DateOf(startDate),
		MonthlyRent:       monthlyRent,
		DepositPaid:       depositPaid,
		Status:            TenancyStatusActive,
	}

	t.AddDomainEvent(NewTenancyCreatedEvent(t))

	return t, nil
}

// Currency returns the single currency this tenancy is billed in
func (t *Tenancy) Currency() valueobject.Currency {
	return t.MonthlyRent.Currency()
}

// IsActive returns true if the tenancy has not been terminated
func (t *Tenancy) IsActive() bool {
	return t.Status == TenancyStatusActive
}

// StartPeriod returns the first billing month
func (t *Tenancy) StartPeriod() valueobject.Period {
	return valueobject.PeriodOf(t.StartDate)
}

// Terminate ends the tenancy on endDate
func (t *Tenancy) Terminate(endDate time.Time) error {
	if !t.Status.CanTerminate() {
		return shared.NewInvalidStateError("tenancy %s is already terminated", t.ID)
	}
	if endDate.IsZero() {
		return shared.NewValidationError("end date is required")
	}
	end := DateOf(endDate)
	if end.Before(t.StartDate) {
		return shared.NewInvalidStateError("end date %s is before start date %s",
			end.Format(time.DateOnly), t.StartDate.Format(time.DateOnly))
	}

	now := time.Now()
	t.EndDate = &end
	t.Status = TenancyStatusTerminated
	t.TerminatedAt = &now
	t.UpdatedAt = now
	t.IncrementVersion()

	t.AddDomainEvent(NewTenancyTerminatedEvent(t))

	return nil
}

// ApplyPayment folds a newly recorded payment into the tenancy.
// Deposit purposes increase DepositPaid; every payment bumps the version so
// concurrent appends against the same tenancy collide on save.
func (t *Tenancy) ApplyPayment(p *Payment) error {
	if p.TenancyID != t.ID {
		return shared.NewValidationError("payment %s does not belong to tenancy %s", p.ID, t.ID)
	}
	if p.Amount.Currency() != t.Currency() {
		return shared.NewValidationError("payment currency %s does not match tenancy currency %s", p.Amount.Currency(), t.Currency())
	}
	if p.Status == PaymentStatusSuccess && p.Purpose.IsDeposit() {
		total, err := t.DepositPaid.Add(p.Amount)
		if err != nil {
			return err
		}
		t.DepositPaid = total
	}

	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	t.AddDomainEvent(NewPaymentRecordedEvent(t, p))

	return nil
}

// ApplyRefund reverses the effect of a refunded payment on the tenancy
func (t *Tenancy) ApplyRefund(p *Payment) error {
	if p.TenancyID != t.ID {
		return shared.NewValidationError("payment %s does not belong to tenancy %s", p.ID, t.ID)
	}
	if p.Status != PaymentStatusRefunded {
		return shared.NewInvalidStateError("payment %s is %s, not REFUNDED", p.ID, p.Status)
	}
	if p.Purpose.IsDeposit() {
		total, err := t.DepositPaid.Subtract(p.Amount)
		if err != nil {
			return err
		}
		if total.IsNegative() {
			return shared.NewInvalidStateError("refunding %s would leave a negative deposit credit", p.Amount)
		}
		t.DepositPaid = total
	}

	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	t.AddDomainEvent(NewPaymentRefundedEvent(t, p))

	return nil
}
