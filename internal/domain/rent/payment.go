package rent

import (
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rentledger/backend/internal/domain/shared"
	"github.com/rentledger/backend/internal/domain/shared/valueobject"
)

// PaymentPurpose is what a payment pays for
type PaymentPurpose string

const (
	PurposeMonthlyRent     PaymentPurpose = "MONTHLY_RENT"
	PurposeSecurityDeposit PaymentPurpose = "SECURITY_DEPOSIT"
	PurposeBookingDeposit  PaymentPurpose = "BOOKING_DEPOSIT"
	PurposeUtilities       PaymentPurpose = "UTILITIES"
	PurposeMaintenanceFee  PaymentPurpose = "MAINTENANCE_FEE"
	PurposeLateFee         PaymentPurpose = "LATE_FEE"
	PurposeOther           PaymentPurpose = "OTHER"
)

// AllPaymentPurposes lists every purpose in display order
var AllPaymentPurposes = []PaymentPurpose{
	PurposeMonthlyRent, PurposeSecurityDeposit, PurposeBookingDeposit,
	PurposeUtilities, PurposeMaintenanceFee, PurposeLateFee, PurposeOther,
}

// IsValid checks if the purpose is a valid PaymentPurpose
func (p PaymentPurpose) IsValid() bool {
	switch p {
	case PurposeMonthlyRent, PurposeSecurityDeposit, PurposeBookingDeposit,
		PurposeUtilities, PurposeMaintenanceFee, PurposeLateFee, PurposeOther:
		return true
	}
	return false
}

// String returns the string representation of PaymentPurpose
func (p PaymentPurpose) String() string {
	return string(p)
}

// IsDeposit returns true for purposes credited to Tenancy.DepositPaid
func (p PaymentPurpose) IsDeposit() bool {
	switch p {
	case PurposeSecurityDeposit, PurposeBookingDeposit:
		return true
	case PurposeMonthlyRent, PurposeUtilities, PurposeMaintenanceFee, PurposeLateFee, PurposeOther:
		return false
	}
	return false
}

// CountsAsRent returns true for purposes summed into the rent-paid aggregate
func (p PaymentPurpose) CountsAsRent() bool {
	switch p {
	case PurposeMonthlyRent:
		return true
	case PurposeSecurityDeposit, PurposeBookingDeposit, PurposeUtilities,
		PurposeMaintenanceFee, PurposeLateFee, PurposeOther:
		return false
	}
	return false
}

// RequiresBillingMonths returns true if a payment with this purpose must name the months it covers
func (p PaymentPurpose) RequiresBillingMonths() bool {
	return p.CountsAsRent()
}

// PaymentMethod represents the method of payment
type PaymentMethod string

const (
	MethodCash         PaymentMethod = "CASH"
	MethodMobileMoney  PaymentMethod = "MOBILE_MONEY"
	MethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	MethodCreditCard   PaymentMethod = "CREDIT_CARD"
	MethodDebitCard    PaymentMethod = "DEBIT_CARD"
)

// IsValid checks if the payment method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case MethodCash, MethodMobileMoney, MethodBankTransfer, MethodCreditCard, MethodDebitCard:
		return true
	}
	return false
}

// String returns the string representation of PaymentMethod
func (m PaymentMethod) String() string {
	return string(m)
}

// PaymentStatus represents the processing state of a payment
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "PENDING"
	PaymentStatusProcessing PaymentStatus = "PROCESSING"
	PaymentStatusSuccess    PaymentStatus = "SUCCESS"
	PaymentStatusFailed     PaymentStatus = "FAILED"
	PaymentStatusRefunded   PaymentStatus = "REFUNDED"
	PaymentStatusCancelled  PaymentStatus = "CANCELLED"
)

// IsValid checks if the status is a valid PaymentStatus
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusProcessing, PaymentStatusSuccess,
		PaymentStatusFailed, PaymentStatusRefunded, PaymentStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of PaymentStatus
func (s PaymentStatus) String() string {
	return string(s)
}

// CountsTowardBalance returns true if the payment contributes to paid totals
func (s PaymentStatus) CountsTowardBalance() bool {
	switch s {
	case PaymentStatusSuccess:
		return true
	case PaymentStatusPending, PaymentStatusProcessing, PaymentStatusFailed,
		PaymentStatusRefunded, PaymentStatusCancelled:
		return false
	}
	return false
}

// CanRefund returns true if the payment can be refunded in this status
func (s PaymentStatus) CanRefund() bool {
	return s == PaymentStatusSuccess
}

// NewTransactionID generates a globally unique transaction identifier.
// It is time-ordered (UUIDv7) so receipts sort naturally.
func NewTransactionID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return "TXN-" + strings.ToUpper(hex.EncodeToString(id[:]))
}

// Payment is a single entry in a tenancy's ledger.
// Amount, purpose, billing months and transaction ID are immutable; only the
// status moves forward through refund corrections.
type Payment struct {
	shared.BaseEntity
	TenancyID      uuid.UUID
	Amount         valueobject.Money
	Purpose        PaymentPurpose
	Method         PaymentMethod
	BillingMonths  []valueobject.Period
	Status         PaymentStatus
	TransactionID  string
	Reference      string
	Note           string
	PaidAt         *time.Time
	RecordedBy     *uuid.UUID
	IdempotencyKey string
	RefundedAt     *time.Time
	RefundReason   string
}

// NewPayment validates and creates a SUCCESS payment paid at paidAt.
// Billing months are sorted; duplicates are rejected.
func NewPayment(
	tenancyID uuid.UUID,
	amount valueobject.Money,
	purpose PaymentPurpose,
	method PaymentMethod,
	billingMonths []valueobject.Period,
	paidAt time.Time,
) (*Payment, error) {
	if tenancyID == uuid.Nil {
		return nil, shared.NewValidationError("tenancy ID cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, shared.NewValidationError("amount must be greater than zero")
	}
	if !purpose.IsValid() {
		return nil, shared.NewValidationError("invalid payment purpose %q", purpose)
	}
	if !method.IsValid() {
		return nil, shared.NewValidationError("invalid payment method %q", method)
	}
	if purpose.RequiresBillingMonths() && len(billingMonths) == 0 {
		return nil, shared.NewValidationError("%s payment must cover at least one billing month", purpose)
	}
	months, err := distinctPeriods(billingMonths)
	if err != nil {
		return nil, err
	}
	if paidAt.IsZero() {
		paidAt = time.Now()
	}

	return &Payment{
		BaseEntity:    shared.NewBaseEntity(),
		TenancyID:     tenancyID,
		Amount:        amount,
		Purpose:       purpose,
		Method:        method,
		BillingMonths: months,
		Status:        PaymentStatusSuccess,
		TransactionID: NewTransactionID(),
		PaidAt:        &paidAt,
	}, nil
}

func distinctPeriods(in []valueobject.Period) ([]valueobject.Period, error) {
	out := make([]valueobject.Period, 0, len(in))
	seen := make(map[valueobject.Period]struct{}, len(in))
	for _, p := range in {
		if p.IsZero() {
			return nil, shared.NewValidationError("billing month cannot be empty")
		}
		if _, dup := seen[p]; dup {
			return nil, shared.NewValidationError("billing month %s is listed more than once", p)
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	valueobject.SortPeriods(out)
	return out, nil
}

// SetRecordedBy stores the operator that recorded the payment
func (p *Payment) SetRecordedBy(userID uuid.UUID) {
	if userID != uuid.Nil {
		p.RecordedBy = &userID
	}
}

// CountsAsRentPaid returns true if the payment adds to the rent-paid total
func (p *Payment) CountsAsRentPaid() bool {
	return p.Status.CountsTowardBalance() && p.Purpose.CountsAsRent()
}

// Refund moves a SUCCESS payment to REFUNDED
func (p *Payment) Refund(reason string, at time.Time) error {
	if !p.Status.CanRefund() {
		return shared.NewInvalidStateError("cannot refund payment %s in %s status", p.TransactionID, p.Status)
	}
	if strings.TrimSpace(reason) == "" {
		return shared.NewValidationError("refund reason is required")
	}
	if at.IsZero() {
		at = time.Now()
	}
	p.Status = PaymentStatusRefunded
	p.RefundedAt = &at
	p.RefundReason = reason
	p.UpdatedAt = at
	return nil
}
