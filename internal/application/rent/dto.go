package rent

import (
	"time"

	"github.com/google/uuid"
	"github.com/rentledger/backend/internal/domain/rent"
	"github.com/rentledger/backend/internal/domain/shared/valueobject"
)

// CreateTenancyCommand creates a tenancy for an unoccupied unit
type CreateTenancyCommand struct {
	UnitID           uuid.UUID
	TenantID         uuid.UUID
	StartDate        time.Time
	MonthlyRentMinor int64
	DepositPaidMinor int64
	Currency         string // empty means the configured default currency
	Note             string
}

// TerminateTenancyCommand ends a tenancy
type TerminateTenancyCommand struct {
	TenancyID uuid.UUID
	EndDate   time.Time
}

// TenancyListFilter narrows ListTenancies
type TenancyListFilter struct {
	UnitID   *uuid.UUID
	TenantID *uuid.UUID
	Status   string
	Page     int
	PageSize int
}

// RecordPaymentCommand appends a payment to a tenancy's ledger
type RecordPaymentCommand struct {
	TenancyID      uuid.UUID
	AmountMinor    int64
	Currency       string // empty means the tenancy's currency
	Purpose        string
	Method         string
	BillingMonths  []string
	PaidAt         *time.Time
	Reference      string
	Note           string
	RecordedBy     uuid.UUID
	IdempotencyKey string
}

// RefundPaymentCommand moves a SUCCESS payment to REFUNDED
type RefundPaymentCommand struct {
	TenancyID uuid.UUID
	PaymentID uuid.UUID
	Reason    string
}

// TenancyResponse represents a tenancy in API responses
type TenancyResponse struct {
	ID           uuid.UUID         `json:"id"`
	UnitID       uuid.UUID         `json:"unit_id"`
	TenantID     uuid.UUID         `json:"tenant_id"`
	StartDate    string            `json:"start_date"`
	EndDate      *string           `json:"end_date,omitempty"`
	MonthlyRent  valueobject.Money `json:"monthly_rent"`
	DepositPaid  valueobject.Money `json:"deposit_paid"`
	Status       string            `json:"status"`
	TerminatedAt *time.Time        `json:"terminated_at,omitempty"`
	Note         string            `json:"note,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
	Version      int               `json:"version"`
}

// PaymentResponse represents a ledger entry in API responses
type PaymentResponse struct {
	ID            uuid.UUID         `json:"id"`
	TenancyID     uuid.UUID         `json:"tenancy_id"`
	Amount        valueobject.Money `json:"amount"`
	Purpose       string            `json:"purpose"`
	Method        string            `json:"method"`
	BillingMonths []string          `json:"billing_months"`
	Status        string            `json:"status"`
	TransactionID string            `json:"transaction_id"`
	Reference     string            `json:"reference,omitempty"`
	Note          string            `json:"note,omitempty"`
	PaidAt        *time.Time        `json:"paid_at,omitempty"`
	RecordedBy    *uuid.UUID        `json:"recorded_by,omitempty"`
	RefundedAt    *time.Time        `json:"refunded_at,omitempty"`
	RefundReason  string            `json:"refund_reason,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

// BalanceResponse represents a balance report in API responses
type BalanceResponse struct {
	TenancyID     uuid.UUID         `json:"tenancy_id"`
	AsOf          time.Time         `json:"as_of"`
	EffectiveDate string            `json:"effective_date"`
	TotalDue      valueobject.Money `json:"total_due"`
	TotalPaid     valueobject.Money `json:"total_paid"`
	DepositCredit valueobject.Money `json:"deposit_credit"`
	Balance       valueobject.Money `json:"balance"`
	MonthsElapsed int               `json:"months_elapsed"`
	MonthsPaid    int               `json:"months_paid"`
	MonthsCovered int               `json:"months_covered"`
	MonthsOverdue int               `json:"months_overdue"`
	Settled       bool              `json:"settled"`
}

// RecordPaymentResult is the payment, the balance right after it and its receipt
type RecordPaymentResult struct {
	Payment  PaymentResponse `json:"payment"`
	Balance  BalanceResponse `json:"balance"`
	Receipt  rent.Receipt    `json:"receipt"`
	Replayed bool            `json:"replayed"`
}

// RefundPaymentResult is the corrected payment and the balance after the correction
type RefundPaymentResult struct {
	Payment PaymentResponse `json:"payment"`
	Balance BalanceResponse `json:"balance"`
}

// OverdueMonthsResponse lists uncovered billing months
type OverdueMonthsResponse struct {
	TenancyID       uuid.UUID         `json:"tenancy_id"`
	AsOf            time.Time         `json:"as_of"`
	Months          []string          `json:"months"`
	SuggestedAmount valueobject.Money `json:"suggested_amount"`
}

// PaidMonthsResponse lists billing months covered by a SUCCESS rent payment
type PaidMonthsResponse struct {
	TenancyID uuid.UUID `json:"tenancy_id"`
	Months    []string  `json:"months"`
}

// SuggestedAmountResponse is the default amount for paying a number of months
type SuggestedAmountResponse struct {
	TenancyID uuid.UUID         `json:"tenancy_id"`
	Months    int               `json:"months"`
	Amount    valueobject.Money `json:"amount"`
}

// ToTenancyResponse converts a domain Tenancy to TenancyResponse
func ToTenancyResponse(t *rent.Tenancy) TenancyResponse {
	resp := TenancyResponse{
		ID:           t.ID,
		UnitID:       t.UnitID,
		TenantID:     t.TenantID,
		StartDate:    t.StartDate.Format(time.DateOnly),
		MonthlyRent:  t.MonthlyRent,
		DepositPaid:  t.DepositPaid,
		Status:       string(t.Status),
		TerminatedAt: t.TerminatedAt,
		Note:         t.Note,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
		Version:      t.Version,
	}
	if t.EndDate != nil {
		end := t.EndDate.Format(time.DateOnly)
		resp.EndDate = &end
	}
	return resp
}

// ToTenancyResponses converts a slice of tenancies
func ToTenancyResponses(tenancies []rent.Tenancy) []TenancyResponse {
	out := make([]TenancyResponse, len(tenancies))
	for i := range tenancies {
		out[i] = ToTenancyResponse(&tenancies[i])
	}
	return out
}

// ToPaymentResponse converts a domain Payment to PaymentResponse
func ToPaymentResponse(p *rent.Payment) PaymentResponse {
	return PaymentResponse{
		ID:            p.ID,
		TenancyID:     p.TenancyID,
		Amount:        p.Amount,
		Purpose:       string(p.Purpose),
		Method:        string(p.Method),
		BillingMonths: periodStrings(p.BillingMonths),
		Status:        string(p.Status),
		TransactionID: p.TransactionID,
		Reference:     p.Reference,
		Note:          p.Note,
		PaidAt:        p.PaidAt,
		RecordedBy:    p.RecordedBy,
		RefundedAt:    p.RefundedAt,
		RefundReason:  p.RefundReason,
		CreatedAt:     p.CreatedAt,
	}
}

// ToPaymentResponses converts a slice of payments
func ToPaymentResponses(payments []*rent.Payment) []PaymentResponse {
	out := make([]PaymentResponse, len(payments))
	for i, p := range payments {
		out[i] = ToPaymentResponse(p)
	}
	return out
}

// ToBalanceResponse converts a BalanceReport to BalanceResponse
func ToBalanceResponse(r rent.BalanceReport) BalanceResponse {
	return BalanceResponse{
		TenancyID:     r.TenancyID,
		AsOf:          r.AsOf,
		EffectiveDate: r.EffectiveDate.Format(time.DateOnly),
		TotalDue:      r.TotalDue,
		TotalPaid:     r.TotalPaid,
		DepositCredit: r.DepositCredit,
		Balance:       r.Balance,
		MonthsElapsed: r.MonthsElapsed,
		MonthsPaid:    r.MonthsPaid,
		MonthsCovered: r.MonthsCovered,
		MonthsOverdue: r.MonthsOverdue,
		Settled:       r.IsSettled(),
	}
}

func periodStrings(ps []valueobject.Period) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.String()
	}
	return out
}
