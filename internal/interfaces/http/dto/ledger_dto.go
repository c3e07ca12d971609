package dto

import "time"

// CreateTenancyRequest opens a tenancy on an unoccupied unit
type CreateTenancyRequest struct {
	UnitID           string `json:"unit_id" binding:"required,uuid"`
	TenantID         string `json:"tenant_id" binding:"required,uuid"`
	StartDate        string `json:"start_date" binding:"required,datetime=2006-01-02"`
	MonthlyRentMinor int64  `json:"monthly_rent_minor" binding:"required,gt=0"`
	DepositPaidMinor int64  `json:"deposit_paid_minor" binding:"gte=0"`
	Currency         string `json:"currency" binding:"omitempty,len=3"`
	Note             string `json:"note" binding:"max=500"`
}

// TerminateTenancyRequest ends a tenancy
type TerminateTenancyRequest struct {
	EndDate string `json:"end_date" binding:"required,datetime=2006-01-02"`
}

// ListTenanciesQuery filters GET /tenancies
type ListTenanciesQuery struct {
	UnitID   string `form:"unit_id" binding:"omitempty,uuid"`
	TenantID string `form:"tenant_id" binding:"omitempty,uuid"`
	Status   string `form:"status" binding:"omitempty,oneof=ACTIVE TERMINATED"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// AsOfQuery carries the optional as_of instant of balance queries.
// Accepts a date (YYYY-MM-DD) or an RFC 3339 timestamp.
type AsOfQuery struct {
	AsOf string `form:"as_of"`
}

// SuggestedAmountQuery asks for the default amount of N months
type SuggestedAmountQuery struct {
	Months int `form:"months" binding:"required,min=1,max=120"`
}

// RecordPaymentRequest appends a payment to a tenancy ledger
type RecordPaymentRequest struct {
	AmountMinor   int64      `json:"amount_minor" binding:"required"`
	Currency      string     `json:"currency" binding:"omitempty,len=3"`
	Purpose       string     `json:"purpose" binding:"required"`
	Method        string     `json:"method" binding:"required"`
	BillingMonths []string   `json:"billing_months" binding:"omitempty,dive,period"`
	PaidAt        *time.Time `json:"paid_at"`
	Reference     string     `json:"reference" binding:"max=100"`
	Note          string     `json:"note" binding:"max=500"`
}

// RefundPaymentRequest corrects a SUCCESS payment
type RefundPaymentRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Version  string `json:"version,omitempty"`
}
