package rent

import (
	"time"

	"github.com/google/uuid"
	"github.com/rentledger/backend/internal/domain/shared/valueobject"
)

// TenantSnapshot is the tenant and unit identity printed on a receipt
type TenantSnapshot struct {
	TenantID  uuid.UUID `json:"tenant_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	UnitID    uuid.UUID `json:"unit_id"`
	UnitLabel string    `json:"unit_label,omitempty"`
}

// Receipt is a flat, immutable view of a payment and the balance at the moment it was recorded
type Receipt struct {
	PaymentID     uuid.UUID            `json:"payment_id"`
	TenancyID     uuid.UUID            `json:"tenancy_id"`
	TransactionID string               `json:"transaction_id"`
	IssuedAt      time.Time            `json:"issued_at"`
	Method        PaymentMethod        `json:"method"`
	Purpose       PaymentPurpose       `json:"purpose"`
	Amount        valueobject.Money    `json:"amount"`
	CoveredMonths []valueobject.Period `json:"covered_months"`
	Tenant        TenantSnapshot       `json:"tenant"`
	TotalDue      valueobject.Money    `json:"total_due"`
	TotalPaid     valueobject.Money    `json:"total_paid"`
	DepositCredit valueobject.Money    `json:"deposit_credit"`
	Balance       valueobject.Money    `json:"balance"`
	MonthsOverdue int                  `json:"months_overdue"`
}

// ProjectReceipt builds the receipt for a payment from the report computed when it was recorded.
// It performs no recomputation.
func ProjectReceipt(p *Payment, report BalanceReport, tenant TenantSnapshot) Receipt {
	issued := p.CreatedAt
	if p.PaidAt != nil {
		issued = *p.PaidAt
	}
	months := make([]valueobject.Period, len(p.BillingMonths))
	copy(months, p.BillingMonths)

	return Receipt{
		PaymentID:     p.ID,
		TenancyID:     p.TenancyID,
		TransactionID: p.TransactionID,
		IssuedAt:      issued,
		Method:        p.Method,
		Purpose:       p.Purpose,
		Amount:        p.Amount,
		CoveredMonths: months,
		Tenant:        tenant,
		TotalDue:      report.TotalDue,
		TotalPaid:     report.TotalPaid,
		DepositCredit: report.DepositCredit,
		Balance:       report.Balance,
		MonthsOverdue: report.MonthsOverdue,
	}
}
