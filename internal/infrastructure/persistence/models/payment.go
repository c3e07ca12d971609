package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rentledger/backend/internal/domain/rent"
	"github.com/rentledger/backend/internal/domain/shared/valueobject"
)

// PaymentModel is the persistence model for a ledger entry.
// Rows are inserted once and only their refund columns are ever updated.
type PaymentModel struct {
	BaseModel
	TenancyID      uuid.UUID            `gorm:"type:uuid;not null;index;uniqueIndex:idx_payments_idempotency,priority:1"`
	AmountMinor    int64                `gorm:"not null"`
	Currency       string               `gorm:"type:varchar(3);not null"`
	Purpose        string               `gorm:"type:varchar(30);not null"`
	Method         string               `gorm:"type:varchar(30);not null"`
	BillingMonths  []valueobject.Period `gorm:"serializer:json;type:text"`
	Status         string               `gorm:"type:varchar(20);not null"`
	TransactionID  string               `gorm:"type:varchar(40);not null;uniqueIndex"`
	Reference      string               `gorm:"type:varchar(100)"`
	Note           string               `gorm:"type:text"`
	PaidAt         *time.Time
	RecordedBy     *uuid.UUID `gorm:"type:uuid"`
	IdempotencyKey *string    `gorm:"type:varchar(128);uniqueIndex:idx_payments_idempotency,priority:2"`
	RefundedAt     *time.Time
	RefundReason   string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a domain Payment
func (m *PaymentModel) ToDomain() (*rent.Payment, error) {
	amount, err := valueobject.NewMoney(m.AmountMinor, valueobject.Currency(m.Currency))
	if err != nil {
		return nil, fmt.Errorf("payment %s: %w", m.ID, err)
	}
	months := make([]valueobject.Period, len(m.BillingMonths))
	copy(months, m.BillingMonths)
	p := &rent.Payment{
		BaseEntity:    m.Entity(),
		TenancyID:     m.TenancyID,
		Amount:        amount,
		Purpose:       rent.PaymentPurpose(m.Purpose),
		Method:        rent.PaymentMethod(m.Method),
		BillingMonths: months,
		Status:        rent.PaymentStatus(m.Status),
		TransactionID: m.TransactionID,
		Reference:     m.Reference,
		Note:          m.Note,
		PaidAt:        m.PaidAt,
		RecordedBy:    m.RecordedBy,
		RefundedAt:    m.RefundedAt,
		RefundReason:  m.RefundReason,
	}
	if m.IdempotencyKey != nil {
		p.IdempotencyKey = *m.IdempotencyKey
	}
	return p, nil
}

// FromDomain populates the persistence model from a domain Payment.
// The idempotency key is stored as NULL when absent so the unique index ignores it.
func (m *PaymentModel) FromDomain(p *rent.Payment) {
	m.SetEntity(p.BaseEntity)
	m.TenancyID = p.TenancyID
	m.AmountMinor = p.Amount.Minor()
	m.Currency = string(p.Amount.Currency())
	m.Purpose = string(p.Purpose)
	m.Method = string(p.Method)
	m.BillingMonths = p.BillingMonths
	m.Status = string(p.Status)
	m.TransactionID = p.TransactionID
	m.Reference = p.Reference
	m.Note = p.Note
	m.PaidAt = p.PaidAt
	m.RecordedBy = p.RecordedBy
	m.RefundedAt = p.RefundedAt
	m.RefundReason = p.RefundReason
	m.IdempotencyKey = nil
	if p.IdempotencyKey != "" {
		key := p.IdempotencyKey
		m.IdempotencyKey = &key
	}
}

// PaymentModelFromDomain creates a new persistence model from a domain Payment
func PaymentModelFromDomain(p *rent.Payment) *PaymentModel {
	m := &PaymentModel{}
	m.FromDomain(p)
	return m
}
