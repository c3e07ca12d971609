package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/rentledger/backend/internal/domain/rent"
)

// ReceiptModel stores the receipt projected when a payment was recorded.
// The snapshot is the full receipt as JSON; the other columns exist for lookup.
type ReceiptModel struct {
	PaymentID     uuid.UUID    `gorm:"type:uuid;primaryKey"`
	TenancyID     uuid.UUID    `gorm:"type:uuid;not null;index"`
	TransactionID string       `gorm:"type:varchar(40);not null;uniqueIndex"`
	IssuedAt      time.Time    `gorm:"not null"`
	Snapshot      rent.Receipt `gorm:"serializer:json;type:text;not null"`
	CreatedAt     time.Time    `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ReceiptModel) TableName() string {
	return "receipts"
}

// ToDomain returns the stored receipt
func (m *ReceiptModel) ToDomain() *rent.Receipt {
	r := m.Snapshot
	return &r
}

// ReceiptModelFromDomain creates a persistence model for a receipt
func ReceiptModelFromDomain(r *rent.Receipt) *ReceiptModel {
	return &ReceiptModel{
		PaymentID:     r.PaymentID,
		TenancyID:     r.TenancyID,
		TransactionID: r.TransactionID,
		IssuedAt:      r.IssuedAt,
		Snapshot:      *r,
		CreatedAt:     time.Now(),
	}
}
