package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rentledger/backend/internal/domain/rent"
	"github.com/rentledger/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormReceiptRepository implements ReceiptRepository using GORM
type GormReceiptRepository struct {
	db *gorm.DB
}

// NewGormReceiptRepository creates a new GormReceiptRepository
func NewGormReceiptRepository(db *gorm.DB) *GormReceiptRepository {
	return &GormReceiptRepository{db: db}
}

// FindByPaymentID finds the receipt issued for a payment
func (r *GormReceiptRepository) FindByPaymentID(ctx context.Context, paymentID uuid.UUID) (*rent.Receipt, error) {
	var m models.ReceiptModel
	if err := r.db.WithContext(ctx).Where("payment_id = ?", paymentID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// Create stores a receipt snapshot
func (r *GormReceiptRepository) Create(ctx context.Context, receipt *rent.Receipt) error {
	err := r.db.WithContext(ctx).Create(models.ReceiptModelFromDomain(receipt)).Error
	return translateWriteError(err, "receipt for payment "+receipt.PaymentID.String())
}

var _ rent.ReceiptRepository = (*GormReceiptRepository)(nil)
