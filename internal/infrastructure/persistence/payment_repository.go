package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rentledger/backend/internal/domain/rent"
	"github.com/rentledger/backend/internal/domain/shared"
	"github.com/rentledger/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormPaymentRepository implements PaymentRepository using GORM.
// It never issues DELETE; refunds only touch the status columns.
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// FindByID finds a payment by ID
func (r *GormPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*rent.Payment, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id))
}

// FindByTenancy returns a tenancy's payments in ledger order
func (r *GormPaymentRepository) FindByTenancy(ctx context.Context, tenancyID uuid.UUID) ([]*rent.Payment, error) {
	var rows []models.PaymentModel
	if err := r.db.WithContext(ctx).
		Where("tenancy_id = ?", tenancyID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]*rent.Payment, 0, len(rows))
	for i := range rows {
		p, err := rows[i].ToDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// FindByIdempotencyKey finds the payment recorded for a client idempotency key
func (r *GormPaymentRepository) FindByIdempotencyKey(ctx context.Context, tenancyID uuid.UUID, key string) (*rent.Payment, error) {
	if key == "" {
		return nil, nil
	}
	return r.first(r.db.WithContext(ctx).Where("tenancy_id = ? AND idempotency_key = ?", tenancyID, key))
}

// Create appends a payment
func (r *GormPaymentRepository) Create(ctx context.Context, payment *rent.Payment) error {
	err := r.db.WithContext(ctx).Create(models.PaymentModelFromDomain(payment)).Error
	return translateWriteError(err, "payment "+payment.TransactionID)
}

// UpdateStatus persists a status correction
func (r *GormPaymentRepository) UpdateStatus(ctx context.Context, payment *rent.Payment) error {
	result := r.db.WithContext(ctx).
		Model(&models.PaymentModel{}).
		Where("id = ?", payment.ID).
		Updates(map[string]any{
			"status":        string(payment.Status),
			"refunded_at":   payment.RefundedAt,
			"refund_reason": payment.RefundReason,
			"updated_at":    payment.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("payment %s not found", payment.ID)
	}
	return nil
}

func (r *GormPaymentRepository) first(query *gorm.DB) (*rent.Payment, error) {
	var m models.PaymentModel
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return m.ToDomain()
}

var _ rent.PaymentRepository = (*GormPaymentRepository)(nil)
