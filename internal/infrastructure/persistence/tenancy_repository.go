package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rentledger/backend/internal/domain/rent"
	"github.com/rentledger/backend/internal/domain/shared"
	"github.com/rentledger/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTenancyRepository implements TenancyRepository using GORM
type GormTenancyRepository struct {
	db *gorm.DB
}

// NewGormTenancyRepository creates a new GormTenancyRepository
func NewGormTenancyRepository(db *gorm.DB) *GormTenancyRepository {
	return &GormTenancyRepository{db: db}
}

// FindByID finds a tenancy by ID
func (r *GormTenancyRepository) FindByID(ctx context.Context, id uuid.UUID) (*rent.Tenancy, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id))
}

// FindByIDForUpdate finds a tenancy and takes a row lock held until the transaction ends.
// SQLite has no row locks; its single writer connection serializes instead.
func (r *GormTenancyRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*rent.Tenancy, error) {
	query := r.db.WithContext(ctx).Where("id = ?", id)
	if r.db.Dialector.Name() != "sqlite" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return r.first(query)
}

// FindActiveByUnit finds the ACTIVE tenancy of a unit
func (r *GormTenancyRepository) FindActiveByUnit(ctx context.Context, unitID uuid.UUID) (*rent.Tenancy, error) {
	return r.first(r.db.WithContext(ctx).
		Where("unit_id = ? AND status = ?", unitID, string(rent.TenancyStatusActive)))
}

// FindAll finds tenancies matching the filter and the total match count
func (r *GormTenancyRepository) FindAll(ctx context.Context, filter rent.TenancyFilter) ([]rent.Tenancy, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.TenancyModel{})
	if filter.UnitID != nil {
		query = query.Where("unit_id = ?", *filter.UnitID)
	}
	if filter.TenantID != nil {
		query = query.Where("tenant_id = ?", *filter.TenantID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", string(*filter.Status))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.TenancyModel
	if err := query.
		Order(orderColumn(filter.Filter, tenancyOrderColumns, "created_at")).
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	out := make([]rent.Tenancy, 0, len(rows))
	for i := range rows {
		t, err := rows[i].ToDomain()
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *t)
	}
	return out, total, nil
}

// Create inserts a new tenancy
func (r *GormTenancyRepository) Create(ctx context.Context, tenancy *rent.Tenancy) error {
	err := r.db.WithContext(ctx).Create(models.TenancyModelFromDomain(tenancy)).Error
	return translateWriteError(err, "tenancy "+tenancy.ID.String())
}

// SaveWithLock updates the mutable tenancy columns if the stored version is one
// behind the in-memory version
func (r *GormTenancyRepository) SaveWithLock(ctx context.Context, tenancy *rent.Tenancy) error {
	m := models.TenancyModelFromDomain(tenancy)
	result := r.db.WithContext(ctx).
		Model(&models.TenancyModel{}).
		Where("id = ? AND version = ?", tenancy.ID, tenancy.Version-1).
		Updates(map[string]any{
			"end_date":           m.EndDate,
			"deposit_paid_minor": m.DepositPaidMinor,
			"status":             m.Status,
			"terminated_at":      m.TerminatedAt,
			"note":               m.Note,
			"version":            m.Version,
			"updated_at":         m.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewConflictError("tenancy %s was modified by another transaction", tenancy.ID)
	}
	return nil
}

func (r *GormTenancyRepository) first(query *gorm.DB) (*rent.Tenancy, error) {
	var m models.TenancyModel
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return m.ToDomain()
}

var _ rent.TenancyRepository = (*GormTenancyRepository)(nil)
