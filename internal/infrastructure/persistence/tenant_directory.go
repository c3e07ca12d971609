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

// GormTenantDirectory resolves receipt identity from the tenant_profiles and units tables
type GormTenantDirectory struct {
	db *gorm.DB
}

// NewGormTenantDirectory creates a new GormTenantDirectory
func NewGormTenantDirectory(db *gorm.DB) *GormTenantDirectory {
	return &GormTenantDirectory{db: db}
}

// Lookup returns the tenant's contact details and the unit label.
// A missing tenant profile is NOT_FOUND; a missing unit only leaves the label empty.
func (d *GormTenantDirectory) Lookup(ctx context.Context, tenantID, unitID uuid.UUID) (rent.TenantSnapshot, error) {
	var profile models.TenantProfileModel
	if err := d.db.WithContext(ctx).Where("id = ?", tenantID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return rent.TenantSnapshot{}, shared.NewNotFoundError("tenant profile %s not found", tenantID)
		}
		return rent.TenantSnapshot{}, err
	}

	var unit models.UnitModel
	err := d.db.WithContext(ctx).Where("id = ?", unitID).First(&unit).Error
	switch {
	case err == nil:
		return profile.ToSnapshot(unitID, &unit), nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return profile.ToSnapshot(unitID, nil), nil
	default:
		return rent.TenantSnapshot{}, err
	}
}

// SaveProfile creates or replaces a tenant profile
func (d *GormTenantDirectory) SaveProfile(ctx context.Context, m *models.TenantProfileModel) error {
	return d.db.WithContext(ctx).Save(m).Error
}

// SaveUnit creates or replaces a unit label
func (d *GormTenantDirectory) SaveUnit(ctx context.Context, m *models.UnitModel) error {
	return d.db.WithContext(ctx).Save(m).Error
}

var _ rent.TenantDirectory = (*GormTenantDirectory)(nil)
