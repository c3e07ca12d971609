package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/rentledger/backend/internal/domain/rent"
)

// TenantProfileModel holds the contact details printed on receipts
type TenantProfileModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"type:varchar(200);not null"`
	Email     string    `gorm:"type:varchar(200)"`
	Phone     string    `gorm:"type:varchar(30)"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (TenantProfileModel) TableName() string {
	return "tenant_profiles"
}

// UnitModel holds the label of a rentable unit
type UnitModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Label     string    `gorm:"type:varchar(100);not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (UnitModel) TableName() string {
	return "units"
}

// ToSnapshot combines a tenant profile and unit into a receipt snapshot.
// unit may be nil when the unit has no label on record.
func (m *TenantProfileModel) ToSnapshot(unitID uuid.UUID, unit *UnitModel) rent.TenantSnapshot {
	snap := rent.TenantSnapshot{
		TenantID: m.ID,
		Name:     m.Name,
		Email:    m.Email,
		Phone:    m.Phone,
		UnitID:   unitID,
	}
	if unit != nil {
		snap.UnitLabel = unit.Label
	}
	return snap
}
