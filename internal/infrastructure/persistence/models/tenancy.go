package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rentledger/backend/internal/domain/rent"
	"github.com/rentledger/backend/internal/domain/shared/valueobject"
)

// TenancyModel is the persistence model for the Tenancy aggregate.
// Money is stored as integer minor units plus one currency column.
type TenancyModel struct {
	AggregateModel
	UnitID           uuid.UUID  `gorm:"type:uuid;not null;index"`
	TenantID         uuid.UUID  `gorm:"type:uuid;not null;index"`
	StartDate        time.Time  `gorm:"type:date;not null"`
	EndDate          *time.Time `gorm:"type:date"`
	MonthlyRentMinor int64      `gorm:"not null"`
	DepositPaidMinor int64      `gorm:"not null;default:0"`
	Currency         string     `gorm:"type:varchar(3);not null"`
	Status           string     `gorm:"type:varchar(20);not null;index"`
	TerminatedAt     *time.Time
	Note             string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (TenancyModel) TableName() string {
	return "tenancies"
}

// ToDomain converts the persistence model to a domain Tenancy
func (m *TenancyModel) ToDomain() (*rent.Tenancy, error) {
	cur := valueobject.Currency(m.Currency)
	monthly, err := valueobject.NewMoney(m.MonthlyRentMinor, cur)
	if err != nil {
		return nil, fmt.Errorf("tenancy %s: %w", m.ID, err)
	}
	deposit, err := valueobject.NewMoney(m.DepositPaidMinor, cur)
	if err != nil {
		return nil, fmt.Errorf("tenancy %s: %w", m.ID, err)
	}
	t := &rent.Tenancy{
		BaseAggregateRoot: m.Aggregate(),
		UnitID:            m.UnitID,
		TenantID:          m.TenantID,
		StartDate:         rent.DateOf(m.StartDate),
		MonthlyRent:       monthly,
		DepositPaid:       deposit,
		Status:            rent.TenancyStatus(m.Status),
		TerminatedAt:      m.TerminatedAt,
		Note:              m.Note,
	}
	if m.EndDate != nil {
		end := rent.DateOf(*m.EndDate)
		t.EndDate = &end
	}
	return t, nil
}

// FromDomain populates the persistence model from a domain Tenancy
func (m *TenancyModel) FromDomain(t *rent.Tenancy) {
	m.SetAggregate(t.BaseAggregateRoot)
	m.UnitID = t.UnitID
	m.TenantID = t.TenantID
	m.StartDate = t.StartDate
	m.EndDate = t.EndDate
	m.MonthlyRentMinor = t.MonthlyRent.Minor()
	m.DepositPaidMinor = t.DepositPaid.Minor()
	m.Currency = string(t.Currency())
	m.Status = string(t.Status)
	m.TerminatedAt = t.TerminatedAt
	m.Note = t.Note
}

// TenancyModelFromDomain creates a new persistence model from a domain Tenancy
func TenancyModelFromDomain(t *rent.Tenancy) *TenancyModel {
	m := &TenancyModel{}
	m.FromDomain(t)
	return m
}
