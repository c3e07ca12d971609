// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer pure and free
// from ORM concerns.
//
// Key Principles:
// 1. Domain entities carry no GORM tags or infrastructure concerns
// 2. Persistence models hold the GORM annotations and table mappings
// 3. ToDomain/FromDomain convert between the two
// 4. Repositories read and write persistence models only
//
// Structure:
// - base.go: BaseModel and AggregateModel
// - tenancy.go: tenancies
// - payment.go: the append-only payments ledger
// - receipt.go: receipt snapshots
// - directory.go: tenant and unit identity used on receipts
package models
