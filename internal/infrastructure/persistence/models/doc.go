// Package models contains GORM persistence models that map to database tables.
// They are kept apart from the domain types so the domain layer stays free of
// ORM tags; each model converts with ToDomain and a ...FromDomain constructor.
//
// Structure:
// - base.go: BaseModel shared by entities with timestamps
// - catalog.go: products, packaging specs and deduction formulas
// - inventory.go: stock batches and the per-warehouse stock view
// - party.go: warehouses and trading partners
// - trade.go: business orders, their lines and batch allocations
package models
