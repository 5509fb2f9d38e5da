package models

import (
	"time"

	"github.com/erp/tradedesk/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockBatchModel is the persistence model for the StockBatch entity.
type StockBatchModel struct {
	BaseModel
	BatchNo           string                `gorm:"type:varchar(50);not null;index"`
	ProductID         uuid.UUID             `gorm:"type:uuid;not null;index:idx_stock_batch_pool,priority:2"`
	SpecID            *uuid.UUID            `gorm:"type:uuid;index:idx_stock_batch_pool,priority:3"`
	WarehouseID       uuid.UUID             `gorm:"type:uuid;not null;index:idx_stock_batch_pool,priority:1"`
	ReceivedAt        time.Time             `gorm:"not null"`
	InitialQuantity   decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	AvailableQuantity decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	CostPrice         decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0"`
	Status            inventory.BatchStatus `gorm:"type:varchar(20);not null;default:'active'"`
}

// TableName returns the table name for GORM
func (StockBatchModel) TableName() string {
	return "stock_batches"
}

// ToDomain converts the persistence model to a domain StockBatch.
func (m *StockBatchModel) ToDomain() inventory.StockBatch {
	return inventory.StockBatch{
		BaseEntity:        m.BaseModel.ToDomain(),
		BatchNo:           m.BatchNo,
		ProductID:         m.ProductID,
		SpecID:            m.SpecID,
		WarehouseID:       m.WarehouseID,
		ReceivedAt:        m.ReceivedAt,
		InitialQuantity:   m.InitialQuantity,
		AvailableQuantity: m.AvailableQuantity,
		CostPrice:         m.CostPrice,
		Status:            m.Status,
	}
}

// StockBatchModelFromDomain creates a persistence model from a domain StockBatch.
func StockBatchModelFromDomain(b *inventory.StockBatch) *StockBatchModel {
	m := &StockBatchModel{
		BatchNo:           b.BatchNo,
		ProductID:         b.ProductID,
		SpecID:            b.SpecID,
		WarehouseID:       b.WarehouseID,
		ReceivedAt:        b.ReceivedAt,
		InitialQuantity:   b.InitialQuantity,
		AvailableQuantity: b.AvailableQuantity,
		CostPrice:         b.CostPrice,
		Status:            b.Status,
	}
	m.FromDomainBaseEntity(b.BaseEntity)
	return m
}

// WarehouseStockRow is the per-product stock total of one warehouse,
// aggregated from its batches.
type WarehouseStockRow struct {
	WarehouseID       uuid.UUID
	ProductID         uuid.UUID
	AvailableQuantity decimal.Decimal
}

// ToDomain converts the row to a domain WarehouseStock.
func (r WarehouseStockRow) ToDomain() inventory.WarehouseStock {
	return inventory.WarehouseStock{
		WarehouseID:       r.WarehouseID,
		ProductID:         r.ProductID,
		AvailableQuantity: r.AvailableQuantity,
	}
}
