package models

import (
	"time"

	"github.com/erp/tradedesk/internal/domain/catalog"
	"github.com/erp/tradedesk/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BusinessOrderModel is the persistence model for the BusinessOrder aggregate.
type BusinessOrderModel struct {
	BaseModel
	OrderNo             string            `gorm:"type:varchar(50);not null;uniqueIndex"`
	Type                trade.OrderType   `gorm:"type:varchar(20);not null;index"`
	Status              trade.OrderStatus `gorm:"type:varchar(20);not null;default:'draft'"`
	SourceID            uuid.UUID         `gorm:"type:uuid;not null"`
	TargetID            uuid.UUID         `gorm:"type:uuid;not null"`
	OrderDate           time.Time         `gorm:"not null"`
	LoadingDate         *time.Time        `gorm:"default:null"`
	UnloadingDate       *time.Time        `gorm:"default:null"`
	CalculateStorageFee bool              `gorm:"not null"`
	ShippingFee         decimal.Decimal   `gorm:"type:decimal(18,2);not null;default:0"`
	StorageFee          decimal.Decimal   `gorm:"type:decimal(18,2);not null;default:0"`
	OtherFee            decimal.Decimal   `gorm:"type:decimal(18,2);not null;default:0"`
	TotalAmount         decimal.Decimal   `gorm:"type:decimal(18,2);not null;default:0"`
	FinalAmount         decimal.Decimal   `gorm:"type:decimal(18,2);not null;default:0"`
	RelatedOrderID      *uuid.UUID        `gorm:"type:uuid;index"`
	Notes               string            `gorm:"type:text"`
	Lines               []OrderLineModel  `gorm:"foreignKey:OrderID;references:ID"`
}

// TableName returns the table name for GORM
func (BusinessOrderModel) TableName() string {
	return "business_orders"
}

// ToDomain converts the persistence model to a domain BusinessOrder.
func (m *BusinessOrderModel) ToDomain() *trade.BusinessOrder {
	o := &trade.BusinessOrder{
		ID:                  m.ID,
		OrderNo:             m.OrderNo,
		Type:                m.Type,
		Status:              m.Status,
		SourceID:            m.SourceID,
		TargetID:            m.TargetID,
		OrderDate:           m.OrderDate,
		LoadingDate:         m.LoadingDate,
		UnloadingDate:       m.UnloadingDate,
		CalculateStorageFee: m.CalculateStorageFee,
		ShippingFee:         m.ShippingFee,
		StorageFee:          m.StorageFee,
		OtherFee:            m.OtherFee,
		TotalAmount:         m.TotalAmount,
		FinalAmount:         m.FinalAmount,
		RelatedOrderID:      m.RelatedOrderID,
		Notes:               m.Notes,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
		Lines:               make([]trade.OrderLine, len(m.Lines)),
	}
	for i := range m.Lines {
		o.Lines[i] = m.Lines[i].ToDomain()
	}
	return o
}

// BusinessOrderModelFromDomain creates a persistence model from a domain BusinessOrder.
func BusinessOrderModelFromDomain(o *trade.BusinessOrder) *BusinessOrderModel {
	m := &BusinessOrderModel{
		BaseModel:           BaseModel{ID: o.ID, CreatedAt: o.CreatedAt, UpdatedAt: o.UpdatedAt},
		OrderNo:             o.OrderNo,
		Type:                o.Type,
		Status:              o.Status,
		SourceID:            o.SourceID,
		TargetID:            o.TargetID,
		OrderDate:           o.OrderDate,
		LoadingDate:         o.LoadingDate,
		UnloadingDate:       o.UnloadingDate,
		CalculateStorageFee: o.CalculateStorageFee,
		ShippingFee:         o.ShippingFee,
		StorageFee:          o.StorageFee,
		OtherFee:            o.OtherFee,
		TotalAmount:         o.TotalAmount,
		FinalAmount:         o.FinalAmount,
		RelatedOrderID:      o.RelatedOrderID,
		Notes:               o.Notes,
		Lines:               make([]OrderLineModel, len(o.Lines)),
	}
	for i := range o.Lines {
		m.Lines[i] = OrderLineModelFromDomain(o.ID, &o.Lines[i])
	}
	return m
}

// OrderLineModel is the persistence model for an order line. LineNo keeps
// the line's slot so lines read back in entry order.
type OrderLineModel struct {
	ID             uuid.UUID           `gorm:"type:uuid;primary_key"`
	OrderID        uuid.UUID           `gorm:"type:uuid;not null;index"`
	LineNo         int                 `gorm:"not null"`
	ProductID      uuid.UUID           `gorm:"type:uuid;not null"`
	SpecID         *uuid.UUID          `gorm:"type:uuid"`
	PricingMode    catalog.PricingMode `gorm:"type:varchar(20);not null"`
	Quantity       decimal.Decimal     `gorm:"type:decimal(18,4);not null"`
	UnitPrice      decimal.Decimal     `gorm:"type:decimal(18,4);not null"`
	GrossWeight    *decimal.Decimal    `gorm:"type:decimal(18,4)"`
	FormulaID      *uuid.UUID          `gorm:"type:uuid"`
	UnitCount      int                 `gorm:"not null;default:0"`
	BatchID        *uuid.UUID          `gorm:"type:uuid"`
	OriginalItemID *uuid.UUID          `gorm:"type:uuid;index"`
	ShippingCost   decimal.Decimal     `gorm:"type:decimal(18,2);not null;default:0"`
	Subtotal       decimal.Decimal     `gorm:"type:decimal(18,2);not null;default:0"`
	Weight         decimal.Decimal     `gorm:"type:decimal(18,4);not null;default:0"`
	Allocations    []AllocationModel   `gorm:"foreignKey:LineID;references:ID"`
}

// TableName returns the table name for GORM
func (OrderLineModel) TableName() string {
	return "order_lines"
}

// ToDomain converts the persistence model to a domain OrderLine.
func (m *OrderLineModel) ToDomain() trade.OrderLine {
	l := trade.OrderLine{
		Slot:           m.LineNo,
		ID:             m.ID,
		ProductID:      m.ProductID,
		SpecID:         m.SpecID,
		PricingMode:    m.PricingMode,
		Quantity:       m.Quantity,
		UnitPrice:      m.UnitPrice,
		GrossWeight:    m.GrossWeight,
		FormulaID:      m.FormulaID,
		UnitCount:      m.UnitCount,
		BatchID:        m.BatchID,
		OriginalItemID: m.OriginalItemID,
		ShippingCost:   m.ShippingCost,
		Subtotal:       m.Subtotal,
		Weight:         m.Weight,
	}
	for _, a := range m.Allocations {
		l.Allocations = append(l.Allocations, trade.BatchAllocation{BatchID: a.BatchID, Quantity: a.Quantity})
	}
	return l
}

// OrderLineModelFromDomain creates a persistence model from a domain OrderLine.
func OrderLineModelFromDomain(orderID uuid.UUID, l *trade.OrderLine) OrderLineModel {
	m := OrderLineModel{
		ID:             l.ID,
		OrderID:        orderID,
		LineNo:         l.Slot,
		ProductID:      l.ProductID,
		SpecID:         l.SpecID,
		PricingMode:    l.PricingMode,
		Quantity:       l.Quantity,
		UnitPrice:      l.UnitPrice,
		GrossWeight:    l.GrossWeight,
		FormulaID:      l.FormulaID,
		UnitCount:      l.UnitCount,
		BatchID:        l.BatchID,
		OriginalItemID: l.OriginalItemID,
		ShippingCost:   l.ShippingCost,
		Subtotal:       l.Subtotal,
		Weight:         l.Weight,
	}
	for _, a := range l.Allocations {
		m.Allocations = append(m.Allocations, AllocationModel{LineID: l.ID, BatchID: a.BatchID, Quantity: a.Quantity})
	}
	return m
}

// AllocationModel is the persistence model for one batch allocation of a line.
type AllocationModel struct {
	LineID   uuid.UUID       `gorm:"type:uuid;primaryKey"`
	BatchID  uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Quantity decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (AllocationModel) TableName() string {
	return "order_line_allocations"
}
