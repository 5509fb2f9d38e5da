package inventory

import (
	"time"

	"github.com/erp/tradedesk/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BatchStatus represents the lifecycle state of a stock batch
type BatchStatus string

const (
	BatchStatusActive   BatchStatus = "active"
	BatchStatusDepleted BatchStatus = "depleted"
)

// StockBatch is a traceable lot of one product in one warehouse. Quantities
// are in the product's base weight unit. Batches are never deleted, only
// depleted.
type StockBatch struct {
	shared.BaseEntity
	BatchNo           string
	ProductID         uuid.UUID
	SpecID            *uuid.UUID // set when the batch was received under a specific packaging spec
	WarehouseID       uuid.UUID
	ReceivedAt        time.Time
	InitialQuantity   decimal.Decimal
	AvailableQuantity decimal.Decimal
	CostPrice         decimal.Decimal
	Status            BatchStatus
}

// NewStockBatch creates a new stock batch
func NewStockBatch(
	batchNo string,
	productID uuid.UUID,
	specID *uuid.UUID,
	warehouseID uuid.UUID,
	receivedAt time.Time,
	quantity decimal.Decimal,
	costPrice decimal.Decimal,
) (*StockBatch, error) {
	if batchNo == "" {
		return nil, shared.NewDomainError("INVALID_BATCH_NO", "Batch number cannot be empty")
	}
	if !quantity.IsPositive() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Batch quantity must be positive")
	}
	if costPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Cost price cannot be negative")
	}
	return &StockBatch{
		BaseEntity:        shared.NewBaseEntity(),
		BatchNo:           batchNo,
		ProductID:         productID,
		SpecID:            specID,
		WarehouseID:       warehouseID,
		ReceivedAt:        receivedAt,
		InitialQuantity:   quantity,
		AvailableQuantity: quantity,
		CostPrice:         costPrice,
		Status:            BatchStatusActive,
	}, nil
}

// IsAvailable returns true if the batch can be drawn from
func (b *StockBatch) IsAvailable() bool {
	return b.Status != BatchStatusDepleted && b.HasStock()
}

// HasStock returns true if the batch has remaining quantity
func (b *StockBatch) HasStock() bool {
	return b.AvailableQuantity.GreaterThan(decimal.Zero)
}

// Consume draws quantity from the batch, depleting it when nothing remains
func (b *StockBatch) Consume(quantity decimal.Decimal) error {
	if !quantity.IsPositive() {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if quantity.GreaterThan(b.AvailableQuantity) {
		return shared.NewDomainErrorf("INSUFFICIENT_STOCK", "Batch %s has only %s available", b.BatchNo, b.AvailableQuantity)
	}
	b.AvailableQuantity = b.AvailableQuantity.Sub(quantity)
	if b.AvailableQuantity.IsZero() {
		b.Status = BatchStatusDepleted
	}
	b.Touch(time.Now())
	return nil
}

// WarehouseStock is the aggregate available quantity of a product in a
// warehouse
type WarehouseStock struct {
	WarehouseID       uuid.UUID
	ProductID         uuid.UUID
	AvailableQuantity decimal.Decimal
}

// SelectableProducts returns, in input order, the products that have stock
// available in the warehouse
func SelectableProducts(stocks []WarehouseStock) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(stocks))
	ids := make([]uuid.UUID, 0, len(stocks))
	for _, s := range stocks {
		if !s.AvailableQuantity.IsPositive() {
			continue
		}
		if _, ok := seen[s.ProductID]; ok {
			continue
		}
		seen[s.ProductID] = struct{}{}
		ids = append(ids, s.ProductID)
	}
	return ids
}
