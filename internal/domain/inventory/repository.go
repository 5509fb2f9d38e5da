package inventory

import (
	"context"

	"github.com/google/uuid"
)

// StockBatchRepository defines the interface for stock batch lookups
type StockBatchRepository interface {
	// FindAvailable returns batches of the query's pool in the warehouse with
	// available quantity > 0, ordered by receipt date ascending
	FindAvailable(ctx context.Context, query BatchQuery) ([]StockBatch, error)

	// FindByIDs returns the batches with the given ids regardless of status
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]StockBatch, error)
}

// WarehouseStockRepository defines the interface for per-warehouse stock totals
type WarehouseStockRepository interface {
	// FindByWarehouse returns the available quantity of each product in the warehouse
	FindByWarehouse(ctx context.Context, warehouseID uuid.UUID) ([]WarehouseStock, error)
}
