package persistence

import (
	"context"

	"github.com/erp/tradedesk/internal/domain/inventory"
	"github.com/erp/tradedesk/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormStockBatchRepository implements inventory.StockBatchRepository and
// inventory.WarehouseStockRepository using GORM
type GormStockBatchRepository struct {
	db *gorm.DB
}

// NewGormStockBatchRepository creates a new GormStockBatchRepository
func NewGormStockBatchRepository(db *gorm.DB) *GormStockBatchRepository {
	return &GormStockBatchRepository{db: db}
}

// FindAvailable returns the pool's batches in the warehouse that still hold
// stock, oldest receipt first
func (r *GormStockBatchRepository) FindAvailable(ctx context.Context, query inventory.BatchQuery) ([]inventory.StockBatch, error) {
	q := r.db.WithContext(ctx).
		Where("warehouse_id = ? AND product_id = ?", query.WarehouseID, query.Pool.ProductID).
		Where("status = ? AND available_quantity > 0", inventory.BatchStatusActive)
	if query.Pool.BySpec {
		if query.Pool.SpecID != nil {
			q = q.Where("spec_id = ?", *query.Pool.SpecID)
		} else {
			q = q.Where("spec_id IS NULL")
		}
	}

	var rows []models.StockBatchModel
	if err := q.Order("received_at ASC, batch_no ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return toBatches(rows), nil
}

// FindByIDs returns the batches with the given ids regardless of status
func (r *GormStockBatchRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]inventory.StockBatch, error) {
	if len(ids) == 0 {
		return []inventory.StockBatch{}, nil
	}
	var rows []models.StockBatchModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return toBatches(rows), nil
}

// FindByWarehouse totals the available quantity of each product held in
// the warehouse
func (r *GormStockBatchRepository) FindByWarehouse(ctx context.Context, warehouseID uuid.UUID) ([]inventory.WarehouseStock, error) {
	var rows []models.WarehouseStockRow
	if err := r.db.WithContext(ctx).
		Model(&models.StockBatchModel{}).
		Select("warehouse_id, product_id, SUM(available_quantity) AS available_quantity").
		Where("warehouse_id = ? AND status = ?", warehouseID, inventory.BatchStatusActive).
		Group("warehouse_id, product_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	stocks := make([]inventory.WarehouseStock, len(rows))
	for i, row := range rows {
		stocks[i] = row.ToDomain()
	}
	return stocks, nil
}

// Save creates or updates a stock batch
func (r *GormStockBatchRepository) Save(ctx context.Context, batch *inventory.StockBatch) error {
	return r.db.WithContext(ctx).Save(models.StockBatchModelFromDomain(batch)).Error
}

func toBatches(rows []models.StockBatchModel) []inventory.StockBatch {
	batches := make([]inventory.StockBatch, len(rows))
	for i := range rows {
		batches[i] = rows[i].ToDomain()
	}
	return batches
}
