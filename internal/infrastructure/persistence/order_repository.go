package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/tradedesk/internal/domain/inventory"
	"github.com/erp/tradedesk/internal/domain/shared"
	"github.com/erp/tradedesk/internal/domain/trade"
	"github.com/erp/tradedesk/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOrderRepository implements trade.OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

func (r *GormOrderRepository) withLines(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("line_no ASC")
		}).
		Preload("Lines.Allocations")
}

// FindByID finds an order with its lines
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.BusinessOrder, error) {
	var model models.BusinessOrderModel
	if err := r.withLines(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindReturnsOf finds every return order of orderID, cancelled ones included
func (r *GormOrderRepository) FindReturnsOf(ctx context.Context, orderID uuid.UUID) ([]trade.BusinessOrder, error) {
	var rows []models.BusinessOrderModel
	if err := r.withLines(ctx).
		Where("related_order_id = ?", orderID).
		Where("type IN ?", []trade.OrderType{trade.OrderTypeReturnIn, trade.OrderTypeReturnOut}).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	orders := make([]trade.BusinessOrder, len(rows))
	for i := range rows {
		orders[i] = *rows[i].ToDomain()
	}
	return orders, nil
}

// Save creates or updates an order in one transaction. Lines are upserted
// by id and lines no longer on the order are removed with their
// allocations. Each draw is a guarded decrement, so stock another order took
// in the meantime fails the whole save.
func (r *GormOrderRepository) Save(ctx context.Context, order *trade.BusinessOrder, draws ...inventory.BatchDraw) error {
	now := time.Now()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now
	model := models.BusinessOrderModelFromDomain(order)
	keep := make([]uuid.UUID, 0, len(model.Lines))
	for i := range model.Lines {
		keep = append(keep, model.Lines[i].ID)
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Lines").Save(model).Error; err != nil {
			return err
		}
		if err := removeStaleLines(tx, order.ID, keep); err != nil {
			return err
		}
		if len(keep) > 0 {
			if err := tx.Where("line_id IN ?", keep).Delete(&models.AllocationModel{}).Error; err != nil {
				return err
			}
		}
		for i := range model.Lines {
			if err := upsertLine(tx, model.Lines[i]); err != nil {
				return err
			}
		}
		for _, d := range draws {
			if err := drawBatch(tx, d, now); err != nil {
				return err
			}
		}
		return nil
	})
}

func removeStaleLines(tx *gorm.DB, orderID uuid.UUID, keep []uuid.UUID) error {
	query := tx.Model(&models.OrderLineModel{}).Where("order_id = ?", orderID)
	if len(keep) > 0 {
		query = query.Where("id NOT IN ?", keep)
	}
	var stale []uuid.UUID
	if err := query.Pluck("id", &stale).Error; err != nil {
		return err
	}
	if len(stale) == 0 {
		return nil
	}
	if err := tx.Where("line_id IN ?", stale).Delete(&models.AllocationModel{}).Error; err != nil {
		return err
	}
	return tx.Where("id IN ?", stale).Delete(&models.OrderLineModel{}).Error
}

// upsertLine writes one line and its allocations. A line id already owned
// by another order is refused rather than moved.
func upsertLine(tx *gorm.DB, line models.OrderLineModel) error {
	allocations := line.Allocations
	line.Allocations = nil
	res := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Eq{Column: clause.Column{Table: "order_lines", Name: "order_id"}, Value: line.OrderID},
		}},
	}).Create(&line)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return shared.NewDomainErrorf("INVALID_INPUT", "Line %s belongs to another order", line.ID)
	}
	if len(allocations) == 0 {
		return nil
	}
	return tx.Create(&allocations).Error
}

func drawBatch(tx *gorm.DB, d inventory.BatchDraw, now time.Time) error {
	res := tx.Model(&models.StockBatchModel{}).
		Where("id = ? AND available_quantity >= ?", d.BatchID, d.Quantity).
		Updates(map[string]any{
			"available_quantity": gorm.Expr("available_quantity - ?", d.Quantity),
			"status":             gorm.Expr("CASE WHEN available_quantity - ? <= 0 THEN ? ELSE status END", d.Quantity, inventory.BatchStatusDepleted),
			"updated_at":         now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return shared.NewDomainErrorf(inventory.ErrBatchQuantityExceeds.Code,
			"Batch %s no longer has %s available", d.BatchNo, d.Quantity)
	}
	return nil
}
