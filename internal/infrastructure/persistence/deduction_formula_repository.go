package persistence

import (
	"context"
	"errors"

	"github.com/erp/tradedesk/internal/domain/catalog"
	"github.com/erp/tradedesk/internal/domain/shared"
	"github.com/erp/tradedesk/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormDeductionFormulaRepository implements catalog.DeductionFormulaRepository using GORM
type GormDeductionFormulaRepository struct {
	db *gorm.DB
}

// NewGormDeductionFormulaRepository creates a new GormDeductionFormulaRepository
func NewGormDeductionFormulaRepository(db *gorm.DB) *GormDeductionFormulaRepository {
	return &GormDeductionFormulaRepository{db: db}
}

// FindByID finds a formula by its ID, active or not
func (r *GormDeductionFormulaRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.DeductionFormula, error) {
	var model models.DeductionFormulaModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindActive lists active formulas ordered by sort order
func (r *GormDeductionFormulaRepository) FindActive(ctx context.Context) ([]catalog.DeductionFormula, error) {
	var rows []models.DeductionFormulaModel
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("sort_order ASC, name ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	formulas := make([]catalog.DeductionFormula, len(rows))
	for i := range rows {
		formulas[i] = *rows[i].ToDomain()
	}
	return formulas, nil
}

// Save creates or updates a formula
func (r *GormDeductionFormulaRepository) Save(ctx context.Context, formula *catalog.DeductionFormula) error {
	return r.db.WithContext(ctx).Save(models.DeductionFormulaModelFromDomain(formula)).Error
}
