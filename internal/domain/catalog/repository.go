package catalog

import (
	"context"

	"github.com/google/uuid"
)

// ProductRepository defines the interface for product lookups
type ProductRepository interface {
	// FindByID finds a product with its packaging specs
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)

	// FindByIDs finds products with their packaging specs; missing ids are skipped
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error)
}

// DeductionFormulaRepository defines the interface for deduction formula lookups
type DeductionFormulaRepository interface {
	// FindByID finds a formula by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*DeductionFormula, error)

	// FindActive lists active formulas ordered by sort order
	FindActive(ctx context.Context) ([]DeductionFormula, error)
}
