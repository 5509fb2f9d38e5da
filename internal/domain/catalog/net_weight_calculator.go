package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CalculateNetWeightRequest is the input of a net weight calculation
type CalculateNetWeightRequest struct {
	FormulaID   uuid.UUID
	GrossWeight decimal.Decimal
	UnitCount   int
}

// CalculateNetWeightResult is the output of a net weight calculation
type CalculateNetWeightResult struct {
	FormulaID   uuid.UUID
	GrossWeight decimal.Decimal
	NetWeight   decimal.Decimal
	TareWeight  decimal.Decimal
	Display     string
}

// NetWeightCalculator evaluates a deduction formula by id. Implementations
// may be remote; callers treat failures as fail-open.
type NetWeightCalculator interface {
	Calculate(ctx context.Context, req CalculateNetWeightRequest) (CalculateNetWeightResult, error)
}

// LocalNetWeightCalculator evaluates formulas loaded from the repository
type LocalNetWeightCalculator struct {
	formulas DeductionFormulaRepository
}

// NewLocalNetWeightCalculator creates a new LocalNetWeightCalculator
func NewLocalNetWeightCalculator(formulas DeductionFormulaRepository) *LocalNetWeightCalculator {
	return &LocalNetWeightCalculator{formulas: formulas}
}

// Calculate implements NetWeightCalculator
func (c *LocalNetWeightCalculator) Calculate(ctx context.Context, req CalculateNetWeightRequest) (CalculateNetWeightResult, error) {
	formula, err := c.formulas.FindByID(ctx, req.FormulaID)
	if err != nil {
		return CalculateNetWeightResult{}, err
	}
	net, err := formula.NetWeight(req.GrossWeight, req.UnitCount)
	if err != nil {
		return CalculateNetWeightResult{}, err
	}
	return CalculateNetWeightResult{
		FormulaID:   formula.ID,
		GrossWeight: req.GrossWeight,
		NetWeight:   net,
		TareWeight:  req.GrossWeight.Sub(net),
		Display:     formula.Display(),
	}, nil
}

var _ NetWeightCalculator = (*LocalNetWeightCalculator)(nil)
