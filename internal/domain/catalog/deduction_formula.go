package catalog

import (
	"errors"
	"fmt"
	"time"

	"github.com/erp/tradedesk/internal/domain/shared"
	"github.com/erp/tradedesk/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FormulaType represents how a deduction formula turns gross into net weight
type FormulaType string

const (
	FormulaTypeNone         FormulaType = "none"
	FormulaTypePercentage   FormulaType = "percentage"
	FormulaTypeFixed        FormulaType = "fixed"
	FormulaTypeFixedPerUnit FormulaType = "fixed_per_unit"
)

// IsValid returns true if the formula type is known
func (t FormulaType) IsValid() bool {
	switch t {
	case FormulaTypeNone, FormulaTypePercentage, FormulaTypeFixed, FormulaTypeFixedPerUnit:
		return true
	default:
		return false
	}
}

// Label returns the human-readable type name
func (t FormulaType) Label() string {
	switch t {
	case FormulaTypeNone:
		return "No deduction"
	case FormulaTypePercentage:
		return "Percentage"
	case FormulaTypeFixed:
		return "Fixed deduction"
	case FormulaTypeFixedPerUnit:
		return "Per-unit deduction"
	default:
		return string(t)
	}
}

var (
	ErrUnitCountRequired  = shared.NewDomainError("UNIT_COUNT_REQUIRED", "Per-unit deduction requires a unit count of at least 1")
	ErrUnknownFormulaType = shared.NewDomainError("UNKNOWN_FORMULA_TYPE", "Unknown deduction formula type")
	ErrNegativeGross      = shared.NewDomainError("INVALID_GROSS_WEIGHT", "Gross weight cannot be negative")
)

// DeductionFormula converts a gross (as-weighed) weight into a net weight
type DeductionFormula struct {
	ID        uuid.UUID
	Name      string
	Type      FormulaType
	Value     decimal.Decimal
	IsDefault bool
	IsActive  bool
	SortOrder int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewDeductionFormula creates a new deduction formula
func NewDeductionFormula(name string, formulaType FormulaType, value decimal.Decimal) (*DeductionFormula, error) {
	if name == "" {
		return nil, shared.NewDomainError("INVALID_FORMULA_NAME", "Formula name cannot be empty")
	}
	if !formulaType.IsValid() {
		return nil, ErrUnknownFormulaType
	}
	if value.IsNegative() {
		return nil, shared.NewDomainError("INVALID_FORMULA_VALUE", "Formula value cannot be negative")
	}
	if formulaType == FormulaTypePercentage && value.GreaterThan(decimal.NewFromInt(1)) {
		return nil, shared.NewDomainError("INVALID_FORMULA_VALUE", "Percentage factor cannot exceed 1")
	}

	now := time.Now()
	return &DeductionFormula{
		ID:        uuid.New(),
		Name:      name,
		Type:      formulaType,
		Value:     value,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// NetWeight evaluates the formula. unitCount is only read by fixed_per_unit.
func (f *DeductionFormula) NetWeight(gross decimal.Decimal, unitCount int) (decimal.Decimal, error) {
	if gross.IsNegative() {
		return decimal.Zero, ErrNegativeGross
	}
	if f == nil {
		return gross, nil
	}

	switch f.Type {
	case FormulaTypeNone:
		return gross, nil
	case FormulaTypePercentage:
		return valueobject.NonNegative(gross.Mul(f.Value)), nil
	case FormulaTypeFixed:
		return valueobject.NonNegative(gross.Sub(f.Value)), nil
	case FormulaTypeFixedPerUnit:
		if unitCount < 1 {
			return gross, ErrUnitCountRequired
		}
		return valueobject.NonNegative(gross.Sub(f.Value.Mul(decimal.NewFromInt(int64(unitCount))))), nil
	default:
		return gross, ErrUnknownFormulaType
	}
}

// Display renders the formula as text, e.g. "net = gross - 2 per unit"
func (f *DeductionFormula) Display() string {
	switch f.Type {
	case FormulaTypeNone:
		return "net = gross"
	case FormulaTypePercentage:
		pct := decimal.NewFromInt(1).Sub(f.Value).Mul(decimal.NewFromInt(100))
		return fmt.Sprintf("net = gross × %s (deduct %s%%)", f.Value.String(), pct.StringFixed(1))
	case FormulaTypeFixed:
		return fmt.Sprintf("net = gross - %s", f.Value.String())
	case FormulaTypeFixedPerUnit:
		return fmt.Sprintf("net = gross - (units × %s per unit)", f.Value.String())
	default:
		return "unknown formula"
	}
}

// DeductionOutcome is a net weight together with the review flag raised
// when evaluation could not be completed
type DeductionOutcome struct {
	Gross       decimal.Decimal
	Net         decimal.Decimal
	Tare        decimal.Decimal
	NeedsReview bool
	Reason      string
	Err         error
}

// Blocking reports failures the user must fix before submitting, as opposed
// to evaluation failures that fall back to gross weight
func (o DeductionOutcome) Blocking() bool {
	return errors.Is(o.Err, ErrUnitCountRequired) || errors.Is(o.Err, ErrNegativeGross)
}

// Evaluate applies the formula with fail-open semantics: any failure leaves
// net equal to gross and flags the line for review.
func Evaluate(f *DeductionFormula, gross decimal.Decimal, unitCount int) DeductionOutcome {
	net, err := f.NetWeight(gross, unitCount)
	if err != nil {
		return FailOpen(gross, err)
	}
	return DeductionOutcome{Gross: gross, Net: net, Tare: gross.Sub(net)}
}

// FailOpen builds the fallback outcome for a failed evaluation
func FailOpen(gross decimal.Decimal, err error) DeductionOutcome {
	return DeductionOutcome{
		Gross:       gross,
		Net:         gross,
		Tare:        decimal.Zero,
		NeedsReview: true,
		Reason:      err.Error(),
		Err:         err,
	}
}
