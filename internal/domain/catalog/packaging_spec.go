package catalog

import (
	"fmt"
	"time"

	"github.com/erp/tradedesk/internal/domain/shared"
	"github.com/erp/tradedesk/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PricingMode says whether a line quantity is counted in containers or in
// base weight units
type PricingMode string

const (
	PricingModeContainer PricingMode = "container"
	PricingModeWeight    PricingMode = "weight"
)

// IsValid returns true if the pricing mode is known
func (m PricingMode) IsValid() bool {
	return m == PricingModeContainer || m == PricingModeWeight
}

// PackagingSpec is a named container-to-base-unit rule for a product
// (e.g. box = 15 kg)
type PackagingSpec struct {
	ID               uuid.UUID
	ProductID        uuid.UUID
	Name             string
	ContainerLabel   string
	BaseUnitQuantity decimal.Decimal // base units per container
	BaseUnitSymbol   string
	IsDefault        bool
	IsBulk           bool
	IsActive         bool
	SortOrder        int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewPackagingSpec creates a new packaging spec
func NewPackagingSpec(productID uuid.UUID, name, containerLabel string, baseUnitQuantity decimal.Decimal, baseUnitSymbol string) (*PackagingSpec, error) {
	if err := validateSpecName(name); err != nil {
		return nil, err
	}
	if containerLabel == "" {
		return nil, shared.NewDomainError("INVALID_CONTAINER_LABEL", "Container label cannot be empty")
	}
	if err := validateBaseUnitQuantity(baseUnitQuantity); err != nil {
		return nil, err
	}

	now := time.Now()
	return &PackagingSpec{
		ID:               uuid.New(),
		ProductID:        productID,
		Name:             name,
		ContainerLabel:   containerLabel,
		BaseUnitQuantity: baseUnitQuantity,
		BaseUnitSymbol:   baseUnitSymbol,
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// IsBulkSpec reports loose goods measured directly in the base unit: one
// base unit per container, and either flagged bulk or labelled with the
// base-unit symbol itself.
func (s *PackagingSpec) IsBulkSpec() bool {
	if s == nil {
		return false
	}
	if !s.BaseUnitQuantity.Equal(decimal.NewFromInt(1)) {
		return false
	}
	return s.IsBulk || (s.BaseUnitSymbol != "" && s.ContainerLabel == s.BaseUnitSymbol)
}

// DisplayName renders "box(15kg)", or "bulk(kg)" for loose goods
func (s *PackagingSpec) DisplayName() string {
	if s.BaseUnitSymbol == "" {
		return s.Name
	}
	if s.IsBulkSpec() {
		return fmt.Sprintf("bulk(%s)", s.BaseUnitSymbol)
	}
	return fmt.Sprintf("%s(%s%s)", s.ContainerLabel, s.BaseUnitQuantity.String(), s.BaseUnitSymbol)
}

// ConvertToBaseUnit converts a container count to base units
// Formula: baseQuantity = quantity * baseUnitQuantity
func (s *PackagingSpec) ConvertToBaseUnit(quantity decimal.Decimal) decimal.Decimal {
	return quantity.Mul(s.BaseUnitQuantity)
}

// ConvertFromBaseUnit converts base units to a display-only container count
// Formula: containers = baseQuantity / baseUnitQuantity
func (s *PackagingSpec) ConvertFromBaseUnit(baseQuantity decimal.Decimal) decimal.Decimal {
	if s.BaseUnitQuantity.IsZero() {
		return decimal.Zero
	}
	return valueobject.RoundDisplay(baseQuantity.Div(s.BaseUnitQuantity))
}

// Conversion is the result of converting one line quantity
type Conversion struct {
	Mode           PricingMode
	Quantity       decimal.Decimal
	Weight         decimal.Decimal // base units
	ContainerCount decimal.Decimal // display-only when Mode is weight
	UnitQuantity   decimal.Decimal
	Converted      bool
}

// EffectivePricingMode forces weight pricing for bulk specs and for lines
// without a spec
func EffectivePricingMode(spec *PackagingSpec, requested PricingMode) PricingMode {
	if spec == nil || spec.IsBulkSpec() {
		return PricingModeWeight
	}
	if !requested.IsValid() {
		return PricingModeContainer
	}
	return requested
}

// Convert translates quantity between container and base units according to
// the effective pricing mode. A missing or bulk spec yields identity.
func Convert(spec *PackagingSpec, mode PricingMode, quantity decimal.Decimal) Conversion {
	mode = EffectivePricingMode(spec, mode)
	if spec == nil || spec.IsBulkSpec() {
		return Conversion{
			Mode:           mode,
			Quantity:       quantity,
			Weight:         quantity,
			ContainerCount: quantity,
			UnitQuantity:   decimal.NewFromInt(1),
		}
	}

	c := Conversion{
		Mode:         mode,
		Quantity:     quantity,
		UnitQuantity: spec.BaseUnitQuantity,
		Converted:    true,
	}
	switch mode {
	case PricingModeContainer:
		c.ContainerCount = quantity
		c.Weight = spec.ConvertToBaseUnit(quantity)
	default:
		c.Weight = quantity
		c.ContainerCount = spec.ConvertFromBaseUnit(quantity)
	}
	return c
}

// ValidateSpecs checks the per-product spec invariants: positive quantities
// and at most one default
func ValidateSpecs(specs []PackagingSpec) error {
	defaults := 0
	for i := range specs {
		if err := validateBaseUnitQuantity(specs[i].BaseUnitQuantity); err != nil {
			return err
		}
		if specs[i].IsDefault {
			defaults++
		}
	}
	if defaults > 1 {
		return shared.NewDomainError("MULTIPLE_DEFAULT_SPECS", "A product can have at most one default packaging spec")
	}
	return nil
}

func validateSpecName(name string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_SPEC_NAME", "Spec name cannot be empty")
	}
	if len(name) > 50 {
		return shared.NewDomainError("INVALID_SPEC_NAME", "Spec name cannot exceed 50 characters")
	}
	return nil
}

func validateBaseUnitQuantity(q decimal.Decimal) error {
	if !q.IsPositive() {
		return shared.NewDomainError("INVALID_SPEC_QUANTITY", "Base unit quantity must be greater than zero")
	}
	return nil
}
