package catalog

import (
	"strings"
	"time"

	"github.com/erp/tradedesk/internal/domain/shared"
	"github.com/google/uuid"
)

// Product is the catalog view the costing engine needs: the base unit and
// the packaging specs goods are traded in.
type Product struct {
	shared.BaseEntity
	Name           string
	BaseUnitSymbol string
	// BatchBySpec marks packaging specs as batch-significant: stock batches
	// of this product are pooled per (product, spec) instead of per product.
	BatchBySpec bool
	Specs       []PackagingSpec
}

// NewProduct creates a new product
func NewProduct(name, baseUnitSymbol string) (*Product, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_PRODUCT_NAME", "Product name cannot be empty")
	}
	if err := validateUnitSymbol(baseUnitSymbol); err != nil {
		return nil, err
	}
	return &Product{
		BaseEntity:     shared.NewBaseEntity(),
		Name:           name,
		BaseUnitSymbol: baseUnitSymbol,
	}, nil
}

// AddSpec attaches a packaging spec, keeping the single-default invariant
func (p *Product) AddSpec(spec PackagingSpec) error {
	spec.ProductID = p.ID
	if spec.BaseUnitSymbol == "" {
		spec.BaseUnitSymbol = p.BaseUnitSymbol
	}
	candidate := append(append([]PackagingSpec{}, p.Specs...), spec)
	if err := ValidateSpecs(candidate); err != nil {
		return err
	}
	p.Specs = candidate
	p.Touch(time.Now())
	return nil
}

// SpecByID returns the spec with the given id, or nil
func (p *Product) SpecByID(id uuid.UUID) *PackagingSpec {
	for i := range p.Specs {
		if p.Specs[i].ID == id {
			return &p.Specs[i]
		}
	}
	return nil
}

// DefaultSpec returns the active default spec, falling back to the first
// active one by sort order.
func (p *Product) DefaultSpec() *PackagingSpec {
	var first *PackagingSpec
	for i := range p.Specs {
		s := &p.Specs[i]
		if !s.IsActive {
			continue
		}
		if s.IsDefault {
			return s
		}
		if first == nil || s.SortOrder < first.SortOrder {
			first = s
		}
	}
	return first
}

// ResolveSpec looks up specID on the product, treating nil as "no spec"
func (p *Product) ResolveSpec(specID *uuid.UUID) *PackagingSpec {
	if p == nil || specID == nil {
		return nil
	}
	return p.SpecByID(*specID)
}

func validateUnitSymbol(symbol string) error {
	if symbol == "" {
		return shared.NewDomainError("INVALID_UNIT_SYMBOL", "Base unit symbol cannot be empty")
	}
	if len(symbol) > 20 {
		return shared.NewDomainError("INVALID_UNIT_SYMBOL", "Base unit symbol cannot exceed 20 characters")
	}
	return nil
}
