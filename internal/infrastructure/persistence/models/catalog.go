package models

import (
	"time"

	"github.com/erp/tradedesk/internal/domain/catalog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductModel is the persistence model for the Product entity.
type ProductModel struct {
	BaseModel
	Name           string               `gorm:"type:varchar(200);not null"`
	BaseUnitSymbol string               `gorm:"type:varchar(20);not null"`
	BatchBySpec    bool                 `gorm:"not null;default:false"`
	Specs          []PackagingSpecModel `gorm:"foreignKey:ProductID;references:ID"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product.
func (m *ProductModel) ToDomain() *catalog.Product {
	p := &catalog.Product{
		BaseEntity:     m.BaseModel.ToDomain(),
		Name:           m.Name,
		BaseUnitSymbol: m.BaseUnitSymbol,
		BatchBySpec:    m.BatchBySpec,
		Specs:          make([]catalog.PackagingSpec, len(m.Specs)),
	}
	for i := range m.Specs {
		p.Specs[i] = m.Specs[i].ToDomain()
	}
	return p
}

// ProductModelFromDomain creates a persistence model from a domain Product.
func ProductModelFromDomain(p *catalog.Product) *ProductModel {
	m := &ProductModel{
		Name:           p.Name,
		BaseUnitSymbol: p.BaseUnitSymbol,
		BatchBySpec:    p.BatchBySpec,
		Specs:          make([]PackagingSpecModel, len(p.Specs)),
	}
	m.FromDomainBaseEntity(p.BaseEntity)
	for i := range p.Specs {
		m.Specs[i] = PackagingSpecModelFromDomain(p.Specs[i])
	}
	return m
}

// PackagingSpecModel is the persistence model for a product packaging spec.
type PackagingSpecModel struct {
	ID               uuid.UUID       `gorm:"type:uuid;primary_key"`
	ProductID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	Name             string          `gorm:"type:varchar(100);not null"`
	ContainerLabel   string          `gorm:"type:varchar(50);not null"`
	BaseUnitQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	BaseUnitSymbol   string          `gorm:"type:varchar(20);not null"`
	IsDefault        bool            `gorm:"not null;default:false"`
	IsBulk           bool            `gorm:"not null;default:false"`
	IsActive         bool            `gorm:"not null"`
	SortOrder        int             `gorm:"not null;default:0"`
	CreatedAt        time.Time       `gorm:"not null"`
	UpdatedAt        time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PackagingSpecModel) TableName() string {
	return "packaging_specs"
}

// ToDomain converts the persistence model to a domain PackagingSpec.
func (m *PackagingSpecModel) ToDomain() catalog.PackagingSpec {
	return catalog.PackagingSpec{
		ID:               m.ID,
		ProductID:        m.ProductID,
		Name:             m.Name,
		ContainerLabel:   m.ContainerLabel,
		BaseUnitQuantity: m.BaseUnitQuantity,
		BaseUnitSymbol:   m.BaseUnitSymbol,
		IsDefault:        m.IsDefault,
		IsBulk:           m.IsBulk,
		IsActive:         m.IsActive,
		SortOrder:        m.SortOrder,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// PackagingSpecModelFromDomain creates a persistence model from a domain PackagingSpec.
func PackagingSpecModelFromDomain(s catalog.PackagingSpec) PackagingSpecModel {
	return PackagingSpecModel{
		ID:               s.ID,
		ProductID:        s.ProductID,
		Name:             s.Name,
		ContainerLabel:   s.ContainerLabel,
		BaseUnitQuantity: s.BaseUnitQuantity,
		BaseUnitSymbol:   s.BaseUnitSymbol,
		IsDefault:        s.IsDefault,
		IsBulk:           s.IsBulk,
		IsActive:         s.IsActive,
		SortOrder:        s.SortOrder,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
}

// DeductionFormulaModel is the persistence model for a net weight deduction formula.
type DeductionFormulaModel struct {
	ID        uuid.UUID           `gorm:"type:uuid;primary_key"`
	Name      string              `gorm:"type:varchar(100);not null"`
	Type      catalog.FormulaType `gorm:"type:varchar(20);not null"`
	Value     decimal.Decimal     `gorm:"type:decimal(18,4);not null;default:0"`
	IsDefault bool                `gorm:"not null;default:false"`
	IsActive  bool                `gorm:"not null;index"`
	SortOrder int                 `gorm:"not null;default:0"`
	CreatedAt time.Time           `gorm:"not null"`
	UpdatedAt time.Time           `gorm:"not null"`
}

// TableName returns the table name for GORM
func (DeductionFormulaModel) TableName() string {
	return "deduction_formulas"
}

// ToDomain converts the persistence model to a domain DeductionFormula.
func (m *DeductionFormulaModel) ToDomain() *catalog.DeductionFormula {
	return &catalog.DeductionFormula{
		ID:        m.ID,
		Name:      m.Name,
		Type:      m.Type,
		Value:     m.Value,
		IsDefault: m.IsDefault,
		IsActive:  m.IsActive,
		SortOrder: m.SortOrder,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// DeductionFormulaModelFromDomain creates a persistence model from a domain DeductionFormula.
func DeductionFormulaModelFromDomain(f *catalog.DeductionFormula) *DeductionFormulaModel {
	return &DeductionFormulaModel{
		ID:        f.ID,
		Name:      f.Name,
		Type:      f.Type,
		Value:     f.Value,
		IsDefault: f.IsDefault,
		IsActive:  f.IsActive,
		SortOrder: f.SortOrder,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}
