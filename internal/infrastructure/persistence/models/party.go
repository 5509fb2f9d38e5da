package models

import (
	"time"

	"github.com/erp/tradedesk/internal/domain/trade"
	"github.com/google/uuid"
)

// PartyModel is the persistence model for an order party: a warehouse,
// a transit depot or a trading partner.
type PartyModel struct {
	ID        uuid.UUID       `gorm:"type:uuid;primary_key"`
	Name      string          `gorm:"type:varchar(200);not null"`
	Kind      trade.PartyKind `gorm:"type:varchar(30);not null;index"`
	CreatedAt time.Time       `gorm:"not null"`
	UpdatedAt time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PartyModel) TableName() string {
	return "parties"
}

// ToDomain converts the persistence model to a domain Party.
func (m *PartyModel) ToDomain() trade.Party {
	return trade.Party{ID: m.ID, Name: m.Name, Kind: m.Kind}
}

// PartyModelFromDomain creates a persistence model from a domain Party.
func PartyModelFromDomain(p trade.Party) *PartyModel {
	return &PartyModel{ID: p.ID, Name: p.Name, Kind: p.Kind}
}
