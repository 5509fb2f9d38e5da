package trade

import "github.com/google/uuid"

// PartyKind classifies the endpoints of a goods movement
type PartyKind string

const (
	PartyKindWarehouse        PartyKind = "warehouse"
	PartyKindTransitWarehouse PartyKind = "transit_warehouse"
	PartyKindSupplier         PartyKind = "supplier"
	PartyKindCustomer         PartyKind = "customer"
	PartyKindLogistics        PartyKind = "logistics"
)

// IsValid returns true if the kind is known
func (k PartyKind) IsValid() bool {
	switch k {
	case PartyKindWarehouse, PartyKindTransitWarehouse, PartyKindSupplier, PartyKindCustomer, PartyKindLogistics:
		return true
	}
	return false
}

// Party is a source or target of an order
type Party struct {
	ID   uuid.UUID
	Name string
	Kind PartyKind
}

// IsWarehouse reports whether the party stores stock and charges storage.
// Transit depots do not.
func (p *Party) IsWarehouse() bool {
	return p != nil && p.Kind == PartyKindWarehouse
}
