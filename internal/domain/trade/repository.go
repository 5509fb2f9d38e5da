package trade

import (
	"context"

	"github.com/erp/tradedesk/internal/domain/inventory"
	"github.com/google/uuid"
)

// PartyRepository defines the interface for order party lookups
type PartyRepository interface {
	// FindByID finds a party by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Party, error)

	// FindByIDs finds parties by their IDs; missing ids are skipped
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Party, error)
}

// OrderRepository defines the interface for business order persistence
type OrderRepository interface {
	// FindByID finds an order with its lines
	FindByID(ctx context.Context, id uuid.UUID) (*BusinessOrder, error)

	// FindReturnsOf finds every return order whose related order is orderID,
	// including cancelled ones
	FindReturnsOf(ctx context.Context, orderID uuid.UUID) ([]BusinessOrder, error)

	// Save creates or updates an order with its lines and takes the draws
	// from their batches, all or nothing. Lines keep their ids; lines no
	// longer on the order are removed.
	Save(ctx context.Context, order *BusinessOrder, draws ...inventory.BatchDraw) error
}
