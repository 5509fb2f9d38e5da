package trade

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/tradedesk/internal/domain/catalog"
	"github.com/erp/tradedesk/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderType represents the kind of goods movement an order records
type OrderType string

const (
	OrderTypeLoading   OrderType = "loading"
	OrderTypeUnloading OrderType = "unloading"
	OrderTypePurchase  OrderType = "purchase"
	OrderTypeSale      OrderType = "sale"
	OrderTypeTransfer  OrderType = "transfer"
	OrderTypeReturnIn  OrderType = "return_in"
	OrderTypeReturnOut OrderType = "return_out"
)

// IsValid checks if the order type is known
func (t OrderType) IsValid() bool {
	switch t {
	case OrderTypeLoading, OrderTypeUnloading, OrderTypePurchase, OrderTypeSale,
		OrderTypeTransfer, OrderTypeReturnIn, OrderTypeReturnOut:
		return true
	}
	return false
}

// IsReturn returns true for return orders
func (t OrderType) IsReturn() bool {
	return t == OrderTypeReturnIn || t == OrderTypeReturnOut
}

// NumberPrefix returns the order number prefix for the type
func (t OrderType) NumberPrefix() string {
	switch t {
	case OrderTypeLoading:
		return "LD"
	case OrderTypeUnloading:
		return "UL"
	case OrderTypePurchase:
		return "PO"
	case OrderTypeSale:
		return "SO"
	case OrderTypeTransfer:
		return "TR"
	case OrderTypeReturnIn:
		return "RI"
	case OrderTypeReturnOut:
		return "RO"
	}
	return "OD"
}

// OrderStatus represents the status of a business order
type OrderStatus string

const (
	OrderStatusDraft     OrderStatus = "draft"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// CanTransitionTo checks if the status can transition to the target status
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	switch s {
	case OrderStatusDraft:
		return target == OrderStatusCompleted || target == OrderStatusCancelled
	case OrderStatusCompleted:
		return target == OrderStatusCancelled
	}
	return false
}

// BatchAllocation is a quantity, in base weight units, drawn from one batch
type BatchAllocation struct {
	BatchID  uuid.UUID
	Quantity decimal.Decimal
}

// OrderLine is one product line of an order. Slot identifies the line
// within its composition session; ID is assigned when the order is saved.
type OrderLine struct {
	Slot        int
	ID          uuid.UUID
	ProductID   uuid.UUID
	SpecID      *uuid.UUID
	PricingMode catalog.PricingMode
	Quantity    decimal.Decimal // in containers or base units per PricingMode
	UnitPrice   decimal.Decimal
	GrossWeight *decimal.Decimal
	FormulaID   *uuid.UUID
	UnitCount   int
	BatchID     *uuid.UUID
	Allocations []BatchAllocation

	// return lines only
	OriginalItemID *uuid.UUID

	ShippingCost decimal.Decimal
	Subtotal     decimal.Decimal
	Weight       decimal.Decimal // actual base-unit weight, derived
}

// IsReturnDerived reports whether the line was created by a return and so
// cannot itself be returned
func (l *OrderLine) IsReturnDerived() bool {
	return l.OriginalItemID != nil
}

// BatchIDs returns every batch the line draws from
func (l *OrderLine) BatchIDs() []uuid.UUID {
	if len(l.Allocations) > 0 {
		ids := make([]uuid.UUID, 0, len(l.Allocations))
		for _, a := range l.Allocations {
			ids = append(ids, a.BatchID)
		}
		return ids
	}
	if l.BatchID != nil {
		return []uuid.UUID{*l.BatchID}
	}
	return nil
}

// BusinessOrder is a purchase, sale, transfer, loading, unloading or return
// transaction between two parties
type BusinessOrder struct {
	ID                  uuid.UUID
	OrderNo             string
	Type                OrderType
	Status              OrderStatus
	SourceID            uuid.UUID
	TargetID            uuid.UUID
	OrderDate           time.Time
	LoadingDate         *time.Time
	UnloadingDate       *time.Time
	CalculateStorageFee bool
	ShippingFee         decimal.Decimal
	StorageFee          decimal.Decimal
	OtherFee            decimal.Decimal
	TotalAmount         decimal.Decimal
	FinalAmount         decimal.Decimal
	Lines               []OrderLine
	RelatedOrderID      *uuid.UUID
	Notes               string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// NewBusinessOrder creates a new draft order
func NewBusinessOrder(orderType OrderType, sourceID, targetID uuid.UUID, orderDate time.Time) (*BusinessOrder, error) {
	if !orderType.IsValid() {
		return nil, shared.NewDomainErrorf("INVALID_ORDER_TYPE", "Unknown order type %q", orderType)
	}
	if sourceID == uuid.Nil || targetID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PARTY", "Source and target are required")
	}
	if sourceID == targetID {
		return nil, shared.NewDomainError("INVALID_PARTY", "Source and target must differ")
	}
	now := time.Now()
	return &BusinessOrder{
		ID:                  uuid.New(),
		Type:                orderType,
		Status:              OrderStatusDraft,
		SourceID:            sourceID,
		TargetID:            targetID,
		OrderDate:           orderDate,
		CalculateStorageFee: true,
		ShippingFee:         decimal.Zero,
		StorageFee:          decimal.Zero,
		OtherFee:            decimal.Zero,
		TotalAmount:         decimal.Zero,
		FinalAmount:         decimal.Zero,
		CreatedAt:           now,
		UpdatedAt:           now,
	}, nil
}

// BusinessDate is the date the goods movement happens: the unloading date
// for unloading orders, otherwise the loading date when set, otherwise the
// order date.
func (o *BusinessOrder) BusinessDate() time.Time {
	if o.Type == OrderTypeUnloading && o.UnloadingDate != nil {
		return *o.UnloadingDate
	}
	if o.LoadingDate != nil {
		return *o.LoadingDate
	}
	return o.OrderDate
}

// IsCancelled returns true if the order is cancelled
func (o *BusinessOrder) IsCancelled() bool {
	return o.Status == OrderStatusCancelled
}

// LineByID returns the line with the given id, or nil
func (o *BusinessOrder) LineByID(id uuid.UUID) *OrderLine {
	for i := range o.Lines {
		if o.Lines[i].ID == id {
			return &o.Lines[i]
		}
	}
	return nil
}

// Complete marks the order completed
func (o *BusinessOrder) Complete() error {
	if !o.Status.CanTransitionTo(OrderStatusCompleted) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot complete order in %s status", o.Status))
	}
	if len(o.Lines) == 0 {
		return shared.NewDomainError("NO_ITEMS", "Cannot complete order without items")
	}
	o.Status = OrderStatusCompleted
	o.UpdatedAt = time.Now()
	return nil
}

// Cancel marks the order cancelled
func (o *BusinessOrder) Cancel() error {
	if !o.Status.CanTransitionTo(OrderStatusCancelled) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot cancel order in %s status", o.Status))
	}
	o.Status = OrderStatusCancelled
	o.UpdatedAt = time.Now()
	return nil
}

// AssignIdentity gives the order and its lines ids and an order number if
// they do not have them yet
func (o *BusinessOrder) AssignIdentity(now time.Time) {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.OrderNo == "" {
		o.OrderNo = NewOrderNo(o.Type, now)
	}
	for i := range o.Lines {
		if o.Lines[i].ID == uuid.Nil {
			o.Lines[i].ID = uuid.New()
		}
	}
}

// NewOrderNo generates an order number like SO-20240301-1A2B3C4D
func NewOrderNo(t OrderType, now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("%s-%s-%s", t.NumberPrefix(), now.Format("20060102"), suffix)
}
