package trade

import (
	"github.com/erp/tradedesk/internal/domain/shared"
	"github.com/erp/tradedesk/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrReturnLineUnknown   = shared.NewDomainError("RETURN_LINE_UNKNOWN", "Line is not returnable on the original order")
	ErrReturnNegative      = shared.NewDomainError("INVALID_QUANTITY", "Return quantity cannot be negative")
	ErrReturnExceeded      = shared.NewDomainError(IssueReturnExceeded, "Return quantity exceeds the returnable quantity")
	ErrReturnEmpty         = shared.NewDomainError(IssueReturnEmpty, "Return quantities sum to zero")
	ErrNothingReturnable   = shared.NewDomainError("NOTHING_RETURNABLE", "Everything on the original order has already been returned")
	ErrOriginalNotComplete = shared.NewDomainError("INVALID_STATE", "Only completed orders can be returned")
)

// ReturnableLine is the return position of one original line
type ReturnableLine struct {
	LineID     uuid.UUID       `json:"line_id"`
	ProductID  uuid.UUID       `json:"product_id"`
	Original   decimal.Decimal `json:"original"`
	Returned   decimal.Decimal `json:"returned"`
	Returnable decimal.Decimal `json:"returnable"`
}

// ReturnRequest asks to return Quantity of an original line
type ReturnRequest struct {
	LineID   uuid.UUID
	Quantity decimal.Decimal
}

// ReturnedQuantities sums, per original line, the quantities on lines of the
// given return orders. Cancelled returns do not count.
func ReturnedQuantities(returnOrders []BusinessOrder) map[uuid.UUID]decimal.Decimal {
	returned := make(map[uuid.UUID]decimal.Decimal)
	for i := range returnOrders {
		if returnOrders[i].IsCancelled() {
			continue
		}
		for _, l := range returnOrders[i].Lines {
			if l.OriginalItemID == nil {
				continue
			}
			prev, ok := returned[*l.OriginalItemID]
			if !ok {
				prev = decimal.Zero
			}
			returned[*l.OriginalItemID] = prev.Add(l.Quantity)
		}
	}
	return returned
}

// ReturnQuantityTracker tracks how much of each original line can still be
// returned. Apply accumulates accepted requests.
type ReturnQuantityTracker struct {
	lines map[uuid.UUID]*ReturnableLine
	order []uuid.UUID
}

// NewReturnQuantityTracker builds a tracker from the original order and the
// already returned quantities. Return-derived lines are excluded.
func NewReturnQuantityTracker(original *BusinessOrder, returned map[uuid.UUID]decimal.Decimal) *ReturnQuantityTracker {
	t := &ReturnQuantityTracker{lines: make(map[uuid.UUID]*ReturnableLine)}
	if original == nil {
		return t
	}
	for _, l := range original.Lines {
		if l.IsReturnDerived() {
			continue
		}
		r, ok := returned[l.ID]
		if !ok {
			r = decimal.Zero
		}
		t.lines[l.ID] = &ReturnableLine{
			LineID:     l.ID,
			ProductID:  l.ProductID,
			Original:   l.Quantity,
			Returned:   r,
			Returnable: valueobject.NonNegative(l.Quantity.Sub(r)),
		}
		t.order = append(t.order, l.ID)
	}
	return t
}

// Returnable lists the lines in original order
func (t *ReturnQuantityTracker) Returnable() []ReturnableLine {
	out := make([]ReturnableLine, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, *t.lines[id])
	}
	return out
}

// ReturnableFor returns the returnable quantity of one line
func (t *ReturnQuantityTracker) ReturnableFor(lineID uuid.UUID) (decimal.Decimal, bool) {
	l, ok := t.lines[lineID]
	if !ok {
		return decimal.Zero, false
	}
	return l.Returnable, true
}

// HasReturnable reports whether anything is left to return
func (t *ReturnQuantityTracker) HasReturnable() bool {
	for _, id := range t.order {
		if t.lines[id].Returnable.IsPositive() {
			return true
		}
	}
	return false
}

// Check validates requests without recording them. Requests for the same
// line are summed before comparing.
func (t *ReturnQuantityTracker) Check(requests []ReturnRequest) error {
	totals := make(map[uuid.UUID]decimal.Decimal, len(requests))
	sum := decimal.Zero
	for _, r := range requests {
		if r.Quantity.IsNegative() {
			return ErrReturnNegative
		}
		line, ok := t.lines[r.LineID]
		if !ok {
			return shared.NewDomainErrorf(ErrReturnLineUnknown.Code, "Line %s is not returnable on the original order", r.LineID)
		}
		prev, ok := totals[r.LineID]
		if !ok {
			prev = decimal.Zero
		}
		total := prev.Add(r.Quantity)
		if total.GreaterThan(line.Returnable) {
			return shared.NewDomainErrorf(ErrReturnExceeded.Code,
				"Return quantity %s exceeds returnable %s", total, line.Returnable)
		}
		totals[r.LineID] = total
		sum = sum.Add(r.Quantity)
	}
	if sum.IsZero() {
		return ErrReturnEmpty
	}
	return nil
}

// Apply validates requests and, if all pass, records them as returned
func (t *ReturnQuantityTracker) Apply(requests []ReturnRequest) error {
	if err := t.Check(requests); err != nil {
		return err
	}
	for _, r := range requests {
		l := t.lines[r.LineID]
		l.Returned = l.Returned.Add(r.Quantity)
		l.Returnable = valueobject.NonNegative(l.Original.Sub(l.Returned))
	}
	return nil
}

// FullReturnRequest requests everything still returnable
func (t *ReturnQuantityTracker) FullReturnRequest() ([]ReturnRequest, error) {
	if !t.HasReturnable() {
		return nil, ErrNothingReturnable
	}
	requests := make([]ReturnRequest, 0, len(t.order))
	for _, id := range t.order {
		l := t.lines[id]
		if l.Returnable.IsPositive() {
			requests = append(requests, ReturnRequest{LineID: id, Quantity: l.Returnable})
		}
	}
	return requests, nil
}

// BuildReturnLines turns accepted requests into return-order lines that copy
// product, spec, pricing and price from the original line. Shipping cost is
// prorated by quantity.
func BuildReturnLines(original *BusinessOrder, requests []ReturnRequest) []OrderLine {
	lines := make([]OrderLine, 0, len(requests))
	for _, r := range requests {
		src := original.LineByID(r.LineID)
		if src == nil || r.Quantity.IsZero() {
			continue
		}
		originalID := src.ID
		lines = append(lines, OrderLine{
			ProductID:      src.ProductID,
			SpecID:         src.SpecID,
			PricingMode:    src.PricingMode,
			Quantity:       r.Quantity,
			UnitPrice:      src.UnitPrice,
			BatchID:        src.BatchID,
			OriginalItemID: &originalID,
			ShippingCost:   valueobject.ProrateByQuantity(src.ShippingCost, r.Quantity, src.Quantity),
		})
	}
	return lines
}
