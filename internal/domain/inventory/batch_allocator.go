package inventory

import (
	"sort"

	"github.com/erp/tradedesk/internal/domain/shared"
	"github.com/erp/tradedesk/internal/domain/shared/strategy"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PoolKey identifies the set of batches that stock for one order line is
// drawn from. When specs are batch-significant the key includes the spec and
// batches without a spec form their own (product, nil) pool; otherwise every
// batch of the product is in one pool.
type PoolKey struct {
	ProductID uuid.UUID
	SpecID    *uuid.UUID
	BySpec    bool
}

// NewPoolKey builds the pool key for a product line
func NewPoolKey(productID uuid.UUID, batchBySpec bool, specID *uuid.UUID) PoolKey {
	key := PoolKey{ProductID: productID, BySpec: batchBySpec}
	if batchBySpec && specID != nil {
		id := *specID
		key.SpecID = &id
	}
	return key
}

// Contains reports whether the batch belongs to this pool
func (k PoolKey) Contains(b *StockBatch) bool {
	if b.ProductID != k.ProductID {
		return false
	}
	if !k.BySpec {
		return true
	}
	if k.SpecID == nil || b.SpecID == nil {
		return k.SpecID == nil && b.SpecID == nil
	}
	return *k.SpecID == *b.SpecID
}

// BatchQuery selects available batches of one pool in one warehouse
type BatchQuery struct {
	Pool        PoolKey
	WarehouseID uuid.UUID
}

// BatchDeduction is one step of a multi-batch plan
type BatchDeduction struct {
	BatchID          uuid.UUID
	BatchNo          string
	DeductedAmount   decimal.Decimal
	UnitCost         decimal.Decimal
	TotalCost        decimal.Decimal
	RemainingInBatch decimal.Decimal
	FullyConsumed    bool
}

// BatchPlan is a FIFO split of a requested quantity over several batches.
// It is a suggestion only; the user still picks batches per line.
type BatchPlan struct {
	Deductions          []BatchDeduction
	TotalDeducted       decimal.Decimal
	TotalCost           decimal.Decimal
	WeightedAverageCost decimal.Decimal
	RemainingQuantity   decimal.Decimal
	FullyFulfilled      bool
}

// BatchRequest is one line's claim on a batch. Ref identifies the line to
// the caller.
type BatchRequest struct {
	Ref      int
	BatchID  uuid.UUID
	Quantity decimal.Decimal
}

// BatchDraw is the stock one submitted order takes from one batch, with
// what the batch holds afterwards
type BatchDraw struct {
	BatchID   uuid.UUID
	BatchNo   string
	Quantity  decimal.Decimal
	Remaining decimal.Decimal
	Depleted  bool
}

// AggregateViolation reports a batch claimed by several lines whose
// combined quantity exceeds what the batch has available
type AggregateViolation struct {
	BatchID   uuid.UUID
	BatchNo   string
	Refs      []int
	Requested decimal.Decimal
	Available decimal.Decimal
}

var (
	ErrBatchUnavailable     = shared.NewDomainError("BATCH_UNAVAILABLE", "Batch has no available quantity")
	ErrBatchQuantityExceeds = shared.NewDomainError("BATCH_QUANTITY_EXCEEDED", "Requested quantity exceeds batch availability")
)

// BatchAllocator orders and checks batches for outbound stock, earliest
// receipt first
type BatchAllocator struct {
	strategy.BaseStrategy
}

// NewBatchAllocator creates a new FIFO batch allocator
func NewBatchAllocator() *BatchAllocator {
	return &BatchAllocator{
		BaseStrategy: strategy.NewBaseStrategy(
			"fifo_batch_allocation",
			strategy.StrategyTypeBatch,
			"FIFO batch allocation - orders batches by receipt date, earliest first",
		),
	}
}

// AvailableBatches filters batches to the pool and warehouse, drops batches
// with nothing available and sorts by receipt date. Ties are broken by batch
// number, then id, so the order is stable across calls.
func (a *BatchAllocator) AvailableBatches(key PoolKey, warehouseID uuid.UUID, batches []StockBatch) []StockBatch {
	result := make([]StockBatch, 0, len(batches))
	for i := range batches {
		b := &batches[i]
		if b.WarehouseID != warehouseID || !key.Contains(b) || !b.IsAvailable() {
			continue
		}
		result = append(result, *b)
	}
	sortFIFO(result)
	return result
}

// Suggest returns the batch to preselect for a line: the head of the FIFO
// order. It returns nil when nothing is available.
func (a *BatchAllocator) Suggest(key PoolKey, warehouseID uuid.UUID, batches []StockBatch) *StockBatch {
	available := a.AvailableBatches(key, warehouseID, batches)
	if len(available) == 0 {
		return nil
	}
	return &available[0]
}

// PlanFIFO splits requested over the batches in FIFO order
func (a *BatchAllocator) PlanFIFO(requested decimal.Decimal, batches []StockBatch) (*BatchPlan, error) {
	if requested.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Requested quantity must be positive")
	}

	sorted := make([]StockBatch, 0, len(batches))
	for _, b := range batches {
		if b.IsAvailable() {
			sorted = append(sorted, b)
		}
	}
	sortFIFO(sorted)

	plan := &BatchPlan{
		Deductions:        make([]BatchDeduction, 0),
		TotalDeducted:     decimal.Zero,
		TotalCost:         decimal.Zero,
		RemainingQuantity: requested,
	}
	for _, batch := range sorted {
		if plan.RemainingQuantity.IsZero() {
			break
		}

		amount := decimal.Min(plan.RemainingQuantity, batch.AvailableQuantity)
		left := batch.AvailableQuantity.Sub(amount)
		cost := amount.Mul(batch.CostPrice)

		plan.Deductions = append(plan.Deductions, BatchDeduction{
			BatchID:          batch.ID,
			BatchNo:          batch.BatchNo,
			DeductedAmount:   amount,
			UnitCost:         batch.CostPrice,
			TotalCost:        cost,
			RemainingInBatch: left,
			FullyConsumed:    left.IsZero(),
		})
		plan.TotalDeducted = plan.TotalDeducted.Add(amount)
		plan.TotalCost = plan.TotalCost.Add(cost)
		plan.RemainingQuantity = plan.RemainingQuantity.Sub(amount)
	}

	if plan.TotalDeducted.GreaterThan(decimal.Zero) {
		plan.WeightedAverageCost = plan.TotalCost.Div(plan.TotalDeducted).Round(4)
	}
	plan.FullyFulfilled = plan.RemainingQuantity.IsZero()
	return plan, nil
}

// ValidateSelection refuses a quantity the chosen batch cannot cover
func (a *BatchAllocator) ValidateSelection(batch *StockBatch, quantity decimal.Decimal) error {
	if !quantity.IsPositive() {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if !batch.IsAvailable() {
		return shared.NewDomainErrorf(ErrBatchUnavailable.Code, "Batch %s has no available quantity", batch.BatchNo)
	}
	if quantity.GreaterThan(batch.AvailableQuantity) {
		return shared.NewDomainErrorf(ErrBatchQuantityExceeds.Code,
			"Batch %s has %s available, requested %s", batch.BatchNo, batch.AvailableQuantity, quantity)
	}
	return nil
}

// CheckAggregate sums requests per batch and reports every batch referenced
// by more than one line whose total exceeds availability. Requests for
// batches missing from the snapshot are ignored.
func (a *BatchAllocator) CheckAggregate(requests []BatchRequest, batches []StockBatch) []AggregateViolation {
	byID := make(map[uuid.UUID]*StockBatch, len(batches))
	for i := range batches {
		byID[batches[i].ID] = &batches[i]
	}

	type claim struct {
		refs  []int
		total decimal.Decimal
	}
	claims := make(map[uuid.UUID]*claim)
	order := make([]uuid.UUID, 0)
	for _, r := range requests {
		c, ok := claims[r.BatchID]
		if !ok {
			c = &claim{total: decimal.Zero}
			claims[r.BatchID] = c
			order = append(order, r.BatchID)
		}
		c.refs = append(c.refs, r.Ref)
		c.total = c.total.Add(r.Quantity)
	}

	violations := make([]AggregateViolation, 0)
	for _, id := range order {
		c := claims[id]
		batch, ok := byID[id]
		if !ok || len(c.refs) < 2 {
			continue
		}
		if c.total.GreaterThan(batch.AvailableQuantity) {
			violations = append(violations, AggregateViolation{
				BatchID:   id,
				BatchNo:   batch.BatchNo,
				Refs:      c.refs,
				Requested: c.total,
				Available: batch.AvailableQuantity,
			})
		}
	}
	return violations
}

// Draw sums requests per batch and consumes them from copies of the
// snapshot batches, in first-request order. Zero requests are skipped. A
// batch missing from the snapshot or short of stock fails the whole draw.
func (a *BatchAllocator) Draw(requests []BatchRequest, batches map[uuid.UUID]StockBatch) ([]BatchDraw, error) {
	totals := make(map[uuid.UUID]decimal.Decimal)
	order := make([]uuid.UUID, 0)
	for _, r := range requests {
		if !r.Quantity.IsPositive() {
			continue
		}
		prev, ok := totals[r.BatchID]
		if !ok {
			prev = decimal.Zero
			order = append(order, r.BatchID)
		}
		totals[r.BatchID] = prev.Add(r.Quantity)
	}

	draws := make([]BatchDraw, 0, len(order))
	for _, id := range order {
		batch, ok := batches[id]
		if !ok {
			return nil, shared.NewDomainErrorf(ErrBatchUnavailable.Code, "Batch %s is not available", id)
		}
		if err := batch.Consume(totals[id]); err != nil {
			return nil, err
		}
		draws = append(draws, BatchDraw{
			BatchID:   id,
			BatchNo:   batch.BatchNo,
			Quantity:  totals[id],
			Remaining: batch.AvailableQuantity,
			Depleted:  batch.Status == BatchStatusDepleted,
		})
	}
	return draws, nil
}

func sortFIFO(batches []StockBatch) {
	sort.SliceStable(batches, func(i, j int) bool {
		if !batches[i].ReceivedAt.Equal(batches[j].ReceivedAt) {
			return batches[i].ReceivedAt.Before(batches[j].ReceivedAt)
		}
		if batches[i].BatchNo != batches[j].BatchNo {
			return batches[i].BatchNo < batches[j].BatchNo
		}
		return batches[i].ID.String() < batches[j].ID.String()
	})
}
