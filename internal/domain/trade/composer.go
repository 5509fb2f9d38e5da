package trade

import (
	"fmt"
	"time"

	"github.com/erp/tradedesk/internal/domain/catalog"
	"github.com/erp/tradedesk/internal/domain/inventory"
	"github.com/erp/tradedesk/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrFormulaUnavailable is recorded when a line references a formula that
// could not be loaded
var ErrFormulaUnavailable = shared.NewDomainError("FORMULA_UNAVAILABLE", "Deduction formula is not available")

// ReferenceData is the snapshot of external data one composition reads
type ReferenceData struct {
	Products map[uuid.UUID]*catalog.Product
	Formulas map[uuid.UUID]*catalog.DeductionFormula
	// Batches holds every batch referenced by the draft's lines
	Batches map[uuid.UUID]inventory.StockBatch
	// Candidates holds the available batches of each line's pool, by slot
	Candidates map[int][]inventory.StockBatch
	Source     *Party
	Target     *Party
	Original   *BusinessOrder
	// Returned is what other, non-cancelled returns already took back from
	// each original line
	Returned map[uuid.UUID]decimal.Decimal
	// Stocked lists products with stock in the source warehouse; nil skips
	// the check
	Stocked map[uuid.UUID]bool
	// Deductions holds net weights already evaluated elsewhere, by slot
	Deductions map[int]catalog.DeductionOutcome
}

// LineResult holds the derived values of one line
type LineResult struct {
	Slot             int
	PricingMode      catalog.PricingMode
	Quantity         decimal.Decimal
	Weight           decimal.Decimal
	ContainerCount   decimal.Decimal
	UnitQuantity     decimal.Decimal
	Converted        bool
	SpecName         string
	Deduction        *catalog.DeductionOutcome
	NeedsReview      bool
	Subtotal         decimal.Decimal
	SuggestedBatchID *uuid.UUID
	Returnable       *decimal.Decimal
}

// Result is the outcome of one composition
type Result struct {
	Order      *BusinessOrder
	Lines      []LineResult
	StorageFee StorageFeeBreakdown
	Totals     Totals
	Issues     Issues
	Ready      bool
	// Draws is the batch stock the order takes when submitted; set only
	// when nothing blocks
	Draws []inventory.BatchDraw
}

// Composer derives every computed value of a draft order from the draft and
// a reference data snapshot. It has no state of its own beyond the tariff and
// never mutates the draft.
type Composer struct {
	allocator *inventory.BatchAllocator
	fees      *StorageFeeEstimator
	dates     *OrderDateValidator
}

// NewComposer creates a new Composer
func NewComposer(schedule FeeSchedule) *Composer {
	fees := NewStorageFeeEstimator(schedule)
	return &Composer{
		allocator: inventory.NewBatchAllocator(),
		fees:      fees,
		dates:     NewOrderDateValidator(fees.Schedule().Location),
	}
}

// Fees returns the storage fee estimator
func (c *Composer) Fees() *StorageFeeEstimator {
	return c.fees
}

// Allocator returns the batch allocator
func (c *Composer) Allocator() *inventory.BatchAllocator {
	return c.allocator
}

type composeState struct {
	ref        ReferenceData
	order      *BusinessOrder
	issues     Issues
	srcWh      bool
	tgtWh      bool
	tracker    *ReturnQuantityTracker
	claimed    map[uuid.UUID]decimal.Decimal
	batchReqs  []inventory.BatchRequest
	feeLines   []FeeLine
	returnSum  decimal.Decimal
	returnSeen bool
}

// Compose recomputes the draft
func (c *Composer) Compose(draft *BusinessOrder, ref ReferenceData) Result {
	st := &composeState{
		ref:       ref,
		order:     cloneOrder(draft),
		srcWh:     ref.Source.IsWarehouse(),
		tgtWh:     ref.Target.IsWarehouse(),
		claimed:   make(map[uuid.UUID]decimal.Decimal),
		returnSum: decimal.Zero,
	}
	o := st.order

	if ref.Source == nil {
		st.issues.Error(NoSlot, IssueSourceRequired, "source_id", "Source is required")
	}
	if ref.Target == nil {
		st.issues.Error(NoSlot, IssueTargetRequired, "target_id", "Target is required")
	}
	if len(o.Lines) == 0 {
		st.issues.Error(NoSlot, IssueLinesRequired, "lines", "At least one line is required")
	}
	if o.Type.IsReturn() {
		switch {
		case ref.Original == nil:
			st.issues.Error(NoSlot, IssueOriginalRequired, "related_order_id", "Return orders must reference the original order")
		case ref.Original.Status != OrderStatusCompleted:
			st.issues.Error(NoSlot, IssueOriginalRequired, "related_order_id", ErrOriginalNotComplete.Message)
		default:
			st.tracker = NewReturnQuantityTracker(ref.Original, ref.Returned)
		}
	}

	lines := make([]LineResult, 0, len(o.Lines))
	for i := range o.Lines {
		lines = append(lines, c.composeLine(st, &o.Lines[i]))
	}

	if st.tracker != nil && st.returnSeen && st.returnSum.IsZero() {
		st.issues.Error(NoSlot, IssueReturnEmpty, "lines", ErrReturnEmpty.Message)
	}

	for _, v := range c.allocator.CheckAggregate(st.batchReqs, batchList(ref.Batches)) {
		st.issues.Error(v.Refs[0], IssueBatchOverallocated, "batch_id", fmt.Sprintf(
			"Lines %v together request %s from batch %s, which has %s available",
			v.Refs, v.Requested, v.BatchNo, v.Available))
	}

	fee := c.fees.Estimate(StorageFeeInput{
		Enabled:           o.CalculateStorageFee,
		SourceIsWarehouse: st.srcWh,
		TargetIsWarehouse: st.tgtWh,
		BusinessDate:      o.BusinessDate(),
		Lines:             st.feeLines,
	})

	st.issues = append(st.issues, c.dates.Validate(DateCheck{
		Order:             o,
		SourceIsWarehouse: st.srcWh,
		Batches:           ref.Batches,
		ProductNames:      productNames(ref.Products),
		Original:          ref.Original,
	})...)

	totals := AggregateTotals(o.Lines, o.ShippingFee, fee.Total, o.OtherFee)
	for i := range o.Lines {
		o.Lines[i].Subtotal = totals.Lines[i].Subtotal
		lines[i].Subtotal = totals.Lines[i].Subtotal
	}
	o.ShippingFee = totals.ShippingFee
	o.StorageFee = fee.Total
	o.OtherFee = totals.OtherFee
	o.TotalAmount = totals.OrderTotal
	o.FinalAmount = totals.FinalAmount

	var draws []inventory.BatchDraw
	if !st.issues.HasBlocking() && len(st.batchReqs) > 0 {
		var err error
		if draws, err = c.allocator.Draw(st.batchReqs, ref.Batches); err != nil {
			st.issues.Error(NoSlot, IssueBatchExceeded, "batch_id", err.Error())
			draws = nil
		}
	}

	return Result{
		Order:      o,
		Lines:      lines,
		StorageFee: fee,
		Totals:     totals,
		Issues:     st.issues,
		Ready:      !st.issues.HasBlocking(),
		Draws:      draws,
	}
}

func (c *Composer) composeLine(st *composeState, l *OrderLine) LineResult {
	res := LineResult{Slot: l.Slot, Quantity: l.Quantity}

	if l.ProductID == uuid.Nil {
		st.issues.Error(l.Slot, IssueProductRequired, "product_id", "Product is required")
		return res
	}
	product := st.ref.Products[l.ProductID]
	if product == nil {
		st.issues.Error(l.Slot, IssueProductNotFound, "product_id", fmt.Sprintf("Product %s not found", l.ProductID))
		return res
	}
	if st.srcWh && st.ref.Stocked != nil && !st.ref.Stocked[product.ID] {
		st.issues.Warn(l.Slot, IssueProductNotStocked, "product_id",
			fmt.Sprintf("%s has no stock in %s", product.Name, st.ref.Source.Name))
	}

	spec := product.ResolveSpec(l.SpecID)
	if l.SpecID != nil && spec == nil {
		st.issues.Error(l.Slot, IssueSpecNotFound, "spec_id", fmt.Sprintf("Packaging spec %s not found on %s", *l.SpecID, product.Name))
	}
	if spec != nil {
		res.SpecName = spec.DisplayName()
	}
	mode := catalog.EffectivePricingMode(spec, l.PricingMode)
	l.PricingMode = mode

	if l.GrossWeight != nil {
		outcome := c.deduct(st.ref, l)
		res.Deduction = &outcome
		res.NeedsReview = outcome.NeedsReview
		switch {
		case outcome.Blocking():
			st.issues.Error(l.Slot, IssueUnitCountRequired, "unit_count", outcome.Reason)
		case outcome.NeedsReview:
			st.issues.Warn(l.Slot, IssueFormulaReview, "formula_id",
				fmt.Sprintf("Net weight could not be calculated (%s); gross weight used", outcome.Reason))
		}
		if mode == catalog.PricingModeWeight {
			l.Quantity = outcome.Net
		}
	}

	conv := catalog.Convert(spec, mode, l.Quantity)
	l.Weight = conv.Weight
	if res.Deduction != nil && mode == catalog.PricingModeContainer {
		l.Weight = res.Deduction.Net
	}

	res.PricingMode = mode
	res.Quantity = l.Quantity
	res.Weight = l.Weight
	res.ContainerCount = conv.ContainerCount
	res.UnitQuantity = conv.UnitQuantity
	res.Converted = conv.Converted

	if st.order.Type.IsReturn() {
		if l.Quantity.IsNegative() {
			st.issues.Error(l.Slot, IssueQuantityRequired, "quantity", "Return quantity cannot be negative")
		}
	} else if !l.Quantity.IsPositive() {
		st.issues.Error(l.Slot, IssueQuantityRequired, "quantity", "Quantity must be greater than zero")
	}
	if l.UnitPrice.IsNegative() {
		st.issues.Error(l.Slot, IssueInvalidPrice, "unit_price", "Unit price cannot be negative")
	}

	if st.srcWh {
		res.SuggestedBatchID = c.checkBatches(st, l, product)
	} else {
		st.feeLines = append(st.feeLines, FeeLine{Slot: l.Slot, Weight: l.Weight, ReceivedAt: c.receivedAt(st.ref, l.BatchID)})
	}

	if st.tracker != nil {
		res.Returnable = c.checkReturn(st, l)
	}
	return res
}

func (c *Composer) deduct(ref ReferenceData, l *OrderLine) catalog.DeductionOutcome {
	gross := *l.GrossWeight
	if l.FormulaID == nil {
		return catalog.Evaluate(nil, gross, l.UnitCount)
	}
	formula := ref.Formulas[*l.FormulaID]
	if formula == nil {
		return catalog.FailOpen(gross, ErrFormulaUnavailable)
	}
	// unit count problems are the user's to fix whatever the remote said
	local := catalog.Evaluate(formula, gross, l.UnitCount)
	if local.Blocking() {
		return local
	}
	if remote, ok := ref.Deductions[l.Slot]; ok {
		return remote
	}
	return local
}

// checkBatches validates the line's batch choice against the snapshot and
// records its claims and fee lines. It returns the FIFO suggestion when the
// line has no batch yet.
func (c *Composer) checkBatches(st *composeState, l *OrderLine, product *catalog.Product) *uuid.UUID {
	key := inventory.NewPoolKey(product.ID, product.BatchBySpec, l.SpecID)

	if len(l.Allocations) == 0 && l.BatchID == nil {
		st.issues.Error(l.Slot, IssueBatchRequired, "batch_id", fmt.Sprintf("Choose a batch for %s", product.Name))
		st.feeLines = append(st.feeLines, FeeLine{Slot: l.Slot, Weight: l.Weight})
		if s := c.allocator.Suggest(key, st.ref.Source.ID, st.ref.Candidates[l.Slot]); s != nil {
			id := s.ID
			return &id
		}
		return nil
	}

	allocations := l.Allocations
	if len(allocations) == 0 {
		allocations = []BatchAllocation{{BatchID: *l.BatchID, Quantity: l.Weight}}
	} else {
		sum := decimal.Zero
		for _, a := range allocations {
			sum = sum.Add(a.Quantity)
		}
		if !sum.Equal(l.Weight) {
			st.issues.Error(l.Slot, IssueAllocationMismatch, "allocations", fmt.Sprintf(
				"Batch allocations total %s but the line weighs %s", sum, l.Weight))
		}
	}

	for _, a := range allocations {
		batchID := a.BatchID
		st.feeLines = append(st.feeLines, FeeLine{Slot: l.Slot, Weight: a.Quantity, ReceivedAt: c.receivedAt(st.ref, &batchID)})

		batch, ok := st.ref.Batches[a.BatchID]
		if !ok {
			st.issues.Error(l.Slot, IssueBatchNotFound, "batch_id", fmt.Sprintf("Batch %s not found", a.BatchID))
			continue
		}
		if !key.Contains(&batch) || batch.WarehouseID != st.ref.Source.ID {
			st.issues.Error(l.Slot, IssueBatchNotInPool, "batch_id", fmt.Sprintf(
				"Batch %s does not hold %s in %s", batch.BatchNo, product.Name, st.ref.Source.Name))
			continue
		}
		if a.Quantity.IsPositive() {
			if err := c.allocator.ValidateSelection(&batch, a.Quantity); err != nil {
				st.issues.Error(l.Slot, IssueBatchExceeded, "quantity", fmt.Sprintf("%s: %s", product.Name, err.Error()))
			}
		}
		st.batchReqs = append(st.batchReqs, inventory.BatchRequest{Ref: l.Slot, BatchID: a.BatchID, Quantity: a.Quantity})
	}
	return nil
}

func (c *Composer) checkReturn(st *composeState, l *OrderLine) *decimal.Decimal {
	if l.OriginalItemID == nil {
		st.issues.Error(l.Slot, IssueOriginalLineRequired, "original_item_id", "Return lines must reference a line of the original order")
		return nil
	}
	returnable, ok := st.tracker.ReturnableFor(*l.OriginalItemID)
	if !ok {
		st.issues.Error(l.Slot, IssueOriginalLineRequired, "original_item_id", ErrReturnLineUnknown.Message)
		return nil
	}
	st.returnSeen = true

	prev, ok := st.claimed[*l.OriginalItemID]
	if !ok {
		prev = decimal.Zero
	}
	total := prev.Add(l.Quantity)
	st.claimed[*l.OriginalItemID] = total
	st.returnSum = st.returnSum.Add(l.Quantity)

	if total.GreaterThan(returnable) {
		st.issues.Error(l.Slot, IssueReturnExceeded, "quantity", fmt.Sprintf(
			"Return quantity %s exceeds returnable %s", total, returnable))
	}
	return &returnable
}

func (c *Composer) receivedAt(ref ReferenceData, batchID *uuid.UUID) *time.Time {
	if batchID == nil {
		return nil
	}
	b, ok := ref.Batches[*batchID]
	if !ok || b.ReceivedAt.IsZero() {
		return nil
	}
	t := b.ReceivedAt
	return &t
}

func cloneOrder(o *BusinessOrder) *BusinessOrder {
	cp := *o
	cp.Lines = make([]OrderLine, len(o.Lines))
	copy(cp.Lines, o.Lines)
	for i := range cp.Lines {
		if len(o.Lines[i].Allocations) > 0 {
			cp.Lines[i].Allocations = append([]BatchAllocation(nil), o.Lines[i].Allocations...)
		}
	}
	return &cp
}

func batchList(m map[uuid.UUID]inventory.StockBatch) []inventory.StockBatch {
	out := make([]inventory.StockBatch, 0, len(m))
	for _, b := range m {
		out = append(out, b)
	}
	return out
}

func productNames(products map[uuid.UUID]*catalog.Product) map[uuid.UUID]string {
	names := make(map[uuid.UUID]string, len(products))
	for id, p := range products {
		if p != nil {
			names[id] = p.Name
		}
	}
	return names
}
