package composition

import (
	"strings"
	"time"

	"github.com/erp/tradedesk/internal/domain/catalog"
	"github.com/erp/tradedesk/internal/domain/inventory"
	"github.com/erp/tradedesk/internal/domain/shared"
	"github.com/erp/tradedesk/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DateLayout is the wire format of order dates
const DateLayout = "2006-01-02"

// ==================== Draft DTOs ====================

// DraftOrderInput is the editable state of an order being composed
type DraftOrderInput struct {
	ID                  *uuid.UUID       `json:"id"`
	OrderNo             string           `json:"order_no" binding:"max=50"`
	Type                string           `json:"type" binding:"required,oneof=loading unloading purchase sale transfer return_in return_out"`
	SourceID            uuid.UUID        `json:"source_id"`
	TargetID            uuid.UUID        `json:"target_id"`
	OrderDate           string           `json:"order_date" binding:"omitempty,datetime=2006-01-02"`
	LoadingDate         string           `json:"loading_date" binding:"omitempty,datetime=2006-01-02"`
	UnloadingDate       string           `json:"unloading_date" binding:"omitempty,datetime=2006-01-02"`
	CalculateStorageFee *bool            `json:"calculate_storage_fee"`
	ShippingFee         decimal.Decimal  `json:"shipping_fee" binding:"decimal_gte0"`
	OtherFee            decimal.Decimal  `json:"other_fee" binding:"decimal_gte0"`
	RelatedOrderID      *uuid.UUID       `json:"related_order_id"`
	Notes               string           `json:"notes" binding:"max=500"`
	Lines               []DraftLineInput `json:"lines" binding:"dive"`
}

// DraftLineInput is one line of a draft. Slot is 0 for lines the session
// has not numbered yet; ID is set only for lines of a stored order.
type DraftLineInput struct {
	ID             *uuid.UUID        `json:"id,omitempty"`
	Slot           int               `json:"slot" binding:"gte=0"`
	ProductID      uuid.UUID         `json:"product_id"`
	SpecID         *uuid.UUID        `json:"spec_id"`
	PricingMode    string            `json:"pricing_mode" binding:"omitempty,pricing_mode"`
	Quantity       decimal.Decimal   `json:"quantity"`
	UnitPrice      decimal.Decimal   `json:"unit_price"`
	GrossWeight    *decimal.Decimal  `json:"gross_weight"`
	FormulaID      *uuid.UUID        `json:"formula_id"`
	UnitCount      int               `json:"unit_count" binding:"gte=0"`
	BatchID        *uuid.UUID        `json:"batch_id"`
	Allocations    []AllocationInput `json:"allocations" binding:"dive"`
	OriginalItemID *uuid.UUID        `json:"original_item_id"`
	ShippingCost   decimal.Decimal   `json:"shipping_cost" binding:"decimal_gte0"`
}

// AllocationInput is a quantity drawn from one batch
type AllocationInput struct {
	BatchID  uuid.UUID       `json:"batch_id" binding:"required"`
	Quantity decimal.Decimal `json:"quantity" binding:"decimal_gte0"`
}

// ToDomain converts the draft into a BusinessOrder, reading dates as
// calendar days in loc
func (in DraftOrderInput) ToDomain(loc *time.Location) (*trade.BusinessOrder, error) {
	if loc == nil {
		loc = time.UTC
	}
	orderType := trade.OrderType(in.Type)
	if !orderType.IsValid() {
		return nil, shared.NewDomainErrorf("INVALID_ORDER_TYPE", "Unknown order type %q", in.Type)
	}

	o := &trade.BusinessOrder{
		OrderNo:             strings.TrimSpace(in.OrderNo),
		Type:                orderType,
		Status:              trade.OrderStatusDraft,
		SourceID:            in.SourceID,
		TargetID:            in.TargetID,
		CalculateStorageFee: true,
		ShippingFee:         in.ShippingFee,
		StorageFee:          decimal.Zero,
		OtherFee:            in.OtherFee,
		RelatedOrderID:      in.RelatedOrderID,
		Notes:               in.Notes,
	}
	if in.ID != nil {
		o.ID = *in.ID
	}
	if in.CalculateStorageFee != nil {
		o.CalculateStorageFee = *in.CalculateStorageFee
	}

	var err error
	if in.OrderDate != "" {
		if o.OrderDate, err = parseDate("order_date", in.OrderDate, loc); err != nil {
			return nil, err
		}
	}
	if in.LoadingDate != "" {
		d, err := parseDate("loading_date", in.LoadingDate, loc)
		if err != nil {
			return nil, err
		}
		o.LoadingDate = &d
	}
	if in.UnloadingDate != "" {
		d, err := parseDate("unloading_date", in.UnloadingDate, loc)
		if err != nil {
			return nil, err
		}
		o.UnloadingDate = &d
	}

	o.Lines = make([]trade.OrderLine, 0, len(in.Lines))
	for _, l := range in.Lines {
		o.Lines = append(o.Lines, l.toDomain())
	}
	return o, nil
}

func (l DraftLineInput) toDomain() trade.OrderLine {
	line := trade.OrderLine{
		Slot:           l.Slot,
		ProductID:      l.ProductID,
		SpecID:         l.SpecID,
		PricingMode:    catalog.PricingMode(l.PricingMode),
		Quantity:       l.Quantity,
		UnitPrice:      l.UnitPrice,
		GrossWeight:    l.GrossWeight,
		FormulaID:      l.FormulaID,
		UnitCount:      l.UnitCount,
		BatchID:        l.BatchID,
		OriginalItemID: l.OriginalItemID,
		ShippingCost:   l.ShippingCost,
	}
	if l.ID != nil {
		line.ID = *l.ID
	}
	for _, a := range l.Allocations {
		line.Allocations = append(line.Allocations, trade.BatchAllocation{BatchID: a.BatchID, Quantity: a.Quantity})
	}
	return line
}

func parseDate(field, value string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, value, loc)
	if err != nil {
		return time.Time{}, shared.NewDomainErrorf("INVALID_DATE", "%s must be a date like 2024-03-01", field)
	}
	return t, nil
}

// DraftFromDomain renders an order as an editable draft, dates as calendar
// days in loc
func DraftFromDomain(o *trade.BusinessOrder, loc *time.Location) DraftOrderInput {
	if loc == nil {
		loc = time.UTC
	}
	calc := o.CalculateStorageFee
	in := DraftOrderInput{
		OrderNo:             o.OrderNo,
		Type:                string(o.Type),
		SourceID:            o.SourceID,
		TargetID:            o.TargetID,
		CalculateStorageFee: &calc,
		ShippingFee:         o.ShippingFee,
		OtherFee:            o.OtherFee,
		RelatedOrderID:      o.RelatedOrderID,
		Notes:               o.Notes,
		Lines:               make([]DraftLineInput, 0, len(o.Lines)),
	}
	if o.ID != uuid.Nil {
		id := o.ID
		in.ID = &id
	}
	if !o.OrderDate.IsZero() {
		in.OrderDate = o.OrderDate.In(loc).Format(DateLayout)
	}
	if o.LoadingDate != nil {
		in.LoadingDate = o.LoadingDate.In(loc).Format(DateLayout)
	}
	if o.UnloadingDate != nil {
		in.UnloadingDate = o.UnloadingDate.In(loc).Format(DateLayout)
	}
	for _, l := range o.Lines {
		dl := DraftLineInput{
			Slot:           l.Slot,
			ProductID:      l.ProductID,
			SpecID:         l.SpecID,
			PricingMode:    string(l.PricingMode),
			Quantity:       l.Quantity,
			UnitPrice:      l.UnitPrice,
			GrossWeight:    l.GrossWeight,
			FormulaID:      l.FormulaID,
			UnitCount:      l.UnitCount,
			BatchID:        l.BatchID,
			OriginalItemID: l.OriginalItemID,
			ShippingCost:   l.ShippingCost,
		}
		if l.ID != uuid.Nil {
			id := l.ID
			dl.ID = &id
		}
		for _, a := range l.Allocations {
			dl.Allocations = append(dl.Allocations, AllocationInput{BatchID: a.BatchID, Quantity: a.Quantity})
		}
		in.Lines = append(in.Lines, dl)
	}
	return in
}

// ==================== Result DTOs ====================

// SessionResponse describes an open composition session
type SessionResponse struct {
	SessionID uuid.UUID `json:"session_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// LineResultResponse holds the derived values of one line
type LineResultResponse struct {
	Slot             int              `json:"slot"`
	PricingMode      string           `json:"pricing_mode"`
	Quantity         decimal.Decimal  `json:"quantity"`
	Weight           decimal.Decimal  `json:"weight"`
	ContainerCount   decimal.Decimal  `json:"container_count"`
	UnitQuantity     decimal.Decimal  `json:"unit_quantity"`
	Converted        bool             `json:"converted"`
	SpecName         string           `json:"spec_name,omitempty"`
	GrossWeight      *decimal.Decimal `json:"gross_weight,omitempty"`
	NetWeight        *decimal.Decimal `json:"net_weight,omitempty"`
	TareWeight       *decimal.Decimal `json:"tare_weight,omitempty"`
	NeedsReview      bool             `json:"needs_review"`
	ReviewReason     string           `json:"review_reason,omitempty"`
	Subtotal         decimal.Decimal  `json:"subtotal"`
	SuggestedBatchID *uuid.UUID       `json:"suggested_batch_id,omitempty"`
	Returnable       *decimal.Decimal `json:"returnable,omitempty"`
}

// LineFeeResponse is the fee share of one line or allocation
type LineFeeResponse struct {
	Slot        int             `json:"slot"`
	WeightTons  decimal.Decimal `json:"weight_tons"`
	StorageDays int             `json:"storage_days"`
	Handling    decimal.Decimal `json:"handling"`
	Storage     decimal.Decimal `json:"storage"`
}

// StorageFeeResponse is the storage fee breakdown
type StorageFeeResponse struct {
	Handling     decimal.Decimal   `json:"handling"`
	Storage      decimal.Decimal   `json:"storage"`
	Total        decimal.Decimal   `json:"total"`
	TotalDisplay string            `json:"total_display"`
	Lines        []LineFeeResponse `json:"lines"`
}

// TotalsResponse holds the order totals
type TotalsResponse struct {
	OrderTotal         decimal.Decimal `json:"order_total"`
	ShippingFee        decimal.Decimal `json:"shipping_fee"`
	StorageFee         decimal.Decimal `json:"storage_fee"`
	OtherFee           decimal.Decimal `json:"other_fee"`
	FinalAmount        decimal.Decimal `json:"final_amount"`
	FinalAmountDisplay string          `json:"final_amount_display"`
}

// CompositionResponse is the outcome of one recompute
type CompositionResponse struct {
	SessionID  uuid.UUID               `json:"session_id"`
	Revision   uint64                  `json:"revision"`
	Stale      bool                    `json:"stale"`
	Lines      []LineResultResponse    `json:"lines"`
	StorageFee StorageFeeResponse      `json:"storage_fee"`
	Totals     TotalsResponse          `json:"totals"`
	Issues     []trade.ValidationIssue `json:"issues"`
	Warnings   []trade.ValidationIssue `json:"warnings"`
	Ready      bool                    `json:"ready"`
}

// SubmitResponse describes a stored order
type SubmitResponse struct {
	OrderID     uuid.UUID           `json:"order_id"`
	OrderNo     string              `json:"order_no"`
	Status      string              `json:"status"`
	FinalAmount decimal.Decimal     `json:"final_amount"`
	Composition CompositionResponse `json:"composition"`
}

// ToCompositionResponse converts a composition result
func ToCompositionResponse(sessionID uuid.UUID, revision uint64, stale bool, r trade.Result) CompositionResponse {
	resp := CompositionResponse{
		SessionID: sessionID,
		Revision:  revision,
		Stale:     stale,
		Lines:     make([]LineResultResponse, 0, len(r.Lines)),
		StorageFee: ToStorageFeeResponse(r.StorageFee),
		Totals: TotalsResponse{
			OrderTotal:         r.Totals.OrderTotal,
			ShippingFee:        r.Totals.ShippingFee,
			StorageFee:         r.Totals.StorageFee,
			OtherFee:           r.Totals.OtherFee,
			FinalAmount:        r.Totals.FinalAmount,
			FinalAmountDisplay: FormatAmount(r.Totals.FinalAmount),
		},
		Issues:   r.Issues.Blocking(),
		Warnings: r.Issues.Warnings(),
		Ready:    r.Ready,
	}
	for _, l := range r.Lines {
		lr := LineResultResponse{
			Slot:             l.Slot,
			PricingMode:      string(l.PricingMode),
			Quantity:         l.Quantity,
			Weight:           l.Weight,
			ContainerCount:   l.ContainerCount,
			UnitQuantity:     l.UnitQuantity,
			Converted:        l.Converted,
			SpecName:         l.SpecName,
			NeedsReview:      l.NeedsReview,
			Subtotal:         l.Subtotal,
			SuggestedBatchID: l.SuggestedBatchID,
			Returnable:       l.Returnable,
		}
		if d := l.Deduction; d != nil {
			gross, net, tare := d.Gross, d.Net, d.Tare
			lr.GrossWeight, lr.NetWeight, lr.TareWeight = &gross, &net, &tare
			lr.ReviewReason = d.Reason
		}
		resp.Lines = append(resp.Lines, lr)
	}
	return resp
}

// ToStorageFeeResponse converts a storage fee breakdown
func ToStorageFeeResponse(fee trade.StorageFeeBreakdown) StorageFeeResponse {
	resp := StorageFeeResponse{
		Handling:     fee.Handling,
		Storage:      fee.Storage,
		Total:        fee.Total,
		TotalDisplay: FormatAmount(fee.Total),
		Lines:        make([]LineFeeResponse, 0, len(fee.Lines)),
	}
	for _, f := range fee.Lines {
		resp.Lines = append(resp.Lines, LineFeeResponse{
			Slot:        f.Slot,
			WeightTons:  f.WeightTons,
			StorageDays: f.StorageDays,
			Handling:    f.Handling,
			Storage:     f.Storage,
		})
	}
	return resp
}

// ==================== Lookup DTOs ====================

// AvailableBatchesQuery selects the batch pool of one line
type AvailableBatchesQuery struct {
	ProductID   uuid.UUID        `form:"product_id" binding:"required"`
	SpecID      *uuid.UUID       `form:"spec_id"`
	WarehouseID uuid.UUID        `form:"warehouse_id" binding:"required"`
	Quantity    *decimal.Decimal `form:"quantity"`
}

// BatchResponse is one selectable batch
type BatchResponse struct {
	ID                uuid.UUID       `json:"id"`
	BatchNo           string          `json:"batch_no"`
	SpecID            *uuid.UUID      `json:"spec_id,omitempty"`
	ReceivedAt        time.Time       `json:"received_at"`
	AvailableQuantity decimal.Decimal `json:"available_quantity"`
	CostPrice         decimal.Decimal `json:"cost_price"`
}

// BatchPlanResponse splits a requested quantity over batches in FIFO order
type BatchPlanResponse struct {
	Deductions          []BatchDeductionResponse `json:"deductions"`
	TotalDeducted       decimal.Decimal          `json:"total_deducted"`
	WeightedAverageCost decimal.Decimal          `json:"weighted_average_cost"`
	Shortfall           decimal.Decimal          `json:"shortfall"`
	FullyFulfilled      bool                     `json:"fully_fulfilled"`
}

// BatchDeductionResponse is one step of a FIFO plan
type BatchDeductionResponse struct {
	BatchID  uuid.UUID       `json:"batch_id"`
	BatchNo  string          `json:"batch_no"`
	Quantity decimal.Decimal `json:"quantity"`
}

// AvailableBatchesResponse lists the pool in FIFO order
type AvailableBatchesResponse struct {
	Batches     []BatchResponse    `json:"batches"`
	SuggestedID *uuid.UUID         `json:"suggested_id,omitempty"`
	Plan        *BatchPlanResponse `json:"plan,omitempty"`
}

func toBatchResponse(b inventory.StockBatch) BatchResponse {
	return BatchResponse{
		ID:                b.ID,
		BatchNo:           b.BatchNo,
		SpecID:            b.SpecID,
		ReceivedAt:        b.ReceivedAt,
		AvailableQuantity: b.AvailableQuantity,
		CostPrice:         b.CostPrice,
	}
}

func toBatchPlanResponse(p *inventory.BatchPlan) *BatchPlanResponse {
	resp := &BatchPlanResponse{
		Deductions:          make([]BatchDeductionResponse, 0, len(p.Deductions)),
		TotalDeducted:       p.TotalDeducted,
		WeightedAverageCost: p.WeightedAverageCost,
		Shortfall:           p.RemainingQuantity,
		FullyFulfilled:      p.FullyFulfilled,
	}
	for _, d := range p.Deductions {
		resp.Deductions = append(resp.Deductions, BatchDeductionResponse{
			BatchID:  d.BatchID,
			BatchNo:  d.BatchNo,
			Quantity: d.DeductedAmount,
		})
	}
	return resp
}

// CalculateNetWeightInput asks for the net weight of a gross weighing
type CalculateNetWeightInput struct {
	FormulaID   uuid.UUID       `json:"formula_id" binding:"required"`
	GrossWeight decimal.Decimal `json:"gross_weight" binding:"decimal_gte0"`
	UnitCount   int             `json:"unit_count" binding:"gte=0"`
}

// FormulaResponse is one selectable deduction formula
type FormulaResponse struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Type      string          `json:"type"`
	TypeLabel string          `json:"type_label"`
	Value     decimal.Decimal `json:"value"`
	IsDefault bool            `json:"is_default"`
	Display   string          `json:"display"`
}

func toFormulaResponse(f catalog.DeductionFormula) FormulaResponse {
	return FormulaResponse{
		ID:        f.ID,
		Name:      f.Name,
		Type:      string(f.Type),
		TypeLabel: f.Type.Label(),
		Value:     f.Value,
		IsDefault: f.IsDefault,
		Display:   f.Display(),
	}
}

// NetWeightResponse is the result of a net weight calculation
type NetWeightResponse struct {
	FormulaID   uuid.UUID       `json:"formula_id"`
	GrossWeight decimal.Decimal `json:"gross_weight"`
	NetWeight   decimal.Decimal `json:"net_weight"`
	TareWeight  decimal.Decimal `json:"tare_weight"`
	Display     string          `json:"display"`
}

// ReturnableResponse lists what can still be returned from an order
type ReturnableResponse struct {
	OrderID uuid.UUID              `json:"order_id"`
	OrderNo string                 `json:"order_no"`
	Lines   []trade.ReturnableLine `json:"lines"`
}

// StorageFeePreviewInput is a quick estimate without an order
type StorageFeePreviewInput struct {
	Weight            decimal.Decimal `json:"weight" binding:"decimal_gte0"`
	Days              int             `json:"days" binding:"gte=0,lte=3650"`
	SourceIsWarehouse bool            `json:"source_is_warehouse"`
	TargetIsWarehouse bool            `json:"target_is_warehouse"`
}

// FormatAmount renders a money value with grouping separators, e.g. 1,202.93
func FormatAmount(d decimal.Decimal) string {
	p := message.NewPrinter(language.English)
	return p.Sprintf("%.2f", d.Round(2).InexactFloat64())
}
