package trade

import (
	"github.com/erp/tradedesk/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// LineSubtotal is the priced amount of one line
type LineSubtotal struct {
	Slot     int             `json:"slot"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// Totals are the order-level amounts
type Totals struct {
	Lines       []LineSubtotal  `json:"lines"`
	OrderTotal  decimal.Decimal `json:"order_total"`
	ShippingFee decimal.Decimal `json:"shipping_fee"`
	StorageFee  decimal.Decimal `json:"storage_fee"`
	OtherFee    decimal.Decimal `json:"other_fee"`
	FinalAmount decimal.Decimal `json:"final_amount"`
}

// LineAmount is quantity × unit price rounded to cents
func LineAmount(quantity, unitPrice decimal.Decimal) decimal.Decimal {
	return valueobject.RoundMoney(quantity.Mul(unitPrice))
}

// AggregateTotals sums line subtotals and fees. A zero document shipping fee
// falls back to the sum of per-line shipping costs.
func AggregateTotals(lines []OrderLine, shipping, storage, other decimal.Decimal) Totals {
	subtotals := make([]LineSubtotal, 0, len(lines))
	amounts := make([]decimal.Decimal, 0, len(lines))
	lineShipping := make([]decimal.Decimal, 0, len(lines))
	for _, l := range lines {
		s := LineAmount(l.Quantity, l.UnitPrice)
		subtotals = append(subtotals, LineSubtotal{Slot: l.Slot, Subtotal: s})
		amounts = append(amounts, s)
		lineShipping = append(lineShipping, l.ShippingCost)
	}

	if shipping.IsZero() {
		shipping = valueobject.SumMoney(lineShipping...)
	}
	orderTotal := valueobject.SumMoney(amounts...)
	shipping = valueobject.RoundMoney(shipping)
	storage = valueobject.RoundMoney(storage)
	other = valueobject.RoundMoney(other)

	return Totals{
		Lines:       subtotals,
		OrderTotal:  orderTotal,
		ShippingFee: shipping,
		StorageFee:  storage,
		OtherFee:    other,
		FinalAmount: valueobject.SumMoney(orderTotal, shipping, storage, other),
	}
}
