package valueobject

import (
	"github.com/shopspring/decimal"
)

const (
	// MoneyPlaces is the precision of every monetary aggregate
	MoneyPlaces int32 = 2
	// DisplayPlaces is the precision of derived, display-only quantities
	DisplayPlaces int32 = 4
)

// RoundMoney rounds half away from zero to two decimal places
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// SumMoney adds the amounts and rounds once at the end
func SumMoney(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return RoundMoney(total)
}

// RoundDisplay rounds a derived quantity for display
func RoundDisplay(d decimal.Decimal) decimal.Decimal {
	return d.Round(DisplayPlaces)
}

// NonNegative floors a value at zero
func NonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// ProrateByQuantity scales amount by part/whole, rounded to money precision.
// A zero whole yields zero.
func ProrateByQuantity(amount, part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return RoundMoney(amount.Mul(part).Div(whole))
}
