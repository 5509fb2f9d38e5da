package valueobject

import "github.com/shopspring/decimal"

// DefaultTonSize is the number of base weight units in one metric ton
var DefaultTonSize = decimal.NewFromInt(1000)

// ToTons converts a base-unit weight to tons. A non-positive ton size falls
// back to DefaultTonSize.
func ToTons(weight, tonSize decimal.Decimal) decimal.Decimal {
	if !tonSize.IsPositive() {
		tonSize = DefaultTonSize
	}
	return weight.Div(tonSize)
}
