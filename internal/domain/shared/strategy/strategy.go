// Package strategy names the pluggable calculation policies of an order:
// how stock batches are drawn and how warehouse fees are charged.
package strategy

// StrategyType groups policies that answer the same question
type StrategyType string

const (
	StrategyTypeBatch StrategyType = "batch"
	StrategyTypeFee   StrategyType = "fee"
)

// IsValid returns true if the strategy type is known
func (t StrategyType) IsValid() bool {
	return t == StrategyTypeBatch || t == StrategyTypeFee
}

// Strategy identifies a policy in logs and API responses
type Strategy interface {
	Name() string
	Type() StrategyType
	Description() string
}

// BaseStrategy is embedded by policies to satisfy Strategy
type BaseStrategy struct {
	name         string
	strategyType StrategyType
	description  string
}

// NewBaseStrategy creates a new BaseStrategy
func NewBaseStrategy(name string, strategyType StrategyType, description string) BaseStrategy {
	return BaseStrategy{name: name, strategyType: strategyType, description: description}
}

func (s BaseStrategy) Name() string        { return s.name }
func (s BaseStrategy) Type() StrategyType  { return s.strategyType }
func (s BaseStrategy) Description() string { return s.description }
