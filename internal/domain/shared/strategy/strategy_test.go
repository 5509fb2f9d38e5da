package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStrategyType_IsValid(t *testing.T) {
	assert.True(t, StrategyTypeBatch.IsValid())
	assert.True(t, StrategyTypeFee.IsValid())
	assert.False(t, StrategyType("pricing").IsValid())
}

func TestBaseStrategy(t *testing.T) {
	var s Strategy = NewBaseStrategy("fifo", StrategyTypeBatch, "earliest receipt first")
	assert.Equal(t, "fifo", s.Name())
	assert.Equal(t, StrategyTypeBatch, s.Type())
	assert.Equal(t, "earliest receipt first", s.Description())
}
