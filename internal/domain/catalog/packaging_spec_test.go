package catalog

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boxSpec(t *testing.T, qty string) *PackagingSpec {
	t.Helper()
	spec, err := NewPackagingSpec(uuid.New(), "Large box", "box", decimal.RequireFromString(qty), "kg")
	require.NoError(t, err)
	return spec
}

func TestNewPackagingSpec(t *testing.T) {
	t.Run("creates spec", func(t *testing.T) {
		spec := boxSpec(t, "15")
		assert.True(t, spec.IsActive)
		assert.False(t, spec.IsBulkSpec())
		assert.Equal(t, "box(15kg)", spec.DisplayName())
	})

	t.Run("rejects zero quantity", func(t *testing.T) {
		_, err := NewPackagingSpec(uuid.New(), "Box", "box", decimal.Zero, "kg")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "greater than zero")
	})

	t.Run("rejects empty name", func(t *testing.T) {
		_, err := NewPackagingSpec(uuid.New(), "", "box", decimal.NewFromInt(1), "kg")
		require.Error(t, err)
	})
}

func TestPackagingSpec_IsBulkSpec(t *testing.T) {
	tests := []struct {
		name  string
		label string
		qty   string
		flag  bool
		want  bool
	}{
		{"label equals unit symbol", "kg", "1", false, true},
		{"explicit bulk flag", "sack", "1", true, true},
		{"flag but quantity above one", "sack", "25", true, false},
		{"ordinary box", "box", "1", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := boxSpec(t, tt.qty)
			spec.ContainerLabel = tt.label
			spec.IsBulk = tt.flag
			assert.Equal(t, tt.want, spec.IsBulkSpec())
		})
	}

	var nilSpec *PackagingSpec
	assert.False(t, nilSpec.IsBulkSpec())
}

func TestPackagingSpec_DisplayName_Bulk(t *testing.T) {
	spec := boxSpec(t, "1")
	spec.ContainerLabel = "kg"
	assert.Equal(t, "bulk(kg)", spec.DisplayName())
}

func TestConvert(t *testing.T) {
	spec := boxSpec(t, "15")

	t.Run("container to weight", func(t *testing.T) {
		c := Convert(spec, PricingModeContainer, decimal.NewFromInt(4))
		assert.Equal(t, PricingModeContainer, c.Mode)
		assert.True(t, c.Converted)
		assert.True(t, c.Weight.Equal(decimal.NewFromInt(60)))
		assert.True(t, c.ContainerCount.Equal(decimal.NewFromInt(4)))
	})

	t.Run("weight to containers is display only", func(t *testing.T) {
		c := Convert(spec, PricingModeWeight, decimal.NewFromInt(50))
		assert.Equal(t, PricingModeWeight, c.Mode)
		assert.True(t, c.Weight.Equal(decimal.NewFromInt(50)))
		assert.Equal(t, "3.3333", c.ContainerCount.String())
	})

	t.Run("nil spec is identity in weight mode", func(t *testing.T) {
		c := Convert(nil, PricingModeContainer, decimal.NewFromInt(7))
		assert.Equal(t, PricingModeWeight, c.Mode)
		assert.False(t, c.Converted)
		assert.True(t, c.Weight.Equal(decimal.NewFromInt(7)))
	})

	t.Run("bulk spec forces weight mode", func(t *testing.T) {
		bulk := boxSpec(t, "1")
		bulk.ContainerLabel = "kg"
		c := Convert(bulk, PricingModeContainer, decimal.NewFromInt(7))
		assert.Equal(t, PricingModeWeight, c.Mode)
		assert.False(t, c.Converted)
	})
}

func TestConvert_RoundTrip(t *testing.T) {
	quantities := []string{"1", "3", "2.5", "0.3333", "17", "1000"}
	unitQuantities := []string{"1.5", "3", "7", "15", "20", "0.25"}
	for _, uq := range unitQuantities {
		spec := boxSpec(t, uq)
		for _, q := range quantities {
			t.Run(uq+"/"+q, func(t *testing.T) {
				in := decimal.RequireFromString(q)
				weight := Convert(spec, PricingModeContainer, in).Weight
				back := Convert(spec, PricingModeWeight, weight).ContainerCount
				assert.True(t, back.Sub(in).Abs().LessThanOrEqual(decimal.RequireFromString("0.0001")),
					"%s -> %s -> %s", in, weight, back)
			})
		}
	}
}

func TestEffectivePricingMode(t *testing.T) {
	spec := boxSpec(t, "15")
	assert.Equal(t, PricingModeWeight, EffectivePricingMode(spec, PricingModeWeight))
	assert.Equal(t, PricingModeContainer, EffectivePricingMode(spec, PricingModeContainer))
	assert.Equal(t, PricingModeContainer, EffectivePricingMode(spec, PricingMode("")))
	assert.Equal(t, PricingModeWeight, EffectivePricingMode(nil, PricingModeContainer))
}

func TestValidateSpecs(t *testing.T) {
	a := *boxSpec(t, "15")
	b := *boxSpec(t, "10")
	a.IsDefault = true
	require.NoError(t, ValidateSpecs([]PackagingSpec{a, b}))

	b.IsDefault = true
	err := ValidateSpecs([]PackagingSpec{a, b})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at most one default")
}
