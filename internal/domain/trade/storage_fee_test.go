package trade

import (
	"testing"
	"time"

	"github.com/erp/tradedesk/internal/domain/shared/strategy"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func timeRef(t time.Time) *time.Time {
	return &t
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.True(t, got.Equal(dec(want)), append([]any{"want %s got %s", want, got.String()}, msgAndArgs...)...)
}

func TestStorageFeeEstimator_Metadata(t *testing.T) {
	e := NewStorageFeeEstimator(DefaultFeeSchedule())
	assert.Equal(t, strategy.StrategyTypeFee, e.Type())
	assert.Equal(t, "warehouse_tariff", e.Name())
}

func TestNewStorageFeeEstimator_Defaults(t *testing.T) {
	e := NewStorageFeeEstimator(FeeSchedule{HandlingRatePerTon: dec("20"), StorageRatePerTonPerDay: dec("2")})
	s := e.Schedule()
	assertDecimal(t, "1000", s.TonSize)
	assert.Equal(t, 7, s.DefaultPreviewDays)
	assert.Equal(t, time.UTC, s.Location)
	assertDecimal(t, "20", s.HandlingRatePerTon)
}

func TestStorageFeeEstimator_HandlingFee(t *testing.T) {
	e := NewStorageFeeEstimator(DefaultFeeSchedule())

	fee := e.Estimate(StorageFeeInput{
		Enabled:           true,
		TargetIsWarehouse: true,
		BusinessDate:      date(2024, 3, 1),
		Lines: []FeeLine{
			{Slot: 1, Weight: dec("1200")},
			{Slot: 2, Weight: dec("800")},
		},
	})

	assertDecimal(t, "30.00", fee.Handling)
	assert.True(t, fee.Storage.IsZero())
	assertDecimal(t, "30.00", fee.Total)
	require.Len(t, fee.Lines, 2)
	assertDecimal(t, "18", fee.Lines[0].Handling)
	assertDecimal(t, "1.2", fee.Lines[0].WeightTons)
}

func TestStorageFeeEstimator_StorageDays(t *testing.T) {
	e := NewStorageFeeEstimator(DefaultFeeSchedule())
	received := time.Date(2024, 3, 1, 15, 30, 0, 0, time.UTC)

	t.Run("same day is day one", func(t *testing.T) {
		assert.Equal(t, 1, e.StorageDays(date(2024, 3, 1), received))
		assert.Equal(t, 1, e.StorageDays(time.Date(2024, 3, 1, 23, 59, 0, 0, time.UTC), received))
	})

	t.Run("next day is day two", func(t *testing.T) {
		assert.Equal(t, 2, e.StorageDays(date(2024, 3, 2), received))
	})

	t.Run("never less than one", func(t *testing.T) {
		assert.Equal(t, 1, e.StorageDays(date(2024, 2, 20), received))
	})

	t.Run("crosses month end", func(t *testing.T) {
		assert.Equal(t, 31, e.StorageDays(date(2024, 3, 31), received))
	})

	t.Run("uses the business location", func(t *testing.T) {
		sched := DefaultFeeSchedule()
		sched.Location = time.FixedZone("UTC+8", 8*3600)
		local := NewStorageFeeEstimator(sched)
		// 2024-03-01 23:30 UTC is already 2 March at UTC+8
		late := time.Date(2024, 3, 1, 23, 30, 0, 0, time.UTC)
		business := time.Date(2024, 3, 2, 9, 0, 0, 0, sched.Location)
		assert.Equal(t, 1, local.StorageDays(business, late))
		assert.Equal(t, 2, e.StorageDays(business, late))
	})
}

func TestStorageFeeEstimator_OutboundStorage(t *testing.T) {
	e := NewStorageFeeEstimator(DefaultFeeSchedule())
	day1 := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

	t.Run("storage per line from batch receipt", func(t *testing.T) {
		fee := e.Estimate(StorageFeeInput{
			Enabled:           true,
			SourceIsWarehouse: true,
			BusinessDate:      date(2024, 3, 3),
			Lines:             []FeeLine{{Slot: 1, Weight: dec("1000"), ReceivedAt: &day1}},
		})
		// 1 t × 3 days × 1.5 = 4.5; handling 15
		assertDecimal(t, "15", fee.Handling)
		assertDecimal(t, "4.5", fee.Storage)
		assertDecimal(t, "19.5", fee.Total)
		assert.Equal(t, 3, fee.Lines[0].StorageDays)
	})

	t.Run("unknown receipt date pays handling only", func(t *testing.T) {
		fee := e.Estimate(StorageFeeInput{
			Enabled:           true,
			SourceIsWarehouse: true,
			BusinessDate:      date(2024, 3, 3),
			Lines: []FeeLine{
				{Slot: 1, Weight: dec("1000"), ReceivedAt: &day1},
				{Slot: 2, Weight: dec("1000")},
			},
		})
		assertDecimal(t, "30", fee.Handling)
		assertDecimal(t, "4.5", fee.Storage)
		assert.Equal(t, 0, fee.Lines[1].StorageDays)
		assert.True(t, fee.Lines[1].Storage.IsZero())
	})

	t.Run("allocations are charged separately", func(t *testing.T) {
		day2 := day1.AddDate(0, 0, 1)
		fee := e.Estimate(StorageFeeInput{
			Enabled:           true,
			SourceIsWarehouse: true,
			BusinessDate:      date(2024, 3, 3),
			Lines: []FeeLine{
				{Slot: 1, Weight: dec("500"), ReceivedAt: &day1},
				{Slot: 1, Weight: dec("500"), ReceivedAt: &day2},
			},
		})
		// 0.5×3×1.5 + 0.5×2×1.5 = 2.25 + 1.5
		assertDecimal(t, "3.75", fee.Storage)
		assertDecimal(t, "15", fee.Handling)
	})

	t.Run("inbound movement has no storage component", func(t *testing.T) {
		fee := e.Estimate(StorageFeeInput{
			Enabled:           true,
			TargetIsWarehouse: true,
			BusinessDate:      date(2024, 3, 3),
			Lines:             []FeeLine{{Slot: 1, Weight: dec("1000"), ReceivedAt: &day1}},
		})
		assert.True(t, fee.Storage.IsZero())
		assertDecimal(t, "15", fee.Total)
	})
}

func TestStorageFeeEstimator_ZeroCases(t *testing.T) {
	e := NewStorageFeeEstimator(DefaultFeeSchedule())
	lines := []FeeLine{{Slot: 1, Weight: dec("2000")}}

	t.Run("toggle off", func(t *testing.T) {
		fee := e.Estimate(StorageFeeInput{Enabled: false, SourceIsWarehouse: true, TargetIsWarehouse: true, Lines: lines})
		assert.True(t, fee.Total.IsZero())
		assert.Empty(t, fee.Lines)
	})

	t.Run("no warehouse endpoint", func(t *testing.T) {
		fee := e.Estimate(StorageFeeInput{Enabled: true, Lines: lines})
		assert.True(t, fee.Total.IsZero())
	})
}

func TestStorageFeeEstimator_Rounding(t *testing.T) {
	e := NewStorageFeeEstimator(DefaultFeeSchedule())
	fee := e.Estimate(StorageFeeInput{
		Enabled:           true,
		TargetIsWarehouse: true,
		Lines:             []FeeLine{{Slot: 1, Weight: dec("333")}},
	})
	// 0.333 t × 15 = 4.995
	assertDecimal(t, "5.00", fee.Total)
}

func TestStorageFeeEstimator_Preview(t *testing.T) {
	e := NewStorageFeeEstimator(DefaultFeeSchedule())

	t.Run("outbound with days", func(t *testing.T) {
		fee := e.Preview(dec("2000"), 7, true, false)
		// 2 t × 15 + 2 t × 7 × 1.5
		assertDecimal(t, "30", fee.Handling)
		assertDecimal(t, "21", fee.Storage)
		assertDecimal(t, "51", fee.Total)
	})

	t.Run("default days", func(t *testing.T) {
		fee := e.Preview(dec("1000"), 0, true, false)
		assert.Equal(t, 7, fee.Lines[0].StorageDays)
	})

	t.Run("inbound", func(t *testing.T) {
		fee := e.Preview(dec("2000"), 7, false, true)
		assertDecimal(t, "30", fee.Total)
	})
}

func TestSameOrAfterDay(t *testing.T) {
	a := time.Date(2024, 3, 1, 1, 0, 0, 0, time.UTC)
	b := time.Date(2024, 3, 1, 23, 0, 0, 0, time.UTC)
	assert.True(t, SameOrAfterDay(a, b, time.UTC))
	assert.False(t, SameOrAfterDay(a, b.AddDate(0, 0, 1), time.UTC))
	assert.True(t, SameOrAfterDay(a, b, nil))
}
