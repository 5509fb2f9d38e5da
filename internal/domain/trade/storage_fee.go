package trade

import (
	"time"

	"github.com/erp/tradedesk/internal/domain/shared/strategy"
	"github.com/erp/tradedesk/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// FeeSchedule is the warehouse tariff. Rates are per metric ton of
// TonSize base weight units.
type FeeSchedule struct {
	HandlingRatePerTon      decimal.Decimal
	StorageRatePerTonPerDay decimal.Decimal
	TonSize                 decimal.Decimal
	DefaultPreviewDays      int
	Location                *time.Location
}

// DefaultFeeSchedule returns the standard tariff: 15 per ton handling and
// 1.5 per ton per day storage
func DefaultFeeSchedule() FeeSchedule {
	return FeeSchedule{
		HandlingRatePerTon:      decimal.NewFromInt(15),
		StorageRatePerTonPerDay: decimal.RequireFromString("1.5"),
		TonSize:                 valueobject.DefaultTonSize,
		DefaultPreviewDays:      7,
		Location:                time.UTC,
	}
}

// FeeLine is the fee-relevant part of one line, or of one batch allocation
// of a line
type FeeLine struct {
	Slot       int
	Weight     decimal.Decimal // base units
	ReceivedAt *time.Time      // nil when the batch receipt date is unknown
}

// StorageFeeInput is everything the fee depends on
type StorageFeeInput struct {
	Enabled           bool
	SourceIsWarehouse bool
	TargetIsWarehouse bool
	BusinessDate      time.Time
	Lines             []FeeLine
}

// LineFee is one line's share of the order fee, for display
type LineFee struct {
	Slot        int             `json:"slot"`
	WeightTons  decimal.Decimal `json:"weight_tons"`
	StorageDays int             `json:"storage_days"`
	Handling    decimal.Decimal `json:"handling"`
	Storage     decimal.Decimal `json:"storage"`
}

// StorageFeeBreakdown is the fee of a whole order
type StorageFeeBreakdown struct {
	Handling decimal.Decimal `json:"handling"`
	Storage  decimal.Decimal `json:"storage"`
	Total    decimal.Decimal `json:"total"`
	Lines    []LineFee       `json:"lines"`
}

// ZeroBreakdown is the fee of an order that is not charged
func ZeroBreakdown() StorageFeeBreakdown {
	return StorageFeeBreakdown{
		Handling: decimal.Zero,
		Storage:  decimal.Zero,
		Total:    decimal.Zero,
		Lines:    []LineFee{},
	}
}

// StorageFeeEstimator computes warehouse handling and storage fees
type StorageFeeEstimator struct {
	strategy.BaseStrategy
	schedule FeeSchedule
}

// NewStorageFeeEstimator creates a new StorageFeeEstimator
func NewStorageFeeEstimator(schedule FeeSchedule) *StorageFeeEstimator {
	def := DefaultFeeSchedule()
	if schedule.HandlingRatePerTon.IsNegative() {
		schedule.HandlingRatePerTon = def.HandlingRatePerTon
	}
	if schedule.StorageRatePerTonPerDay.IsNegative() {
		schedule.StorageRatePerTonPerDay = def.StorageRatePerTonPerDay
	}
	if !schedule.TonSize.IsPositive() {
		schedule.TonSize = def.TonSize
	}
	if schedule.DefaultPreviewDays < 1 {
		schedule.DefaultPreviewDays = def.DefaultPreviewDays
	}
	if schedule.Location == nil {
		schedule.Location = def.Location
	}
	return &StorageFeeEstimator{
		BaseStrategy: strategy.NewBaseStrategy(
			"warehouse_tariff",
			strategy.StrategyTypeFee,
			"Per-ton handling fee plus per-ton-per-day storage fee for goods leaving a warehouse",
		),
		schedule: schedule,
	}
}

// Schedule returns the tariff in use
func (e *StorageFeeEstimator) Schedule() FeeSchedule {
	return e.schedule
}

// Estimate computes the fee. Handling is charged on the total weight when
// either endpoint is a warehouse; storage only when goods leave a warehouse.
func (e *StorageFeeEstimator) Estimate(in StorageFeeInput) StorageFeeBreakdown {
	if !in.Enabled || (!in.SourceIsWarehouse && !in.TargetIsWarehouse) {
		return ZeroBreakdown()
	}

	totalTons := decimal.Zero
	storage := decimal.Zero
	lines := make([]LineFee, 0, len(in.Lines))
	for _, l := range in.Lines {
		tons := valueobject.ToTons(l.Weight, e.schedule.TonSize)
		totalTons = totalTons.Add(tons)

		lf := LineFee{
			Slot:       l.Slot,
			WeightTons: valueobject.RoundDisplay(tons),
			Handling:   valueobject.RoundMoney(tons.Mul(e.schedule.HandlingRatePerTon)),
			Storage:    decimal.Zero,
		}
		if in.SourceIsWarehouse && l.ReceivedAt != nil {
			days := e.StorageDays(in.BusinessDate, *l.ReceivedAt)
			raw := tons.Mul(decimal.NewFromInt(int64(days))).Mul(e.schedule.StorageRatePerTonPerDay)
			storage = storage.Add(raw)
			lf.StorageDays = days
			lf.Storage = valueobject.RoundMoney(raw)
		}
		lines = append(lines, lf)
	}

	handling := valueobject.RoundMoney(totalTons.Mul(e.schedule.HandlingRatePerTon))
	storage = valueobject.RoundMoney(storage)
	return StorageFeeBreakdown{
		Handling: handling,
		Storage:  storage,
		Total:    valueobject.SumMoney(handling, storage),
		Lines:    lines,
	}
}

// StorageDays counts calendar days in the schedule's location from receipt
// to the business date, both inclusive. The receipt day is day 1 and the
// result is never less than 1.
func (e *StorageFeeEstimator) StorageDays(businessDate, receivedAt time.Time) int {
	end := calendarDay(businessDate, e.schedule.Location)
	start := calendarDay(receivedAt, e.schedule.Location)
	days := int(end.Sub(start)/(24*time.Hour)) + 1
	if days < 1 {
		return 1
	}
	return days
}

// Preview estimates the fee for a weight and an average dwell time without
// any batch data. A non-positive avgDays uses the schedule's default.
func (e *StorageFeeEstimator) Preview(weight decimal.Decimal, avgDays int, sourceIsWarehouse, targetIsWarehouse bool) StorageFeeBreakdown {
	if avgDays < 1 {
		avgDays = e.schedule.DefaultPreviewDays
	}
	// a receipt avgDays-1 days before the business date yields avgDays storage days
	business := time.Date(2000, 1, 1, 12, 0, 0, 0, e.schedule.Location).AddDate(0, 0, avgDays-1)
	received := time.Date(2000, 1, 1, 12, 0, 0, 0, e.schedule.Location)
	return e.Estimate(StorageFeeInput{
		Enabled:           true,
		SourceIsWarehouse: sourceIsWarehouse,
		TargetIsWarehouse: targetIsWarehouse,
		BusinessDate:      business,
		Lines:             []FeeLine{{Slot: NoSlot, Weight: weight, ReceivedAt: &received}},
	})
}

// SameOrAfterDay reports whether a falls on or after b's calendar day
func SameOrAfterDay(a, b time.Time, loc *time.Location) bool {
	return !calendarDay(a, loc).Before(calendarDay(b, loc))
}

func calendarDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
