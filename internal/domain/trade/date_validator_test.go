package trade

import (
	"testing"
	"time"

	"github.com/erp/tradedesk/internal/domain/inventory"
	"github.com/erp/tradedesk/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func issueCodes(is Issues) []string {
	codes := make([]string, 0, len(is))
	for _, i := range is {
		codes = append(codes, i.Code)
	}
	return codes
}

func TestOrderDateValidator_ShipBeforeReceipt(t *testing.T) {
	v := NewOrderDateValidator(time.UTC)
	productID := uuid.New()
	early := inventory.StockBatch{BaseEntity: shared.NewBaseEntity(), BatchNo: "B-1", ReceivedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
	late := inventory.StockBatch{BaseEntity: shared.NewBaseEntity(), BatchNo: "B-2", ReceivedAt: time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)}
	batches := map[uuid.UUID]inventory.StockBatch{early.ID: early, late.ID: late}

	order := &BusinessOrder{
		Type:        OrderTypeLoading,
		OrderDate:   date(2024, 3, 1),
		LoadingDate: timeRef(date(2024, 3, 3)),
		Lines: []OrderLine{
			{Slot: 1, ProductID: productID, BatchID: &early.ID},
			{Slot: 2, ProductID: productID, Allocations: []BatchAllocation{{BatchID: late.ID, Quantity: dec("1")}}},
		},
	}

	t.Run("loading before latest receipt is rejected", func(t *testing.T) {
		issues := v.Validate(DateCheck{
			Order:             order,
			SourceIsWarehouse: true,
			Batches:           batches,
			ProductNames:      map[uuid.UUID]string{productID: "Mackerel"},
		})
		require.Len(t, issues, 1)
		assert.Equal(t, IssueShipBeforeReceipt, issues[0].Code)
		assert.Equal(t, 2, issues[0].Slot)
		assert.True(t, issues[0].Blocking())
		assert.Contains(t, issues[0].Message, "Mackerel")
		assert.Contains(t, issues[0].Message, "B-2")
		assert.Contains(t, issues[0].Message, "2024-03-05")
	})

	t.Run("same day as receipt is allowed", func(t *testing.T) {
		o := *order
		o.LoadingDate = timeRef(date(2024, 3, 5))
		issues := v.Validate(DateCheck{Order: &o, SourceIsWarehouse: true, Batches: batches})
		assert.Empty(t, issues)
	})

	t.Run("not checked when source is not a warehouse", func(t *testing.T) {
		issues := v.Validate(DateCheck{Order: order, Batches: batches})
		assert.Empty(t, issues)
	})
}

func TestOrderDateValidator_UnloadBeforeLoad(t *testing.T) {
	v := NewOrderDateValidator(time.UTC)
	order := &BusinessOrder{
		Type:          OrderTypeUnloading,
		OrderDate:     date(2024, 3, 1),
		LoadingDate:   timeRef(date(2024, 3, 4)),
		UnloadingDate: timeRef(date(2024, 3, 3)),
	}
	issues := v.Validate(DateCheck{Order: order})
	assert.Equal(t, []string{IssueUnloadBeforeLoad}, issueCodes(issues))

	order.UnloadingDate = timeRef(date(2024, 3, 4))
	assert.Empty(t, v.Validate(DateCheck{Order: order}))
}

func TestOrderDateValidator_ReturnBeforeOriginal(t *testing.T) {
	v := NewOrderDateValidator(time.UTC)
	original := &BusinessOrder{OrderNo: "SO-1", Type: OrderTypeSale, OrderDate: date(2024, 3, 10)}
	ret := &BusinessOrder{Type: OrderTypeReturnIn, OrderDate: date(2024, 3, 9)}

	issues := v.Validate(DateCheck{Order: ret, Original: original})
	require.Len(t, issues, 1)
	assert.Equal(t, IssueReturnBeforeOriginal, issues[0].Code)
	assert.Contains(t, issues[0].Message, "SO-1")

	ret.OrderDate = date(2024, 3, 10)
	assert.Empty(t, v.Validate(DateCheck{Order: ret, Original: original}))
}

func TestOrderDateValidator_MissingDate(t *testing.T) {
	v := NewOrderDateValidator(nil)
	issues := v.Validate(DateCheck{Order: &BusinessOrder{Type: OrderTypeSale}})
	assert.Equal(t, []string{IssueDateRequired}, issueCodes(issues))
	assert.Empty(t, v.Validate(DateCheck{}))
}
