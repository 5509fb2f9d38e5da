package trade

import (
	"fmt"
	"time"

	"github.com/erp/tradedesk/internal/domain/inventory"
	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

// DateCheck is the input of the date-ordering rules
type DateCheck struct {
	Order             *BusinessOrder
	SourceIsWarehouse bool
	Batches           map[uuid.UUID]inventory.StockBatch
	ProductNames      map[uuid.UUID]string
	Original          *BusinessOrder
}

// OrderDateValidator enforces ordering between business dates and batch
// receipt dates. Dates are compared by calendar day in its location.
type OrderDateValidator struct {
	loc *time.Location
}

// NewOrderDateValidator creates a new OrderDateValidator
func NewOrderDateValidator(loc *time.Location) *OrderDateValidator {
	if loc == nil {
		loc = time.UTC
	}
	return &OrderDateValidator{loc: loc}
}

// Validate returns one blocking issue per violated rule instance
func (v *OrderDateValidator) Validate(in DateCheck) Issues {
	var issues Issues
	o := in.Order
	if o == nil {
		return issues
	}
	if o.OrderDate.IsZero() {
		issues.Error(NoSlot, IssueDateRequired, "order_date", "Order date is required")
		return issues
	}

	business := o.BusinessDate()

	if in.SourceIsWarehouse {
		for _, l := range o.Lines {
			for _, id := range l.BatchIDs() {
				b, ok := in.Batches[id]
				if !ok {
					continue
				}
				if !SameOrAfterDay(business, b.ReceivedAt, v.loc) {
					issues.Error(l.Slot, IssueShipBeforeReceipt, "batch_id", fmt.Sprintf(
						"%s batch %s was received on %s; goods cannot leave before %s",
						productName(in.ProductNames, l.ProductID), b.BatchNo,
						v.format(b.ReceivedAt), v.format(business)))
				}
			}
		}
	}

	if o.LoadingDate != nil && o.UnloadingDate != nil && !SameOrAfterDay(*o.UnloadingDate, *o.LoadingDate, v.loc) {
		issues.Error(NoSlot, IssueUnloadBeforeLoad, "unloading_date", fmt.Sprintf(
			"Unloading date %s is earlier than loading date %s",
			v.format(*o.UnloadingDate), v.format(*o.LoadingDate)))
	}

	if o.Type.IsReturn() && in.Original != nil {
		originalDate := in.Original.BusinessDate()
		if !SameOrAfterDay(business, originalDate, v.loc) {
			issues.Error(NoSlot, IssueReturnBeforeOriginal, "order_date", fmt.Sprintf(
				"Return date %s is earlier than original order %s date %s",
				v.format(business), in.Original.OrderNo, v.format(originalDate)))
		}
	}

	return issues
}

func (v *OrderDateValidator) format(t time.Time) string {
	return t.In(v.loc).Format(dateLayout)
}

func productName(names map[uuid.UUID]string, id uuid.UUID) string {
	if n, ok := names[id]; ok && n != "" {
		return n
	}
	return "Product " + id.String()
}
