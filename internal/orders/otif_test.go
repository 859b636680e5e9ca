package orders

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func datePtr(t time.Time) *time.Time {
	return &t
}

func day(d int) time.Time {
	return time.Date(2026, time.March, d, 0, 0, 0, 0, time.UTC)
}

func line(orderNumber string, ordered, arrived string, requested, arrival *time.Time, status string, created time.Time) PurchaseOrderLine {
	return PurchaseOrderLine{
		OrderNumber:     orderNumber,
		OrderedQuantity: decimal.RequireFromString(ordered),
		QuantityArrived: decimal.RequireFromString(arrived),
		RequestedDate:   requested,
		ArrivalDate:     arrival,
		Status:          status,
		CreatedAt:       created,
	}
}

func TestLineOnTime(t *testing.T) {
	requested := datePtr(day(10))

	require.True(t, LineOnTime(line("PO-1", "10", "10", requested, datePtr(day(10)), "", day(1))),
		"arrival on the requested date is on time")
	require.True(t, LineOnTime(line("PO-1", "10", "12", requested, datePtr(day(9)), "", day(1))),
		"over-delivery before the deadline is on time")
	require.False(t, LineOnTime(line("PO-1", "10", "9", requested, datePtr(day(9)), "", day(1))),
		"short delivery is never on time")
	require.False(t, LineOnTime(line("PO-1", "10", "10", requested, datePtr(day(11)), "", day(1))),
		"late arrival is not on time")
	require.False(t, LineOnTime(line("PO-1", "10", "10", requested, nil, "", day(1))),
		"missing arrival date counts as late")
	require.False(t, LineOnTime(line("PO-1", "10", "10", nil, datePtr(day(9)), "", day(1))),
		"missing requested date counts as late")
}

func TestGlobalRate(t *testing.T) {
	require.Equal(t, "0.00", GlobalRate(nil))

	lines := []PurchaseOrderLine{
		line("PO-1", "10", "10", datePtr(day(10)), datePtr(day(9)), "", day(1)),
		line("PO-2", "10", "10", datePtr(day(10)), datePtr(day(11)), "", day(1)),
		line("PO-3", "10", "10", datePtr(day(10)), datePtr(day(10)), "", day(1)),
	}
	require.Equal(t, "66.67", GlobalRate(lines))
}

func TestGroupByOrderAggregates(t *testing.T) {
	now := day(15)
	lines := []PurchaseOrderLine{
		line("PO-1", "10", "10", datePtr(day(10)), datePtr(day(9)), "close", day(3)),
		line("PO-1", "5", "5", datePtr(day(8)), datePtr(day(8)), "close", day(4)),
		line("PO-2", "20", "0", datePtr(day(20)), nil, "open", day(5)),
	}

	groups := GroupByOrder(lines, now)
	require.Len(t, groups, 2)

	// Most recent creation first.
	require.Equal(t, "PO-2", groups[0].OrderNumber)
	require.Equal(t, "PO-1", groups[1].OrderNumber)

	g := groups[1]
	require.Equal(t, 2, g.TotalRecords)
	require.True(t, g.OrderedQuantity.Equal(decimal.RequireFromString("15")))
	require.True(t, g.QuantityReceived.Equal(decimal.RequireFromString("15")))
	require.Equal(t, 2, g.OnTimeCount)
	require.Equal(t, 2, g.ClosedCount)
	require.Equal(t, day(8), *g.NearestRequestedDate)
	require.Equal(t, DeliveryOnTime, g.DeliveryStatus)
	require.Equal(t, OrderClosed, g.OrderStatus)
	require.Equal(t, "100.00%", g.OrderOTIF)
}

func TestGroupDeliveryStatusDerivation(t *testing.T) {
	now := day(15)

	// Nothing arrived, not yet due.
	groups := GroupByOrder([]PurchaseOrderLine{
		line("PO-1", "10", "0", datePtr(day(20)), nil, "open", day(1)),
	}, now)
	require.Equal(t, DeliveryPending, groups[0].DeliveryStatus)
	require.Equal(t, OrderOpen, groups[0].OrderStatus)

	// Nothing arrived and overdue.
	groups = GroupByOrder([]PurchaseOrderLine{
		line("PO-1", "10", "0", datePtr(day(10)), nil, "open", day(1)),
	}, now)
	require.Equal(t, DeliveryLate, groups[0].DeliveryStatus)

	// A partial arrival disqualifies pending even before the deadline.
	groups = GroupByOrder([]PurchaseOrderLine{
		line("PO-1", "10", "4", datePtr(day(20)), datePtr(day(12)), "open", day(1)),
	}, now)
	require.Equal(t, DeliveryLate, groups[0].DeliveryStatus)

	// No requested date anywhere in the group.
	groups = GroupByOrder([]PurchaseOrderLine{
		line("PO-1", "10", "0", nil, nil, "open", day(1)),
	}, now)
	require.Equal(t, DeliveryLate, groups[0].DeliveryStatus)
}

func TestGroupClosedStatusRequiresEveryLine(t *testing.T) {
	groups := GroupByOrder([]PurchaseOrderLine{
		line("PO-1", "10", "10", datePtr(day(10)), datePtr(day(9)), "CLOSE", day(1)),
		line("PO-1", "10", "10", datePtr(day(10)), datePtr(day(9)), "open", day(2)),
	}, day(15))
	require.Equal(t, 1, groups[0].ClosedCount, "close comparison is case-insensitive")
	require.Equal(t, OrderOpen, groups[0].OrderStatus)
}

func TestPaginateGroups(t *testing.T) {
	var groups []OrderGroup
	for i := 0; i < 25; i++ {
		groups = append(groups, OrderGroup{OrderNumber: string(rune('A' + i))})
	}

	page, total := PaginateGroups(groups, 1, 10)
	require.Len(t, page, 10)
	require.Equal(t, 25, total)

	page, total = PaginateGroups(groups, 3, 10)
	require.Len(t, page, 5)
	require.Equal(t, 25, total)

	page, total = PaginateGroups(groups, 9, 10)
	require.Empty(t, page)
	require.Equal(t, 25, total)

	page, _ = PaginateGroups(groups, 0, 0)
	require.Len(t, page, 10, "zero page and limit fall back to defaults")
}

func TestGroupTotalRecordsSumToLineCount(t *testing.T) {
	lines := []PurchaseOrderLine{
		line("PO-1", "1", "0", nil, nil, "open", day(1)),
		line("PO-2", "1", "0", nil, nil, "open", day(2)),
		line("PO-1", "1", "0", nil, nil, "open", day(3)),
		line("PO-3", "1", "0", nil, nil, "open", day(4)),
		line("PO-2", "1", "0", nil, nil, "open", day(5)),
	}
	groups := GroupByOrder(lines, day(15))
	sum := 0
	for _, g := range groups {
		sum += g.TotalRecords
	}
	require.Equal(t, len(lines), sum)
}
