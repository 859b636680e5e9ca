package orders

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// LineOnTime reports whether a purchase-order line was delivered on time
// and in full: the arrived quantity covers the ordered quantity and the
// arrival date is on or before the requested date. A missing arrival date
// counts as infinitely late.
func LineOnTime(l PurchaseOrderLine) bool {
	if l.ArrivalDate == nil || l.RequestedDate == nil {
		return false
	}
	if l.QuantityArrived.LessThan(l.OrderedQuantity) {
		return false
	}
	return !l.ArrivalDate.After(*l.RequestedDate)
}

// GlobalRate computes the supplier-wide OTIF percentage over the full
// line set, formatted to two decimals. An empty set yields "0.00".
func GlobalRate(lines []PurchaseOrderLine) string {
	if len(lines) == 0 {
		return "0.00"
	}
	onTime := 0
	for _, l := range lines {
		if LineOnTime(l) {
			onTime++
		}
	}
	return ratePercent(onTime, len(lines))
}

// GroupByOrder folds lines into per-order-number aggregates, derives the
// delivery and order statuses, and orders groups by most recent creation
// time descending.
func GroupByOrder(lines []PurchaseOrderLine, now time.Time) []OrderGroup {
	byOrder := make(map[string]*OrderGroup)
	arrivalSeen := make(map[string]bool)
	var sequence []string

	for _, l := range lines {
		g, ok := byOrder[l.OrderNumber]
		if !ok {
			g = &OrderGroup{OrderNumber: l.OrderNumber}
			byOrder[l.OrderNumber] = g
			sequence = append(sequence, l.OrderNumber)
		}
		g.TotalRecords++
		g.OrderedQuantity = g.OrderedQuantity.Add(l.OrderedQuantity)
		g.QuantityReceived = g.QuantityReceived.Add(l.QuantityArrived)
		if LineOnTime(l) {
			g.OnTimeCount++
		}
		if strings.EqualFold(l.Status, StatusClose) {
			g.ClosedCount++
		}
		if l.RequestedDate != nil {
			if g.NearestRequestedDate == nil || l.RequestedDate.Before(*g.NearestRequestedDate) {
				d := *l.RequestedDate
				g.NearestRequestedDate = &d
			}
		}
		if l.ArrivalDate != nil {
			arrivalSeen[l.OrderNumber] = true
		}
		if l.CreatedAt.After(g.LatestCreatedAt) {
			g.LatestCreatedAt = l.CreatedAt
		}
	}

	groups := make([]OrderGroup, 0, len(byOrder))
	for _, orderNumber := range sequence {
		g := byOrder[orderNumber]
		g.DeliveryStatus = deliveryStatus(g, arrivalSeen[orderNumber], now)
		g.OrderStatus = orderStatus(g)
		g.OrderOTIF = ratePercent(g.OnTimeCount, g.TotalRecords) + "%"
		groups = append(groups, *g)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].LatestCreatedAt.After(groups[j].LatestCreatedAt)
	})
	return groups
}

// PaginateGroups slices a grouped result set, returning the page and the
// total group count for page-count computation.
func PaginateGroups(groups []OrderGroup, page, limit int) ([]OrderGroup, int) {
	if limit <= 0 {
		limit = 10
	}
	if page <= 0 {
		page = 1
	}
	total := len(groups)
	start := (page - 1) * limit
	if start >= total {
		return []OrderGroup{}, total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return groups[start:end], total
}

func deliveryStatus(g *OrderGroup, arrivalRecorded bool, now time.Time) string {
	switch {
	case g.OnTimeCount == g.TotalRecords:
		return DeliveryOnTime
	case g.NearestRequestedDate == nil:
		return DeliveryLate
	case !arrivalRecorded && g.NearestRequestedDate.After(now):
		// Nothing has arrived yet but the order is not due.
		return DeliveryPending
	default:
		return DeliveryLate
	}
}

func orderStatus(g *OrderGroup) string {
	if g.TotalRecords > 0 && g.ClosedCount == g.TotalRecords {
		return OrderClosed
	}
	return OrderOpen
}

func ratePercent(part, total int) string {
	if total == 0 {
		return "0.00"
	}
	return fmt.Sprintf("%.2f", float64(part)/float64(total)*100)
}
