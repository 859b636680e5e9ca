// Package orders serves purchase-order reporting: the grouped-by-order
// listing with delivery status derivation and the OTIF metrics behind it.
package orders

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Delivery status labels derived per order group.
const (
	DeliveryOnTime  = "on-time"
	DeliveryPending = "pending"
	DeliveryLate    = "late"
)

// Order status labels derived from per-line close flags.
const (
	OrderOpen   = "open"
	OrderClosed = "closed"
)

// StatusClose is the per-line status value marking a line as closed.
// Lines default to "open"; comparison is case-insensitive.
const StatusClose = "close"

// PurchaseOrderLine is one row of a purchase order, scoped to a single
// article/order-number pair. Lines are created upstream; this service
// only reads them and derives statuses.
type PurchaseOrderLine struct {
	ID              int64           `json:"id"`
	OrderNumber     string          `json:"order_number"`
	ArticleCode     string          `json:"article_code"`
	SupplierCode    string          `json:"supplier_code"`
	OrderedQuantity decimal.Decimal `json:"ordered_quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	Currency        string          `json:"currency"`
	ProductionLot   string          `json:"production_lot"`
	RequestedDate   *time.Time      `json:"requested_date"`
	ArrivalDate     *time.Time      `json:"arrival_date"`
	QuantityArrived decimal.Decimal `json:"quantity_arrived"`
	Status          string          `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// OrderGroup aggregates the lines sharing one order number. Groups are
// derived on read, never stored.
type OrderGroup struct {
	OrderNumber          string          `json:"order_number"`
	TotalRecords         int             `json:"total_records"`
	OrderedQuantity      decimal.Decimal `json:"ordered_quantity"`
	QuantityReceived     decimal.Decimal `json:"quantity_received"`
	OnTimeCount          int             `json:"on_time_count"`
	ClosedCount          int             `json:"closed_count"`
	NearestRequestedDate *time.Time      `json:"nearest_requested_date"`
	LatestCreatedAt      time.Time       `json:"-"`
	DeliveryStatus       string          `json:"delivery_status"`
	OrderStatus          string          `json:"order_status"`
	OrderOTIF            string          `json:"order_otif"`
}

// ListFilters narrows the purchase-order line set before aggregation.
type ListFilters struct {
	Search   string
	DateFrom *time.Time
	DateTo   *time.Time
}

// OTIFReport is the aggregate response for the grouped order listing.
type OTIFReport struct {
	OTIFRate    string       `json:"otifRate"`
	Orders      []OrderGroup `json:"orders"`
	TotalGroups int          `json:"-"`
}

// GlobalMetrics is the cached supplier-wide OTIF summary.
type GlobalMetrics struct {
	OTIFRate    string    `json:"otifRate"`
	TotalLines  int       `json:"totalLines"`
	OnTimeLines int       `json:"onTimeLines"`
	ComputedAt  time.Time `json:"computedAt"`
}

var (
	// ErrNotFound indicates no purchase-order lines matched.
	ErrNotFound = errors.New("orders: not found")
)
