package invoices

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/GitCaleffi/invoice-backend/internal/orders"
)

// DefaultQuantityTolerance is the allowed overage multiplier on ordered
// quantity before an uploaded row is rejected.
const DefaultQuantityTolerance = "1.25"

// Error reasons reported per row.
const (
	ReasonNoPurchaseOrder  = "no matching purchase order"
	ReasonArticleMismatch  = "article code does not match purchase order"
	ReasonPriceMismatch    = "unit price does not match purchase order"
	ReasonQuantityExceeded = "quantity exceeds ordered quantity"
)

// Matcher validates uploaded invoice rows against purchase-order lines.
// It is a pure function over the data handed to it.
type Matcher struct {
	tolerance        decimal.Decimal
	matchArticleCode bool
}

// NewMatcher constructs a matcher. matchArticleCode folds the article
// code into the lookup key instead of validating it after the
// order-number match.
func NewMatcher(tolerance decimal.Decimal, matchArticleCode bool) *Matcher {
	if tolerance.IsZero() {
		tolerance = decimal.RequireFromString(DefaultQuantityTolerance)
	}
	return &Matcher{tolerance: tolerance, matchArticleCode: matchArticleCode}
}

// MatchResult is the outcome of validating one row. An empty Errors slice
// means the row is accepted; SupplierCode then carries the matched
// line's canonical supplier code.
type MatchResult struct {
	SupplierCode string
	Errors       []RowError
}

// OK reports whether the row passed every check.
func (r MatchResult) OK() bool {
	return len(r.Errors) == 0
}

// OrderIndex indexes a supplier's purchase-order lines for batch
// validation. Build it once per upload; lookups are O(1) per row.
type OrderIndex struct {
	byOrder map[string][]orders.PurchaseOrderLine
}

// NewOrderIndex builds the lookup index over the supplier's lines.
func NewOrderIndex(lines []orders.PurchaseOrderLine) *OrderIndex {
	idx := &OrderIndex{byOrder: make(map[string][]orders.PurchaseOrderLine, len(lines))}
	for _, l := range lines {
		key := indexKey(l.OrderNumber)
		idx.byOrder[key] = append(idx.byOrder[key], l)
	}
	return idx
}

// Empty reports whether the index holds no lines.
func (idx *OrderIndex) Empty() bool {
	return len(idx.byOrder) == 0
}

func (idx *OrderIndex) candidates(orderNumber string) []orders.PurchaseOrderLine {
	return idx.byOrder[indexKey(orderNumber)]
}

// Match validates one uploaded row against the indexed purchase orders.
// Checks accumulate: a row can carry an article, quantity and price error
// at once. Only the missing-order case short-circuits, because no other
// check is meaningful without a matched line.
func (m *Matcher) Match(row UploadRow, idx *OrderIndex) MatchResult {
	candidates := idx.candidates(row.OrderNumber)

	matched, found := pickLine(candidates, row.ArticleCode, m.matchArticleCode)
	if !found {
		return MatchResult{Errors: []RowError{{
			Reason: ReasonNoPurchaseOrder,
			Field:  "order_number",
			Value:  row.OrderNumber,
		}}}
	}

	var errs []RowError
	if !strings.EqualFold(matched.ArticleCode, row.ArticleCode) {
		errs = append(errs, RowError{
			Reason: ReasonArticleMismatch,
			Field:  "article_code",
			Value:  row.ArticleCode,
		})
	}

	maxAllowed := matched.OrderedQuantity.Mul(m.tolerance)
	if row.Quantity.Decimal.GreaterThan(maxAllowed) {
		errs = append(errs, RowError{
			Reason: fmt.Sprintf("%s: ordered %s, max allowed %s",
				ReasonQuantityExceeded, matched.OrderedQuantity.String(), maxAllowed.StringFixed(2)),
			Field: "quantity",
			Value: row.Quantity.Decimal.String(),
		})
	}

	if !matched.UnitPrice.Equal(row.Price.Decimal) {
		errs = append(errs, RowError{
			Reason: ReasonPriceMismatch,
			Field:  "price",
			Value:  row.Price.Decimal.String(),
		})
	}

	return MatchResult{SupplierCode: matched.SupplierCode, Errors: errs}
}

// pickLine selects the purchase-order line a row reconciles against.
// When several lines share the order number (multi-article orders), the
// one matching the row's article code wins; otherwise the first line
// stands in and the article check reports the mismatch. Under strict
// article matching an article miss means no match at all.
func pickLine(candidates []orders.PurchaseOrderLine, articleCode string, strict bool) (orders.PurchaseOrderLine, bool) {
	if len(candidates) == 0 {
		return orders.PurchaseOrderLine{}, false
	}
	for _, l := range candidates {
		if strings.EqualFold(l.ArticleCode, articleCode) {
			return l, true
		}
	}
	if strict {
		return orders.PurchaseOrderLine{}, false
	}
	return candidates[0], true
}

func indexKey(orderNumber string) string {
	return strings.ToUpper(strings.TrimSpace(orderNumber))
}
