package invoices

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/GitCaleffi/invoice-backend/internal/orders"
)

func poLine(orderNumber, articleCode string, ordered, price string) orders.PurchaseOrderLine {
	return orders.PurchaseOrderLine{
		OrderNumber:     orderNumber,
		ArticleCode:     articleCode,
		OrderedQuantity: decimal.RequireFromString(ordered),
		UnitPrice:       decimal.RequireFromString(price),
		SupplierCode:    "SUP01",
	}
}

func uploadRow(orderNumber, articleCode, quantity, price string) UploadRow {
	return UploadRow{
		InvoiceNumber: "INV-1",
		OrderNumber:   orderNumber,
		ArticleCode:   articleCode,
		Quantity:      Amount{decimal.RequireFromString(quantity)},
		Price:         Amount{decimal.RequireFromString(price)},
	}
}

func TestMatchQuantityToleranceBoundary(t *testing.T) {
	m := NewMatcher(decimal.RequireFromString("1.1"), false)
	idx := NewOrderIndex([]orders.PurchaseOrderLine{poLine("PO-1", "ART-1", "100", "10")})

	result := m.Match(uploadRow("PO-1", "ART-1", "110", "10"), idx)
	require.True(t, result.OK(), "quantity exactly at tolerance must pass")
	require.Equal(t, "SUP01", result.SupplierCode)

	result = m.Match(uploadRow("PO-1", "ART-1", "111", "10"), idx)
	require.Len(t, result.Errors, 1)
	require.Equal(t, "quantity", result.Errors[0].Field)
	require.Contains(t, result.Errors[0].Reason, "ordered 100")
	require.Contains(t, result.Errors[0].Reason, "max allowed 110.00")
}

func TestMatchPriceStringAndNumberCompareEqual(t *testing.T) {
	var quoted, plain Amount
	require.NoError(t, json.Unmarshal([]byte(`"10.00"`), &quoted))
	require.NoError(t, json.Unmarshal([]byte(`10`), &plain))
	require.True(t, quoted.Equal(plain.Decimal))

	m := NewMatcher(decimal.RequireFromString("1.25"), false)
	idx := NewOrderIndex([]orders.PurchaseOrderLine{poLine("PO-1", "ART-1", "100", "10")})

	row := uploadRow("PO-1", "ART-1", "50", "10")
	row.Price = quoted
	require.True(t, m.Match(row, idx).OK())
}

func TestMatchNoPurchaseOrderShortCircuits(t *testing.T) {
	m := NewMatcher(decimal.Decimal{}, false)
	idx := NewOrderIndex([]orders.PurchaseOrderLine{poLine("PO-1", "ART-1", "100", "10")})

	result := m.Match(uploadRow("PO-MISSING", "WRONG", "9999", "0.01"), idx)
	require.Len(t, result.Errors, 1)
	require.Equal(t, ReasonNoPurchaseOrder, result.Errors[0].Reason)
	require.Equal(t, "order_number", result.Errors[0].Field)
	require.Equal(t, "PO-MISSING", result.Errors[0].Value)
}

func TestMatchErrorsAccumulate(t *testing.T) {
	m := NewMatcher(decimal.RequireFromString("1.25"), false)
	idx := NewOrderIndex([]orders.PurchaseOrderLine{poLine("PO-1", "ART-1", "100", "10")})

	result := m.Match(uploadRow("PO-1", "WRONG", "200", "9.50"), idx)
	require.Len(t, result.Errors, 3)

	fields := make([]string, 0, len(result.Errors))
	for _, e := range result.Errors {
		fields = append(fields, e.Field)
	}
	require.ElementsMatch(t, []string{"article_code", "quantity", "price"}, fields)
}

func TestMatchOrderNumberCaseAndWhitespaceInsensitive(t *testing.T) {
	m := NewMatcher(decimal.RequireFromString("1.25"), false)
	idx := NewOrderIndex([]orders.PurchaseOrderLine{poLine("po-1", "ART-1", "100", "10")})

	result := m.Match(uploadRow("  PO-1 ", "ART-1", "100", "10"), idx)
	require.True(t, result.OK())
}

func TestMatchMultiArticleOrderPrefersMatchingLine(t *testing.T) {
	m := NewMatcher(decimal.RequireFromString("1.25"), false)
	idx := NewOrderIndex([]orders.PurchaseOrderLine{
		poLine("PO-1", "ART-1", "100", "10"),
		poLine("PO-1", "ART-2", "50", "20"),
	})

	result := m.Match(uploadRow("PO-1", "ART-2", "50", "20"), idx)
	require.True(t, result.OK())
}

func TestMatchStrictArticleMode(t *testing.T) {
	m := NewMatcher(decimal.RequireFromString("1.25"), true)
	idx := NewOrderIndex([]orders.PurchaseOrderLine{poLine("PO-1", "ART-1", "100", "10")})

	result := m.Match(uploadRow("PO-1", "ART-OTHER", "10", "10"), idx)
	require.Len(t, result.Errors, 1)
	require.Equal(t, ReasonNoPurchaseOrder, result.Errors[0].Reason)
}

func TestMatchZeroToleranceFallsBackToDefault(t *testing.T) {
	m := NewMatcher(decimal.Decimal{}, false)
	idx := NewOrderIndex([]orders.PurchaseOrderLine{poLine("PO-1", "ART-1", "100", "10")})

	require.True(t, m.Match(uploadRow("PO-1", "ART-1", "125", "10"), idx).OK())
	require.False(t, m.Match(uploadRow("PO-1", "ART-1", "126", "10"), idx).OK())
}
