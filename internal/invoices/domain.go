// Package invoices implements the invoice upload pipeline: per-row
// matching against purchase orders, all-or-nothing batch validation and
// the invoice CRUD surface.
package invoices

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceLine is one stored invoice row, upserted by
// (invoice_number, order_number, supplier).
type InvoiceLine struct {
	ID                   int64           `json:"id"`
	InvoiceNumber        string          `json:"invoice_number"`
	InvoiceDate          *time.Time      `json:"invoice_date"`
	OrderNumber          string          `json:"order_number"`
	ArticleCode          string          `json:"article_code"`
	Quantity             decimal.Decimal `json:"quantity"`
	Price                decimal.Decimal `json:"price"`
	Currency             string          `json:"currency"`
	Description          string          `json:"description"`
	ExpectedDeliveryDate *time.Time      `json:"expected_delivery_date"`
	SupplierCode         string          `json:"supplier_code"`
	ProductionLot        string          `json:"production_lot"`
	Processed            string          `json:"processed"`
	InsertionDate        *time.Time      `json:"insertion_date"`
	SupplierID           int64           `json:"supplier_id"`
	IsDeleted            bool            `json:"is_deleted"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// Amount is a decimal that unmarshals from either a JSON number or a
// numeric string, so "10.00" and 10 compare equal downstream.
type Amount struct {
	decimal.Decimal
}

// UnmarshalJSON accepts numbers and quoted numbers; empty values decode
// to zero.
func (a *Amount) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(bytes.Trim(bytes.TrimSpace(data), `"`)))
	if raw == "" || raw == "null" {
		a.Decimal = decimal.Zero
		return nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("invoices: invalid numeric value %q", raw)
	}
	a.Decimal = d
	return nil
}

// UploadRow is one row of an uploaded invoice CSV, already mapped onto
// canonical headers by the client.
type UploadRow struct {
	InvoiceNumber        string `json:"invoice_number" validate:"required"`
	InvoiceDate          string `json:"invoice_date"`
	OrderNumber          string `json:"order_number" validate:"required"`
	ArticleCode          string `json:"article_code"`
	Quantity             Amount `json:"quantity"`
	Price                Amount `json:"price"`
	Currency             string `json:"currency"`
	Description          string `json:"description"`
	ExpectedDeliveryDate string `json:"expected_delivery_date"`
	SupplierCode         string `json:"supplier_code"`
	ProductionLot        string `json:"production_lot"`
	Processed            string `json:"processed"`
	InsertionDate        string `json:"insertion_date"`
}

// RowError is one machine-checkable validation failure on an uploaded row.
type RowError struct {
	Reason string `json:"reason"`
	Field  string `json:"field"`
	Value  string `json:"value"`
}

// InvalidRow carries the 1-based row index and every error found on it.
type InvalidRow struct {
	Row    int        `json:"row"`
	Errors []RowError `json:"errors"`
}

// UploadResult summarises a reconciliation run.
type UploadResult struct {
	Inserted    int          `json:"inserted"`
	Failed      int          `json:"failed"`
	InvalidRows []InvalidRow `json:"invalidRows,omitempty"`
}

// Rejected reports whether the batch was rejected under the
// all-or-nothing policy.
func (r UploadResult) Rejected() bool {
	return len(r.InvalidRows) > 0
}

// UpdateRequest is the whitelisted invoice update payload.
type UpdateRequest struct {
	ID                   int64   `json:"id" validate:"required,gt=0"`
	InvoiceNumber        *string `json:"invoice_number,omitempty" validate:"omitempty,min=1"`
	OrderNumber          *string `json:"order_number,omitempty" validate:"omitempty,min=1"`
	ArticleCode          *string `json:"article_code,omitempty"`
	Quantity             *Amount `json:"quantity,omitempty"`
	Price                *Amount `json:"price,omitempty"`
	Currency             *string `json:"currency,omitempty" validate:"omitempty,max=8"`
	Description          *string `json:"description,omitempty"`
	ExpectedDeliveryDate *string `json:"expected_delivery_date,omitempty"`
	ProductionLot        *string `json:"production_lot,omitempty"`
	Processed            *string `json:"processed,omitempty"`
}

var (
	// ErrEmptyBatch indicates the upload carried no rows.
	ErrEmptyBatch = errors.New("invoices: upload contains no rows")
	// ErrNoPurchaseOrders indicates the supplier has no purchase orders
	// to reconcile against.
	ErrNoPurchaseOrders = errors.New("invoices: supplier has no purchase orders")
	// ErrNotFound indicates the invoice record is missing.
	ErrNotFound = errors.New("invoices: not found")
)

// ParsePortalDate parses the portal's dd/mm/yyyy date format. Empty and
// malformed values yield nil, matching the upstream CSV tooling.
func ParsePortalDate(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	t, err := time.Parse("02/01/2006", value)
	if err != nil {
		return nil
	}
	return &t
}
