package invoices

import (
	"fmt"
	"time"
)

// HeaderMapping stores a supplier's CSV header names for each canonical
// invoice field, so uploads can be produced from arbitrary spreadsheets.
type HeaderMapping struct {
	ID                   int64     `json:"id"`
	SupplierID           int64     `json:"supplier_id"`
	InvoiceNumber        string    `json:"invoice_number"`
	InvoiceDate          string    `json:"invoice_date"`
	OrderNumber          string    `json:"order_number"`
	ArticleCode          string    `json:"article_code"`
	Quantity             string    `json:"quantity"`
	Price                string    `json:"price"`
	Currency             string    `json:"currency"`
	Description          string    `json:"description"`
	ExpectedDeliveryDate string    `json:"expected_delivery_date"`
	SupplierCode         string    `json:"supplier_code"`
	ProductionLot        string    `json:"production_lot"`
	Processed            string    `json:"processed"`
	InsertionDate        string    `json:"insertion_date"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// ErrUnknownMappingField wraps the offending key of a mapping update.
type ErrUnknownMappingField struct {
	Field string
}

func (e ErrUnknownMappingField) Error() string {
	return fmt.Sprintf("invoices: unknown header mapping field %q", e.Field)
}

// Apply merges updates into the mapping through an explicit field
// whitelist. Any key outside the canonical field set is an error rather
// than being silently dropped.
func (m *HeaderMapping) Apply(updates map[string]string) error {
	targets := map[string]*string{
		"invoice_number":         &m.InvoiceNumber,
		"invoice_date":           &m.InvoiceDate,
		"order_number":           &m.OrderNumber,
		"article_code":           &m.ArticleCode,
		"quantity":               &m.Quantity,
		"price":                  &m.Price,
		"currency":               &m.Currency,
		"description":            &m.Description,
		"expected_delivery_date": &m.ExpectedDeliveryDate,
		"supplier_code":          &m.SupplierCode,
		"production_lot":         &m.ProductionLot,
		"processed":              &m.Processed,
		"insertion_date":         &m.InsertionDate,
	}

	// Reject unknown keys before mutating anything, so a bad payload
	// cannot half-apply.
	for key := range updates {
		if _, ok := targets[key]; !ok {
			return ErrUnknownMappingField{Field: key}
		}
	}
	for key, value := range updates {
		*targets[key] = value
	}
	return nil
}
