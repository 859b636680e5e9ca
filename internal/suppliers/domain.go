// Package suppliers exposes the authenticated-supplier lookup consumed by
// the reconciliation and order reporting services.
package suppliers

import (
	"errors"
	"time"
)

// Supplier represents a supplier account.
type Supplier struct {
	ID              int64     `json:"id"`
	Username        string    `json:"username"`
	Email           string    `json:"email"`
	SupplierCode    string    `json:"supplier_code"`
	BusinessName    string    `json:"rag_soc"`
	AccountVerified bool      `json:"account_verified"`
	IsDeleted       bool      `json:"is_deleted"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Codes returns the supplier's codes as a list. The supplier_code column
// historically holds either a single code or a comma-separated list.
func (s Supplier) Codes() []string {
	return NormalizeCodes(s.SupplierCode)
}

// ErrNotFound indicates the supplier record is missing.
var ErrNotFound = errors.New("suppliers: not found")
