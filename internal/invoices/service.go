package invoices

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/GitCaleffi/invoice-backend/internal/orders"
	"github.com/GitCaleffi/invoice-backend/internal/shared"
	"github.com/GitCaleffi/invoice-backend/internal/suppliers"
)

// SupplierStore is the authenticated-supplier lookup used by the pipeline.
type SupplierStore interface {
	Find(ctx context.Context, id int64, email string) (*suppliers.Supplier, error)
}

// OrderStore supplies the purchase-order lines rows reconcile against.
type OrderStore interface {
	ListBySupplierCodes(ctx context.Context, codes []string, filters orders.ListFilters) ([]orders.PurchaseOrderLine, error)
}

// Service orchestrates invoice uploads and the invoice CRUD surface.
type Service struct {
	logger    *slog.Logger
	validate  *validator.Validate
	matcher   *Matcher
	suppliers SupplierStore
	orders    OrderStore
	repo      Repository
	now       func() time.Time
}

// NewService constructs the invoices service.
func NewService(logger *slog.Logger, matcher *Matcher, supplierStore SupplierStore, orderStore OrderStore, repo Repository) *Service {
	return &Service{
		logger:    logger,
		validate:  validator.New(),
		matcher:   matcher,
		suppliers: supplierStore,
		orders:    orderStore,
		repo:      repo,
		now:       time.Now,
	}
}

// UploadBatch reconciles an uploaded batch against the supplier's
// purchase orders. Validation is all-or-nothing: one invalid row rejects
// the whole batch with a per-row report and nothing is persisted. The
// write phase that follows a fully valid batch is best-effort: a single
// row's write failure is logged and skipped, never aborting the batch.
func (s *Service) UploadBatch(ctx context.Context, supplierID int64, email string, rows []UploadRow) (*UploadResult, error) {
	supplier, err := s.suppliers.Find(ctx, supplierID, email)
	if err != nil {
		if errors.Is(err, suppliers.ErrNotFound) {
			return nil, shared.ErrSupplierNotFound
		}
		return nil, fmt.Errorf("invoices: find supplier: %w", err)
	}

	if len(rows) == 0 {
		return nil, ErrEmptyBatch
	}

	poLines, err := s.orders.ListBySupplierCodes(ctx, supplier.Codes(), orders.ListFilters{})
	if err != nil {
		return nil, fmt.Errorf("invoices: load purchase orders: %w", err)
	}
	if len(poLines) == 0 {
		return nil, ErrNoPurchaseOrders
	}

	index := NewOrderIndex(poLines)

	type acceptedRow struct {
		row          UploadRow
		supplierCode string
	}
	var accepted []acceptedRow
	var invalid []InvalidRow

	for i, row := range rows {
		rowErrs := s.validateRow(row)
		result := s.matcher.Match(row, index)
		rowErrs = append(rowErrs, result.Errors...)
		if len(rowErrs) > 0 {
			invalid = append(invalid, InvalidRow{Row: i + 1, Errors: rowErrs})
			continue
		}
		accepted = append(accepted, acceptedRow{row: row, supplierCode: result.SupplierCode})
	}

	if len(invalid) > 0 {
		return &UploadResult{Failed: len(invalid), InvalidRows: invalid}, nil
	}

	result := &UploadResult{}
	for _, a := range accepted {
		line := s.lineFromRow(a.row, supplierID, a.supplierCode)
		if err := s.persist(ctx, line); err != nil {
			s.logger.Error("persist invoice row",
				slog.String("invoice_number", line.InvoiceNumber),
				slog.String("order_number", line.OrderNumber),
				slog.Int64("supplier_id", supplierID),
				slog.Any("error", err))
			continue
		}
		result.Inserted++
	}
	return result, nil
}

// persist upserts one invoice line keyed by (invoice_number,
// order_number, supplier).
func (s *Service) persist(ctx context.Context, line InvoiceLine) error {
	existing, err := s.repo.FindOne(ctx, line.InvoiceNumber, line.OrderNumber, line.SupplierID)
	switch {
	case err == nil:
		line.ID = existing.ID
		return s.repo.Update(ctx, line)
	case errors.Is(err, ErrNotFound):
		_, err := s.repo.Insert(ctx, line)
		return err
	default:
		return err
	}
}

func (s *Service) validateRow(row UploadRow) []RowError {
	err := s.validate.Struct(row)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []RowError{{Reason: "invalid row", Field: "row", Value: err.Error()}}
	}
	out := make([]RowError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, RowError{
			Reason: "missing required field",
			Field:  fieldJSONName(fe.StructField()),
		})
	}
	return out
}

func (s *Service) lineFromRow(row UploadRow, supplierID int64, supplierCode string) InvoiceLine {
	insertion := ParsePortalDate(row.InsertionDate)
	if insertion == nil {
		t := s.now().UTC()
		insertion = &t
	}
	return InvoiceLine{
		InvoiceNumber:        row.InvoiceNumber,
		InvoiceDate:          ParsePortalDate(row.InvoiceDate),
		OrderNumber:          row.OrderNumber,
		ArticleCode:          row.ArticleCode,
		Quantity:             row.Quantity.Decimal,
		Price:                row.Price.Decimal,
		Currency:             row.Currency,
		Description:          row.Description,
		ExpectedDeliveryDate: ParsePortalDate(row.ExpectedDeliveryDate),
		SupplierCode:         supplierCode,
		ProductionLot:        row.ProductionLot,
		Processed:            row.Processed,
		InsertionDate:        insertion,
		SupplierID:           supplierID,
	}
}

// List returns one page of the supplier's invoices plus the total count.
func (s *Service) List(ctx context.Context, supplierID int64, search string, page, limit int) ([]InvoiceLine, int, error) {
	p := shared.NewPagination(page, limit, 0)
	return s.repo.List(ctx, supplierID, search, p.PerPage, p.Offset())
}

// Download returns the supplier's full invoice list, most recently
// updated first, for CSV export on the client.
func (s *Service) Download(ctx context.Context, supplierID int64, email string) ([]InvoiceLine, error) {
	if _, err := s.suppliers.Find(ctx, supplierID, email); err != nil {
		if errors.Is(err, suppliers.ErrNotFound) {
			return nil, shared.ErrSupplierNotFound
		}
		return nil, fmt.Errorf("invoices: find supplier: %w", err)
	}
	return s.repo.ListAll(ctx, supplierID)
}

// Get returns one invoice scoped to the supplier.
func (s *Service) Get(ctx context.Context, id, supplierID int64) (*InvoiceLine, error) {
	return s.repo.Get(ctx, id, supplierID)
}

// Update applies a whitelisted field update to an existing invoice.
func (s *Service) Update(ctx context.Context, supplierID int64, req UpdateRequest) (*InvoiceLine, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invoices: invalid update: %w", err)
	}
	line, err := s.repo.Get(ctx, req.ID, supplierID)
	if err != nil {
		return nil, err
	}
	if req.InvoiceNumber != nil {
		line.InvoiceNumber = *req.InvoiceNumber
	}
	if req.OrderNumber != nil {
		line.OrderNumber = *req.OrderNumber
	}
	if req.ArticleCode != nil {
		line.ArticleCode = *req.ArticleCode
	}
	if req.Quantity != nil {
		line.Quantity = req.Quantity.Decimal
	}
	if req.Price != nil {
		line.Price = req.Price.Decimal
	}
	if req.Currency != nil {
		line.Currency = *req.Currency
	}
	if req.Description != nil {
		line.Description = *req.Description
	}
	if req.ExpectedDeliveryDate != nil {
		line.ExpectedDeliveryDate = ParsePortalDate(*req.ExpectedDeliveryDate)
	}
	if req.ProductionLot != nil {
		line.ProductionLot = *req.ProductionLot
	}
	if req.Processed != nil {
		line.Processed = *req.Processed
	}
	if err := s.repo.Update(ctx, *line); err != nil {
		return nil, err
	}
	return line, nil
}

// Delete soft-deletes the supplier's invoice.
func (s *Service) Delete(ctx context.Context, id, supplierID int64) error {
	return s.repo.SoftDelete(ctx, id, supplierID)
}

// Mapping returns the supplier's header mapping; a missing mapping comes
// back as an empty record, matching the portal contract.
func (s *Service) Mapping(ctx context.Context, supplierID int64) (*HeaderMapping, error) {
	m, err := s.repo.GetMapping(ctx, supplierID)
	if errors.Is(err, ErrNotFound) {
		return &HeaderMapping{SupplierID: supplierID}, nil
	}
	return m, err
}

// SaveMapping merges the update into the supplier's mapping through the
// field whitelist and persists the result.
func (s *Service) SaveMapping(ctx context.Context, supplierID int64, updates map[string]string) (*HeaderMapping, error) {
	m, err := s.Mapping(ctx, supplierID)
	if err != nil {
		return nil, err
	}
	if err := m.Apply(updates); err != nil {
		return nil, err
	}
	m.SupplierID = supplierID
	if err := s.repo.SaveMapping(ctx, *m); err != nil {
		return nil, err
	}
	return m, nil
}

var jsonFieldNames = map[string]string{
	"InvoiceNumber":        "invoice_number",
	"InvoiceDate":          "invoice_date",
	"OrderNumber":          "order_number",
	"ArticleCode":          "article_code",
	"Quantity":             "quantity",
	"Price":                "price",
	"Currency":             "currency",
	"Description":          "description",
	"ExpectedDeliveryDate": "expected_delivery_date",
	"SupplierCode":         "supplier_code",
	"ProductionLot":        "production_lot",
	"Processed":            "processed",
	"InsertionDate":        "insertion_date",
}

func fieldJSONName(structField string) string {
	if name, ok := jsonFieldNames[structField]; ok {
		return name
	}
	return structField
}
