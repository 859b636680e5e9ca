package invoices

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository is the invoice persistence contract consumed by the service.
type Repository interface {
	FindOne(ctx context.Context, invoiceNumber, orderNumber string, supplierID int64) (*InvoiceLine, error)
	Insert(ctx context.Context, line InvoiceLine) (int64, error)
	Update(ctx context.Context, line InvoiceLine) error
	List(ctx context.Context, supplierID int64, search string, limit, offset int) ([]InvoiceLine, int, error)
	ListAll(ctx context.Context, supplierID int64) ([]InvoiceLine, error)
	Get(ctx context.Context, id, supplierID int64) (*InvoiceLine, error)
	SoftDelete(ctx context.Context, id, supplierID int64) error
	GetMapping(ctx context.Context, supplierID int64) (*HeaderMapping, error)
	SaveMapping(ctx context.Context, mapping HeaderMapping) error
}

// PGRepository provides PostgreSQL backed invoice persistence.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const invoiceColumns = `id, invoice_number, invoice_date, order_number, article_code, quantity, price,
	COALESCE(currency, ''), COALESCE(description, ''), expected_delivery_date, supplier_code,
	COALESCE(production_lot, ''), COALESCE(processed, ''), insertion_date, supplier_id, is_deleted,
	created_at, updated_at`

// FindOne looks up the row keyed by (invoice_number, order_number,
// supplier). Soft-deleted rows are invisible to the upsert lookup.
func (r *PGRepository) FindOne(ctx context.Context, invoiceNumber, orderNumber string, supplierID int64) (*InvoiceLine, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+invoiceColumns+` FROM invoices_received
		WHERE invoice_number = $1 AND order_number = $2 AND supplier_id = $3 AND is_deleted = false`,
		invoiceNumber, orderNumber, supplierID)
	return scanInvoice(row)
}

// Insert stores a new invoice line.
func (r *PGRepository) Insert(ctx context.Context, line InvoiceLine) (int64, error) {
	quantity, err := decimalToNumeric(line.Quantity)
	if err != nil {
		return 0, err
	}
	price, err := decimalToNumeric(line.Price)
	if err != nil {
		return 0, err
	}

	var id int64
	err = r.pool.QueryRow(ctx,
		`INSERT INTO invoices_received (invoice_number, invoice_date, order_number, article_code,
			quantity, price, currency, description, expected_delivery_date, supplier_code,
			production_lot, processed, insertion_date, supplier_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id`,
		line.InvoiceNumber, nullableTime(line.InvoiceDate), line.OrderNumber, line.ArticleCode,
		quantity, price, line.Currency, line.Description,
		nullableTime(line.ExpectedDeliveryDate), line.SupplierCode, line.ProductionLot, line.Processed,
		nullableTime(line.InsertionDate), line.SupplierID).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			// Concurrent upload won the insert race; surface it as a
			// retryable write failure for the best-effort phase.
			return 0, fmt.Errorf("invoices: duplicate key for invoice %s order %s: %w",
				line.InvoiceNumber, line.OrderNumber, err)
		}
		return 0, err
	}
	return id, nil
}

// Update overwrites an existing line's fields in place.
func (r *PGRepository) Update(ctx context.Context, line InvoiceLine) error {
	quantity, err := decimalToNumeric(line.Quantity)
	if err != nil {
		return err
	}
	price, err := decimalToNumeric(line.Price)
	if err != nil {
		return err
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE invoices_received SET invoice_date = $1, article_code = $2, quantity = $3, price = $4,
			currency = $5, description = $6, expected_delivery_date = $7, supplier_code = $8,
			production_lot = $9, processed = $10, insertion_date = $11, updated_at = NOW()
		WHERE id = $12 AND is_deleted = false`,
		nullableTime(line.InvoiceDate), line.ArticleCode, quantity,
		price, line.Currency, line.Description,
		nullableTime(line.ExpectedDeliveryDate), line.SupplierCode, line.ProductionLot,
		line.Processed, nullableTime(line.InsertionDate), line.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns one page of a supplier's invoices, newest first, with the
// unpaginated total. Search covers invoice and order numbers.
func (r *PGRepository) List(ctx context.Context, supplierID int64, search string, limit, offset int) ([]InvoiceLine, int, error) {
	countSQL := `SELECT COUNT(*) FROM invoices_received WHERE supplier_id = $1 AND is_deleted = false`
	countArgs := []any{supplierID}
	if search != "" {
		countSQL += ` AND (invoice_number ILIKE $2 OR order_number ILIKE $2)`
		countArgs = append(countArgs, "%"+search+"%")
	}

	var total int
	if err := r.pool.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	dataSQL := `SELECT ` + invoiceColumns + ` FROM invoices_received WHERE supplier_id = $1 AND is_deleted = false`
	args := []any{supplierID}
	argNum := 2
	if search != "" {
		dataSQL += fmt.Sprintf(` AND (invoice_number ILIKE $%d OR order_number ILIKE $%d)`, argNum, argNum)
		args = append(args, "%"+search+"%")
		argNum++
	}
	dataSQL += fmt.Sprintf(` ORDER BY insertion_date DESC NULLS LAST, id DESC LIMIT $%d OFFSET $%d`, argNum, argNum+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []InvoiceLine
	for rows.Next() {
		line, err := scanInvoiceRow(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, line)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// ListAll returns every live invoice of the supplier, most recently
// updated first. Backs the unpaginated export.
func (r *PGRepository) ListAll(ctx context.Context, supplierID int64) ([]InvoiceLine, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+invoiceColumns+` FROM invoices_received
		WHERE supplier_id = $1 AND is_deleted = false
		ORDER BY updated_at DESC, id DESC`,
		supplierID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []InvoiceLine
	for rows.Next() {
		line, err := scanInvoiceRow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Get returns a supplier's invoice by id.
func (r *PGRepository) Get(ctx context.Context, id, supplierID int64) (*InvoiceLine, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+invoiceColumns+` FROM invoices_received
		WHERE id = $1 AND supplier_id = $2 AND is_deleted = false`,
		id, supplierID)
	return scanInvoice(row)
}

// SoftDelete marks an invoice deleted without removing the row.
func (r *PGRepository) SoftDelete(ctx context.Context, id, supplierID int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE invoices_received SET is_deleted = true, updated_at = NOW()
		WHERE id = $1 AND supplier_id = $2 AND is_deleted = false`,
		id, supplierID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetMapping returns the supplier's header mapping.
func (r *PGRepository) GetMapping(ctx context.Context, supplierID int64) (*HeaderMapping, error) {
	var m HeaderMapping
	err := r.pool.QueryRow(ctx,
		`SELECT id, supplier_id, COALESCE(invoice_number, ''), COALESCE(invoice_date, ''),
			COALESCE(order_number, ''), COALESCE(article_code, ''), COALESCE(quantity, ''),
			COALESCE(price, ''), COALESCE(currency, ''), COALESCE(description, ''),
			COALESCE(expected_delivery_date, ''), COALESCE(supplier_code, ''),
			COALESCE(production_lot, ''), COALESCE(processed, ''), COALESCE(insertion_date, ''),
			created_at, updated_at
		FROM supplier_invoice_mappings WHERE supplier_id = $1`,
		supplierID).Scan(&m.ID, &m.SupplierID, &m.InvoiceNumber, &m.InvoiceDate, &m.OrderNumber,
		&m.ArticleCode, &m.Quantity, &m.Price, &m.Currency, &m.Description, &m.ExpectedDeliveryDate,
		&m.SupplierCode, &m.ProductionLot, &m.Processed, &m.InsertionDate, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// SaveMapping upserts the supplier's header mapping.
func (r *PGRepository) SaveMapping(ctx context.Context, m HeaderMapping) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO supplier_invoice_mappings (supplier_id, invoice_number, invoice_date, order_number,
			article_code, quantity, price, currency, description, expected_delivery_date,
			supplier_code, production_lot, processed, insertion_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (supplier_id) DO UPDATE SET
			invoice_number = EXCLUDED.invoice_number,
			invoice_date = EXCLUDED.invoice_date,
			order_number = EXCLUDED.order_number,
			article_code = EXCLUDED.article_code,
			quantity = EXCLUDED.quantity,
			price = EXCLUDED.price,
			currency = EXCLUDED.currency,
			description = EXCLUDED.description,
			expected_delivery_date = EXCLUDED.expected_delivery_date,
			supplier_code = EXCLUDED.supplier_code,
			production_lot = EXCLUDED.production_lot,
			processed = EXCLUDED.processed,
			insertion_date = EXCLUDED.insertion_date,
			updated_at = NOW()`,
		m.SupplierID, m.InvoiceNumber, m.InvoiceDate, m.OrderNumber, m.ArticleCode, m.Quantity,
		m.Price, m.Currency, m.Description, m.ExpectedDeliveryDate, m.SupplierCode, m.ProductionLot,
		m.Processed, m.InsertionDate)
	return err
}

func scanInvoice(row pgx.Row) (*InvoiceLine, error) {
	line, err := scanInvoiceRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &line, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvoiceRow(row rowScanner) (InvoiceLine, error) {
	var (
		l            InvoiceLine
		invoiceDate  pgtype.Timestamptz
		expectedDate pgtype.Timestamptz
		insertedDate pgtype.Timestamptz
		quantity     pgtype.Numeric
		price        pgtype.Numeric
	)
	err := row.Scan(&l.ID, &l.InvoiceNumber, &invoiceDate, &l.OrderNumber, &l.ArticleCode,
		&quantity, &price, &l.Currency, &l.Description, &expectedDate, &l.SupplierCode,
		&l.ProductionLot, &l.Processed, &insertedDate, &l.SupplierID, &l.IsDeleted,
		&l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return InvoiceLine{}, err
	}
	l.Quantity = numericToDecimal(quantity)
	l.Price = numericToDecimal(price)
	if invoiceDate.Valid {
		t := invoiceDate.Time
		l.InvoiceDate = &t
	}
	if expectedDate.Valid {
		t := expectedDate.Time
		l.ExpectedDeliveryDate = &t
	}
	if insertedDate.Valid {
		t := insertedDate.Time
		l.InsertionDate = &t
	}
	return l, nil
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}

func decimalToNumeric(d decimal.Decimal) (pgtype.Numeric, error) {
	var n pgtype.Numeric
	if err := n.Scan(d.String()); err != nil {
		return pgtype.Numeric{}, fmt.Errorf("invoices: encode numeric %s: %w", d, err)
	}
	return n, nil
}

func nullableTime(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}
