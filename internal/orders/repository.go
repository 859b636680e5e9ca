package orders

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository is the purchase-order read store consumed by the service.
type Repository interface {
	ListBySupplierCodes(ctx context.Context, codes []string, filters ListFilters) ([]PurchaseOrderLine, error)
	CountAndFindByOrderNumber(ctx context.Context, orderNumber string, codes []string, limit, offset int) ([]PurchaseOrderLine, int, error)
}

// PGRepository provides PostgreSQL backed purchase-order reads.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const lineColumns = `id, order_number, article_code, supplier_code, ordered_quantity, unit_price,
	COALESCE(currency, ''), COALESCE(production_lot, ''), requested_date, arrival_date,
	quantity_arrived, COALESCE(status, 'open'), created_at, updated_at`

// ListBySupplierCodes returns every non-deleted line belonging to the
// supplier's codes, optionally narrowed by search and date range. The
// full set is returned unpaginated so the global OTIF rate never depends
// on the requested page.
func (r *PGRepository) ListBySupplierCodes(ctx context.Context, codes []string, filters ListFilters) ([]PurchaseOrderLine, error) {
	sql := `SELECT ` + lineColumns + ` FROM purchase_orders WHERE supplier_code = ANY($1) AND is_deleted = false`
	args := []any{codes}
	argNum := 2

	if filters.Search != "" {
		sql += fmt.Sprintf(` AND (order_number ILIKE $%d OR article_code ILIKE $%d)`, argNum, argNum)
		args = append(args, "%"+filters.Search+"%")
		argNum++
	}
	if filters.DateFrom != nil {
		sql += fmt.Sprintf(` AND requested_date >= $%d`, argNum)
		args = append(args, *filters.DateFrom)
		argNum++
	}
	if filters.DateTo != nil {
		sql += fmt.Sprintf(` AND requested_date <= $%d`, argNum)
		args = append(args, *filters.DateTo)
		argNum++
	}
	sql += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []PurchaseOrderLine
	for rows.Next() {
		line, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// CountAndFindByOrderNumber returns one order's lines plus the ungrouped
// total for pagination.
func (r *PGRepository) CountAndFindByOrderNumber(ctx context.Context, orderNumber string, codes []string, limit, offset int) ([]PurchaseOrderLine, int, error) {
	var total int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM purchase_orders WHERE order_number = $1 AND supplier_code = ANY($2) AND is_deleted = false`,
		orderNumber, codes).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+lineColumns+` FROM purchase_orders
		WHERE order_number = $1 AND supplier_code = ANY($2) AND is_deleted = false
		ORDER BY created_at DESC LIMIT $3 OFFSET $4`,
		orderNumber, codes, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var lines []PurchaseOrderLine
	for rows.Next() {
		line, err := scanLine(rows)
		if err != nil {
			return nil, 0, err
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return lines, total, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLine(row rowScanner) (PurchaseOrderLine, error) {
	var (
		l             PurchaseOrderLine
		orderedQty    pgtype.Numeric
		unitPrice     pgtype.Numeric
		arrivedQty    pgtype.Numeric
		requestedDate pgtype.Timestamptz
		arrivalDate   pgtype.Timestamptz
	)
	err := row.Scan(&l.ID, &l.OrderNumber, &l.ArticleCode, &l.SupplierCode, &orderedQty, &unitPrice,
		&l.Currency, &l.ProductionLot, &requestedDate, &arrivalDate, &arrivedQty, &l.Status,
		&l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return PurchaseOrderLine{}, err
	}
	l.OrderedQuantity = numericToDecimal(orderedQty)
	l.UnitPrice = numericToDecimal(unitPrice)
	l.QuantityArrived = numericToDecimal(arrivedQty)
	if requestedDate.Valid {
		t := requestedDate.Time
		l.RequestedDate = &t
	}
	if arrivalDate.Valid {
		t := arrivalDate.Time
		l.ArrivalDate = &t
	}
	return l, nil
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}
