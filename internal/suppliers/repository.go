package suppliers

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed supplier lookups.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const supplierColumns = `id, username, email, supplier_code, rag_soc, account_verified, is_deleted, created_at, updated_at`

// Find returns the supplier matching both id and email. Deleted accounts
// are not returned.
func (r *Repository) Find(ctx context.Context, id int64, email string) (*Supplier, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+supplierColumns+` FROM suppliers WHERE id = $1 AND LOWER(email) = $2 AND is_deleted = false`,
		id, strings.ToLower(email))
	return scanSupplier(row)
}

// Get returns the supplier by id. Deleted accounts are not returned.
func (r *Repository) Get(ctx context.Context, id int64) (*Supplier, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+supplierColumns+` FROM suppliers WHERE id = $1 AND is_deleted = false`,
		id)
	return scanSupplier(row)
}

// FindByAccessToken resolves a supplier from an issued access token.
func (r *Repository) FindByAccessToken(ctx context.Context, token string) (*Supplier, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+supplierColumns+` FROM suppliers WHERE access_token = $1 AND is_deleted = false`,
		token)
	return scanSupplier(row)
}

// ListActive returns every non-deleted supplier. Used by the OTIF warmup
// job to enumerate cache scopes.
func (r *Repository) ListActive(ctx context.Context) ([]Supplier, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+supplierColumns+` FROM suppliers WHERE is_deleted = false ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Supplier
	for rows.Next() {
		var s Supplier
		if err := rows.Scan(&s.ID, &s.Username, &s.Email, &s.SupplierCode, &s.BusinessName,
			&s.AccountVerified, &s.IsDeleted, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanSupplier(row pgx.Row) (*Supplier, error) {
	var s Supplier
	err := row.Scan(&s.ID, &s.Username, &s.Email, &s.SupplierCode, &s.BusinessName,
		&s.AccountVerified, &s.IsDeleted, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}
