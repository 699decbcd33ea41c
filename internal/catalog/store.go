package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of pgxpool.Pool used by PGStore.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PGStore reads products from Postgres.
type PGStore struct {
	DB Querier
}

const productColumns = `service_id, name, description, price_cents, type, provider_product_id, provider_price_id`

// ProductByServiceID returns the active product registered under serviceID.
func (s PGStore) ProductByServiceID(ctx context.Context, serviceID string) (Product, error) {
	serviceID = strings.TrimSpace(serviceID)
	if serviceID == "" {
		return Product{}, ErrNotFound
	}
	rows, err := s.DB.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE service_id = $1 AND active LIMIT 1`, serviceID)
	if err != nil {
		return Product{}, fmt.Errorf("query product: %w", err)
	}
	product, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[Product])
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, fmt.Errorf("scan product: %w", err)
	}
	return product, nil
}

// ListProducts returns all active products ordered by price.
func (s PGStore) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := s.DB.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE active ORDER BY price_cents, service_id`)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	products, err := pgx.CollectRows(rows, pgx.RowToStructByName[Product])
	if err != nil {
		return nil, fmt.Errorf("scan products: %w", err)
	}
	return products, nil
}

// Deactivate hides a product from checkout without deleting its history.
func (s PGStore) Deactivate(ctx context.Context, serviceID string) error {
	tag, err := s.DB.Exec(ctx, `UPDATE products SET active = FALSE WHERE service_id = $1`, strings.TrimSpace(serviceID))
	if err != nil {
		return fmt.Errorf("deactivate product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
