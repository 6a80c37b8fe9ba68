package catalog

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore implements Store against Postgres.
type PGStore struct {
	Pool *pgxpool.Pool
}

// GetProduct loads a product by id.
func (s *PGStore) GetProduct(ctx context.Context, id string) (Product, error) {
	if s == nil || s.Pool == nil {
		return Product{}, errors.New("catalog store not configured")
	}
	row := s.Pool.QueryRow(ctx, `
		SELECT id, title, description, price, currency, published
		FROM products
		WHERE id = $1`, id)
	var p Product
	if err := row.Scan(&p.ID, &p.Title, &p.Description, &p.Price, &p.Currency, &p.Published); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrProductNotFound
		}
		return Product{}, err
	}
	return p, nil
}

// ListPublished returns every published product.
func (s *PGStore) ListPublished(ctx context.Context) ([]Product, error) {
	if s == nil || s.Pool == nil {
		return nil, errors.New("catalog store not configured")
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT id, title, description, price, currency, published
		FROM products
		WHERE published
		ORDER BY title`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Title, &p.Description, &p.Price, &p.Currency, &p.Published); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
