package order

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

// Insert writes the order and its items in one transaction.
func (s *PGStore) Insert(ctx context.Context, o Order) error {
	if s == nil || s.Pool == nil {
		return errors.New("order store not configured")
	}
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (
			id, session_id, email, status, currency, discount_code,
			country_code, method_id, postal_code, region,
			subtotal_cents, discount_cents, price_after_discount_cents,
			delivery_fee_cents, total_cents, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		o.ID, o.SessionID, o.Email, o.Status, o.Currency, o.DiscountCode,
		o.Country, o.MethodID, o.PostalCode, o.Region,
		o.SubtotalCents, o.DiscountCents, o.PriceAfterDiscountCents,
		o.DeliveryFeeCents, o.TotalCents, o.CreatedAt)
	if err != nil {
		return err
	}
	for _, item := range o.Items {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items (order_id, product_id, title, unit_price, quantity)
			VALUES ($1, $2, $3, $4, $5)`,
			o.ID, item.ProductID, item.Title, item.UnitPrice, item.Quantity)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// Get loads an order with its items.
func (s *PGStore) Get(ctx context.Context, id string) (Order, error) {
	if s == nil || s.Pool == nil {
		return Order{}, errors.New("order store not configured")
	}
	row := s.Pool.QueryRow(ctx, `
		SELECT id, session_id, email, status, currency, discount_code,
			country_code, method_id, postal_code, region,
			subtotal_cents, discount_cents, price_after_discount_cents,
			delivery_fee_cents, total_cents, created_at
		FROM orders
		WHERE id = $1`, id)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, err
	}
	items, err := s.loadItems(ctx, o.ID)
	if err != nil {
		return Order{}, err
	}
	o.Items = items
	return o, nil
}

// ListBySession returns the session's orders, newest first, without items.
func (s *PGStore) ListBySession(ctx context.Context, sessionID string) ([]Order, error) {
	if s == nil || s.Pool == nil {
		return nil, errors.New("order store not configured")
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT id, session_id, email, status, currency, discount_code,
			country_code, method_id, postal_code, region,
			subtotal_cents, discount_cents, price_after_discount_cents,
			delivery_fee_cents, total_cents, created_at
		FROM orders
		WHERE session_id = $1
		ORDER BY created_at DESC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *PGStore) loadItems(ctx context.Context, orderID string) ([]Item, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT product_id, title, unit_price, quantity
		FROM order_items
		WHERE order_id = $1`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Item
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ProductID, &item.Title, &item.UnitPrice, &item.Quantity); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.SessionID, &o.Email, &o.Status, &o.Currency, &o.DiscountCode,
		&o.Country, &o.MethodID, &o.PostalCode, &o.Region,
		&o.SubtotalCents, &o.DiscountCents, &o.PriceAfterDiscountCents,
		&o.DeliveryFeeCents, &o.TotalCents, &o.CreatedAt)
	return o, err
}
