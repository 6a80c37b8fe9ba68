package discount

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mossery/storefront-api/internal/pricing"
)

// PGStore implements Store against Postgres.
type PGStore struct {
	Pool *pgxpool.Pool
}

// FindByCode loads a discount record by its code.
func (s *PGStore) FindByCode(ctx context.Context, code string) (Record, error) {
	if s == nil || s.Pool == nil {
		return Record{}, errors.New("discount store not configured")
	}
	row := s.Pool.QueryRow(ctx, `
		SELECT code, published, is_percentage, value, min_subtotal_cents, expires_at, usage_count, max_usage
		FROM discount_codes
		WHERE code = $1`, code)
	var (
		rec       Record
		expiresAt *time.Time
		maxUsage  *int32
	)
	err := row.Scan(&rec.Code, &rec.Published, &rec.IsPercentage, &rec.Value, &rec.MinSubtotal, &expiresAt, &rec.UsageCount, &maxUsage)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	rec.ExpiresAt = expiresAt
	rec.MaxUsage = maxUsage
	return rec, nil
}

// IncrementUsage bumps the usage counter for a code.
func (s *PGStore) IncrementUsage(ctx context.Context, code string) error {
	if s == nil || s.Pool == nil {
		return errors.New("discount store not configured")
	}
	tag, err := s.Pool.Exec(ctx, `UPDATE discount_codes SET usage_count = usage_count + 1, updated_at = now() WHERE code = $1`, code)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Upsert creates or replaces an admin-managed discount code.
func (s *PGStore) Upsert(ctx context.Context, rec Record) error {
	if s == nil || s.Pool == nil {
		return errors.New("discount store not configured")
	}
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO discount_codes (code, published, is_percentage, value, min_subtotal_cents, expires_at, max_usage)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (code) DO UPDATE SET
			published = EXCLUDED.published,
			is_percentage = EXCLUDED.is_percentage,
			value = EXCLUDED.value,
			min_subtotal_cents = EXCLUDED.min_subtotal_cents,
			expires_at = EXCLUDED.expires_at,
			max_usage = EXCLUDED.max_usage,
			updated_at = now()`,
		rec.Code, rec.Published, rec.IsPercentage, rec.Value, rec.MinSubtotal, rec.ExpiresAt, rec.MaxUsage)
	return err
}

// SetPublished toggles code visibility without touching the rule itself.
func (s *PGStore) SetPublished(ctx context.Context, code string, published bool) error {
	if s == nil || s.Pool == nil {
		return errors.New("discount store not configured")
	}
	tag, err := s.Pool.Exec(ctx, `UPDATE discount_codes SET published = $2, updated_at = now() WHERE code = $1`, code, published)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns all codes for the admin table.
func (s *PGStore) List(ctx context.Context) ([]Record, error) {
	if s == nil || s.Pool == nil {
		return nil, errors.New("discount store not configured")
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT code, published, is_percentage, value, min_subtotal_cents, expires_at, usage_count, max_usage
		FROM discount_codes
		ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		var (
			rec       Record
			expiresAt *time.Time
			maxUsage  *int32
			minSpend  pricing.Money
		)
		if err := rows.Scan(&rec.Code, &rec.Published, &rec.IsPercentage, &rec.Value, &minSpend, &expiresAt, &rec.UsageCount, &maxUsage); err != nil {
			return nil, err
		}
		rec.MinSubtotal = minSpend
		rec.ExpiresAt = expiresAt
		rec.MaxUsage = maxUsage
		out = append(out, rec)
	}
	return out, rows.Err()
}
