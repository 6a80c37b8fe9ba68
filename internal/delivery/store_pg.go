package delivery

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

// FindZoneByCountry loads a zone and its methods. Methods come back in sort
// order; selection filters inactive ones.
func (s *PGStore) FindZoneByCountry(ctx context.Context, countryCode string) (Zone, error) {
	if s == nil || s.Pool == nil {
		return Zone{}, errors.New("delivery store not configured")
	}
	var zone Zone
	row := s.Pool.QueryRow(ctx, `
		SELECT country_code, currency, free_threshold
		FROM delivery_zones
		WHERE country_code = $1`, countryCode)
	if err := row.Scan(&zone.Country, &zone.Currency, &zone.FreeThreshold); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Zone{}, ErrZoneNotFound
		}
		return Zone{}, err
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT method_id, label, price, free_eligible, active, sort_order
		FROM shipping_methods
		WHERE country_code = $1
		ORDER BY sort_order`, countryCode)
	if err != nil {
		return Zone{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var m Method
		if err := rows.Scan(&m.ID, &m.Label, &m.Price, &m.FreeEligible, &m.Active, &m.SortOrder); err != nil {
			return Zone{}, err
		}
		zone.Methods = append(zone.Methods, m)
	}
	if err := rows.Err(); err != nil {
		return Zone{}, err
	}
	return zone, nil
}

// UpsertZone creates or updates a zone header. The unique country_code key
// enforces the one-zone-per-country invariant.
func (s *PGStore) UpsertZone(ctx context.Context, zone Zone) error {
	if s == nil || s.Pool == nil {
		return errors.New("delivery store not configured")
	}
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO delivery_zones (country_code, currency, free_threshold)
		VALUES ($1, $2, $3)
		ON CONFLICT (country_code) DO UPDATE SET
			currency = EXCLUDED.currency,
			free_threshold = EXCLUDED.free_threshold,
			updated_at = now()`,
		zone.Country, zone.Currency, zone.FreeThreshold)
	return err
}

// UpsertMethod creates or updates a method within a zone. The (country_code,
// method_id) key keeps identifiers unique within a zone.
func (s *PGStore) UpsertMethod(ctx context.Context, countryCode string, m Method) error {
	if s == nil || s.Pool == nil {
		return errors.New("delivery store not configured")
	}
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO shipping_methods (country_code, method_id, label, price, free_eligible, active, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (country_code, method_id) DO UPDATE SET
			label = EXCLUDED.label,
			price = EXCLUDED.price,
			free_eligible = EXCLUDED.free_eligible,
			active = EXCLUDED.active,
			sort_order = EXCLUDED.sort_order,
			updated_at = now()`,
		countryCode, m.ID, m.Label, m.Price, m.FreeEligible, m.Active, m.SortOrder)
	return err
}

// SetMethodActive toggles a method without rewriting its pricing.
func (s *PGStore) SetMethodActive(ctx context.Context, countryCode, methodID string, active bool) error {
	if s == nil || s.Pool == nil {
		return errors.New("delivery store not configured")
	}
	tag, err := s.Pool.Exec(ctx, `
		UPDATE shipping_methods SET active = $3, updated_at = now()
		WHERE country_code = $1 AND method_id = $2`,
		countryCode, methodID, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrZoneNotFound
	}
	return nil
}

// ListZones returns every configured zone with its methods, for the admin table.
func (s *PGStore) ListZones(ctx context.Context) ([]Zone, error) {
	if s == nil || s.Pool == nil {
		return nil, errors.New("delivery store not configured")
	}
	rows, err := s.Pool.Query(ctx, `SELECT country_code, currency, free_threshold FROM delivery_zones ORDER BY country_code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var zones []Zone
	for rows.Next() {
		var z Zone
		if err := rows.Scan(&z.Country, &z.Currency, &z.FreeThreshold); err != nil {
			return nil, err
		}
		zones = append(zones, z)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range zones {
		full, err := s.FindZoneByCountry(ctx, zones[i].Country)
		if err != nil {
			return nil, err
		}
		zones[i].Methods = full.Methods
	}
	return zones, nil
}
