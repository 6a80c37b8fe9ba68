package discount

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mossery/storefront-api/internal/pricing"
)

// Store defines the persistence operations the resolution step requires.
type Store interface {
	// FindByCode returns the record for a code, or ErrNotFound.
	FindByCode(ctx context.Context, code string) (Record, error)
	// IncrementUsage bumps the usage counter for a code.
	IncrementUsage(ctx context.Context, code string) error
}

// Service resolves discount codes into rules.
type Service struct {
	Store Store
	Now   func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// ValidateAndRate validates eligibility for the code at the given subtotal
// and, on success, consumes one usage and returns the rule. A successful call
// increments the code's usage counter exactly once; callers must not invoke
// this again for a rule that is already attached.
func (s *Service) ValidateAndRate(ctx context.Context, code string, subtotalCents pricing.Money) (Rule, error) {
	rec, err := s.lookup(ctx, code, subtotalCents)
	if err != nil {
		return Rule{}, err
	}
	if err := s.Store.IncrementUsage(ctx, rec.Code); err != nil {
		return Rule{}, err
	}
	return rec.Rule(), nil
}

// Revalidate re-checks a previously attached code without consuming usage.
// Used when a persisted cart snapshot is reloaded: a code that expired
// between sessions is discovered here and dropped by the caller.
func (s *Service) Revalidate(ctx context.Context, code string, subtotalCents pricing.Money) (Rule, error) {
	rec, err := s.lookup(ctx, code, subtotalCents)
	if err != nil {
		return Rule{}, err
	}
	return rec.Rule(), nil
}

func (s *Service) lookup(ctx context.Context, code string, subtotalCents pricing.Money) (Record, error) {
	if s == nil || s.Store == nil {
		return Record{}, errors.New("discount service not configured")
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return Record{}, ErrNotFound
	}
	rec, err := s.Store.FindByCode(ctx, code)
	if err != nil {
		return Record{}, err
	}
	if err := rec.Validate(s.now(), subtotalCents); err != nil {
		return Record{}, err
	}
	return rec, nil
}
