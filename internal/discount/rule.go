package discount

import (
	"errors"
	"time"

	"github.com/mossery/storefront-api/internal/pricing"
)

var (
	// ErrNotFound is returned when the code does not exist or is unpublished.
	ErrNotFound = errors.New("discount code not found")
	// ErrExpired is returned when the code's expiration timestamp has passed.
	ErrExpired = errors.New("discount code expired")
	// ErrUsageExceeded indicates the code has exhausted its usage quota.
	ErrUsageExceeded = errors.New("discount usage limit reached")
	// ErrMinimumSpendUnmet indicates the cart subtotal did not meet the code requirement.
	ErrMinimumSpendUnmet = errors.New("discount minimum spend not met")
)

// Rule is the percentage-or-fixed shape of a validated code. The rule
// is stored on the cart, never its computed effect: the applied amount is
// re-derived from the current subtotal on every recompute.
type Rule struct {
	Code         string  `json:"code"`
	IsPercentage bool    `json:"isPercentage"`
	Value        float64 `json:"value"`
}

// Apply computes the discount in cents for the given subtotal. Percentage
// rules round half away from zero; fixed rules convert the decimal magnitude.
// The result is never negative.
func (r Rule) Apply(subtotalCents pricing.Money) pricing.Money {
	if r.Code == "" {
		return 0
	}
	var d pricing.Money
	if r.IsPercentage {
		d = pricing.Percent(subtotalCents, r.Value)
	} else {
		d = pricing.ToMinorUnits(r.Value)
	}
	return pricing.ClampNonNegative(d)
}

// Record captures the stored state of a discount code, including the usage
// constraints the resolution step validates against.
type Record struct {
	Code         string
	Published    bool
	IsPercentage bool
	Value        float64
	MinSubtotal  pricing.Money
	ExpiresAt    *time.Time
	UsageCount   int32
	MaxUsage     *int32
}

// Validate ensures the record can be applied at the provided instant and
// cart subtotal.
func (rec Record) Validate(now time.Time, subtotalCents pricing.Money) error {
	if !rec.Published {
		return ErrNotFound
	}
	if rec.ExpiresAt != nil && now.After(*rec.ExpiresAt) {
		return ErrExpired
	}
	if rec.MaxUsage != nil && *rec.MaxUsage >= 0 && rec.UsageCount >= *rec.MaxUsage {
		return ErrUsageExceeded
	}
	if rec.MinSubtotal > 0 && subtotalCents < rec.MinSubtotal {
		return ErrMinimumSpendUnmet
	}
	return nil
}

// Rule converts the stored record into the attachable rule.
func (rec Record) Rule() Rule {
	return Rule{Code: rec.Code, IsPercentage: rec.IsPercentage, Value: rec.Value}
}
