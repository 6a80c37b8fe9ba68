package delivery

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/mossery/storefront-api/internal/pricing"
)

var (
	// ErrZoneNotFound is returned when no zone is configured for a country.
	ErrZoneNotFound = errors.New("delivery zone not found")
	// ErrNoMethodsAvailable is returned when a zone has zero active methods.
	ErrNoMethodsAvailable = errors.New("no shipping methods available")
)

// Method is a named, priced delivery option within a zone. Method identifiers
// are unique within their zone; inactive methods are excluded from selection.
type Method struct {
	ID           string  `json:"id"`
	Label        string  `json:"label"`
	Price        float64 `json:"price"`
	FreeEligible bool    `json:"freeEligible"`
	Active       bool    `json:"active"`
	SortOrder    int     `json:"sortOrder"`
}

// Zone is the country-scoped shipping configuration. At most one zone exists
// per country code.
type Zone struct {
	Country       string   `json:"countryCode"`
	Currency      string   `json:"currency"`
	FreeThreshold float64  `json:"freeThreshold"`
	Methods       []Method `json:"methods"`
}

// Basis selects which subtotal the free-shipping threshold compares against.
// The observed storefront behavior uses the pre-discount goods value; the
// post-discount payable amount is an equally defensible business policy, so
// it is configuration rather than code.
type Basis string

const (
	// BasisPreDiscount compares the threshold against the goods value.
	BasisPreDiscount Basis = "pre_discount"
	// BasisPostDiscount compares the threshold against the discounted amount.
	BasisPostDiscount Basis = "post_discount"
)

// ParseBasis normalises a configured basis string, defaulting to pre-discount.
func ParseBasis(value string) Basis {
	if strings.EqualFold(strings.TrimSpace(value), string(BasisPostDiscount)) {
		return BasisPostDiscount
	}
	return BasisPreDiscount
}

// Selection is the outcome of resolving a shipping method for a cart.
type Selection struct {
	Method   Method
	FeeCents pricing.Money
	Currency string
	Country  string
}

// Store is the delivery configuration boundary.
type Store interface {
	FindZoneByCountry(ctx context.Context, countryCode string) (Zone, error)
}

// Resolver maps destinations to zones and validates method selection.
type Resolver struct {
	Store Store
}

// ResolveZone returns the zone for a destination country.
func (r *Resolver) ResolveZone(ctx context.Context, countryCode string) (Zone, error) {
	if r == nil || r.Store == nil {
		return Zone{}, errors.New("delivery resolver not configured")
	}
	countryCode = strings.ToUpper(strings.TrimSpace(countryCode))
	if countryCode == "" {
		return Zone{}, ErrZoneNotFound
	}
	return r.Store.FindZoneByCountry(ctx, countryCode)
}

// ActiveMethods returns the zone's active methods ordered by sort order.
func (z Zone) ActiveMethods() []Method {
	active := make([]Method, 0, len(z.Methods))
	for _, m := range z.Methods {
		if m.Active {
			active = append(active, m)
		}
	}
	sort.SliceStable(active, func(i, j int) bool { return active[i].SortOrder < active[j].SortOrder })
	return active
}

// SelectMethod validates the requested method against the zone and resolves
// the fee. An unknown or inactive requested id falls back to the first active
// method by sort order. The fee is zero when the method is free-eligible and
// basisSubtotalCents meets the zone's free threshold.
func SelectMethod(zone Zone, requestedID string, basisSubtotalCents pricing.Money) (Selection, error) {
	active := zone.ActiveMethods()
	if len(active) == 0 {
		return Selection{}, ErrNoMethodsAvailable
	}
	method := active[0]
	if requestedID != "" {
		for _, m := range active {
			if m.ID == requestedID {
				method = m
				break
			}
		}
	}
	return Selection{
		Method:   method,
		FeeCents: ResolveFee(method, zone.FreeThreshold, basisSubtotalCents),
		Currency: zone.Currency,
		Country:  zone.Country,
	}, nil
}

// ResolveFee computes the fee for a method given the free threshold and the
// basis subtotal. A zone with a zero threshold ships free-eligible methods
// free on any non-empty basis subtotal.
func ResolveFee(method Method, freeThreshold float64, basisSubtotalCents pricing.Money) pricing.Money {
	if method.FreeEligible && basisSubtotalCents >= pricing.ToMinorUnits(freeThreshold) {
		return 0
	}
	return pricing.ToMinorUnits(method.Price)
}
