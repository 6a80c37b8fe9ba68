package cart

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mossery/storefront-api/internal/catalog"
	"github.com/mossery/storefront-api/internal/common"
	"github.com/mossery/storefront-api/internal/delivery"
	"github.com/mossery/storefront-api/internal/discount"
	"github.com/mossery/storefront-api/internal/pricing"
)

// DeliveryRequest is the destination and method selection for SetDelivery.
type DeliveryRequest struct {
	Country    string
	MethodID   string
	PostalCode string
	Region     string
}

// Service orchestrates one cart mutation per request: load the snapshot,
// rebuild the aggregate, apply the mutation, persist. Session affinity makes
// the aggregate single-writer; cross-session contention lives only in the
// discount usage counter, which the store increments atomically.
type Service struct {
	Snapshots SnapshotStore
	Catalog   catalog.PriceSource
	Discounts *discount.Service
	Delivery  *delivery.Resolver
	Address   delivery.AddressValidator
	Policy    Policy
	Logger    zerolog.Logger

	// OnSnapshotFailure is invoked when a persist fails, for metrics.
	OnSnapshotFailure func()
}

func requireSession(sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return common.NewAppError("VALIDATION_ERROR", "session id is required", http.StatusBadRequest, nil)
	}
	return nil
}

// Get loads the cart for a session, revalidating any attached discount.
func (s *Service) Get(ctx context.Context, sessionID string) (*Aggregate, error) {
	if err := requireSession(sessionID); err != nil {
		return nil, err
	}
	return s.load(ctx, sessionID)
}

// AddItem snapshots the product's current price and adds it to the cart.
func (s *Service) AddItem(ctx context.Context, sessionID, productID string, qty int) (*Aggregate, error) {
	if err := requireSession(sessionID); err != nil {
		return nil, err
	}
	agg, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.Catalog == nil {
		return nil, errors.New("cart service has no price source")
	}
	price, err := s.Catalog.GetItemPrice(ctx, productID)
	if err != nil {
		return nil, err
	}
	item := LineItem{ID: productID, Title: price.Title, UnitPrice: price.UnitPrice}
	if err := agg.AddItem(item, qty); err != nil {
		return nil, err
	}
	s.persist(ctx, sessionID, agg)
	return agg, nil
}

// SetQuantity updates a line's quantity.
func (s *Service) SetQuantity(ctx context.Context, sessionID, itemID string, qty int) (*Aggregate, error) {
	if err := requireSession(sessionID); err != nil {
		return nil, err
	}
	agg, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := agg.SetQuantity(itemID, qty); err != nil {
		return nil, err
	}
	s.persist(ctx, sessionID, agg)
	return agg, nil
}

// RemoveItem removes a line from the cart.
func (s *Service) RemoveItem(ctx context.Context, sessionID, itemID string) (*Aggregate, error) {
	if err := requireSession(sessionID); err != nil {
		return nil, err
	}
	agg, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := agg.RemoveItem(itemID); err != nil {
		return nil, err
	}
	s.persist(ctx, sessionID, agg)
	return agg, nil
}

// AttachDiscount resolves a code against the current subtotal and attaches
// it. The occupied-slot check runs before resolution so a rejected attach
// never consumes usage.
func (s *Service) AttachDiscount(ctx context.Context, sessionID, code string) (*Aggregate, error) {
	if err := requireSession(sessionID); err != nil {
		return nil, err
	}
	agg, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if agg.Discount() != nil {
		return nil, ErrDiscountAlreadyApplied
	}
	if s.Discounts == nil {
		return nil, errors.New("cart service has no discount resolver")
	}
	rule, err := s.Discounts.ValidateAndRate(ctx, code, agg.Totals().SubtotalCents)
	if err != nil {
		return nil, err
	}
	if err := agg.AttachDiscount(rule); err != nil {
		return nil, err
	}
	s.persist(ctx, sessionID, agg)
	return agg, nil
}

// ClearDiscount detaches the current discount, if any.
func (s *Service) ClearDiscount(ctx context.Context, sessionID string) (*Aggregate, error) {
	if err := requireSession(sessionID); err != nil {
		return nil, err
	}
	agg, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	agg.ClearDiscount()
	s.persist(ctx, sessionID, agg)
	return agg, nil
}

// SetDelivery validates the destination, resolves the zone and method, and
// stores the selection with enough pricing inputs for later recomputes.
func (s *Service) SetDelivery(ctx context.Context, sessionID string, req DeliveryRequest) (*Aggregate, error) {
	if err := requireSession(sessionID); err != nil {
		return nil, err
	}
	agg, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.Address.Validate(req.Country, req.PostalCode, req.Region); err != nil {
		return nil, err
	}
	if s.Delivery == nil {
		return nil, errors.New("cart service has no delivery resolver")
	}
	zone, err := s.Delivery.ResolveZone(ctx, req.Country)
	if err != nil {
		return nil, err
	}
	sel, err := delivery.SelectMethod(zone, req.MethodID, s.basisSubtotal(agg))
	if err != nil {
		return nil, err
	}
	// Only the method and its pricing inputs are stored. The selection's fee
	// is a point-in-time value; Recompute re-derives it from these inputs on
	// this and every later mutation, so there is a single derivation path.
	info := DeliveryInfo{
		Country:       zone.Country,
		MethodID:      sel.Method.ID,
		MethodLabel:   sel.Method.Label,
		Currency:      sel.Currency,
		Price:         sel.Method.Price,
		FreeEligible:  sel.Method.FreeEligible,
		FreeThreshold: zone.FreeThreshold,
		PostalCode:    req.PostalCode,
		Region:        req.Region,
	}
	if err := agg.SetDelivery(info); err != nil {
		return nil, err
	}
	s.persist(ctx, sessionID, agg)
	return agg, nil
}

// ClearDelivery drops the delivery selection.
func (s *Service) ClearDelivery(ctx context.Context, sessionID string) (*Aggregate, error) {
	if err := requireSession(sessionID); err != nil {
		return nil, err
	}
	agg, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	agg.ClearDelivery()
	s.persist(ctx, sessionID, agg)
	return agg, nil
}

// Clear empties the cart and removes its snapshot.
func (s *Service) Clear(ctx context.Context, sessionID string) (*Aggregate, error) {
	if err := requireSession(sessionID); err != nil {
		return nil, err
	}
	if s.Snapshots != nil {
		if err := s.Snapshots.Clear(ctx, sessionID); err != nil {
			s.Logger.Warn().Err(err).Str("session_id", sessionID).Msg("cart snapshot clear failed")
		}
	}
	return New(s.Policy), nil
}

func (s *Service) basisSubtotal(agg *Aggregate) pricing.Money {
	if s.Policy.normalized().FreeShippingBasis == delivery.BasisPostDiscount {
		return agg.Totals().PriceAfterDiscountCents
	}
	return agg.Totals().SubtotalCents
}

// load rebuilds the aggregate from its snapshot. A missing or unreadable
// snapshot degrades to an empty cart. An attached discount is revalidated
// against the recomputed subtotal without consuming usage; a code that is no
// longer eligible is dropped.
func (s *Service) load(ctx context.Context, sessionID string) (*Aggregate, error) {
	if s.Snapshots == nil {
		return New(s.Policy), nil
	}
	snap, ok, err := s.Snapshots.Load(ctx, sessionID)
	if err != nil {
		s.Logger.Warn().Err(err).Str("session_id", sessionID).Msg("cart snapshot load failed, starting empty")
		return New(s.Policy), nil
	}
	if !ok {
		return New(s.Policy), nil
	}
	agg := FromSnapshot(snap, s.Policy)
	if rule := agg.Discount(); rule != nil && s.Discounts != nil {
		fresh, err := s.Discounts.Revalidate(ctx, rule.Code, agg.Totals().SubtotalCents)
		switch {
		case err == nil:
			if fresh != *rule {
				agg.ClearDiscount()
				if attachErr := agg.AttachDiscount(fresh); attachErr != nil {
					s.Logger.Warn().Err(attachErr).Str("code", rule.Code).Msg("discount refresh failed")
				}
			}
		case errors.Is(err, discount.ErrNotFound),
			errors.Is(err, discount.ErrExpired),
			errors.Is(err, discount.ErrUsageExceeded),
			errors.Is(err, discount.ErrMinimumSpendUnmet):
			s.Logger.Info().Str("session_id", sessionID).Str("code", rule.Code).
				Msg("dropping stale discount on reload")
			agg.ClearDiscount()
		default:
			// Infrastructure error: keep the attached rule rather than
			// punishing the session for a flaky store.
			s.Logger.Warn().Err(err).Str("code", rule.Code).Msg("discount revalidation failed")
		}
	}
	return agg, nil
}

// persist saves the snapshot best-effort. A failed save is logged and
// counted but never fails the mutation: the in-memory response is already
// correct and the snapshot will be rewritten on the next mutation.
func (s *Service) persist(ctx context.Context, sessionID string, agg *Aggregate) {
	if s.Snapshots == nil {
		return
	}
	if err := s.Snapshots.Save(ctx, sessionID, agg.Snapshot()); err != nil {
		s.Logger.Warn().Err(err).Str("session_id", sessionID).Msg("cart snapshot save failed")
		if s.OnSnapshotFailure != nil {
			s.OnSnapshotFailure()
		}
	}
}
