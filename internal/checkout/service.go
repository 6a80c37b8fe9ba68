package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mossery/storefront-api/internal/cart"
	"github.com/mossery/storefront-api/internal/events"
	"github.com/mossery/storefront-api/internal/order"
)

var (
	// ErrCartEmpty rejects checkout of a cart with no line items.
	ErrCartEmpty = errors.New("cart is empty")
	// ErrDeliveryRequired rejects checkout before a delivery selection exists.
	ErrDeliveryRequired = errors.New("delivery selection required")
)

// Request carries the checkout inputs beyond the cart itself.
type Request struct {
	SessionID string
	Email     string
}

// Service converts a priced cart into an immutable order. The order copies
// the cart's derived totals verbatim; checkout never reprices.
type Service struct {
	Carts  *cart.Service
	Orders order.Store
	Bus    *events.Bus
	Logger zerolog.Logger
	Now    func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// PlaceOrder validates the cart, persists the order with its frozen totals,
// emits order.created and clears the cart. The event and the cart clear are
// best-effort once the order row is committed.
func (s *Service) PlaceOrder(ctx context.Context, req Request) (order.Order, error) {
	if s == nil || s.Carts == nil || s.Orders == nil {
		return order.Order{}, errors.New("checkout service not configured")
	}
	agg, err := s.Carts.Get(ctx, req.SessionID)
	if err != nil {
		return order.Order{}, err
	}
	if agg.IsEmpty() {
		return order.Order{}, ErrCartEmpty
	}
	info := agg.Delivery()
	if info == nil {
		return order.Order{}, ErrDeliveryRequired
	}

	totals := agg.Totals()
	o := order.Order{
		ID:                      uuid.NewString(),
		SessionID:               req.SessionID,
		Email:                   req.Email,
		Status:                  order.StatusPlaced,
		Currency:                info.Currency,
		Country:                 info.Country,
		MethodID:                info.MethodID,
		PostalCode:              info.PostalCode,
		Region:                  info.Region,
		SubtotalCents:           totals.SubtotalCents,
		DiscountCents:           totals.DiscountCents,
		PriceAfterDiscountCents: totals.PriceAfterDiscountCents,
		DeliveryFeeCents:        totals.DeliveryFeeCents,
		TotalCents:              totals.TotalCents,
		CreatedAt:               s.now(),
	}
	if rule := agg.Discount(); rule != nil {
		o.DiscountCode = rule.Code
	}
	for _, li := range agg.Items() {
		o.Items = append(o.Items, order.Item{
			ProductID: li.ID,
			Title:     li.Title,
			UnitPrice: li.UnitPrice,
			Quantity:  li.Quantity,
		})
	}

	if err := s.Orders.Insert(ctx, o); err != nil {
		return order.Order{}, err
	}

	if s.Bus != nil {
		evt, err := events.New(events.TopicOrderCreated, o.ID, o)
		if err == nil {
			err = s.Bus.Publish(ctx, evt)
		}
		if err != nil {
			s.Logger.Warn().Err(err).Str("order_id", o.ID).Msg("order.created publish failed")
		}
	}

	if _, err := s.Carts.Clear(ctx, req.SessionID); err != nil {
		s.Logger.Warn().Err(err).Str("session_id", req.SessionID).Msg("cart clear after checkout failed")
	}
	return o, nil
}
