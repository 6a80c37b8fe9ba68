package checkout_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/mossery/storefront-api/internal/cart"
	"github.com/mossery/storefront-api/internal/catalog"
	"github.com/mossery/storefront-api/internal/checkout"
	"github.com/mossery/storefront-api/internal/common"
	"github.com/mossery/storefront-api/internal/delivery"
	"github.com/mossery/storefront-api/internal/discount"
	"github.com/mossery/storefront-api/internal/events"
	"github.com/mossery/storefront-api/internal/order"
)

type stubPrices struct{}

func (stubPrices) GetItemPrice(_ context.Context, itemID string) (catalog.Price, error) {
	switch itemID {
	case "p1":
		return catalog.Price{UnitPrice: 25.50, Currency: "AUD", Title: "Scarf"}, nil
	case "p2":
		return catalog.Price{UnitPrice: 24.50, Currency: "AUD", Title: "Beanie"}, nil
	}
	return catalog.Price{}, catalog.ErrProductNotFound
}

type stubDiscountStore struct {
	increments int
}

func (s *stubDiscountStore) FindByCode(_ context.Context, code string) (discount.Record, error) {
	if code != "SAVE10" {
		return discount.Record{}, discount.ErrNotFound
	}
	return discount.Record{Code: "SAVE10", Published: true, IsPercentage: true, Value: 10}, nil
}

func (s *stubDiscountStore) IncrementUsage(context.Context, string) error {
	s.increments++
	return nil
}

type stubZoneStore struct{}

func (stubZoneStore) FindZoneByCountry(_ context.Context, country string) (delivery.Zone, error) {
	if country != "AU" {
		return delivery.Zone{}, delivery.ErrZoneNotFound
	}
	return delivery.Zone{
		Country:  "AU",
		Currency: "AUD",
		Methods: []delivery.Method{
			{ID: "au_standard", Label: "Standard", Price: 29.00, Active: true, SortOrder: 1},
		},
	}, nil
}

type memOrderStore struct {
	orders []order.Order
}

func (s *memOrderStore) Insert(_ context.Context, o order.Order) error {
	s.orders = append(s.orders, o)
	return nil
}

func (s *memOrderStore) Get(_ context.Context, id string) (order.Order, error) {
	for _, o := range s.orders {
		if o.ID == id {
			return o, nil
		}
	}
	return order.Order{}, order.ErrNotFound
}

func (s *memOrderStore) ListBySession(_ context.Context, sessionID string) ([]order.Order, error) {
	var out []order.Order
	for _, o := range s.orders {
		if o.SessionID == sessionID {
			out = append(out, o)
		}
	}
	return out, nil
}

type memEventStore struct {
	events []events.Event
}

func (s *memEventStore) Insert(_ context.Context, e events.Event) error {
	s.events = append(s.events, e)
	return nil
}

func newCartService() *cart.Service {
	return &cart.Service{
		Snapshots: &cart.MemorySnapshotStore{},
		Catalog:   stubPrices{},
		Discounts: &discount.Service{Store: &stubDiscountStore{}},
		Delivery:  &delivery.Resolver{Store: stubZoneStore{}},
		Address:   delivery.NewAddressValidator(),
		Logger:    zerolog.Nop(),
	}
}

func fillCart(t *testing.T, carts *cart.Service, sessionID string) {
	t.Helper()
	ctx := context.Background()
	_, err := carts.AddItem(ctx, sessionID, "p1", 2)
	require.NoError(t, err)
	_, err = carts.AddItem(ctx, sessionID, "p2", 1)
	require.NoError(t, err)
	_, err = carts.AttachDiscount(ctx, sessionID, "SAVE10")
	require.NoError(t, err)
	_, err = carts.SetDelivery(ctx, sessionID, cart.DeliveryRequest{
		Country:    "AU",
		MethodID:   "au_standard",
		PostalCode: "2000",
		Region:     "NSW",
	})
	require.NoError(t, err)
}

func TestPlaceOrderFreezesCartTotals(t *testing.T) {
	t.Parallel()

	carts := newCartService()
	orders := &memOrderStore{}
	eventStore := &memEventStore{}
	bus := &events.Bus{Store: eventStore}
	email := &common.InMemoryEmail{}
	notifier := &checkout.ReceiptNotifier{Email: email, Logger: zerolog.Nop()}
	notifier.Register(bus)

	fixed := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	svc := &checkout.Service{
		Carts:  carts,
		Orders: orders,
		Bus:    bus,
		Logger: zerolog.Nop(),
		Now:    func() time.Time { return fixed },
	}

	fillCart(t, carts, "s1")
	o, err := svc.PlaceOrder(context.Background(), checkout.Request{SessionID: "s1", Email: "jo@example.com"})
	require.NoError(t, err)

	require.Equal(t, order.StatusPlaced, o.Status)
	require.Equal(t, int64(7550), o.SubtotalCents)
	require.Equal(t, int64(755), o.DiscountCents)
	require.Equal(t, int64(6795), o.PriceAfterDiscountCents)
	require.Equal(t, int64(2900), o.DeliveryFeeCents)
	require.Equal(t, int64(9695), o.TotalCents)
	require.Equal(t, "SAVE10", o.DiscountCode)
	require.Equal(t, fixed, o.CreatedAt)
	require.Len(t, o.Items, 2)

	require.Len(t, orders.orders, 1)
	require.Len(t, eventStore.events, 1)
	require.Equal(t, events.TopicOrderCreated, eventStore.events[0].Topic)

	require.Len(t, email.Outbox, 1)
	require.Equal(t, "jo@example.com", email.Outbox[0].To)

	// The cart is emptied after checkout.
	agg, err := carts.Get(context.Background(), "s1")
	require.NoError(t, err)
	require.True(t, agg.IsEmpty())
}

func TestPlaceOrderRejectsEmptyCart(t *testing.T) {
	t.Parallel()

	svc := &checkout.Service{
		Carts:  newCartService(),
		Orders: &memOrderStore{},
		Logger: zerolog.Nop(),
	}
	_, err := svc.PlaceOrder(context.Background(), checkout.Request{SessionID: "s1"})
	require.ErrorIs(t, err, checkout.ErrCartEmpty)
}

func TestPlaceOrderRequiresDelivery(t *testing.T) {
	t.Parallel()

	carts := newCartService()
	svc := &checkout.Service{
		Carts:  carts,
		Orders: &memOrderStore{},
		Logger: zerolog.Nop(),
	}
	_, err := carts.AddItem(context.Background(), "s1", "p1", 1)
	require.NoError(t, err)

	_, err = svc.PlaceOrder(context.Background(), checkout.Request{SessionID: "s1"})
	require.ErrorIs(t, err, checkout.ErrDeliveryRequired)
}
