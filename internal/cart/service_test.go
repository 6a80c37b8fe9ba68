package cart_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/mossery/storefront-api/internal/cart"
	"github.com/mossery/storefront-api/internal/catalog"
	"github.com/mossery/storefront-api/internal/common"
	"github.com/mossery/storefront-api/internal/delivery"
	"github.com/mossery/storefront-api/internal/discount"
)

type stubPrices struct {
	prices map[string]catalog.Price
}

func (s stubPrices) GetItemPrice(_ context.Context, itemID string) (catalog.Price, error) {
	p, ok := s.prices[itemID]
	if !ok {
		return catalog.Price{}, catalog.ErrProductNotFound
	}
	return p, nil
}

type stubDiscountStore struct {
	records    map[string]discount.Record
	increments map[string]int
}

func (s *stubDiscountStore) FindByCode(_ context.Context, code string) (discount.Record, error) {
	rec, ok := s.records[code]
	if !ok {
		return discount.Record{}, discount.ErrNotFound
	}
	return rec, nil
}

func (s *stubDiscountStore) IncrementUsage(_ context.Context, code string) error {
	if s.increments == nil {
		s.increments = make(map[string]int)
	}
	s.increments[code]++
	rec := s.records[code]
	rec.UsageCount++
	s.records[code] = rec
	return nil
}

type stubZoneStore struct {
	zones map[string]delivery.Zone
}

func (s stubZoneStore) FindZoneByCountry(_ context.Context, country string) (delivery.Zone, error) {
	z, ok := s.zones[country]
	if !ok {
		return delivery.Zone{}, delivery.ErrZoneNotFound
	}
	return z, nil
}

func newTestService(discounts *stubDiscountStore) *cart.Service {
	return &cart.Service{
		Snapshots: &cart.MemorySnapshotStore{},
		Catalog: stubPrices{prices: map[string]catalog.Price{
			"p1": {UnitPrice: 25.50, Currency: "AUD", Title: "Scarf"},
			"p2": {UnitPrice: 24.50, Currency: "AUD", Title: "Beanie"},
		}},
		Discounts: &discount.Service{Store: discounts},
		Delivery: &delivery.Resolver{Store: stubZoneStore{zones: map[string]delivery.Zone{
			"AU": {
				Country:       "AU",
				Currency:      "AUD",
				FreeThreshold: 150.00,
				Methods: []delivery.Method{
					{ID: "au_standard", Label: "Standard", Price: 29.00, Active: true, SortOrder: 1},
					{ID: "au_express", Label: "Express", Price: 45.00, FreeEligible: true, Active: true, SortOrder: 2},
				},
			},
		}}},
		Address: delivery.NewAddressValidator(),
		Logger:  zerolog.Nop(),
	}
}

func save10Store() *stubDiscountStore {
	return &stubDiscountStore{records: map[string]discount.Record{
		"SAVE10": {Code: "SAVE10", Published: true, IsPercentage: true, Value: 10},
	}}
}

func TestServiceRequiresSessionID(t *testing.T) {
	t.Parallel()

	svc := newTestService(save10Store())
	ctx := context.Background()

	_, err := svc.Get(ctx, "  ")
	require.True(t, common.IsAppError(err))

	_, err = svc.AddItem(ctx, "", "p1", 1)
	require.True(t, common.IsAppError(err))

	_, err = svc.SetQuantity(ctx, "", "p1", 2)
	require.True(t, common.IsAppError(err))

	_, err = svc.RemoveItem(ctx, "", "p1")
	require.True(t, common.IsAppError(err))

	_, err = svc.AttachDiscount(ctx, "", "SAVE10")
	require.True(t, common.IsAppError(err))

	_, err = svc.ClearDiscount(ctx, "")
	require.True(t, common.IsAppError(err))

	_, err = svc.SetDelivery(ctx, "", cart.DeliveryRequest{Country: "AU", MethodID: "au_standard", PostalCode: "2000", Region: "NSW"})
	require.True(t, common.IsAppError(err))

	_, err = svc.ClearDelivery(ctx, "")
	require.True(t, common.IsAppError(err))

	_, err = svc.Clear(ctx, "")
	require.True(t, common.IsAppError(err))
}

func TestServicePersistsAcrossLoads(t *testing.T) {
	t.Parallel()

	svc := newTestService(save10Store())
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "s1", "p1", 2)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, "s1", "p2", 1)
	require.NoError(t, err)

	agg, err := svc.Get(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, agg.Items(), 2)
	require.Equal(t, int64(7550), agg.Totals().SubtotalCents)
	require.Equal(t, "Scarf", agg.Items()[0].Title)
}

func TestServiceRejectsUnknownProduct(t *testing.T) {
	t.Parallel()

	svc := newTestService(save10Store())
	_, err := svc.AddItem(context.Background(), "s1", "missing", 1)
	require.ErrorIs(t, err, catalog.ErrProductNotFound)
}

func TestAttachDiscountConsumesUsageOnce(t *testing.T) {
	t.Parallel()

	store := save10Store()
	svc := newTestService(store)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "s1", "p1", 1)
	require.NoError(t, err)
	agg, err := svc.AttachDiscount(ctx, "s1", "SAVE10")
	require.NoError(t, err)
	require.Equal(t, int64(255), agg.Totals().DiscountCents)
	require.Equal(t, 1, store.increments["SAVE10"])

	// A second attach is rejected before resolution: no extra usage.
	_, err = svc.AttachDiscount(ctx, "s1", "SAVE10")
	require.ErrorIs(t, err, cart.ErrDiscountAlreadyApplied)
	require.Equal(t, 1, store.increments["SAVE10"])
}

func TestReloadDropsStaleDiscount(t *testing.T) {
	t.Parallel()

	store := save10Store()
	svc := newTestService(store)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "s1", "p1", 1)
	require.NoError(t, err)
	_, err = svc.AttachDiscount(ctx, "s1", "SAVE10")
	require.NoError(t, err)

	expired := time.Now().Add(-time.Hour)
	rec := store.records["SAVE10"]
	rec.ExpiresAt = &expired
	store.records["SAVE10"] = rec

	agg, err := svc.Get(ctx, "s1")
	require.NoError(t, err)
	require.Nil(t, agg.Discount())
	require.Equal(t, int64(0), agg.Totals().DiscountCents)
	// Revalidation never consumes usage.
	require.Equal(t, 1, store.increments["SAVE10"])
}

func TestSetDeliveryResolvesZoneAndFee(t *testing.T) {
	t.Parallel()

	svc := newTestService(save10Store())
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "s1", "p1", 2)
	require.NoError(t, err)
	agg, err := svc.SetDelivery(ctx, "s1", cart.DeliveryRequest{
		Country:    "au",
		MethodID:   "au_express",
		PostalCode: "2000",
		Region:     "NSW",
	})
	require.NoError(t, err)

	info := agg.Delivery()
	require.NotNil(t, info)
	require.Equal(t, "AU", info.Country)
	require.Equal(t, "au_express", info.MethodID)
	require.Equal(t, "AUD", info.Currency)
	// 51.00 is under the 150.00 threshold.
	require.Equal(t, int64(4500), agg.Totals().DeliveryFeeCents)

	// Growing the cart past the threshold zeroes the fee on recompute.
	for i := 0; i < 2; i++ {
		_, err = svc.AddItem(ctx, "s1", "p1", 2)
		require.NoError(t, err)
	}
	agg, err = svc.AddItem(ctx, "s1", "p2", 4)
	require.NoError(t, err)
	require.GreaterOrEqual(t, agg.Totals().SubtotalCents, int64(15000))
	require.Equal(t, int64(0), agg.Totals().DeliveryFeeCents)
}

func TestSetDeliveryValidatesAddress(t *testing.T) {
	t.Parallel()

	svc := newTestService(save10Store())
	ctx := context.Background()

	_, err := svc.SetDelivery(ctx, "s1", cart.DeliveryRequest{Country: "AU", PostalCode: "2000"})
	require.ErrorIs(t, err, delivery.ErrRegionRequired)

	_, err = svc.SetDelivery(ctx, "s1", cart.DeliveryRequest{Country: "AU", PostalCode: "20", Region: "NSW"})
	require.ErrorIs(t, err, delivery.ErrPostalCodeInvalid)
}

func TestClearRemovesSnapshot(t *testing.T) {
	t.Parallel()

	svc := newTestService(save10Store())
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "s1", "p1", 1)
	require.NoError(t, err)
	agg, err := svc.Clear(ctx, "s1")
	require.NoError(t, err)
	require.True(t, agg.IsEmpty())

	agg, err = svc.Get(ctx, "s1")
	require.NoError(t, err)
	require.True(t, agg.IsEmpty())
}
