package cart_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mossery/storefront-api/internal/cart"
	"github.com/mossery/storefront-api/internal/delivery"
	"github.com/mossery/storefront-api/internal/discount"
)

func tenPercent() discount.Rule {
	return discount.Rule{Code: "SAVE10", IsPercentage: true, Value: 10}
}

func auStandard() cart.DeliveryInfo {
	return cart.DeliveryInfo{
		Country:  "AU",
		MethodID: "au_standard",
		Currency: "AUD",
		Price:    29.00,
	}
}

func TestAddItemClampsCumulativeQuantity(t *testing.T) {
	t.Parallel()

	agg := cart.New(cart.Policy{})
	require.NoError(t, agg.AddItem(cart.LineItem{ID: "p1", UnitPrice: 10}, 3))
	require.NoError(t, agg.AddItem(cart.LineItem{ID: "p1", UnitPrice: 10}, 3))

	items := agg.Items()
	require.Len(t, items, 1)
	require.Equal(t, 5, items[0].Quantity)
	require.Equal(t, int64(5000), agg.Totals().SubtotalCents)
}

func TestAddItemRejectsOverCartCap(t *testing.T) {
	t.Parallel()

	agg := cart.New(cart.Policy{PerItemMax: 5, CartMax: 10})
	require.NoError(t, agg.AddItem(cart.LineItem{ID: "p1", UnitPrice: 10}, 5))
	require.NoError(t, agg.AddItem(cart.LineItem{ID: "p2", UnitPrice: 10}, 5))

	before := agg.Totals()
	err := agg.AddItem(cart.LineItem{ID: "p3", UnitPrice: 10}, 1)
	require.ErrorIs(t, err, cart.ErrCapacityExceeded)
	require.Len(t, agg.Items(), 2)
	require.Equal(t, before, agg.Totals())
}

func TestAddItemValidatesInput(t *testing.T) {
	t.Parallel()

	agg := cart.New(cart.Policy{})
	require.ErrorIs(t, agg.AddItem(cart.LineItem{UnitPrice: 10}, 1), cart.ErrInvalidInput)
	require.ErrorIs(t, agg.AddItem(cart.LineItem{ID: "p1", UnitPrice: 10}, 0), cart.ErrInvalidInput)
}

func TestSetQuantityClampsToBounds(t *testing.T) {
	t.Parallel()

	agg := cart.New(cart.Policy{})
	require.NoError(t, agg.AddItem(cart.LineItem{ID: "p1", UnitPrice: 10}, 2))

	require.NoError(t, agg.SetQuantity("p1", 99))
	require.Equal(t, 5, agg.Items()[0].Quantity)

	require.NoError(t, agg.SetQuantity("p1", 0))
	require.Equal(t, 1, agg.Items()[0].Quantity)

	require.ErrorIs(t, agg.SetQuantity("missing", 2), cart.ErrItemNotFound)
}

func TestSetQuantityRejectsOverCartCap(t *testing.T) {
	t.Parallel()

	agg := cart.New(cart.Policy{PerItemMax: 5, CartMax: 6})
	require.NoError(t, agg.AddItem(cart.LineItem{ID: "p1", UnitPrice: 10}, 4))
	require.NoError(t, agg.AddItem(cart.LineItem{ID: "p2", UnitPrice: 10}, 2))

	err := agg.SetQuantity("p1", 5)
	require.ErrorIs(t, err, cart.ErrCapacityExceeded)
	require.Equal(t, 4, agg.Items()[0].Quantity)
}

func TestRemoveItemRederivesDiscountAndFee(t *testing.T) {
	t.Parallel()

	agg := cart.New(cart.Policy{})
	require.NoError(t, agg.AddItem(cart.LineItem{ID: "p1", UnitPrice: 100}, 1))
	require.NoError(t, agg.AddItem(cart.LineItem{ID: "p2", UnitPrice: 60}, 1))
	require.NoError(t, agg.AttachDiscount(tenPercent()))

	info := auStandard()
	info.FreeEligible = true
	info.FreeThreshold = 150.00
	require.NoError(t, agg.SetDelivery(info))
	require.Equal(t, int64(0), agg.Totals().DeliveryFeeCents)

	require.NoError(t, agg.RemoveItem("p2"))
	totals := agg.Totals()
	require.Equal(t, int64(10000), totals.SubtotalCents)
	require.Equal(t, int64(1000), totals.DiscountCents)
	require.Equal(t, int64(2900), totals.DeliveryFeeCents)
	require.Equal(t, int64(11900), totals.TotalCents)
}

func TestAttachDiscountIsSingleSlot(t *testing.T) {
	t.Parallel()

	agg := cart.New(cart.Policy{})
	require.NoError(t, agg.AddItem(cart.LineItem{ID: "p1", UnitPrice: 50}, 1))
	require.NoError(t, agg.AttachDiscount(tenPercent()))

	err := agg.AttachDiscount(discount.Rule{Code: "OTHER", Value: 5})
	require.ErrorIs(t, err, cart.ErrDiscountAlreadyApplied)
	require.Equal(t, "SAVE10", agg.Discount().Code)

	agg.ClearDiscount()
	require.Nil(t, agg.Discount())
	require.NoError(t, agg.AttachDiscount(discount.Rule{Code: "OTHER", Value: 5}))
	require.Equal(t, "OTHER", agg.Discount().Code)
}

func TestTotalsEndToEnd(t *testing.T) {
	t.Parallel()

	agg := cart.New(cart.Policy{})
	require.NoError(t, agg.AddItem(cart.LineItem{ID: "p1", UnitPrice: 25.50}, 2))
	require.NoError(t, agg.AddItem(cart.LineItem{ID: "p2", UnitPrice: 24.50}, 1))
	require.NoError(t, agg.AttachDiscount(tenPercent()))
	require.NoError(t, agg.SetDelivery(auStandard()))

	totals := agg.Totals()
	require.Equal(t, int64(7550), totals.SubtotalCents)
	require.Equal(t, int64(755), totals.DiscountCents)
	require.Equal(t, int64(6795), totals.PriceAfterDiscountCents)
	require.Equal(t, int64(2900), totals.DeliveryFeeCents)
	require.Equal(t, int64(9695), totals.TotalCents)
	require.Equal(t, 96.95, totals.Total())
}

func TestFixedDiscountNeverGoesNegative(t *testing.T) {
	t.Parallel()

	agg := cart.New(cart.Policy{})
	require.NoError(t, agg.AddItem(cart.LineItem{ID: "p1", UnitPrice: 30}, 1))
	require.NoError(t, agg.AttachDiscount(discount.Rule{Code: "BIG", Value: 100}))
	require.NoError(t, agg.SetDelivery(auStandard()))

	totals := agg.Totals()
	require.Equal(t, int64(3000), totals.SubtotalCents)
	require.Equal(t, int64(3000), totals.DiscountCents)
	require.Equal(t, int64(0), totals.PriceAfterDiscountCents)
	require.Equal(t, int64(2900), totals.TotalCents)
}

func TestFreeShippingBasisSelection(t *testing.T) {
	t.Parallel()

	build := func(basis delivery.Basis) *cart.Aggregate {
		agg := cart.New(cart.Policy{FreeShippingBasis: basis})
		require.NoError(t, agg.AddItem(cart.LineItem{ID: "p1", UnitPrice: 75.50}, 1))
		require.NoError(t, agg.AttachDiscount(tenPercent()))
		info := auStandard()
		info.FreeEligible = true
		info.FreeThreshold = 70.00
		require.NoError(t, agg.SetDelivery(info))
		return agg
	}

	// Goods value 75.50 meets the threshold; the discounted 67.95 does not.
	require.Equal(t, int64(0), build(delivery.BasisPreDiscount).Totals().DeliveryFeeCents)
	require.Equal(t, int64(2900), build(delivery.BasisPostDiscount).Totals().DeliveryFeeCents)
}

func TestRecomputeIsIdempotent(t *testing.T) {
	t.Parallel()

	agg := cart.New(cart.Policy{})
	require.NoError(t, agg.AddItem(cart.LineItem{ID: "p1", UnitPrice: 25.50}, 2))
	require.NoError(t, agg.AttachDiscount(tenPercent()))
	require.NoError(t, agg.SetDelivery(auStandard()))

	first := agg.Totals()
	agg.Recompute()
	agg.Recompute()
	require.Equal(t, first, agg.Totals())
}

func TestClearResetsEverything(t *testing.T) {
	t.Parallel()

	agg := cart.New(cart.Policy{})
	require.NoError(t, agg.AddItem(cart.LineItem{ID: "p1", UnitPrice: 25.50}, 2))
	require.NoError(t, agg.AttachDiscount(tenPercent()))
	require.NoError(t, agg.SetDelivery(auStandard()))

	agg.Clear()
	require.True(t, agg.IsEmpty())
	require.Nil(t, agg.Discount())
	require.Nil(t, agg.Delivery())
	require.Equal(t, cart.Totals{}, agg.Totals())
}

func TestApplyDispatchesCommands(t *testing.T) {
	t.Parallel()

	agg := cart.New(cart.Policy{})
	require.NoError(t, agg.Apply(cart.AddItemCommand{Item: cart.LineItem{ID: "p1", UnitPrice: 20}, Quantity: 2}))
	require.NoError(t, agg.Apply(cart.SetQuantityCommand{ItemID: "p1", Quantity: 3}))
	require.NoError(t, agg.Apply(cart.AttachDiscountCommand{Rule: tenPercent()}))
	require.NoError(t, agg.Apply(cart.SetDeliveryCommand{Info: auStandard()}))

	totals := agg.Totals()
	require.Equal(t, int64(6000), totals.SubtotalCents)
	require.Equal(t, int64(600), totals.DiscountCents)
	require.Equal(t, int64(8300), totals.TotalCents)

	require.NoError(t, agg.Apply(cart.ClearDiscountCommand{}))
	require.Nil(t, agg.Discount())
	require.NoError(t, agg.Apply(cart.ClearDeliveryCommand{}))
	require.Nil(t, agg.Delivery())
	require.NoError(t, agg.Apply(cart.RemoveItemCommand{ItemID: "p1"}))
	require.NoError(t, agg.Apply(cart.ClearCommand{}))
	require.True(t, agg.IsEmpty())
}
