package cart_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/mossery/storefront-api/internal/cart"
)

func builtCart(t *testing.T) *cart.Aggregate {
	t.Helper()
	agg := cart.New(cart.Policy{})
	require.NoError(t, agg.AddItem(cart.LineItem{ID: "p1", Title: "Scarf", UnitPrice: 25.50}, 2))
	require.NoError(t, agg.AttachDiscount(tenPercent()))
	require.NoError(t, agg.SetDelivery(auStandard()))
	return agg
}

func TestSnapshotHoldsOnlyPrimaryState(t *testing.T) {
	t.Parallel()

	agg := builtCart(t)
	snap := agg.Snapshot()
	require.Len(t, snap.Items, 1)
	require.NotNil(t, snap.Discount)
	require.NotNil(t, snap.Delivery)

	restored := cart.FromSnapshot(snap, cart.Policy{})
	require.Equal(t, agg.Totals(), restored.Totals())
}

func TestRedisSnapshotStoreRoundTrip(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := &cart.RedisSnapshotStore{Client: client, TTL: time.Hour}
	ctx := context.Background()

	_, ok, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	require.False(t, ok)

	agg := builtCart(t)
	require.NoError(t, store.Save(ctx, "s1", agg.Snapshot()))

	snap, ok, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, agg.Totals(), cart.FromSnapshot(snap, cart.Policy{}).Totals())

	require.NoError(t, store.Clear(ctx, "s1"))
	_, ok, err = store.Load(ctx, "s1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisSnapshotStoreExpires(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := &cart.RedisSnapshotStore{Client: client, TTL: time.Minute}
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "s1", builtCart(t).Snapshot()))
	mr.FastForward(2 * time.Minute)

	_, ok, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemorySnapshotStore(t *testing.T) {
	t.Parallel()

	store := &cart.MemorySnapshotStore{}
	ctx := context.Background()

	_, ok, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Save(ctx, "s1", builtCart(t).Snapshot()))
	snap, ok, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, snap.Items, 1)

	require.NoError(t, store.Clear(ctx, "s1"))
	_, ok, err = store.Load(ctx, "s1")
	require.NoError(t, err)
	require.False(t, ok)
}
