package events_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mossery/storefront-api/internal/events"
)

type memStore struct {
	events []events.Event
	err    error
}

func (s *memStore) Insert(_ context.Context, e events.Event) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, e)
	return nil
}

func TestPublishPersistsThenFansOut(t *testing.T) {
	t.Parallel()

	store := &memStore{}
	bus := &events.Bus{Store: store}

	var got []events.Event
	bus.Subscribe(events.TopicOrderCreated, func(_ context.Context, e events.Event) {
		got = append(got, e)
	})
	bus.Subscribe("other.topic", func(_ context.Context, e events.Event) {
		t.Error("subscriber for unrelated topic invoked")
	})

	evt, err := events.New(events.TopicOrderCreated, "order-1", map[string]any{"total": 96.95})
	require.NoError(t, err)
	require.NotEmpty(t, evt.ID)

	require.NoError(t, bus.Publish(context.Background(), evt))
	require.Len(t, store.events, 1)
	require.Len(t, got, 1)
	require.Equal(t, "order-1", got[0].AggregateID)
}

func TestPublishFailsWhenStoreFails(t *testing.T) {
	t.Parallel()

	store := &memStore{err: errors.New("db down")}
	bus := &events.Bus{Store: store}

	delivered := false
	bus.Subscribe(events.TopicOrderCreated, func(context.Context, events.Event) { delivered = true })

	evt, err := events.New(events.TopicOrderCreated, "order-1", nil)
	require.NoError(t, err)
	require.Error(t, bus.Publish(context.Background(), evt))
	require.False(t, delivered)
}
