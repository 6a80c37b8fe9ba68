package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Event is a recorded domain fact. The payload is the JSON document the
// producing module emitted; consumers decode what they understand.
type Event struct {
	ID          string          `json:"id"`
	Topic       string          `json:"topic"`
	AggregateID string          `json:"aggregateId"`
	Payload     json.RawMessage `json:"payload"`
	OccurredAt  time.Time       `json:"occurredAt"`
}

// New builds an event with a fresh id and timestamp.
func New(topic, aggregateID string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:          uuid.NewString(),
		Topic:       topic,
		AggregateID: aggregateID,
		Payload:     raw,
		OccurredAt:  time.Now().UTC(),
	}, nil
}

// Store persists events for audit and replay.
type Store interface {
	Insert(ctx context.Context, e Event) error
}

// Subscriber receives events for a topic. Subscribers run synchronously on
// the publisher's goroutine and must not block.
type Subscriber func(ctx context.Context, e Event)

// Bus records events and fans them out to in-process subscribers. Persistence
// comes first: a subscriber failure never loses the record.
type Bus struct {
	Store  Store
	Logger zerolog.Logger

	mu   sync.RWMutex
	subs map[string][]Subscriber
}

// Subscribe registers a handler for a topic.
func (b *Bus) Subscribe(topic string, fn Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs == nil {
		b.subs = make(map[string][]Subscriber)
	}
	b.subs[topic] = append(b.subs[topic], fn)
}

// Publish persists the event, then notifies subscribers.
func (b *Bus) Publish(ctx context.Context, e Event) error {
	if b.Store != nil {
		if err := b.Store.Insert(ctx, e); err != nil {
			return err
		}
	}
	b.mu.RLock()
	subs := b.subs[e.Topic]
	b.mu.RUnlock()
	for _, fn := range subs {
		fn(ctx, e)
	}
	return nil
}
