package cart

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mossery/storefront-api/internal/discount"
)

// Snapshot is the persisted form of a cart. Only primary state is stored:
// totals are recomputed on load, so a stale snapshot can never resurrect an
// outdated derived amount.
type Snapshot struct {
	Items    []LineItem     `json:"lineItems"`
	Discount *discount.Rule `json:"discountRule,omitempty"`
	Delivery *DeliveryInfo  `json:"deliveryInfo,omitempty"`
}

// Snapshot captures the aggregate's primary state.
func (a *Aggregate) Snapshot() Snapshot {
	return Snapshot{
		Items:    a.Items(),
		Discount: a.Discount(),
		Delivery: a.Delivery(),
	}
}

// FromSnapshot rebuilds an aggregate, recomputing all derived totals.
func FromSnapshot(snap Snapshot, policy Policy) *Aggregate {
	a := &Aggregate{policy: policy.normalized()}
	if len(snap.Items) > 0 {
		a.items = make([]LineItem, len(snap.Items))
		copy(a.items, snap.Items)
	}
	if snap.Discount != nil {
		r := *snap.Discount
		a.rule = &r
	}
	if snap.Delivery != nil {
		d := *snap.Delivery
		a.delivery = &d
	}
	a.Recompute()
	return a
}

// SnapshotStore persists carts keyed by session id.
type SnapshotStore interface {
	Save(ctx context.Context, sessionID string, snap Snapshot) error
	// Load returns the snapshot and whether one existed.
	Load(ctx context.Context, sessionID string) (Snapshot, bool, error)
	Clear(ctx context.Context, sessionID string) error
}

const defaultSnapshotPrefix = "cart:snapshot:"

// RedisSnapshotStore keeps snapshots in Redis under a TTL. Snapshot loss is
// acceptable: the cart degrades to empty rather than failing the session.
type RedisSnapshotStore struct {
	Client *redis.Client
	TTL    time.Duration
	Prefix string
}

func (s *RedisSnapshotStore) key(sessionID string) string {
	prefix := s.Prefix
	if prefix == "" {
		prefix = defaultSnapshotPrefix
	}
	return prefix + sessionID
}

// Save writes the snapshot, refreshing the TTL.
func (s *RedisSnapshotStore) Save(ctx context.Context, sessionID string, snap Snapshot) error {
	if s == nil || s.Client == nil {
		return errors.New("snapshot store not configured")
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return s.Client.Set(ctx, s.key(sessionID), raw, s.TTL).Err()
}

// Load reads the snapshot for a session.
func (s *RedisSnapshotStore) Load(ctx context.Context, sessionID string) (Snapshot, bool, error) {
	if s == nil || s.Client == nil {
		return Snapshot{}, false, errors.New("snapshot store not configured")
	}
	raw, err := s.Client.Get(ctx, s.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, err
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return Snapshot{}, false, err
	}
	return snap, true, nil
}

// Clear deletes the snapshot for a session.
func (s *RedisSnapshotStore) Clear(ctx context.Context, sessionID string) error {
	if s == nil || s.Client == nil {
		return errors.New("snapshot store not configured")
	}
	return s.Client.Del(ctx, s.key(sessionID)).Err()
}

// MemorySnapshotStore is an in-process store for tests and local runs.
type MemorySnapshotStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

// Save stores the snapshot in memory.
func (s *MemorySnapshotStore) Save(_ context.Context, sessionID string, snap Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		s.data = make(map[string][]byte)
	}
	s.data[sessionID] = raw
	return nil
}

// Load reads a stored snapshot.
func (s *MemorySnapshotStore) Load(_ context.Context, sessionID string) (Snapshot, bool, error) {
	s.mu.Lock()
	raw, ok := s.data[sessionID]
	s.mu.Unlock()
	if !ok {
		return Snapshot{}, false, nil
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return Snapshot{}, false, err
	}
	return snap, true, nil
}

// Clear drops a stored snapshot.
func (s *MemorySnapshotStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.data, sessionID)
	s.mu.Unlock()
	return nil
}
