package cache

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/rickgao/ares/internal/model"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore is a bounded, time-expiring in-process Store.
type MemoryStore struct {
	items      *gocache.Cache
	ttl        time.Duration
	maxEntries int

	// Serializes the capacity check and eviction in Set.
	mu sync.Mutex
}

// NewMemoryStore creates a store holding at most maxEntries snapshots for ttl each.
// A non-positive ttl disables expiry; a non-positive maxEntries disables the bound.
// Expired entries are purged every cleanupInterval (non-positive disables the janitor).
func NewMemoryStore(maxEntries int, ttl, cleanupInterval time.Duration) *MemoryStore {
	expiration := ttl
	if ttl <= 0 {
		expiration = gocache.NoExpiration
	}
	return &MemoryStore{
		items:      gocache.New(expiration, cleanupInterval),
		ttl:        ttl,
		maxEntries: maxEntries,
	}
}

// Get returns a copy of the cached snapshot for marketID.
func (s *MemoryStore) Get(_ context.Context, marketID string) (model.Snapshot, bool, error) {
	v, ok := s.items.Get(marketID)
	if !ok {
		return nil, false, nil
	}
	snap, ok := v.(model.Snapshot)
	if !ok {
		return nil, false, nil
	}
	return snap.Clone(), true, nil
}

// Set stores a copy of snapshot for marketID, evicting the entry closest to
// expiry when the store is full.
func (s *MemoryStore) Set(_ context.Context, marketID string, snapshot model.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.maxEntries > 0 {
		if _, exists := s.items.Get(marketID); !exists && s.items.ItemCount() >= s.maxEntries {
			s.items.DeleteExpired()
			for s.items.ItemCount() >= s.maxEntries {
				s.evictOne()
			}
		}
	}

	s.items.Set(marketID, snapshot.Clone(), gocache.DefaultExpiration)
	return nil
}

// Len returns the number of unexpired entries.
func (s *MemoryStore) Len(_ context.Context) (int, error) {
	return len(s.items.Items()), nil
}

// evictOne removes the item with the earliest expiration. With a fixed TTL
// that is the least recently written entry.
func (s *MemoryStore) evictOne() {
	var (
		victim   string
		earliest int64
		found    bool
	)
	for key, item := range s.items.Items() {
		if !found || item.Expiration < earliest {
			victim, earliest, found = key, item.Expiration, true
		}
	}
	if !found {
		// Everything left is expired but not yet purged.
		s.items.DeleteExpired()
		s.items.Flush()
		return
	}
	s.items.Delete(victim)
}
