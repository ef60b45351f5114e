package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const memoryStoreCleanupInterval = time.Minute

// MemoryEphemeralStore keeps entries in process. It is the default store and
// only suitable for a single replica.
type MemoryEphemeralStore struct {
	mu    sync.Mutex
	cache *gocache.Cache
}

func NewMemoryEphemeralStore(defaultTTL time.Duration) *MemoryEphemeralStore {
	if defaultTTL <= 0 {
		defaultTTL = DefaultExpirySeconds * time.Second
	}
	return &MemoryEphemeralStore{cache: gocache.New(defaultTTL, memoryStoreCleanupInterval)}
}

func (s *MemoryEphemeralStore) Put(_ context.Context, key string, value string, ttl time.Duration) error {
	if s == nil || s.cache == nil {
		return fmt.Errorf("core: memory store is not configured")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("core: store key is required")
	}
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	s.mu.Lock()
	s.cache.Set(key, value, ttl)
	s.mu.Unlock()
	return nil
}

func (s *MemoryEphemeralStore) Get(_ context.Context, key string) (string, bool, error) {
	if s == nil || s.cache == nil {
		return "", false, fmt.Errorf("core: memory store is not configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookup(strings.TrimSpace(key))
}

func (s *MemoryEphemeralStore) Delete(_ context.Context, key string) error {
	if s == nil || s.cache == nil {
		return fmt.Errorf("core: memory store is not configured")
	}
	s.mu.Lock()
	s.cache.Delete(strings.TrimSpace(key))
	s.mu.Unlock()
	return nil
}

func (s *MemoryEphemeralStore) Consume(_ context.Context, key string) (string, bool, error) {
	if s == nil || s.cache == nil {
		return "", false, fmt.Errorf("core: memory store is not configured")
	}
	key = strings.TrimSpace(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok, err := s.lookup(key)
	if err != nil || !ok {
		return "", false, err
	}
	s.cache.Delete(key)
	return value, true, nil
}

func (s *MemoryEphemeralStore) lookup(key string) (string, bool, error) {
	raw, ok := s.cache.Get(key)
	if !ok {
		return "", false, nil
	}
	value, ok := raw.(string)
	if !ok {
		return "", false, fmt.Errorf("core: memory store entry %q has unexpected type %T", key, raw)
	}
	return value, true, nil
}

var (
	_ EphemeralStore    = (*MemoryEphemeralStore)(nil)
	_ EphemeralConsumer = (*MemoryEphemeralStore)(nil)
)
