package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// defaultRetention bounds entries stored without an explicit TTL so the
// in-process cache cannot grow stale forever.
const defaultRetention = 7 * 24 * time.Hour

type memEntry struct {
	value    interface{}
	expireAt time.Time
	touched  time.Time
}

func (e *memEntry) expired(now time.Time) bool {
	return now.After(e.expireAt)
}

// MemoryCache is an in-process Service with TTLs and least-recently-used
// eviction. It stands in for Redis in tests and single-replica deployments.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]*memEntry
	max     int
	janitor *time.Ticker
	done    chan struct{}
}

func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	cfg := &MemoryConfig{
		MaxEntries:      1000,
		CleanupInterval: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	mc := &MemoryCache{
		entries: make(map[string]*memEntry),
		max:     cfg.MaxEntries,
		janitor: time.NewTicker(cfg.CleanupInterval),
		done:    make(chan struct{}),
	}
	go mc.sweep()
	return mc
}

func (mc *MemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	now := time.Now()
	if expiration <= 0 {
		expiration = defaultRetention
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()

	if _, ok := mc.entries[key]; !ok && len(mc.entries) >= mc.max {
		mc.evictOldest()
	}
	mc.entries[key] = &memEntry{value: value, expireAt: now.Add(expiration), touched: now}
	return nil
}

func (mc *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	now := time.Now()

	mc.mu.Lock()
	defer mc.mu.Unlock()

	e, ok := mc.entries[key]
	if !ok {
		return ErrCacheMiss
	}
	if e.expired(now) {
		delete(mc.entries, key)
		return ErrCacheMiss
	}
	e.touched = now

	switch d := dest.(type) {
	case *string:
		if s, ok := e.value.(string); ok {
			*d = s
			return nil
		}
	case *interface{}:
		*d = e.value
		return nil
	}

	// Typed destination: roundtrip through JSON so callers get their own
	// copy instead of an alias into the cache.
	data, err := json.Marshal(e.value)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	for _, key := range keys {
		delete(mc.entries, key)
	}
	return nil
}

func (mc *MemoryCache) Exists(_ context.Context, keys ...string) (bool, error) {
	now := time.Now()

	mc.mu.Lock()
	defer mc.mu.Unlock()

	for _, key := range keys {
		if e, ok := mc.entries[key]; ok && !e.expired(now) {
			return true, nil
		}
	}
	return false, nil
}

func (mc *MemoryCache) TryLock(_ context.Context, key string, ttl time.Duration) (bool, error) {
	now := time.Now()

	mc.mu.Lock()
	defer mc.mu.Unlock()

	if e, ok := mc.entries[key]; ok && !e.expired(now) {
		return false, nil
	}
	mc.entries[key] = &memEntry{value: "locked", expireAt: now.Add(ttl), touched: now}
	return true, nil
}

func (mc *MemoryCache) Unlock(ctx context.Context, key string) error {
	return mc.Delete(ctx, key)
}

// evictOldest drops the least recently touched entry. Caller holds mu.
func (mc *MemoryCache) evictOldest() {
	var victim string
	var victimAt time.Time
	for key, e := range mc.entries {
		if victim == "" || e.touched.Before(victimAt) {
			victim = key
			victimAt = e.touched
		}
	}
	if victim != "" {
		delete(mc.entries, victim)
	}
}

func (mc *MemoryCache) sweep() {
	for {
		select {
		case <-mc.done:
			return
		case <-mc.janitor.C:
		}

		now := time.Now()
		mc.mu.Lock()
		for key, e := range mc.entries {
			if e.expired(now) {
				delete(mc.entries, key)
			}
		}
		mc.mu.Unlock()
	}
}

// Close stops the background sweeper.
func (mc *MemoryCache) Close() error {
	mc.janitor.Stop()
	select {
	case <-mc.done:
	default:
		close(mc.done)
	}
	return nil
}

var _ Service = (*MemoryCache)(nil)
