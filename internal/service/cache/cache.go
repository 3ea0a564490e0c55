package cache

import "time"

// BytesCache caches marshaled API responses. Two implementations exist: an
// in-process TTL map for single-node runs and a redis-backed one shared
// across replicas.
type BytesCache interface {
	GetBytes(key string) (b []byte, ok bool, err error)
	SetBytes(key string, value []byte, ttl time.Duration) error
}
