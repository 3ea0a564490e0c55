package cache

import "time"

// RedisConfig holds connection settings for RedisCache.
type RedisConfig struct {
	Host         string
	Port         int
	Password     string
	DB           int
	PoolSize     int
	PoolTimeout  time.Duration
	MinIdleConns int
	Prefix       string
}

// RedisOption overrides a RedisConfig field.
type RedisOption func(*RedisConfig)

func WithRedisHost(host string) RedisOption {
	return func(c *RedisConfig) { c.Host = host }
}

func WithRedisPort(port int) RedisOption {
	return func(c *RedisConfig) { c.Port = port }
}

func WithRedisPassword(password string) RedisOption {
	return func(c *RedisConfig) { c.Password = password }
}

func WithRedisDB(db int) RedisOption {
	return func(c *RedisConfig) { c.DB = db }
}

func WithRedisPool(poolSize, minIdleConns int, timeout time.Duration) RedisOption {
	return func(c *RedisConfig) {
		c.PoolSize = poolSize
		c.MinIdleConns = minIdleConns
		c.PoolTimeout = timeout
	}
}

// WithRedisPrefix sets the namespace prepended to every key.
func WithRedisPrefix(prefix string) RedisOption {
	return func(c *RedisConfig) { c.Prefix = prefix }
}

// MemoryConfig holds settings for MemoryCache.
type MemoryConfig struct {
	MaxEntries      int
	CleanupInterval time.Duration
}

// MemoryOption overrides a MemoryConfig field.
type MemoryOption func(*MemoryConfig)

func WithMemoryMaxSize(n int) MemoryOption {
	return func(c *MemoryConfig) { c.MaxEntries = n }
}

func WithMemoryCleanup(interval time.Duration) MemoryOption {
	return func(c *MemoryConfig) { c.CleanupInterval = interval }
}

// LayeredOption configures LayeredCache.
type LayeredOption func(*LayeredConfig)

// LayeredConfig holds settings for LayeredCache.
type LayeredConfig struct {
	MemoryMaxSize int
}

// WithLayeredMemorySize caps the in-process L1 entry count.
func WithLayeredMemorySize(n int) LayeredOption {
	return func(c *LayeredConfig) { c.MemoryMaxSize = n }
}
