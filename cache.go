package svckit

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheConfig holds Redis client configuration
type CacheConfig struct {
	URL          string        `validate:"required"` // redis:// or rediss:// URL (required)
	PoolSize     int           `validate:"gte=0"`    // Max socket connections (default: 10)
	MinIdleConns int           `validate:"gte=0"`    // Min idle connections (default: 0)
	DialTimeout  time.Duration `validate:"gte=0"`    // Dial timeout (default: 5s)
	ReadTimeout  time.Duration `validate:"gte=0"`    // Read timeout (default: 3s)
	WriteTimeout time.Duration `validate:"gte=0"`    // Write timeout (default: 3s)
}

// DefaultCacheConfig returns sensible defaults
func DefaultCacheConfig(url string) CacheConfig {
	return CacheConfig{
		URL:          url,
		PoolSize:     10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

func (c *CacheConfig) applyDefaults() {
	if c.PoolSize == 0 {
		c.PoolSize = 10
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 3 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 3 * time.Second
	}
}

// CacheRegistry holds the process-wide Redis client. Create one at startup,
// initialize it once, and pass it to whatever needs cache handles.
type CacheRegistry struct {
	mu     sync.RWMutex
	client redis.UniversalClient
}

// NewCacheRegistry returns an empty registry
func NewCacheRegistry() *CacheRegistry {
	return &CacheRegistry{}
}

// Init connects to Redis and stores the client. It fails with
// ErrAlreadyInitialized if the registry already holds a client.
func (r *CacheRegistry) Init(ctx context.Context, cfg CacheConfig) error {
	cfg.applyDefaults()
	if err := validateStruct(cfg, "CacheRegistry.Init"); err != nil {
		return err
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return &Error{Code: CodeInvalidConfig, Message: "invalid redis URL", Op: "CacheRegistry.Init", Cause: err}
	}
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return &Error{Code: CodeConnectionFailed, Message: "redis ping failed", Op: "CacheRegistry.Init", Cause: err}
	}

	if err := r.Use(client); err != nil {
		_ = client.Close()
		return err
	}
	return nil
}

// Use stores an already constructed client, such as a cluster client or a
// test double. It fails with ErrAlreadyInitialized if a client is present.
func (r *CacheRegistry) Use(client redis.UniversalClient) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.client != nil {
		return &Error{Code: CodeAlreadyInitialized, Message: "cache registry already initialized", Op: "CacheRegistry.Use"}
	}
	r.client = client
	return nil
}

// Conn returns a handle sharing the registry's connection pool. Handles are
// cheap and safe for concurrent use.
func (r *CacheRegistry) Conn() (*Cache, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.client == nil {
		return nil, &Error{Code: CodeNotInitialized, Message: "cache registry not initialized", Op: "CacheRegistry.Conn"}
	}
	return &Cache{UniversalClient: r.client}, nil
}

// MustConn is Conn for startup paths where an uninitialized registry is a
// deployment error. It panics instead of returning an error.
func (r *CacheRegistry) MustConn() *Cache {
	c, err := r.Conn()
	if err != nil {
		panic(err)
	}
	return c
}

// Health pings Redis
func (r *CacheRegistry) Health(ctx context.Context) error {
	c, err := r.Conn()
	if err != nil {
		return err
	}
	if err := c.Ping(ctx).Err(); err != nil {
		return &Error{Code: CodeConnectionFailed, Message: "redis ping failed", Op: "CacheRegistry.Health", Cause: err}
	}
	return nil
}

// Close closes the client and empties the registry
func (r *CacheRegistry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.client == nil {
		return nil
	}
	err := r.client.Close()
	r.client = nil
	return err
}

// Cache is a handle on the shared Redis client with an optional key prefix
type Cache struct {
	redis.UniversalClient
	prefix string
}

// WithPrefix returns a handle whose JSON helpers namespace keys with prefix
func (c *Cache) WithPrefix(prefix string) *Cache {
	return &Cache{UniversalClient: c.UniversalClient, prefix: c.prefix + prefix}
}

// Key returns key with the handle's prefix applied
func (c *Cache) Key(key string) string {
	return c.prefix + key
}

// GetJSON loads key into dst. A missing key returns (false, nil).
func (c *Cache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	data, err := c.Get(ctx, c.Key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON stores v under key; ttl 0 means no expiration
func (c *Cache) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Set(ctx, c.Key(key), data, ttl).Err()
}

// Forget deletes keys, applying the handle's prefix
func (c *Cache) Forget(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = c.Key(k)
	}
	return c.Del(ctx, prefixed...).Err()
}
