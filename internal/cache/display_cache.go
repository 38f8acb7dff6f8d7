package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Keys read by the navigation menu.
const (
	KeyUsername     = "username"
	KeyProfileImage = "profileImage"
)

// DisplayCache is an advisory key/value store for display data. Values may
// lag behind the profile record.
type DisplayCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Provider hands out the display cache of a single user.
type Provider interface {
	ForUser(userID string) DisplayCache
}

// MemoryDisplayCache keeps values in process memory.
type MemoryDisplayCache struct {
	mu    sync.RWMutex
	items map[string]string
}

func NewMemoryDisplayCache() *MemoryDisplayCache {
	return &MemoryDisplayCache{items: make(map[string]string)}
}

func (c *MemoryDisplayCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.items[key]
	return v, ok, nil
}

func (c *MemoryDisplayCache) Set(_ context.Context, key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = value
	return nil
}

type MemoryProvider struct {
	mu     sync.Mutex
	caches map[string]*MemoryDisplayCache
}

func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{caches: make(map[string]*MemoryDisplayCache)}
}

func (p *MemoryProvider) ForUser(userID string) DisplayCache {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.caches[userID]
	if !ok {
		c = NewMemoryDisplayCache()
		p.caches[userID] = c
	}
	return c
}

type redisKVClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisDisplayCache stores values under "<prefix><key>" without expiry.
type RedisDisplayCache struct {
	client redisKVClient
	prefix string
}

func (c *RedisDisplayCache) Get(ctx context.Context, key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	v, err := c.client.Get(ctx, c.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (c *RedisDisplayCache) Set(ctx context.Context, key, value string) error {
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	return c.client.Set(ctx, c.prefix+key, value, 0).Err()
}

type RedisProvider struct {
	client redisKVClient
	prefix string
}

func NewRedisProvider(client *redis.Client) *RedisProvider {
	return &RedisProvider{
		client: client,
		prefix: "display:",
	}
}

func (p *RedisProvider) ForUser(userID string) DisplayCache {
	return &RedisDisplayCache{
		client: p.client,
		prefix: p.prefix + strings.TrimSpace(userID) + ":",
	}
}
