package cache

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// OccupancyCache is a read-side projection of room occupancy, written
// through on every presence mutation. It is never authoritative; losing it
// degrades the REST surface to an in-memory snapshot, not the protocol.
type OccupancyCache interface {
	SetCount(ctx context.Context, roomName string, count int) error
	Counts(ctx context.Context) (map[string]int, error)
}

type redisCache struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisCache creates a redis-backed occupancy cache.
func NewRedisCache(client *redis.Client) OccupancyCache {
	return &redisCache{
		client: client,
		key:    "occupancy:rooms",
		ttl:    24 * time.Hour,
	}
}

func (c *redisCache) SetCount(ctx context.Context, roomName string, count int) error {
	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, c.key, roomName, count)
	pipe.Expire(ctx, c.key, c.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (c *redisCache) Counts(ctx context.Context) (map[string]int, error) {
	fields, err := c.client.HGetAll(ctx, c.key).Result()
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(fields))
	for room, raw := range fields {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("corrupt count for room %s: %w", room, err)
		}
		counts[room] = n
	}
	return counts, nil
}

type memoryCache struct {
	mu     sync.RWMutex
	counts map[string]int
}

// NewMemoryCache creates an in-process occupancy cache, used when redis is
// unavailable and in tests.
func NewMemoryCache() OccupancyCache {
	return &memoryCache{counts: make(map[string]int)}
}

func (c *memoryCache) SetCount(_ context.Context, roomName string, count int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[roomName] = count
	return nil
}

func (c *memoryCache) Counts(_ context.Context) (map[string]int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	counts := make(map[string]int, len(c.counts))
	for room, n := range c.counts {
		counts[room] = n
	}
	return counts, nil
}
