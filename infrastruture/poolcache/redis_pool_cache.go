package poolcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/beka-birhanu/navstudy/game/maze"
	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix     = "navstudy:pool:"
	lockSuffix    = ":build_lock"
	lockExpiry    = 30 * time.Second
	defaultTTLSec = 24 * 60 * 60
)

// RedisPoolCache stores maze pools in Redis as JSON with a TTL. Builds of the
// same key are serialized with a distributed lock so concurrent sessions
// generate a pool only once.
type RedisPoolCache struct {
	client *redis.Client
	locker *redsync.Redsync
	ttl    time.Duration
}

// NewRedisPoolCache initializes a RedisPoolCache with the provided Redis client and TTL.
func NewRedisPoolCache(client *redis.Client, ttl time.Duration) *RedisPoolCache {
	if ttl <= 0 {
		ttl = defaultTTLSec * time.Second
	}
	pool := goredis.NewPool(client)
	return &RedisPoolCache{
		client: client,
		locker: redsync.New(pool),
		ttl:    ttl,
	}
}

// GetOrBuild returns the cached pool for key or builds and stores it.
func (c *RedisPoolCache) GetOrBuild(ctx context.Context, key string, build func() ([]*maze.Maze, error)) ([]*maze.Maze, error) {
	redisKey := keyPrefix + key
	if pool, ok, err := c.get(ctx, redisKey); err != nil || ok {
		return pool, err
	}

	mutex := c.locker.NewMutex(redisKey+lockSuffix, redsync.WithExpiry(lockExpiry))
	if err := mutex.LockContext(ctx); err != nil {
		return nil, fmt.Errorf("locking pool %s: %w", key, err)
	}
	defer func() {
		_, _ = mutex.UnlockContext(ctx)
	}()

	// Another process may have built the pool while we waited.
	if pool, ok, err := c.get(ctx, redisKey); err != nil || ok {
		return pool, err
	}

	pool, err := build()
	if err != nil {
		return nil, err
	}
	data, err := encodePool(pool)
	if err != nil {
		return nil, err
	}
	if err := c.client.Set(ctx, redisKey, data, c.ttl).Err(); err != nil {
		return nil, fmt.Errorf("storing pool %s: %w", key, err)
	}
	return pool, nil
}

// Invalidate drops a cached pool.
func (c *RedisPoolCache) Invalidate(ctx context.Context, key string) error {
	return c.client.Del(ctx, keyPrefix+key).Err()
}

func (c *RedisPoolCache) get(ctx context.Context, redisKey string) ([]*maze.Maze, bool, error) {
	data, err := c.client.Get(ctx, redisKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading pool %s: %w", redisKey, err)
	}

	pool, err := decodePool(data)
	if err != nil {
		return nil, false, err
	}
	return pool, true, nil
}

func encodePool(pool []*maze.Maze) ([]byte, error) {
	data, err := json.Marshal(pool)
	if err != nil {
		return nil, fmt.Errorf("encoding pool: %w", err)
	}
	return data, nil
}

func decodePool(data []byte) ([]*maze.Maze, error) {
	var pool []*maze.Maze
	if err := json.Unmarshal(data, &pool); err != nil {
		return nil, fmt.Errorf("decoding pool: %w", err)
	}
	return pool, nil
}
