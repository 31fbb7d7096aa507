package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const layerRedis = "redis"

// RedisStore implements Store on a Redis server.
type RedisStore struct {
	redis *redis.Client
}

// NewRedisStore creates a new store with Redis backend.
func NewRedisStore(redisClient *redis.Client) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{
		redis: redisClient,
	}
}

// Get retrieves a value by key.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			CacheMisses.WithLabelValues(layerRedis).Inc()
			return nil, false, nil
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, false, &StoreError{Op: "get", Key: key, Err: err}
	}

	CacheHits.WithLabelValues(layerRedis).Inc()
	return data, true, nil
}

// Add stores value with SET NX so the first writer wins across processes.
func (s *RedisStore) Add(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return false, nil
	}

	ok, err := s.redis.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		CacheErrors.WithLabelValues("add").Inc()
		return false, &StoreError{Op: "add", Key: key, Err: err}
	}

	CacheWrites.WithLabelValues(layerRedis, writeResult(ok)).Inc()
	return ok, nil
}

// GetInt reads an integer counter.
func (s *RedisStore) GetInt(ctx context.Context, key string) (int64, bool, error) {
	n, err := s.redis.Get(ctx, key).Int64()
	if err != nil {
		if err == redis.Nil {
			return 0, false, nil
		}
		CacheErrors.WithLabelValues("get_int").Inc()
		return 0, false, &StoreError{Op: "get_int", Key: key, Err: err}
	}
	return n, true, nil
}

// Incr runs SETNX base, INCR and optional EXPIRE in one MULTI/EXEC transaction.
func (s *RedisStore) Incr(ctx context.Context, key string, base int64, ttl time.Duration) (int64, error) {
	var incr *redis.IntCmd
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, key, base, 0)
		incr = pipe.Incr(ctx, key)
		if ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		return nil
	})
	if err != nil {
		CacheErrors.WithLabelValues("incr").Inc()
		return 0, &StoreError{Op: "incr", Key: key, Err: err}
	}
	return incr.Val(), nil
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return &StoreError{Op: "ping", Err: err}
	}
	return nil
}

func writeResult(stored bool) string {
	if stored {
		return "stored"
	}
	return "exists"
}

var (
	_ Store  = (*RedisStore)(nil)
	_ Pinger = (*RedisStore)(nil)
)
