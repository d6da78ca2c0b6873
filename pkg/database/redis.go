package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrCacheMiss key not found in redis
var ErrCacheMiss = errors.New("redis: cache miss")

// RedisRepository 定义接口
type RedisRepository[T any] interface {
	Set(ctx context.Context, key string, value T, ttl time.Duration) error
	Get(ctx context.Context, key string) (T, error)
	Del(ctx context.Context, key string) error
	GetTTL(ctx context.Context, key string) (int, error)
	ExtendTTL(ctx context.Context, key string, ttl time.Duration) error
}

type redisRepository[T any] struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisClient connect standalone redis, or sentinel when masterName is set
func NewRedisClient(addrs []string, masterName, password string, db int) (redis.UniversalClient, error) {
	rdb := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:      addrs,
		MasterName: masterName,
		Password:   password,
		DB:         db,
	})

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return rdb, nil
}

// NewRedisRepository wrap a client, every key is stored under prefix
func NewRedisRepository[T any](client redis.UniversalClient, prefix string) RedisRepository[T] {
	return &redisRepository[T]{client: client, prefix: prefix}
}

func (r *redisRepository[T]) key(k string) string {
	return r.prefix + k
}

func (r *redisRepository[T]) Set(ctx context.Context, key string, value T, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return r.client.Set(ctx, r.key(key), data, ttl).Err()
}

func (r *redisRepository[T]) Get(ctx context.Context, key string) (T, error) {
	var zeroValue T
	val, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return zeroValue, ErrCacheMiss
	} else if err != nil {
		return zeroValue, fmt.Errorf("failed to get key: %w", err)
	}

	var result T
	if err := json.Unmarshal(val, &result); err != nil {
		return zeroValue, fmt.Errorf("failed to unmarshal value: %w", err)
	}
	return result, nil
}

func (r *redisRepository[T]) Del(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.key(key)).Err()
}

func (r *redisRepository[T]) ExtendTTL(ctx context.Context, key string, ttl time.Duration) error {
	return r.client.Expire(ctx, r.key(key), ttl).Err()
}

func (r *redisRepository[T]) GetTTL(ctx context.Context, key string) (int, error) {
	ttl, err := r.client.TTL(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	} else if err != nil {
		return 0, fmt.Errorf("failed to get TTL for key %s: %w", key, err)
	}

	if ttl < 0 {
		return 0, nil
	}
	return int(ttl.Seconds()), nil
}

// RedisCounter 以 INCR 維護的計數器, 不存在的 key 視為 0
type RedisCounter interface {
	Incr(ctx context.Context, key string) (int64, error)
	Current(ctx context.Context, key string) (int64, error)
}

type redisCounter struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisCounter counters stored under prefix
func NewRedisCounter(client redis.UniversalClient, prefix string) RedisCounter {
	return &redisCounter{client: client, prefix: prefix}
}

func (r *redisCounter) Incr(ctx context.Context, key string) (int64, error) {
	return r.client.Incr(ctx, r.prefix+key).Result()
}

func (r *redisCounter) Current(ctx context.Context, key string) (int64, error) {
	n, err := r.client.Get(ctx, r.prefix+key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	} else if err != nil {
		return 0, fmt.Errorf("failed to get counter %s: %w", key, err)
	}
	return n, nil
}
