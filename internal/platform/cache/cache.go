// Package cache keeps short-lived dashboard snapshots in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

var ErrCacheMiss = errors.New("cache miss")

// KVStore is the subset of Redis the cache needs; tests substitute an
// in-memory implementation.
type KVStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
}

type RedisKVStore struct {
	client *redis.Client
}

func NewRedisKVStore(client *redis.Client) *RedisKVStore {
	return &RedisKVStore{client: client}
}

// NewRedisClient parses a redis:// URL.
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

func (r *RedisKVStore) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrCacheMiss
		}
		return "", err
	}
	return val, nil
}

func (r *RedisKVStore) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

// Snapshots caches computed dashboards for ttl. A nil *Snapshots, a nil store
// or a non-positive ttl disables caching and every Fetch recomputes.
type Snapshots struct {
	kv     KVStore
	ttl    time.Duration
	prefix string
	logger zerolog.Logger
}

func NewSnapshots(kv KVStore, ttl time.Duration, logger zerolog.Logger) *Snapshots {
	return &Snapshots{kv: kv, ttl: ttl, prefix: "frontdesk:dashboard:", logger: logger}
}

func (s *Snapshots) Enabled() bool {
	return s != nil && s.kv != nil && s.ttl > 0
}

// Fetch returns the cached value under key or computes and stores it. Cache
// failures are logged and bypassed; only compute errors are returned, and
// failed computations are never cached.
func Fetch[T any](ctx context.Context, s *Snapshots, key string, compute func(context.Context) (T, error)) (T, error) {
	if !s.Enabled() {
		return compute(ctx)
	}
	full := s.prefix + key

	raw, err := s.kv.Get(ctx, full)
	switch {
	case err == nil:
		var cached T
		jsonErr := json.Unmarshal([]byte(raw), &cached)
		if jsonErr == nil {
			return cached, nil
		}
		s.logger.Warn().Err(jsonErr).Str("key", full).Msg("discarding undecodable snapshot")
	case !errors.Is(err, ErrCacheMiss):
		s.logger.Warn().Err(err).Str("key", full).Msg("snapshot cache read failed")
	}

	value, err := compute(ctx)
	if err != nil {
		return value, err
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", full).Msg("snapshot encode failed")
		return value, nil
	}
	if err := s.kv.Set(ctx, full, string(encoded), s.ttl); err != nil {
		s.logger.Warn().Err(err).Str("key", full).Msg("snapshot cache write failed")
	}
	return value, nil
}
