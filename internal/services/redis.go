package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	connectAttempts = 5
	connectDelay    = 500 * time.Millisecond
)

// RedisService is a Cache backed by Redis. Keys are stored under an optional
// namespace so several campaigns can share one server.
type RedisService struct {
	client    *redis.Client
	namespace string
	logger    *slog.Logger
}

var _ Cache = (*RedisService)(nil)

// NewRedisService creates a client for redisURL, which may be a redis:// URL
// or a bare host:port. No connection is made until the first command.
func NewRedisService(redisURL string, logger *slog.Logger) (*RedisService, error) {
	opts := &redis.Options{Addr: redisURL}
	if strings.Contains(redisURL, "://") {
		parsed, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis URL: %w", err)
		}
		opts = parsed
	}
	return &RedisService{client: redis.NewClient(opts), logger: logger}, nil
}

// WithNamespace returns a view of r that prefixes every key with ns and a
// colon. The view shares r's connection.
func (r *RedisService) WithNamespace(ns string) *RedisService {
	cp := *r
	cp.namespace = strings.Trim(ns, ":")
	return &cp
}

func (r *RedisService) key(k string) string {
	if r.namespace == "" {
		return k
	}
	return r.namespace + ":" + k
}

func (r *RedisService) keys(ks []string) []string {
	out := make([]string, len(ks))
	for i, k := range ks {
		out[i] = r.key(k)
	}
	return out
}

func (r *RedisService) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisService) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	if err := r.client.Set(ctx, r.key(key), value, expiration).Err(); err != nil {
		r.logger.Warn("Redis SET failed", "key", key, "error", err)
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Get returns "" for a missing key.
func (r *RedisService) Get(ctx context.Context, key string) (string, error) {
	value, err := r.client.Get(ctx, r.key(key)).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return "", nil
	case err != nil:
		r.logger.Warn("Redis GET failed", "key", key, "error", err)
		return "", fmt.Errorf("redis get failed: %w", err)
	}
	return value, nil
}

func (r *RedisService) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	n, err := r.client.Del(ctx, r.keys(keys)...).Result()
	if err != nil {
		r.logger.Warn("Redis DEL failed", "keys", keys, "error", err)
		return fmt.Errorf("redis del failed: %w", err)
	}
	r.logger.Debug("Redis DEL", "keys", keys, "deleted", n)
	return nil
}

// Exists reports whether any of keys is present.
func (r *RedisService) Exists(ctx context.Context, keys ...string) (bool, error) {
	if len(keys) == 0 {
		return false, nil
	}
	n, err := r.client.Exists(ctx, r.keys(keys)...).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists failed: %w", err)
	}
	return n > 0, nil
}

func (r *RedisService) Close() error {
	if err := r.client.Close(); err != nil {
		return fmt.Errorf("failed to close redis connection: %w", err)
	}
	r.logger.Debug("Redis connection closed")
	return nil
}

// WaitForConnection pings up to five times, half a second apart.
func (r *RedisService) WaitForConnection(ctx context.Context) error {
	var err error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		if err = r.Ping(ctx); err == nil {
			return nil
		}
		r.logger.Debug("Redis not ready yet", "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
		case <-time.After(connectDelay):
		}
	}
	return fmt.Errorf("redis did not become available after %d attempts: %w", connectAttempts, err)
}
