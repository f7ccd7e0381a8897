package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Cache is an optional key/value store in front of slower lookups, such as
// session summaries decoded from disk. Get returns "" for a missing key.
type Cache interface {
	Ping(ctx context.Context) error
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, keys ...string) (bool, error)
	Close() error

	// WaitForConnection retries Ping until it succeeds or ctx is done
	WaitForConnection(ctx context.Context) error
}

// GetJSON decodes the cached value at key into v. It reports false on a
// miss; a value that no longer decodes is treated as a miss too.
func GetJSON(ctx context.Context, c Cache, key string, v any) (bool, error) {
	raw, err := c.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if raw == "" {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, nil
	}
	return true, nil
}

// SetJSON stores v at key as JSON.
func SetJSON(ctx context.Context, c Cache, key string, v any, expiration time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return c.Set(ctx, key, string(data), expiration)
}
