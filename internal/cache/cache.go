package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yukikurage/recados-api/internal/metrics"
)

// Store is a plain remote dictionary: no TTL, no eviction guarantees.
type Store interface {
	// Get returns the stored bytes and whether the key was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set overwrites the value stored under key.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes the given keys. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
}

// GetJSON reads key and decodes it into T.
func GetJSON[T any](ctx context.Context, s Store, key string) (T, bool, error) {
	var value T

	raw, found, err := s.Get(ctx, key)
	if err != nil {
		return value, false, fmt.Errorf("cache get %q: %w", key, err)
	}
	if !found {
		metrics.CacheRequestsTotal.WithLabelValues(family(key), "miss").Inc()
		return value, false, nil
	}

	if err := json.Unmarshal(raw, &value); err != nil {
		return value, false, fmt.Errorf("cache decode %q: %w", key, err)
	}
	metrics.CacheRequestsTotal.WithLabelValues(family(key), "hit").Inc()
	return value, true, nil
}

// SetJSON encodes value and stores it under key.
func SetJSON(ctx context.Context, s Store, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %q: %w", key, err)
	}
	if err := s.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("cache set %q: %w", key, err)
	}
	return nil
}

// family strips the entity id from a key so metrics stay low-cardinality.
func family(key string) string {
	if i := strings.IndexByte(key, ':'); i >= 0 {
		return key[:i]
	}
	return key
}
