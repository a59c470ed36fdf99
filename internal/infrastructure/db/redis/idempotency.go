package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const idempotencyTTL = 24 * time.Hour

// IdempotencyStore remembers which record a client-supplied key produced.
// Key format: idem:<scope>:<principal>:<key>
type IdempotencyStore struct {
	client *redis.Client
}

// NewIdempotencyStore creates an IdempotencyStore wrapping the given Redis client.
func NewIdempotencyStore(client *redis.Client) *IdempotencyStore {
	return &IdempotencyStore{client: client}
}

// Lookup returns the record id stored for the key, or "" when it is unknown or expired.
func (s *IdempotencyStore) Lookup(ctx context.Context, scope, principal, key string) (string, error) {
	id, err := s.client.Get(ctx, s.key(scope, principal, key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("idempotency lookup: %w", err)
	}
	return id, nil
}

// Remember records recordID for the key (expires after idempotencyTTL).
// An existing entry is kept so the first record always wins.
func (s *IdempotencyStore) Remember(ctx context.Context, scope, principal, key, recordID string) error {
	if err := s.client.SetNX(ctx, s.key(scope, principal, key), recordID, idempotencyTTL).Err(); err != nil {
		return fmt.Errorf("idempotency remember: %w", err)
	}
	return nil
}

func (s *IdempotencyStore) key(scope, principal, key string) string {
	return fmt.Sprintf("idem:%s:%s:%s", scope, principal, key)
}
