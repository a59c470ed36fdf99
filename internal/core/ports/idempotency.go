package ports

import "context"

const (
	ScopeEventCreate = "event.create"
	ScopeEventGuest  = "event.guest"
)

// IdempotencyStore remembers which record a client-supplied key produced.
type IdempotencyStore interface {
	// Lookup returns the remembered record id, or "" when the key is unknown.
	Lookup(ctx context.Context, scope, principal, key string) (string, error)
	Remember(ctx context.Context, scope, principal, key, recordID string) error
}
