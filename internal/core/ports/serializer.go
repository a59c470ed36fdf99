package ports

import "context"

// Serializer runs fn so that no two functions sharing a key execute at the same time.
type Serializer interface {
	Do(ctx context.Context, key string, fn func(ctx context.Context) error) error
}
