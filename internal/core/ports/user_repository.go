package ports

import (
	"context"

	"github.com/corphub/events-api/internal/core/domain"
)

// UserRepository defines persistence operations for registered users.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	// FindByEmail matches the normalized (lower-cased) address.
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	// FindByIDs returns the users that exist among ids. Missing ids are skipped.
	FindByIDs(ctx context.Context, ids []string) ([]*domain.User, error)
	// Search performs a case-insensitive substring match on name or email.
	// query is matched literally, never as a pattern.
	Search(ctx context.Context, query string, limit int) ([]*domain.User, error)
}
