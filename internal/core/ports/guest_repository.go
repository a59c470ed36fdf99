package ports

import (
	"context"

	"github.com/corphub/events-api/internal/core/domain"
)

// GuestRepository defines persistence operations for event guests.
type GuestRepository interface {
	Create(ctx context.Context, g *domain.Guest) (*domain.Guest, error)
	FindByID(ctx context.Context, id string) (*domain.Guest, error)
	FindByIDs(ctx context.Context, ids []string) ([]*domain.Guest, error)
	// Delete removes the guest. Deleting an absent guest is not an error.
	Delete(ctx context.Context, id string) error
}
