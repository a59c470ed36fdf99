package ports

import (
	"context"
	"time"

	"github.com/corphub/events-api/internal/core/domain"
)

// EventFilter narrows List. Zero values mean "no constraint".
type EventFilter struct {
	AttendeeID string
	After      time.Time // date >= After
	Before     time.Time // date < Before
}

// EventRepository handles event persistence.
type EventRepository interface {
	// Create assigns an ID and Version 1.
	Create(ctx context.Context, e *domain.Event) (*domain.Event, error)
	FindByID(ctx context.Context, id string) (*domain.Event, error)
	// List returns matching events ordered by date, most recent first.
	List(ctx context.Context, filter EventFilter) ([]*domain.Event, error)
	// Update persists e only if the stored version still equals e.Version,
	// and returns the stored event with its version incremented. A mismatch
	// yields domain.ErrStaleEvent.
	Update(ctx context.Context, e *domain.Event) (*domain.Event, error)
}
