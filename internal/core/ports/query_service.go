package ports

import (
	"context"
	"time"

	"github.com/corphub/events-api/internal/core/domain"
)

const (
	WhenAny      = ""
	WhenUpcoming = "upcoming"
	WhenPast     = "past"
)

// ListEventsInput carries the optional dashboard filters.
type ListEventsInput struct {
	When       string // "", "upcoming" or "past"
	AttendeeID string
	Now        time.Time // reference point for When; zero means time.Now()
}

// QueryService is the read side of the API.
type QueryService interface {
	ListEvents(ctx context.Context, in ListEventsInput) ([]*domain.EventView, error)
	GetEvent(ctx context.Context, p domain.Principal, eventID string) (*domain.EventView, error)
	SearchUsers(ctx context.Context, p domain.Principal, query string) ([]domain.UserSummary, error)
}
