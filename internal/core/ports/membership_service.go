package ports

import (
	"context"

	"github.com/corphub/events-api/internal/core/domain"
)

// GuestInput is the add-guest form.
type GuestInput struct {
	Name           string
	Email          string
	IdempotencyKey string
}

// MembershipService mutates the attendee and guest sets of an event.
type MembershipService interface {
	AddAttendee(ctx context.Context, p domain.Principal, eventID, email string) (*domain.UserSummary, error)
	// RemoveAttendee succeeds when userID is not an attendee.
	RemoveAttendee(ctx context.Context, p domain.Principal, eventID, userID string) error
	AddGuest(ctx context.Context, p domain.Principal, eventID string, in GuestInput) (*domain.Guest, error)
	RemoveGuest(ctx context.Context, p domain.Principal, eventID, guestID string) error
}
