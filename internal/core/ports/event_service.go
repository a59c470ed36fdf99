package ports

import (
	"context"
	"time"

	"github.com/corphub/events-api/internal/core/domain"
)

// SpeakerInput is one presenter on the create/edit forms.
type SpeakerInput struct {
	Name        string
	Designation string
}

// CreateEventInput is the DTO passed from the transport layer to EventService.Create.
type CreateEventInput struct {
	Title       string
	Description string
	Date        time.Time
	Venue       string
	Agenda      string
	Capacity    int
	Speakers    []SpeakerInput
	// IdempotencyKey replays the event created earlier by the same principal.
	IdempotencyKey string
}

// EditEventInput carries a partial update. A nil field was not supplied;
// a supplied empty string or zero capacity also leaves the stored value as is.
type EditEventInput struct {
	Title       *string
	Description *string
	Date        *time.Time
	Venue       *string
	Agenda      *string
	Capacity    *int
	Speakers    *[]SpeakerInput
}

// EventService covers the event lifecycle.
type EventService interface {
	Create(ctx context.Context, p domain.Principal, in CreateEventInput) (*domain.Event, error)
	Edit(ctx context.Context, p domain.Principal, eventID string, in EditEventInput) (*domain.Event, error)
}
