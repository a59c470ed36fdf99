package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/corphub/events-api/internal/core/domain"
	"github.com/corphub/events-api/internal/core/ports"
	"github.com/corphub/events-api/internal/pkg/metrics"
	"github.com/corphub/events-api/pkg/tracing"
)

type eventService struct {
	events     ports.EventRepository
	serializer ports.Serializer
	idem       ports.IdempotencyStore
	log        zerolog.Logger
}

// NewEventService returns an EventService implementation. idem may be nil,
// in which case idempotency keys are ignored.
func NewEventService(
	events ports.EventRepository,
	serializer ports.Serializer,
	idem ports.IdempotencyStore,
	log zerolog.Logger,
) ports.EventService {
	return &eventService{
		events:     events,
		serializer: serializer,
		idem:       idem,
		log:        log,
	}
}

// Create validates the form and persists a new event owned by the principal.
func (s *eventService) Create(ctx context.Context, p domain.Principal, in ports.CreateEventInput) (_ *domain.Event, err error) {
	ctx, span := tracing.Start(ctx, "events.lifecycle.create")
	defer func() { tracing.End(span, err) }()

	if !p.Authenticated() {
		return nil, domain.ErrUnauthenticated
	}

	title := strings.TrimSpace(in.Title)
	venue := strings.TrimSpace(in.Venue)
	if title == "" || venue == "" || in.Date.IsZero() || in.Capacity <= 0 {
		return nil, domain.Invalid("title, date, venue and capacity are required")
	}

	// 1. Replay a previous create carrying the same key.
	if replay := s.replay(ctx, p, in.IdempotencyKey); replay != nil {
		s.log.Debug().Str("event_id", replay.ID).Msg("create replayed from idempotency key")
		return replay, nil
	}

	// 2. Persist.
	now := time.Now().UTC()
	event := &domain.Event{
		Title:       title,
		Description: in.Description,
		Date:        in.Date.UTC(),
		Venue:       venue,
		Agenda:      in.Agenda,
		Capacity:    in.Capacity,
		Speakers:    toSpeakers(in.Speakers),
		Attendees:   []string{},
		Guests:      []string{},
		CreatedBy:   p.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	created, err := s.events.Create(ctx, event)
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	metrics.CreatedTotal.Inc()
	span.SetAttributes(attribute.String("event.id", created.ID))

	// 3. Remember the key (non-fatal on failure).
	if in.IdempotencyKey != "" && s.idem != nil {
		if err := s.idem.Remember(ctx, ports.ScopeEventCreate, p.UserID, in.IdempotencyKey, created.ID); err != nil {
			s.log.Warn().Err(err).Str("event_id", created.ID).Msg("failed to store idempotency key")
		}
	}

	s.log.Info().
		Str("event_id", created.ID).
		Str("created_by", p.UserID).
		Int("capacity", created.Capacity).
		Msg("event created")

	return created, nil
}

func (s *eventService) replay(ctx context.Context, p domain.Principal, key string) *domain.Event {
	if key == "" || s.idem == nil {
		return nil
	}
	id, err := s.idem.Lookup(ctx, ports.ScopeEventCreate, p.UserID, key)
	if err != nil {
		s.log.Warn().Err(err).Msg("idempotency lookup failed, creating anyway")
		return nil
	}
	if id == "" {
		return nil
	}
	event, err := s.events.FindByID(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrEventNotFound) {
			s.log.Warn().Err(err).Str("event_id", id).Msg("failed to load replayed event, creating anyway")
		}
		return nil
	}
	return event
}

// Edit merges the supplied fields into the event. Only the creator may edit.
func (s *eventService) Edit(ctx context.Context, p domain.Principal, eventID string, in ports.EditEventInput) (_ *domain.Event, err error) {
	ctx, span := tracing.Start(ctx, "events.lifecycle.edit")
	span.SetAttributes(attribute.String("event.id", eventID))
	defer func() { tracing.End(span, err) }()

	if !p.Authenticated() {
		return nil, domain.ErrUnauthenticated
	}

	var updated *domain.Event
	err = s.serializer.Do(ctx, eventID, func(ctx context.Context) error {
		current, err := loadEvent(ctx, s.events, eventID)
		if err != nil {
			return err
		}
		if !current.OwnedBy(p.UserID) {
			return domain.ErrForbidden
		}

		next := current.Clone()
		mergeEdit(next, in)
		if next.Capacity < len(next.Attendees) {
			return domain.Invalid("capacity below current attendee count (%d)", len(next.Attendees))
		}
		next.UpdatedAt = time.Now().UTC()

		updated, err = s.events.Update(ctx, next)
		if err != nil {
			return storeErr("edit event", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("event_id", eventID).Int64("version", updated.Version).Msg("event edited")
	return updated, nil
}

// mergeEdit overwrites a field only when its input was supplied and is non-empty.
func mergeEdit(e *domain.Event, in ports.EditEventInput) {
	if in.Title != nil && strings.TrimSpace(*in.Title) != "" {
		e.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil && *in.Description != "" {
		e.Description = *in.Description
	}
	if in.Date != nil && !in.Date.IsZero() {
		e.Date = in.Date.UTC()
	}
	if in.Venue != nil && strings.TrimSpace(*in.Venue) != "" {
		e.Venue = strings.TrimSpace(*in.Venue)
	}
	if in.Agenda != nil && *in.Agenda != "" {
		e.Agenda = *in.Agenda
	}
	if in.Capacity != nil && *in.Capacity > 0 {
		e.Capacity = *in.Capacity
	}
	if in.Speakers != nil && len(*in.Speakers) > 0 {
		e.Speakers = toSpeakers(*in.Speakers)
	}
}

func toSpeakers(in []ports.SpeakerInput) []domain.Speaker {
	out := make([]domain.Speaker, 0, len(in))
	for _, sp := range in {
		if strings.TrimSpace(sp.Name) == "" {
			continue
		}
		out = append(out, domain.Speaker{Name: strings.TrimSpace(sp.Name), Designation: sp.Designation})
	}
	return out
}

// loadEvent fetches an event, passing not-found through and wrapping anything else.
func loadEvent(ctx context.Context, repo ports.EventRepository, id string) (*domain.Event, error) {
	e, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrEventNotFound) {
			return nil, domain.ErrEventNotFound
		}
		return nil, fmt.Errorf("load event: %w", err)
	}
	return e, nil
}

// storeErr wraps a persistence failure, leaving the version conflict recognisable.
func storeErr(op string, err error) error {
	if errors.Is(err, domain.ErrStaleEvent) {
		return domain.ErrStaleEvent
	}
	if errors.Is(err, domain.ErrEventNotFound) {
		return domain.ErrEventNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
