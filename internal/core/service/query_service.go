package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/corphub/events-api/internal/core/domain"
	"github.com/corphub/events-api/internal/core/ports"
	"github.com/corphub/events-api/pkg/tracing"
)

const searchLimit = 10

type queryService struct {
	events ports.EventRepository
	users  ports.UserRepository
	guests ports.GuestRepository
	log    zerolog.Logger
}

// NewQueryService returns a QueryService implementation.
func NewQueryService(
	events ports.EventRepository,
	users ports.UserRepository,
	guests ports.GuestRepository,
	log zerolog.Logger,
) ports.QueryService {
	return &queryService{events: events, users: users, guests: guests, log: log}
}

// ListEvents returns every event matching the dashboard filters, most recent first.
// It does not require authentication.
func (s *queryService) ListEvents(ctx context.Context, in ports.ListEventsInput) (_ []*domain.EventView, err error) {
	ctx, span := tracing.Start(ctx, "events.query.list")
	defer func() { tracing.End(span, err) }()

	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	filter := ports.EventFilter{AttendeeID: in.AttendeeID}
	switch in.When {
	case ports.WhenAny:
	case ports.WhenUpcoming:
		filter.After = now.UTC()
	case ports.WhenPast:
		filter.Before = now.UTC()
	default:
		return nil, domain.Invalid("when must be one of: upcoming, past")
	}

	events, err := s.events.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	views, err := s.resolve(ctx, events)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return views, nil
}

// GetEvent returns one event with its references resolved.
func (s *queryService) GetEvent(ctx context.Context, p domain.Principal, eventID string) (_ *domain.EventView, err error) {
	ctx, span := tracing.Start(ctx, "events.query.get")
	defer func() { tracing.End(span, err) }()

	if !p.Authenticated() {
		return nil, domain.ErrUnauthenticated
	}
	event, err := loadEvent(ctx, s.events, eventID)
	if err != nil {
		return nil, err
	}
	views, err := s.resolve(ctx, []*domain.Event{event})
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	return views[0], nil
}

// SearchUsers matches query literally against name and email, case-insensitively.
func (s *queryService) SearchUsers(ctx context.Context, p domain.Principal, query string) (_ []domain.UserSummary, err error) {
	ctx, span := tracing.Start(ctx, "events.query.search_users")
	defer func() { tracing.End(span, err) }()

	if !p.Authenticated() {
		return nil, domain.ErrUnauthenticated
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.Invalid("query is required")
	}

	users, err := s.users.Search(ctx, query, searchLimit)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	out := make([]domain.UserSummary, 0, len(users))
	for _, u := range users {
		out = append(out, u.Summary())
	}
	return out, nil
}

// resolve batches the user and guest lookups for all events. References to
// records that no longer exist are dropped from the view.
func (s *queryService) resolve(ctx context.Context, events []*domain.Event) ([]*domain.EventView, error) {
	var userIDs, guestIDs []string
	for _, e := range events {
		userIDs = append(userIDs, e.CreatedBy)
		userIDs = append(userIDs, e.Attendees...)
		guestIDs = append(guestIDs, e.Guests...)
	}

	users := map[string]domain.Contact{}
	if len(userIDs) > 0 {
		found, err := s.users.FindByIDs(ctx, dedupe(userIDs))
		if err != nil {
			return nil, fmt.Errorf("resolve users: %w", err)
		}
		for _, u := range found {
			users[u.ID] = domain.Contact{ID: u.ID, Name: u.Name, Email: u.Email}
		}
	}
	guests := map[string]domain.Contact{}
	if len(guestIDs) > 0 {
		found, err := s.guests.FindByIDs(ctx, dedupe(guestIDs))
		if err != nil {
			return nil, fmt.Errorf("resolve guests: %w", err)
		}
		for _, g := range found {
			guests[g.ID] = domain.Contact{ID: g.ID, Name: g.Name, Email: g.Email}
		}
	}

	views := make([]*domain.EventView, 0, len(events))
	for _, e := range events {
		v := &domain.EventView{
			ID:          e.ID,
			Title:       e.Title,
			Description: e.Description,
			Date:        e.Date,
			Venue:       e.Venue,
			Agenda:      e.Agenda,
			Capacity:    e.Capacity,
			Speakers:    e.Speakers,
			Attendees:   make([]domain.Contact, 0, len(e.Attendees)),
			Guests:      make([]domain.Contact, 0, len(e.Guests)),
			CreatedAt:   e.CreatedAt,
		}
		if v.Speakers == nil {
			v.Speakers = []domain.Speaker{}
		}
		if c, ok := users[e.CreatedBy]; ok {
			v.CreatedBy = &c
		}
		for _, id := range e.Attendees {
			if c, ok := users[id]; ok {
				v.Attendees = append(v.Attendees, c)
			}
		}
		for _, id := range e.Guests {
			if c, ok := guests[id]; ok {
				v.Guests = append(v.Guests, c)
			}
		}
		views = append(views, v)
	}
	return views, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
