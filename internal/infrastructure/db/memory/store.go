// Package memory provides an in-process Store satisfying the repository
// ports. It backs the "memory" store driver and the HTTP end-to-end tests.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/corphub/events-api/internal/core/domain"
	"github.com/corphub/events-api/internal/core/ports"
)

// Store holds users, events and guests behind a single lock. Records are
// copied on the way in and out so callers never share state with the store.
type Store struct {
	mu     sync.RWMutex
	users  map[string]*domain.User
	events map[string]*domain.Event
	guests map[string]*domain.Guest
}

func NewStore() *Store {
	return &Store{
		users:  map[string]*domain.User{},
		events: map[string]*domain.Event{},
		guests: map[string]*domain.Guest{},
	}
}

func newID() string {
	return primitive.NewObjectID().Hex()
}

// Users returns the ports.UserRepository view of the store.
func (s *Store) Users() *UserRepository { return &UserRepository{s: s} }

// Events returns the ports.EventRepository view of the store.
func (s *Store) Events() *EventRepository { return &EventRepository{s: s} }

// Guests returns the ports.GuestRepository view of the store.
func (s *Store) Guests() *GuestRepository { return &GuestRepository{s: s} }

// ── Users ─────────────────────────────────────────────────────────────────────

type UserRepository struct{ s *Store }

var _ ports.UserRepository = (*UserRepository)(nil)

func cloneUser(u *domain.User) *domain.User {
	c := *u
	return &c
}

func (r *UserRepository) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	email := domain.NormalizeEmail(user.Email)
	for _, u := range r.s.users {
		if u.Email == email {
			return nil, domain.ErrUserExists
		}
	}
	c := cloneUser(user)
	c.ID = newID()
	c.Email = email
	r.s.users[c.ID] = c
	return cloneUser(c), nil
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	email = domain.NormalizeEmail(email)
	for _, u := range r.s.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *UserRepository) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *UserRepository) FindByIDs(_ context.Context, ids []string) ([]*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*domain.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := r.s.users[id]; ok {
			out = append(out, cloneUser(u))
		}
	}
	return out, nil
}

func (r *UserRepository) Search(_ context.Context, query string, limit int) ([]*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	q := strings.ToLower(query)
	var out []*domain.User
	for _, u := range r.s.users {
		if strings.Contains(strings.ToLower(u.Name), q) || strings.Contains(u.Email, q) {
			out = append(out, cloneUser(u))
		}
	}
	slices.SortFunc(out, func(a, b *domain.User) int { return strings.Compare(a.Name, b.Name) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ── Events ────────────────────────────────────────────────────────────────────

type EventRepository struct{ s *Store }

var _ ports.EventRepository = (*EventRepository)(nil)

func (r *EventRepository) Create(_ context.Context, e *domain.Event) (*domain.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c := e.Clone()
	c.ID = newID()
	c.Version = 1
	r.s.events[c.ID] = c
	return c.Clone(), nil
}

func (r *EventRepository) FindByID(_ context.Context, id string) (*domain.Event, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	e, ok := r.s.events[id]
	if !ok {
		return nil, domain.ErrEventNotFound
	}
	return e.Clone(), nil
}

func (r *EventRepository) List(_ context.Context, f ports.EventFilter) ([]*domain.Event, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*domain.Event, 0, len(r.s.events))
	for _, e := range r.s.events {
		if f.AttendeeID != "" && !e.HasAttendee(f.AttendeeID) {
			continue
		}
		if !f.After.IsZero() && e.Date.Before(f.After) {
			continue
		}
		if !f.Before.IsZero() && !e.Date.Before(f.Before) {
			continue
		}
		out = append(out, e.Clone())
	}
	slices.SortFunc(out, func(a, b *domain.Event) int {
		if c := b.Date.Compare(a.Date); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

// Update applies e when the stored version still equals e.Version.
func (r *EventRepository) Update(_ context.Context, e *domain.Event) (*domain.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.events[e.ID]
	if !ok {
		return nil, domain.ErrEventNotFound
	}
	if stored.Version != e.Version {
		return nil, domain.ErrStaleEvent
	}
	c := e.Clone()
	c.Version++
	r.s.events[c.ID] = c
	return c.Clone(), nil
}

// ── Guests ────────────────────────────────────────────────────────────────────

type GuestRepository struct{ s *Store }

var _ ports.GuestRepository = (*GuestRepository)(nil)

func cloneGuest(g *domain.Guest) *domain.Guest {
	c := *g
	return &c
}

func (r *GuestRepository) Create(_ context.Context, g *domain.Guest) (*domain.Guest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c := cloneGuest(g)
	c.ID = newID()
	r.s.guests[c.ID] = c
	return cloneGuest(c), nil
}

func (r *GuestRepository) FindByID(_ context.Context, id string) (*domain.Guest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	g, ok := r.s.guests[id]
	if !ok {
		return nil, domain.ErrGuestNotFound
	}
	return cloneGuest(g), nil
}

func (r *GuestRepository) FindByIDs(_ context.Context, ids []string) ([]*domain.Guest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*domain.Guest, 0, len(ids))
	for _, id := range ids {
		if g, ok := r.s.guests[id]; ok {
			out = append(out, cloneGuest(g))
		}
	}
	return out, nil
}

func (r *GuestRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	delete(r.s.guests, id)
	return nil
}
