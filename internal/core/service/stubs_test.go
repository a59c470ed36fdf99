package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/corphub/events-api/internal/core/domain"
	"github.com/corphub/events-api/internal/core/ports"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User // by id
	seq   int
	err   error
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, u := range r.users {
		if u.Email == user.Email {
			return nil, domain.ErrUserExists
		}
	}
	r.seq++
	copy := cloneUser(user)
	if copy.ID == "" {
		copy.ID = fmt.Sprintf("user-%d", r.seq)
	}
	r.users[copy.ID] = cloneUser(copy)
	return copy, nil
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, u := range r.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) FindByIDs(_ context.Context, ids []string) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	var out []*domain.User
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			out = append(out, cloneUser(u))
		}
	}
	return out, nil
}

func (r *stubUserRepo) Search(_ context.Context, query string, limit int) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q := strings.ToLower(query)
	var out []*domain.User
	for _, u := range r.users {
		if strings.Contains(strings.ToLower(u.Name), q) || strings.Contains(u.Email, q) {
			out = append(out, cloneUser(u))
		}
	}
	slices.SortFunc(out, func(a, b *domain.User) int { return strings.Compare(a.ID, b.ID) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// seed stores a user directly and returns it.
func (r *stubUserRepo) seed(name, email string) *domain.User {
	u, err := r.Create(context.Background(), &domain.User{Name: name, Email: email, Role: domain.RoleEmployee})
	if err != nil {
		panic(err)
	}
	return u
}

// stubEventRepo keeps events in memory and enforces the version check on Update.
type stubEventRepo struct {
	mu        sync.Mutex
	events    map[string]*domain.Event
	seq       int
	createErr error
	updateErr error
	updates   int
	// beforeUpdate, when set, runs with the lock released just before the version check.
	beforeUpdate func()
}

func newStubEventRepo() *stubEventRepo {
	return &stubEventRepo{events: make(map[string]*domain.Event)}
}

func (r *stubEventRepo) Create(_ context.Context, e *domain.Event) (*domain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	r.seq++
	c := e.Clone()
	c.ID = fmt.Sprintf("event-%d", r.seq)
	c.Version = 1
	r.events[c.ID] = c
	return c.Clone(), nil
}

func (r *stubEventRepo) FindByID(_ context.Context, id string) (*domain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[id]
	if !ok {
		return nil, domain.ErrEventNotFound
	}
	return e.Clone(), nil
}

func (r *stubEventRepo) List(_ context.Context, f ports.EventFilter) ([]*domain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Event
	for _, e := range r.events {
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
	slices.SortFunc(out, func(a, b *domain.Event) int { return b.Date.Compare(a.Date) })
	return out, nil
}

func (r *stubEventRepo) Update(_ context.Context, e *domain.Event) (*domain.Event, error) {
	if r.beforeUpdate != nil {
		r.beforeUpdate()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return nil, r.updateErr
	}
	stored, ok := r.events[e.ID]
	if !ok {
		return nil, domain.ErrEventNotFound
	}
	if stored.Version != e.Version {
		return nil, domain.ErrStaleEvent
	}
	c := e.Clone()
	c.Version++
	r.events[c.ID] = c
	r.updates++
	return c.Clone(), nil
}

// seed stores an event owned by ownerID and returns its id.
func (r *stubEventRepo) seed(ownerID string, capacity int) string {
	e, err := r.Create(context.Background(), &domain.Event{
		Title:     "Quarterly Review",
		Date:      time.Date(2030, 1, 15, 9, 0, 0, 0, time.UTC),
		Venue:     "HQ",
		Capacity:  capacity,
		CreatedBy: ownerID,
	})
	if err != nil {
		panic(err)
	}
	return e.ID
}

func (r *stubEventRepo) get(id string) *domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[id].Clone()
}

type stubGuestRepo struct {
	mu        sync.Mutex
	guests    map[string]*domain.Guest
	seq       int
	createErr error
	deleteErr error
	deleted   []string
}

func newStubGuestRepo() *stubGuestRepo {
	return &stubGuestRepo{guests: make(map[string]*domain.Guest)}
}

func (r *stubGuestRepo) Create(_ context.Context, g *domain.Guest) (*domain.Guest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	r.seq++
	c := *g
	c.ID = fmt.Sprintf("guest-%d", r.seq)
	r.guests[c.ID] = &c
	out := c
	return &out, nil
}

func (r *stubGuestRepo) FindByID(_ context.Context, id string) (*domain.Guest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.guests[id]
	if !ok {
		return nil, domain.ErrGuestNotFound
	}
	c := *g
	return &c, nil
}

func (r *stubGuestRepo) FindByIDs(_ context.Context, ids []string) ([]*domain.Guest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Guest
	for _, id := range ids {
		if g, ok := r.guests[id]; ok {
			c := *g
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *stubGuestRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteErr != nil {
		return r.deleteErr
	}
	delete(r.guests, id)
	r.deleted = append(r.deleted, id)
	return nil
}

type stubIdem struct {
	mu        sync.Mutex
	keys      map[string]string
	lookupErr error
}

func newStubIdem() *stubIdem {
	return &stubIdem{keys: make(map[string]string)}
}

func (s *stubIdem) Lookup(_ context.Context, scope, principal, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lookupErr != nil {
		return "", s.lookupErr
	}
	return s.keys[scope+":"+principal+":"+key], nil
}

func (s *stubIdem) Remember(_ context.Context, scope, principal, key, recordID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[scope+":"+principal+":"+key] = recordID
	return nil
}

type stubNotifier struct {
	mu      sync.Mutex
	invited []string
	err     error
}

func (n *stubNotifier) NotifyGuestInvited(_ context.Context, _ *domain.Event, g *domain.Guest, _ domain.Principal) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.invited = append(n.invited, g.Email)
	return n.err
}

// blockingNotifier holds every send until release is closed or ctx ends.
type blockingNotifier struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlockingNotifier() *blockingNotifier {
	return &blockingNotifier{entered: make(chan struct{}), release: make(chan struct{})}
}

func (n *blockingNotifier) NotifyGuestInvited(ctx context.Context, _ *domain.Event, _ *domain.Guest, _ domain.Principal) error {
	n.once.Do(func() { close(n.entered) })
	select {
	case <-n.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// passSerializer runs writes directly, leaving the version check as the only guard.
type passSerializer struct{}

func (passSerializer) Do(ctx context.Context, _ string, fn func(context.Context) error) error {
	return fn(ctx)
}

// lockSerializer runs all writes under one mutex.
type lockSerializer struct{ mu sync.Mutex }

func (l *lockSerializer) Do(ctx context.Context, _ string, fn func(context.Context) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fn(ctx)
}

func principal(u *domain.User) domain.Principal {
	return domain.Principal{UserID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
}
