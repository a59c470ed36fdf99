package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/corphub/events-api/internal/core/domain"
	"github.com/corphub/events-api/internal/core/ports"
	"github.com/corphub/events-api/internal/pkg/metrics"
	"github.com/corphub/events-api/pkg/tracing"
)

// GuestPolicy decides who may add or remove guests.
type GuestPolicy string

const (
	// GuestPolicyOpen lets any authenticated principal manage guests.
	GuestPolicyOpen GuestPolicy = "open"
	// GuestPolicyOwner restricts guest management to the event creator.
	GuestPolicyOwner GuestPolicy = "owner"
)

// ParseGuestPolicy maps a configuration value to a GuestPolicy, defaulting to open.
func ParseGuestPolicy(s string) (GuestPolicy, error) {
	switch GuestPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", GuestPolicyOpen:
		return GuestPolicyOpen, nil
	case GuestPolicyOwner:
		return GuestPolicyOwner, nil
	}
	return "", fmt.Errorf("unknown guest policy %q", s)
}

const (
	opAddAttendee    = "add_attendee"
	opRemoveAttendee = "remove_attendee"
	opAddGuest       = "add_guest"
	opRemoveGuest    = "remove_guest"
)

type membershipService struct {
	events        ports.EventRepository
	users         ports.UserRepository
	guests        ports.GuestRepository
	serializer    ports.Serializer
	idem          ports.IdempotencyStore
	notifier      ports.GuestNotifier
	policy        GuestPolicy
	notifyTimeout time.Duration
	log           zerolog.Logger
}

// MembershipDeps groups the collaborators of the membership service.
// Idempotency and Notifier are optional. NotifyTimeout defaults to
// defaultNotifyTimeout.
type MembershipDeps struct {
	Events        ports.EventRepository
	Users         ports.UserRepository
	Guests        ports.GuestRepository
	Serializer    ports.Serializer
	Idempotency   ports.IdempotencyStore
	Notifier      ports.GuestNotifier
	Policy        GuestPolicy
	NotifyTimeout time.Duration
}

const defaultNotifyTimeout = 10 * time.Second

// NewMembershipService returns a MembershipService implementation.
func NewMembershipService(deps MembershipDeps, log zerolog.Logger) ports.MembershipService {
	policy := deps.Policy
	if policy == "" {
		policy = GuestPolicyOpen
	}
	notifyTimeout := deps.NotifyTimeout
	if notifyTimeout <= 0 {
		notifyTimeout = defaultNotifyTimeout
	}
	return &membershipService{
		events:        deps.Events,
		users:         deps.Users,
		guests:        deps.Guests,
		serializer:    deps.Serializer,
		idem:          deps.Idempotency,
		notifier:      deps.Notifier,
		policy:        policy,
		notifyTimeout: notifyTimeout,
		log:           log,
	}
}

// observe records the outcome of a membership operation on its span and counter.
func observe(op string, span trace.Span, err error) {
	result := metrics.ResultOK
	if err != nil {
		result = string(domain.KindOf(err))
	}
	span.SetAttributes(attribute.String("membership.result", result))
	metrics.MembershipOpsTotal.WithLabelValues(op, result).Inc()
}

// AddAttendee admits the user registered under email. Checks run in the order
// existence, ownership, duplicate, capacity.
func (s *membershipService) AddAttendee(ctx context.Context, p domain.Principal, eventID, email string) (_ *domain.UserSummary, err error) {
	ctx, span := tracing.Start(ctx, "events.membership.add_attendee")
	span.SetAttributes(attribute.String("event.id", eventID))
	defer func() {
		observe(opAddAttendee, span, err)
		tracing.End(span, err)
	}()

	if !p.Authenticated() {
		return nil, domain.ErrUnauthenticated
	}
	email = domain.NormalizeEmail(email)
	if email == "" {
		return nil, domain.Invalid("email is required")
	}

	var added domain.UserSummary
	err = s.serializer.Do(ctx, eventID, func(ctx context.Context) error {
		// 1. Existence: event, then user.
		event, err := loadEvent(ctx, s.events, eventID)
		if err != nil {
			return err
		}
		user, err := s.users.FindByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, domain.ErrUserNotFound) {
				return domain.ErrUserNotFound
			}
			return fmt.Errorf("add attendee: find user: %w", err)
		}

		// 2. Ownership.
		if !event.OwnedBy(p.UserID) {
			return domain.ErrForbidden
		}

		// 3. Duplicate and capacity, on a copy so a failed write leaves event untouched.
		next := event.Clone()
		if err := next.Admit(user.ID); err != nil {
			if errors.Is(err, domain.ErrCapacityExceeded) {
				metrics.CapacityRejectionsTotal.Inc()
			}
			return err
		}
		next.UpdatedAt = time.Now().UTC()

		// 4. Persist with version check.
		if _, err := s.events.Update(ctx, next); err != nil {
			return storeErr("add attendee", err)
		}
		added = user.Summary()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("event_id", eventID).Str("user_id", added.ID).Msg("attendee added")
	return &added, nil
}

// RemoveAttendee drops userID from the attendee set. Removing an absent id succeeds without a write.
func (s *membershipService) RemoveAttendee(ctx context.Context, p domain.Principal, eventID, userID string) (err error) {
	ctx, span := tracing.Start(ctx, "events.membership.remove_attendee")
	span.SetAttributes(attribute.String("event.id", eventID))
	defer func() {
		observe(opRemoveAttendee, span, err)
		tracing.End(span, err)
	}()

	if !p.Authenticated() {
		return domain.ErrUnauthenticated
	}

	return s.serializer.Do(ctx, eventID, func(ctx context.Context) error {
		event, err := loadEvent(ctx, s.events, eventID)
		if err != nil {
			return err
		}
		if !event.OwnedBy(p.UserID) {
			return domain.ErrForbidden
		}

		next := event.Clone()
		if !next.Dismiss(userID) {
			return nil
		}
		next.UpdatedAt = time.Now().UTC()

		if _, err := s.events.Update(ctx, next); err != nil {
			return storeErr("remove attendee", err)
		}
		s.log.Info().Str("event_id", eventID).Str("user_id", userID).Msg("attendee removed")
		return nil
	})
}

func (s *membershipService) authorizeGuests(p domain.Principal, event *domain.Event) error {
	if s.policy == GuestPolicyOwner && !event.OwnedBy(p.UserID) {
		return domain.ErrForbidden
	}
	return nil
}

// AddGuest records a guest and links it to the event. The guest record is
// written first; if linking fails the record is deleted again.
func (s *membershipService) AddGuest(ctx context.Context, p domain.Principal, eventID string, in ports.GuestInput) (_ *domain.Guest, err error) {
	ctx, span := tracing.Start(ctx, "events.membership.add_guest")
	span.SetAttributes(attribute.String("event.id", eventID))
	defer func() {
		observe(opAddGuest, span, err)
		tracing.End(span, err)
	}()

	if !p.Authenticated() {
		return nil, domain.ErrUnauthenticated
	}
	name := strings.TrimSpace(in.Name)
	email := domain.NormalizeEmail(in.Email)
	if name == "" || email == "" {
		return nil, domain.Invalid("name and email are required")
	}

	var (
		guest   *domain.Guest
		event   *domain.Event
		created bool
	)
	err = s.serializer.Do(ctx, eventID, func(ctx context.Context) error {
		var err error
		event, err = loadEvent(ctx, s.events, eventID)
		if err != nil {
			return err
		}
		if err := s.authorizeGuests(p, event); err != nil {
			return err
		}

		if replay := s.replayGuest(ctx, p, eventID, in.IdempotencyKey); replay != nil && event.HasGuest(replay.ID) {
			guest = replay
			return nil
		}

		// 1. Guest record.
		guest, err = s.guests.Create(ctx, &domain.Guest{
			Name:      name,
			Email:     email,
			EventID:   eventID,
			InvitedBy: p.UserID,
			CreatedAt: time.Now().UTC(),
		})
		if err != nil {
			return fmt.Errorf("add guest: create guest: %w", err)
		}

		// 2. Link it to the event, undoing step 1 on failure.
		next := event.Clone()
		next.AttachGuest(guest.ID)
		next.UpdatedAt = time.Now().UTC()
		if event, err = s.events.Update(ctx, next); err != nil {
			if delErr := s.guests.Delete(ctx, guest.ID); delErr != nil {
				s.log.Error().Err(delErr).Str("guest_id", guest.ID).Msg("failed to delete unlinked guest")
			}
			return storeErr("add guest", err)
		}

		if in.IdempotencyKey != "" && s.idem != nil {
			if err := s.idem.Remember(ctx, ports.ScopeEventGuest, p.UserID, in.IdempotencyKey, guest.ID); err != nil {
				s.log.Warn().Err(err).Str("guest_id", guest.ID).Msg("failed to store idempotency key")
			}
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if created {
		s.notify(ctx, event, guest, p)
	}

	s.log.Info().Str("event_id", eventID).Str("guest_id", guest.ID).Msg("guest added")
	return guest, nil
}

func (s *membershipService) replayGuest(ctx context.Context, p domain.Principal, eventID, key string) *domain.Guest {
	if key == "" || s.idem == nil {
		return nil
	}
	id, err := s.idem.Lookup(ctx, ports.ScopeEventGuest, p.UserID, key)
	if err != nil {
		s.log.Warn().Err(err).Msg("idempotency lookup failed, adding anyway")
		return nil
	}
	if id == "" {
		return nil
	}
	g, err := s.guests.FindByID(ctx, id)
	if err != nil || g.EventID != eventID {
		return nil
	}
	return g
}

// notify sends the invitation outside the event's write queue. Delivery
// failures never fail the request.
func (s *membershipService) notify(ctx context.Context, event *domain.Event, guest *domain.Guest, p domain.Principal) {
	if s.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
	defer cancel()
	if err := s.notifier.NotifyGuestInvited(ctx, event, guest, p); err != nil {
		s.log.Warn().Err(err).Str("guest_id", guest.ID).Msg("failed to send guest invitation")
	}
}

// RemoveGuest unlinks the guest from the event, then deletes the guest record,
// so the event never references a deleted guest.
func (s *membershipService) RemoveGuest(ctx context.Context, p domain.Principal, eventID, guestID string) (err error) {
	ctx, span := tracing.Start(ctx, "events.membership.remove_guest")
	span.SetAttributes(attribute.String("event.id", eventID))
	defer func() {
		observe(opRemoveGuest, span, err)
		tracing.End(span, err)
	}()

	if !p.Authenticated() {
		return domain.ErrUnauthenticated
	}

	return s.serializer.Do(ctx, eventID, func(ctx context.Context) error {
		event, err := loadEvent(ctx, s.events, eventID)
		if err != nil {
			return err
		}
		guest, err := s.guests.FindByID(ctx, guestID)
		if err != nil {
			if errors.Is(err, domain.ErrGuestNotFound) {
				return domain.ErrGuestNotFound
			}
			return fmt.Errorf("remove guest: find guest: %w", err)
		}
		if guest.EventID != eventID {
			return domain.ErrGuestNotFound
		}
		if err := s.authorizeGuests(p, event); err != nil {
			return err
		}

		// 1. Unlink.
		if event.HasGuest(guestID) {
			next := event.Clone()
			next.DetachGuest(guestID)
			next.UpdatedAt = time.Now().UTC()
			if _, err := s.events.Update(ctx, next); err != nil {
				return storeErr("remove guest", err)
			}
		}

		// 2. Delete.
		if err := s.guests.Delete(ctx, guestID); err != nil {
			return fmt.Errorf("remove guest: delete guest: %w", err)
		}
		s.log.Info().Str("event_id", eventID).Str("guest_id", guestID).Msg("guest removed")
		return nil
	})
}
