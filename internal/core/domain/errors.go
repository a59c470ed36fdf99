package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure so the transport layer can map it to a
// response without inspecting individual sentinels.
type ErrorKind string

const (
	KindUnauthenticated  ErrorKind = "unauthenticated"
	KindValidation       ErrorKind = "validation"
	KindForbidden        ErrorKind = "forbidden"
	KindNotFound         ErrorKind = "not_found"
	KindConflict         ErrorKind = "conflict"
	KindCapacityExceeded ErrorKind = "capacity_exceeded"
	KindStale            ErrorKind = "stale"
	KindUserExists       ErrorKind = "user_exists"
	KindStoreFailure     ErrorKind = "store_failure"
)

var (
	ErrUnauthenticated    = errors.New("authentication required")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrValidation         = errors.New("validation failed")
	ErrForbidden          = errors.New("access forbidden")
	ErrNotFound           = errors.New("not found")
	ErrAlreadyAttending   = errors.New("user is already an attendee")
	ErrCapacityExceeded   = errors.New("event is at full capacity")
	ErrStaleEvent         = errors.New("event was modified concurrently")
	ErrUserExists         = errors.New("user already exists")
)

// Not-found sentinels wrap ErrNotFound so callers can match either the
// specific record type or the whole class.
var (
	ErrEventNotFound = fmt.Errorf("event %w", ErrNotFound)
	ErrUserNotFound  = fmt.Errorf("user %w", ErrNotFound)
	ErrGuestNotFound = fmt.Errorf("guest %w", ErrNotFound)
)

// Invalid returns an ErrValidation carrying a human-readable reason.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// KindOf reports the kind of err. Anything unrecognised is a store failure.
func KindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrUnauthenticated), errors.Is(err, ErrInvalidCredentials):
		return KindUnauthenticated
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrAlreadyAttending):
		return KindConflict
	case errors.Is(err, ErrCapacityExceeded):
		return KindCapacityExceeded
	case errors.Is(err, ErrStaleEvent):
		return KindStale
	case errors.Is(err, ErrUserExists):
		return KindUserExists
	default:
		return KindStoreFailure
	}
}
