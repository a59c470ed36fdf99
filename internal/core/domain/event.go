package domain

import (
	"slices"
	"time"
)

// Speaker is a presenter listed on an event, in display order.
type Speaker struct {
	Name        string `json:"name" bson:"name"`
	Designation string `json:"designation" bson:"designation"`
}

// Event is the aggregate root for membership. Attendees and Guests hold
// record ids; they are resolved to display data only on read paths.
type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	Venue       string    `json:"venue"`
	Agenda      string    `json:"agenda"`
	Capacity    int       `json:"capacity"`
	Speakers    []Speaker `json:"speakers"`
	Attendees   []string  `json:"attendees"`
	Guests      []string  `json:"guests"`
	CreatedBy   string    `json:"created_by"`
	Version     int64     `json:"version"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// OwnedBy reports whether userID created the event.
func (e *Event) OwnedBy(userID string) bool {
	return userID != "" && e.CreatedBy == userID
}

// HasAttendee reports whether userID is in the attendee set.
func (e *Event) HasAttendee(userID string) bool {
	return slices.Contains(e.Attendees, userID)
}

// Full reports whether no further attendee can be admitted.
func (e *Event) Full() bool {
	return len(e.Attendees) >= e.Capacity
}

// Admit appends userID to the attendee set. Duplicate is checked before
// capacity so a full event still reports a repeat admission as a conflict.
func (e *Event) Admit(userID string) error {
	if e.HasAttendee(userID) {
		return ErrAlreadyAttending
	}
	if e.Full() {
		return ErrCapacityExceeded
	}
	e.Attendees = append(e.Attendees, userID)
	return nil
}

// Dismiss removes userID from the attendee set and reports whether it was present.
func (e *Event) Dismiss(userID string) bool {
	n := len(e.Attendees)
	e.Attendees = slices.DeleteFunc(e.Attendees, func(id string) bool { return id == userID })
	return len(e.Attendees) != n
}

// HasGuest reports whether guestID is on the guest list.
func (e *Event) HasGuest(guestID string) bool {
	return slices.Contains(e.Guests, guestID)
}

// AttachGuest appends guestID to the guest list. Guests do not count against capacity.
func (e *Event) AttachGuest(guestID string) {
	if !e.HasGuest(guestID) {
		e.Guests = append(e.Guests, guestID)
	}
}

// DetachGuest removes guestID from the guest list and reports whether it was present.
func (e *Event) DetachGuest(guestID string) bool {
	n := len(e.Guests)
	e.Guests = slices.DeleteFunc(e.Guests, func(id string) bool { return id == guestID })
	return len(e.Guests) != n
}

// Clone returns a deep copy, so a failed write never leaks mutations to the caller's copy.
func (e *Event) Clone() *Event {
	c := *e
	c.Speakers = slices.Clone(e.Speakers)
	c.Attendees = slices.Clone(e.Attendees)
	c.Guests = slices.Clone(e.Guests)
	return &c
}

// Guest is an invitee tracked per event, outside the attendee capacity.
type Guest struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	EventID   string    `json:"event"`
	InvitedBy string    `json:"invited_by"`
	CreatedAt time.Time `json:"created_at"`
}

// Contact is the {name, email} projection used on resolved event views.
type Contact struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// EventView is an event with its references resolved for display.
type EventView struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	Venue       string    `json:"venue"`
	Agenda      string    `json:"agenda"`
	Capacity    int       `json:"capacity"`
	Speakers    []Speaker `json:"speakers"`
	CreatedBy   *Contact  `json:"created_by"`
	Attendees   []Contact `json:"attendees"`
	Guests      []Contact `json:"guests"`
	CreatedAt   time.Time `json:"created_at"`
}
