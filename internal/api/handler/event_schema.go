package handler

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/corphub/events-api/internal/core/domain"
)

// eventDateLayouts are tried in order. The web client posts datetime-local
// values without a zone, which are taken as UTC.
var eventDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// eventDate accepts RFC 3339 as well as the shorter forms in eventDateLayouts.
type eventDate struct {
	time.Time
}

func (d *eventDate) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string")
	}
	s = strings.TrimSpace(s)
	for _, layout := range eventDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t
			return nil
		}
	}
	return fmt.Errorf("unrecognised date %q", s)
}

func (d eventDate) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Time)
}

// --- Request types ---

type speakerRequest struct {
	Name        string `json:"name"`
	Designation string `json:"designation"`
}

type createEventRequest struct {
	Title       string           `json:"title"       validate:"notblank"`
	Description string           `json:"description"`
	Date        *eventDate       `json:"date"        validate:"required"`
	Venue       string           `json:"venue"       validate:"notblank"`
	Agenda      string           `json:"agenda"`
	Capacity    int              `json:"capacity"    validate:"required,gt=0"`
	Speakers    []speakerRequest `json:"speakers"`
}

// editEventRequest distinguishes absent fields (nil) from supplied ones.
type editEventRequest struct {
	Title       *string           `json:"title"`
	Description *string           `json:"description"`
	Date        *eventDate        `json:"date"`
	Venue       *string           `json:"venue"`
	Agenda      *string           `json:"agenda"`
	Capacity    *int              `json:"capacity"`
	Speakers    *[]speakerRequest `json:"speakers"`
}

// addAttendeeRequest leaves the address format to the user lookup, so an
// unknown event still reports not found.
type addAttendeeRequest struct {
	Email string `json:"email" validate:"notblank"`
}

type addGuestRequest struct {
	Name  string `json:"name"  validate:"notblank,max=200"`
	Email string `json:"email" validate:"required,email"`
}

// --- Response types ---

type messageResponse struct {
	Message string `json:"message"`
}

type eventResponse struct {
	Message string        `json:"message"`
	Event   *domain.Event `json:"event"`
}

type attendeeResponse struct {
	Message string              `json:"message"`
	User    *domain.UserSummary `json:"user"`
}

type guestResponse struct {
	Message string        `json:"message"`
	Guest   *domain.Guest `json:"guest"`
}

// errorResponse documents the envelope written by the central error handler.
type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
