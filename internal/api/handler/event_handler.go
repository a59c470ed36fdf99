package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/corphub/events-api/internal/core/ports"
)

// IdempotencyHeader lets clients retry creates without duplicating records.
const IdempotencyHeader = "Idempotency-Key"

// EventHandler handles HTTP requests for events and their membership.
type EventHandler struct {
	events     ports.EventService
	membership ports.MembershipService
	queries    ports.QueryService
}

func NewEventHandler(events ports.EventService, membership ports.MembershipService, queries ports.QueryService) *EventHandler {
	return &EventHandler{events: events, membership: membership, queries: queries}
}

// Create godoc
//
// @Summary      Create an event
// @Description  The caller becomes the owner. Repeating a request with the same Idempotency-Key returns the original event.
// @Tags         events
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        Idempotency-Key  header    string              false  "Client-generated key"
// @Param        body             body      createEventRequest  true   "Event details"
// @Success      201              {object}  eventResponse
// @Failure      400              {object}  errorResponse
// @Failure      401              {object}  errorResponse
// @Failure      500              {object}  errorResponse
// @Router       /api/events/create [post]
func (h *EventHandler) Create(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	var req createEventRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	key := strings.TrimSpace(c.Request().Header.Get(IdempotencyHeader))
	event, err := h.events.Create(c.Request().Context(), p, toCreateInput(req, key))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, eventResponse{Message: "Event created successfully", Event: event})
}

// List godoc
//
// @Summary      List events
// @Description  Open read. Events are ordered by date, most recent first.
// @Tags         events
// @Produce      json
// @Param        when      query     string  false  "upcoming or past"
// @Param        attendee  query     string  false  "Only events this user id attends"
// @Success      200       {array}   domain.EventView
// @Failure      400       {object}  errorResponse
// @Failure      500       {object}  errorResponse
// @Router       /api/events [get]
func (h *EventHandler) List(c echo.Context) error {
	views, err := h.queries.ListEvents(c.Request().Context(), ports.ListEventsInput{
		When:       strings.ToLower(strings.TrimSpace(c.QueryParam("when"))),
		AttendeeID: strings.TrimSpace(c.QueryParam("attendee")),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, views)
}

// Get godoc
//
// @Summary      Get an event
// @Tags         events
// @Produce      json
// @Security     BearerAuth
// @Param        eventId  path      string  true  "Event ID"
// @Success      200      {object}  domain.EventView
// @Failure      401      {object}  errorResponse
// @Failure      404      {object}  errorResponse
// @Failure      500      {object}  errorResponse
// @Router       /api/events/{eventId} [get]
func (h *EventHandler) Get(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	view, err := h.queries.GetEvent(c.Request().Context(), p, c.Param("eventId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, view)
}

// SearchUsers godoc
//
// @Summary      Search users by name or email
// @Tags         events
// @Produce      json
// @Security     BearerAuth
// @Param        query  query     string  true  "Case-insensitive substring"
// @Success      200    {array}   domain.UserSummary
// @Failure      400    {object}  errorResponse
// @Failure      401    {object}  errorResponse
// @Failure      500    {object}  errorResponse
// @Router       /api/events/search-users [get]
func (h *EventHandler) SearchUsers(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	users, err := h.queries.SearchUsers(c.Request().Context(), p, c.QueryParam("query"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, users)
}

// Edit godoc
//
// @Summary      Edit an event
// @Description  Only supplied, non-empty fields are changed. Owner only.
// @Tags         events
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        eventId  path      string            true  "Event ID"
// @Param        body     body      editEventRequest  true  "Fields to change"
// @Success      200      {object}  eventResponse
// @Failure      400      {object}  errorResponse
// @Failure      403      {object}  errorResponse
// @Failure      404      {object}  errorResponse
// @Failure      409      {object}  errorResponse
// @Failure      500      {object}  errorResponse
// @Router       /api/events/edit/{eventId} [put]
func (h *EventHandler) Edit(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	var req editEventRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	event, err := h.events.Edit(c.Request().Context(), p, c.Param("eventId"), toEditInput(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, eventResponse{Message: "Event updated successfully", Event: event})
}

// AddAttendee godoc
//
// @Summary      Add an attendee by email
// @Tags         membership
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        eventId  path      string              true  "Event ID"
// @Param        body     body      addAttendeeRequest  true  "Registered user's email"
// @Success      200      {object}  attendeeResponse
// @Failure      400      {object}  errorResponse  "Already attending, event full or invalid email"
// @Failure      403      {object}  errorResponse
// @Failure      404      {object}  errorResponse
// @Failure      409      {object}  errorResponse
// @Failure      500      {object}  errorResponse
// @Router       /api/events/{eventId}/add-attendee [post]
func (h *EventHandler) AddAttendee(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	var req addAttendeeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.membership.AddAttendee(c.Request().Context(), p, c.Param("eventId"), req.Email)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, attendeeResponse{Message: "Attendee added successfully", User: user})
}

// RemoveAttendee godoc
//
// @Summary      Remove an attendee
// @Description  Removing a user who is not attending succeeds.
// @Tags         membership
// @Produce      json
// @Security     BearerAuth
// @Param        eventId  path      string  true  "Event ID"
// @Param        userId   path      string  true  "User ID"
// @Success      200      {object}  messageResponse
// @Failure      403      {object}  errorResponse
// @Failure      404      {object}  errorResponse
// @Failure      409      {object}  errorResponse
// @Failure      500      {object}  errorResponse
// @Router       /api/events/{eventId}/remove-attendee/{userId} [delete]
func (h *EventHandler) RemoveAttendee(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	if err := h.membership.RemoveAttendee(c.Request().Context(), p, c.Param("eventId"), c.Param("userId")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Attendee removed successfully"})
}

// AddGuest godoc
//
// @Summary      Invite a guest
// @Description  Guests do not count against capacity. The guest receives an invitation email.
// @Tags         membership
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        eventId          path      string           true   "Event ID"
// @Param        Idempotency-Key  header    string           false  "Client-generated key"
// @Param        body             body      addGuestRequest  true   "Guest details"
// @Success      201              {object}  guestResponse
// @Failure      400              {object}  errorResponse
// @Failure      404              {object}  errorResponse
// @Failure      500              {object}  errorResponse
// @Router       /api/events/{eventId}/add-guest [post]
func (h *EventHandler) AddGuest(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	var req addGuestRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	guest, err := h.membership.AddGuest(c.Request().Context(), p, c.Param("eventId"), ports.GuestInput{
		Name:           req.Name,
		Email:          req.Email,
		IdempotencyKey: strings.TrimSpace(c.Request().Header.Get(IdempotencyHeader)),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, guestResponse{Message: "Guest added successfully", Guest: guest})
}

// RemoveGuest godoc
//
// @Summary      Remove a guest
// @Tags         membership
// @Produce      json
// @Security     BearerAuth
// @Param        eventId  path      string  true  "Event ID"
// @Param        guestId  path      string  true  "Guest ID"
// @Success      200      {object}  messageResponse
// @Failure      403      {object}  errorResponse
// @Failure      404      {object}  errorResponse
// @Failure      500      {object}  errorResponse
// @Router       /api/events/{eventId}/remove-guest/{guestId} [delete]
func (h *EventHandler) RemoveGuest(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	if err := h.membership.RemoveGuest(c.Request().Context(), p, c.Param("eventId"), c.Param("guestId")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Guest removed successfully"})
}
