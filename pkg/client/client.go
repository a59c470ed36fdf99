// Package client is a Go client for the events HTTP API.
//
// Authenticated calls carry the token obtained from Login (or set with
// SetToken) through an http.RoundTripper that adds the Authorization header.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const defaultTimeout = 15 * time.Second

// APIError is a non-2xx response decoded from the error envelope.
type APIError struct {
	Status  int
	Message string
	Kind    string
}

func (e *APIError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("events api: %d %s: %s", e.Status, e.Kind, e.Message)
	}
	return fmt.Sprintf("events api: %d: %s", e.Status, e.Message)
}

// Client talks to one API base URL.
type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying transport client. Its Transport is
// wrapped so the bearer token is still attached.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken starts the client with an existing token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New returns a Client for baseURL, e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	hc := *c.http
	hc.Transport = &bearerTransport{base: hc.Transport, token: c.Token}
	c.http = &hc
	return c
}

// Token returns the token currently attached to requests.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken replaces the token attached to requests. Empty clears it.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

type bearerTransport struct {
	base  http.RoundTripper
	token func() string
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	token := t.token()
	if token == "" || req.Header.Get("Authorization") != "" {
		return base.RoundTrip(req)
	}
	r := req.Clone(req.Context())
	r.Header.Set("Authorization", "Bearer "+token)
	return base.RoundTrip(r)
}

// --- Request / response types ---

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

type Speaker struct {
	Name        string `json:"name"`
	Designation string `json:"designation"`
}

type CreateEventRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Date        time.Time `json:"date"`
	Venue       string    `json:"venue"`
	Agenda      string    `json:"agenda,omitempty"`
	Capacity    int       `json:"capacity"`
	Speakers    []Speaker `json:"speakers,omitempty"`
	// IdempotencyKey is sent as the Idempotency-Key header.
	IdempotencyKey string `json:"-"`
}

// EditEventRequest sends only the non-nil fields.
type EditEventRequest struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Date        *time.Time `json:"date,omitempty"`
	Venue       *string    `json:"venue,omitempty"`
	Agenda      *string    `json:"agenda,omitempty"`
	Capacity    *int       `json:"capacity,omitempty"`
	Speakers    *[]Speaker `json:"speakers,omitempty"`
}

type GuestRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	// IdempotencyKey is sent as the Idempotency-Key header.
	IdempotencyKey string `json:"-"`
}

// ListOptions narrows ListEvents.
type ListOptions struct {
	When     string // "upcoming" or "past"
	Attendee string
}

// User is a registered account.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Contact is the id, name and email of a user or guest.
type Contact struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Event is an event as stored, with attendees and guests as ids.
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

// EventView is an event with its creator, attendees and guests resolved.
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

type Guest struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	EventID   string    `json:"event"`
	InvitedBy string    `json:"invited_by"`
	CreatedAt time.Time `json:"created_at"`
}

type authResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

type eventResponse struct {
	Message string `json:"message"`
	Event   *Event `json:"event"`
}

type attendeeResponse struct {
	Message string   `json:"message"`
	User    *Contact `json:"user"`
}

type guestResponse struct {
	Message string `json:"message"`
	Guest   *Guest `json:"guest"`
}

// --- Auth ---

func (c *Client) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	var out authResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", nil, req, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

// Login authenticates and keeps the returned token for subsequent calls.
func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	var out authResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", nil, body, &out); err != nil {
		return nil, err
	}
	c.SetToken(out.Token)
	return out.User, nil
}

// --- Events ---

func (c *Client) CreateEvent(ctx context.Context, req CreateEventRequest) (*Event, error) {
	var out eventResponse
	if err := c.do(ctx, http.MethodPost, "/api/events/create", idempotency(req.IdempotencyKey), req, &out); err != nil {
		return nil, err
	}
	return out.Event, nil
}

func (c *Client) EditEvent(ctx context.Context, eventID string, req EditEventRequest) (*Event, error) {
	var out eventResponse
	if err := c.do(ctx, http.MethodPut, "/api/events/edit/"+url.PathEscape(eventID), nil, req, &out); err != nil {
		return nil, err
	}
	return out.Event, nil
}

func (c *Client) ListEvents(ctx context.Context, opts ListOptions) ([]EventView, error) {
	q := url.Values{}
	if opts.When != "" {
		q.Set("when", opts.When)
	}
	if opts.Attendee != "" {
		q.Set("attendee", opts.Attendee)
	}
	path := "/api/events"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out []EventView
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetEvent(ctx context.Context, eventID string) (*EventView, error) {
	var out EventView
	if err := c.do(ctx, http.MethodGet, "/api/events/"+url.PathEscape(eventID), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SearchUsers(ctx context.Context, query string) ([]Contact, error) {
	var out []Contact
	path := "/api/events/search-users?" + url.Values{"query": {query}}.Encode()
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// --- Membership ---

func (c *Client) AddAttendee(ctx context.Context, eventID, email string) (*Contact, error) {
	var out attendeeResponse
	path := "/api/events/" + url.PathEscape(eventID) + "/add-attendee"
	if err := c.do(ctx, http.MethodPost, path, nil, map[string]string{"email": email}, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

func (c *Client) RemoveAttendee(ctx context.Context, eventID, userID string) error {
	path := "/api/events/" + url.PathEscape(eventID) + "/remove-attendee/" + url.PathEscape(userID)
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}

func (c *Client) AddGuest(ctx context.Context, eventID string, req GuestRequest) (*Guest, error) {
	var out guestResponse
	path := "/api/events/" + url.PathEscape(eventID) + "/add-guest"
	if err := c.do(ctx, http.MethodPost, path, idempotency(req.IdempotencyKey), req, &out); err != nil {
		return nil, err
	}
	return out.Guest, nil
}

func (c *Client) RemoveGuest(ctx context.Context, eventID, guestID string) error {
	path := "/api/events/" + url.PathEscape(eventID) + "/remove-guest/" + url.PathEscape(guestID)
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}

func idempotency(key string) http.Header {
	if key == "" {
		return nil
	}
	return http.Header{"Idempotency-Key": {key}}
}

func (c *Client) do(ctx context.Context, method, path string, header http.Header, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	for k, v := range header {
		req.Header[k] = v
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode}
		var envelope struct {
			Error string `json:"error"`
			Kind  string `json:"kind"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil {
			apiErr.Message, apiErr.Kind = envelope.Error, envelope.Kind
		} else {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
