package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/corphub/events-api/internal/api"
	"github.com/corphub/events-api/internal/core/domain"
	"github.com/corphub/events-api/internal/core/service"
	"github.com/corphub/events-api/internal/infrastructure/db/memory"
	"github.com/corphub/events-api/internal/infrastructure/queue"
)

const secret = "client-test-secret"

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	log := zerolog.Nop()
	store := memory.NewStore()
	dispatcher := queue.NewDispatcher(2, log)
	dispatcher.Start(ctx)

	srv := httptest.NewServer(api.NewRouter(api.Deps{
		Log:       log,
		JWTSecret: secret,
		Auth:      service.NewAuthService(store.Users(), secret, time.Hour, log),
		Events:    service.NewEventService(store.Events(), dispatcher, nil, log),
		Membership: service.NewMembershipService(service.MembershipDeps{
			Events:     store.Events(),
			Users:      store.Users(),
			Guests:     store.Guests(),
			Serializer: dispatcher,
		}, log),
		Queries: service.NewQueryService(store.Events(), store.Users(), store.Guests(), log),
	}))
	t.Cleanup(srv.Close)
	return srv
}

func login(t *testing.T, baseURL, name, email string) (*Client, *User) {
	t.Helper()
	ctx := context.Background()
	c := New(baseURL)
	_, err := c.Register(ctx, RegisterRequest{Name: name, Email: email, Password: "pw-" + name})
	require.NoError(t, err)
	u, err := c.Login(ctx, email, "pw-"+name)
	require.NoError(t, err)
	require.NotEmpty(t, c.Token())
	return c, u
}

func TestClient_EndToEnd(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()

	owner, _ := login(t, srv.URL, "Olivia", "olivia@corp.test")
	_, alice := login(t, srv.URL, "Alice", "alice@corp.test")
	stranger, _ := login(t, srv.URL, "Sam", "sam@corp.test")

	date := time.Now().Add(72 * time.Hour).UTC().Truncate(time.Second)
	event, err := owner.CreateEvent(ctx, CreateEventRequest{
		Title:    "Planning",
		Date:     date,
		Venue:    "Room 4",
		Capacity: 2,
		Speakers: []Speaker{{Name: "Olivia", Designation: "Director"}},
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), event.Version)
	require.True(t, event.Date.Equal(date))

	summary, err := owner.AddAttendee(ctx, event.ID, "alice@corp.test")
	require.NoError(t, err)
	require.Equal(t, alice.ID, summary.ID)

	_, err = owner.AddAttendee(ctx, event.ID, "alice@corp.test")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusBadRequest, apiErr.Status)
	require.Equal(t, string(domain.KindConflict), apiErr.Kind)

	found, err := owner.SearchUsers(ctx, "ALI")
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, "alice@corp.test", found[0].Email)

	upcoming, err := New(srv.URL).ListEvents(ctx, ListOptions{When: "upcoming", Attendee: alice.ID})
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	require.Equal(t, event.ID, upcoming[0].ID)

	guest, err := owner.AddGuest(ctx, event.ID, GuestRequest{Name: "Victor", Email: "victor@partner.test"})
	require.NoError(t, err)
	require.Equal(t, event.ID, guest.EventID)

	view, err := owner.GetEvent(ctx, event.ID)
	require.NoError(t, err)
	require.Len(t, view.Attendees, 1)
	require.Len(t, view.Guests, 1)
	require.Equal(t, "Olivia", view.CreatedBy.Name)

	err = stranger.RemoveAttendee(ctx, event.ID, alice.ID)
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusForbidden, apiErr.Status)

	require.NoError(t, owner.RemoveGuest(ctx, event.ID, guest.ID))
	require.NoError(t, owner.RemoveAttendee(ctx, event.ID, alice.ID))
	require.NoError(t, owner.RemoveAttendee(ctx, event.ID, alice.ID), "removing an absent attendee succeeds")

	title := "Planning (moved)"
	capacity := 0
	edited, err := owner.EditEvent(ctx, event.ID, EditEventRequest{Title: &title, Capacity: &capacity})
	require.NoError(t, err)
	require.Equal(t, title, edited.Title)
	require.Equal(t, 2, edited.Capacity)

	view, err = owner.GetEvent(ctx, event.ID)
	require.NoError(t, err)
	require.Empty(t, view.Attendees)
	require.Empty(t, view.Guests)
}

func TestClient_UnauthenticatedCall(t *testing.T) {
	srv := newServer(t)

	_, err := New(srv.URL).CreateEvent(context.Background(), CreateEventRequest{Title: "x"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusUnauthorized, apiErr.Status)
	require.Equal(t, string(domain.KindUnauthenticated), apiErr.Kind)
}

func TestBearerTransport_AttachesToken(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL, WithToken("abc"))
	require.NoError(t, c.RemoveGuest(context.Background(), "e", "g"))
	require.Equal(t, "Bearer abc", got)

	c.SetToken("")
	require.NoError(t, c.RemoveGuest(context.Background(), "e", "g"))
	require.Empty(t, got)
}

func TestClient_ExportsOnlyPublicTypes(t *testing.T) {
	var check func(where string, typ reflect.Type)
	check = func(where string, typ reflect.Type) {
		for typ.Kind() == reflect.Pointer || typ.Kind() == reflect.Slice {
			typ = typ.Elem()
		}
		require.False(t, strings.Contains(typ.PkgPath(), "/internal/"), "%s uses %s", where, typ)
	}

	ct := reflect.TypeOf(&Client{})
	for i := range ct.NumMethod() {
		m := ct.Method(i)
		for j := range m.Type.NumIn() {
			check(m.Name, m.Type.In(j))
		}
		for j := range m.Type.NumOut() {
			check(m.Name, m.Type.Out(j))
		}
	}
}
