package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/corphub/events-api/internal/core/service"
	"github.com/corphub/events-api/internal/infrastructure/db/memory"
	"github.com/corphub/events-api/internal/infrastructure/queue"
)

const testSecret = "router-secret"

func newTestRouter(t *testing.T) *echo.Echo {
	t.Helper()
	store := memory.NewStore()
	log := zerolog.Nop()
	return NewRouter(Deps{
		Log:       log,
		JWTSecret: testSecret,
		Auth:      service.NewAuthService(store.Users(), testSecret, time.Hour, log),
		Events:    service.NewEventService(store.Events(), queue.Inline{}, nil, log),
		Membership: service.NewMembershipService(service.MembershipDeps{
			Events:     store.Events(),
			Users:      store.Users(),
			Guests:     store.Guests(),
			Serializer: queue.Inline{},
		}, log),
		Queries: service.NewQueryService(store.Events(), store.Users(), store.Guests(), log),
	})
}

func do(t *testing.T, e *echo.Echo, method, path, token, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	out := map[string]any{}
	if strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "{") {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("%s %s: invalid json %q", method, path, rec.Body.String())
		}
	}
	return rec.Code, out
}

func registerAndLogin(t *testing.T, e *echo.Echo, name, email string) (token, id string) {
	t.Helper()
	code, body := do(t, e, http.MethodPost, "/api/auth/register", "",
		`{"name":"`+name+`","email":"`+email+`","password":"pw123"}`)
	if code != http.StatusCreated {
		t.Fatalf("register %s: %d %v", email, code, body)
	}
	code, body = do(t, e, http.MethodPost, "/api/auth/login", "", `{"email":"`+email+`","password":"pw123"}`)
	if code != http.StatusOK {
		t.Fatalf("login %s: %d %v", email, code, body)
	}
	return body["token"].(string), body["user"].(map[string]any)["id"].(string)
}

func TestRouter_CapacityOneFlow(t *testing.T) {
	e := newTestRouter(t)
	ownerToken, _ := registerAndLogin(t, e, "Owner", "owner@corp.test")
	registerAndLogin(t, e, "Alice", "alice@corp.test")
	registerAndLogin(t, e, "Bob", "bob@corp.test")
	strangerToken, _ := registerAndLogin(t, e, "Stranger", "stranger@corp.test")

	code, body := do(t, e, http.MethodPost, "/api/events/create", ownerToken,
		`{"title":"Workshop","date":"2030-01-10T09:00","venue":"Room 1","capacity":1}`)
	if code != http.StatusCreated || body["message"] != "Event created successfully" {
		t.Fatalf("create: %d %v", code, body)
	}
	eventID := body["event"].(map[string]any)["id"].(string)
	base := "/api/events/" + eventID

	code, body = do(t, e, http.MethodPost, "/api/events/000000000000000000000000/add-attendee", ownerToken, `{"email":"not-an-address"}`)
	if code != http.StatusNotFound || body["kind"] != "not_found" {
		t.Fatalf("unknown event with odd email: %d %v", code, body)
	}
	code, body = do(t, e, http.MethodPost, base+"/add-attendee", ownerToken, `{"email":"not-an-address"}`)
	if code != http.StatusNotFound {
		t.Fatalf("unregistered email: %d %v", code, body)
	}

	code, body = do(t, e, http.MethodPost, base+"/add-attendee", ownerToken, `{"email":"alice@corp.test"}`)
	if code != http.StatusOK {
		t.Fatalf("add alice: %d %v", code, body)
	}
	aliceID := body["user"].(map[string]any)["id"].(string)

	code, body = do(t, e, http.MethodPost, base+"/add-attendee", ownerToken, `{"email":"bob@corp.test"}`)
	if code != http.StatusBadRequest || body["kind"] != "capacity_exceeded" {
		t.Fatalf("add bob: %d %v", code, body)
	}

	code, body = do(t, e, http.MethodPost, base+"/add-attendee", ownerToken, `{"email":"alice@corp.test"}`)
	if code != http.StatusBadRequest || body["kind"] != "conflict" {
		t.Fatalf("re-add alice: %d %v", code, body)
	}

	code, body = do(t, e, http.MethodDelete, base+"/remove-attendee/"+aliceID, strangerToken, "")
	if code != http.StatusForbidden || body["kind"] != "forbidden" {
		t.Fatalf("stranger remove: %d %v", code, body)
	}

	if code, body = do(t, e, http.MethodDelete, base+"/remove-attendee/"+aliceID, ownerToken, ""); code != http.StatusOK {
		t.Fatalf("remove alice: %d %v", code, body)
	}
	if code, body = do(t, e, http.MethodPost, base+"/add-attendee", ownerToken, `{"email":"bob@corp.test"}`); code != http.StatusOK {
		t.Fatalf("add bob after removal: %d %v", code, body)
	}

	code, body = do(t, e, http.MethodGet, base, ownerToken, "")
	if code != http.StatusOK {
		t.Fatalf("get: %d %v", code, body)
	}
	attendees := body["attendees"].([]any)
	if len(attendees) != 1 || attendees[0].(map[string]any)["name"] != "Bob" {
		t.Fatalf("expected only Bob attending, got %v", attendees)
	}
}

func TestRouter_AuthBoundaries(t *testing.T) {
	e := newTestRouter(t)

	if code, _ := do(t, e, http.MethodGet, "/api/events", "", ""); code != http.StatusOK {
		t.Fatalf("list must be open, got %d", code)
	}
	code, body := do(t, e, http.MethodPost, "/api/events/create", "", `{"title":"x"}`)
	if code != http.StatusUnauthorized || body["kind"] != "unauthenticated" {
		t.Fatalf("create without token: %d %v", code, body)
	}
	if code, _ := do(t, e, http.MethodGet, "/api/events/search-users?query=a", "garbage", ""); code != http.StatusUnauthorized {
		t.Fatalf("search with bad token: %d", code)
	}

	code, body = do(t, e, http.MethodPost, "/api/auth/login", "", `{"email":"ghost@corp.test","password":"x"}`)
	if code != http.StatusUnauthorized {
		t.Fatalf("login unknown user: %d %v", code, body)
	}
}

func TestRouter_OpsEndpoints(t *testing.T) {
	e := newTestRouter(t)

	if code, body := do(t, e, http.MethodGet, "/health", "", ""); code != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("health: %d %v", code, body)
	}
	if code, _ := do(t, e, http.MethodGet, "/health/ready", "", ""); code != http.StatusOK {
		t.Fatalf("ready: %d", code)
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "http_requests_total") {
		t.Fatalf("metrics: %d", rec.Code)
	}
}
