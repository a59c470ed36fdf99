package mongo

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/corphub/events-api/internal/core/domain"
)

func TestMalformedIDsAreNotFound(t *testing.T) {
	ctx := context.Background()

	if _, err := (&EventRepository{}).FindByID(ctx, "not-an-object-id"); !errors.Is(err, domain.ErrEventNotFound) {
		t.Fatalf("event: expected ErrEventNotFound, got %v", err)
	}
	if _, err := (&EventRepository{}).Update(ctx, &domain.Event{ID: "zzz"}); !errors.Is(err, domain.ErrEventNotFound) {
		t.Fatalf("event update: expected ErrEventNotFound, got %v", err)
	}
	if _, err := (&UserRepository{}).FindByID(ctx, "42"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("user: expected ErrUserNotFound, got %v", err)
	}
	if _, err := (&GuestRepository{}).FindByID(ctx, ""); !errors.Is(err, domain.ErrGuestNotFound) {
		t.Fatalf("guest: expected ErrGuestNotFound, got %v", err)
	}
	if err := (&GuestRepository{}).Delete(ctx, "nope"); err != nil {
		t.Fatalf("guest delete of malformed id must be a no-op, got %v", err)
	}
}

func TestObjectIDs_SkipsMalformed(t *testing.T) {
	valid := primitive.NewObjectID()
	got := objectIDs([]string{valid.Hex(), "bogus", ""})
	if len(got) != 1 || got[0] != valid {
		t.Fatalf("unexpected ids: %v", got)
	}
}

func TestMongoEvent_RoundTrip(t *testing.T) {
	oid := primitive.NewObjectID()
	date := time.Date(2030, 5, 4, 10, 0, 0, 0, time.UTC)

	doc := toMongoEvent(&domain.Event{Title: "Offsite", Date: date, Capacity: 5, Version: 3})
	if doc.Attendees == nil || doc.Guests == nil || doc.Speakers == nil {
		t.Fatal("nil sets must be stored as empty arrays")
	}
	doc.ID = oid

	e := doc.toDomain()
	if e.ID != oid.Hex() || e.Title != "Offsite" || !e.Date.Equal(date) || e.Version != 3 {
		t.Fatalf("unexpected event: %+v", e)
	}
}

func TestUnixToTime(t *testing.T) {
	if !unixToTime(0).IsZero() {
		t.Fatal("zero timestamp must map to the zero time")
	}
	if got := unixToTime(1700000000); got.Location() != time.UTC || got.Unix() != 1700000000 {
		t.Fatalf("unexpected time: %v", got)
	}
}

func TestConnect_RequiresDatabase(t *testing.T) {
	if _, _, err := Connect(context.Background(), Config{URI: "mongodb://localhost:27017"}); err == nil {
		t.Fatal("expected an error without a database name")
	}
}
