package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/corphub/events-api/internal/core/domain"
	"github.com/corphub/events-api/internal/core/ports"
)

const eventsCollection = "events"

// EventRepository implements ports.EventRepository using MongoDB.
type EventRepository struct {
	coll *mongo.Collection
}

// NewEventRepository creates a new EventRepository.
func NewEventRepository(db *mongo.Database) *EventRepository {
	return &EventRepository{coll: db.Collection(eventsCollection)}
}

// mongoEvent stores user and guest references as hex ids.
type mongoEvent struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	Date        time.Time          `bson:"date"`
	Venue       string             `bson:"venue"`
	Agenda      string             `bson:"agenda"`
	Capacity    int                `bson:"capacity"`
	Speakers    []domain.Speaker   `bson:"speakers"`
	Attendees   []string           `bson:"attendees"`
	Guests      []string           `bson:"guests"`
	CreatedBy   string             `bson:"created_by"`
	Version     int64              `bson:"version"`
	CreatedAt   time.Time          `bson:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at"`
}

func toMongoEvent(e *domain.Event) mongoEvent {
	doc := mongoEvent{
		Title:       e.Title,
		Description: e.Description,
		Date:        e.Date.UTC(),
		Venue:       e.Venue,
		Agenda:      e.Agenda,
		Capacity:    e.Capacity,
		Speakers:    e.Speakers,
		Attendees:   e.Attendees,
		Guests:      e.Guests,
		CreatedBy:   e.CreatedBy,
		Version:     e.Version,
		CreatedAt:   e.CreatedAt.UTC(),
		UpdatedAt:   e.UpdatedAt.UTC(),
	}
	if doc.Speakers == nil {
		doc.Speakers = []domain.Speaker{}
	}
	if doc.Attendees == nil {
		doc.Attendees = []string{}
	}
	if doc.Guests == nil {
		doc.Guests = []string{}
	}
	return doc
}

func (me *mongoEvent) toDomain() *domain.Event {
	return &domain.Event{
		ID:          me.ID.Hex(),
		Title:       me.Title,
		Description: me.Description,
		Date:        me.Date.UTC(),
		Venue:       me.Venue,
		Agenda:      me.Agenda,
		Capacity:    me.Capacity,
		Speakers:    me.Speakers,
		Attendees:   me.Attendees,
		Guests:      me.Guests,
		CreatedBy:   me.CreatedBy,
		Version:     me.Version,
		CreatedAt:   me.CreatedAt.UTC(),
		UpdatedAt:   me.UpdatedAt.UTC(),
	}
}

// Create inserts a new event document with version 1.
func (r *EventRepository) Create(ctx context.Context, e *domain.Event) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := toMongoEvent(e)
	doc.Version = 1
	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		doc.ID = oid
	}
	return doc.toDomain(), nil
}

func (r *EventRepository) FindByID(ctx context.Context, id string) (*domain.Event, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrEventNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoEvent
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrEventNotFound
		}
		return nil, fmt.Errorf("find event: %w", err)
	}
	return doc.toDomain(), nil
}

// List returns the events matching filter, most recent date first.
func (r *EventRepository) List(ctx context.Context, f ports.EventFilter) ([]*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{}
	if f.AttendeeID != "" {
		filter["attendees"] = f.AttendeeID
	}
	date := bson.M{}
	if !f.After.IsZero() {
		date["$gte"] = f.After.UTC()
	}
	if !f.Before.IsZero() {
		date["$lt"] = f.Before.UTC()
	}
	if len(date) > 0 {
		filter["date"] = date
	}

	cur, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "date", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer cur.Close(ctx)

	var docs []mongoEvent
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}
	out := make([]*domain.Event, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toDomain())
	}
	return out, nil
}

// Update replaces the event only when the stored version still equals
// e.Version, bumping the version in the same write.
func (r *EventRepository) Update(ctx context.Context, e *domain.Event) (*domain.Event, error) {
	oid, err := primitive.ObjectIDFromHex(e.ID)
	if err != nil {
		return nil, domain.ErrEventNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := toMongoEvent(e)
	doc.ID = oid
	doc.Version = e.Version + 1

	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": oid, "version": e.Version}, doc)
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	if res.MatchedCount == 0 {
		n, err := r.coll.CountDocuments(ctx, bson.M{"_id": oid})
		if err != nil {
			return nil, fmt.Errorf("update event: %w", err)
		}
		if n == 0 {
			return nil, domain.ErrEventNotFound
		}
		return nil, domain.ErrStaleEvent
	}
	return doc.toDomain(), nil
}

// EnsureIndexes creates the query indexes on the events collection.
func (r *EventRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "date", Value: -1}}},
		{Keys: bson.D{{Key: "created_by", Value: 1}}},
		{Keys: bson.D{{Key: "attendees", Value: 1}}},
	}

	_, err := r.coll.Indexes().CreateMany(ctx, indexes)
	return err
}
