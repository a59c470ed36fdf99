package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/corphub/events-api/internal/core/domain"
)

const guestsCollection = "guests"

// GuestRepository implements ports.GuestRepository using MongoDB.
type GuestRepository struct {
	coll *mongo.Collection
}

func NewGuestRepository(db *mongo.Database) *GuestRepository {
	return &GuestRepository{coll: db.Collection(guestsCollection)}
}

type mongoGuest struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	Email     string             `bson:"email"`
	EventID   string             `bson:"event_id"`
	InvitedBy string             `bson:"invited_by"`
	CreatedAt time.Time          `bson:"created_at"`
}

func (mg *mongoGuest) toDomain() *domain.Guest {
	return &domain.Guest{
		ID:        mg.ID.Hex(),
		Name:      mg.Name,
		Email:     mg.Email,
		EventID:   mg.EventID,
		InvitedBy: mg.InvitedBy,
		CreatedAt: mg.CreatedAt.UTC(),
	}
}

func (r *GuestRepository) Create(ctx context.Context, g *domain.Guest) (*domain.Guest, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := mongoGuest{
		Name:      g.Name,
		Email:     g.Email,
		EventID:   g.EventID,
		InvitedBy: g.InvitedBy,
		CreatedAt: g.CreatedAt.UTC(),
	}
	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("insert guest: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		doc.ID = oid
	}
	return doc.toDomain(), nil
}

func (r *GuestRepository) FindByID(ctx context.Context, id string) (*domain.Guest, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrGuestNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoGuest
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrGuestNotFound
		}
		return nil, fmt.Errorf("find guest: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *GuestRepository) FindByIDs(ctx context.Context, ids []string) ([]*domain.Guest, error) {
	oids := objectIDs(ids)
	if len(oids) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return nil, fmt.Errorf("find guests: %w", err)
	}
	defer cur.Close(ctx)

	var docs []mongoGuest
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode guests: %w", err)
	}
	out := make([]*domain.Guest, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toDomain())
	}
	return out, nil
}

// Delete removes the guest document. A missing document is not an error.
func (r *GuestRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid}); err != nil {
		return fmt.Errorf("delete guest: %w", err)
	}
	return nil
}

// EnsureIndexes creates the event lookup index on the guests collection.
func (r *GuestRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "event_id", Value: 1}},
	})
	return err
}
