package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mansoorceksport/frontdesk/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoMemberRepository implements domain.MemberRepository
type MongoMemberRepository struct {
	collection *mongo.Collection
}

func NewMongoMemberRepository(db *mongo.Database) *MongoMemberRepository {
	coll := db.Collection("members")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, _ = coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "full_name", Value: 1}}},
		{Keys: bson.D{{Key: "phone", Value: 1}}},
	})

	return &MongoMemberRepository{
		collection: coll,
	}
}

func (r *MongoMemberRepository) Create(ctx context.Context, member *domain.Member) error {
	member.CreatedAt = time.Now()

	result, err := r.collection.InsertOne(ctx, member)
	if err != nil {
		return fmt.Errorf("failed to create member: %w", err)
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		member.ID = oid.Hex()
	}
	return nil
}

func (r *MongoMemberRepository) GetByID(ctx context.Context, id string) (*domain.Member, error) {
	filter, err := liveByID(id)
	if err != nil {
		return nil, err
	}

	var member domain.Member
	if err := r.collection.FindOne(ctx, filter).Decode(&member); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return &member, nil
}

// GetByIDs returns the live members among ids keyed by id.
func (r *MongoMemberRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*domain.Member, error) {
	out := make(map[string]*domain.Member, len(ids))
	oids := objectIDs(ids)
	if len(oids) == 0 {
		return out, nil
	}

	cursor, err := r.collection.Find(ctx, live(bson.M{"_id": bson.M{"$in": oids}}))
	if err != nil {
		return nil, fmt.Errorf("failed to get members: %w", err)
	}
	defer cursor.Close(ctx)

	var members []*domain.Member
	if err := cursor.All(ctx, &members); err != nil {
		return nil, err
	}
	for _, m := range members {
		out[m.ID] = m
	}
	return out, nil
}

func (r *MongoMemberRepository) List(ctx context.Context) ([]*domain.Member, error) {
	opts := options.Find().SetSort(bson.D{{Key: "full_name", Value: 1}})
	cursor, err := r.collection.Find(ctx, live(nil), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer cursor.Close(ctx)

	members := []*domain.Member{}
	if err := cursor.All(ctx, &members); err != nil {
		return nil, err
	}
	return members, nil
}

func (r *MongoMemberRepository) Count(ctx context.Context) (int64, error) {
	return r.collection.CountDocuments(ctx, live(nil))
}

func (r *MongoMemberRepository) SoftDelete(ctx context.Context, id string) error {
	return softDelete(ctx, r.collection, id, domain.ErrMemberNotFound)
}
