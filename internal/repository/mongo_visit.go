package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/mansoorceksport/frontdesk/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoVisitRepository implements domain.VisitRepository
type MongoVisitRepository struct {
	collection *mongo.Collection
}

func NewMongoVisitRepository(db *mongo.Database) *MongoVisitRepository {
	coll := db.Collection("visits")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// One live visit per member per day. Partial indexes cannot use $ne, so
	// visits always carry an explicit deleted flag.
	_, _ = coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "member_id", Value: 1}, {Key: "visit_day", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"deleted": false}),
		},
		{Keys: bson.D{{Key: "visit_day", Value: 1}, {Key: "visited_at", Value: -1}}},
	})

	return &MongoVisitRepository{
		collection: coll,
	}
}

func (r *MongoVisitRepository) Create(ctx context.Context, visit *domain.Visit) error {
	visit.CreatedAt = time.Now()
	visit.Deleted = false

	result, err := r.collection.InsertOne(ctx, visit)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicateVisit
		}
		return fmt.Errorf("failed to create visit: %w", err)
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		visit.ID = oid.Hex()
	}
	return nil
}

func (r *MongoVisitRepository) ExistsForDay(ctx context.Context, memberID, day string) (bool, error) {
	n, err := r.collection.CountDocuments(ctx,
		live(bson.M{"member_id": memberID, "visit_day": day}),
		options.Count().SetLimit(1),
	)
	if err != nil {
		return false, fmt.Errorf("failed to look up visit: %w", err)
	}
	return n > 0, nil
}

// ListByDay returns the day's visits, latest first.
func (r *MongoVisitRepository) ListByDay(ctx context.Context, day string) ([]*domain.Visit, error) {
	opts := options.Find().SetSort(bson.D{{Key: "visited_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, live(bson.M{"visit_day": day}), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list visits: %w", err)
	}
	defer cursor.Close(ctx)

	visits := []*domain.Visit{}
	if err := cursor.All(ctx, &visits); err != nil {
		return nil, err
	}
	return visits, nil
}

func (r *MongoVisitRepository) CountBetweenDays(ctx context.Context, fromDay, toDay string) (int64, error) {
	filter := live(bson.M{"visit_day": bson.M{"$gte": fromDay, "$lt": toDay}})
	return r.collection.CountDocuments(ctx, filter)
}

func (r *MongoVisitRepository) SoftDelete(ctx context.Context, id string) error {
	return softDelete(ctx, r.collection, id, domain.ErrNotFound)
}
