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

// MongoExpenseRepository implements domain.ExpenseRepository
type MongoExpenseRepository struct {
	collection *mongo.Collection
}

func NewMongoExpenseRepository(db *mongo.Database) *MongoExpenseRepository {
	coll := db.Collection("expenses")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, _ = coll.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "incurred_at", Value: 1}}})

	return &MongoExpenseRepository{collection: coll}
}

func (r *MongoExpenseRepository) Create(ctx context.Context, expense *domain.Expense) error {
	expense.CreatedAt = time.Now()

	result, err := r.collection.InsertOne(ctx, expense)
	if err != nil {
		return fmt.Errorf("failed to create expense: %w", err)
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		expense.ID = oid.Hex()
	}
	return nil
}

func (r *MongoExpenseRepository) ListBetween(ctx context.Context, from, to time.Time) ([]*domain.Expense, error) {
	filter := live(bson.M{"incurred_at": bson.M{"$gte": from, "$lt": to}})
	opts := options.Find().SetSort(bson.D{{Key: "incurred_at", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer cursor.Close(ctx)

	expenses := []*domain.Expense{}
	if err := cursor.All(ctx, &expenses); err != nil {
		return nil, err
	}
	return expenses, nil
}

func (r *MongoExpenseRepository) SumBetween(ctx context.Context, from, to time.Time) (int64, error) {
	return sumField(ctx, r.collection, bson.M{"incurred_at": bson.M{"$gte": from, "$lt": to}}, "amount")
}

func (r *MongoExpenseRepository) SoftDelete(ctx context.Context, id string) error {
	return softDelete(ctx, r.collection, id, domain.ErrNotFound)
}

// MongoAncillaryServiceRepository implements domain.AncillaryServiceRepository
type MongoAncillaryServiceRepository struct {
	collection *mongo.Collection
}

func NewMongoAncillaryServiceRepository(db *mongo.Database) *MongoAncillaryServiceRepository {
	coll := db.Collection("ancillary_services")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, _ = coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "taken_at", Value: 1}}},
		{Keys: bson.D{{Key: "member_id", Value: 1}}},
	})

	return &MongoAncillaryServiceRepository{collection: coll}
}

func (r *MongoAncillaryServiceRepository) Create(ctx context.Context, service *domain.AncillaryService) error {
	service.CreatedAt = time.Now()

	result, err := r.collection.InsertOne(ctx, service)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		service.ID = oid.Hex()
	}
	return nil
}

func (r *MongoAncillaryServiceRepository) ListBetween(ctx context.Context, from, to time.Time) ([]*domain.AncillaryService, error) {
	filter := live(bson.M{"taken_at": bson.M{"$gte": from, "$lt": to}})
	opts := options.Find().SetSort(bson.D{{Key: "taken_at", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	defer cursor.Close(ctx)

	services := []*domain.AncillaryService{}
	if err := cursor.All(ctx, &services); err != nil {
		return nil, err
	}
	return services, nil
}

func (r *MongoAncillaryServiceRepository) SumBetween(ctx context.Context, from, to time.Time) (int64, error) {
	return sumField(ctx, r.collection, bson.M{"taken_at": bson.M{"$gte": from, "$lt": to}}, "price")
}

func (r *MongoAncillaryServiceRepository) SoftDelete(ctx context.Context, id string) error {
	return softDelete(ctx, r.collection, id, domain.ErrNotFound)
}
