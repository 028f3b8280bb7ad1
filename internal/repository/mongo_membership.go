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

// MongoMembershipRepository implements domain.MembershipRepository
type MongoMembershipRepository struct {
	collection *mongo.Collection
}

func NewMongoMembershipRepository(db *mongo.Database) *MongoMembershipRepository {
	coll := db.Collection("memberships")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, _ = coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "member_id", Value: 1}, {Key: "active", Value: 1}, {Key: "end_date", Value: 1}}},
		{Keys: bson.D{{Key: "start_date", Value: 1}}},
		{Keys: bson.D{{Key: "active", Value: 1}, {Key: "end_date", Value: 1}}},
	})

	return &MongoMembershipRepository{
		collection: coll,
	}
}

var byEndDate = bson.D{{Key: "end_date", Value: 1}, {Key: "_id", Value: 1}}

func (r *MongoMembershipRepository) Create(ctx context.Context, membership *domain.Membership) error {
	membership.CreatedAt = time.Now()
	membership.UpdatedAt = membership.CreatedAt

	result, err := r.collection.InsertOne(ctx, membership)
	if err != nil {
		return fmt.Errorf("failed to create membership: %w", err)
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		membership.ID = oid.Hex()
	}
	return nil
}

func (r *MongoMembershipRepository) GetByID(ctx context.Context, id string) (*domain.Membership, error) {
	filter, err := liveByID(id)
	if err != nil {
		return nil, err
	}

	var membership domain.Membership
	if err := r.collection.FindOne(ctx, filter).Decode(&membership); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrMembershipNotFound
		}
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	return &membership, nil
}

func (r *MongoMembershipRepository) ListByMember(ctx context.Context, memberID string) ([]*domain.Membership, error) {
	opts := options.Find().SetSort(bson.D{{Key: "start_date", Value: -1}, {Key: "_id", Value: -1}})
	return r.find(ctx, bson.M{"member_id": memberID}, opts)
}

// DeactivateLapsed is the persistence half of the expiry sweep.
func (r *MongoMembershipRepository) DeactivateLapsed(ctx context.Context, memberID string, asOf time.Time) (int64, error) {
	filter := live(bson.M{
		"member_id": memberID,
		"active":    true,
		"end_date":  bson.M{"$lt": asOf},
	})
	update := bson.M{"$set": bson.M{"active": false, "updated_at": time.Now()}}

	result, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate lapsed memberships: %w", err)
	}
	return result.ModifiedCount, nil
}

func (r *MongoMembershipRepository) ListEligible(ctx context.Context, memberID string, asOf time.Time) ([]*domain.Membership, error) {
	filter := bson.M{
		"member_id": memberID,
		"active":    true,
		"end_date":  bson.M{"$gte": asOf},
		"$or": bson.A{
			bson.M{"kind": domain.PlanKindTimeBound},
			bson.M{"remaining_sessions": nil},
			bson.M{"remaining_sessions": bson.M{"$gt": 0}},
		},
	}
	return r.find(ctx, filter, options.Find().SetSort(byEndDate))
}

// SaveConsumption writes a consumed session guarded on the counter value the
// caller read, so two writers can never both spend the same session.
func (r *MongoMembershipRepository) SaveConsumption(ctx context.Context, membership *domain.Membership, previous int) error {
	filter, err := liveByID(membership.ID)
	if err != nil {
		return err
	}
	filter["active"] = true
	filter["remaining_sessions"] = previous

	membership.UpdatedAt = time.Now()
	update := bson.M{"$set": bson.M{
		"remaining_sessions": membership.RemainingSessions,
		"active":             membership.Active,
		"updated_at":         membership.UpdatedAt,
	}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to consume session: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrMembershipConflict
	}
	return nil
}

// ConfirmActive is the time-bound counterpart of SaveConsumption: the write
// fails if the membership was deleted or deactivated since it was read, and
// inside a transaction it conflicts with any concurrent writer of the row.
func (r *MongoMembershipRepository) ConfirmActive(ctx context.Context, membership *domain.Membership) error {
	filter, err := liveByID(membership.ID)
	if err != nil {
		return err
	}
	filter["active"] = true

	membership.UpdatedAt = time.Now()
	update := bson.M{"$set": bson.M{"updated_at": membership.UpdatedAt}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to confirm membership: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrMembershipConflict
	}
	return nil
}

func (r *MongoMembershipRepository) Update(ctx context.Context, membership *domain.Membership) error {
	filter, err := liveByID(membership.ID)
	if err != nil {
		return err
	}

	membership.UpdatedAt = time.Now()
	update := bson.M{"$set": bson.M{
		"price":              membership.Price,
		"end_date":           membership.EndDate,
		"remaining_sessions": membership.RemainingSessions,
		"active":             membership.Active,
		"updated_at":         membership.UpdatedAt,
	}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update membership: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrMembershipNotFound
	}
	return nil
}

func (r *MongoMembershipRepository) SoftDelete(ctx context.Context, id string) error {
	return softDelete(ctx, r.collection, id, domain.ErrMembershipNotFound)
}

// ListLapsedMemberIDs returns members holding an active flag past its end
// date.
func (r *MongoMembershipRepository) ListLapsedMemberIDs(ctx context.Context, asOf time.Time) ([]string, error) {
	filter := live(bson.M{"active": true, "end_date": bson.M{"$lt": asOf}})
	values, err := r.collection.Distinct(ctx, "member_id", filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list lapsed members: %w", err)
	}

	ids := make([]string, 0, len(values))
	for _, v := range values {
		if id, ok := v.(string); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *MongoMembershipRepository) SumPriceStartedBetween(ctx context.Context, from, to time.Time) (int64, error) {
	filter := bson.M{"start_date": bson.M{"$gte": from, "$lt": to}}
	return sumField(ctx, r.collection, filter, "price")
}

func (r *MongoMembershipRepository) CountStartedBetween(ctx context.Context, from, to time.Time) (int64, error) {
	filter := live(bson.M{"start_date": bson.M{"$gte": from, "$lt": to}})
	return r.collection.CountDocuments(ctx, filter)
}

// CountActiveMembers counts distinct members with at least one active
// membership.
func (r *MongoMembershipRepository) CountActiveMembers(ctx context.Context) (int64, error) {
	values, err := r.collection.Distinct(ctx, "member_id", live(bson.M{"active": true}))
	if err != nil {
		return 0, fmt.Errorf("failed to count active members: %w", err)
	}
	return int64(len(values)), nil
}

func (r *MongoMembershipRepository) ListActiveByEndDate(ctx context.Context) ([]*domain.Membership, error) {
	return r.find(ctx, bson.M{"active": true}, options.Find().SetSort(byEndDate))
}

func (r *MongoMembershipRepository) CountByPlan(ctx context.Context) (map[domain.PlanCode]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: live(nil)}},
		{{Key: "$group", Value: bson.M{"_id": "$plan", "count": bson.M{"$sum": 1}}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to count memberships by plan: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Plan  domain.PlanCode `bson:"_id"`
		Count int64           `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}

	out := make(map[domain.PlanCode]int64, len(rows))
	for _, row := range rows {
		out[row.Plan] = row.Count
	}
	return out, nil
}

func (r *MongoMembershipRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domain.Membership, error) {
	cursor, err := r.collection.Find(ctx, live(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find memberships: %w", err)
	}
	defer cursor.Close(ctx)

	memberships := []*domain.Membership{}
	if err := cursor.All(ctx, &memberships); err != nil {
		return nil, err
	}
	return memberships, nil
}
