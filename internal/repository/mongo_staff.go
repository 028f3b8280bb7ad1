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

// MongoStaffRepository implements domain.StaffRepository
type MongoStaffRepository struct {
	collection *mongo.Collection
}

func NewMongoStaffRepository(db *mongo.Database) *MongoStaffRepository {
	coll := db.Collection("staff")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// firebase_uid is sparse: staff are provisioned by email before first login
	_, _ = coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "firebase_uid", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})

	return &MongoStaffRepository{
		collection: coll,
	}
}

func (r *MongoStaffRepository) Create(ctx context.Context, staff *domain.Staff) error {
	staff.CreatedAt = time.Now()
	staff.UpdatedAt = staff.CreatedAt
	objID := primitive.NewObjectID()
	staff.ID = objID.Hex()

	doc := bson.M{
		"_id":        objID,
		"email":      staff.Email,
		"name":       staff.Name,
		"roles":      staff.Roles,
		"created_at": staff.CreatedAt,
		"updated_at": staff.UpdatedAt,
	}
	if staff.FirebaseUID != "" {
		doc["firebase_uid"] = staff.FirebaseUID
	}

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to create staff: %w", err)
	}
	return nil
}

func (r *MongoStaffRepository) GetByID(ctx context.Context, id string) (*domain.Staff, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrInvalidID
	}
	return r.findOne(ctx, bson.M{"_id": objID})
}

func (r *MongoStaffRepository) GetByEmail(ctx context.Context, email string) (*domain.Staff, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *MongoStaffRepository) GetByFirebaseUID(ctx context.Context, uid string) (*domain.Staff, error) {
	return r.findOne(ctx, bson.M{"firebase_uid": uid})
}

func (r *MongoStaffRepository) UpdateFirebaseUID(ctx context.Context, staffID string, firebaseUID string) error {
	objID, err := primitive.ObjectIDFromHex(staffID)
	if err != nil {
		return domain.ErrInvalidID
	}

	update := bson.M{
		"$set": bson.M{
			"firebase_uid": firebaseUID,
			"updated_at":   time.Now(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objID}, update)
	if err != nil {
		return fmt.Errorf("failed to update firebase uid: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *MongoStaffRepository) findOne(ctx context.Context, filter bson.M) (*domain.Staff, error) {
	var raw bson.M
	if err := r.collection.FindOne(ctx, filter).Decode(&raw); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get staff: %w", err)
	}
	return mapBsonToStaff(raw), nil
}

func mapBsonToStaff(raw bson.M) *domain.Staff {
	staff := &domain.Staff{}
	if oid, ok := raw["_id"].(primitive.ObjectID); ok {
		staff.ID = oid.Hex()
	}
	if uid, ok := raw["firebase_uid"].(string); ok {
		staff.FirebaseUID = uid
	}
	if email, ok := raw["email"].(string); ok {
		staff.Email = email
	}
	if name, ok := raw["name"].(string); ok {
		staff.Name = name
	}
	if created, ok := raw["created_at"].(primitive.DateTime); ok {
		staff.CreatedAt = created.Time()
	}
	if updated, ok := raw["updated_at"].(primitive.DateTime); ok {
		staff.UpdatedAt = updated.Time()
	}
	if roles, ok := raw["roles"].(primitive.A); ok {
		staff.Roles = make([]string, 0, len(roles))
		for _, r := range roles {
			if role, ok := r.(string); ok {
				staff.Roles = append(staff.Roles, role)
			}
		}
	}
	return staff
}
