package domain

import (
	"context"
	"time"
)

// Staff is a front-desk operator or the gym owner.
type Staff struct {
	ID          string    `bson:"_id,omitempty" json:"id"`
	FirebaseUID string    `bson:"firebase_uid,omitempty" json:"firebase_uid"`
	Email       string    `bson:"email" json:"email"`
	Name        string    `bson:"name" json:"name"`
	Roles       []string  `bson:"roles" json:"roles"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at" json:"updated_at"`
}

// HasRole checks if the staff member holds a role
func (s *Staff) HasRole(role string) bool {
	for _, r := range s.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// StaffRepository defines operations for managing staff accounts
type StaffRepository interface {
	Create(ctx context.Context, staff *Staff) error
	GetByID(ctx context.Context, id string) (*Staff, error)
	GetByEmail(ctx context.Context, email string) (*Staff, error)
	GetByFirebaseUID(ctx context.Context, uid string) (*Staff, error)
	UpdateFirebaseUID(ctx context.Context, staffID string, firebaseUID string) error
}

// Role constants
const (
	RoleOwner     = "owner"      // sees finances and the dashboard
	RoleFrontDesk = "front_desk" // runs check-ins and member records
)
