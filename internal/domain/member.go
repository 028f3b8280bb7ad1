package domain

import (
	"context"
	"time"
)

// Member is a gym trainee. Only the soft-delete flag changes after creation.
type Member struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	FullName  string    `bson:"full_name" json:"full_name"`
	Phone     string    `bson:"phone" json:"phone"`
	JoinDate  time.Time `bson:"join_date" json:"join_date"`
	Deleted   bool      `bson:"deleted" json:"-"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// MemberRepository persists members. Reads exclude soft-deleted rows.
type MemberRepository interface {
	Create(ctx context.Context, member *Member) error
	GetByID(ctx context.Context, id string) (*Member, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]*Member, error)
	List(ctx context.Context) ([]*Member, error)
	Count(ctx context.Context) (int64, error)
	SoftDelete(ctx context.Context, id string) error
}
