package domain

import (
	"context"
	"time"
)

// Visit is one admitted entry. Created only by a committed check-in.
type Visit struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	MemberID  string    `bson:"member_id" json:"member_id"`
	CheckInID string    `bson:"check_in_id" json:"check_in_id"`
	VisitedAt time.Time `bson:"visited_at" json:"visited_at"`
	VisitDay  string    `bson:"visit_day" json:"visit_day"` // YYYY-MM-DD in gym time
	Deleted   bool      `bson:"deleted" json:"-"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// VisitView is a visit joined with its member's name for listings.
type VisitView struct {
	ID         string    `json:"id"`
	MemberID   string    `json:"member_id"`
	MemberName string    `json:"member_name"`
	VisitedAt  time.Time `json:"visited_at"`
}

// VisitRepository persists visits. Reads exclude soft-deleted rows.
type VisitRepository interface {
	// Create returns ErrDuplicateVisit when the member already has a visit
	// on the same day.
	Create(ctx context.Context, visit *Visit) error
	ExistsForDay(ctx context.Context, memberID, day string) (bool, error)
	ListByDay(ctx context.Context, day string) ([]*Visit, error)
	// CountBetweenDays counts visits with fromDay <= visit_day < toDay.
	CountBetweenDays(ctx context.Context, fromDay, toDay string) (int64, error)
	SoftDelete(ctx context.Context, id string) error
}
