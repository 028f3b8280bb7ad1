package domain

import (
	"context"
	"time"
)

// Expense is an operating cost booked by the owner.
type Expense struct {
	ID          string    `bson:"_id,omitempty" json:"id"`
	Type        string    `bson:"type" json:"type"`
	Amount      int64     `bson:"amount" json:"amount"`
	Description string    `bson:"description" json:"description"`
	IncurredAt  time.Time `bson:"incurred_at" json:"incurred_at"`
	Deleted     bool      `bson:"deleted" json:"-"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
}

// AncillaryService is a one-off sale to a member outside a plan, such as a
// sauna slot or a personal training add-on.
type AncillaryService struct {
	ID              string    `bson:"_id,omitempty" json:"id"`
	MemberID        string    `bson:"member_id" json:"member_id"`
	ServiceType     string    `bson:"service_type" json:"service_type"`
	Price           int64     `bson:"price" json:"price"`
	DurationMinutes int       `bson:"duration_minutes" json:"duration_minutes"`
	TakenAt         time.Time `bson:"taken_at" json:"taken_at"`
	Deleted         bool      `bson:"deleted" json:"-"`
	CreatedAt       time.Time `bson:"created_at" json:"created_at"`
}

// ExpenseRepository persists expenses. Ranges are half-open [from, to).
type ExpenseRepository interface {
	Create(ctx context.Context, expense *Expense) error
	ListBetween(ctx context.Context, from, to time.Time) ([]*Expense, error)
	SumBetween(ctx context.Context, from, to time.Time) (int64, error)
	SoftDelete(ctx context.Context, id string) error
}

// AncillaryServiceRepository persists ancillary services. Ranges are
// half-open [from, to).
type AncillaryServiceRepository interface {
	Create(ctx context.Context, service *AncillaryService) error
	ListBetween(ctx context.Context, from, to time.Time) ([]*AncillaryService, error)
	SumBetween(ctx context.Context, from, to time.Time) (int64, error)
	SoftDelete(ctx context.Context, id string) error
}
