package domain

import (
	"context"
	"fmt"
	"time"
)

// Membership is a member's purchase of a plan.
//
// An active membership must satisfy IsEligible; a stale active flag is
// corrected by the lifecycle sweep before any decision relies on it.
type Membership struct {
	ID                string    `bson:"_id,omitempty" json:"id"`
	MemberID          string    `bson:"member_id" json:"member_id"`
	Plan              PlanCode  `bson:"plan" json:"plan"`
	Kind              PlanKind  `bson:"kind" json:"kind"`
	Price             int64     `bson:"price" json:"price"` // smallest currency unit
	StartDate         time.Time `bson:"start_date" json:"start_date"`
	EndDate           time.Time `bson:"end_date" json:"end_date"`
	RemainingSessions *int      `bson:"remaining_sessions" json:"remaining_sessions"`
	Active            bool      `bson:"active" json:"active"`
	Deleted           bool      `bson:"deleted" json:"-"`
	CreatedAt         time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt         time.Time `bson:"updated_at" json:"updated_at"`
}

// NewMembership starts a plan on today.
func NewMembership(memberID string, plan Plan, price int64, today time.Time) *Membership {
	return &Membership{
		MemberID:          memberID,
		Plan:              plan.Code,
		Kind:              plan.Kind,
		Price:             price,
		StartDate:         today,
		EndDate:           plan.EndDate(today),
		RemainingSessions: plan.InitialSessions(),
		Active:            true,
	}
}

// IsSessionPack reports whether visits draw down a counter.
func (m *Membership) IsSessionPack() bool {
	return m.Kind == PlanKindSessionPack
}

// IsLapsed reports an active flag that no longer holds on asOf because the
// end date has passed.
func (m *Membership) IsLapsed(asOf time.Time) bool {
	return m.Active && !m.Deleted && m.EndDate.Before(asOf)
}

// IsEligible reports whether the membership licenses a visit on asOf.
func (m *Membership) IsEligible(asOf time.Time) bool {
	if !m.Active || m.Deleted || m.EndDate.Before(asOf) {
		return false
	}
	if m.Kind == PlanKindTimeBound || m.RemainingSessions == nil {
		return true
	}
	return *m.RemainingSessions > 0
}

// Reconcile sets the active flag from the dates and counter alone.
func (m *Membership) Reconcile(asOf time.Time) {
	m.Active = !m.Deleted && !m.EndDate.Before(asOf)
	if m.Active && m.IsSessionPack() && m.RemainingSessions != nil {
		m.Active = *m.RemainingSessions > 0
	}
}

// ConsumeSession draws one visit from a session pack and deactivates it once
// the budget is spent. Time-bound memberships are left untouched. It returns
// true when the counter changed.
func (m *Membership) ConsumeSession() bool {
	if !m.IsSessionPack() || m.RemainingSessions == nil {
		return false
	}
	remaining := *m.RemainingSessions - 1
	if remaining <= 0 {
		remaining = 0
		m.Active = false
	}
	m.RemainingSessions = &remaining
	return true
}

// MembershipPatch carries the editable fields of a membership. Nil fields
// are left unchanged. EndDate is a YYYY-MM-DD calendar date.
type MembershipPatch struct {
	Price             *int64  `json:"price,omitempty"`
	EndDate           *string `json:"end_date,omitempty"`
	RemainingSessions *int    `json:"remaining_sessions,omitempty"`
}

// Apply writes the patch onto m. It refuses an end date that does not parse
// or falls before the start date, leaving m unchanged.
func (p MembershipPatch) Apply(m *Membership) error {
	if p.EndDate != nil {
		end, err := ParseDay(*p.EndDate)
		if err != nil {
			return fmt.Errorf("end_date: %w: %v", ErrInvalidDate, err)
		}
		if end.Before(m.StartDate) {
			return fmt.Errorf("end date before start date: %w", ErrInvalidPeriod)
		}
		m.EndDate = end
	}
	if p.Price != nil {
		m.Price = *p.Price
	}
	if p.RemainingSessions != nil && m.IsSessionPack() {
		n := *p.RemainingSessions
		m.RemainingSessions = &n
	}
	return nil
}

// MembershipRepository persists memberships. Every read excludes
// soft-deleted rows.
type MembershipRepository interface {
	Create(ctx context.Context, membership *Membership) error
	GetByID(ctx context.Context, id string) (*Membership, error)
	ListByMember(ctx context.Context, memberID string) ([]*Membership, error)

	// DeactivateLapsed flips active=false on every active membership of the
	// member whose end date is before asOf and returns how many changed.
	DeactivateLapsed(ctx context.Context, memberID string, asOf time.Time) (int64, error)
	// ListEligible returns memberships licensing a visit on asOf, ordered by
	// end date then id.
	ListEligible(ctx context.Context, memberID string, asOf time.Time) ([]*Membership, error)
	// SaveConsumption persists a consumed session only if the stored counter
	// still equals previous; otherwise it returns ErrMembershipConflict.
	SaveConsumption(ctx context.Context, membership *Membership, previous int) error
	// ConfirmActive bumps updated_at only while the membership is live and
	// active; otherwise it returns ErrMembershipConflict. It pins a
	// time-bound membership for the duration of a check-in.
	ConfirmActive(ctx context.Context, membership *Membership) error

	Update(ctx context.Context, membership *Membership) error
	SoftDelete(ctx context.Context, id string) error

	// Read-side queries for aggregation.
	ListLapsedMemberIDs(ctx context.Context, asOf time.Time) ([]string, error)
	SumPriceStartedBetween(ctx context.Context, from, to time.Time) (int64, error)
	CountStartedBetween(ctx context.Context, from, to time.Time) (int64, error)
	CountActiveMembers(ctx context.Context) (int64, error)
	ListActiveByEndDate(ctx context.Context) ([]*Membership, error)
	CountByPlan(ctx context.Context) (map[PlanCode]int64, error)
}
