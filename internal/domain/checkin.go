package domain

import "time"

// CheckInOutcome is the closed set of results of a check-in attempt.
type CheckInOutcome string

const (
	CheckInCommitted             CheckInOutcome = "committed"
	CheckInAlreadyCheckedInToday CheckInOutcome = "already_checked_in_today"
	CheckInNoActiveMembership    CheckInOutcome = "no_active_membership"
	CheckInFailed                CheckInOutcome = "failed"
)

// Messages shown for each outcome. Presentation layers may localize by
// outcome code instead.
const (
	MessageCheckedIn          = "Check-in recorded"
	MessageAlreadyCheckedIn   = "Member has already checked in today"
	MessageNoActiveMembership = "Member has no active subscription"
	MessageCheckInFailed      = "Check-in failed"
)

// CheckInResult reports what a check-in attempt did. The membership fields
// describe the governing membership after the attempt, when there is one.
type CheckInResult struct {
	AttemptID         string         `json:"attempt_id"`
	Outcome           CheckInOutcome `json:"outcome"`
	MemberID          string         `json:"member_id"`
	TraineeName       string         `json:"trainee_name,omitempty"`
	MembershipID      string         `json:"membership_id,omitempty"`
	MembershipType    PlanCode       `json:"membership_type,omitempty"`
	RemainingSessions *int           `json:"remaining_sessions,omitempty"`
	IsActive          bool           `json:"is_active"`
	VisitID           string         `json:"visit_id,omitempty"`
	VisitTimestamp    *time.Time     `json:"visit_timestamp,omitempty"`
	Message           string         `json:"message"`
	Reason            string         `json:"reason,omitempty"`
}

// Describe copies the display fields of m onto the result.
func (r *CheckInResult) Describe(m *Membership) {
	if m == nil {
		return
	}
	r.MembershipID = m.ID
	r.MembershipType = m.Plan
	r.IsActive = m.Active
	if m.RemainingSessions != nil {
		n := *m.RemainingSessions
		r.RemainingSessions = &n
	}
}

// Eligibility is the read-only answer to "may this member enter on that day".
type Eligibility struct {
	MemberID  string      `json:"member_id"`
	Day       string      `json:"day"`
	Eligible  bool        `json:"eligible"`
	Governing *Membership `json:"governing,omitempty"`
}
