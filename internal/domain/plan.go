package domain

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// PlanKind is the closed set of membership plan families.
type PlanKind string

const (
	PlanKindSessionPack PlanKind = "session_pack"
	PlanKindTimeBound   PlanKind = "time_bound"
)

// PlanCode is the stable internal identifier of a catalog plan.
type PlanCode string

const (
	PlanSingleSession  PlanCode = "single_session"
	PlanTwelveSessions PlanCode = "sessions_12"
	PlanOneMonth       PlanCode = "month_1"
	PlanThreeMonths    PlanCode = "month_3"
)

// Plan describes what a membership grants. Session packs carry a visit
// budget, time-bound plans only a validity window.
type Plan struct {
	Code     PlanCode `json:"code"`
	Kind     PlanKind `json:"kind"`
	Sessions int      `json:"sessions,omitempty"`
	Months   int      `json:"months,omitempty"`
	Days     int      `json:"days,omitempty"`
	Label    string   `json:"label"`
}

// SessionPack builds a session-pack plan valid for the given window.
func SessionPack(code PlanCode, sessions, months, days int, label string) Plan {
	return Plan{Code: code, Kind: PlanKindSessionPack, Sessions: sessions, Months: months, Days: days, Label: label}
}

// TimeBound builds a plan valid for the given window regardless of visits.
func TimeBound(code PlanCode, months, days int, label string) Plan {
	return Plan{Code: code, Kind: PlanKindTimeBound, Months: months, Days: days, Label: label}
}

var planCatalog = []Plan{
	SessionPack(PlanSingleSession, 1, 0, 0, "Single Session"),
	SessionPack(PlanTwelveSessions, 12, 1, 0, "12 Sessions"),
	TimeBound(PlanOneMonth, 1, 0, "1 Month"),
	TimeBound(PlanThreeMonths, 3, 0, "3 Months"),
}

// Labels used by earlier versions of the desk application, in both languages.
var legacyPlanLabels = map[string]PlanCode{
	"single session": PlanSingleSession,
	"حصة واحدة":      PlanSingleSession,
	"12 sessions":    PlanTwelveSessions,
	"12 حصة":         PlanTwelveSessions,
	"limit":          PlanTwelveSessions,
	"محدود":          PlanTwelveSessions,
	"1 month":        PlanOneMonth,
	"month":          PlanOneMonth,
	"شهر":            PlanOneMonth,
	"3 months":       PlanThreeMonths,
	"3 شهور":         PlanThreeMonths,
}

// Plans returns the plan catalog in display order.
func Plans() []Plan {
	out := make([]Plan, len(planCatalog))
	copy(out, planCatalog)
	return out
}

// LookupPlan resolves a plan code.
func LookupPlan(code PlanCode) (Plan, error) {
	for _, p := range planCatalog {
		if p.Code == code {
			return p, nil
		}
	}
	return Plan{}, ErrUnknownPlan
}

// normalizeLabel folds case, composes Unicode and collapses whitespace so
// labels typed on different keyboards compare equal.
func normalizeLabel(label string) string {
	folded := cases.Fold().String(norm.NFC.String(label))
	return strings.Join(strings.Fields(folded), " ")
}

// ParsePlanLabel resolves either a plan code or any historical display label.
func ParsePlanLabel(label string) (Plan, error) {
	normalized := normalizeLabel(label)
	if p, err := LookupPlan(PlanCode(normalized)); err == nil {
		return p, nil
	}
	if code, ok := legacyPlanLabels[normalized]; ok {
		return LookupPlan(code)
	}
	return Plan{}, ErrUnknownPlan
}

// EndDate is the last calendar date on which a membership started on start
// licenses entry.
func (p Plan) EndDate(start time.Time) time.Time {
	return start.AddDate(0, p.Months, p.Days)
}

// InitialSessions is the visit budget of a fresh membership, nil for
// time-bound plans.
func (p Plan) InitialSessions() *int {
	if p.Kind != PlanKindSessionPack {
		return nil
	}
	n := p.Sessions
	return &n
}
