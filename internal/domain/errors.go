package domain

import "errors"

// Common errors
var (
	ErrNotFound  = errors.New("record not found")
	ErrInvalidID = errors.New("invalid id")
	ErrForbidden = errors.New("access forbidden")
)

// Front desk errors
var (
	ErrMemberNotFound          = errors.New("member not found")
	ErrMembershipNotFound      = errors.New("membership not found")
	ErrUnknownPlan             = errors.New("unknown membership plan")
	ErrInvalidPrice            = errors.New("price must not be negative")
	ErrInvalidSessions         = errors.New("remaining sessions must not be negative")
	ErrInvalidMember           = errors.New("member name is required")
	ErrActiveSessionPackExists = errors.New("member already has an active session-pack membership")
	ErrMembershipConflict      = errors.New("membership changed or was deleted during check-in")
	ErrDuplicateVisit          = errors.New("visit already recorded for this member today")
	ErrInvalidPeriod           = errors.New("invalid reporting period")
	ErrInvalidDate             = errors.New("dates must be YYYY-MM-DD")
	ErrArchiveUnavailable      = errors.New("report archive is not configured")
)
