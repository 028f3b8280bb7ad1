package service

import (
	"context"
	"errors"
	"time"

	"github.com/mansoorceksport/frontdesk/internal/domain"
	"github.com/mansoorceksport/frontdesk/internal/telemetry"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// CheckInCoordinator turns "member N wants to enter" into either a new Visit
// plus the matching membership change, or a typed refusal. It never returns
// an error: storage failures become a Failed outcome after rollback.
type CheckInCoordinator struct {
	lifecycle *LifecycleManager
	members   domain.MemberRepository
	visits    domain.VisitRepository
	tx        domain.TxManager
	locker    domain.MemberLocker
	cache     domain.CacheRepository
	clock     domain.Clock
	loc       *time.Location
	lockTTL   time.Duration
	metrics   *telemetry.CheckInMetrics
	logger    *logrus.Logger
}

// NewCheckInCoordinator creates a coordinator. cache and metrics may be nil.
func NewCheckInCoordinator(
	lifecycle *LifecycleManager,
	members domain.MemberRepository,
	visits domain.VisitRepository,
	tx domain.TxManager,
	locker domain.MemberLocker,
	cache domain.CacheRepository,
	clock domain.Clock,
	loc *time.Location,
	lockTTL time.Duration,
	metrics *telemetry.CheckInMetrics,
	logger *logrus.Logger,
) *CheckInCoordinator {
	return &CheckInCoordinator{
		lifecycle: lifecycle,
		members:   members,
		visits:    visits,
		tx:        tx,
		locker:    locker,
		cache:     cache,
		clock:     clock,
		loc:       loc,
		lockTTL:   lockTTL,
		metrics:   metrics,
		logger:    logger,
	}
}

// CheckIn admits the member now.
func (c *CheckInCoordinator) CheckIn(ctx context.Context, memberID string) *domain.CheckInResult {
	return c.CheckInAt(ctx, memberID, c.clock.Now())
}

// CheckInAt admits the member at the given instant. The member lock is held
// from before the transaction opens until after it commits or rolls back.
func (c *CheckInCoordinator) CheckInAt(ctx context.Context, memberID string, at time.Time) *domain.CheckInResult {
	started := time.Now()
	result := &domain.CheckInResult{
		AttemptID: ulid.Make().String(),
		MemberID:  memberID,
	}

	ctx, span := otel.Tracer("checkin").Start(ctx, "CheckInCoordinator.CheckIn",
		trace.WithAttributes(
			attribute.String("member.id", memberID),
			attribute.String("checkin.attempt_id", result.AttemptID),
		),
	)
	defer func() {
		span.SetAttributes(attribute.String("checkin.outcome", string(result.Outcome)))
		if result.Outcome == domain.CheckInFailed {
			span.SetStatus(codes.Error, result.Reason)
		}
		span.End()
		c.metrics.RecordAttempt(ctx, string(result.Outcome), time.Since(started))
		c.logResult(result)
	}()

	member, err := c.members.GetByID(ctx, memberID)
	switch {
	case errors.Is(err, domain.ErrMemberNotFound), errors.Is(err, domain.ErrInvalidID):
		return refuse(result, domain.CheckInNoActiveMembership, domain.MessageNoActiveMembership)
	case err != nil:
		return fail(result, err)
	}
	result.TraineeName = member.FullName

	unlock, err := c.locker.Lock(ctx, memberID, c.lockTTL)
	if err != nil {
		return fail(result, err)
	}
	defer unlock()

	// Once the lock is held the attempt runs to completion.
	txCtx := context.WithoutCancel(ctx)
	today := domain.Day(at, c.loc)
	dayKey := domain.DayKey(today)

	var outcome domain.CheckInOutcome
	var gov *domain.Membership
	var visit *domain.Visit
	var expired int64

	err = c.tx.WithinTransaction(txCtx, func(ctx context.Context) error {
		outcome, gov, visit, expired = "", nil, nil, 0

		n, err := c.lifecycle.expireLapsed(ctx, memberID, today)
		if err != nil {
			return err
		}
		expired = n

		visited, err := c.visits.ExistsForDay(ctx, memberID, dayKey)
		if err != nil {
			return err
		}
		if visited {
			gov, err = c.lifecycle.SelectGoverningMembership(ctx, memberID, today)
			if err != nil {
				return err
			}
			outcome = domain.CheckInAlreadyCheckedInToday
			return nil
		}

		gov, err = c.lifecycle.SelectGoverningMembership(ctx, memberID, today)
		if err != nil {
			return err
		}
		if gov == nil {
			outcome = domain.CheckInNoActiveMembership
			return nil
		}

		visit = &domain.Visit{
			MemberID:  memberID,
			CheckInID: result.AttemptID,
			VisitedAt: at,
			VisitDay:  dayKey,
		}
		if err := c.visits.Create(ctx, visit); err != nil {
			return err
		}
		if err := c.lifecycle.ConsumeOneVisit(ctx, gov); err != nil {
			return err
		}
		outcome = domain.CheckInCommitted
		return nil
	})

	switch {
	case errors.Is(err, domain.ErrDuplicateVisit):
		// Another writer won the unique (member, day) slot; report it as such.
		gov, _ = c.lifecycle.SelectGoverningMembership(txCtx, memberID, today)
		result.Describe(gov)
		return refuse(result, domain.CheckInAlreadyCheckedInToday, domain.MessageAlreadyCheckedIn)
	case err != nil:
		return fail(result, err)
	}

	if expired > 0 || outcome == domain.CheckInCommitted {
		c.invalidateReports(txCtx)
	}

	result.Describe(gov)
	switch outcome {
	case domain.CheckInAlreadyCheckedInToday:
		return refuse(result, outcome, domain.MessageAlreadyCheckedIn)
	case domain.CheckInNoActiveMembership:
		return refuse(result, outcome, domain.MessageNoActiveMembership)
	}

	result.Outcome = domain.CheckInCommitted
	result.Message = domain.MessageCheckedIn
	result.VisitID = visit.ID
	visitedAt := visit.VisitedAt
	result.VisitTimestamp = &visitedAt
	return result
}

func (c *CheckInCoordinator) invalidateReports(ctx context.Context) {
	if c.cache == nil {
		return
	}
	if err := c.cache.InvalidateReports(ctx); err != nil {
		c.logger.WithError(err).Warn("Failed to invalidate report cache after check-in")
	}
}

func refuse(r *domain.CheckInResult, outcome domain.CheckInOutcome, message string) *domain.CheckInResult {
	r.Outcome = outcome
	r.Message = message
	return r
}

func fail(r *domain.CheckInResult, err error) *domain.CheckInResult {
	r.Outcome = domain.CheckInFailed
	r.Message = domain.MessageCheckInFailed
	r.Reason = err.Error()
	r.MembershipID, r.MembershipType, r.RemainingSessions, r.IsActive = "", "", nil, false
	return r
}

func (c *CheckInCoordinator) logResult(r *domain.CheckInResult) {
	entry := c.logger.WithFields(logrus.Fields{
		"attempt_id": r.AttemptID,
		"member_id":  r.MemberID,
		"outcome":    r.Outcome,
	})
	if r.Outcome == domain.CheckInFailed {
		entry.WithField("reason", r.Reason).Error("Check-in rolled back")
		return
	}
	entry.Info("Check-in finished")
}
