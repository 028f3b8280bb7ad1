package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mansoorceksport/frontdesk/internal/domain"
	"github.com/mansoorceksport/frontdesk/internal/telemetry"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// LifecycleManager owns membership state transitions. It is the single
// source of truth for whether a member may enter on a given day.
//
// Every eligibility-dependent operation runs EvaluateAndExpire first; the
// ordering is part of each method's contract, not an accident of the query
// helpers it uses.
type LifecycleManager struct {
	memberships domain.MembershipRepository
	members     domain.MemberRepository
	tx          domain.TxManager
	locker      domain.MemberLocker
	cache       domain.CacheRepository
	clock       domain.Clock
	loc         *time.Location
	lockTTL     time.Duration
	metrics     *telemetry.CheckInMetrics
	logger      *logrus.Logger
}

// NewLifecycleManager creates a LifecycleManager. cache and metrics may be nil.
func NewLifecycleManager(
	memberships domain.MembershipRepository,
	members domain.MemberRepository,
	tx domain.TxManager,
	locker domain.MemberLocker,
	cache domain.CacheRepository,
	clock domain.Clock,
	loc *time.Location,
	lockTTL time.Duration,
	metrics *telemetry.CheckInMetrics,
	logger *logrus.Logger,
) *LifecycleManager {
	return &LifecycleManager{
		memberships: memberships,
		members:     members,
		tx:          tx,
		locker:      locker,
		cache:       cache,
		clock:       clock,
		loc:         loc,
		lockTTL:     lockTTL,
		metrics:     metrics,
		logger:      logger,
	}
}

// Today is the current calendar date in the gym's timezone.
func (m *LifecycleManager) Today() time.Time {
	return domain.Day(m.clock.Now(), m.loc)
}

// EvaluateAndExpire deactivates every live membership of the member that is
// still flagged active although its end date is before asOf, and drops the
// cached reports when anything changed. Transactional callers use
// expireLapsed instead and invalidate after commit.
func (m *LifecycleManager) EvaluateAndExpire(ctx context.Context, memberID string, asOf time.Time) error {
	n, err := m.expireLapsed(ctx, memberID, asOf)
	if err != nil {
		return err
	}
	if n > 0 {
		m.invalidateReports(ctx)
	}
	return nil
}

// expireLapsed is EvaluateAndExpire without the cache invalidation. It
// returns how many memberships were deactivated.
func (m *LifecycleManager) expireLapsed(ctx context.Context, memberID string, asOf time.Time) (int64, error) {
	n, err := m.memberships.DeactivateLapsed(ctx, memberID, asOf)
	if err != nil {
		return 0, fmt.Errorf("expire memberships of %s: %w", memberID, err)
	}
	if n > 0 {
		m.metrics.RecordDeactivations(ctx, n)
		m.logger.WithFields(logrus.Fields{
			"member_id":   memberID,
			"deactivated": n,
			"as_of":       domain.DayKey(asOf),
		}).Info("Lapsed memberships deactivated")
	}
	return n, nil
}

// HasEligibleMembership sweeps, then reports whether any membership licenses
// a visit on asOf.
func (m *LifecycleManager) HasEligibleMembership(ctx context.Context, memberID string, asOf time.Time) (bool, error) {
	if err := m.EvaluateAndExpire(ctx, memberID, asOf); err != nil {
		return false, err
	}
	eligible, err := m.memberships.ListEligible(ctx, memberID, asOf)
	if err != nil {
		return false, fmt.Errorf("list eligible memberships: %w", err)
	}
	return len(eligible) > 0, nil
}

// SelectGoverningMembership returns the eligible membership closest to
// lapsing, or nil when there is none. Callers must have run
// EvaluateAndExpire for the same asOf.
func (m *LifecycleManager) SelectGoverningMembership(ctx context.Context, memberID string, asOf time.Time) (*domain.Membership, error) {
	eligible, err := m.memberships.ListEligible(ctx, memberID, asOf)
	if err != nil {
		return nil, fmt.Errorf("list eligible memberships: %w", err)
	}
	return governing(eligible, asOf), nil
}

// governing picks the earliest end date, lowest id on ties. It re-checks
// eligibility so a loose repository filter cannot leak a bad candidate.
func governing(candidates []*domain.Membership, asOf time.Time) *domain.Membership {
	var best *domain.Membership
	for _, c := range candidates {
		if !c.IsEligible(asOf) {
			continue
		}
		if best == nil || c.EndDate.Before(best.EndDate) || (c.EndDate.Equal(best.EndDate) && c.ID < best.ID) {
			best = c
		}
	}
	return best
}

// ConsumeOneVisit spends one session of a session pack. A time-bound plan
// keeps its fields but must still be live and active at write time. Either
// way a membership deleted or deactivated since selection yields
// ErrMembershipConflict. Only valid inside the check-in transaction.
func (m *LifecycleManager) ConsumeOneVisit(ctx context.Context, membership *domain.Membership) error {
	if !membership.IsSessionPack() || membership.RemainingSessions == nil {
		return m.memberships.ConfirmActive(ctx, membership)
	}
	previous := *membership.RemainingSessions
	if previous <= 0 {
		return fmt.Errorf("membership %s has no sessions left: %w", membership.ID, domain.ErrMembershipConflict)
	}
	membership.ConsumeSession()
	return m.memberships.SaveConsumption(ctx, membership, previous)
}

// HasActiveMembership answers for today.
func (m *LifecycleManager) HasActiveMembership(ctx context.Context, memberID string) (bool, error) {
	return m.HasEligibleMembership(ctx, memberID, m.Today())
}

// Eligibility sweeps and reports the governing membership for today.
func (m *LifecycleManager) Eligibility(ctx context.Context, memberID string) (*domain.Eligibility, error) {
	if _, err := m.members.GetByID(ctx, memberID); err != nil {
		return nil, err
	}

	today := m.Today()
	if err := m.EvaluateAndExpire(ctx, memberID, today); err != nil {
		return nil, err
	}
	gov, err := m.SelectGoverningMembership(ctx, memberID, today)
	if err != nil {
		return nil, err
	}

	return &domain.Eligibility{
		MemberID:  memberID,
		Day:       domain.DayKey(today),
		Eligible:  gov != nil,
		Governing: gov,
	}, nil
}

// AddMembership starts a plan for the member today. A second session pack is
// refused while one is still eligible.
func (m *LifecycleManager) AddMembership(ctx context.Context, memberID string, code domain.PlanCode, price int64) (*domain.Membership, error) {
	plan, err := domain.LookupPlan(code)
	if err != nil {
		return nil, err
	}
	if price < 0 {
		return nil, domain.ErrInvalidPrice
	}
	if _, err := m.members.GetByID(ctx, memberID); err != nil {
		return nil, err
	}

	unlock, err := m.locker.Lock(ctx, memberID, m.lockTTL)
	if err != nil {
		return nil, err
	}
	defer unlock()

	today := m.Today()
	var created *domain.Membership
	err = m.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		created = nil
		if _, err := m.expireLapsed(ctx, memberID, today); err != nil {
			return err
		}
		if plan.Kind == domain.PlanKindSessionPack {
			if err := m.ensureNoEligiblePack(ctx, memberID, today, ""); err != nil {
				return err
			}
		}

		membership := domain.NewMembership(memberID, plan, price, today)
		if err := m.memberships.Create(ctx, membership); err != nil {
			return err
		}
		created = membership
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.invalidateReports(ctx)
	m.logger.WithFields(logrus.Fields{
		"member_id":     memberID,
		"membership_id": created.ID,
		"plan":          created.Plan,
	}).Info("Membership added")
	return created, nil
}

// EditMembership applies a patch and recomputes the active flag from the
// resulting dates and counter.
func (m *LifecycleManager) EditMembership(ctx context.Context, id string, patch domain.MembershipPatch) (*domain.Membership, error) {
	if patch.Price != nil && *patch.Price < 0 {
		return nil, domain.ErrInvalidPrice
	}
	if patch.RemainingSessions != nil && *patch.RemainingSessions < 0 {
		return nil, domain.ErrInvalidSessions
	}

	current, err := m.memberships.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	unlock, err := m.locker.Lock(ctx, current.MemberID, m.lockTTL)
	if err != nil {
		return nil, err
	}
	defer unlock()

	today := m.Today()
	var updated *domain.Membership
	err = m.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		membership, err := m.memberships.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := patch.Apply(membership); err != nil {
			return err
		}

		membership.Reconcile(today)
		if membership.Active && membership.IsSessionPack() {
			if err := m.ensureNoEligiblePack(ctx, membership.MemberID, today, membership.ID); err != nil {
				return err
			}
		}

		if err := m.memberships.Update(ctx, membership); err != nil {
			return err
		}
		updated = membership
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.invalidateReports(ctx)
	return updated, nil
}

// DeleteMembership soft-deletes a membership under the member lock, so it
// cannot land between a check-in's selection and its commit.
func (m *LifecycleManager) DeleteMembership(ctx context.Context, id string) error {
	current, err := m.memberships.GetByID(ctx, id)
	if err != nil {
		return err
	}

	unlock, err := m.locker.Lock(ctx, current.MemberID, m.lockTTL)
	if err != nil {
		return err
	}
	defer unlock()

	err = m.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		return m.memberships.SoftDelete(ctx, id)
	})
	if err != nil {
		return err
	}

	m.invalidateReports(ctx)
	m.logger.WithFields(logrus.Fields{
		"member_id":     current.MemberID,
		"membership_id": id,
	}).Info("Membership deleted")
	return nil
}

// ListMemberships returns a member's live memberships after sweeping them.
func (m *LifecycleManager) ListMemberships(ctx context.Context, memberID string) ([]*domain.Membership, error) {
	if _, err := m.members.GetByID(ctx, memberID); err != nil {
		return nil, err
	}
	if err := m.EvaluateAndExpire(ctx, memberID, m.Today()); err != nil {
		return nil, err
	}
	return m.memberships.ListByMember(ctx, memberID)
}

// SweepReport summarizes a bulk expiry run.
type SweepReport struct {
	AsOf    string   `json:"as_of"`
	Members []string `json:"members"`
	Failed  []string `json:"failed,omitempty"`
	DryRun  bool     `json:"dry_run"`
}

// SweepOptions tunes a bulk expiry run.
type SweepOptions struct {
	DryRun bool
	// PerSecond caps how many members are swept per second; zero is unlimited
	PerSecond float64
}

// SweepAll runs EvaluateAndExpire for every member holding a stale active
// flag. Correctness never depends on it; it only keeps stored flags tidy for
// reports. With DryRun nothing is written.
func (m *LifecycleManager) SweepAll(ctx context.Context, opts SweepOptions) (*SweepReport, error) {
	today := m.Today()
	ids, err := m.memberships.ListLapsedMemberIDs(ctx, today)
	if err != nil {
		return nil, err
	}

	report := &SweepReport{AsOf: domain.DayKey(today), Members: ids, DryRun: opts.DryRun}
	if opts.DryRun {
		return report, nil
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.PerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.PerSecond), 1)
	}

	var flipped int64
	defer func() {
		if flipped > 0 {
			m.invalidateReports(context.WithoutCancel(ctx))
		}
	}()

	for _, id := range ids {
		if err := limiter.Wait(ctx); err != nil {
			return report, fmt.Errorf("sweep interrupted: %w", err)
		}
		n, err := m.expireLapsed(ctx, id, today)
		if err != nil {
			m.logger.WithError(err).WithField("member_id", id).Warn("Sweep failed for member")
			report.Failed = append(report.Failed, id)
			continue
		}
		flipped += n
	}
	return report, nil
}

func (m *LifecycleManager) ensureNoEligiblePack(ctx context.Context, memberID string, asOf time.Time, exceptID string) error {
	eligible, err := m.memberships.ListEligible(ctx, memberID, asOf)
	if err != nil {
		return err
	}
	for _, e := range eligible {
		if e.IsSessionPack() && e.ID != exceptID {
			return domain.ErrActiveSessionPackExists
		}
	}
	return nil
}

func (m *LifecycleManager) invalidateReports(ctx context.Context) {
	if m.cache == nil {
		return
	}
	if err := m.cache.InvalidateReports(ctx); err != nil && !errors.Is(err, context.Canceled) {
		m.logger.WithError(err).Warn("Failed to invalidate report cache")
	}
}
