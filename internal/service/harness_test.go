package service

import (
	"sync"
	"testing"
	"time"

	"github.com/mansoorceksport/frontdesk/internal/domain"
	"github.com/mansoorceksport/frontdesk/internal/repository"
	"github.com/mansoorceksport/frontdesk/pkg/logger"
)

// testClock is a settable domain.Clock.
type testClock struct {
	mu sync.Mutex
	at time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.at
}

func (c *testClock) set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.at = t
}

type harness struct {
	store       *memStore
	tx          *fakeTx
	cache       *fakeCache
	clock       *testClock
	members     *fakeMemberRepo
	memberships *fakeMembershipRepo
	visits      *fakeVisitRepo
	expenses    *fakeExpenseRepo
	services    *fakeServiceRepo
	locker      *repository.LocalMemberLocker
	lifecycle   *LifecycleManager
	checkIn     *CheckInCoordinator
	aggregation *AggregationEngine
}

// day is a midnight-UTC calendar date.
func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newHarness(t *testing.T, now time.Time) *harness {
	t.Helper()
	return buildHarness(now)
}

// buildHarness is newHarness for property checks that have no *testing.T.
func buildHarness(now time.Time) *harness {
	store := newMemStore()
	h := &harness{
		store:       store,
		tx:          &fakeTx{store: store},
		cache:       newFakeCache(),
		clock:       &testClock{at: now},
		members:     &fakeMemberRepo{store: store},
		memberships: &fakeMembershipRepo{store: store},
		visits:      &fakeVisitRepo{store: store},
		expenses:    &fakeExpenseRepo{store: store},
		services:    &fakeServiceRepo{store: store},
		locker:      repository.NewLocalMemberLocker(),
	}

	h.useMemberships(h.memberships)
	h.aggregation = NewAggregationEngine(h.memberships, h.visits, h.expenses, h.services, time.UTC)
	return h
}

// useMemberships rebuilds the lifecycle manager and coordinator over repo.
func (h *harness) useMemberships(repo domain.MembershipRepository) {
	log := logger.Discard()
	h.lifecycle = NewLifecycleManager(repo, h.members, h.tx, h.locker, h.cache, h.clock, time.UTC, time.Second, nil, log)
	h.checkIn = NewCheckInCoordinator(h.lifecycle, h.members, h.visits, h.tx, h.locker, h.cache, h.clock, time.UTC, time.Second, nil, log)
}

func (h *harness) today() time.Time {
	return domain.Day(h.clock.Now(), time.UTC)
}

// sessionPack arranges an active pack with the given counter and end date.
func (h *harness) sessionPack(memberID string, remaining int, end time.Time) *domain.Membership {
	n := remaining
	return h.store.addMembership(&domain.Membership{
		MemberID:          memberID,
		Plan:              domain.PlanTwelveSessions,
		Kind:              domain.PlanKindSessionPack,
		Price:             2500,
		StartDate:         h.today(),
		EndDate:           end,
		RemainingSessions: &n,
		Active:            true,
	})
}

// timeBound arranges an active time-bound membership ending on end.
func (h *harness) timeBound(memberID string, start, end time.Time) *domain.Membership {
	return h.store.addMembership(&domain.Membership{
		MemberID:  memberID,
		Plan:      domain.PlanOneMonth,
		Kind:      domain.PlanKindTimeBound,
		Price:     3500,
		StartDate: start,
		EndDate:   end,
		Active:    true,
	})
}

func intPtr(n int) *int { return &n }
