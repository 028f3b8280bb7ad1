package service

import (
	"context"
	"time"

	"github.com/mansoorceksport/frontdesk/internal/domain"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// DashboardService assembles the owner's dashboard from the aggregation
// engine and caches it until the next write that moves its numbers.
type DashboardService struct {
	aggregation *AggregationEngine
	memberships domain.MembershipRepository
	members     domain.MemberRepository
	visits      domain.VisitRepository
	cache       domain.CacheRepository
	clock       domain.Clock
	loc         *time.Location
	ttl         time.Duration
	logger      *logrus.Logger
}

// NewDashboardService creates a new DashboardService instance. cache may be nil.
func NewDashboardService(
	aggregation *AggregationEngine,
	memberships domain.MembershipRepository,
	members domain.MemberRepository,
	visits domain.VisitRepository,
	cache domain.CacheRepository,
	clock domain.Clock,
	loc *time.Location,
	ttl time.Duration,
	logger *logrus.Logger,
) *DashboardService {
	return &DashboardService{
		aggregation: aggregation,
		memberships: memberships,
		members:     members,
		visits:      visits,
		cache:       cache,
		clock:       clock,
		loc:         loc,
		ttl:         ttl,
		logger:      logger,
	}
}

// GetDashboardSnapshot returns the cached snapshot or computes a fresh one.
func (s *DashboardService) GetDashboardSnapshot(ctx context.Context) (*domain.DashboardSnapshot, error) {
	if s.cache != nil {
		var cached domain.DashboardSnapshot
		if err := s.cache.Get(ctx, domain.DashboardCacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	snap, err := s.compute(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, domain.DashboardCacheKey, snap, s.ttl); err != nil {
			s.logger.WithError(err).Warn("Failed to cache dashboard snapshot")
		}
	}
	return snap, nil
}

func (s *DashboardService) compute(ctx context.Context) (*domain.DashboardSnapshot, error) {
	today := domain.Day(s.clock.Now(), s.loc)
	month, year := int(today.Month()), today.Year()
	prevMonth, prevYear := domain.PreviousMonth(month, year)

	var (
		current, previous *domain.MonthlyFinancialSnapshot
		snap              = &domain.DashboardSnapshot{}
	)

	// Use errgroup for concurrent fetching
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		current, err = s.aggregation.MonthlySnapshot(gCtx, month, year)
		return err
	})
	g.Go(func() error {
		var err error
		previous, err = s.aggregation.MonthlySnapshot(gCtx, prevMonth, prevYear)
		return err
	})
	g.Go(func() error {
		var err error
		snap.ActiveMembers, err = s.memberships.CountActiveMembers(gCtx)
		return err
	})
	g.Go(func() error {
		var err error
		snap.TotalMembers, err = s.members.Count(gCtx)
		return err
	})
	g.Go(func() error {
		var err error
		snap.VisitsToday, err = s.visits.CountBetweenDays(gCtx, domain.DayKey(today), domain.DayKey(today.AddDate(0, 0, 1)))
		return err
	})
	g.Go(func() error {
		var err error
		snap.EndingSoon, err = s.aggregation.MembershipsEndingSoon(gCtx)
		return err
	})
	g.Go(func() error {
		var err error
		snap.MembershipTypeDistribution, err = s.memberships.CountByPlan(gCtx)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	snap.VisitsThisMonth = current.Visits
	snap.NewMembershipsThisMonth = current.NewMemberships
	snap.RevenueThisMonth = current.TotalRevenue
	snap.ExpensesThisMonth = current.Expenses
	snap.NetProfitThisMonth = current.NetProfit
	snap.NetProfitLastMonth = previous.NetProfit
	snap.MonthOverMonthGrowth = domain.MonthOverMonthGrowth{
		Revenue: domain.GrowthPercentage(float64(current.TotalRevenue), float64(previous.TotalRevenue)),
		Profit:  domain.GrowthPercentage(float64(current.NetProfit), float64(previous.NetProfit)),
		Members: domain.GrowthPercentage(float64(current.NewMemberships), float64(previous.NewMemberships)),
		Visits:  domain.GrowthPercentage(float64(current.Visits), float64(previous.Visits)),
	}
	return snap, nil
}
