package service

import (
	"context"
	"fmt"
	"time"

	"github.com/mansoorceksport/frontdesk/internal/domain"
	"golang.org/x/sync/errgroup"
)

// AggregationEngine derives statistics from committed state. It performs no
// writes and needs no transaction.
type AggregationEngine struct {
	memberships domain.MembershipRepository
	visits      domain.VisitRepository
	expenses    domain.ExpenseRepository
	services    domain.AncillaryServiceRepository
	loc         *time.Location
}

func NewAggregationEngine(
	memberships domain.MembershipRepository,
	visits domain.VisitRepository,
	expenses domain.ExpenseRepository,
	services domain.AncillaryServiceRepository,
	loc *time.Location,
) *AggregationEngine {
	return &AggregationEngine{
		memberships: memberships,
		visits:      visits,
		expenses:    expenses,
		services:    services,
		loc:         loc,
	}
}

// TotalRevenueForMonth sums membership prices started in the month and
// ancillary services taken in it.
func (a *AggregationEngine) TotalRevenueForMonth(ctx context.Context, month, year int) (int64, error) {
	memberships, services, err := a.revenueForMonth(ctx, month, year)
	if err != nil {
		return 0, err
	}
	return memberships + services, nil
}

// TotalExpensesForMonth sums expenses incurred in the month.
func (a *AggregationEngine) TotalExpensesForMonth(ctx context.Context, month, year int) (int64, error) {
	from, to, err := domain.MonthSpan(month, year, a.loc)
	if err != nil {
		return 0, err
	}
	total, err := a.expenses.SumBetween(ctx, from, to)
	if err != nil {
		return 0, fmt.Errorf("sum expenses: %w", err)
	}
	return total, nil
}

// MembershipsEndingSoon lists every active membership, nearest end date
// first. The caller decides the display cutoff.
func (a *AggregationEngine) MembershipsEndingSoon(ctx context.Context) ([]*domain.Membership, error) {
	return a.memberships.ListActiveByEndDate(ctx)
}

// GrowthPercentage compares two periods, treating a zero baseline specially.
func (a *AggregationEngine) GrowthPercentage(current, previous float64) float64 {
	return domain.GrowthPercentage(current, previous)
}

// MonthlySnapshot projects one month's finances and activity.
func (a *AggregationEngine) MonthlySnapshot(ctx context.Context, month, year int) (*domain.MonthlyFinancialSnapshot, error) {
	dateFrom, dateTo, err := domain.MonthDates(month, year)
	if err != nil {
		return nil, err
	}

	snap := &domain.MonthlyFinancialSnapshot{Month: month, Year: year}
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		m, s, err := a.revenueForMonth(gCtx, month, year)
		snap.MembershipRevenue, snap.ServiceRevenue = m, s
		return err
	})
	g.Go(func() error {
		var err error
		snap.Expenses, err = a.TotalExpensesForMonth(gCtx, month, year)
		return err
	})
	g.Go(func() error {
		var err error
		snap.NewMemberships, err = a.memberships.CountStartedBetween(gCtx, dateFrom, dateTo)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Visits, err = a.visits.CountBetweenDays(gCtx, domain.DayKey(dateFrom), domain.DayKey(dateTo))
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	snap.TotalRevenue = snap.MembershipRevenue + snap.ServiceRevenue
	snap.NetProfit = snap.TotalRevenue - snap.Expenses
	return snap, nil
}

func (a *AggregationEngine) revenueForMonth(ctx context.Context, month, year int) (memberships, services int64, err error) {
	dateFrom, dateTo, err := domain.MonthDates(month, year)
	if err != nil {
		return 0, 0, err
	}
	from, to, err := domain.MonthSpan(month, year, a.loc)
	if err != nil {
		return 0, 0, err
	}

	memberships, err = a.memberships.SumPriceStartedBetween(ctx, dateFrom, dateTo)
	if err != nil {
		return 0, 0, fmt.Errorf("sum membership revenue: %w", err)
	}
	services, err = a.services.SumBetween(ctx, from, to)
	if err != nil {
		return 0, 0, fmt.Errorf("sum service revenue: %w", err)
	}
	return memberships, services, nil
}
