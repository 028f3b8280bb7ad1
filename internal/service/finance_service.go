package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mansoorceksport/frontdesk/internal/domain"
	"github.com/sirupsen/logrus"
)

// FinanceService books expenses and ancillary services and serves monthly
// financial reports.
type FinanceService struct {
	expenses    domain.ExpenseRepository
	services    domain.AncillaryServiceRepository
	members     domain.MemberRepository
	aggregation *AggregationEngine
	archive     domain.FileRepository
	cache       domain.CacheRepository
	clock       domain.Clock
	loc         *time.Location
	cacheTTL    time.Duration
	logger      *logrus.Logger
}

// NewFinanceService creates a FinanceService. archive and cache may be nil.
func NewFinanceService(
	expenses domain.ExpenseRepository,
	services domain.AncillaryServiceRepository,
	members domain.MemberRepository,
	aggregation *AggregationEngine,
	archive domain.FileRepository,
	cache domain.CacheRepository,
	clock domain.Clock,
	loc *time.Location,
	cacheTTL time.Duration,
	logger *logrus.Logger,
) *FinanceService {
	return &FinanceService{
		expenses:    expenses,
		services:    services,
		members:     members,
		aggregation: aggregation,
		archive:     archive,
		cache:       cache,
		clock:       clock,
		loc:         loc,
		cacheTTL:    cacheTTL,
		logger:      logger,
	}
}

// RecordExpense books an expense. A zero IncurredAt means now.
func (s *FinanceService) RecordExpense(ctx context.Context, expense *domain.Expense) error {
	if expense.Amount < 0 {
		return domain.ErrInvalidPrice
	}
	expense.Type = strings.TrimSpace(expense.Type)
	if expense.IncurredAt.IsZero() {
		expense.IncurredAt = s.clock.Now()
	}
	if err := s.expenses.Create(ctx, expense); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *FinanceService) ListExpenses(ctx context.Context, month, year int) ([]*domain.Expense, error) {
	from, to, err := domain.MonthSpan(month, year, s.loc)
	if err != nil {
		return nil, err
	}
	return s.expenses.ListBetween(ctx, from, to)
}

func (s *FinanceService) DeleteExpense(ctx context.Context, id string) error {
	if err := s.expenses.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// RecordService books an ancillary service for an existing member. A zero
// TakenAt means now.
func (s *FinanceService) RecordService(ctx context.Context, service *domain.AncillaryService) error {
	if service.Price < 0 {
		return domain.ErrInvalidPrice
	}
	if _, err := s.members.GetByID(ctx, service.MemberID); err != nil {
		return err
	}
	if service.TakenAt.IsZero() {
		service.TakenAt = s.clock.Now()
	}
	if err := s.services.Create(ctx, service); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *FinanceService) ListServices(ctx context.Context, month, year int) ([]*domain.AncillaryService, error) {
	from, to, err := domain.MonthSpan(month, year, s.loc)
	if err != nil {
		return nil, err
	}
	return s.services.ListBetween(ctx, from, to)
}

func (s *FinanceService) DeleteService(ctx context.Context, id string) error {
	if err := s.services.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// MonthlyReport returns the month's financial snapshot, cached.
func (s *FinanceService) MonthlyReport(ctx context.Context, month, year int) (*domain.MonthlyFinancialSnapshot, error) {
	key := domain.FinancePeriodCacheKey(year, month)
	if s.cache != nil {
		var cached domain.MonthlyFinancialSnapshot
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}

	snap, err := s.aggregation.MonthlySnapshot(ctx, month, year)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, snap, s.cacheTTL); err != nil {
			s.logger.WithError(err).Warn("Failed to cache monthly report")
		}
	}
	return snap, nil
}

// ArchivedReport is the stored form of a monthly snapshot.
type ArchivedReport struct {
	GeneratedAt time.Time                        `json:"generated_at"`
	Snapshot    *domain.MonthlyFinancialSnapshot `json:"snapshot"`
	Expenses    []*domain.Expense                `json:"expenses"`
	Services    []*domain.AncillaryService       `json:"services"`
}

// ArchiveMonthlySnapshot uploads the month's report as JSON to
// reports/<year>/<month>.json and returns its URL.
func (s *FinanceService) ArchiveMonthlySnapshot(ctx context.Context, month, year int) (string, error) {
	if s.archive == nil {
		return "", domain.ErrArchiveUnavailable
	}

	snap, err := s.aggregation.MonthlySnapshot(ctx, month, year)
	if err != nil {
		return "", err
	}
	expenses, err := s.ListExpenses(ctx, month, year)
	if err != nil {
		return "", err
	}
	services, err := s.ListServices(ctx, month, year)
	if err != nil {
		return "", err
	}

	body, err := json.MarshalIndent(ArchivedReport{
		GeneratedAt: s.clock.Now().UTC(),
		Snapshot:    snap,
		Expenses:    expenses,
		Services:    services,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}

	key := fmt.Sprintf("reports/%04d/%02d.json", year, month)
	url, err := s.archive.Upload(ctx, body, key, "application/json")
	if err != nil {
		return "", err
	}

	s.logger.WithFields(logrus.Fields{"key": key, "url": url}).Info("Monthly report archived")
	return url, nil
}

func (s *FinanceService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateReports(ctx); err != nil {
		s.logger.WithError(err).Warn("Failed to invalidate report cache")
	}
}
