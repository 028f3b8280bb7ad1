package service

import (
	"context"
	"strings"
	"time"

	"github.com/mansoorceksport/frontdesk/internal/domain"
	"github.com/sirupsen/logrus"
)

// MemberService keeps the member register and the visit log.
type MemberService struct {
	members domain.MemberRepository
	visits  domain.VisitRepository
	cache   domain.CacheRepository
	clock   domain.Clock
	loc     *time.Location
	logger  *logrus.Logger
}

func NewMemberService(
	members domain.MemberRepository,
	visits domain.VisitRepository,
	cache domain.CacheRepository,
	clock domain.Clock,
	loc *time.Location,
	logger *logrus.Logger,
) *MemberService {
	return &MemberService{
		members: members,
		visits:  visits,
		cache:   cache,
		clock:   clock,
		loc:     loc,
		logger:  logger,
	}
}

// Register adds a member who joins today.
func (s *MemberService) Register(ctx context.Context, fullName, phone string) (*domain.Member, error) {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return nil, domain.ErrInvalidMember
	}

	member := &domain.Member{
		FullName: fullName,
		Phone:    strings.TrimSpace(phone),
		JoinDate: domain.Day(s.clock.Now(), s.loc),
	}
	if err := s.members.Create(ctx, member); err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	s.logger.WithField("member_id", member.ID).Info("Member registered")
	return member, nil
}

func (s *MemberService) Get(ctx context.Context, id string) (*domain.Member, error) {
	return s.members.GetByID(ctx, id)
}

func (s *MemberService) List(ctx context.Context) ([]*domain.Member, error) {
	return s.members.List(ctx)
}

func (s *MemberService) Delete(ctx context.Context, id string) error {
	if err := s.members.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// VisitsForDate lists a day's visits, latest first, with member names.
// Visits of since-deleted members keep an empty name.
func (s *MemberService) VisitsForDate(ctx context.Context, day time.Time) ([]domain.VisitView, error) {
	visits, err := s.visits.ListByDay(ctx, domain.DayKey(day))
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(visits))
	for _, v := range visits {
		ids = append(ids, v.MemberID)
	}
	members, err := s.members.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	views := make([]domain.VisitView, 0, len(visits))
	for _, v := range visits {
		view := domain.VisitView{ID: v.ID, MemberID: v.MemberID, VisitedAt: v.VisitedAt}
		if m, ok := members[v.MemberID]; ok {
			view.MemberName = m.FullName
		}
		views = append(views, view)
	}
	return views, nil
}

// TodayVisitCount counts today's live visits.
func (s *MemberService) TodayVisitCount(ctx context.Context) (int64, error) {
	today := domain.Day(s.clock.Now(), s.loc)
	return s.visits.CountBetweenDays(ctx, domain.DayKey(today), domain.DayKey(today.AddDate(0, 0, 1)))
}

// DeleteVisit soft-deletes a visit. The consumed session is not refunded.
func (s *MemberService) DeleteVisit(ctx context.Context, id string) error {
	if err := s.visits.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *MemberService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateReports(ctx); err != nil {
		s.logger.WithError(err).Warn("Failed to invalidate report cache")
	}
}
