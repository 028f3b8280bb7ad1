package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mansoorceksport/frontdesk/internal/domain"
)

// memStore is an in-memory stand-in for the Mongo collections. Transactions
// are serialized on txMu and roll back by restoring a snapshot.
type memStore struct {
	mu   sync.Mutex
	txMu sync.Mutex
	seq  int

	members     map[string]*domain.Member
	memberships map[string]*domain.Membership
	visits      map[string]*domain.Visit
	expenses    map[string]*domain.Expense
	services    map[string]*domain.AncillaryService

	// fail injects an error into the named operation, e.g. "visits.Create".
	fail map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		members:     map[string]*domain.Member{},
		memberships: map[string]*domain.Membership{},
		visits:      map[string]*domain.Visit{},
		expenses:    map[string]*domain.Expense{},
		services:    map[string]*domain.AncillaryService{},
		fail:        map[string]error{},
	}
}

func (s *memStore) nextID() string {
	s.seq++
	return fmt.Sprintf("%024x", s.seq)
}

func (s *memStore) injected(op string) error {
	return s.fail[op]
}

func (s *memStore) failOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[op] = err
}

func cloneMembership(m *domain.Membership) *domain.Membership {
	c := *m
	if m.RemainingSessions != nil {
		n := *m.RemainingSessions
		c.RemainingSessions = &n
	}
	return &c
}

type snapshot struct {
	members     map[string]domain.Member
	memberships map[string]*domain.Membership
	visits      map[string]domain.Visit
}

func (s *memStore) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := snapshot{
		members:     map[string]domain.Member{},
		memberships: map[string]*domain.Membership{},
		visits:      map[string]domain.Visit{},
	}
	for id, m := range s.members {
		snap.members[id] = *m
	}
	for id, m := range s.memberships {
		snap.memberships[id] = cloneMembership(m)
	}
	for id, v := range s.visits {
		snap.visits[id] = *v
	}
	return snap
}

func (s *memStore) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members = map[string]*domain.Member{}
	for id, m := range snap.members {
		m := m
		s.members[id] = &m
	}
	s.memberships = snap.memberships
	s.visits = map[string]*domain.Visit{}
	for id, v := range snap.visits {
		v := v
		s.visits[id] = &v
	}
}

// helpers used by tests to arrange state directly

func (s *memStore) addMember(name string) *domain.Member {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := &domain.Member{ID: s.nextID(), FullName: name}
	s.members[m.ID] = m
	return m
}

func (s *memStore) addMembership(m *domain.Membership) *domain.Membership {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.ID = s.nextID()
	s.memberships[m.ID] = cloneMembership(m)
	return m
}

func (s *memStore) membership(id string) *domain.Membership {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneMembership(s.memberships[id])
}

func (s *memStore) liveVisits(memberID string) []*domain.Visit {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Visit
	for _, v := range s.visits {
		if v.MemberID == memberID && !v.Deleted {
			c := *v
			out = append(out, &c)
		}
	}
	return out
}

// fakeTx serializes transactions and undoes their writes on error.
type fakeTx struct {
	store *memStore
	calls int
}

func (t *fakeTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	t.store.txMu.Lock()
	defer t.store.txMu.Unlock()
	t.calls++

	snap := t.store.snapshot()
	if err := fn(ctx); err != nil {
		t.store.restore(snap)
		return err
	}
	if err := t.store.injected("tx.Commit"); err != nil {
		t.store.restore(snap)
		return err
	}
	return nil
}

type fakeMemberRepo struct{ store *memStore }

func (r *fakeMemberRepo) Create(ctx context.Context, member *domain.Member) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	member.ID = r.store.nextID()
	member.CreatedAt = time.Now()
	c := *member
	r.store.members[member.ID] = &c
	return nil
}

func (r *fakeMemberRepo) GetByID(ctx context.Context, id string) (*domain.Member, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if err := r.store.injected("members.GetByID"); err != nil {
		return nil, err
	}
	m, ok := r.store.members[id]
	if !ok || m.Deleted {
		return nil, domain.ErrMemberNotFound
	}
	c := *m
	return &c, nil
}

func (r *fakeMemberRepo) GetByIDs(ctx context.Context, ids []string) (map[string]*domain.Member, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := map[string]*domain.Member{}
	for _, id := range ids {
		if m, ok := r.store.members[id]; ok && !m.Deleted {
			c := *m
			out[id] = &c
		}
	}
	return out, nil
}

func (r *fakeMemberRepo) List(ctx context.Context) ([]*domain.Member, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := []*domain.Member{}
	for _, m := range r.store.members {
		if !m.Deleted {
			c := *m
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeMemberRepo) Count(ctx context.Context) (int64, error) {
	list, _ := r.List(ctx)
	return int64(len(list)), nil
}

func (r *fakeMemberRepo) SoftDelete(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	m, ok := r.store.members[id]
	if !ok || m.Deleted {
		return domain.ErrMemberNotFound
	}
	m.Deleted = true
	return nil
}

type fakeMembershipRepo struct{ store *memStore }

func (r *fakeMembershipRepo) Create(ctx context.Context, membership *domain.Membership) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if err := r.store.injected("memberships.Create"); err != nil {
		return err
	}
	membership.ID = r.store.nextID()
	membership.CreatedAt = time.Now()
	membership.UpdatedAt = membership.CreatedAt
	r.store.memberships[membership.ID] = cloneMembership(membership)
	return nil
}

func (r *fakeMembershipRepo) GetByID(ctx context.Context, id string) (*domain.Membership, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	m, ok := r.store.memberships[id]
	if !ok || m.Deleted {
		return nil, domain.ErrMembershipNotFound
	}
	return cloneMembership(m), nil
}

func (r *fakeMembershipRepo) ListByMember(ctx context.Context, memberID string) ([]*domain.Membership, error) {
	return r.filter(func(m *domain.Membership) bool { return m.MemberID == memberID }), nil
}

func (r *fakeMembershipRepo) DeactivateLapsed(ctx context.Context, memberID string, asOf time.Time) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if err := r.store.injected("memberships.DeactivateLapsed"); err != nil {
		return 0, err
	}
	var n int64
	for _, m := range r.store.memberships {
		if m.MemberID == memberID && m.IsLapsed(asOf) {
			m.Active = false
			n++
		}
	}
	return n, nil
}

func (r *fakeMembershipRepo) ListEligible(ctx context.Context, memberID string, asOf time.Time) ([]*domain.Membership, error) {
	out := r.filter(func(m *domain.Membership) bool { return m.MemberID == memberID && m.IsEligible(asOf) })
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EndDate.Equal(out[j].EndDate) {
			return out[i].EndDate.Before(out[j].EndDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *fakeMembershipRepo) SaveConsumption(ctx context.Context, membership *domain.Membership, previous int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if err := r.store.injected("memberships.SaveConsumption"); err != nil {
		return err
	}
	stored, ok := r.store.memberships[membership.ID]
	if !ok || stored.Deleted || !stored.Active || stored.RemainingSessions == nil || *stored.RemainingSessions != previous {
		return domain.ErrMembershipConflict
	}
	r.store.memberships[membership.ID] = cloneMembership(membership)
	return nil
}

func (r *fakeMembershipRepo) ConfirmActive(ctx context.Context, membership *domain.Membership) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if err := r.store.injected("memberships.ConfirmActive"); err != nil {
		return err
	}
	stored, ok := r.store.memberships[membership.ID]
	if !ok || stored.Deleted || !stored.Active {
		return domain.ErrMembershipConflict
	}
	stored.UpdatedAt = time.Now()
	membership.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r *fakeMembershipRepo) Update(ctx context.Context, membership *domain.Membership) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	stored, ok := r.store.memberships[membership.ID]
	if !ok || stored.Deleted {
		return domain.ErrMembershipNotFound
	}
	r.store.memberships[membership.ID] = cloneMembership(membership)
	return nil
}

func (r *fakeMembershipRepo) SoftDelete(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	m, ok := r.store.memberships[id]
	if !ok || m.Deleted {
		return domain.ErrMembershipNotFound
	}
	m.Deleted = true
	return nil
}

func (r *fakeMembershipRepo) ListLapsedMemberIDs(ctx context.Context, asOf time.Time) ([]string, error) {
	seen := map[string]bool{}
	var ids []string
	for _, m := range r.filter(func(m *domain.Membership) bool { return m.IsLapsed(asOf) }) {
		if !seen[m.MemberID] {
			seen[m.MemberID] = true
			ids = append(ids, m.MemberID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *fakeMembershipRepo) SumPriceStartedBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var sum int64
	for _, m := range r.filter(startedBetween(from, to)) {
		sum += m.Price
	}
	return sum, nil
}

func (r *fakeMembershipRepo) CountStartedBetween(ctx context.Context, from, to time.Time) (int64, error) {
	return int64(len(r.filter(startedBetween(from, to)))), nil
}

func (r *fakeMembershipRepo) CountActiveMembers(ctx context.Context) (int64, error) {
	seen := map[string]bool{}
	for _, m := range r.filter(func(m *domain.Membership) bool { return m.Active }) {
		seen[m.MemberID] = true
	}
	return int64(len(seen)), nil
}

func (r *fakeMembershipRepo) ListActiveByEndDate(ctx context.Context) ([]*domain.Membership, error) {
	out := r.filter(func(m *domain.Membership) bool { return m.Active })
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EndDate.Equal(out[j].EndDate) {
			return out[i].EndDate.Before(out[j].EndDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *fakeMembershipRepo) CountByPlan(ctx context.Context) (map[domain.PlanCode]int64, error) {
	out := map[domain.PlanCode]int64{}
	for _, m := range r.filter(func(*domain.Membership) bool { return true }) {
		out[m.Plan]++
	}
	return out, nil
}

func (r *fakeMembershipRepo) filter(keep func(m *domain.Membership) bool) []*domain.Membership {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := []*domain.Membership{}
	for _, m := range r.store.memberships {
		if !m.Deleted && keep(m) {
			out = append(out, cloneMembership(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func startedBetween(from, to time.Time) func(m *domain.Membership) bool {
	return func(m *domain.Membership) bool {
		return !m.StartDate.Before(from) && m.StartDate.Before(to)
	}
}

type fakeVisitRepo struct {
	store *memStore
	// skipExistsCheck makes ExistsForDay always report false, to exercise
	// the unique-slot fallback.
	skipExistsCheck bool
}

func (r *fakeVisitRepo) Create(ctx context.Context, visit *domain.Visit) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if err := r.store.injected("visits.Create"); err != nil {
		return err
	}
	for _, v := range r.store.visits {
		if !v.Deleted && v.MemberID == visit.MemberID && v.VisitDay == visit.VisitDay {
			return domain.ErrDuplicateVisit
		}
	}
	visit.ID = r.store.nextID()
	visit.CreatedAt = time.Now()
	c := *visit
	r.store.visits[visit.ID] = &c
	return nil
}

func (r *fakeVisitRepo) ExistsForDay(ctx context.Context, memberID, day string) (bool, error) {
	if r.skipExistsCheck {
		return false, nil
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, v := range r.store.visits {
		if !v.Deleted && v.MemberID == memberID && v.VisitDay == day {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeVisitRepo) ListByDay(ctx context.Context, day string) ([]*domain.Visit, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := []*domain.Visit{}
	for _, v := range r.store.visits {
		if !v.Deleted && v.VisitDay == day {
			c := *v
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VisitedAt.After(out[j].VisitedAt) })
	return out, nil
}

func (r *fakeVisitRepo) CountBetweenDays(ctx context.Context, fromDay, toDay string) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var n int64
	for _, v := range r.store.visits {
		if !v.Deleted && v.VisitDay >= fromDay && v.VisitDay < toDay {
			n++
		}
	}
	return n, nil
}

func (r *fakeVisitRepo) SoftDelete(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	v, ok := r.store.visits[id]
	if !ok || v.Deleted {
		return domain.ErrNotFound
	}
	v.Deleted = true
	return nil
}

type fakeExpenseRepo struct{ store *memStore }

func (r *fakeExpenseRepo) Create(ctx context.Context, expense *domain.Expense) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	expense.ID = r.store.nextID()
	c := *expense
	r.store.expenses[expense.ID] = &c
	return nil
}

func (r *fakeExpenseRepo) ListBetween(ctx context.Context, from, to time.Time) ([]*domain.Expense, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := []*domain.Expense{}
	for _, e := range r.store.expenses {
		if !e.Deleted && !e.IncurredAt.Before(from) && e.IncurredAt.Before(to) {
			c := *e
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IncurredAt.Before(out[j].IncurredAt) })
	return out, nil
}

func (r *fakeExpenseRepo) SumBetween(ctx context.Context, from, to time.Time) (int64, error) {
	list, _ := r.ListBetween(ctx, from, to)
	var sum int64
	for _, e := range list {
		sum += e.Amount
	}
	return sum, nil
}

func (r *fakeExpenseRepo) SoftDelete(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	e, ok := r.store.expenses[id]
	if !ok || e.Deleted {
		return domain.ErrNotFound
	}
	e.Deleted = true
	return nil
}

type fakeServiceRepo struct{ store *memStore }

func (r *fakeServiceRepo) Create(ctx context.Context, service *domain.AncillaryService) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	service.ID = r.store.nextID()
	c := *service
	r.store.services[service.ID] = &c
	return nil
}

func (r *fakeServiceRepo) ListBetween(ctx context.Context, from, to time.Time) ([]*domain.AncillaryService, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := []*domain.AncillaryService{}
	for _, s := range r.store.services {
		if !s.Deleted && !s.TakenAt.Before(from) && s.TakenAt.Before(to) {
			c := *s
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TakenAt.Before(out[j].TakenAt) })
	return out, nil
}

func (r *fakeServiceRepo) SumBetween(ctx context.Context, from, to time.Time) (int64, error) {
	list, _ := r.ListBetween(ctx, from, to)
	var sum int64
	for _, s := range list {
		sum += s.Price
	}
	return sum, nil
}

func (r *fakeServiceRepo) SoftDelete(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	s, ok := r.store.services[id]
	if !ok || s.Deleted {
		return domain.ErrNotFound
	}
	s.Deleted = true
	return nil
}

// fakeCache records invalidations and stores values as-is.
type fakeCache struct {
	mu            sync.Mutex
	values        map[string]interface{}
	invalidations int
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: map[string]interface{}{}}
}

func (c *fakeCache) Get(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	if !ok {
		return fmt.Errorf("cache miss: %s", key)
	}
	switch d := dest.(type) {
	case *domain.DashboardSnapshot:
		*d = *(v.(*domain.DashboardSnapshot))
	case *domain.MonthlyFinancialSnapshot:
		*d = *(v.(*domain.MonthlyFinancialSnapshot))
	default:
		return fmt.Errorf("unsupported cache type %T", dest)
	}
	return nil
}

func (c *fakeCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
	return nil
}

func (c *fakeCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.values, k)
	}
	return nil
}

func (c *fakeCache) InvalidateReports(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidations++
	c.values = map[string]interface{}{}
	return nil
}

func (c *fakeCache) invalidationCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.invalidations
}

// fakeArchive captures uploads.
type fakeArchive struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
}

func (a *fakeArchive) Upload(ctx context.Context, file []byte, key string, contentType string) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.objects == nil {
		a.objects = map[string][]byte{}
	}
	a.objects[key] = file
	return "s3://reports/" + key, nil
}
