// Package memory is an in-process implementation of the review, degree plan and user
// repositories. Transactions are serialized and roll back by restoring a snapshot.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"degree_plan_review/internal/domain/degreeplan"
	"degree_plan_review/internal/domain/review"
	"degree_plan_review/internal/domain/user"
)

type state struct {
	users     map[int64]*user.User
	plans     map[int64]*degreeplan.Plan
	semesters map[int64]int64 // semester id -> plan id
	requests  map[int64]*review.Request
	nextID    int64
}

func (st *state) clone() *state {
	c := &state{
		users:     st.users,
		plans:     st.plans,
		semesters: st.semesters,
		requests:  make(map[int64]*review.Request, len(st.requests)),
		nextID:    st.nextID,
	}
	for id, r := range st.requests {
		c.requests[id] = r.Clone()
	}
	return c
}

// Store keeps everything in maps guarded by one mutex.
type Store struct {
	mu  sync.Mutex
	st  *state
	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		st: &state{
			users:     make(map[int64]*user.User),
			plans:     make(map[int64]*degreeplan.Plan),
			semesters: make(map[int64]int64),
			requests:  make(map[int64]*review.Request),
			nextID:    1,
		},
		now: time.Now,
	}
}

// PutUser adds or replaces a user.
func (s *Store) PutUser(u *user.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *u
	s.st.users[u.ID] = &c
}

// PutPlan adds or replaces a degree plan and its semesters.
func (s *Store) PutPlan(p *degreeplan.Plan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *p
	c.Semesters = append([]degreeplan.Semester(nil), p.Semesters...)
	for i := range c.Semesters {
		c.Semesters[i].PlanID = c.ID
		s.st.semesters[c.Semesters[i].ID] = c.ID
	}
	s.st.plans[c.ID] = &c
}

// --- user.Repository ---

// Users exposes the store as a user.Repository. GetByID on Store itself is the review lookup.
func (s *Store) Users() user.Repository { return userRepo{s} }

type userRepo struct{ s *Store }

func (u userRepo) GetByID(_ context.Context, id int64) (*user.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	found, ok := u.s.st.users[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	c := *found
	return &c, nil
}

func (u userRepo) GetByTelegramID(_ context.Context, telegramID int64) (*user.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	for _, found := range u.s.st.users {
		if found.TelegramID.Valid && found.TelegramID.Int64 == telegramID {
			c := *found
			return &c, nil
		}
	}
	return nil, user.ErrUserNotFound
}

// --- degreeplan.Repository ---

func (s *Store) GetPlan(_ context.Context, id int64) (*degreeplan.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.st.plans[id]
	if !ok {
		return nil, degreeplan.ErrPlanNotFound
	}
	c := *p
	c.Semesters = append([]degreeplan.Semester(nil), p.Semesters...)
	return &c, nil
}

func (s *Store) GetSemester(_ context.Context, id int64) (*degreeplan.Semester, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	planID, ok := s.st.semesters[id]
	if !ok {
		return nil, degreeplan.ErrSemesterNotFound
	}
	sem, ok := s.st.plans[planID].SemesterByID(id)
	if !ok {
		return nil, degreeplan.ErrSemesterNotFound
	}
	return &sem, nil
}

// --- review.Repository ---

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx review.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.st.clone()
	if err := fn(ctx, &view{st: s.st, now: s.now}); err != nil {
		s.st = snapshot
		return err
	}
	if err := ctx.Err(); err != nil {
		s.st = snapshot
		return fmt.Errorf("transaction aborted: %w", err)
	}
	return nil
}

func (s *Store) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.st.requests[id]; !ok {
		return review.ErrRequestNotFound
	}
	delete(s.st.requests, id)
	return nil
}

func (s *Store) GetByID(ctx context.Context, id int64) (*review.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().GetByID(ctx, id)
}

func (s *Store) ListByPlan(ctx context.Context, degreePlanID int64) ([]*review.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().ListByPlan(ctx, degreePlanID)
}

func (s *Store) FindPending(ctx context.Context, degreePlanID int64, status review.Status, reviewerID int64) ([]*review.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().FindPending(ctx, degreePlanID, status, reviewerID)
}

func (s *Store) ListPendingMentorByClassification(ctx context.Context, classes []user.Classification) ([]*review.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().ListPendingMentorByClassification(ctx, classes)
}

func (s *Store) CreateOrReset(ctx context.Context, r *review.Request) error {
	return s.WithinTx(ctx, func(ctx context.Context, tx review.Store) error {
		return tx.CreateOrReset(ctx, r)
	})
}

func (s *Store) Update(ctx context.Context, r *review.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().Update(ctx, r)
}

func (s *Store) LockPlan(ctx context.Context, degreePlanID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().LockPlan(ctx, degreePlanID)
}

func (s *Store) view() *view { return &view{st: s.st, now: s.now} }

// view operates on state without locking; the caller holds Store.mu.
type view struct {
	st  *state
	now func() time.Time
}

func (v *view) GetByID(_ context.Context, id int64) (*review.Request, error) {
	r, ok := v.st.requests[id]
	if !ok {
		return nil, review.ErrRequestNotFound
	}
	return r.Clone(), nil
}

func (v *view) ListByPlan(_ context.Context, degreePlanID int64) ([]*review.Request, error) {
	return v.filter(func(r *review.Request) bool { return r.DegreePlanID == degreePlanID }), nil
}

func (v *view) FindPending(_ context.Context, degreePlanID int64, status review.Status, reviewerID int64) ([]*review.Request, error) {
	stage := review.StageAdvisor
	if status == review.StatusPendingMentor {
		stage = review.StageMentor
	}
	return v.filter(func(r *review.Request) bool {
		return r.DegreePlanID == degreePlanID && r.Status == status && r.OwnedBy(stage, reviewerID)
	}), nil
}

func (v *view) ListPendingMentorByClassification(_ context.Context, classes []user.Classification) ([]*review.Request, error) {
	wanted := make(map[user.Classification]bool, len(classes))
	for _, c := range classes {
		wanted[c] = true
	}
	return v.filter(func(r *review.Request) bool {
		if r.Status != review.StatusPendingMentor {
			return false
		}
		u, ok := v.st.users[r.StudentID]
		return ok && wanted[u.Classification]
	}), nil
}

func (v *view) CreateOrReset(_ context.Context, r *review.Request) error {
	now := v.now()
	for _, existing := range v.st.requests {
		if existing.PlanSemesterID != r.PlanSemesterID {
			continue
		}
		if !existing.Status.IsTerminal() {
			return fmt.Errorf("%w: semester %d is %s", review.ErrDuplicatePending, r.PlanSemesterID, existing.Status)
		}
		r.ID = existing.ID
		r.CreatedAt = existing.CreatedAt
		r.UpdatedAt = now
		v.st.requests[r.ID] = r.Clone()
		return nil
	}
	r.ID = v.st.nextID
	v.st.nextID++
	r.CreatedAt = now
	r.UpdatedAt = now
	v.st.requests[r.ID] = r.Clone()
	return nil
}

func (v *view) Update(_ context.Context, r *review.Request) error {
	if _, ok := v.st.requests[r.ID]; !ok {
		return review.ErrRequestNotFound
	}
	r.UpdatedAt = v.now()
	v.st.requests[r.ID] = r.Clone()
	return nil
}

func (v *view) LockPlan(_ context.Context, degreePlanID int64) error {
	if _, ok := v.st.plans[degreePlanID]; !ok {
		return fmt.Errorf("%w: degree plan %d", review.ErrNotFound, degreePlanID)
	}
	return nil
}

func (v *view) filter(keep func(r *review.Request) bool) []*review.Request {
	out := make([]*review.Request, 0)
	for _, r := range v.st.requests {
		if keep(r) {
			out = append(out, r.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PlanSemesterID != out[j].PlanSemesterID {
			return out[i].PlanSemesterID < out[j].PlanSemesterID
		}
		return out[i].ID < out[j].ID
	})
	return out
}
