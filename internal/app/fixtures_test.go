package app

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"degree_plan_review/internal/domain/degreeplan"
	"degree_plan_review/internal/domain/notification"
	"degree_plan_review/internal/domain/review"
	"degree_plan_review/internal/domain/user"
	"degree_plan_review/internal/infra/memory"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

const (
	mentorID      int64 = 20
	otherMentorID int64 = 21
	advisorID     int64 = 30
	otherAdvisor  int64 = 31
	adminID       int64 = 40

	fyeFreshmanID int64 = 1
	seniorID      int64 = 2

	fyePlanID    int64 = 100
	seniorPlanID int64 = 200
)

var fixedNow = time.Date(2025, 9, 1, 9, 30, 0, 0, time.UTC)

type recordingDispatcher struct {
	mu      sync.Mutex
	notices []notification.Notice
}

func (d *recordingDispatcher) Dispatch(n notification.Notice) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notices = append(d.notices, n)
}

func (d *recordingDispatcher) all() []notification.Notice {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]notification.Notice(nil), d.notices...)
}

type env struct {
	store       *memory.Store
	notices     *recordingDispatcher
	hook        *test.Hook
	submissions *SubmissionService
	reviews     *ReviewService
	admin       *AdminService
}

func nullID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: true}
}

func student(id int64, class user.Classification, fye bool, mentor, advisor int64) *user.User {
	u := &user.User{
		ID:             id,
		Email:          "student@example.edu",
		FirstName:      "Student",
		Role:           user.RoleStudent,
		Classification: class,
		IsFYEStudent:   fye,
	}
	if mentor != 0 {
		u.MentorID = nullID(mentor)
	}
	if advisor != 0 {
		u.AdvisorID = nullID(advisor)
	}
	return u
}

func plan(id, studentID int64, courseCounts ...int) *degreeplan.Plan {
	p := &degreeplan.Plan{ID: id, StudentID: studentID, Name: "plan"}
	terms := []string{"FALL", "SPRING", "SUMMER"}
	for i, n := range courseCounts {
		p.Semesters = append(p.Semesters, degreeplan.Semester{
			ID:          id*10 + int64(i+1),
			Term:        terms[i%len(terms)],
			Year:        2025 + (i+1)/2,
			CourseCount: n,
		})
	}
	return p
}

// newEnv seeds reviewers, an FYE freshman with a three-semester plan whose last semester
// is empty, and a senior with a single-semester plan.
func newEnv(t *testing.T) *env {
	t.Helper()
	store := memory.NewStore()
	store.PutUser(&user.User{ID: mentorID, FirstName: "Mia", LastName: sql.NullString{String: "Mentor", Valid: true}, Role: user.RoleMentor})
	store.PutUser(&user.User{ID: otherMentorID, FirstName: "Max", Role: user.RoleMentor})
	store.PutUser(&user.User{ID: advisorID, FirstName: "Ada", LastName: sql.NullString{String: "Advisor", Valid: true}, Role: user.RoleAdvisor})
	store.PutUser(&user.User{ID: otherAdvisor, FirstName: "Abe", Role: user.RoleAdvisor})
	store.PutUser(&user.User{ID: adminID, FirstName: "Root", Role: user.RoleAdmin})

	fye := student(fyeFreshmanID, user.ClassificationFreshman, true, mentorID, advisorID)
	fye.TelegramID = nullID(5551)
	store.PutUser(fye)
	store.PutUser(student(seniorID, user.ClassificationSenior, false, 0, advisorID))

	store.PutPlan(plan(fyePlanID, fyeFreshmanID, 4, 3, 0))
	store.PutPlan(plan(seniorPlanID, seniorID, 5))

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	entry := logrus.NewEntry(logger)
	notices := &recordingDispatcher{}

	e := &env{
		store:       store,
		notices:     notices,
		hook:        hook,
		submissions: NewSubmissionService(store, store, store.Users(), entry, time.Second),
		reviews:     NewReviewService(store, store, notices, entry, time.Second),
		admin:       NewAdminService(store, store.Users(), entry, time.Second, 777),
	}
	e.submissions.now = func() time.Time { return fixedNow }
	e.reviews.now = func() time.Time { return fixedNow }
	return e
}

func (e *env) requests(t *testing.T, planID int64) []*review.Request {
	t.Helper()
	reqs, err := e.store.ListByPlan(context.Background(), planID)
	if err != nil {
		t.Fatalf("list requests: %v", err)
	}
	return reqs
}

// failingRepo fails the nth Update inside a transaction.
type failingRepo struct {
	*memory.Store
	failOn int
}

func (f *failingRepo) WithinTx(ctx context.Context, fn func(ctx context.Context, tx review.Store) error) error {
	calls := 0
	return f.Store.WithinTx(ctx, func(ctx context.Context, tx review.Store) error {
		return fn(ctx, &failingTx{Store: tx, calls: &calls, failOn: f.failOn})
	})
}

var errDiskFull = errors.New("disk full")

type failingTx struct {
	review.Store
	calls  *int
	failOn int
}

func (t *failingTx) Update(ctx context.Context, r *review.Request) error {
	*t.calls++
	if *t.calls == t.failOn {
		return errDiskFull
	}
	return t.Store.Update(ctx, r)
}
