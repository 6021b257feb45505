package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"degree_plan_review/internal/domain/degreeplan"
	"degree_plan_review/internal/domain/review"
	"degree_plan_review/internal/domain/user"

	"github.com/sirupsen/logrus"
)

// SubmissionService puts degree plans and single semesters into review.
type SubmissionService struct {
	reviews   review.Repository
	plans     degreeplan.Repository
	users     user.Repository
	logger    *logrus.Entry
	txTimeout time.Duration
	now       func() time.Time
}

func NewSubmissionService(rr review.Repository, pr degreeplan.Repository, ur user.Repository, logger *logrus.Entry, txTimeout time.Duration) *SubmissionService {
	return &SubmissionService{
		reviews:   rr,
		plans:     pr,
		users:     ur,
		logger:    logger,
		txTimeout: txTimeout,
		now:       time.Now,
	}
}

// CreateDegreePlanReview starts a review cycle for every semester of the plan that has
// planned courses. Semesters whose previous cycle finished are reset in place, so repeated
// submissions never accumulate rows.
func (s *SubmissionService) CreateDegreePlanReview(ctx context.Context, degreePlanID, studentID int64) ([]*review.Request, error) {
	log := s.logger.WithFields(logrus.Fields{
		"degree_plan_id": degreePlanID,
		"student_id":     studentID,
	})

	plan, err := s.ownedPlan(ctx, degreePlanID, studentID)
	if err != nil {
		return nil, err
	}
	if len(plan.Semesters) == 0 {
		return nil, fmt.Errorf("%w: degree plan %d has no semesters", review.ErrEmptyPlan, degreePlanID)
	}
	reviewable := make([]degreeplan.Semester, 0, len(plan.Semesters))
	for _, sem := range plan.Semesters {
		if !sem.Reviewable() {
			log.WithField("plan_semester_id", sem.ID).Debug("Skipping semester without planned courses")
			continue
		}
		reviewable = append(reviewable, sem)
	}
	if len(reviewable) == 0 {
		return nil, fmt.Errorf("%w: degree plan %d", review.ErrEmptyPlan, degreePlanID)
	}

	student, routing, err := s.route(ctx, studentID)
	if err != nil {
		log.WithError(err).Warn("Degree plan cannot be routed for review")
		return nil, err
	}

	now := s.now()
	var created []*review.Request
	err = runInTx(ctx, s.reviews, s.txTimeout, func(ctx context.Context, tx review.Store) error {
		created = created[:0]
		if err := tx.LockPlan(ctx, plan.ID); err != nil {
			return err
		}
		existing, err := tx.ListByPlan(ctx, plan.ID)
		if err != nil {
			return err
		}
		for _, r := range existing {
			if !r.Status.IsTerminal() {
				return fmt.Errorf("%w: semester %d is %s", review.ErrDuplicatePending, r.PlanSemesterID, r.Status)
			}
		}
		for _, sem := range reviewable {
			r := newRequest(plan.ID, sem.ID, student, routing, now)
			if err := tx.CreateOrReset(ctx, r); err != nil {
				return fmt.Errorf("failed to create review request for semester %d: %w", sem.ID, err)
			}
			created = append(created, r)
		}
		return nil
	})
	if err != nil {
		logFailure(log, err, "Failed to create degree plan review")
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"requests":       len(created),
		"initial_status": routing.InitialStatus,
	}).Info("Degree plan submitted for review")
	return created, nil
}

// CreateReviewRequest puts a single semester into review.
func (s *SubmissionService) CreateReviewRequest(ctx context.Context, planSemesterID, studentID int64) (*review.Request, error) {
	log := s.logger.WithFields(logrus.Fields{
		"plan_semester_id": planSemesterID,
		"student_id":       studentID,
	})

	sem, err := s.plans.GetSemester(ctx, planSemesterID)
	if err != nil {
		if errors.Is(err, degreeplan.ErrSemesterNotFound) {
			return nil, fmt.Errorf("%w: semester %d", review.ErrNotFound, planSemesterID)
		}
		return nil, fmt.Errorf("failed to get semester %d: %w", planSemesterID, err)
	}
	plan, err := s.ownedPlan(ctx, sem.PlanID, studentID)
	if err != nil {
		return nil, err
	}
	if !sem.Reviewable() {
		return nil, fmt.Errorf("%w: semester %d", review.ErrEmptySemester, sem.ID)
	}

	student, routing, err := s.route(ctx, studentID)
	if err != nil {
		log.WithError(err).Warn("Semester cannot be routed for review")
		return nil, err
	}

	now := s.now()
	var created *review.Request
	err = runInTx(ctx, s.reviews, s.txTimeout, func(ctx context.Context, tx review.Store) error {
		if err := tx.LockPlan(ctx, plan.ID); err != nil {
			return err
		}
		existing, err := tx.ListByPlan(ctx, plan.ID)
		if err != nil {
			return err
		}
		for _, r := range existing {
			if r.PlanSemesterID == sem.ID && !r.Status.IsTerminal() {
				return fmt.Errorf("%w: semester %d is %s", review.ErrDuplicatePending, sem.ID, r.Status)
			}
		}
		r := newRequest(plan.ID, sem.ID, student, routing, now)
		if err := tx.CreateOrReset(ctx, r); err != nil {
			return err
		}
		created = r
		return nil
	})
	if err != nil {
		logFailure(log, err, "Failed to create review request")
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"review_request_id": created.ID,
		"status":            created.Status,
	}).Info("Semester submitted for review")
	return created, nil
}

// PlanStatus is the review state of a whole degree plan.
type PlanStatus struct {
	DegreePlanID  int64             `json:"degreePlanId"`
	StudentID     int64             `json:"studentId"`
	FullyApproved bool              `json:"fullyApproved"`
	Requests      []*review.Request `json:"requests"`
}

// PlanReviewStatus reports every request of a plan and whether the plan is fully approved.
// Only the owning student, an assigned reviewer or an admin may look.
func (s *SubmissionService) PlanReviewStatus(ctx context.Context, degreePlanID, requesterID int64, requesterRole user.Role) (*PlanStatus, error) {
	plan, err := s.plans.GetPlan(ctx, degreePlanID)
	if err != nil {
		if errors.Is(err, degreeplan.ErrPlanNotFound) {
			return nil, fmt.Errorf("%w: degree plan %d", review.ErrNotFound, degreePlanID)
		}
		return nil, fmt.Errorf("failed to get degree plan %d: %w", degreePlanID, err)
	}
	requests, err := s.reviews.ListByPlan(ctx, plan.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list review requests for plan %d: %w", plan.ID, err)
	}

	allowed := requesterRole == user.RoleAdmin || plan.StudentID == requesterID
	for _, r := range requests {
		if r.OwnedBy(review.StageMentor, requesterID) || r.OwnedBy(review.StageAdvisor, requesterID) {
			allowed = true
		}
	}
	if !allowed {
		return nil, fmt.Errorf("%w: degree plan %d", review.ErrNotFound, degreePlanID)
	}

	return &PlanStatus{
		DegreePlanID:  plan.ID,
		StudentID:     plan.StudentID,
		FullyApproved: review.FullyApproved(requests),
		Requests:      requests,
	}, nil
}

// ownedPlan loads a plan, hiding plans of other students behind ErrNotFound.
func (s *SubmissionService) ownedPlan(ctx context.Context, degreePlanID, studentID int64) (*degreeplan.Plan, error) {
	plan, err := s.plans.GetPlan(ctx, degreePlanID)
	if err != nil {
		if errors.Is(err, degreeplan.ErrPlanNotFound) {
			return nil, fmt.Errorf("%w: degree plan %d", review.ErrNotFound, degreePlanID)
		}
		return nil, fmt.Errorf("failed to get degree plan %d: %w", degreePlanID, err)
	}
	if plan.StudentID != studentID {
		return nil, fmt.Errorf("%w: degree plan %d", review.ErrNotFound, degreePlanID)
	}
	return plan, nil
}

func (s *SubmissionService) route(ctx context.Context, studentID int64) (*user.User, review.Routing, error) {
	student, err := s.users.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, review.Routing{}, fmt.Errorf("%w: student %d", review.ErrNotFound, studentID)
		}
		return nil, review.Routing{}, fmt.Errorf("failed to get student %d: %w", studentID, err)
	}
	routing, err := review.Route(review.RoutingInputFor(student))
	if err != nil {
		return nil, review.Routing{}, err
	}
	return student, routing, nil
}

func newRequest(planID, semesterID int64, student *user.User, routing review.Routing, now time.Time) *review.Request {
	r := &review.Request{
		PlanSemesterID: semesterID,
		DegreePlanID:   planID,
		StudentID:      student.ID,
	}
	r.Reset(routing,
		int64Ptr(student.MentorID.Valid, student.MentorID.Int64),
		int64Ptr(student.AdvisorID.Valid, student.AdvisorID.Int64),
		now)
	return r
}

// logFailure logs expected domain outcomes at warn level and everything else as errors.
func logFailure(log *logrus.Entry, err error, msg string) {
	if isDomainError(err) {
		log.WithError(err).Warn(msg)
		return
	}
	log.WithError(err).Error(msg)
}

func isDomainError(err error) bool {
	for _, target := range []error{
		review.ErrNotFound,
		review.ErrEmptyPlan,
		review.ErrEmptySemester,
		review.ErrMissingAdvisor,
		review.ErrMissingMentorForFYE,
		review.ErrDuplicatePending,
		review.ErrInvalidTransition,
		review.ErrNoPendingReviews,
		review.ErrValidation,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
