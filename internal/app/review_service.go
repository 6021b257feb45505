package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"degree_plan_review/internal/domain/degreeplan"
	"degree_plan_review/internal/domain/notification"
	"degree_plan_review/internal/domain/review"

	"github.com/sirupsen/logrus"
)

const maxCommentLength = 4000

// ReviewService records reviewer decisions and comments.
type ReviewService struct {
	reviews   review.Repository
	plans     degreeplan.Repository
	notices   notification.Dispatcher
	logger    *logrus.Entry
	txTimeout time.Duration
	now       func() time.Time
}

func NewReviewService(
	rr review.Repository,
	pr degreeplan.Repository,
	nd notification.Dispatcher,
	logger *logrus.Entry,
	txTimeout time.Duration,
) *ReviewService {
	return &ReviewService{
		reviews:   rr,
		plans:     pr,
		notices:   nd,
		logger:    logger,
		txTimeout: txTimeout,
		now:       time.Now,
	}
}

// SubmitMentorDecision records the mentor's decision on one request.
func (s *ReviewService) SubmitMentorDecision(ctx context.Context, requestID, reviewerID int64, d review.Decision) (*review.Request, error) {
	return s.submitDecision(ctx, review.StageMentor, requestID, reviewerID, d)
}

// SubmitAdvisorDecision records the advisor's decision on one request.
func (s *ReviewService) SubmitAdvisorDecision(ctx context.Context, requestID, reviewerID int64, d review.Decision) (*review.Request, error) {
	return s.submitDecision(ctx, review.StageAdvisor, requestID, reviewerID, d)
}

func (s *ReviewService) submitDecision(ctx context.Context, stage review.Stage, requestID, reviewerID int64, d review.Decision) (*review.Request, error) {
	log := s.logger.WithFields(logrus.Fields{
		"review_request_id": requestID,
		"reviewer_id":       reviewerID,
		"stage":             stage,
		"approve":           d.Approve,
	})
	if err := validateText(d.Comment, "comment"); err != nil {
		return nil, err
	}

	now := s.now()
	var updated *review.Request
	err := runInTx(ctx, s.reviews, s.txTimeout, func(ctx context.Context, tx review.Store) error {
		r, err := tx.GetByID(ctx, requestID)
		if err != nil {
			return err
		}
		if !r.OwnedBy(stage, reviewerID) {
			return fmt.Errorf("%w: review request %d is not assigned to reviewer %d", review.ErrNotFound, requestID, reviewerID)
		}
		if err := r.Decide(stage, d, now); err != nil {
			return err
		}
		if err := tx.Update(ctx, r); err != nil {
			return err
		}
		updated = r
		return nil
	})
	if err != nil {
		logFailure(log, err, "Failed to record review decision")
		return nil, err
	}
	log.WithField("status", updated.Status).Info("Review decision recorded")

	var comments []string
	if c := updated.CommentFor(stage); c != "" && strings.TrimSpace(d.Comment) != "" {
		comments = append(comments, c)
	}
	s.notify(notification.Notice{
		DegreePlanID:    updated.DegreePlanID,
		StudentID:       updated.StudentID,
		ReviewerID:      reviewerID,
		Stage:           stage,
		Approved:        d.Approve,
		RejectionReason: deref(updated.RejectionReason),
		Comments:        comments,
		SemesterCount:   1,
	})
	return updated, nil
}

// SemesterComment carries per-request input of a bulk decision.
type SemesterComment struct {
	RequestID       int64  `json:"requestId"`
	Comment         string `json:"comment"`
	RejectionReason string `json:"rejectionReason"`
}

// BulkDecision is one reviewer verdict for all of their pending requests on a plan.
type BulkDecision struct {
	DegreePlanID           int64
	ReviewerID             int64
	Stage                  review.Stage
	Approve                bool
	SemesterComments       []SemesterComment
	GeneralRejectionReason string
}

// SubmitBulkDecision applies one decision to every request of the plan that is waiting on
// this reviewer's stage. Either every request changes or none does. The student gets a
// single notice summarizing the outcome.
func (s *ReviewService) SubmitBulkDecision(ctx context.Context, in BulkDecision) ([]*review.Request, error) {
	log := s.logger.WithFields(logrus.Fields{
		"degree_plan_id": in.DegreePlanID,
		"reviewer_id":    in.ReviewerID,
		"stage":          in.Stage,
		"approve":        in.Approve,
	})

	if !in.Stage.Valid() {
		return nil, fmt.Errorf("%w: unknown stage %q", review.ErrValidation, in.Stage)
	}
	general := strings.TrimSpace(in.GeneralRejectionReason)
	if !in.Approve && general == "" {
		return nil, fmt.Errorf("%w: a rejection reason is required when rejecting", review.ErrValidation)
	}
	byRequest := make(map[int64]SemesterComment, len(in.SemesterComments))
	for _, c := range in.SemesterComments {
		if err := validateText(c.Comment, "comment"); err != nil {
			return nil, err
		}
		if err := validateText(c.RejectionReason, "rejection reason"); err != nil {
			return nil, err
		}
		byRequest[c.RequestID] = c
	}

	plan, err := s.plans.GetPlan(ctx, in.DegreePlanID)
	if err != nil {
		if errors.Is(err, degreeplan.ErrPlanNotFound) {
			return nil, fmt.Errorf("%w: degree plan %d", review.ErrNotFound, in.DegreePlanID)
		}
		return nil, fmt.Errorf("failed to get degree plan %d: %w", in.DegreePlanID, err)
	}

	now := s.now()
	var updated []*review.Request
	err = runInTx(ctx, s.reviews, s.txTimeout, func(ctx context.Context, tx review.Store) error {
		updated = nil
		if err := tx.LockPlan(ctx, plan.ID); err != nil {
			return err
		}
		pending, err := tx.FindPending(ctx, plan.ID, in.Stage.PendingStatus(), in.ReviewerID)
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			all, err := tx.ListByPlan(ctx, plan.ID)
			if err != nil {
				return err
			}
			return review.ExplainNoPending(in.Stage, in.ReviewerID, all)
		}

		for _, r := range pending {
			d := review.Decision{Approve: in.Approve}
			if c, ok := byRequest[r.ID]; ok {
				d.Comment = c.Comment
				if !in.Approve {
					d.RejectionReason = c.RejectionReason
				}
			}
			if !in.Approve && strings.TrimSpace(d.RejectionReason) == "" {
				d.RejectionReason = general
			}
			if err := r.Decide(in.Stage, d, now); err != nil {
				return err
			}
			if err := tx.Update(ctx, r); err != nil {
				return fmt.Errorf("failed to update review request %d: %w", r.ID, err)
			}
			updated = append(updated, r)
		}
		return nil
	})
	if err != nil {
		logFailure(log, err, "Failed to apply bulk review decision")
		return nil, err
	}
	log.WithField("requests", len(updated)).Info("Bulk review decision recorded")

	var comments []string
	reason := ""
	if !in.Approve {
		reason = general
	}
	for _, r := range updated {
		label := fmt.Sprintf("semester %d", r.PlanSemesterID)
		if sem, ok := plan.SemesterByID(r.PlanSemesterID); ok {
			label = sem.Label()
		}
		if c := strings.TrimSpace(byRequest[r.ID].Comment); c != "" {
			comments = append(comments, label+": "+c)
		}
		if specific := deref(r.RejectionReason); !in.Approve && specific != general {
			comments = append(comments, label+": "+specific)
		}
	}
	s.notify(notification.Notice{
		DegreePlanID:    plan.ID,
		StudentID:       plan.StudentID,
		ReviewerID:      in.ReviewerID,
		Stage:           in.Stage,
		Approved:        in.Approve,
		RejectionReason: reason,
		Comments:        comments,
		SemesterCount:   len(updated),
	})
	return updated, nil
}

// UpdateComment rewrites the reviewer's own comment on a request without touching its status.
func (s *ReviewService) UpdateComment(ctx context.Context, requestID, reviewerID int64, stage review.Stage, text string) (*review.Request, error) {
	log := s.logger.WithFields(logrus.Fields{
		"review_request_id": requestID,
		"reviewer_id":       reviewerID,
		"stage":             stage,
	})
	if !stage.Valid() {
		return nil, fmt.Errorf("%w: unknown stage %q", review.ErrValidation, stage)
	}
	if err := validateText(text, "comment"); err != nil {
		return nil, err
	}

	var updated *review.Request
	err := runInTx(ctx, s.reviews, s.txTimeout, func(ctx context.Context, tx review.Store) error {
		r, err := tx.GetByID(ctx, requestID)
		if err != nil {
			return err
		}
		if !r.OwnedBy(stage, reviewerID) {
			return fmt.Errorf("%w: review request %d is not assigned to reviewer %d", review.ErrNotFound, requestID, reviewerID)
		}
		r.SetComment(stage, strings.TrimSpace(text))
		if err := tx.Update(ctx, r); err != nil {
			return err
		}
		updated = r
		return nil
	})
	if err != nil {
		logFailure(log, err, "Failed to update review comment")
		return nil, err
	}
	log.Info("Review comment updated")
	return updated, nil
}

// notify hands a notice to the dispatcher after commit. Contact details are resolved on
// the dispatcher's worker.
func (s *ReviewService) notify(n notification.Notice) {
	if s.notices == nil {
		return
	}
	s.notices.Dispatch(n)
}

func validateText(text, field string) error {
	if utf8.RuneCountInString(text) > maxCommentLength {
		return fmt.Errorf("%w: %s exceeds %d characters", review.ErrValidation, field, maxCommentLength)
	}
	return nil
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
