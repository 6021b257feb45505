package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"degree_plan_review/internal/domain/review"
	"degree_plan_review/internal/domain/user"

	"github.com/sirupsen/logrus"
)

// Custom application-level errors for admin service
var ErrAdminNotAuthorized = errors.New("performing user is not authorized as an admin")

// upperclass students never go through the mentor stage.
var upperclass = []user.Classification{user.ClassificationJunior, user.ClassificationSenior}

type AdminService struct {
	reviews         review.Repository
	users           user.Repository
	logger          *logrus.Entry
	txTimeout       time.Duration
	adminTelegramID int64
}

func NewAdminService(rr review.Repository, ur user.Repository, logger *logrus.Entry, txTimeout time.Duration, adminTelegramID int64) *AdminService {
	return &AdminService{
		reviews:         rr,
		users:           ur,
		logger:          logger,
		txTimeout:       txTimeout,
		adminTelegramID: adminTelegramID,
	}
}

// AuthorizeTelegramAdmin checks a bot sender against the configured admin account.
func (s *AdminService) AuthorizeTelegramAdmin(senderTelegramID int64) error {
	if s.adminTelegramID == 0 || senderTelegramID != s.adminTelegramID {
		return ErrAdminNotAuthorized
	}
	return nil
}

// ReclassifyPendingMentorRequests advances PENDING_MENTOR requests of students who have
// since become juniors or seniors to PENDING_ADVISOR and clears their mentor. Running it
// again finds nothing to change.
func (s *AdminService) ReclassifyPendingMentorRequests(ctx context.Context) ([]*review.Request, error) {
	log := s.logger.WithField("operation", "reclassify_pending_mentor")

	candidates, err := s.reviews.ListPendingMentorByClassification(ctx, upperclass)
	if err != nil {
		log.WithError(err).Error("Failed to list pending mentor requests")
		return nil, fmt.Errorf("failed to list pending mentor requests: %w", err)
	}
	if len(candidates) == 0 {
		log.Debug("No pending mentor requests need reclassification")
		return []*review.Request{}, nil
	}

	// Routing is re-evaluated against the student's current record before touching a row.
	advisors := make(map[int64]*int64, len(candidates))
	for _, r := range candidates {
		entry := log.WithFields(logrus.Fields{"review_request_id": r.ID, "student_id": r.StudentID})
		student, err := s.users.GetByID(ctx, r.StudentID)
		if err != nil {
			entry.WithError(err).Warn("Could not load student, skipping request")
			continue
		}
		input := review.RoutingInputFor(student)
		if !input.HasAdvisor && r.AdvisorID != nil {
			// The advisor stored on the row still owns the next stage.
			input.HasAdvisor = true
		}
		routing, err := review.Route(input)
		if err != nil {
			entry.WithError(err).Warn("Student cannot be routed, skipping request")
			continue
		}
		if routing.RequiresMentorStage {
			continue
		}
		advisors[r.ID] = int64Ptr(student.AdvisorID.Valid, student.AdvisorID.Int64)
	}

	var corrected []*review.Request
	err = runInTx(ctx, s.reviews, s.txTimeout, func(ctx context.Context, tx review.Store) error {
		corrected = corrected[:0]
		for _, c := range candidates {
			advisorID, ok := advisors[c.ID]
			if !ok {
				continue
			}
			r, err := tx.GetByID(ctx, c.ID)
			if err != nil {
				return err
			}
			if r.Status != review.StatusPendingMentor {
				continue
			}
			if err := r.SkipMentorStage(advisorID); err != nil {
				log.WithError(err).WithField("review_request_id", r.ID).Warn("Request cannot skip mentor stage")
				continue
			}
			if err := tx.Update(ctx, r); err != nil {
				return fmt.Errorf("failed to update review request %d: %w", r.ID, err)
			}
			corrected = append(corrected, r)
		}
		return nil
	})
	if err != nil {
		log.WithError(err).Error("Failed to reclassify pending mentor requests")
		return nil, err
	}

	log.WithField("corrected", len(corrected)).Info("Pending mentor requests reclassified")
	if corrected == nil {
		corrected = []*review.Request{}
	}
	return corrected, nil
}

// DeleteReviewRequest removes one review request.
func (s *AdminService) DeleteReviewRequest(ctx context.Context, requestID int64) error {
	if err := s.reviews.Delete(ctx, requestID); err != nil {
		if errors.Is(err, review.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete review request %d: %w", requestID, err)
	}
	s.logger.WithField("review_request_id", requestID).Info("Review request deleted")
	return nil
}
