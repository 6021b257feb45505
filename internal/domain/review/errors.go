package review

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrEmptyPlan           = errors.New("degree plan has no semesters with planned courses")
	ErrEmptySemester       = errors.New("semester has no planned courses")
	ErrMissingAdvisor      = errors.New("student has no advisor assigned")
	ErrMissingMentorForFYE = errors.New("first-year experience student has no mentor assigned")
	ErrDuplicatePending    = errors.New("a review is already in progress for this degree plan")
	ErrInvalidTransition   = errors.New("review request is not awaiting this decision")
	ErrNoPendingReviews    = errors.New("no pending reviews")
	ErrValidation          = errors.New("invalid input")

	// ErrRequestNotFound is returned by repositories for a missing review request.
	ErrRequestNotFound = fmt.Errorf("review request %w", ErrNotFound)
)

// NoPendingReason says why a bulk selection came back empty.
type NoPendingReason string

const (
	ReasonNoRequests       NoPendingReason = "NO_REQUESTS"
	ReasonAwaitingEarlier  NoPendingReason = "AWAITING_EARLIER_STAGE"
	ReasonAlreadyProcessed NoPendingReason = "ALREADY_PROCESSED"
	ReasonNotAssigned      NoPendingReason = "NOT_ASSIGNED"
)

// NoPendingError is returned when a reviewer has nothing to decide on a plan.
type NoPendingError struct {
	Stage  Stage
	Reason NoPendingReason
}

func (e *NoPendingError) Error() string {
	var msg string
	switch e.Reason {
	case ReasonNoRequests:
		msg = "no review requests exist for this degree plan"
	case ReasonAwaitingEarlier:
		msg = "review requests for this degree plan are still awaiting mentor review"
	case ReasonAlreadyProcessed:
		msg = "review requests for this degree plan have already been processed"
	case ReasonNotAssigned:
		msg = "pending review requests for this degree plan are assigned to another reviewer"
	default:
		msg = "nothing to review"
	}
	return fmt.Sprintf("%s: %s", ErrNoPendingReviews, msg)
}

func (e *NoPendingError) Unwrap() error { return ErrNoPendingReviews }

// ExplainNoPending classifies an empty selection for reviewerID at stage given every
// request of the plan.
func ExplainNoPending(stage Stage, reviewerID int64, planRequests []*Request) *NoPendingError {
	e := &NoPendingError{Stage: stage, Reason: ReasonAlreadyProcessed}
	if len(planRequests) == 0 {
		e.Reason = ReasonNoRequests
		return e
	}
	pending := stage.PendingStatus()
	for _, r := range planRequests {
		if r.Status == pending {
			e.Reason = ReasonNotAssigned
			return e
		}
	}
	if stage == StageAdvisor {
		for _, r := range planRequests {
			if r.Status == StatusPendingMentor {
				e.Reason = ReasonAwaitingEarlier
				return e
			}
		}
	}
	for _, r := range planRequests {
		if r.OwnedBy(stage, reviewerID) {
			return e
		}
	}
	// Nothing on the plan was ever routed to this reviewer.
	e.Reason = ReasonNotAssigned
	return e
}
