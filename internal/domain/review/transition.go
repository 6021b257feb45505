package review

import (
	"fmt"
	"strings"
	"time"
)

const (
	DefaultMentorRejectionReason  = "Rejected by mentor. Please revise your degree plan and resubmit."
	DefaultAdvisorRejectionReason = "Rejected by advisor. Please revise your degree plan and resubmit."
)

// Decision is a reviewer's verdict on one request.
type Decision struct {
	Approve         bool
	Comment         string
	RejectionReason string
}

// Decide applies a stage decision:
//
//	PENDING_MENTOR  -> PENDING_ADVISOR | REJECTED
//	PENDING_ADVISOR -> APPROVED        | REJECTED
//
// Anything else fails with ErrInvalidTransition and leaves r untouched.
func (r *Request) Decide(stage Stage, d Decision, now time.Time) error {
	if !stage.Valid() {
		return fmt.Errorf("%w: unknown stage %q", ErrValidation, stage)
	}
	if r.Status != stage.PendingStatus() {
		return fmt.Errorf("%w: request %d is %s", ErrInvalidTransition, r.ID, r.Status)
	}
	if stage == StageMentor && d.Approve && r.AdvisorID == nil {
		return fmt.Errorf("%w: request %d", ErrMissingAdvisor, r.ID)
	}

	stamp := now
	if stage == StageMentor {
		r.MentorReviewedAt = &stamp
	} else {
		r.AdvisorReviewedAt = &stamp
	}
	if c := strings.TrimSpace(d.Comment); c != "" {
		r.SetComment(stage, c)
	}

	if !d.Approve {
		reason := strings.TrimSpace(d.RejectionReason)
		if reason == "" {
			reason = defaultRejectionReason(stage)
		}
		r.RejectionReason = &reason
		r.Status = StatusRejected
		return nil
	}

	if stage == StageMentor {
		r.Status = StatusPendingAdvisor
	} else {
		r.Status = StatusApproved
	}
	return nil
}

func defaultRejectionReason(stage Stage) string {
	if stage == StageMentor {
		return DefaultMentorRejectionReason
	}
	return DefaultAdvisorRejectionReason
}

// Reset starts a new cycle on a terminal request: review stamps, comments and the
// rejection reason are cleared and the request enters the routed initial stage.
func (r *Request) Reset(routing Routing, mentorID, advisorID *int64, now time.Time) {
	r.Status = routing.InitialStatus
	r.RequestedAt = now
	r.MentorID = nil
	if routing.RequiresMentorStage {
		r.MentorID = cloneInt64(mentorID)
	}
	r.AdvisorID = cloneInt64(advisorID)
	r.MentorReviewedAt = nil
	r.AdvisorReviewedAt = nil
	r.MentorComment = nil
	r.AdvisorComment = nil
	r.RejectionReason = nil
}

// SkipMentorStage moves a PENDING_MENTOR request straight to the advisor, used when the
// student no longer qualifies for mentor review.
func (r *Request) SkipMentorStage(advisorID *int64) error {
	if r.Status != StatusPendingMentor {
		return fmt.Errorf("%w: request %d is %s", ErrInvalidTransition, r.ID, r.Status)
	}
	if r.AdvisorID == nil {
		r.AdvisorID = cloneInt64(advisorID)
	}
	if r.AdvisorID == nil {
		return fmt.Errorf("%w: request %d", ErrMissingAdvisor, r.ID)
	}
	r.MentorID = nil
	r.Status = StatusPendingAdvisor
	return nil
}
