// Package review models per-semester review requests and the rules that move them
// through the mentor and advisor stages.
package review

import "time"

// Status is the state of a review request.
type Status string

const (
	StatusPendingMentor  Status = "PENDING_MENTOR"
	StatusPendingAdvisor Status = "PENDING_ADVISOR"
	StatusApproved       Status = "APPROVED"
	StatusRejected       Status = "REJECTED"
)

// IsTerminal reports whether no reviewer action is outstanding.
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

func (s Status) Valid() bool {
	switch s {
	case StatusPendingMentor, StatusPendingAdvisor, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Stage is a reviewer phase.
type Stage string

const (
	StageMentor  Stage = "MENTOR"
	StageAdvisor Stage = "ADVISOR"
)

func (s Stage) Valid() bool {
	return s == StageMentor || s == StageAdvisor
}

// PendingStatus is the status a request holds while waiting on this stage.
func (s Stage) PendingStatus() Status {
	if s == StageMentor {
		return StatusPendingMentor
	}
	return StatusPendingAdvisor
}

// Request tracks one semester through one review cycle. A new cycle resets the row in place.
// Corresponds to the 'review_requests' table.
type Request struct {
	ID                int64      `json:"id"`
	PlanSemesterID    int64      `json:"planSemesterId"`
	DegreePlanID      int64      `json:"degreePlanId"`
	StudentID         int64      `json:"studentId"`
	MentorID          *int64     `json:"mentorId,omitempty"`
	AdvisorID         *int64     `json:"advisorId,omitempty"`
	Status            Status     `json:"status"`
	RequestedAt       time.Time  `json:"requestedAt"`
	MentorReviewedAt  *time.Time `json:"mentorReviewedAt,omitempty"`
	AdvisorReviewedAt *time.Time `json:"advisorReviewedAt,omitempty"`
	MentorComment     *string    `json:"mentorComment,omitempty"`
	AdvisorComment    *string    `json:"advisorComment,omitempty"`
	RejectionReason   *string    `json:"rejectionReason,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// ReviewerFor returns the reviewer assigned to the stage, or nil.
func (r *Request) ReviewerFor(stage Stage) *int64 {
	if stage == StageMentor {
		return r.MentorID
	}
	return r.AdvisorID
}

// OwnedBy reports whether reviewerID is the reviewer assigned to the stage.
func (r *Request) OwnedBy(stage Stage, reviewerID int64) bool {
	id := r.ReviewerFor(stage)
	return id != nil && *id == reviewerID
}

// CommentFor returns the stored comment of the stage, or "".
func (r *Request) CommentFor(stage Stage) string {
	c := r.MentorComment
	if stage == StageAdvisor {
		c = r.AdvisorComment
	}
	if c == nil {
		return ""
	}
	return *c
}

// SetComment overwrites the stage comment. Empty text clears it.
func (r *Request) SetComment(stage Stage, text string) {
	var c *string
	if text != "" {
		c = &text
	}
	if stage == StageMentor {
		r.MentorComment = c
	} else {
		r.AdvisorComment = c
	}
}

// Clone returns a deep copy.
func (r *Request) Clone() *Request {
	c := *r
	c.MentorID = cloneInt64(r.MentorID)
	c.AdvisorID = cloneInt64(r.AdvisorID)
	c.MentorReviewedAt = cloneTime(r.MentorReviewedAt)
	c.AdvisorReviewedAt = cloneTime(r.AdvisorReviewedAt)
	c.MentorComment = cloneString(r.MentorComment)
	c.AdvisorComment = cloneString(r.AdvisorComment)
	c.RejectionReason = cloneString(r.RejectionReason)
	return &c
}

func cloneInt64(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneTime(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// FullyApproved reports plan-level approval: every semester's request is APPROVED.
// A plan without requests is not approved.
func FullyApproved(requests []*Request) bool {
	if len(requests) == 0 {
		return false
	}
	for _, r := range requests {
		if r.Status != StatusApproved {
			return false
		}
	}
	return true
}
