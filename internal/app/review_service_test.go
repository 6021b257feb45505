package app

import (
	"context"
	"strings"
	"testing"

	"degree_plan_review/internal/domain/review"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func submitFYEPlan(t *testing.T, e *env) []*review.Request {
	t.Helper()
	created, err := e.submissions.CreateDegreePlanReview(context.Background(), fyePlanID, fyeFreshmanID)
	require.NoError(t, err)
	require.Len(t, created, 2)
	return created
}

func TestSingleDecisions_MentorThenAdvisorRejects(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	created := submitFYEPlan(t, e)

	r, err := e.reviews.SubmitMentorDecision(ctx, created[0].ID, mentorID, review.Decision{Approve: true, Comment: "good balance"})
	require.NoError(t, err)
	assert.Equal(t, review.StatusPendingAdvisor, r.Status)
	assert.Equal(t, fixedNow, *r.MentorReviewedAt)
	assert.Equal(t, "good balance", *r.MentorComment)

	r, err = e.reviews.SubmitAdvisorDecision(ctx, created[0].ID, advisorID, review.Decision{RejectionReason: "missing prerequisite"})
	require.NoError(t, err)
	assert.Equal(t, review.StatusRejected, r.Status)
	assert.Equal(t, "missing prerequisite", *r.RejectionReason)
	assert.Equal(t, "good balance", *r.MentorComment, "mentor comment survives the advisor decision")

	notices := e.notices.all()
	require.Len(t, notices, 2)
	assert.True(t, notices[0].Approved)
	assert.Equal(t, review.StageMentor, notices[0].Stage)
	assert.Equal(t, mentorID, notices[0].ReviewerID)
	assert.Equal(t, []string{"good balance"}, notices[0].Comments)

	rejected := notices[1]
	assert.False(t, rejected.Approved)
	assert.Equal(t, review.StageAdvisor, rejected.Stage)
	assert.Equal(t, "missing prerequisite", rejected.RejectionReason)
	assert.Equal(t, 1, rejected.SemesterCount)
	assert.Equal(t, fyeFreshmanID, rejected.StudentID)
	assert.Equal(t, advisorID, rejected.ReviewerID)
	assert.Empty(t, rejected.StudentEmail, "contact details are resolved by the dispatcher")
	assert.Equal(t, fyePlanID, rejected.DegreePlanID)
}

func TestSingleDecisions_Guards(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	created := submitFYEPlan(t, e)

	_, err := e.reviews.SubmitMentorDecision(ctx, created[0].ID, otherMentorID, review.Decision{Approve: true})
	assert.ErrorIs(t, err, review.ErrNotFound, "unassigned mentor")

	_, err = e.reviews.SubmitAdvisorDecision(ctx, created[0].ID, advisorID, review.Decision{Approve: true})
	assert.ErrorIs(t, err, review.ErrInvalidTransition, "advisor cannot act before the mentor")

	_, err = e.reviews.SubmitMentorDecision(ctx, 12345, mentorID, review.Decision{Approve: true})
	assert.ErrorIs(t, err, review.ErrNotFound)

	_, err = e.reviews.SubmitMentorDecision(ctx, created[0].ID, mentorID, review.Decision{Approve: true, Comment: strings.Repeat("x", maxCommentLength+1)})
	assert.ErrorIs(t, err, review.ErrValidation)

	_, err = e.reviews.SubmitMentorDecision(ctx, created[0].ID, mentorID, review.Decision{})
	require.NoError(t, err)
	_, err = e.reviews.SubmitMentorDecision(ctx, created[0].ID, mentorID, review.Decision{Approve: true})
	assert.ErrorIs(t, err, review.ErrInvalidTransition, "rejected requests are final for this cycle")

	rows := e.requests(t, fyePlanID)
	assert.Equal(t, review.StatusRejected, rows[0].Status)
	assert.Equal(t, review.DefaultMentorRejectionReason, *rows[0].RejectionReason)
	assert.Equal(t, review.StatusPendingMentor, rows[1].Status)
	assert.Len(t, e.notices.all(), 1)
}

func TestBulkDecision_ApproveAllWithOneNotice(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	created := submitFYEPlan(t, e)

	updated, err := e.reviews.SubmitBulkDecision(ctx, BulkDecision{
		DegreePlanID: fyePlanID,
		ReviewerID:   mentorID,
		Stage:        review.StageMentor,
		Approve:      true,
		SemesterComments: []SemesterComment{
			{RequestID: created[0].ID, Comment: "solid start"},
		},
	})

	require.NoError(t, err)
	require.Len(t, updated, 2)
	for _, r := range updated {
		assert.Equal(t, review.StatusPendingAdvisor, r.Status)
		assert.Equal(t, fixedNow, *r.MentorReviewedAt)
	}
	assert.Equal(t, "solid start", *updated[0].MentorComment)
	assert.Nil(t, updated[1].MentorComment)

	notices := e.notices.all()
	require.Len(t, notices, 1)
	assert.Equal(t, 2, notices[0].SemesterCount)
	assert.True(t, notices[0].Approved)
	assert.Equal(t, []string{"FALL 2025: solid start"}, notices[0].Comments)
}

func TestBulkDecision_RejectWithGeneralAndSpecificReasons(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	created := submitFYEPlan(t, e)
	_, err := e.reviews.SubmitBulkDecision(ctx, BulkDecision{DegreePlanID: fyePlanID, ReviewerID: mentorID, Stage: review.StageMentor, Approve: true})
	require.NoError(t, err)

	updated, err := e.reviews.SubmitBulkDecision(ctx, BulkDecision{
		DegreePlanID:           fyePlanID,
		ReviewerID:             advisorID,
		Stage:                  review.StageAdvisor,
		GeneralRejectionReason: "plan exceeds credit limit",
		SemesterComments: []SemesterComment{
			{RequestID: created[1].ID, RejectionReason: "lab conflicts with lecture"},
		},
	})

	require.NoError(t, err)
	require.Len(t, updated, 2)
	assert.Equal(t, "plan exceeds credit limit", *updated[0].RejectionReason)
	assert.Equal(t, "lab conflicts with lecture", *updated[1].RejectionReason)
	for _, r := range e.requests(t, fyePlanID) {
		assert.Equal(t, review.StatusRejected, r.Status)
	}

	notices := e.notices.all()
	require.Len(t, notices, 2)
	assert.False(t, notices[1].Approved)
	assert.Equal(t, "plan exceeds credit limit", notices[1].RejectionReason)
	assert.Equal(t, []string{"SPRING 2026: lab conflicts with lecture"}, notices[1].Comments)
	assert.Contains(t, notices[1].Body(), "lab conflicts with lecture")
}

func TestBulkDecision_RejectRequiresReason(t *testing.T) {
	e := newEnv(t)
	submitFYEPlan(t, e)

	_, err := e.reviews.SubmitBulkDecision(context.Background(), BulkDecision{
		DegreePlanID:           fyePlanID,
		ReviewerID:             mentorID,
		Stage:                  review.StageMentor,
		GeneralRejectionReason: "   ",
	})

	require.ErrorIs(t, err, review.ErrValidation)
	for _, r := range e.requests(t, fyePlanID) {
		assert.Equal(t, review.StatusPendingMentor, r.Status)
	}
	assert.Empty(t, e.notices.all())
}

func TestBulkDecision_NoPendingReasons(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	bulk := func(reviewer int64, stage review.Stage, planID int64) error {
		_, err := e.reviews.SubmitBulkDecision(ctx, BulkDecision{DegreePlanID: planID, ReviewerID: reviewer, Stage: stage, Approve: true})
		return err
	}
	reasonOf := func(err error) review.NoPendingReason {
		var np *review.NoPendingError
		require.ErrorAs(t, err, &np)
		assert.ErrorIs(t, err, review.ErrNoPendingReviews)
		return np.Reason
	}

	assert.Equal(t, review.ReasonNoRequests, reasonOf(bulk(mentorID, review.StageMentor, fyePlanID)))

	submitFYEPlan(t, e)
	assert.Equal(t, review.ReasonAwaitingEarlier, reasonOf(bulk(advisorID, review.StageAdvisor, fyePlanID)))
	assert.Equal(t, review.ReasonNotAssigned, reasonOf(bulk(otherMentorID, review.StageMentor, fyePlanID)))

	require.NoError(t, bulk(mentorID, review.StageMentor, fyePlanID))
	assert.Equal(t, review.ReasonAlreadyProcessed, reasonOf(bulk(mentorID, review.StageMentor, fyePlanID)))

	// The senior's plan skips the mentor stage, so a mentor was never assigned to it.
	_, err := e.submissions.CreateDegreePlanReview(ctx, seniorPlanID, seniorID)
	require.NoError(t, err)
	assert.Equal(t, review.ReasonNotAssigned, reasonOf(bulk(mentorID, review.StageMentor, seniorPlanID)))

	_, err = e.reviews.SubmitBulkDecision(ctx, BulkDecision{DegreePlanID: 999, ReviewerID: mentorID, Stage: review.StageMentor, Approve: true})
	assert.ErrorIs(t, err, review.ErrNotFound)
}

func TestBulkDecision_IsAtomic(t *testing.T) {
	e := newEnv(t)
	submitFYEPlan(t, e)
	before := e.requests(t, fyePlanID)

	repo := &failingRepo{Store: e.store, failOn: 2}
	svc := NewReviewService(repo, e.store, e.notices, e.reviews.logger, 0)

	_, err := svc.SubmitBulkDecision(context.Background(), BulkDecision{
		DegreePlanID: fyePlanID,
		ReviewerID:   mentorID,
		Stage:        review.StageMentor,
		Approve:      true,
	})

	require.ErrorIs(t, err, errDiskFull)
	assert.Equal(t, before, e.requests(t, fyePlanID), "the first update is rolled back")
	assert.Empty(t, e.notices.all())

	var logged bool
	for _, entry := range e.hook.AllEntries() {
		if entry.Message == "Failed to apply bulk review decision" {
			logged = true
		}
	}
	assert.True(t, logged)
}

func TestUpdateComment(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	created := submitFYEPlan(t, e)

	r, err := e.reviews.UpdateComment(ctx, created[0].ID, mentorID, review.StageMentor, "  consider CS 201  ")
	require.NoError(t, err)
	assert.Equal(t, "consider CS 201", *r.MentorComment)
	assert.Equal(t, review.StatusPendingMentor, r.Status)

	r, err = e.reviews.UpdateComment(ctx, created[0].ID, mentorID, review.StageMentor, "")
	require.NoError(t, err)
	assert.Nil(t, r.MentorComment)

	_, err = e.reviews.UpdateComment(ctx, created[0].ID, otherMentorID, review.StageMentor, "hi")
	assert.ErrorIs(t, err, review.ErrNotFound)

	_, err = e.reviews.UpdateComment(ctx, created[0].ID, advisorID, review.StageAdvisor, "advisor notes early")
	require.NoError(t, err, "the advisor may comment before deciding")

	_, err = e.reviews.UpdateComment(ctx, created[0].ID, mentorID, review.Stage("DEAN"), "x")
	assert.ErrorIs(t, err, review.ErrValidation)

	_, err = e.reviews.UpdateComment(ctx, created[0].ID, mentorID, review.StageMentor, strings.Repeat("é", maxCommentLength+1))
	assert.ErrorIs(t, err, review.ErrValidation)

	assert.Empty(t, e.notices.all(), "comment edits do not notify")
}
