package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"degree_plan_review/internal/domain/review"
	"degree_plan_review/internal/domain/user"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var reviewCols = []string{
	"id", "plan_semester_id", "degree_plan_id", "student_id", "mentor_id", "advisor_id", "status",
	"requested_at", "mentor_reviewed_at", "advisor_reviewed_at", "mentor_comment", "advisor_comment",
	"rejection_reason", "created_at", "updated_at",
}

var ts = time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC)

func reviewRow(id, semesterID int64, mentorID any, status review.Status) []driver.Value {
	return []driver.Value{
		id, semesterID, int64(100), int64(1), mentorID, int64(30), string(status),
		ts, nil, nil, nil, nil,
		nil, ts, ts,
	}
}

func TestReviewRepository_GetByID(t *testing.T) {
	db, _ := newScriptedDB(t,
		query(`FROM review_requests WHERE id = \$1$`, int64(7)).
			returns(reviewCols, reviewRow(7, 1001, int64(20), review.StatusPendingMentor)),
		query(`FROM review_requests WHERE id = \$1$`, int64(8)).returns(reviewCols),
	)
	repo := NewPostgresReviewRepository(db)

	r, err := repo.GetByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), r.ID)
	assert.Equal(t, int64(1001), r.PlanSemesterID)
	assert.Equal(t, review.StatusPendingMentor, r.Status)
	require.NotNil(t, r.MentorID)
	assert.Equal(t, int64(20), *r.MentorID)
	assert.Equal(t, int64(30), *r.AdvisorID)
	assert.Nil(t, r.MentorReviewedAt)
	assert.Nil(t, r.RejectionReason)

	_, err = repo.GetByID(context.Background(), 8)
	assert.ErrorIs(t, err, review.ErrNotFound)
}

func TestReviewRepository_WithinTxLocksAndCommits(t *testing.T) {
	db, state := newScriptedDB(t,
		query(`SELECT id FROM degree_plans WHERE id = \$1 FOR UPDATE$`, int64(100)).
			returns([]string{"id"}, []driver.Value{int64(100)}),
		query(`status = \$2 AND mentor_id = \$3\s+ORDER BY plan_semester_id FOR UPDATE$`, int64(100), "PENDING_MENTOR", int64(20)).
			returns(reviewCols,
				reviewRow(1, 1001, int64(20), review.StatusPendingMentor),
				reviewRow(2, 1002, int64(20), review.StatusPendingMentor)),
		query(`^UPDATE review_requests`, nil, int64(30), "PENDING_ADVISOR", anyArg, anyArg, nil, nil, nil, nil, int64(1)).
			returns([]string{"updated_at"}, []driver.Value{ts}),
		query(`^UPDATE review_requests`, nil, int64(30), "PENDING_ADVISOR", anyArg, anyArg, nil, nil, nil, nil, int64(2)).
			returns([]string{"updated_at"}, []driver.Value{ts}),
	)
	repo := NewPostgresReviewRepository(db)

	err := repo.WithinTx(context.Background(), func(ctx context.Context, tx review.Store) error {
		require.NoError(t, tx.LockPlan(ctx, 100))
		pending, err := tx.FindPending(ctx, 100, review.StatusPendingMentor, 20)
		require.NoError(t, err)
		require.Len(t, pending, 2)
		for _, r := range pending {
			require.NoError(t, r.SkipMentorStage(nil))
			if err := tx.Update(ctx, r); err != nil {
				return err
			}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"BEGIN", "COMMIT"}, state.txLog)
}

func TestReviewRepository_WithinTxRollsBackOnError(t *testing.T) {
	db, state := newScriptedDB(t,
		query(`SELECT id FROM degree_plans WHERE id = \$1 FOR UPDATE$`, int64(404)).returns([]string{"id"}),
	)
	repo := NewPostgresReviewRepository(db)

	err := repo.WithinTx(context.Background(), func(ctx context.Context, tx review.Store) error {
		return tx.LockPlan(ctx, 404)
	})

	assert.ErrorIs(t, err, review.ErrNotFound)
	assert.Equal(t, []string{"BEGIN", "ROLLBACK"}, state.txLog)
}

func TestReviewRepository_CreateOrReset(t *testing.T) {
	insert := `(?s)^INSERT INTO review_requests .*ON CONFLICT \(plan_semester_id\) DO UPDATE.*WHERE review_requests.status IN \('APPROVED', 'REJECTED'\)`
	db, _ := newScriptedDB(t,
		query(insert, int64(1001), int64(100), int64(1), int64(20), int64(30), "PENDING_MENTOR", anyArg).
			returns([]string{"id", "created_at", "updated_at"}, []driver.Value{int64(55), ts, ts}),
		query(insert, int64(1002), int64(100), int64(1), nil, int64(30), "PENDING_ADVISOR", anyArg).
			returns([]string{"id", "created_at", "updated_at"}),
	)
	repo := NewPostgresReviewRepository(db)
	mentor, advisor := int64(20), int64(30)

	r := &review.Request{PlanSemesterID: 1001, DegreePlanID: 100, StudentID: 1, MentorID: &mentor, AdvisorID: &advisor, Status: review.StatusPendingMentor, RequestedAt: ts}
	require.NoError(t, repo.CreateOrReset(context.Background(), r))
	assert.Equal(t, int64(55), r.ID)
	assert.Equal(t, ts, r.CreatedAt)

	pending := &review.Request{PlanSemesterID: 1002, DegreePlanID: 100, StudentID: 1, AdvisorID: &advisor, Status: review.StatusPendingAdvisor, RequestedAt: ts}
	err := repo.CreateOrReset(context.Background(), pending)
	assert.ErrorIs(t, err, review.ErrDuplicatePending, "a pending row is never reset")
}

func TestReviewRepository_ListPendingMentorByClassification(t *testing.T) {
	db, _ := newScriptedDB(t,
		query(`JOIN users u ON u.id = rr.student_id\s+WHERE rr.status = \$1 AND u.classification = ANY\(\$2::varchar\[\]\)`,
			"PENDING_MENTOR", containsAll("JUNIOR", "SENIOR")).
			returns(reviewCols, reviewRow(3, 1003, int64(20), review.StatusPendingMentor)),
	)
	repo := NewPostgresReviewRepository(db)

	got, err := repo.ListPendingMentorByClassification(context.Background(),
		[]user.Classification{user.ClassificationJunior, user.ClassificationSenior})

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(3), got[0].ID)

	empty, err := repo.ListPendingMentorByClassification(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestReviewRepository_Delete(t *testing.T) {
	db, _ := newScriptedDB(t,
		exec(`^DELETE FROM review_requests WHERE id = \$1$`, int64(5)).affects(1),
		exec(`^DELETE FROM review_requests WHERE id = \$1$`, int64(6)).affects(0),
		exec(`^DELETE FROM review_requests WHERE id = \$1$`, int64(7)).fails(errors.New("connection reset")),
	)
	repo := NewPostgresReviewRepository(db)

	assert.NoError(t, repo.Delete(context.Background(), 5))
	assert.ErrorIs(t, repo.Delete(context.Background(), 6), review.ErrNotFound)
	err := repo.Delete(context.Background(), 7)
	require.Error(t, err)
	assert.NotErrorIs(t, err, review.ErrNotFound)
}

func TestApplySchema(t *testing.T) {
	db, _ := newScriptedDB(t,
		exec(`CREATE TABLE IF NOT EXISTS review_requests`),
	)
	require.NoError(t, ApplySchema(context.Background(), db))
}
