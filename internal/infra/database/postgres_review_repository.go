// internal/infra/database/postgres_review_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"degree_plan_review/internal/domain/review"
	"degree_plan_review/internal/domain/user"

	"github.com/lib/pq" // For pq.Array
)

const reviewColumns = `id, plan_semester_id, degree_plan_id, student_id, mentor_id, advisor_id, status,
       requested_at, mentor_reviewed_at, advisor_reviewed_at, mentor_comment, advisor_comment,
       rejection_reason, created_at, updated_at`

// PostgresReviewRepository stores review requests in the 'review_requests' table.
type PostgresReviewRepository struct {
	pgReviewStore
	db *sql.DB
}

func NewPostgresReviewRepository(db *sql.DB) *PostgresReviewRepository {
	return &PostgresReviewRepository{pgReviewStore: pgReviewStore{q: db}, db: db}
}

// WithinTx runs fn in a transaction. Reads inside it take row locks (FOR UPDATE).
func (r *PostgresReviewRepository) WithinTx(ctx context.Context, fn func(ctx context.Context, tx review.Store) error) error {
	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer txn.Rollback() // Rollback if not committed

	if err := fn(ctx, pgReviewStore{q: txn, locking: true}); err != nil {
		return err
	}
	if err := txn.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *PostgresReviewRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM review_requests WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting review request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading deleted review request count: %w", err)
	}
	if n == 0 {
		return review.ErrRequestNotFound
	}
	return nil
}

// pgReviewStore runs review queries on a connection or a transaction.
type pgReviewStore struct {
	q       queryer
	locking bool
}

func (s pgReviewStore) lock(query string) string {
	if s.locking {
		return query + " FOR UPDATE"
	}
	return query
}

func (s pgReviewStore) GetByID(ctx context.Context, id int64) (*review.Request, error) {
	query := s.lock(`SELECT ` + reviewColumns + ` FROM review_requests WHERE id = $1`)
	rr, err := scanReviewRequest(s.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, review.ErrRequestNotFound
		}
		return nil, fmt.Errorf("error getting review request by ID: %w", err)
	}
	return rr, nil
}

func (s pgReviewStore) ListByPlan(ctx context.Context, degreePlanID int64) ([]*review.Request, error) {
	query := s.lock(`SELECT ` + reviewColumns + ` FROM review_requests
               WHERE degree_plan_id = $1 ORDER BY plan_semester_id`)
	rows, err := s.q.QueryContext(ctx, query, degreePlanID)
	if err != nil {
		return nil, fmt.Errorf("error querying review requests by plan: %w", err)
	}
	defer rows.Close()
	return scanReviewRequests(rows)
}

func (s pgReviewStore) FindPending(ctx context.Context, degreePlanID int64, status review.Status, reviewerID int64) ([]*review.Request, error) {
	reviewerColumn := "advisor_id"
	if status == review.StatusPendingMentor {
		reviewerColumn = "mentor_id"
	}
	query := s.lock(`SELECT ` + reviewColumns + ` FROM review_requests
               WHERE degree_plan_id = $1 AND status = $2 AND ` + reviewerColumn + ` = $3
               ORDER BY plan_semester_id`)
	rows, err := s.q.QueryContext(ctx, query, degreePlanID, status, reviewerID)
	if err != nil {
		return nil, fmt.Errorf("error querying pending review requests: %w", err)
	}
	defer rows.Close()
	return scanReviewRequests(rows)
}

func (s pgReviewStore) ListPendingMentorByClassification(ctx context.Context, classes []user.Classification) ([]*review.Request, error) {
	if len(classes) == 0 {
		return []*review.Request{}, nil
	}
	classesAsStrings := make([]string, len(classes))
	for i, c := range classes {
		classesAsStrings[i] = string(c)
	}

	query := `SELECT ` + prefixColumns("rr", reviewColumns) + `
               FROM review_requests rr
               JOIN users u ON u.id = rr.student_id
               WHERE rr.status = $1 AND u.classification = ANY($2::varchar[])
               ORDER BY rr.id`
	if s.locking {
		query += " FOR UPDATE OF rr"
	}
	rows, err := s.q.QueryContext(ctx, query, review.StatusPendingMentor, pq.Array(classesAsStrings))
	if err != nil {
		return nil, fmt.Errorf("error querying pending mentor requests by classification: %w", err)
	}
	defer rows.Close()
	return scanReviewRequests(rows)
}

func (s pgReviewStore) CreateOrReset(ctx context.Context, rr *review.Request) error {
	// The conditional DO UPDATE only resets finished cycles; a pending row yields no RETURNING row.
	query := `INSERT INTO review_requests (plan_semester_id, degree_plan_id, student_id, mentor_id, advisor_id,
                                          status, requested_at)
               VALUES ($1, $2, $3, $4, $5, $6, $7)
               ON CONFLICT (plan_semester_id) DO UPDATE
               SET degree_plan_id = EXCLUDED.degree_plan_id,
                   student_id = EXCLUDED.student_id,
                   mentor_id = EXCLUDED.mentor_id,
                   advisor_id = EXCLUDED.advisor_id,
                   status = EXCLUDED.status,
                   requested_at = EXCLUDED.requested_at,
                   mentor_reviewed_at = NULL,
                   advisor_reviewed_at = NULL,
                   mentor_comment = NULL,
                   advisor_comment = NULL,
                   rejection_reason = NULL,
                   updated_at = NOW()
               WHERE review_requests.status IN ('APPROVED', 'REJECTED')
               RETURNING id, created_at, updated_at`
	err := s.q.QueryRowContext(ctx, query,
		rr.PlanSemesterID, rr.DegreePlanID, rr.StudentID, nullInt64(rr.MentorID), nullInt64(rr.AdvisorID),
		rr.Status, rr.RequestedAt,
	).Scan(&rr.ID, &rr.CreatedAt, &rr.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: semester %d", review.ErrDuplicatePending, rr.PlanSemesterID)
		}
		return fmt.Errorf("error creating review request: %w", err)
	}
	return nil
}

func (s pgReviewStore) Update(ctx context.Context, rr *review.Request) error {
	query := `UPDATE review_requests
               SET mentor_id = $1, advisor_id = $2, status = $3, requested_at = $4,
                   mentor_reviewed_at = $5, advisor_reviewed_at = $6,
                   mentor_comment = $7, advisor_comment = $8, rejection_reason = $9,
                   updated_at = NOW()
               WHERE id = $10
               RETURNING updated_at`
	err := s.q.QueryRowContext(ctx, query,
		nullInt64(rr.MentorID), nullInt64(rr.AdvisorID), rr.Status, rr.RequestedAt,
		nullTime(rr.MentorReviewedAt), nullTime(rr.AdvisorReviewedAt),
		nullString(rr.MentorComment), nullString(rr.AdvisorComment), nullString(rr.RejectionReason),
		rr.ID,
	).Scan(&rr.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return review.ErrRequestNotFound
		}
		return fmt.Errorf("error updating review request: %w", err)
	}
	return nil
}

func (s pgReviewStore) LockPlan(ctx context.Context, degreePlanID int64) error {
	var id int64
	err := s.q.QueryRowContext(ctx, s.lock(`SELECT id FROM degree_plans WHERE id = $1`), degreePlanID).Scan(&id)
	if err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: degree plan %d", review.ErrNotFound, degreePlanID)
		}
		return fmt.Errorf("error locking degree plan: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReviewRequest(row rowScanner) (*review.Request, error) {
	var (
		rr                                  review.Request
		mentorID, advisorID                 sql.NullInt64
		mentorReviewedAt, advisorReviewedAt sql.NullTime
		mentorComment, advisorComment       sql.NullString
		rejectionReason                     sql.NullString
	)
	if err := row.Scan(
		&rr.ID, &rr.PlanSemesterID, &rr.DegreePlanID, &rr.StudentID, &mentorID, &advisorID, &rr.Status,
		&rr.RequestedAt, &mentorReviewedAt, &advisorReviewedAt, &mentorComment, &advisorComment,
		&rejectionReason, &rr.CreatedAt, &rr.UpdatedAt,
	); err != nil {
		return nil, err
	}
	rr.MentorID = int64Ptr(mentorID)
	rr.AdvisorID = int64Ptr(advisorID)
	rr.MentorReviewedAt = timePtr(mentorReviewedAt)
	rr.AdvisorReviewedAt = timePtr(advisorReviewedAt)
	rr.MentorComment = stringPtr(mentorComment)
	rr.AdvisorComment = stringPtr(advisorComment)
	rr.RejectionReason = stringPtr(rejectionReason)
	return &rr, nil
}

// Helper to scan multiple rows
func scanReviewRequests(rows *sql.Rows) ([]*review.Request, error) {
	requests := make([]*review.Request, 0)
	for rows.Next() {
		rr, err := scanReviewRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning review request row: %w", err)
		}
		requests = append(requests, rr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating review request rows: %w", err)
	}
	return requests, nil
}

func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
