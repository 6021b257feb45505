package database

import (
	"context"
	"database/sql"
	"fmt"

	"degree_plan_review/internal/domain/degreeplan"
)

// PostgresPlanRepository reads degree plans and planned course counts.
type PostgresPlanRepository struct {
	db *sql.DB
}

func NewPostgresPlanRepository(db *sql.DB) *PostgresPlanRepository {
	return &PostgresPlanRepository{db: db}
}

func (r *PostgresPlanRepository) GetPlan(ctx context.Context, id int64) (*degreeplan.Plan, error) {
	plan := &degreeplan.Plan{}
	err := r.db.QueryRowContext(ctx, `SELECT id, student_id, name, created_at FROM degree_plans WHERE id = $1`, id).
		Scan(&plan.ID, &plan.StudentID, &plan.Name, &plan.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, degreeplan.ErrPlanNotFound
		}
		return nil, fmt.Errorf("error getting degree plan by ID: %w", err)
	}

	query := `SELECT ps.id, ps.degree_plan_id, ps.term, ps.year, COUNT(pc.id)
               FROM plan_semesters ps
               LEFT JOIN planned_courses pc ON pc.plan_semester_id = ps.id
               WHERE ps.degree_plan_id = $1
               GROUP BY ps.id, ps.degree_plan_id, ps.term, ps.year
               ORDER BY ps.year, ps.id`
	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("error querying plan semesters: %w", err)
	}
	defer rows.Close()

	plan.Semesters = make([]degreeplan.Semester, 0)
	for rows.Next() {
		var s degreeplan.Semester
		if err := rows.Scan(&s.ID, &s.PlanID, &s.Term, &s.Year, &s.CourseCount); err != nil {
			return nil, fmt.Errorf("error scanning plan semester: %w", err)
		}
		plan.Semesters = append(plan.Semesters, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating plan semesters: %w", err)
	}
	return plan, nil
}

func (r *PostgresPlanRepository) GetSemester(ctx context.Context, id int64) (*degreeplan.Semester, error) {
	query := `SELECT ps.id, ps.degree_plan_id, ps.term, ps.year,
                      (SELECT COUNT(*) FROM planned_courses pc WHERE pc.plan_semester_id = ps.id)
               FROM plan_semesters ps WHERE ps.id = $1`
	var s degreeplan.Semester
	err := r.db.QueryRowContext(ctx, query, id).Scan(&s.ID, &s.PlanID, &s.Term, &s.Year, &s.CourseCount)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, degreeplan.ErrSemesterNotFound
		}
		return nil, fmt.Errorf("error getting plan semester by ID: %w", err)
	}
	return &s, nil
}
