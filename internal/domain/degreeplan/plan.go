// Package degreeplan holds the read model of degree plans owned by the planning service.
package degreeplan

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrPlanNotFound     = errors.New("degree plan not found")
	ErrSemesterNotFound = errors.New("plan semester not found")
)

// Plan is a student's degree plan with its semesters in display order.
type Plan struct {
	ID        int64
	StudentID int64
	Name      string
	Semesters []Semester
	CreatedAt time.Time
}

// Semester is one term of a plan. CourseCount is the number of planned courses.
type Semester struct {
	ID          int64
	PlanID      int64
	Term        string // FALL, SPRING, SUMMER
	Year        int
	CourseCount int
}

// Label renders the semester for messages, e.g. "FALL 2025".
func (s Semester) Label() string {
	if s.Term == "" {
		return fmt.Sprintf("semester %d", s.ID)
	}
	return fmt.Sprintf("%s %d", s.Term, s.Year)
}

// Reviewable reports whether the semester has anything for a reviewer to evaluate.
func (s Semester) Reviewable() bool {
	return s.CourseCount > 0
}

// SemesterByID returns the plan's semester with the given id.
func (p *Plan) SemesterByID(id int64) (Semester, bool) {
	for _, s := range p.Semesters {
		if s.ID == id {
			return s, true
		}
	}
	return Semester{}, false
}

// Repository reads plans and semesters, including planned course counts.
type Repository interface {
	GetPlan(ctx context.Context, id int64) (*Plan, error)
	GetSemester(ctx context.Context, id int64) (*Semester, error)
}
