package review

import (
	"context"

	"degree_plan_review/internal/domain/user"
)

// Store is the set of review request operations available both on the repository and
// inside a transaction.
type Store interface {
	GetByID(ctx context.Context, id int64) (*Request, error)
	ListByPlan(ctx context.Context, degreePlanID int64) ([]*Request, error)
	// FindPending returns the plan's requests in status that are assigned to reviewerID
	// for the matching stage.
	FindPending(ctx context.Context, degreePlanID int64, status Status, reviewerID int64) ([]*Request, error)
	ListPendingMentorByClassification(ctx context.Context, classes []user.Classification) ([]*Request, error)

	// CreateOrReset inserts a request for r.PlanSemesterID, or resets the existing terminal
	// one in place. It fails with ErrDuplicatePending if the existing row is still pending.
	CreateOrReset(ctx context.Context, r *Request) error
	Update(ctx context.Context, r *Request) error

	// LockPlan serializes writers on one degree plan for the rest of the transaction.
	LockPlan(ctx context.Context, degreePlanID int64) error
}

// Repository persists review requests.
type Repository interface {
	Store
	// WithinTx runs fn in one transaction. Any error from fn rolls back every write.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
	Delete(ctx context.Context, id int64) error
}
