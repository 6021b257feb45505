package database

import (
	"context"
	"database/sql"
	"fmt"

	"degree_plan_review/internal/domain/user"
)

const userColumns = `id, email, first_name, last_name, telegram_id, role, classification, is_fye_student,
       mentor_id, advisor_id, created_at, updated_at`

// PostgresUserRepository reads accounts from the 'users' table owned by the user service.
type PostgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, user.ErrUserNotFound
		}
		return nil, fmt.Errorf("error getting user by ID: %w", err)
	}
	return u, nil
}

func (r *PostgresUserRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE telegram_id = $1`
	u, err := scanUser(r.db.QueryRowContext(ctx, query, telegramID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, user.ErrUserNotFound
		}
		return nil, fmt.Errorf("error getting user by Telegram ID: %w", err)
	}
	return u, nil
}

func scanUser(row rowScanner) (*user.User, error) {
	u := &user.User{}
	var role, classification string
	if err := row.Scan(
		&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.TelegramID, &role, &classification, &u.IsFYEStudent,
		&u.MentorID, &u.AdvisorID, &u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	u.Role = user.Role(role)
	u.Classification = user.ParseClassification(classification)
	return u, nil
}
