package user

import (
	"context"
	"errors"
)

var ErrUserNotFound = errors.New("user not found")

// Repository is the read-only view of users this service needs.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*User, error)
}
