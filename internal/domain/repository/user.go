package repository

import (
	"context"

	"github.com/hszk-dev/clipforge/internal/domain/model"
)

// UserRepository defines persistence operations for user accounts.
type UserRepository interface {
	// Create persists a new user and fills in its generated ID.
	// Returns ErrDuplicateUser when the username or email is taken.
	Create(ctx context.Context, user *model.User) error

	// FindByUsername retrieves a user by username.
	// Returns ErrUserNotFound if absent.
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// FindByEmail retrieves a user by email.
	// Returns ErrUserNotFound if absent.
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// MarkVerified sets the verified flag for the user.
	MarkVerified(ctx context.Context, id int64) error
}
