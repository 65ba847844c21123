package store

import (
	"context"
	"database/sql"

	"github.com/PitokDf/express-app-useable/internal/domain"
	"github.com/google/uuid"
)

//go:generate mockgen -source=user.go -destination=../mocks/user_store.go -package=mocks

// UserStore defines the interface for user data persistence.
type UserStore interface {
	// Create saves a new user. The caller must have set HashedPassword.
	// Returns ErrEmailExists if the email is already taken.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique ID.
	// Returns ErrUserNotFound if the user does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetByEmail retrieves a user by their email address.
	// Returns ErrUserNotFound if the user does not exist.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// List returns up to limit users ordered by creation time, newest first,
	// skipping the first offset rows.
	List(ctx context.Context, offset, limit int) ([]*domain.User, error)

	// Count returns the total number of users.
	Count(ctx context.Context) (int, error)

	// Update overwrites name, email and password hash of an existing user
	// and refreshes UpdatedAt from the database.
	// Returns ErrUserNotFound if the user does not exist.
	// Returns ErrEmailExists if updating to an email that already exists.
	Update(ctx context.Context, user *domain.User) error

	// Delete removes a user from the store by their ID.
	// Returns ErrUserNotFound if the user does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a UserStore bound to the provided transaction.
	WithTx(tx *sql.Tx) UserStore
}
