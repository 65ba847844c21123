package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/PitokDf/express-app-useable/internal/cache"
	"github.com/PitokDf/express-app-useable/internal/domain"
	"github.com/PitokDf/express-app-useable/internal/events"
	"github.com/PitokDf/express-app-useable/internal/redact"
	"github.com/PitokDf/express-app-useable/internal/service/auth"
	"github.com/PitokDf/express-app-useable/internal/store"
)

// timingPassword is hashed once at startup and compared against when a
// login names an unknown email, so both paths cost one hash comparison.
const timingPassword = "timing-equalization-password"

// UserPage is one page of users plus the collection size.
type UserPage struct {
	Users []*domain.User `json:"users"`
	Total int            `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}

// UserService implements registration, authentication and user CRUD.
type UserService struct {
	users     store.UserStore
	db        *sql.DB
	hasher    auth.PasswordHasher
	cache     *cache.Cache
	emitter   events.EventEmitter
	dummyHash string
	logger    *slog.Logger
}

// NewUserService wires the user use cases. db is used to open transactions
// for read-modify-write updates.
func NewUserService(
	users store.UserStore,
	db *sql.DB,
	hasher auth.PasswordHasher,
	c *cache.Cache,
	emitter events.EventEmitter,
	logger *slog.Logger,
) (*UserService, error) {
	dummyHash, err := hasher.Hash(timingPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare timing hash: %w", err)
	}

	return &UserService{
		users:     users,
		db:        db,
		hasher:    hasher,
		cache:     c,
		emitter:   emitter,
		dummyHash: dummyHash,
		logger:    logger.With("component", "user_service"),
	}, nil
}

// Register validates and stores a new user and announces it with a
// user.registered event.
func (s *UserService) Register(ctx context.Context, name, email, password string) (*domain.User, error) {
	user, err := domain.NewUser(name, email, password)
	if err != nil {
		return nil, err
	}

	if err := s.hashPassword(user); err != nil {
		return nil, err
	}

	if err := s.users.Create(ctx, user); err != nil {
		if store.IsDuplicateError(err) {
			s.logger.Debug("registration with duplicate email rejected")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.invalidate(ctx)
	s.emitRegistered(ctx, user)

	s.logger.Info("user registered", "user_id", user.ID)
	return user, nil
}

// Authenticate checks an email and password pair. Unknown emails and wrong
// passwords both yield domain.ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			_ = s.hasher.Compare(s.dummyHash, password)
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := s.hasher.Compare(user.HashedPassword, password); err != nil {
		s.logger.Debug("password mismatch", "user_id", user.ID)
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}

// List returns one page of users, newest first. Pages are served from the
// cache when possible.
func (s *UserService) List(ctx context.Context, page, limit int) (*UserPage, error) {
	return cache.GetOrCompute(ctx, s.cache, cache.UserListKey(page, limit), 0,
		func(ctx context.Context) (*UserPage, error) {
			total, err := s.users.Count(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to count users: %w", err)
			}

			users, err := s.users.List(ctx, (page-1)*limit, limit)
			if err != nil {
				return nil, fmt.Errorf("failed to list users: %w", err)
			}

			return &UserPage{Users: users, Total: total, Page: page, Limit: limit}, nil
		})
}

// Get returns a single user.
func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return cache.GetOrCompute(ctx, s.cache, cache.UserKey(id), 0,
		func(ctx context.Context) (*domain.User, error) {
			user, err := s.users.GetByID(ctx, id)
			if err != nil {
				return nil, notFoundAsDomain(err)
			}
			return user, nil
		})
}

// Update applies a partial update to the actor's own account inside a
// transaction.
func (s *UserService) Update(
	ctx context.Context,
	actorID, id uuid.UUID,
	update domain.UserUpdate,
) (*domain.User, error) {
	if actorID != id {
		return nil, domain.ErrForbidden
	}
	if update.Empty() {
		return nil, domain.NewValidationError("body", "at least one of name, email or password is required")
	}

	var updated *domain.User
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txStore := s.users.WithTx(tx)

		user, err := txStore.GetByID(ctx, id)
		if err != nil {
			return notFoundAsDomain(err)
		}

		if err := update.Apply(user); err != nil {
			return err
		}
		if user.Password != "" {
			if err := s.hashPassword(user); err != nil {
				return err
			}
		}

		if err := txStore.Update(ctx, user); err != nil {
			return notFoundAsDomain(err)
		}
		updated = user
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	s.logger.Info("user updated", "user_id", id)
	return updated, nil
}

// Delete removes the actor's own account.
func (s *UserService) Delete(ctx context.Context, actorID, id uuid.UUID) error {
	if actorID != id {
		return domain.ErrForbidden
	}

	if err := s.users.Delete(ctx, id); err != nil {
		return notFoundAsDomain(err)
	}

	s.invalidate(ctx)
	s.logger.Info("user deleted", "user_id", id)
	return nil
}

func (s *UserService) hashPassword(user *domain.User) error {
	hashed, err := s.hasher.Hash(user.Password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.HashedPassword = hashed
	user.Password = ""
	return nil
}

// invalidate drops every cached user page and user.
func (s *UserService) invalidate(ctx context.Context) {
	n := s.cache.DeleteByPrefix(ctx, cache.UserPrefix)
	s.logger.Debug("user cache invalidated", "keys_removed", n)
}

// emitRegistered publishes user.registered. Failures only affect the side
// effects, so they are logged rather than returned.
func (s *UserService) emitRegistered(ctx context.Context, user *domain.User) {
	if s.emitter == nil {
		return
	}

	event, err := events.NewEvent(events.TypeUserRegistered, events.UserRegisteredPayload{
		UserID: user.ID,
		Name:   user.Name,
		Email:  user.Email,
	})
	if err == nil {
		err = s.emitter.EmitEvent(ctx, event)
	}
	if err != nil {
		s.logger.Warn("failed to emit user.registered", "user_id", user.ID, "error", redact.Error(err))
	}
}

// notFoundAsDomain turns a store not-found into the client-facing
// domain.ErrUserNotFound. Other errors pass through.
func notFoundAsDomain(err error) error {
	if errors.Is(err, store.ErrUserNotFound) {
		return domain.ErrUserNotFound.Wrap(err)
	}
	return err
}
