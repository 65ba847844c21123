package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/PitokDf/express-app-useable/internal/domain"
	"github.com/PitokDf/express-app-useable/internal/platform/logger"
	"github.com/PitokDf/express-app-useable/internal/store"
	"github.com/google/uuid"
)

const (
	usersTable = "users"
	userEntity = "user"
)

var (
	psql        = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	userColumns = []string{"id", "name", "email", "password_hash", "created_at", "updated_at"}
)

// PostgresUserStore implements the store.UserStore interface
// using a PostgreSQL database as the storage backend.
type PostgresUserStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresUserStore creates a new PostgreSQL implementation of the UserStore interface.
// It accepts a database connection that should be initialized and managed by the caller.
func NewPostgresUserStore(db store.DBTX, logger *slog.Logger) *PostgresUserStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresUserStore{
		db:     db,
		logger: logger.With("component", "user_store"),
	}
}

var _ store.UserStore = (*PostgresUserStore)(nil)

// WithTx implements store.UserStore.WithTx
func (s *PostgresUserStore) WithTx(tx *sql.Tx) store.UserStore {
	return &PostgresUserStore{db: tx, logger: s.logger}
}

// Create implements store.UserStore.Create
func (s *PostgresUserStore) Create(ctx context.Context, user *domain.User) error {
	query, args, err := psql.Insert(usersTable).
		Columns(userColumns...).
		Values(user.ID, user.Name, user.Email, user.HashedPassword, user.CreatedAt, user.UpdatedAt).
		ToSql()
	if err != nil {
		return store.NewStoreError(userEntity, "create", "failed to build query", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return s.fail(ctx, err, "create")
	}
	return nil
}

// GetByID implements store.UserStore.GetByID
func (s *PostgresUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.getOne(ctx, sq.Eq{"id": id}, "get_by_id")
}

// GetByEmail implements store.UserStore.GetByEmail
func (s *PostgresUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.getOne(ctx, sq.Eq{"email": domain.NormalizeEmail(email)}, "get_by_email")
}

func (s *PostgresUserStore) getOne(ctx context.Context, where sq.Eq, operation string) (*domain.User, error) {
	query, args, err := psql.Select(userColumns...).From(usersTable).Where(where).ToSql()
	if err != nil {
		return nil, store.NewStoreError(userEntity, operation, "failed to build query", err)
	}

	user, err := scanUser(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, s.fail(ctx, err, operation)
	}
	return user, nil
}

// List implements store.UserStore.List
func (s *PostgresUserStore) List(ctx context.Context, offset, limit int) ([]*domain.User, error) {
	if offset < 0 || limit < 0 {
		return nil, store.NewStoreError(userEntity, "list",
			fmt.Sprintf("invalid window offset=%d limit=%d", offset, limit), store.ErrInvalidEntity)
	}

	query, args, err := psql.Select(userColumns...).
		From(usersTable).
		OrderBy("created_at DESC", "id").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, store.NewStoreError(userEntity, "list", "failed to build query", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, s.fail(ctx, err, "list")
	}
	defer func() { _ = rows.Close() }()

	users := make([]*domain.User, 0, limit)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, s.fail(ctx, err, "list")
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail(ctx, err, "list")
	}
	return users, nil
}

// Count implements store.UserStore.Count
func (s *PostgresUserStore) Count(ctx context.Context) (int, error) {
	query, args, err := psql.Select("COUNT(*)").From(usersTable).ToSql()
	if err != nil {
		return 0, store.NewStoreError(userEntity, "count", "failed to build query", err)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, s.fail(ctx, err, "count")
	}
	return total, nil
}

// Update implements store.UserStore.Update
func (s *PostgresUserStore) Update(ctx context.Context, user *domain.User) error {
	query, args, err := psql.Update(usersTable).
		Set("name", user.Name).
		Set("email", user.Email).
		Set("password_hash", user.HashedPassword).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": user.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return store.NewStoreError(userEntity, "update", "failed to build query", err)
	}

	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&user.UpdatedAt); err != nil {
		return s.fail(ctx, err, "update")
	}
	return nil
}

// Delete implements store.UserStore.Delete
func (s *PostgresUserStore) Delete(ctx context.Context, id uuid.UUID) error {
	query, args, err := psql.Delete(usersTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return store.NewStoreError(userEntity, "delete", "failed to build query", err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return s.fail(ctx, err, "delete")
	}
	return CheckRowsAffected(result, userEntity, "delete")
}

func (s *PostgresUserStore) fail(ctx context.Context, err error, operation string) error {
	mapped := MapError(err, userEntity, operation)
	if !store.IsNotFoundError(mapped) {
		logger.FromContextOrDefault(ctx, s.logger).Debug("user query failed",
			"operation", operation,
			"error", mapped)
	}
	return mapped
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.HashedPassword, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}
