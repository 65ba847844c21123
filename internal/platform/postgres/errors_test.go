package postgres_test

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/PitokDf/express-app-useable/internal/platform/postgres"
	"github.com/PitokDf/express-app-useable/internal/store"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pgError(code, constraint string) error {
	return &pgconn.PgError{Code: code, ConstraintName: constraint}
}

func TestMapError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		sentinel error
		code     string
	}{
		{"no rows", sql.ErrNoRows, store.ErrUserNotFound, ""},
		{"email unique violation", pgError(pgerrcode.UniqueViolation, "users_email_key"), store.ErrEmailExists, "23505"},
		{"other unique violation", pgError(pgerrcode.UniqueViolation, "users_pkey"), store.ErrDuplicate, "23505"},
		{"foreign key violation", pgError(pgerrcode.ForeignKeyViolation, "fk"), store.ErrInvalidEntity, "23503"},
		{"not null violation", pgError(pgerrcode.NotNullViolation, ""), store.ErrInvalidEntity, "23502"},
		{"check violation", pgError(pgerrcode.CheckViolation, "users_name_check"), store.ErrInvalidEntity, "23514"},
		{"deadlock", pgError(pgerrcode.DeadlockDetected, ""), store.ErrUnavailable, "40P01"},
		{"serialization failure", pgError(pgerrcode.SerializationFailure, ""), store.ErrUnavailable, "40001"},
		{"connection failure", pgError(pgerrcode.ConnectionFailure, ""), store.ErrUnavailable, "08006"},
		{"bad connection", driver.ErrBadConn, store.ErrUnavailable, "08006"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			mapped := postgres.MapError(tc.err, "user", "create")

			require.Error(t, mapped)
			assert.ErrorIs(t, mapped, tc.sentinel)

			var storeErr *store.StoreError
			require.True(t, errors.As(mapped, &storeErr))
			assert.Equal(t, tc.code, storeErr.Code)
			assert.Equal(t, "user", storeErr.Entity)
			assert.Equal(t, "create", storeErr.Operation)
		})
	}
}

func TestMapErrorKeepsDriverError(t *testing.T) {
	t.Parallel()

	mapped := postgres.MapError(pgError(pgerrcode.UniqueViolation, "users_email_key"), "user", "create")

	var pgErr *pgconn.PgError
	require.True(t, errors.As(mapped, &pgErr))
	assert.Equal(t, "users_email_key", pgErr.ConstraintName)
}

func TestMapErrorUnknownCodes(t *testing.T) {
	t.Parallel()

	mapped := postgres.MapError(pgError(pgerrcode.InvalidPassword, ""), "user", "get_by_id")

	var storeErr *store.StoreError
	require.True(t, errors.As(mapped, &storeErr))
	assert.Equal(t, "28P01", storeErr.Code)
	assert.NotErrorIs(t, mapped, store.ErrUnavailable)
	assert.NotErrorIs(t, mapped, store.ErrNotFound)

	plain := postgres.MapError(errors.New("boom"), "user", "list")
	require.True(t, errors.As(plain, &storeErr))
	assert.Empty(t, storeErr.Code)
}

func TestMapErrorContextEnded(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
	}{
		{"client went away", fmt.Errorf("timeout: %w", context.Canceled)},
		{"deadline", context.DeadlineExceeded},
		{"statement timeout", pgError(pgerrcode.QueryCanceled, "")},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			mapped := postgres.MapError(tc.err, "user", "list")

			assert.ErrorIs(t, mapped, store.ErrCanceled)
			assert.NotErrorIs(t, mapped, store.ErrUnavailable)
			var storeErr *store.StoreError
			require.ErrorAs(t, mapped, &storeErr)
			assert.Equal(t, "list", storeErr.Operation)
		})
	}
}

func TestMapErrorPassThrough(t *testing.T) {
	t.Parallel()

	assert.NoError(t, postgres.MapError(nil, "user", "create"))

	existing := store.NewStoreError("user", "create", "x", nil)
	assert.Same(t, existing, postgres.MapError(existing, "user", "update"))
}

func TestCheckRowsAffected(t *testing.T) {
	t.Parallel()

	assert.NoError(t, postgres.CheckRowsAffected(sqlmock.NewResult(0, 1), "user", "delete"))

	err := postgres.CheckRowsAffected(sqlmock.NewResult(0, 0), "user", "delete")
	assert.ErrorIs(t, err, store.ErrUserNotFound)

	err = postgres.CheckRowsAffected(sqlmock.NewErrorResult(errors.New("driver")), "user", "delete")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, store.ErrNotFound)

	assert.Error(t, postgres.CheckRowsAffected(nil, "user", "delete"))
}
