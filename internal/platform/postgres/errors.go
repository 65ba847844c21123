package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/PitokDf/express-app-useable/internal/store"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// MapError converts a database error into a *store.StoreError carrying the
// SQLSTATE code and wrapping both the matching store sentinel and the
// original error. Errors that are already *store.StoreError pass through.
func MapError(err error, entity, operation string) error {
	if err == nil {
		return nil
	}

	var storeErr *store.StoreError
	if errors.As(err, &storeErr) {
		return err
	}

	if errors.Is(err, sql.ErrNoRows) {
		return store.NewStoreError(entity, operation, "no rows", notFoundFor(entity))
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return store.NewStoreError(entity, operation, "context ended",
			fmt.Errorf("%w: %w", store.ErrCanceled, err))
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return mapPgError(pgErr, err, entity, operation)
	}

	if isConnectionError(err) {
		return store.NewStoreError(entity, operation, "connection failure",
			fmt.Errorf("%w: %w", store.ErrUnavailable, err)).
			WithCode(pgerrcode.ConnectionFailure)
	}

	return store.NewStoreError(entity, operation, "unexpected database error", err)
}

func mapPgError(pgErr *pgconn.PgError, err error, entity, operation string) error {
	code := pgErr.Code
	wrap := func(sentinel error, msg string) error {
		return store.NewStoreError(entity, operation, msg, fmt.Errorf("%w: %w", sentinel, err)).WithCode(code)
	}

	switch {
	case code == pgerrcode.UniqueViolation:
		if strings.Contains(pgErr.ConstraintName, "email") {
			return wrap(store.ErrEmailExists, "unique violation")
		}
		return wrap(store.ErrDuplicate, "unique violation")
	case code == pgerrcode.ForeignKeyViolation:
		return wrap(store.ErrInvalidEntity, "foreign key violation ("+pgErr.ConstraintName+")")
	case code == pgerrcode.NotNullViolation:
		return wrap(store.ErrInvalidEntity, "not null violation ("+pgErr.ColumnName+")")
	case code == pgerrcode.CheckViolation:
		return wrap(store.ErrInvalidEntity, "check violation ("+pgErr.ConstraintName+")")
	case code == pgerrcode.NoDataFound:
		return wrap(notFoundFor(entity), "no data found")
	case code == pgerrcode.QueryCanceled:
		return wrap(store.ErrCanceled, "query canceled")
	case pgerrcode.IsConnectionException(code),
		pgerrcode.IsTransactionRollback(code),
		code == pgerrcode.CannotConnectNow,
		code == pgerrcode.AdminShutdown,
		code == pgerrcode.TooManyConnections:
		return wrap(store.ErrUnavailable, "transient failure")
	}

	return store.NewStoreError(entity, operation, "database error", err).WithCode(code)
}

func notFoundFor(entity string) error {
	if entity == "user" {
		return store.ErrUserNotFound
	}
	return store.ErrNotFound
}

func isConnectionError(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// CheckRowsAffected examines the number of rows affected by a database operation.
// If no rows were affected, it returns the not found error for the entity.
func CheckRowsAffected(result sql.Result, entity, operation string) error {
	if result == nil {
		return store.NewStoreError(entity, operation, "nil result", nil)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return MapError(err, entity, operation)
	}
	if rowsAffected == 0 {
		return store.NewStoreError(entity, operation, "no rows affected", notFoundFor(entity))
	}
	return nil
}
