package api

import (
	"encoding/json"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PitokDf/express-app-useable/internal/api/shared"
	"github.com/PitokDf/express-app-useable/internal/domain"
	"github.com/PitokDf/express-app-useable/internal/platform/logger"
	"github.com/PitokDf/express-app-useable/internal/service/auth"
	"github.com/PitokDf/express-app-useable/internal/store"
	"github.com/PitokDf/express-app-useable/internal/upload"
)

func storeErr(code string, sentinel error) error {
	return store.NewStoreError("user", "create", "boom", fmt.Errorf("%w: driver", sentinel)).WithCode(code)
}

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		err     error
		kind    ErrorKind
		status  int
		code    shared.MessageCode
		message string
	}{
		{
			name:   "validation",
			err:    domain.NewValidationError("email", "invalid email format"),
			kind:   KindValidation,
			status: http.StatusBadRequest,
			code:   shared.CodeValidationFailed,
		},
		{
			name:   "expired token",
			err:    fmt.Errorf("validate: %w", auth.ErrExpiredToken),
			kind:   KindAuth,
			status: http.StatusUnauthorized,
			code:   shared.CodeTokenExpired,
		},
		{
			name:   "invalid token",
			err:    auth.ErrInvalidToken,
			kind:   KindAuth,
			status: http.StatusUnauthorized,
			code:   shared.CodeTokenInvalid,
		},
		{
			name:   "revoked token",
			err:    auth.ErrRevokedToken,
			kind:   KindAuth,
			status: http.StatusUnauthorized,
			code:   shared.CodeTokenInvalid,
		},
		{
			name:   "missing token",
			err:    auth.ErrMissingToken,
			kind:   KindAuth,
			status: http.StatusUnauthorized,
			code:   shared.CodeUnauthorized,
		},
		{
			name:    "file too large",
			err:     upload.ErrFileTooLarge,
			kind:    KindUpload,
			status:  http.StatusBadRequest,
			message: "File exceeds the maximum allowed size",
		},
		{
			name:    "multipart body too large",
			err:     fmt.Errorf("parse form: %w", &http.MaxBytesError{Limit: 10}),
			kind:    KindUpload,
			status:  http.StatusBadRequest,
			message: "File exceeds the maximum allowed size",
		},
		{
			name:    "disallowed type",
			err:     upload.ErrUnsupportedType,
			kind:    KindUpload,
			status:  http.StatusBadRequest,
			message: "File type is not allowed",
		},
		{
			name:    "disallowed extension",
			err:     upload.ErrUnsupportedExtension,
			kind:    KindUpload,
			status:  http.StatusBadRequest,
			message: "File extension is not allowed",
		},
		{
			name:    "missing multipart file",
			err:     http.ErrMissingFile,
			kind:    KindUpload,
			status:  http.StatusBadRequest,
			message: "No file provided",
		},
		{
			name:    "duplicate email",
			err:     fmt.Errorf("failed to create user: %w", storeErr(pgerrcode.UniqueViolation, store.ErrEmailExists)),
			kind:    KindStorage,
			status:  http.StatusBadRequest,
			message: "Email already exists",
		},
		{
			name:    "foreign key violation",
			err:     storeErr(pgerrcode.ForeignKeyViolation, store.ErrInvalidEntity),
			kind:    KindStorage,
			status:  http.StatusBadRequest,
			message: "Related resource does not exist",
		},
		{
			name:    "connection failure",
			err:     storeErr(pgerrcode.ConnectionFailure, store.ErrUnavailable),
			kind:    KindStorage,
			status:  http.StatusServiceUnavailable,
			message: "Database is unavailable",
		},
		{
			name:    "auth failure against the store",
			err:     &pgconn.PgError{Code: pgerrcode.InvalidPassword},
			kind:    KindStorage,
			status:  http.StatusServiceUnavailable,
			message: "Database is unavailable",
		},
		{
			name:    "sentinel without code",
			err:     store.NewStoreError("user", "get", "no rows", store.ErrUserNotFound),
			kind:    KindStorage,
			status:  http.StatusNotFound,
			message: "Resource not found",
		},
		{
			name:   "unknown storage code",
			err:    &pgconn.PgError{Code: "XX999", Message: "secret internals"},
			kind:   KindStorage,
			status: http.StatusInternalServerError,
			code:   shared.CodeInternalError,
		},
		{
			name:    "domain error",
			err:     domain.ErrForbidden,
			kind:    KindDomain,
			status:  http.StatusForbidden,
			message: "You can only modify your own account",
		},
		{
			name:    "domain error wrapping a store cause",
			err:     domain.ErrUserNotFound.Wrap(store.NewStoreError("user", "get", "no rows", store.ErrUserNotFound)),
			kind:    KindDomain,
			status:  http.StatusNotFound,
			message: "User not found",
		},
		{
			name:   "malformed body",
			err:    fmt.Errorf("%w: unexpected EOF", shared.ErrMalformedRequest),
			kind:   KindMalformedRequest,
			status: http.StatusBadRequest,
			code:   shared.CodeMalformedRequest,
		},
		{
			name:   "malformed oversized JSON body",
			err:    fmt.Errorf("%w: %w", shared.ErrMalformedRequest, &http.MaxBytesError{Limit: 1}),
			kind:   KindMalformedRequest,
			status: http.StatusBadRequest,
			code:   shared.CodeMalformedRequest,
		},
		{
			name:   "upload storage failure",
			err:    fmt.Errorf("%w: disk full", upload.ErrStorage),
			kind:   KindUnknown,
			status: http.StatusInternalServerError,
			code:   shared.CodeInternalError,
		},
		{
			name:   "unknown",
			err:    errors.New("something broke"),
			kind:   KindUnknown,
			status: http.StatusInternalServerError,
			code:   shared.CodeInternalError,
		},
		{
			name:   "nil",
			err:    nil,
			kind:   KindUnknown,
			status: http.StatusInternalServerError,
			code:   shared.CodeInternalError,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			c := Classify(tc.err)

			assert.Equal(t, tc.kind, c.Kind, "kind was %s", c.Kind)
			assert.Equal(t, tc.status, c.Status)
			assert.Equal(t, tc.code, c.Code)
			assert.Equal(t, tc.message, c.Message)
			assert.False(t, c.Code != "" && c.Message != "", "code and message are exclusive")
		})
	}
}

func TestClassifyValidationCarriesFields(t *testing.T) {
	t.Parallel()

	verr := &domain.ValidationError{}
	verr.Add("name", "name is required")
	verr.Add("email", "invalid email format")

	c := Classify(fmt.Errorf("register: %w", verr))

	require.Len(t, c.Errors, 2)
	assert.Equal(t, "name", c.Errors[0].Path)
	assert.Equal(t, "invalid email format", c.Errors[1].Message)
}

func TestClassifyStorageKeepsOperatorHints(t *testing.T) {
	t.Parallel()

	c := Classify(storeErr(pgerrcode.TooManyConnections, store.ErrUnavailable))

	assert.Equal(t, pgerrcode.TooManyConnections, c.SQLState)
	assert.NotEmpty(t, c.Cause)
	assert.NotEmpty(t, c.Suggestion)
}

func TestErrorKindString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "validation", KindValidation.String())
	assert.Equal(t, "malformed_request", KindMalformedRequest.String())
	assert.Equal(t, "unknown", ErrorKind(99).String())
}

func serveError(t *testing.T, err error) (*httptest.ResponseRecorder, shared.Envelope, string) {
	t.Helper()

	log, buf := logger.NewTestLogger()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/users?page=1", nil)
	req = req.WithContext(logger.WithLogger(req.Context(), log))
	rec := httptest.NewRecorder()

	HandleAPIError(middleware.NewWrapResponseWriter(rec, req.ProtoMajor), req, err)

	var env shared.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env, buf.String()
}

func TestHandleAPIError_UnknownNeverLeaks(t *testing.T) {
	t.Parallel()

	rec, env, logs := serveError(t, errors.New("dial postgres://app:hunter2@db:5432 failed"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "Internal server error", env.Message)
	assert.Equal(t, shared.CodeInternalError, env.MessageCode)
	assert.Equal(t, "/api/v1/users?page=1", env.Path)
	assert.NotContains(t, rec.Body.String(), "hunter2")

	assert.Contains(t, logs, `"level":"ERROR"`)
	assert.Contains(t, logs, `"stack":`)
	assert.Contains(t, logs, `"user_agent":`)
	assert.NotContains(t, logs, "hunter2")
}

func TestHandleAPIError_ValidationEnvelope(t *testing.T) {
	t.Parallel()

	rec, env, logs := serveError(t, domain.NewValidationError("email", "invalid email format"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid input data", env.Message)
	assert.Equal(t, shared.CodeValidationFailed, env.MessageCode)
	require.Len(t, env.Errors, 1)
	assert.Equal(t, "email", env.Errors[0].Path)
	assert.Contains(t, logs, `"level":"DEBUG"`)
}

func TestHandleAPIError_DomainPassThrough(t *testing.T) {
	t.Parallel()

	rec, env, _ := serveError(t, domain.ErrInvalidCredentials)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid credentials", env.Message)
	assert.Empty(t, env.MessageCode)
}

func TestHandleAPIError_StorageLogsHints(t *testing.T) {
	t.Parallel()

	rec, env, logs := serveError(t, storeErr(pgerrcode.ConnectionFailure, store.ErrUnavailable))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "Database is unavailable", env.Message)
	assert.Contains(t, logs, `"sqlstate":"08006"`)
	assert.True(t, strings.Contains(logs, `"suggestion":`))
}

func TestHandleAPIError_CanceledQueryIsQuiet(t *testing.T) {
	t.Parallel()

	err := store.NewStoreError("user", "list", "context ended",
		fmt.Errorf("%w: %w", store.ErrCanceled, context.Canceled))
	rec, env, logs := serveError(t, err)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "Request was canceled", env.Message)
	assert.Contains(t, logs, `"level":"INFO"`)
	assert.Contains(t, logs, `"error_kind":"storage"`)
	assert.NotContains(t, logs, `"level":"ERROR"`)
	assert.NotContains(t, logs, `"stack":`)
}
