package api

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/PitokDf/express-app-useable/internal/api/shared"
	"github.com/PitokDf/express-app-useable/internal/domain"
	"github.com/PitokDf/express-app-useable/internal/platform/logger"
	"github.com/PitokDf/express-app-useable/internal/redact"
	"github.com/PitokDf/express-app-useable/internal/service/auth"
	"github.com/PitokDf/express-app-useable/internal/store"
	"github.com/PitokDf/express-app-useable/internal/upload"
)

// ErrorKind is the closed set of error classes the API boundary knows how
// to render.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindValidation
	KindAuth
	KindUpload
	KindStorage
	KindDomain
	KindMalformedRequest
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindUpload:
		return "upload"
	case KindStorage:
		return "storage"
	case KindDomain:
		return "domain"
	case KindMalformedRequest:
		return "malformed_request"
	case KindUnknown:
		return "unknown"
	}
	return "unknown"
}

// Classification is what the client gets to see of an error. Exactly one of
// Code and Message is set.
type Classification struct {
	Kind    ErrorKind
	Status  int
	Code    shared.MessageCode
	Message string
	Errors  []domain.FieldViolation

	// SQLState, Cause and Suggestion are only set for storage errors and
	// only ever logged.
	SQLState   string
	Cause      string
	Suggestion string
}

// Options renders the classification as response options.
func (c Classification) Options() []shared.Option {
	opts := []shared.Option{shared.WithStatus(c.Status)}
	if c.Code != "" {
		opts = append(opts, shared.WithCode(c.Code))
	} else {
		opts = append(opts, shared.WithMessage(c.Message))
	}
	if len(c.Errors) > 0 {
		opts = append(opts, shared.WithErrors(c.Errors))
	}
	return opts
}

type storageEntry struct {
	status     int
	message    string
	cause      string
	suggestion string
}

// storageErrors maps SQLSTATE codes to their client rendering plus
// operator hints for the logs.
var storageErrors = map[string]storageEntry{
	pgerrcode.UniqueViolation: {
		http.StatusBadRequest, "Resource already exists",
		"a row with the same unique key already exists",
		"check for an existing record before creating",
	},
	pgerrcode.ForeignKeyViolation: {
		http.StatusBadRequest, "Related resource does not exist",
		"the referenced row is missing",
		"create the referenced record first",
	},
	pgerrcode.NotNullViolation: {
		http.StatusBadRequest, "Required field is missing",
		"a NOT NULL column received no value",
		"validate required fields before writing",
	},
	pgerrcode.CheckViolation: {
		http.StatusBadRequest, "Invalid field value",
		"a CHECK constraint rejected the row",
		"compare the input with the table constraints",
	},
	pgerrcode.StringDataRightTruncationDataException: {
		http.StatusBadRequest, "Field value is too long",
		"a value exceeds the column length",
		"enforce maximum lengths in validation",
	},
	pgerrcode.InvalidTextRepresentation: {
		http.StatusBadRequest, "Invalid field format",
		"a value could not be parsed into the column type",
		"validate identifiers and typed fields before querying",
	},
	pgerrcode.NoDataFound: {
		http.StatusNotFound, "Resource not found",
		"the query matched no rows",
		"verify the identifier",
	},
	pgerrcode.ConnectionException: {
		http.StatusServiceUnavailable, "Database is unavailable",
		"the database connection failed",
		"check that the database is running and reachable",
	},
	pgerrcode.ConnectionFailure: {
		http.StatusServiceUnavailable, "Database is unavailable",
		"the database connection was lost",
		"check network connectivity to the database",
	},
	pgerrcode.SQLClientUnableToEstablishSQLConnection: {
		http.StatusServiceUnavailable, "Database is unavailable",
		"the client could not connect",
		"check the database host and port",
	},
	pgerrcode.SQLServerRejectedEstablishmentOfSQLConnection: {
		http.StatusServiceUnavailable, "Database is unavailable",
		"the server refused the connection",
		"check pg_hba.conf and server logs",
	},
	pgerrcode.AdminShutdown: {
		http.StatusServiceUnavailable, "Database is unavailable",
		"the database is shutting down",
		"retry after the database restarts",
	},
	pgerrcode.CannotConnectNow: {
		http.StatusServiceUnavailable, "Database is unavailable",
		"the database is starting up or in recovery",
		"retry shortly",
	},
	pgerrcode.TooManyConnections: {
		http.StatusServiceUnavailable, "Database is busy",
		"the connection limit was reached",
		"lower database.max_open_conns or raise max_connections",
	},
	pgerrcode.InvalidPassword: {
		http.StatusServiceUnavailable, "Database is unavailable",
		"the database rejected the configured password",
		"check APP_DATABASE_URL credentials",
	},
	pgerrcode.InvalidAuthorizationSpecification: {
		http.StatusServiceUnavailable, "Database is unavailable",
		"the database rejected the configured role",
		"check APP_DATABASE_URL credentials",
	},
	pgerrcode.SerializationFailure: {
		http.StatusServiceUnavailable, "Please retry the request",
		"a concurrent transaction conflicted",
		"retry the transaction",
	},
	pgerrcode.DeadlockDetected: {
		http.StatusServiceUnavailable, "Please retry the request",
		"a deadlock was detected",
		"retry the transaction and review lock ordering",
	},
}

// Classify translates any error into its client rendering. It never fails;
// unrecognized errors become a generic 500.
func Classify(err error) Classification {
	if c, ok := classifyValidation(err); ok {
		return c
	}
	if c, ok := classifyAuth(err); ok {
		return c
	}
	if c, ok := classifyUpload(err); ok {
		return c
	}
	if c, ok := classifyStorage(err); ok {
		return c
	}

	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		return Classification{Kind: KindDomain, Status: appErr.Status, Message: appErr.Message}
	}

	if errors.Is(err, shared.ErrMalformedRequest) {
		return Classification{
			Kind:   KindMalformedRequest,
			Status: http.StatusBadRequest,
			Code:   shared.CodeMalformedRequest,
		}
	}

	return Classification{
		Kind:   KindUnknown,
		Status: http.StatusInternalServerError,
		Code:   shared.CodeInternalError,
	}
}

func classifyValidation(err error) (Classification, bool) {
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		return Classification{}, false
	}
	return Classification{
		Kind:   KindValidation,
		Status: http.StatusBadRequest,
		Code:   shared.CodeValidationFailed,
		Errors: verr.Fields,
	}, true
}

func classifyAuth(err error) (Classification, bool) {
	c := Classification{Kind: KindAuth, Status: http.StatusUnauthorized}
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		c.Code = shared.CodeTokenExpired
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrRevokedToken):
		c.Code = shared.CodeTokenInvalid
	case errors.Is(err, auth.ErrMissingToken):
		c.Code = shared.CodeUnauthorized
	default:
		return Classification{}, false
	}
	return c, true
}

func classifyUpload(err error) (Classification, bool) {
	c := Classification{Kind: KindUpload, Status: http.StatusBadRequest}

	var tooBig *http.MaxBytesError
	switch {
	case errors.Is(err, upload.ErrFileTooLarge),
		errors.As(err, &tooBig) && !errors.Is(err, shared.ErrMalformedRequest):
		c.Message = "File exceeds the maximum allowed size"
	case errors.Is(err, upload.ErrUnsupportedType):
		c.Message = "File type is not allowed"
	case errors.Is(err, upload.ErrUnsupportedExtension):
		c.Message = "File extension is not allowed"
	case errors.Is(err, upload.ErrEmptyFile):
		c.Message = "File is empty"
	case errors.Is(err, upload.ErrMissingFile), errors.Is(err, http.ErrMissingFile):
		c.Message = "No file provided"
	case errors.Is(err, upload.ErrInvalidUpload):
		c.Code = shared.CodeUploadFailed
	default:
		return Classification{}, false
	}
	return c, true
}

// classifyStorage resolves storage failures by SQLSTATE, falling back to the
// store sentinels when no code is known. A domain error that wraps a store
// cause is left to the domain step.
func classifyStorage(err error) (Classification, bool) {
	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		return Classification{}, false
	}

	code := ""
	var storeErr *store.StoreError
	var pgErr *pgconn.PgError
	switch {
	case errors.As(err, &storeErr):
		code = storeErr.Code
	case errors.As(err, &pgErr):
		code = pgErr.Code
	}

	c := Classification{Kind: KindStorage, SQLState: code}
	if entry, ok := storageErrors[code]; ok {
		c.Status = entry.status
		c.Message = entry.message
		c.Cause = entry.cause
		c.Suggestion = entry.suggestion
		if errors.Is(err, store.ErrEmailExists) {
			c.Message = "Email already exists"
		}
		return c, true
	}

	switch {
	case errors.Is(err, store.ErrEmailExists):
		c.Status, c.Message = http.StatusBadRequest, "Email already exists"
	case errors.Is(err, store.ErrDuplicate):
		c.Status, c.Message = http.StatusBadRequest, "Resource already exists"
	case errors.Is(err, store.ErrNotFound):
		c.Status, c.Message = http.StatusNotFound, "Resource not found"
	case errors.Is(err, store.ErrInvalidEntity):
		c.Status, c.Message = http.StatusBadRequest, "Invalid entity data"
	case errors.Is(err, store.ErrUnavailable):
		c.Status, c.Message = http.StatusServiceUnavailable, "Database is unavailable"
	case errors.Is(err, store.ErrCanceled):
		c.Status, c.Message = http.StatusServiceUnavailable, "Request was canceled"
		c.Cause = "the request ended before the query finished"
	case storeErr != nil || pgErr != nil:
		// Unknown storage code: the raw error stays in the logs.
		c.Status = http.StatusInternalServerError
		c.Code = shared.CodeInternalError
		c.Cause = "unrecognized storage error"
	default:
		return Classification{}, false
	}
	return c, true
}

// HandleAPIError classifies err, logs it at a level matching its severity
// and writes the error envelope.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error) {
	c := Classify(err)
	logClassified(r, err, c)
	shared.Error(w, r, c.Options()...)
}

func logClassified(r *http.Request, err error, c Classification) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	level := slog.LevelDebug
	switch {
	case errors.Is(err, store.ErrCanceled):
		// Client disconnects and timeouts are not server faults.
		level = slog.LevelInfo
	case c.Status >= http.StatusInternalServerError:
		level = slog.LevelError
	case c.Status == http.StatusTooManyRequests:
		level = slog.LevelWarn
	}

	attrs := []slog.Attr{
		slog.String("error_kind", c.Kind.String()),
		slog.Int("status_code", c.Status),
		slog.String("error", redact.Error(err)),
	}

	switch c.Kind {
	case KindStorage:
		attrs = append(attrs,
			slog.String("sqlstate", c.SQLState),
			slog.String("common_cause", c.Cause),
			slog.String("suggestion", c.Suggestion))
	case KindUnknown:
		attrs = append(attrs,
			slog.String("method", r.Method),
			slog.String("url", r.URL.String()),
			slog.String("remote_ip", clientIP(r)),
			slog.String("user_agent", r.UserAgent()),
			slog.String("stack", string(debug.Stack())))
	}

	log.LogAttrs(ctx, level, "request failed", attrs...)
}
