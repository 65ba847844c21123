package api

import (
	"math"
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/PitokDf/express-app-useable/internal/api/shared"
	"github.com/PitokDf/express-app-useable/internal/domain"
	"github.com/PitokDf/express-app-useable/internal/platform/logger"
	"github.com/PitokDf/express-app-useable/internal/service/auth"
)

// Pagination bounds for list endpoints.
const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100

	// MaxPage keeps (page-1)*limit within an int for every allowed limit.
	MaxPage = math.MaxInt / MaxLimit
)

// requireIdentity returns the identity attached by the authentication gate.
// It writes a 401 and returns false when the route was mounted without the
// gate.
func requireIdentity(w http.ResponseWriter, r *http.Request) (domain.Identity, bool) {
	id, ok := shared.IdentityFrom(r.Context())
	if !ok || id.SubjectID == uuid.Nil {
		logger.FromContext(r.Context()).Warn("identity not found in request context")
		HandleAPIError(w, r, auth.ErrMissingToken)
		return domain.Identity{}, false
	}
	return id, true
}

// pathUUID parses a UUID path parameter.
func pathUUID(r *http.Request, param string) (uuid.UUID, error) {
	raw := chi.URLParam(r, param)
	if raw == "" {
		return uuid.Nil, domain.NewValidationError(param, param+" is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, domain.NewValidationError(param, param+" must be a valid UUID")
	}
	return id, nil
}

// pageParams reads page and limit from the query string, applying defaults.
// Every invalid value is reported in one validation error.
func pageParams(r *http.Request) (page, limit int, err error) {
	verr := &domain.ValidationError{}
	q := r.URL.Query()

	page = DefaultPage
	if raw := q.Get("page"); raw != "" {
		n, convErr := strconv.Atoi(raw)
		switch {
		case convErr != nil || n < 1:
			verr.Add("page", "page must be a positive integer")
		case n > MaxPage:
			verr.Add("page", "page must be at most "+strconv.Itoa(MaxPage))
		default:
			page = n
		}
	}

	limit = DefaultLimit
	if raw := q.Get("limit"); raw != "" {
		n, convErr := strconv.Atoi(raw)
		switch {
		case convErr != nil || n < 1:
			verr.Add("limit", "limit must be a positive integer")
		case n > MaxLimit:
			verr.Add("limit", "limit must be at most "+strconv.Itoa(MaxLimit))
		default:
			limit = n
		}
	}

	return page, limit, verr.OrNil()
}

// clientIP returns the caller's address without the port. RealIP upstream
// has already applied any forwarding headers.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
