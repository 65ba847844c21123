package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/PitokDf/express-app-useable/internal/api"
	"github.com/PitokDf/express-app-useable/internal/api/credential"
	"github.com/PitokDf/express-app-useable/internal/api/shared"
	"github.com/PitokDf/express-app-useable/internal/platform/logger"
	"github.com/PitokDf/express-app-useable/internal/redact"
	"github.com/PitokDf/express-app-useable/internal/service/auth"
)

// RevocationChecker reports whether a token ID was revoked by logout.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) bool
}

// AuthMiddleware provides JWT authentication for routes.
type AuthMiddleware struct {
	jwtService  auth.JWTService
	transport   credential.Transport
	revocations RevocationChecker
}

// NewAuthMiddleware creates a new AuthMiddleware with the given dependencies.
func NewAuthMiddleware(
	jwtService auth.JWTService,
	transport credential.Transport,
	revocations RevocationChecker,
) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService:  jwtService,
		transport:   transport,
		revocations: revocations,
	}
}

// Authenticate validates the token carried by the configured transport and
// attaches the caller's identity to the request context. Only that
// transport is inspected. An expired token is also cleared from the
// transport before the request is rejected.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())

		raw := m.transport.Extract(r)
		if raw == "" {
			api.HandleAPIError(w, r, auth.ErrMissingToken)
			return
		}

		claims, err := m.jwtService.ValidateToken(r.Context(), raw)
		if err != nil {
			if errors.Is(err, auth.ErrExpiredToken) {
				m.transport.Clear(w)
			}
			log.Debug("token rejected",
				slog.String("transport", m.transport.Name()),
				slog.String("error", redact.Error(err)))
			api.HandleAPIError(w, r, err)
			return
		}

		if m.revocations != nil && m.revocations.IsRevoked(r.Context(), claims.ID) {
			api.HandleAPIError(w, r, auth.ErrRevokedToken)
			return
		}

		ctx := shared.WithIdentity(r.Context(), claims.Identity())
		ctx = logger.WithLogger(ctx, log.With(slog.String("user_id", claims.UserID.String())))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
