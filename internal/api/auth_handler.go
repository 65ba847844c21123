package api

import (
	"log/slog"
	"net/http"

	"github.com/PitokDf/express-app-useable/internal/api/credential"
	"github.com/PitokDf/express-app-useable/internal/api/shared"
	"github.com/PitokDf/express-app-useable/internal/platform/logger"
	"github.com/PitokDf/express-app-useable/internal/service/auth"
)

// AuthHandler handles registration and the credential lifecycle.
type AuthHandler struct {
	users      UserService
	jwtService auth.JWTService
	transport  credential.Transport
	revoker    TokenRevoker
}

// NewAuthHandler creates a new AuthHandler with the given dependencies.
func NewAuthHandler(
	users UserService,
	jwtService auth.JWTService,
	transport credential.Transport,
	revoker TokenRevoker,
) *AuthHandler {
	return &AuthHandler{
		users:      users,
		jwtService: jwtService,
		transport:  transport,
		revoker:    revoker,
	}
}

// Register handles POST /api/v1/users/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		HandleAPIError(w, r, err)
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		HandleAPIError(w, r, err)
		return
	}

	user, err := h.users.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	shared.Created(w, r, NewUserResponse(user), shared.WithCode(shared.CodeUserCreated))
}

// Login handles POST /api/v1/users/login. The issued token is written to
// the configured credential transport.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		HandleAPIError(w, r, err)
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		HandleAPIError(w, r, err)
		return
	}

	user, err := h.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	token, err := h.jwtService.GenerateToken(r.Context(), user)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	h.transport.Attach(w, token.Value, token.ExpiresAt)

	resp := LoginResponse{User: NewUserResponse(user), ExpiresAt: token.ExpiresAt}
	if h.transport.Name() == "header" {
		resp.Token = token.Value
	}

	logger.FromContext(r.Context()).Info("user logged in", slog.String("user_id", user.ID.String()))
	shared.Success(w, r, resp, shared.WithCode(shared.CodeLogin))
}

// Logout handles POST /api/v1/users/logout. A still-valid token is revoked
// so it stops working for header clients too. The transport is always
// cleared and the call always succeeds.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if raw := h.transport.Extract(r); raw != "" {
		claims, err := h.jwtService.ValidateToken(r.Context(), raw)
		if err == nil {
			h.revoker.Revoke(r.Context(), claims.ID, claims.ExpiresAt)
			logger.FromContext(r.Context()).Info("user logged out", slog.String("user_id", claims.UserID.String()))
		}
	}

	h.transport.Clear(w)
	shared.Success(w, r, nil, shared.WithCode(shared.CodeLogout))
}
