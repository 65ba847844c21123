package api

import (
	"net/http"

	"github.com/PitokDf/express-app-useable/internal/api/shared"
)

// UserHandler serves the protected user resource.
type UserHandler struct {
	users UserService
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(users UserService) *UserHandler {
	return &UserHandler{users: users}
}

// List handles GET /api/v1/users?page=&limit=.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	page, limit, err := pageParams(r)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	result, err := h.users.List(r.Context(), page, limit)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	shared.Paginated(w, r,
		NewUserResponses(result.Users),
		shared.NewPagination(result.Page, result.Limit, result.Total),
		shared.WithCode(shared.CodeUsersFound))
}

// Get handles GET /api/v1/users/{id}.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	user, err := h.users.Get(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	shared.Success(w, r, NewUserResponse(user), shared.WithCode(shared.CodeUserFound))
}

// Update handles PATCH /api/v1/users/{id}. Only the account owner may
// update it.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	var req UpdateUserRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		HandleAPIError(w, r, err)
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		HandleAPIError(w, r, err)
		return
	}

	user, err := h.users.Update(r.Context(), identity.SubjectID, id, req.toDomain())
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	shared.Success(w, r, NewUserResponse(user), shared.WithCode(shared.CodeUserUpdated))
}

// Delete handles DELETE /api/v1/users/{id}. Only the account owner may
// delete it.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	if err := h.users.Delete(r.Context(), identity.SubjectID, id); err != nil {
		HandleAPIError(w, r, err)
		return
	}

	shared.Success(w, r, nil, shared.WithCode(shared.CodeUserDeleted))
}
