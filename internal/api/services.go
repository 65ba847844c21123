package api

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/PitokDf/express-app-useable/internal/domain"
	"github.com/PitokDf/express-app-useable/internal/service"
	"github.com/PitokDf/express-app-useable/internal/upload"
)

//go:generate mockgen -source=services.go -destination=../mocks/api_services.go -package=mocks

// UserService is the user logic the handlers depend on.
type UserService interface {
	Register(ctx context.Context, name, email, password string) (*domain.User, error)
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)
	List(ctx context.Context, page, limit int) (*service.UserPage, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.User, error)
	Update(ctx context.Context, actorID, id uuid.UUID, update domain.UserUpdate) (*domain.User, error)
	Delete(ctx context.Context, actorID, id uuid.UUID) error
}

// TokenRevoker invalidates issued tokens before their expiry.
type TokenRevoker interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time)
}

// FileSaver stores validated uploads.
type FileSaver interface {
	MaxSize() int64
	Save(ctx context.Context, originalName string, size int64, r io.ReadSeeker) (*upload.File, error)
}

var (
	_ UserService = (*service.UserService)(nil)
	_ FileSaver   = (*upload.Service)(nil)
)
