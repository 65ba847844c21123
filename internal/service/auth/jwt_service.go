package auth

import (
	"context"
	"time"

	"github.com/PitokDf/express-app-useable/internal/domain"
	"github.com/google/uuid"
)

// JWTService defines operations for managing JWT authentication tokens.
type JWTService interface {
	// GenerateToken creates a signed access token for user.
	GenerateToken(ctx context.Context, user *domain.User) (*Token, error)

	// ValidateToken validates the provided token string and extracts the claims.
	// Returns ErrExpiredToken for a well-formed but expired token and
	// ErrInvalidToken for every other failure.
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Token is a freshly issued, signed credential.
type Token struct {
	Value     string
	ID        string
	ExpiresAt time.Time
}

// Claims represents the validated payload of a token.
type Claims struct {
	UserID    uuid.UUID
	Email     string
	Name      string
	Issuer    string
	IssuedAt  time.Time
	ExpiresAt time.Time
	ID        string
}

// Identity converts the claims into the request-scoped identity.
func (c *Claims) Identity() domain.Identity {
	return domain.Identity{
		SubjectID:   c.UserID,
		Email:       c.Email,
		DisplayName: c.Name,
		IssuedAt:    c.IssuedAt,
		ExpiresAt:   c.ExpiresAt,
		TokenID:     c.ID,
	}
}
