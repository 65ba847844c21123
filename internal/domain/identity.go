package domain

import (
	"time"

	"github.com/google/uuid"
)

// Identity is the decoded credential payload attached to an authenticated
// request. It lives for one request and is never persisted.
type Identity struct {
	SubjectID   uuid.UUID
	Email       string
	DisplayName string
	IssuedAt    time.Time
	ExpiresAt   time.Time
	// TokenID is the credential's unique ID, used for revocation.
	TokenID string
}
