package cache

import (
	"fmt"

	"github.com/google/uuid"
)

// UserPrefix namespaces every cached user read. Invalidating it clears all
// list pages and single-user entries at once.
const UserPrefix = "users:"

// RevokedTokenPrefix namespaces revoked credential IDs. It is deliberately
// outside UserPrefix so user mutations never clear revocations.
const RevokedTokenPrefix = "auth:revoked:"

// UserListKey is the key of one page of the user list.
func UserListKey(page, limit int) string {
	return fmt.Sprintf("%sall:page:%d:limit:%d", UserPrefix, page, limit)
}

// UserKey is the key of a single user.
func UserKey(id uuid.UUID) string {
	return UserPrefix + "id:" + id.String()
}

// RevokedTokenKey is the key marking a token ID as revoked.
func RevokedTokenKey(tokenID string) string {
	return RevokedTokenPrefix + tokenID
}
