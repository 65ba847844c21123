package auth

import (
	"context"
	"time"

	"github.com/PitokDf/express-app-useable/internal/cache"
)

// RevocationList remembers revoked token IDs until the tokens would have
// expired anyway. It fails open: if the cache is unavailable a revoked token
// is accepted until its natural expiry.
type RevocationList struct {
	cache *cache.Cache
	now   func() time.Time
}

// NewRevocationList creates a RevocationList backed by c.
func NewRevocationList(c *cache.Cache) *RevocationList {
	return &RevocationList{cache: c, now: time.Now}
}

// Revoke marks tokenID revoked until expiresAt plus the validation leeway.
func (r *RevocationList) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) {
	ttl := expiresAt.Sub(r.now()) + DefaultClockSkew
	if ttl <= 0 {
		ttl = time.Minute
	}
	r.cache.Set(ctx, cache.RevokedTokenKey(tokenID), true, ttl)
}

// IsRevoked reports whether tokenID has been revoked.
func (r *RevocationList) IsRevoked(ctx context.Context, tokenID string) bool {
	var revoked bool
	return r.cache.Get(ctx, cache.RevokedTokenKey(tokenID), &revoked) && revoked
}
