package service

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/quickbite/platform/internal/auth/cache"
	"github.com/quickbite/platform/pkg/cryptox"
	"github.com/quickbite/platform/pkg/jwtx"
)

// DefaultBlacklistTTL caps denylist entries and covers tokens whose expiry
// cannot be read at all.
const DefaultBlacklistTTL = 24 * time.Hour

// BlacklistService records revoked access tokens until their natural expiry.
// Entries are keyed by token fingerprint so the raw JWT never lands in the
// denylist store.
type BlacklistService struct {
	List   cache.Denylist
	MaxTTL time.Duration
}

func NewBlacklistService(list cache.Denylist) *BlacklistService {
	return &BlacklistService{List: list, MaxTTL: DefaultBlacklistTTL}
}

// Blacklist denies the token for as long as it would otherwise stay valid.
// The expiry is read without verifying the signature; it only sizes the TTL
// and is never trusted for authorization. Tokens that cannot be parsed are
// denied for the full fallback window.
func (s *BlacklistService) Blacklist(ctx context.Context, accessToken string) error {
	ttl := s.ttlFor(accessToken, time.Now())
	if ttl <= 0 {
		// Already past expiry; verification rejects it on its own.
		return nil
	}
	return s.List.Put(ctx, cryptox.FingerprintToken(accessToken), ttl)
}

// IsBlacklisted reports whether the token was revoked. Expired entries read
// as absent.
func (s *BlacklistService) IsBlacklisted(ctx context.Context, accessToken string) (bool, error) {
	return s.List.Exists(ctx, cryptox.FingerprintToken(accessToken))
}

func (s *BlacklistService) ttlFor(accessToken string, now time.Time) time.Duration {
	maxTTL := s.MaxTTL
	if maxTTL <= 0 {
		maxTTL = DefaultBlacklistTTL
	}

	var claims jwtx.Claims
	_, _, err := jwt.NewParser().ParseUnverified(accessToken, &claims)
	if err != nil || claims.ExpiresAt == nil {
		return maxTTL
	}

	ttl := claims.ExpiresAt.Sub(now)
	if ttl > maxTTL {
		ttl = maxTTL
	}
	return ttl
}
