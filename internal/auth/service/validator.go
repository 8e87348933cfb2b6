package service

import (
	"context"
	"errors"

	"github.com/quickbite/platform/internal/metrics"
	"github.com/quickbite/platform/pkg/jwtx"
)

// Validator is the full access-token check: signature and time bounds via the
// codec, then the revocation denylist. It satisfies httpx.TokenVerifier and
// backs both the auth service's own middleware and the edge filter.
type Validator struct {
	Codec     *jwtx.Codec
	Blacklist *BlacklistService
	Metrics   *metrics.Metrics // nil-safe
}

func (v *Validator) Verify(ctx context.Context, token string) (jwtx.Claims, error) {
	claims, err := v.Codec.Verify(token)
	if err != nil {
		v.Metrics.Verification(verifyOutcome(err))
		return jwtx.Claims{}, err
	}

	if v.Blacklist != nil {
		denied, err := v.Blacklist.IsBlacklisted(ctx, token)
		if err != nil {
			return jwtx.Claims{}, err
		}
		if denied {
			v.Metrics.Verification("blacklisted")
			v.Metrics.BlacklistHit()
			return jwtx.Claims{}, ErrTokenBlacklisted
		}
	}

	v.Metrics.Verification("ok")
	return claims, nil
}

func verifyOutcome(err error) string {
	switch {
	case errors.Is(err, jwtx.ErrExpired):
		return "expired"
	case errors.Is(err, jwtx.ErrInvalidSignature):
		return "bad_signature"
	case errors.Is(err, jwtx.ErrMalformed):
		return "malformed"
	default:
		return "error"
	}
}
