package httpx

import (
	"context"

	"github.com/quickbite/platform/pkg/jwtx"
)

type ctxKey string

const (
	CtxKeyUserID ctxKey = "user_id"
	CtxKeyRoles  ctxKey = "roles"
	CtxKeyClaims ctxKey = "claims" // full jwtx.Claims when needed
)

// UserIDFromCtx returns the authenticated user id or "" when the request is
// unauthenticated.
func UserIDFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyUserID).(string); ok {
		return v
	}
	return ""
}

// ClaimsFromCtx returns the verified access-token claims, if any.
func ClaimsFromCtx(ctx context.Context) (jwtx.Claims, bool) {
	c, ok := ctx.Value(CtxKeyClaims).(jwtx.Claims)
	return c, ok
}

func rolesFromCtx(ctx context.Context) []string {
	if v, ok := ctx.Value(CtxKeyRoles).([]string); ok {
		return v
	}
	return nil
}
