// Package trustx builds request identity from the headers the edge gateway
// injects after token verification. Internal services sit behind the gateway
// and never see raw tokens; they trust identity headers only when the
// gateway's validation marker is present.
package trustx

import (
	"context"
	"net/http"
	"strings"
)

// Headers injected by the edge gateway.
const (
	HeaderUserID      = "X-User-Id"
	HeaderUserName    = "X-User-Name"
	HeaderUserRoles   = "X-User-Roles"
	HeaderAuthorities = "X-User-Authorities"
	HeaderValidated   = "X-JWT-Validated"
)

// IdentityHeaders lists every header that carries identity. The gateway
// strips these from inbound requests before deciding anything else.
var IdentityHeaders = []string{
	HeaderUserID,
	HeaderUserName,
	HeaderUserRoles,
	HeaderAuthorities,
	HeaderValidated,
}

// Identity is the caller as asserted by the gateway. Roles are canonical
// (ROLE_-prefixed) and deduplicated.
type Identity struct {
	UserID string
	Name   string
	Roles  []string
}

// HasRole reports whether the identity holds the role in either form.
func (id Identity) HasRole(role string) bool {
	return ContainsRole(id.Roles, role)
}

type ctxKey struct{}

// FromContext returns the identity established by Middleware, if any.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}

// FromHeaders derives an identity from request headers. It returns ok=false
// unless the validation marker is present and non-empty AND the user id
// header is set; headers without the marker are ignored entirely, so a
// client-forged X-User-Roles on a request that bypassed the gateway filter
// yields no identity.
func FromHeaders(h http.Header) (Identity, bool) {
	if strings.TrimSpace(h.Get(HeaderValidated)) == "" {
		return Identity{}, false
	}
	userID := strings.TrimSpace(h.Get(HeaderUserID))
	if userID == "" {
		return Identity{}, false
	}

	id := Identity{
		UserID: userID,
		Name:   strings.TrimSpace(h.Get(HeaderUserName)),
		Roles:  mergeRoles(h.Get(HeaderUserRoles), h.Get(HeaderAuthorities)),
	}
	if len(id.Roles) == 0 {
		// An authenticated caller always holds at least the base role.
		id.Roles = []string{RolePrefix + "USER"}
	}
	return id, true
}

// mergeRoles canonicalises and deduplicates the comma-separated role and
// authority headers.
func mergeRoles(lists ...string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, list := range lists {
		for _, raw := range strings.Split(list, ",") {
			role := Canonical(raw)
			if role == "" {
				continue
			}
			if _, dup := seen[role]; dup {
				continue
			}
			seen[role] = struct{}{}
			out = append(out, role)
		}
	}
	return out
}

// Middleware attaches the gateway-asserted identity to the request context
// when present. Requests without a valid identity pass through
// unauthenticated; guards decide whether that is acceptable.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := FromHeaders(r.Header); ok {
			r = r.WithContext(context.WithValue(r.Context(), ctxKey{}, id))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole guards a handler: 401 when no identity was established, 403
// when the identity lacks the role.
func RequireRole(role string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := FromContext(r.Context())
		if !ok {
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}
		if !id.HasRole(role) {
			http.Error(w, "insufficient role", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
