package httpx

import (
	"net/http"
	"strings"

	"github.com/quickbite/platform/pkg/trustx"
)

// RequireAnyRole lets the request through when the caller holds at least one
// of the listed roles. Role names compare in canonical form, so "ADMIN" and
// "ROLE_ADMIN" are interchangeable.
func RequireAnyRole(required ...string) Middleware {
	want := make(map[string]struct{}, len(required))
	for _, role := range required {
		want[trustx.Canonical(role)] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			have := rolesFromCtx(r.Context())
			if len(have) == 0 {
				writeRoleError(w, http.StatusUnauthorized, required...)
				return
			}

			for _, role := range have {
				if _, ok := want[trustx.Canonical(role)]; ok {
					next.ServeHTTP(w, r)
					return
				}
			}

			writeRoleError(w, http.StatusForbidden, required...)
		})
	}
}

func writeRoleError(w http.ResponseWriter, code int, required ...string) {
	w.Header().
		Set("WWW-Authenticate", `Bearer error="insufficient_scope", scope="`+strings.Join(required, " ")+`"`)
	if code == http.StatusUnauthorized {
		WriteError(w, code, "unauthorized", "authentication required")
		return
	}
	WriteError(w, code, "forbidden", "caller lacks a required role")
}
