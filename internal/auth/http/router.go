package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/quickbite/platform/internal/auth/domain"
	"github.com/quickbite/platform/internal/auth/service"
	"github.com/quickbite/platform/internal/auth/store"
	"github.com/quickbite/platform/internal/metrics"
	"github.com/quickbite/platform/pkg/httpx"
	"github.com/quickbite/platform/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     httpx.TokenVerifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store
	metrics      *metrics.Metrics

	TokenService *service.TokenService
	UserService  *service.UserService
	RolesService *service.RolesService
}

func NewRouter(
	verifier httpx.TokenVerifier,
	buildVersion string,
	st store.Store,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		metrics:      m,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerUsers()
	r.registerRoles()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{TokenService: r.TokenService}

	// Credential endpoints take the strict limit to slow brute force.
	r.Mux.Handle("POST /api/auth/register",
		httpx.Chain(http.HandlerFunc(h.HandleRegister),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /api/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /api/auth/refresh",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /api/auth/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /api/auth/logout-all",
		httpx.Chain(http.HandlerFunc(h.HandleLogoutAll),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /api/auth/validate",
		httpx.Chain(http.HandlerFunc(h.HandleValidate),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerUsers() {
	h := &UsersHandler{UserService: r.UserService}

	r.Mux.Handle("GET /api/users/me",
		httpx.Chain(http.HandlerFunc(h.HandleGetMe),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("PUT /api/users/me",
		httpx.Chain(http.HandlerFunc(h.HandleUpdateMe),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("PUT /api/users/me/password",
		httpx.Chain(http.HandlerFunc(h.HandleChangePassword),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerRoles() {
	h := &RolesHandler{RolesService: r.RolesService}

	// The role guard here is a fast reject from token claims; the service
	// re-reads the actor's roles from the store before acting.
	r.Mux.Handle("POST /api/users/{id}/roles",
		httpx.Chain(http.HandlerFunc(h.HandleGrant),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RequireAnyRole(domain.RoleAdmin),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("DELETE /api/users/{id}/roles/{role}",
		httpx.Chain(http.HandlerFunc(h.HandleRevoke),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RequireAnyRole(domain.RoleAdmin),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /metrics", r.metrics.Handler())
}
