package http

import (
	"net/http"

	"github.com/quickbite/platform/internal/auth/service"
	"github.com/quickbite/platform/pkg/httpx"
	"github.com/quickbite/platform/pkg/trustx"
)

type RolesHandler struct {
	RolesService *service.RolesService
}

type grantRoleRequest struct {
	Role string `json:"role"`
}

// HandleGrant attaches a role to the user in the path. The service re-reads
// the actor's roles from the store, so a stale ADMIN claim is not enough.
func (h *RolesHandler) HandleGrant(w http.ResponseWriter, r *http.Request) {
	actorID := httpx.UserIDFromCtx(r.Context())
	if actorID == "" {
		writeAuthError(w)
		return
	}

	var req grantRoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	targetID := r.PathValue("id")
	role := trustx.Bare(req.Role)

	if err := h.RolesService.Grant(r.Context(), actorID, targetID, role); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "granted",
		"role":   role,
	})
}

func (h *RolesHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	actorID := httpx.UserIDFromCtx(r.Context())
	if actorID == "" {
		writeAuthError(w)
		return
	}

	targetID := r.PathValue("id")
	role := trustx.Bare(r.PathValue("role"))

	if err := h.RolesService.Revoke(r.Context(), actorID, targetID, role); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "revoked",
		"role":   role,
	})
}
