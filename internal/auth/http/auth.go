package http

import (
	"encoding/json"
	"net/http"

	"github.com/quickbite/platform/internal/auth/service"
	"github.com/quickbite/platform/pkg/httpx"
)

type AuthHandler struct {
	TokenService *service.TokenService
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type identityResponse struct {
	UserID   string   `json:"user_id"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	Roles    []string `json:"roles"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return false
	}
	return true
}

func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	// Unknown fields (a "roles" key included) are dropped by the decoder;
	// the service grants USER unconditionally.
	pair, err := h.TokenService.Register(r.Context(), service.RegisterRequest{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Phone:    req.Phone,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, pair)
}

func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	pair, err := h.TokenService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, pair)
}

func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		writeAuthError(w)
		return
	}

	pair, err := h.TokenService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, pair)
}

// HandleLogout revokes the presented refresh token and blacklists the bearer
// access token when one accompanies the request. Revoking an already-dead
// token still returns 200.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "refresh_token is required")
		return
	}

	access, _ := httpx.BearerToken(r)
	if err := h.TokenService.Logout(r.Context(), req.RefreshToken, access); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

func (h *AuthHandler) HandleLogoutAll(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFromCtx(r.Context())
	if userID == "" {
		writeAuthError(w)
		return
	}

	if err := h.TokenService.LogoutAll(r.Context(), userID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "logged_out_everywhere"})
}

// HandleValidate echoes the verified identity back to the caller. The authn
// middleware has already rejected anything invalid or blacklisted.
func (h *AuthHandler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	claims, ok := httpx.ClaimsFromCtx(r.Context())
	if !ok {
		writeAuthError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, identityResponse{
		UserID:   claims.Subject,
		Email:    claims.Email,
		FullName: claims.FullName,
		Roles:    claims.RoleList(),
	})
}
