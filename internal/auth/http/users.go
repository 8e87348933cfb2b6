package http

import (
	"net/http"
	"time"

	"github.com/quickbite/platform/internal/auth/domain"
	"github.com/quickbite/platform/internal/auth/service"
	"github.com/quickbite/platform/pkg/httpx"
)

type UsersHandler struct {
	UserService *service.UserService
}

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Phone     string    `json:"phone"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type updateProfileRequest struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func toUserResponse(u domain.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		Phone:     u.Phone,
		Roles:     u.Roles,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func (h *UsersHandler) HandleGetMe(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFromCtx(r.Context())
	if userID == "" {
		writeAuthError(w)
		return
	}

	u, err := h.UserService.GetUserByID(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toUserResponse(u))
}

func (h *UsersHandler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFromCtx(r.Context())
	if userID == "" {
		writeAuthError(w)
		return
	}

	var req updateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	u, err := h.UserService.UpdateProfile(r.Context(), userID, req.FullName, req.Phone)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toUserResponse(u))
}

// HandleChangePassword swaps the password and, on success, kills every
// session so the caller has to log in again everywhere.
func (h *UsersHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFromCtx(r.Context())
	if userID == "" {
		writeAuthError(w)
		return
	}

	var req changePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.UserService.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "password_changed"})
}
