package http

import (
	"errors"
	"net/http"

	"github.com/quickbite/platform/internal/auth/service"
	"github.com/quickbite/platform/internal/auth/store"
	"github.com/quickbite/platform/pkg/httpx"
	"github.com/quickbite/platform/pkg/slogx"
)

// writeAuthError collapses every credential and token failure into a generic
// 401 so responses leak nothing about which part failed.
func writeAuthError(w http.ResponseWriter) {
	httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid credentials or token")
}

// writeServiceError maps service sentinels onto status codes; anything
// unrecognised is a 500 that gets logged but not echoed.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrTokenExpired),
		errors.Is(err, service.ErrTokenRevoked),
		errors.Is(err, service.ErrTokenUnknown),
		errors.Is(err, service.ErrTokenBlacklisted):
		writeAuthError(w)
	case errors.Is(err, service.ErrEmailTaken):
		httpx.WriteError(w, http.StatusConflict, "email_taken", "an account with this email already exists")
	case errors.Is(err, service.ErrWeakPassword):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "password must be at least 6 characters")
	case errors.Is(err, service.ErrInvalidRole):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_role", "role cannot be granted or revoked")
	case errors.Is(err, service.ErrForbidden):
		httpx.WriteError(w, http.StatusForbidden, "forbidden", "admin role required")
	case errors.Is(err, store.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", "no such user")
	default:
		slogx.FromContext(r.Context()).Error("request failed", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "")
	}
}
