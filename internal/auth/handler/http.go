// Package handler exposes the /auth endpoints: register, login, refresh,
// logout, and me. The refresh token travels only in an HttpOnly cookie; the
// access token is returned in the response body.
package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"erp-suite/backend/internal/auth/service"
	"erp-suite/backend/internal/server/httpx"
	userdomain "erp-suite/backend/internal/user/domain"
)

// refreshCookieName is the cookie carrying the refresh token.
const refreshCookieName = "refreshToken"

// AuthHandler serves the auth endpoints.
type AuthHandler struct {
	svc          *service.AuthService
	cookieSecure bool
}

// NewAuthHandler returns an AuthHandler backed by the given service.
func NewAuthHandler(svc *service.AuthService, cookieSecure bool) *AuthHandler {
	return &AuthHandler{svc: svc, cookieSecure: cookieSecure}
}

// RegisterPublic mounts the endpoints that require no access token.
func (h *AuthHandler) RegisterPublic(r chi.Router) {
	r.Post("/auth/register", h.handleRegister)
	r.Post("/auth/login", h.handleLogin)
	r.Post("/auth/refresh", h.handleRefresh)
	r.Post("/auth/logout", h.handleLogout)
}

// RegisterProtected mounts the endpoints that require a valid access token.
func (h *AuthHandler) RegisterProtected(r chi.Router) {
	r.Get("/auth/me", h.handleMe)
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	IsMaster bool     `json:"isMaster"`
	Roles    []string `json:"roles"`
}

func toUserResponse(u *userdomain.User) userResponse {
	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}
	return userResponse{ID: u.ID, Name: u.Name, Email: u.Email, IsMaster: u.IsMaster, Roles: roles}
}

func (h *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteBadRequest(w, "invalid JSON body")
		return
	}
	res, err := h.svc.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrEmailAlreadyRegistered) {
			httpx.WriteError(w, http.StatusConflict, httpx.ErrCodeConflict, "email already registered")
			return
		}
		httpx.WriteError(w, http.StatusBadRequest, httpx.ErrCodeValidation, err.Error())
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toUserResponse(res.User))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string       `json:"accessToken"`
	ExpiresAt   time.Time    `json:"expiresAt"`
	User        userResponse `json:"user"`
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteBadRequest(w, "invalid JSON body")
		return
	}
	res, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			httpx.WriteUnauthorized(w, "invalid credentials")
			return
		}
		httpx.WriteInternalError(w, "login failed")
		return
	}
	h.setRefreshCookie(w, res.RefreshToken, res.RefreshExpiresAt)
	httpx.WriteJSON(w, http.StatusOK, tokenResponse{
		AccessToken: res.AccessToken,
		ExpiresAt:   res.AccessExpiresAt,
		User:        toUserResponse(res.User),
	})
}

func (h *AuthHandler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	token := refreshTokenFromCookie(r)
	res, err := h.svc.Refresh(r.Context(), token)
	if err != nil {
		if errors.Is(err, service.ErrRefreshInvalid) {
			h.clearRefreshCookie(w)
			httpx.WriteUnauthorized(w, "invalid or expired refresh token")
			return
		}
		httpx.WriteInternalError(w, "refresh failed")
		return
	}
	h.setRefreshCookie(w, res.RefreshToken, res.RefreshExpiresAt)
	httpx.WriteJSON(w, http.StatusOK, tokenResponse{
		AccessToken: res.AccessToken,
		ExpiresAt:   res.AccessExpiresAt,
		User:        toUserResponse(res.User),
	})
}

// handleLogout revokes the presented refresh token and clears the cookie.
// Always returns 204, even when the cookie is missing or dead.
func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := refreshTokenFromCookie(r)
	if err := h.svc.Logout(r.Context(), token); err != nil {
		httpx.WriteInternalError(w, "logout failed")
		return
	}
	h.clearRefreshCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) handleMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := httpx.GetClaims(r.Context())
	if !ok {
		httpx.WriteUnauthorized(w, "missing or invalid authorization")
		return
	}
	roles := claims.Roles
	if roles == nil {
		roles = []string{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"userId":   claims.UserID,
		"roles":    roles,
		"isMaster": claims.IsMaster,
	})
}

func (h *AuthHandler) setRefreshCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     "/api/v1/auth",
		Expires:  expiresAt,
		MaxAge:   int(time.Until(expiresAt).Seconds()),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthHandler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/api/v1/auth",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

func refreshTokenFromCookie(r *http.Request) string {
	c, err := r.Cookie(refreshCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}
