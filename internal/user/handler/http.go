// Package handler exposes master-only user management endpoints.
package handler

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"erp-suite/backend/internal/security"
	"erp-suite/backend/internal/server/httpx"
	userdomain "erp-suite/backend/internal/user/domain"
	userrepo "erp-suite/backend/internal/user/repository"
)

// SessionRevoker invalidates every active refresh session for a user.
type SessionRevoker interface {
	RevokeAllByUser(ctx context.Context, userID string) error
}

// UserHandler serves the /users endpoints.
type UserHandler struct {
	users    userrepo.Repository
	hasher   *security.Hasher
	sessions SessionRevoker
}

// NewUserHandler returns a UserHandler over the given repository and hasher.
// sessions may be nil; if set, password changes revoke the user's sessions.
func NewUserHandler(users userrepo.Repository, hasher *security.Hasher, sessions SessionRevoker) *UserHandler {
	return &UserHandler{users: users, hasher: hasher, sessions: sessions}
}

// Register mounts the user routes. The caller wraps them in the master gate.
func (h *UserHandler) Register(r chi.Router) {
	r.Get("/users", h.handleList)
	r.Post("/users", h.handleCreate)
	r.Get("/users/{id}", h.handleGet)
	r.Put("/users/{id}", h.handleUpdate)
	r.Delete("/users/{id}", h.handleDelete)
}

type userBody struct {
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Password string   `json:"password"`
	IsMaster *bool    `json:"isMaster"`
	RoleIDs  []string `json:"roleIds"`
}

type userView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	IsMaster  bool      `json:"isMaster"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toView(u *userdomain.User) userView {
	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}
	return userView{
		ID: u.ID, Name: u.Name, Email: u.Email, IsMaster: u.IsMaster,
		Roles: roles, CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt,
	}
}

func (h *UserHandler) handleList(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		httpx.WriteInternalError(w, "list users failed")
		return
	}
	views := make([]userView, 0, len(users))
	for _, u := range users {
		views = append(views, toView(u))
	}
	httpx.WriteJSON(w, http.StatusOK, views)
}

func (h *UserHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteInternalError(w, "get user failed")
		return
	}
	if u == nil {
		httpx.WriteNotFound(w, "user not found")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toView(u))
}

func (h *UserHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req userBody
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteBadRequest(w, "invalid JSON body")
		return
	}
	if req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, httpx.ErrCodeValidation, "password is required")
		return
	}
	existing, err := h.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		httpx.WriteInternalError(w, "create user failed")
		return
	}
	if existing != nil {
		httpx.WriteError(w, http.StatusConflict, httpx.ErrCodeConflict, "email already registered")
		return
	}
	hash, err := h.hasher.Hash([]byte(req.Password))
	if err != nil {
		httpx.WriteInternalError(w, "create user failed")
		return
	}
	now := time.Now().UTC()
	u := &userdomain.User{
		ID:           uuid.New().String(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		IsMaster:     req.IsMaster != nil && *req.IsMaster,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := u.Validate(); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, httpx.ErrCodeValidation, err.Error())
		return
	}
	if err := h.users.Create(r.Context(), u, req.RoleIDs); err != nil {
		httpx.WriteInternalError(w, "create user failed")
		return
	}
	created, err := h.users.GetByID(r.Context(), u.ID)
	if err != nil || created == nil {
		httpx.WriteJSON(w, http.StatusCreated, toView(u))
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toView(created))
}

func (h *UserHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req userBody
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteBadRequest(w, "invalid JSON body")
		return
	}
	u, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		httpx.WriteInternalError(w, "update user failed")
		return
	}
	if u == nil {
		httpx.WriteNotFound(w, "user not found")
		return
	}
	if req.Name != "" {
		u.Name = req.Name
	}
	if req.Email != "" && req.Email != u.Email {
		other, err := h.users.GetByEmail(r.Context(), req.Email)
		if err != nil {
			httpx.WriteInternalError(w, "update user failed")
			return
		}
		if other != nil {
			httpx.WriteError(w, http.StatusConflict, httpx.ErrCodeConflict, "email already registered")
			return
		}
		u.Email = req.Email
	}
	passwordChanged := false
	if req.Password != "" {
		hash, err := h.hasher.Hash([]byte(req.Password))
		if err != nil {
			httpx.WriteInternalError(w, "update user failed")
			return
		}
		u.PasswordHash = hash
		passwordChanged = true
	}
	if req.IsMaster != nil {
		u.IsMaster = *req.IsMaster
	}
	u.UpdatedAt = time.Now().UTC()
	if err := u.Validate(); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, httpx.ErrCodeValidation, err.Error())
		return
	}
	if err := h.users.Update(r.Context(), u, req.RoleIDs); err != nil {
		httpx.WriteInternalError(w, "update user failed")
		return
	}
	// A new password invalidates every outstanding refresh session.
	if passwordChanged && h.sessions != nil {
		if err := h.sessions.RevokeAllByUser(r.Context(), id); err != nil {
			log.Printf("users: revoke sessions after password change failed user_id=%s err=%v", id, err)
		}
	}
	updated, err := h.users.GetByID(r.Context(), id)
	if err != nil || updated == nil {
		httpx.WriteJSON(w, http.StatusOK, toView(u))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toView(updated))
}

func (h *UserHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	u, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		httpx.WriteInternalError(w, "delete user failed")
		return
	}
	if u == nil {
		httpx.WriteNotFound(w, "user not found")
		return
	}
	if err := h.users.Delete(r.Context(), id); err != nil {
		httpx.WriteInternalError(w, "delete user failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
