// Package handler exposes the /roles endpoints. Listing is open to any
// authenticated user; mutations are wrapped in the master gate by the router.
package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	roledomain "erp-suite/backend/internal/role/domain"
	rolerepo "erp-suite/backend/internal/role/repository"
	"erp-suite/backend/internal/server/httpx"
)

// RoleHandler serves the /roles endpoints.
type RoleHandler struct {
	roles rolerepo.Repository
}

// NewRoleHandler returns a RoleHandler over the given repository.
func NewRoleHandler(roles rolerepo.Repository) *RoleHandler {
	return &RoleHandler{roles: roles}
}

// RegisterRead mounts the read-only role routes.
func (h *RoleHandler) RegisterRead(r chi.Router) {
	r.Get("/roles", h.handleList)
	r.Get("/roles/{id}", h.handleGet)
}

// RegisterWrite mounts the mutating role routes.
func (h *RoleHandler) RegisterWrite(r chi.Router) {
	r.Post("/roles", h.handleCreate)
	r.Put("/roles/{id}", h.handleUpdate)
	r.Delete("/roles/{id}", h.handleDelete)
}

type roleBody struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	GrantsDashboard bool   `json:"grantsDashboard"`
}

type roleView struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	GrantsDashboard bool      `json:"grantsDashboard"`
	CreatedAt       time.Time `json:"createdAt"`
}

func toView(role *roledomain.Role) roleView {
	return roleView{
		ID: role.ID, Name: role.Name, Description: role.Description,
		GrantsDashboard: role.GrantsDashboard, CreatedAt: role.CreatedAt,
	}
}

func (h *RoleHandler) handleList(w http.ResponseWriter, r *http.Request) {
	roles, err := h.roles.List(r.Context())
	if err != nil {
		httpx.WriteInternalError(w, "list roles failed")
		return
	}
	views := make([]roleView, 0, len(roles))
	for _, role := range roles {
		views = append(views, toView(role))
	}
	httpx.WriteJSON(w, http.StatusOK, views)
}

func (h *RoleHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	role, err := h.roles.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteInternalError(w, "get role failed")
		return
	}
	if role == nil {
		httpx.WriteNotFound(w, "role not found")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toView(role))
}

func (h *RoleHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req roleBody
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteBadRequest(w, "invalid JSON body")
		return
	}
	existing, err := h.roles.GetByName(r.Context(), req.Name)
	if err != nil {
		httpx.WriteInternalError(w, "create role failed")
		return
	}
	if existing != nil {
		httpx.WriteError(w, http.StatusConflict, httpx.ErrCodeConflict, "role name already exists")
		return
	}
	role := &roledomain.Role{
		ID:              uuid.New().String(),
		Name:            req.Name,
		Description:     req.Description,
		GrantsDashboard: req.GrantsDashboard,
		CreatedAt:       time.Now().UTC(),
	}
	if err := role.Validate(); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, httpx.ErrCodeValidation, err.Error())
		return
	}
	if err := h.roles.Create(r.Context(), role); err != nil {
		httpx.WriteInternalError(w, "create role failed")
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toView(role))
}

func (h *RoleHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req roleBody
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteBadRequest(w, "invalid JSON body")
		return
	}
	role, err := h.roles.GetByID(r.Context(), id)
	if err != nil {
		httpx.WriteInternalError(w, "update role failed")
		return
	}
	if role == nil {
		httpx.WriteNotFound(w, "role not found")
		return
	}
	if req.Name != "" && req.Name != role.Name {
		other, err := h.roles.GetByName(r.Context(), req.Name)
		if err != nil {
			httpx.WriteInternalError(w, "update role failed")
			return
		}
		if other != nil {
			httpx.WriteError(w, http.StatusConflict, httpx.ErrCodeConflict, "role name already exists")
			return
		}
		role.Name = req.Name
	}
	role.Description = req.Description
	role.GrantsDashboard = req.GrantsDashboard
	if err := role.Validate(); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, httpx.ErrCodeValidation, err.Error())
		return
	}
	if err := h.roles.Update(r.Context(), role); err != nil {
		httpx.WriteInternalError(w, "update role failed")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toView(role))
}

func (h *RoleHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	role, err := h.roles.GetByID(r.Context(), id)
	if err != nil {
		httpx.WriteInternalError(w, "delete role failed")
		return
	}
	if role == nil {
		httpx.WriteNotFound(w, "role not found")
		return
	}
	if err := h.roles.Delete(r.Context(), id); err != nil {
		httpx.WriteInternalError(w, "delete role failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
