// Package handler exposes the dashboard summary endpoint. Access is decided
// dynamically: masters always pass, everyone else needs at least one role
// whose grantsDashboard flag is set.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"erp-suite/backend/internal/authz"
	calendardomain "erp-suite/backend/internal/calendar/domain"
	"erp-suite/backend/internal/server/httpx"
)

// DashboardRoleSource lists the role names that currently grant dashboard access.
type DashboardRoleSource interface {
	ListDashboardRoleNames(ctx context.Context) ([]string, error)
}

// TaskSource lists a user's tasks, optionally filtered to one day.
type TaskSource interface {
	ListTasksByUser(ctx context.Context, userID string, day *time.Time) ([]*calendardomain.Task, error)
}

// NotificationSource reports a user's unread notification count.
type NotificationSource interface {
	UnreadCount(ctx context.Context, userID string) (int, error)
}

// DashboardHandler serves GET /dashboard.
type DashboardHandler struct {
	roles         DashboardRoleSource
	tasks         TaskSource
	notifications NotificationSource
}

// NewDashboardHandler returns a DashboardHandler over the given sources.
func NewDashboardHandler(roles DashboardRoleSource, tasks TaskSource, notifications NotificationSource) *DashboardHandler {
	return &DashboardHandler{roles: roles, tasks: tasks, notifications: notifications}
}

// Register mounts the dashboard route.
func (h *DashboardHandler) Register(r chi.Router) {
	r.Get("/dashboard", h.handleSummary)
}

type summary struct {
	UserID              string `json:"userId"`
	TasksToday          int    `json:"tasksToday"`
	UnreadNotifications int    `json:"unreadNotifications"`
}

func (h *DashboardHandler) handleSummary(w http.ResponseWriter, r *http.Request) {
	claims, ok := httpx.GetClaims(r.Context())
	if !ok {
		httpx.WriteUnauthorized(w, "missing or invalid authorization")
		return
	}
	granting, err := h.roles.ListDashboardRoleNames(r.Context())
	if err != nil {
		httpx.WriteInternalError(w, "dashboard failed")
		return
	}
	if !authz.Allowed(claims, granting) {
		httpx.WriteForbidden(w, "insufficient permissions")
		return
	}
	today := time.Now().UTC().Truncate(24 * time.Hour)
	tasks, err := h.tasks.ListTasksByUser(r.Context(), claims.UserID, &today)
	if err != nil {
		httpx.WriteInternalError(w, "dashboard failed")
		return
	}
	unread, err := h.notifications.UnreadCount(r.Context(), claims.UserID)
	if err != nil {
		httpx.WriteInternalError(w, "dashboard failed")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, summary{
		UserID:              claims.UserID,
		TasksToday:          len(tasks),
		UnreadNotifications: unread,
	})
}
