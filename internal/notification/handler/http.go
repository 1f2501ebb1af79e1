// Package handler exposes the /notifications endpoints. Users only ever see
// their own notifications.
package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"erp-suite/backend/internal/notification/domain"
	notificationrepo "erp-suite/backend/internal/notification/repository"
	"erp-suite/backend/internal/server/httpx"
)

// NotificationHandler serves the notification endpoints.
type NotificationHandler struct {
	notifications notificationrepo.Repository
}

// NewNotificationHandler returns a NotificationHandler over the given repository.
func NewNotificationHandler(notifications notificationrepo.Repository) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// Register mounts the notification routes.
func (h *NotificationHandler) Register(r chi.Router) {
	r.Get("/notifications", h.handleList)
	r.Get("/notifications/unread-count", h.handleUnreadCount)
	r.Post("/notifications/{id}/read", h.handleMarkRead)
	r.Post("/notifications/read-all", h.handleMarkAllRead)
}

type notificationView struct {
	ID        string     `json:"id"`
	TaskID    string     `json:"taskId,omitempty"`
	Message   string     `json:"message"`
	Read      bool       `json:"read"`
	ReadAt    *time.Time `json:"readAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

func toView(n *domain.Notification) notificationView {
	return notificationView{
		ID: n.ID, TaskID: n.TaskID, Message: n.Message,
		Read: n.Read(), ReadAt: n.ReadAt, CreatedAt: n.CreatedAt,
	}
}

func (h *NotificationHandler) handleList(w http.ResponseWriter, r *http.Request) {
	claims, ok := httpx.GetClaims(r.Context())
	if !ok {
		httpx.WriteUnauthorized(w, "missing or invalid authorization")
		return
	}
	notifications, err := h.notifications.ListByUser(r.Context(), claims.UserID)
	if err != nil {
		httpx.WriteInternalError(w, "list notifications failed")
		return
	}
	views := make([]notificationView, 0, len(notifications))
	for _, n := range notifications {
		views = append(views, toView(n))
	}
	httpx.WriteJSON(w, http.StatusOK, views)
}

func (h *NotificationHandler) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	claims, ok := httpx.GetClaims(r.Context())
	if !ok {
		httpx.WriteUnauthorized(w, "missing or invalid authorization")
		return
	}
	count, err := h.notifications.UnreadCount(r.Context(), claims.UserID)
	if err != nil {
		httpx.WriteInternalError(w, "unread count failed")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]int{"count": count})
}

func (h *NotificationHandler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	claims, ok := httpx.GetClaims(r.Context())
	if !ok {
		httpx.WriteUnauthorized(w, "missing or invalid authorization")
		return
	}
	updated, err := h.notifications.MarkRead(r.Context(), chi.URLParam(r, "id"), claims.UserID)
	if err != nil {
		httpx.WriteInternalError(w, "mark read failed")
		return
	}
	if !updated {
		httpx.WriteNotFound(w, "notification not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *NotificationHandler) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	claims, ok := httpx.GetClaims(r.Context())
	if !ok {
		httpx.WriteUnauthorized(w, "missing or invalid authorization")
		return
	}
	if err := h.notifications.MarkAllRead(r.Context(), claims.UserID); err != nil {
		httpx.WriteInternalError(w, "mark all read failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
