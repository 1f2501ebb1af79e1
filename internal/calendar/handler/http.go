// Package handler exposes the /tasks endpoints.
package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"erp-suite/backend/internal/calendar/domain"
	"erp-suite/backend/internal/calendar/service"
	"erp-suite/backend/internal/server/httpx"
)

// CalendarHandler serves the task endpoints.
type CalendarHandler struct {
	svc *service.CalendarService
}

// NewCalendarHandler returns a CalendarHandler backed by the given service.
func NewCalendarHandler(svc *service.CalendarService) *CalendarHandler {
	return &CalendarHandler{svc: svc}
}

// Register mounts the task routes.
func (h *CalendarHandler) Register(r chi.Router) {
	r.Get("/tasks", h.handleList)
	r.Post("/tasks", h.handleCreate)
	r.Get("/tasks/{id}", h.handleGet)
	r.Put("/tasks/{id}", h.handleUpdate)
	r.Delete("/tasks/{id}", h.handleDelete)
	r.Post("/tasks/{id}/assignees", h.handleAddAssignees)
}

type taskBody struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Date        string   `json:"date"`
	Priority    string   `json:"priority"`
	Color       string   `json:"color"`
	Assignees   []string `json:"assignees"`
}

type taskView struct {
	ID          string    `json:"id"`
	CalendarID  string    `json:"calendarId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	Priority    string    `json:"priority"`
	Color       string    `json:"color"`
	CreatedBy   string    `json:"createdBy"`
	Assignees   []string  `json:"assignees"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toView(t *domain.Task) taskView {
	assignees := t.Assignees
	if assignees == nil {
		assignees = []string{}
	}
	return taskView{
		ID: t.ID, CalendarID: t.CalendarID, Title: t.Title, Description: t.Description,
		Date: t.Date, Priority: string(t.Priority), Color: t.Color, CreatedBy: t.CreatedBy,
		Assignees: assignees, CreatedAt: t.CreatedAt, UpdatedAt: t.UpdatedAt,
	}
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

func (h *CalendarHandler) handleList(w http.ResponseWriter, r *http.Request) {
	claims, ok := httpx.GetClaims(r.Context())
	if !ok {
		httpx.WriteUnauthorized(w, "missing or invalid authorization")
		return
	}
	var day *time.Time
	if s := r.URL.Query().Get("date"); s != "" {
		d, err := parseDate(s)
		if err != nil {
			httpx.WriteBadRequest(w, "invalid date filter")
			return
		}
		day = &d
	}
	tasks, err := h.svc.ListTasks(r.Context(), claims.UserID, day)
	if err != nil {
		httpx.WriteInternalError(w, "list tasks failed")
		return
	}
	views := make([]taskView, 0, len(tasks))
	for _, t := range tasks {
		views = append(views, toView(t))
	}
	httpx.WriteJSON(w, http.StatusOK, views)
}

func (h *CalendarHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	claims, ok := httpx.GetClaims(r.Context())
	if !ok {
		httpx.WriteUnauthorized(w, "missing or invalid authorization")
		return
	}
	var req taskBody
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteBadRequest(w, "invalid JSON body")
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, httpx.ErrCodeValidation, "invalid or missing date")
		return
	}
	task, err := h.svc.CreateTask(r.Context(), claims.UserID, service.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Date:        date,
		Priority:    domain.Priority(req.Priority),
		Color:       req.Color,
		Assignees:   req.Assignees,
	})
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, httpx.ErrCodeValidation, err.Error())
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toView(task))
}

func (h *CalendarHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	claims, ok := httpx.GetClaims(r.Context())
	if !ok {
		httpx.WriteUnauthorized(w, "missing or invalid authorization")
		return
	}
	task, err := h.svc.GetTask(r.Context(), claims.UserID, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, service.ErrTaskNotFound) {
			httpx.WriteNotFound(w, "task not found")
			return
		}
		httpx.WriteInternalError(w, "get task failed")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toView(task))
}

func (h *CalendarHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	claims, ok := httpx.GetClaims(r.Context())
	if !ok {
		httpx.WriteUnauthorized(w, "missing or invalid authorization")
		return
	}
	var req taskBody
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteBadRequest(w, "invalid JSON body")
		return
	}
	in := service.UpdateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    domain.Priority(req.Priority),
		Color:       req.Color,
	}
	if req.Date != "" {
		date, err := parseDate(req.Date)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, httpx.ErrCodeValidation, "invalid date")
			return
		}
		in.Date = date
	}
	task, err := h.svc.UpdateTask(r.Context(), claims.UserID, chi.URLParam(r, "id"), in)
	if err != nil {
		h.writeTaskError(w, err, "update task failed")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toView(task))
}

type assigneesBody struct {
	Assignees []string `json:"assignees"`
}

func (h *CalendarHandler) handleAddAssignees(w http.ResponseWriter, r *http.Request) {
	claims, ok := httpx.GetClaims(r.Context())
	if !ok {
		httpx.WriteUnauthorized(w, "missing or invalid authorization")
		return
	}
	var req assigneesBody
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteBadRequest(w, "invalid JSON body")
		return
	}
	task, err := h.svc.AddAssignees(r.Context(), claims.UserID, chi.URLParam(r, "id"), req.Assignees)
	if err != nil {
		h.writeTaskError(w, err, "add assignees failed")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toView(task))
}

func (h *CalendarHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	claims, ok := httpx.GetClaims(r.Context())
	if !ok {
		httpx.WriteUnauthorized(w, "missing or invalid authorization")
		return
	}
	if err := h.svc.DeleteTask(r.Context(), claims.UserID, chi.URLParam(r, "id")); err != nil {
		h.writeTaskError(w, err, "delete task failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CalendarHandler) writeTaskError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrTaskNotFound):
		httpx.WriteNotFound(w, "task not found")
	case errors.Is(err, service.ErrNotTaskOwner):
		httpx.WriteForbidden(w, "only the task creator can modify it")
	default:
		httpx.WriteError(w, http.StatusBadRequest, httpx.ErrCodeValidation, err.Error())
	}
}
