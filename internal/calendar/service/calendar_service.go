// Package service implements task management with notification fanout:
// creating a task or adding assignees notifies every assignee except the actor.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"erp-suite/backend/internal/calendar/domain"
	notificationdomain "erp-suite/backend/internal/notification/domain"
)

// Sentinel errors for the calendar service.
var (
	ErrTaskNotFound = errors.New("task not found")
	ErrNotTaskOwner = errors.New("only the task creator can modify it")
)

// CalendarRepo is the calendar persistence needed by the service.
type CalendarRepo interface {
	GetOrCreateCalendar(ctx context.Context, ownerID string) (*domain.Calendar, error)
	CreateTask(ctx context.Context, t *domain.Task) error
	GetTask(ctx context.Context, id string) (*domain.Task, error)
	ListTasksByUser(ctx context.Context, userID string, day *time.Time) ([]*domain.Task, error)
	UpdateTask(ctx context.Context, t *domain.Task) error
	DeleteTask(ctx context.Context, id string) error
	AddAssignees(ctx context.Context, taskID string, userIDs []string) error
}

// NotificationRepo is the notification persistence needed by the service.
type NotificationRepo interface {
	CreateAll(ctx context.Context, notifications []*notificationdomain.Notification) error
	DeleteByTask(ctx context.Context, taskID string) error
}

// CalendarService manages calendars and tasks.
type CalendarService struct {
	calendars     CalendarRepo
	notifications NotificationRepo
}

// NewCalendarService returns a CalendarService over the given repositories.
func NewCalendarService(calendars CalendarRepo, notifications NotificationRepo) *CalendarService {
	return &CalendarService{calendars: calendars, notifications: notifications}
}

// CreateTaskInput carries the fields for a new task.
type CreateTaskInput struct {
	Title       string
	Description string
	Date        time.Time
	Priority    domain.Priority
	Color       string
	Assignees   []string
}

// CreateTask schedules a task on the actor's calendar and notifies the
// assignees other than the actor.
func (s *CalendarService) CreateTask(ctx context.Context, actorID string, in CreateTaskInput) (*domain.Task, error) {
	cal, err := s.calendars.GetOrCreateCalendar(ctx, actorID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	t := &domain.Task{
		ID:          uuid.New().String(),
		CalendarID:  cal.ID,
		Title:       in.Title,
		Description: in.Description,
		Date:        in.Date,
		Priority:    in.Priority,
		Color:       in.Color,
		CreatedBy:   actorID,
		Assignees:   dedupe(in.Assignees),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if t.Priority == "" {
		t.Priority = domain.PriorityMedium
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if err := s.calendars.CreateTask(ctx, t); err != nil {
		return nil, err
	}
	if err := s.notifyAssignees(ctx, t, actorID, t.Assignees); err != nil {
		return nil, err
	}
	return t, nil
}

// ListTasks returns the actor's tasks, optionally restricted to one day.
func (s *CalendarService) ListTasks(ctx context.Context, actorID string, day *time.Time) ([]*domain.Task, error) {
	return s.calendars.ListTasksByUser(ctx, actorID, day)
}

// GetTask returns the task if the actor created it or is assigned to it.
func (s *CalendarService) GetTask(ctx context.Context, actorID, taskID string) (*domain.Task, error) {
	t, err := s.calendars.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if t == nil || !visibleTo(t, actorID) {
		return nil, ErrTaskNotFound
	}
	return t, nil
}

// UpdateTaskInput carries the updatable task fields.
type UpdateTaskInput struct {
	Title       string
	Description string
	Date        time.Time
	Priority    domain.Priority
	Color       string
}

// UpdateTask updates a task the actor created.
func (s *CalendarService) UpdateTask(ctx context.Context, actorID, taskID string, in UpdateTaskInput) (*domain.Task, error) {
	t, err := s.calendars.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrTaskNotFound
	}
	if t.CreatedBy != actorID {
		return nil, ErrNotTaskOwner
	}
	if in.Title != "" {
		t.Title = in.Title
	}
	if in.Description != "" {
		t.Description = in.Description
	}
	if !in.Date.IsZero() {
		t.Date = in.Date
	}
	if in.Priority != "" {
		t.Priority = in.Priority
	}
	if in.Color != "" {
		t.Color = in.Color
	}
	t.UpdatedAt = time.Now().UTC()
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if err := s.calendars.UpdateTask(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// AddAssignees attaches users to a task the actor created and notifies the
// newly added assignees other than the actor.
func (s *CalendarService) AddAssignees(ctx context.Context, actorID, taskID string, userIDs []string) (*domain.Task, error) {
	t, err := s.calendars.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrTaskNotFound
	}
	if t.CreatedBy != actorID {
		return nil, ErrNotTaskOwner
	}
	added := missing(dedupe(userIDs), t.Assignees)
	if len(added) == 0 {
		return t, nil
	}
	if err := s.calendars.AddAssignees(ctx, taskID, added); err != nil {
		return nil, err
	}
	t.Assignees = append(t.Assignees, added...)
	if err := s.notifyAssignees(ctx, t, actorID, added); err != nil {
		return nil, err
	}
	return t, nil
}

// DeleteTask removes a task the actor created, along with its notifications.
func (s *CalendarService) DeleteTask(ctx context.Context, actorID, taskID string) error {
	t, err := s.calendars.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	if t == nil {
		return ErrTaskNotFound
	}
	if t.CreatedBy != actorID {
		return ErrNotTaskOwner
	}
	if err := s.notifications.DeleteByTask(ctx, taskID); err != nil {
		return err
	}
	return s.calendars.DeleteTask(ctx, taskID)
}

func (s *CalendarService) notifyAssignees(ctx context.Context, t *domain.Task, actorID string, userIDs []string) error {
	now := time.Now().UTC()
	var out []*notificationdomain.Notification
	for _, userID := range userIDs {
		if userID == actorID {
			continue
		}
		out = append(out, &notificationdomain.Notification{
			ID:        uuid.New().String(),
			UserID:    userID,
			TaskID:    t.ID,
			Message:   fmt.Sprintf("You were assigned to task %q", t.Title),
			CreatedAt: now,
		})
	}
	return s.notifications.CreateAll(ctx, out)
}

func visibleTo(t *domain.Task, userID string) bool {
	if t.CreatedBy == userID {
		return true
	}
	for _, a := range t.Assignees {
		if a == userID {
			return true
		}
	}
	return false
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	var out []string
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func missing(candidates, existing []string) []string {
	have := make(map[string]bool, len(existing))
	for _, id := range existing {
		have[id] = true
	}
	var out []string
	for _, id := range candidates {
		if !have[id] {
			out = append(out, id)
		}
	}
	return out
}
