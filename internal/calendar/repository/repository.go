// Package repository persists calendars, tasks, and task assignments.
package repository

import (
	"context"
	"time"

	"erp-suite/backend/internal/calendar/domain"
)

// Repository is the calendar persistence interface.
type Repository interface {
	// GetOrCreateCalendar returns the owner's calendar, creating it on first use.
	GetOrCreateCalendar(ctx context.Context, ownerID string) (*domain.Calendar, error)
	CreateTask(ctx context.Context, t *domain.Task) error
	GetTask(ctx context.Context, id string) (*domain.Task, error)
	// ListTasksByUser returns tasks the user created or is assigned to,
	// optionally restricted to the day containing *day (UTC).
	ListTasksByUser(ctx context.Context, userID string, day *time.Time) ([]*domain.Task, error)
	UpdateTask(ctx context.Context, t *domain.Task) error
	DeleteTask(ctx context.Context, id string) error
	// AddAssignees attaches users to the task, ignoring duplicates.
	AddAssignees(ctx context.Context, taskID string, userIDs []string) error
}
