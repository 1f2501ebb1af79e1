// Package domain holds the calendar entities: per-owner calendars and the
// tasks scheduled on them.
package domain

import (
	"errors"
	"time"
)

// Priority orders tasks by urgency.
type Priority string

const (
	PriorityLow      Priority = "LOW"
	PriorityMedium   Priority = "MEDIUM"
	PriorityHigh     Priority = "HIGH"
	PriorityCritical Priority = "CRITICAL"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Calendar groups a user's tasks. Each user owns exactly one.
type Calendar struct {
	ID        string
	OwnerID   string
	Name      string
	CreatedAt time.Time
}

// Task is a scheduled item on a calendar, optionally shared with assignees.
type Task struct {
	ID          string
	CalendarID  string
	Title       string
	Description string
	Date        time.Time
	Priority    Priority
	Color       string
	CreatedBy   string
	Assignees   []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate checks the task fields.
func (t *Task) Validate() error {
	if t.ID == "" {
		return errors.New("task id is required")
	}
	if t.CalendarID == "" {
		return errors.New("calendar id is required")
	}
	if t.Title == "" {
		return errors.New("title is required")
	}
	if t.Date.IsZero() {
		return errors.New("date is required")
	}
	if !t.Priority.Valid() {
		return errors.New("priority must be LOW, MEDIUM, HIGH, or CRITICAL")
	}
	return nil
}
