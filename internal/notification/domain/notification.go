// Package domain holds the per-user notification entity.
package domain

import "time"

// Notification is a message delivered to one user, usually about a task.
type Notification struct {
	ID        string
	UserID    string
	TaskID    string
	Message   string
	ReadAt    *time.Time
	CreatedAt time.Time
}

// Read reports whether the notification has been marked read.
func (n *Notification) Read() bool { return n.ReadAt != nil }
