// Package repository persists notifications.
package repository

import (
	"context"

	"erp-suite/backend/internal/notification/domain"
)

// Repository is the notification persistence interface.
type Repository interface {
	CreateAll(ctx context.Context, notifications []*domain.Notification) error
	ListByUser(ctx context.Context, userID string) ([]*domain.Notification, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	// MarkRead marks one of the user's notifications read. Returns false when
	// the notification does not exist or belongs to someone else.
	MarkRead(ctx context.Context, id, userID string) (bool, error)
	MarkAllRead(ctx context.Context, userID string) error
	DeleteByTask(ctx context.Context, taskID string) error
}
