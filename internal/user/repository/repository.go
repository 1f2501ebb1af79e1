package repository

import (
	"context"

	"erp-suite/backend/internal/user/domain"
)

// Repository defines persistence for users. Role attachment is by role ID;
// loaded users carry role names.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// GetByEmail looks the user up by exact, case-sensitive email match.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
	Create(ctx context.Context, u *domain.User, roleIDs []string) error
	// Update persists the user's fields; a non-nil roleIDs replaces the role set.
	Update(ctx context.Context, u *domain.User, roleIDs []string) error
	Delete(ctx context.Context, id string) error
}
