package domain

import (
	"errors"
	"time"
)

// Role is a named permission group. GrantsDashboard feeds the dynamic
// dashboard-access rule; users hold roles through the user_roles join table.
type Role struct {
	ID              string
	Name            string
	Description     string
	GrantsDashboard bool
	CreatedAt       time.Time
}

// Validate validates the role for persistence.
func (r *Role) Validate() error {
	if r.Name == "" {
		return errors.New("name is required")
	}
	return nil
}
