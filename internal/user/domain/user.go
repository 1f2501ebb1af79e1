package domain

import (
	"errors"
	"time"
)

// User is the core identity entity. Roles hold role names (a set: membership
// unique, order irrelevant); IsMaster bypasses role checks entirely.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	IsMaster     bool
	Roles        []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.Email == "" {
		return errors.New("email is required")
	}
	if u.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

// HasRole reports whether the user holds the named role.
func (u *User) HasRole(name string) bool {
	for _, r := range u.Roles {
		if r == name {
			return true
		}
	}
	return false
}
