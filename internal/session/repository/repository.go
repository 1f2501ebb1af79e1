package repository

import (
	"context"
	"errors"
	"time"

	"erp-suite/backend/internal/session/domain"
)

// ErrNotActive is returned by Rotate when the record to revoke is already
// revoked or expired. Exactly one of several concurrent rotations of the same
// record sees nil; the rest see ErrNotActive.
var ErrNotActive = errors.New("refresh record is not active")

// Repository defines persistence for refresh-token records. The auth service
// is the only writer; no other component touches these rows. All writes are
// durable before the call returns.
type Repository interface {
	// Create persists a new active record.
	Create(ctx context.Context, rec *domain.RefreshRecord) error
	// FindActiveByUser returns the user's records that are neither revoked nor expired.
	FindActiveByUser(ctx context.Context, userID string) ([]*domain.RefreshRecord, error)
	// FindMatchingActive hashes rawToken and compares it against the user's
	// active records, returning the match or nil. Raw tokens are never stored
	// or compared directly.
	FindMatchingActive(ctx context.Context, userID, rawToken string) (*domain.RefreshRecord, error)
	// Revoke marks the record revoked if it is currently active. Reports
	// whether this call performed the revocation.
	Revoke(ctx context.Context, id string) (bool, error)
	// Rotate atomically revokes the record with oldID (iff still active) and
	// inserts successor. Returns ErrNotActive when another caller already
	// revoked it; the successor is not inserted in that case.
	Rotate(ctx context.Context, oldID string, successor *domain.RefreshRecord) error
	// RevokeAllByUser revokes every active record for the user.
	RevokeAllByUser(ctx context.Context, userID string) error
	// DeleteExpiredBefore removes records whose expiry is before cutoff.
	// Retention cleanup only; returns the number of rows removed.
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
