package domain

import "time"

// RefreshRecord is one element of a refresh-token lineage. It stores only the
// SHA-256 hash of the token; the raw token is never persisted. The record is
// mutated exactly once, to set RevokedAt, and is deleted only by retention
// cleanup.
type RefreshRecord struct {
	ID        string
	UserID    string
	TokenHash string
	IssuedAt  time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time // nil while the record is still usable
}

// Active reports whether the record can still match a presented refresh token:
// not revoked and not past its expiry at the given instant.
func (r *RefreshRecord) Active(now time.Time) bool {
	return r.RevokedAt == nil && now.Before(r.ExpiresAt)
}
