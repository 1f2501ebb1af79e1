package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"erp-suite/backend/internal/security"
	"erp-suite/backend/internal/session/domain"
)

var _ Repository = (*PostgresRepository)(nil)

// PostgresRepository persists refresh records in the refresh_tokens table.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a refresh-record repository backed by db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the record. The record must have ID, UserID, and TokenHash set.
func (r *PostgresRepository) Create(ctx context.Context, rec *domain.RefreshRecord) error {
	_, err := r.db.ExecContext(ctx,
		`insert into refresh_tokens(id, user_id, token_hash, issued_at, expires_at) values($1,$2,$3,$4,$5)`,
		rec.ID, rec.UserID, rec.TokenHash, rec.IssuedAt, rec.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("create refresh record: %w", err)
	}
	return nil
}

// FindActiveByUser returns the user's non-revoked, non-expired records.
func (r *PostgresRepository) FindActiveByUser(ctx context.Context, userID string) ([]*domain.RefreshRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`select id, user_id, token_hash, issued_at, expires_at, revoked_at
		   from refresh_tokens
		  where user_id = $1 and revoked_at is null and expires_at > $2`,
		userID, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("find active refresh records: %w", err)
	}
	defer rows.Close()

	var out []*domain.RefreshRecord
	for rows.Next() {
		var rec domain.RefreshRecord
		var revokedAt sql.NullTime
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.TokenHash, &rec.IssuedAt, &rec.ExpiresAt, &revokedAt); err != nil {
			return nil, err
		}
		if revokedAt.Valid {
			rec.RevokedAt = &revokedAt.Time
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}

// FindMatchingActive compares the presented token's hash against the user's
// active records sequentially, in constant time per candidate. Returns nil
// when nothing matches; the caller decides what that means.
func (r *PostgresRepository) FindMatchingActive(ctx context.Context, userID, rawToken string) (*domain.RefreshRecord, error) {
	records, err := r.FindActiveByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if security.RefreshTokenHashEqual(rawToken, rec.TokenHash) {
			return rec, nil
		}
	}
	return nil, nil
}

// Revoke marks the record revoked iff it is still active. The conditional
// update makes concurrent revocations linearizable: exactly one caller
// observes true.
func (r *PostgresRepository) Revoke(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`update refresh_tokens set revoked_at = $2 where id = $1 and revoked_at is null and expires_at > $2`,
		id, time.Now().UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("revoke refresh record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Rotate revokes oldID and inserts successor in one transaction. The revoke is
// conditional on the record still being active, so of N concurrent rotations
// presenting the same token exactly one commits; the rest get ErrNotActive.
// A crash between the two statements rolls back the revoke as well, and a
// crash after commit leaves the lineage revoked (fail closed).
func (r *PostgresRepository) Rotate(ctx context.Context, oldID string, successor *domain.RefreshRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("rotate refresh record: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		`update refresh_tokens set revoked_at = $2 where id = $1 and revoked_at is null and expires_at > $2`,
		oldID, now,
	)
	if err != nil {
		return fmt.Errorf("rotate refresh record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotActive
	}

	if _, err := tx.ExecContext(ctx,
		`insert into refresh_tokens(id, user_id, token_hash, issued_at, expires_at) values($1,$2,$3,$4,$5)`,
		successor.ID, successor.UserID, successor.TokenHash, successor.IssuedAt, successor.ExpiresAt,
	); err != nil {
		return fmt.Errorf("rotate refresh record: %w", err)
	}

	return tx.Commit()
}

// RevokeAllByUser revokes every active record for the user.
func (r *PostgresRepository) RevokeAllByUser(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`update refresh_tokens set revoked_at = $2 where user_id = $1 and revoked_at is null`,
		userID, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("revoke all refresh records: %w", err)
	}
	return nil
}

// DeleteExpiredBefore removes records that expired before cutoff.
func (r *PostgresRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`delete from refresh_tokens where expires_at < $1`, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("delete expired refresh records: %w", err)
	}
	return res.RowsAffected()
}
