package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"erp-suite/backend/internal/notification/domain"
)

var _ Repository = (*PostgresRepository)(nil)

// PostgresRepository persists notifications in the notifications table.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a notification repository backed by db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) CreateAll(ctx context.Context, notifications []*domain.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("create notifications: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, n := range notifications {
		if _, err := tx.ExecContext(ctx,
			`insert into notifications(id, user_id, task_id, message, created_at) values($1,$2,$3,$4,$5)`,
			n.ID, n.UserID, n.TaskID, n.Message, n.CreatedAt,
		); err != nil {
			return fmt.Errorf("create notification: %w", err)
		}
	}
	return tx.Commit()
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Notification, error) {
	rows, err := r.db.QueryContext(ctx,
		`select id, user_id, task_id, message, read_at, created_at
		   from notifications where user_id = $1 order by created_at desc`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []*domain.Notification
	for rows.Next() {
		var n domain.Notification
		var readAt sql.NullTime
		if err := rows.Scan(&n.ID, &n.UserID, &n.TaskID, &n.Message, &readAt, &n.CreatedAt); err != nil {
			return nil, err
		}
		if readAt.Valid {
			n.ReadAt = &readAt.Time
		}
		out = append(out, &n)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) UnreadCount(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`select count(*) from notifications where user_id = $1 and read_at is null`,
		userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("unread count: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) MarkRead(ctx context.Context, id, userID string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`update notifications set read_at = $3 where id = $1 and user_id = $2 and read_at is null`,
		id, userID, time.Now().UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("mark read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *PostgresRepository) MarkAllRead(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`update notifications set read_at = $2 where user_id = $1 and read_at is null`,
		userID, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("mark all read: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteByTask(ctx context.Context, taskID string) error {
	_, err := r.db.ExecContext(ctx,
		`delete from notifications where task_id = $1`, taskID,
	)
	if err != nil {
		return fmt.Errorf("delete notifications by task: %w", err)
	}
	return nil
}
