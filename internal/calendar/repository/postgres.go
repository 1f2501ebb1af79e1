package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"erp-suite/backend/internal/calendar/domain"
)

var _ Repository = (*PostgresRepository)(nil)

// PostgresRepository persists calendars in the calendars table, tasks in the
// tasks table, and assignments in task_users.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a calendar repository backed by db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetOrCreateCalendar(ctx context.Context, ownerID string) (*domain.Calendar, error) {
	var cal domain.Calendar
	err := r.db.QueryRowContext(ctx,
		`select id, owner_id, name, created_at from calendars where owner_id = $1`,
		ownerID,
	).Scan(&cal.ID, &cal.OwnerID, &cal.Name, &cal.CreatedAt)
	if err == nil {
		return &cal, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("get calendar: %w", err)
	}
	cal = domain.Calendar{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Name:      "default",
		CreatedAt: time.Now().UTC(),
	}
	// on conflict do nothing + re-select handles a concurrent first use.
	if _, err := r.db.ExecContext(ctx,
		`insert into calendars(id, owner_id, name, created_at) values($1,$2,$3,$4)
		 on conflict (owner_id) do nothing`,
		cal.ID, cal.OwnerID, cal.Name, cal.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("create calendar: %w", err)
	}
	err = r.db.QueryRowContext(ctx,
		`select id, owner_id, name, created_at from calendars where owner_id = $1`,
		ownerID,
	).Scan(&cal.ID, &cal.OwnerID, &cal.Name, &cal.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get calendar: %w", err)
	}
	return &cal, nil
}

func (r *PostgresRepository) CreateTask(ctx context.Context, t *domain.Task) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`insert into tasks(id, calendar_id, title, description, date, priority, color, created_by, created_at, updated_at)
		 values($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		t.ID, t.CalendarID, t.Title, t.Description, t.Date, string(t.Priority), t.Color, t.CreatedBy, t.CreatedAt, t.UpdatedAt,
	); err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	for _, userID := range t.Assignees {
		if _, err := tx.ExecContext(ctx,
			`insert into task_users(task_id, user_id) values($1,$2) on conflict do nothing`,
			t.ID, userID,
		); err != nil {
			return fmt.Errorf("create task assignment: %w", err)
		}
	}
	return tx.Commit()
}

func (r *PostgresRepository) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	var t domain.Task
	var priority string
	err := r.db.QueryRowContext(ctx,
		`select id, calendar_id, title, description, date, priority, color, created_by, created_at, updated_at
		   from tasks where id = $1`,
		id,
	).Scan(&t.ID, &t.CalendarID, &t.Title, &t.Description, &t.Date, &priority, &t.Color, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	t.Priority = domain.Priority(priority)
	assignees, err := r.loadAssignees(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	t.Assignees = assignees
	return &t, nil
}

func (r *PostgresRepository) ListTasksByUser(ctx context.Context, userID string, day *time.Time) ([]*domain.Task, error) {
	query := `select distinct t.id, t.calendar_id, t.title, t.description, t.date, t.priority, t.color, t.created_by, t.created_at, t.updated_at
	   from tasks t
	   left join task_users tu on tu.task_id = t.id
	  where (t.created_by = $1 or tu.user_id = $1)`
	args := []any{userID}
	if day != nil {
		dayStart := day.UTC().Truncate(24 * time.Hour)
		query += ` and t.date >= $2 and t.date < $3`
		args = append(args, dayStart, dayStart.Add(24*time.Hour))
	}
	query += ` order by t.date, t.id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var out []*domain.Task
	for rows.Next() {
		var t domain.Task
		var priority string
		if err := rows.Scan(&t.ID, &t.CalendarID, &t.Title, &t.Description, &t.Date, &priority, &t.Color, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		t.Priority = domain.Priority(priority)
		out = append(out, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, t := range out {
		assignees, err := r.loadAssignees(ctx, t.ID)
		if err != nil {
			return nil, err
		}
		t.Assignees = assignees
	}
	return out, nil
}

func (r *PostgresRepository) UpdateTask(ctx context.Context, t *domain.Task) error {
	_, err := r.db.ExecContext(ctx,
		`update tasks set title = $2, description = $3, date = $4, priority = $5, color = $6, updated_at = $7
		  where id = $1`,
		t.ID, t.Title, t.Description, t.Date, string(t.Priority), t.Color, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}

// DeleteTask removes the task; task_users rows cascade via FK, and the service
// removes the task's notifications.
func (r *PostgresRepository) DeleteTask(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `delete from tasks where id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

func (r *PostgresRepository) AddAssignees(ctx context.Context, taskID string, userIDs []string) error {
	for _, userID := range userIDs {
		if _, err := r.db.ExecContext(ctx,
			`insert into task_users(task_id, user_id) values($1,$2) on conflict do nothing`,
			taskID, userID,
		); err != nil {
			return fmt.Errorf("add assignee: %w", err)
		}
	}
	return nil
}

func (r *PostgresRepository) loadAssignees(ctx context.Context, taskID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`select user_id from task_users where task_id = $1 order by user_id`, taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("load assignees: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
