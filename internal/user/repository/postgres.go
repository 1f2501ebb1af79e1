package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"erp-suite/backend/internal/user/domain"
)

var _ Repository = (*PostgresRepository)(nil)

// PostgresRepository persists users in the users and user_roles tables.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a user repository backed by db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, name, email, password_hash, is_master, created_at, updated_at`

// GetByID returns the user for id with role names loaded, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getOne(ctx, `select `+userColumns+` from users where id = $1`, id)
}

// GetByEmail returns the user with the exact email, or nil if not found.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, `select `+userColumns+` from users where email = $1`, email)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, query, arg)
	var u domain.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.IsMaster, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	roles, err := r.roleNames(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	u.Roles = roles
	return &u, nil
}

func (r *PostgresRepository) roleNames(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`select r.name from roles r join user_roles ur on ur.role_id = r.id where ur.user_id = $1 order by r.name`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("load user roles: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// List returns all users with role names loaded, ordered by creation time.
func (r *PostgresRepository) List(ctx context.Context) ([]*domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `select `+userColumns+` from users order by created_at asc`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []*domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.IsMaster, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, u := range out {
		roles, err := r.roleNames(ctx, u.ID)
		if err != nil {
			return nil, err
		}
		u.Roles = roles
	}
	return out, nil
}

// Create persists the user and attaches the given roles in one transaction.
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User, roleIDs []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`insert into users(id, name, email, password_hash, is_master, created_at, updated_at) values($1,$2,$3,$4,$5,$6,$7)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.IsMaster, u.CreatedAt, u.UpdatedAt,
	); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	for _, roleID := range roleIDs {
		if _, err := tx.ExecContext(ctx,
			`insert into user_roles(user_id, role_id) values($1,$2)`, u.ID, roleID,
		); err != nil {
			return fmt.Errorf("attach role: %w", err)
		}
	}
	return tx.Commit()
}

// Update persists the user's fields. A non-nil roleIDs replaces the role set;
// nil leaves roles untouched.
func (r *PostgresRepository) Update(ctx context.Context, u *domain.User, roleIDs []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`update users set name = $2, email = $3, password_hash = $4, is_master = $5, updated_at = $6 where id = $1`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.IsMaster, u.UpdatedAt,
	); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if roleIDs != nil {
		if _, err := tx.ExecContext(ctx, `delete from user_roles where user_id = $1`, u.ID); err != nil {
			return fmt.Errorf("reset roles: %w", err)
		}
		for _, roleID := range roleIDs {
			if _, err := tx.ExecContext(ctx,
				`insert into user_roles(user_id, role_id) values($1,$2)`, u.ID, roleID,
			); err != nil {
				return fmt.Errorf("attach role: %w", err)
			}
		}
	}
	return tx.Commit()
}

// Delete removes the user; user_roles and refresh_tokens cascade at the schema level.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `delete from users where id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}
