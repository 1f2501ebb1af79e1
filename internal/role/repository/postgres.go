package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"erp-suite/backend/internal/role/domain"
)

var _ Repository = (*PostgresRepository)(nil)

// PostgresRepository persists roles in the roles table.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a role repository backed by db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const roleColumns = `id, name, description, grants_dashboard, created_at`

// GetByID returns the role for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Role, error) {
	return r.getOne(ctx, `select `+roleColumns+` from roles where id = $1`, id)
}

// GetByName returns the role with the given name, or nil if not found.
func (r *PostgresRepository) GetByName(ctx context.Context, name string) (*domain.Role, error) {
	return r.getOne(ctx, `select `+roleColumns+` from roles where name = $1`, name)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*domain.Role, error) {
	row := r.db.QueryRowContext(ctx, query, arg)
	var role domain.Role
	var desc sql.NullString
	if err := row.Scan(&role.ID, &role.Name, &desc, &role.GrantsDashboard, &role.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get role: %w", err)
	}
	role.Description = desc.String
	return &role, nil
}

// List returns all roles ordered by name.
func (r *PostgresRepository) List(ctx context.Context) ([]*domain.Role, error) {
	rows, err := r.db.QueryContext(ctx, `select `+roleColumns+` from roles order by name asc`)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()

	var out []*domain.Role
	for rows.Next() {
		var role domain.Role
		var desc sql.NullString
		if err := rows.Scan(&role.ID, &role.Name, &desc, &role.GrantsDashboard, &role.CreatedAt); err != nil {
			return nil, err
		}
		role.Description = desc.String
		out = append(out, &role)
	}
	return out, rows.Err()
}

// ListDashboardRoleNames returns names of roles that grant dashboard access.
func (r *PostgresRepository) ListDashboardRoleNames(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `select name from roles where grants_dashboard`)
	if err != nil {
		return nil, fmt.Errorf("list dashboard roles: %w", err)
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

// Create persists the role. The role must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, role *domain.Role) error {
	_, err := r.db.ExecContext(ctx,
		`insert into roles(id, name, description, grants_dashboard, created_at) values($1,$2,$3,$4,$5)`,
		role.ID, role.Name, nullString(role.Description), role.GrantsDashboard, role.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create role: %w", err)
	}
	return nil
}

// Update persists name, description, and dashboard flag.
func (r *PostgresRepository) Update(ctx context.Context, role *domain.Role) error {
	_, err := r.db.ExecContext(ctx,
		`update roles set name = $2, description = $3, grants_dashboard = $4 where id = $1`,
		role.ID, role.Name, nullString(role.Description), role.GrantsDashboard,
	)
	if err != nil {
		return fmt.Errorf("update role: %w", err)
	}
	return nil
}

// Delete removes the role; user_roles rows cascade at the schema level.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `delete from roles where id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete role: %w", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
