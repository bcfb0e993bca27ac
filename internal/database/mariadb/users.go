package mariadb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kozaktomas/face-login/internal/database"
	"github.com/kozaktomas/face-login/internal/facematch"
)

// UserRepository reads the external directory's users table. It implements
// database.UserReader.
type UserRepository struct {
	pool *Pool
}

// NewUserRepository creates a read-only user repository.
func NewUserRepository(pool *Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// GetByID retrieves a user by ID, returns nil if not found.
func (r *UserRepository) GetByID(ctx context.Context, userID string) (*database.User, error) {
	query := `
		SELECT id, name, email, active, created_at
		FROM users
		WHERE id = ?
	`

	var u database.User
	err := r.pool.db.QueryRowContext(ctx, query, userID).Scan(
		&u.ID, &u.Name, &u.Email, &u.Active, &u.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &u, nil
}

// GetByName retrieves a user by display name, returns nil if not found.
// Names are normalized before comparison (lowercase, no diacritics, dashes
// to spaces), so "jan-novak" matches "Jan Novák". MariaDB collations vary in
// accent sensitivity, so normalization happens in Go over the full user list.
func (r *UserRepository) GetByName(ctx context.Context, name string) (*database.User, error) {
	normalized := facematch.NormalizeUserName(name)

	users, err := r.listAll(ctx)
	if err != nil {
		return nil, err
	}

	for i := range users {
		if facematch.NormalizeUserName(users[i].Name) == normalized {
			return &users[i], nil
		}
	}
	return nil, nil
}

// ListActive returns all active users.
func (r *UserRepository) ListActive(ctx context.Context) ([]database.User, error) {
	query := `
		SELECT id, name, email, active, created_at
		FROM users
		WHERE active = 1
		ORDER BY name
	`

	rows, err := r.pool.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query active users: %w", err)
	}
	defer rows.Close()

	return scanUsers(rows)
}

func (r *UserRepository) listAll(ctx context.Context) ([]database.User, error) {
	rows, err := r.pool.db.QueryContext(ctx, "SELECT id, name, email, active, created_at FROM users ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	return scanUsers(rows)
}

func scanUsers(rows *sql.Rows) ([]database.User, error) {
	var users []database.User
	for rows.Next() {
		var u database.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Active, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}
