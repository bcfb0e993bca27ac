package postgres

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-login/internal/database"
)

// AuditRepository provides PostgreSQL-backed storage for the authentication
// audit log. The log is append-only: rows are never updated or deleted.
type AuditRepository struct {
	pool *Pool
}

// NewAuditRepository creates a new PostgreSQL audit repository.
func NewAuditRepository(pool *Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

// Append records one completed authentication attempt.
func (r *AuditRepository) Append(ctx context.Context, attempt database.AuthAttempt) error {
	query := `
		INSERT INTO auth_attempts (id, matched_user_id, success, confidence, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.pool.Exec(ctx, query,
		attempt.ID,
		attempt.MatchedUserID,
		attempt.Success,
		attempt.Confidence,
		attempt.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append auth attempt: %w", err)
	}
	return nil
}

// History returns attempts most-recent-first, bounded by the filter limit.
func (r *AuditRepository) History(ctx context.Context, filter database.HistoryFilter) ([]database.AuthAttempt, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = database.DefaultHistoryLimit
	}

	query := `
		SELECT id, matched_user_id, success, confidence, created_at
		FROM auth_attempts
	`
	args := []any{}
	if filter.UserID != "" {
		query += " WHERE matched_user_id = $1"
		args = append(args, filter.UserID)
	}
	query += fmt.Sprintf(" ORDER BY seq DESC LIMIT $%d", len(args)+1)
	args = append(args, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query auth attempts: %w", err)
	}
	defer rows.Close()

	var attempts []database.AuthAttempt
	for rows.Next() {
		var a database.AuthAttempt
		err := rows.Scan(&a.ID, &a.MatchedUserID, &a.Success, &a.Confidence, &a.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan auth attempt: %w", err)
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate auth attempts: %w", err)
	}

	return attempts, nil
}

// Count returns the total number of recorded attempts.
func (r *AuditRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM auth_attempts").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count auth attempts: %w", err)
	}
	return count, nil
}
