package postgres

import (
	"context"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"

	"github.com/janis-gruettmueller/lightweight-erp-system/internal/core/domain"
	"github.com/janis-gruettmueller/lightweight-erp-system/internal/core/port"
)

// PasswordHistoryRepository implements port.PasswordHistoryRepository using
// PostgreSQL. Reads go through password_history_view, writes append to the
// underlying password_history table.
type PasswordHistoryRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewPasswordHistoryRepository wires a PostgreSQL-backed history repository.
func NewPasswordHistoryRepository(exec pgExecutor) *PasswordHistoryRepository {
	return &PasswordHistoryRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// ListRecent returns up to limit entries for the user, newest first. A limit
// of zero returns an empty slice without touching the database.
func (r *PasswordHistoryRepository) ListRecent(ctx context.Context, userID int64, limit int) ([]domain.PasswordHistoryEntry, error) {
	if limit <= 0 {
		return nil, nil
	}

	stmt, args, err := r.builder.
		Select("user_id", "password_hash", "created_at").
		From("password_history_view").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select history sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query password history: %w", err)
	}
	defer rows.Close()

	var entries []domain.PasswordHistoryEntry
	for rows.Next() {
		var entry domain.PasswordHistoryEntry
		if err := rows.Scan(&entry.UserID, &entry.PasswordHash, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate password history: %w", err)
	}

	return entries, nil
}

// Append records a new hash for the user. The log is append-only; rows are
// never updated or deleted by the core.
func (r *PasswordHistoryRepository) Append(ctx context.Context, entry domain.PasswordHistoryEntry) error {
	stmt, args, err := r.builder.
		Insert("password_history").
		Columns("user_id", "password_hash", "created_at").
		Values(entry.UserID, entry.PasswordHash, entry.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert history sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}

	return nil
}

var _ port.PasswordHistoryRepository = (*PasswordHistoryRepository)(nil)
