package postgres

import (
	"context"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/janis-gruettmueller/lightweight-erp-system/internal/core/domain"
	"github.com/janis-gruettmueller/lightweight-erp-system/internal/core/port"
	"github.com/janis-gruettmueller/lightweight-erp-system/internal/repository"
)

var userColumns = []string{
	"id",
	"name",
	"status",
	"type",
	"password_hash",
	"password_expiry_date",
	"num_failed_login_attempts",
	"lock_until",
	"is_first_login",
	"last_login_at",
	"valid_until",
	"created_by",
	"created_at",
	"last_updated_by",
	"last_updated_at",
}

// UserRepository implements port.UserRepository using PostgreSQL.
type UserRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewUserRepository wires a PostgreSQL-backed user repository.
func NewUserRepository(exec pgExecutor) *UserRepository {
	return &UserRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// GetByID retrieves a user snapshot by primary key.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

// GetByName retrieves a user snapshot by login handle.
func (r *UserRepository) GetByName(ctx context.Context, name string) (*domain.User, error) {
	return r.getOne(ctx, squirrel.Eq{"name": name})
}

func (r *UserRepository) getOne(ctx context.Context, pred squirrel.Eq) (*domain.User, error) {
	stmt, args, err := r.builder.
		Select(userColumns...).
		From("users").
		Where(pred).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)

	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Status,
		&user.Type,
		&user.PasswordHash,
		&user.PasswordExpiryDate,
		&user.NumFailedLoginAttempts,
		&user.LockUntil,
		&user.IsFirstLogin,
		&user.LastLoginAt,
		&user.ValidUntil,
		&user.CreatedBy,
		&user.CreatedAt,
		&user.LastUpdatedBy,
		&user.LastUpdatedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	return &user, nil
}

// UpdateFailedAttempts overwrites the failed-attempt counter.
func (r *UserRepository) UpdateFailedAttempts(ctx context.Context, userID int64, attempts int, actorID int64) error {
	return r.update(ctx, userID, actorID, map[string]any{
		"num_failed_login_attempts": attempts,
	})
}

// Lock sets status=LOCKED and the lock_until timestamp (nil = permanent).
func (r *UserRepository) Lock(ctx context.Context, userID int64, lockUntil *time.Time, attempts int, actorID int64) error {
	return r.update(ctx, userID, actorID, map[string]any{
		"status":                    domain.UserStatusLocked,
		"lock_until":                lockUntil,
		"num_failed_login_attempts": attempts,
	})
}

// Unlock restores ACTIVE status and clears the lockout state.
func (r *UserRepository) Unlock(ctx context.Context, userID int64, actorID int64) error {
	return r.update(ctx, userID, actorID, map[string]any{
		"status":                    domain.UserStatusActive,
		"lock_until":                nil,
		"num_failed_login_attempts": 0,
	})
}

// ResetFailedAttempts zeroes the failed-attempt counter.
func (r *UserRepository) ResetFailedAttempts(ctx context.Context, userID int64, actorID int64) error {
	return r.update(ctx, userID, actorID, map[string]any{
		"num_failed_login_attempts": 0,
	})
}

// UpdateLastLoginAt stamps a fully consummated login.
func (r *UserRepository) UpdateLastLoginAt(ctx context.Context, userID int64, at time.Time) error {
	return r.update(ctx, userID, userID, map[string]any{
		"last_login_at": at,
	})
}

// UpdatePassword replaces the stored hash and clears the expiry date.
func (r *UserRepository) UpdatePassword(ctx context.Context, userID int64, hash string, actorID int64) error {
	return r.update(ctx, userID, actorID, map[string]any{
		"password_hash":        hash,
		"password_expiry_date": nil,
	})
}

// ClearFirstLogin drops the is_first_login flag.
func (r *UserRepository) ClearFirstLogin(ctx context.Context, userID int64, actorID int64) error {
	return r.update(ctx, userID, actorID, map[string]any{
		"is_first_login": false,
	})
}

func (r *UserRepository) update(ctx context.Context, userID, actorID int64, fields map[string]any) error {
	query := r.builder.Update("users").
		SetMap(fields).
		Set("last_updated_by", actorID).
		Set("last_updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": userID})

	stmt, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build update user sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

var _ port.UserRepository = (*UserRepository)(nil)
