package port

import (
	"context"
	"time"

	"github.com/janis-gruettmueller/lightweight-erp-system/internal/core/domain"
)

// UserRepository provides read access to user records and the narrow mutations
// the credential lifecycle needs. Each update method writes exactly the fields
// it names so that the engine never commits an accidental change carried on a
// stale snapshot.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByName(ctx context.Context, name string) (*domain.User, error)

	// UpdateFailedAttempts overwrites num_failed_login_attempts.
	UpdateFailedAttempts(ctx context.Context, userID int64, attempts int, actorID int64) error

	// Lock sets status=LOCKED and lock_until. A nil lockUntil records a
	// permanent administrative lock.
	Lock(ctx context.Context, userID int64, lockUntil *time.Time, attempts int, actorID int64) error

	// Unlock restores status=ACTIVE, clears lock_until and zeroes the
	// failed-attempt counter.
	Unlock(ctx context.Context, userID int64, actorID int64) error

	// ResetFailedAttempts zeroes num_failed_login_attempts.
	ResetFailedAttempts(ctx context.Context, userID int64, actorID int64) error

	UpdateLastLoginAt(ctx context.Context, userID int64, at time.Time) error

	// UpdatePassword replaces the stored hash and clears the expiry date.
	UpdatePassword(ctx context.Context, userID int64, hash string, actorID int64) error

	// ClearFirstLogin drops the is_first_login flag.
	ClearFirstLogin(ctx context.Context, userID int64, actorID int64) error
}
