package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/janis-gruettmueller/lightweight-erp-system/internal/core/domain"
	"github.com/janis-gruettmueller/lightweight-erp-system/internal/core/port"
	"github.com/janis-gruettmueller/lightweight-erp-system/internal/infra/security"
	"github.com/janis-gruettmueller/lightweight-erp-system/internal/repository"
)

// PasswordService rotates credentials. Two attestation modes exist: a
// voluntary change proves knowledge of the current password, a mandatory
// change (first login, expired password) is attested by the one-shot token the
// transport layer has already redeemed against the session.
type PasswordService struct {
	users   port.UserRepository
	history port.PasswordHistoryRepository
	hasher  port.PasswordHasher
	policy  *security.PasswordPolicy
	events  port.EventPublisher
	logger  *zap.Logger
	locks   *KeyedMutex
	now     func() time.Time
}

// NewPasswordService wires the password change engine.
func NewPasswordService(
	users port.UserRepository,
	history port.PasswordHistoryRepository,
	hasher port.PasswordHasher,
	policy *security.PasswordPolicy,
	events port.EventPublisher,
	logger *zap.Logger,
) *PasswordService {
	return &PasswordService{
		users:   users,
		history: history,
		hasher:  hasher,
		policy:  policy,
		events:  events,
		logger:  logger,
		locks:   NewKeyedMutex(),
		now:     time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (s *PasswordService) WithClock(now func() time.Time) *PasswordService {
	s.now = now
	return s
}

// WithLocks substitutes a shared keyed mutex so password changes serialize
// against login attempts on the same account.
func (s *PasswordService) WithLocks(locks *KeyedMutex) *PasswordService {
	s.locks = locks
	return s
}

// ChangeVoluntary rotates the password of an authenticated user. Users may
// only change their own password; the current password attests the request.
func (s *PasswordService) ChangeVoluntary(ctx context.Context, actorID, subjectID int64, oldPassword, newPassword, confirm string) error {
	if actorID != subjectID {
		return ErrNotAllowed
	}

	// The account lock is keyed by username, so the name is read first. It is
	// stable outside the lock; the decision snapshot is re-read inside it.
	probe, err := s.users.GetByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("load user: %w", err)
	}

	unlock := s.locks.Lock(accountKey(probe.Name))
	defer unlock()

	user, err := s.users.GetByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("load user: %w", err)
	}

	ok, err := s.hasher.Verify(oldPassword, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify current password: %w", err)
	}
	if !ok {
		return ErrInvalidOldPassword
	}

	return s.apply(ctx, user, newPassword, confirm, false)
}

// ChangeMandatory completes the password change a deferred login demanded. The
// caller has already matched the one-shot token against the session; the
// username pinned to that session names the subject.
func (s *PasswordService) ChangeMandatory(ctx context.Context, username, newPassword, confirm string) (int64, error) {
	unlock := s.locks.Lock(accountKey(username))
	defer unlock()

	user, err := s.users.GetByName(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("load user: %w", err)
	}

	if err := s.apply(ctx, user, newPassword, confirm, true); err != nil {
		return 0, err
	}

	// Completing the remedial step consummates the deferred login.
	if err := s.users.UpdateLastLoginAt(ctx, user.ID, s.now().UTC()); err != nil {
		return 0, fmt.Errorf("stamp last login: %w", err)
	}
	return user.ID, nil
}

// apply runs the checks shared by both modes and commits the rotation. The
// history scan covers the current hash as well, since account creation seeds
// the history with the initial password.
func (s *PasswordService) apply(ctx context.Context, user *domain.User, newPassword, confirm string, mandatory bool) error {
	if newPassword != confirm {
		return ErrConfirmationMismatch
	}
	if !s.policy.IsValid(newPassword) {
		return ErrPolicyViolation
	}

	entries, err := s.history.ListRecent(ctx, user.ID, s.policy.HistorySize())
	if err != nil {
		return fmt.Errorf("load password history: %w", err)
	}
	for _, entry := range entries {
		match, err := s.hasher.Verify(newPassword, entry.PasswordHash)
		if err != nil {
			return fmt.Errorf("check password history: %w", err)
		}
		if match {
			return ErrPasswordReused
		}
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash new password: %w", err)
	}

	now := s.now().UTC()
	if err := s.users.UpdatePassword(ctx, user.ID, hash, user.ID); err != nil {
		return fmt.Errorf("store new password: %w", err)
	}
	if err := s.history.Append(ctx, domain.PasswordHistoryEntry{
		UserID:       user.ID,
		PasswordHash: hash,
		CreatedAt:    now,
	}); err != nil {
		return fmt.Errorf("append password history: %w", err)
	}
	if user.IsFirstLogin {
		if err := s.users.ClearFirstLogin(ctx, user.ID, user.ID); err != nil {
			return fmt.Errorf("clear first login flag: %w", err)
		}
	}

	s.logger.Info("password changed",
		zap.Int64("user_id", user.ID),
		zap.Bool("mandatory", mandatory),
	)

	event := domain.PasswordChangedEvent{
		UserID:    user.ID,
		ChangedBy: user.ID,
		Mandatory: mandatory,
		ChangedAt: now,
	}
	if err := s.events.PublishPasswordChanged(ctx, event); err != nil {
		s.logger.Warn("publish password changed event failed", zap.Error(err), zap.Int64("user_id", user.ID))
	}

	return nil
}
