package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/janis-gruettmueller/lightweight-erp-system/internal/core/domain"
	"github.com/janis-gruettmueller/lightweight-erp-system/internal/core/port"
	"github.com/janis-gruettmueller/lightweight-erp-system/internal/infra/security"
	"github.com/janis-gruettmueller/lightweight-erp-system/internal/repository"
)

// systemActorID is the reserved system account recorded as last_updated_by on
// rows the engine mutates on its own authority (counters, locks, unlocks).
const systemActorID int64 = 2

// OutcomeKind discriminates the result of an authentication attempt. Exactly
// one kind is produced per attempt; transport maps each kind onto its own
// response without inspecting anything else.
type OutcomeKind int

const (
	// OutcomeBadCredentials covers unknown usernames, wrong passwords,
	// deactivated accounts and accounts outside their validity window. One
	// kind for all of them, so responses cannot be used to probe which
	// usernames exist.
	OutcomeBadCredentials OutcomeKind = iota
	OutcomePermanentlyLocked
	OutcomeTemporarilyLocked
	OutcomePasswordExpired
	OutcomeFirstLoginRequired
	OutcomeSuccess
)

// String names the outcome for logs and metrics labels.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeBadCredentials:
		return "bad_credentials"
	case OutcomePermanentlyLocked:
		return "permanently_locked"
	case OutcomeTemporarilyLocked:
		return "temporarily_locked"
	case OutcomePasswordExpired:
		return "password_expired"
	case OutcomeFirstLoginRequired:
		return "first_login_required"
	case OutcomeSuccess:
		return "success"
	default:
		return "unknown"
	}
}

// AuthOutcome is the result of one authentication attempt. UserID is set for
// every kind except BadCredentials; LockedUntil is set only for
// TemporarilyLocked and marks the end of the current lockout window.
type AuthOutcome struct {
	Kind        OutcomeKind
	UserID      int64
	Username    string
	LockedUntil time.Time
}

// AuthService evaluates login attempts against the stored account state. All
// writes it performs are audited under the system actor; the per-user mutex
// serializes attempts against the same account so concurrent failures cannot
// both read the same counter value.
type AuthService struct {
	users  port.UserRepository
	hasher port.PasswordHasher
	policy *security.PasswordPolicy
	events port.EventPublisher
	logger *zap.Logger
	locks  *KeyedMutex
	now    func() time.Time
}

// NewAuthService wires the authentication engine.
func NewAuthService(
	users port.UserRepository,
	hasher port.PasswordHasher,
	policy *security.PasswordPolicy,
	events port.EventPublisher,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		users:  users,
		hasher: hasher,
		policy: policy,
		events: events,
		logger: logger,
		locks:  NewKeyedMutex(),
		now:    time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	return s
}

// WithLocks substitutes a shared keyed mutex so the other account engines
// serialize against the same per-account locks.
func (s *AuthService) WithLocks(locks *KeyedMutex) *AuthService {
	s.locks = locks
	return s
}

// Authenticate runs one login attempt. A non-nil error means the attempt
// could not be evaluated (storage failure); every evaluated attempt, however
// it went, comes back as an AuthOutcome.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (AuthOutcome, error) {
	unlock := s.locks.Lock(accountKey(username))
	defer unlock()

	now := s.now().UTC()

	user, err := s.users.GetByName(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.hasher.DummyVerify(password)
			return AuthOutcome{Kind: OutcomeBadCredentials}, nil
		}
		return AuthOutcome{}, fmt.Errorf("load user: %w", err)
	}

	// Deactivated accounts and accounts outside their validity window are
	// indistinguishable from unknown usernames.
	if user.Status == domain.UserStatusDeactivated || !user.IsWithinValidity(now) {
		s.hasher.DummyVerify(password)
		return AuthOutcome{Kind: OutcomeBadCredentials}, nil
	}

	if user.Status == domain.UserStatusLocked {
		outcome, done, err := s.evaluateLock(ctx, user, now)
		if err != nil {
			return AuthOutcome{}, err
		}
		if done {
			return outcome, nil
		}
		// Lockout window has passed; the account was unlocked in place and
		// the attempt continues against a zeroed counter.
		user.Status = domain.UserStatusActive
		user.LockUntil = nil
		user.NumFailedLoginAttempts = 0
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return AuthOutcome{}, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return s.recordFailure(ctx, user, now)
	}

	if user.HasExpiredPassword(now) {
		return AuthOutcome{Kind: OutcomePasswordExpired, UserID: user.ID, Username: user.Name}, nil
	}

	if user.IsFirstLogin {
		if err := s.users.ResetFailedAttempts(ctx, user.ID, systemActorID); err != nil {
			return AuthOutcome{}, fmt.Errorf("reset failed attempts: %w", err)
		}
		return AuthOutcome{Kind: OutcomeFirstLoginRequired, UserID: user.ID, Username: user.Name}, nil
	}

	if err := s.users.ResetFailedAttempts(ctx, user.ID, systemActorID); err != nil {
		return AuthOutcome{}, fmt.Errorf("reset failed attempts: %w", err)
	}
	if err := s.users.UpdateLastLoginAt(ctx, user.ID, now); err != nil {
		return AuthOutcome{}, fmt.Errorf("stamp last login: %w", err)
	}

	s.logger.Info("login succeeded", zap.Int64("user_id", user.ID))
	return AuthOutcome{Kind: OutcomeSuccess, UserID: user.ID, Username: user.Name}, nil
}

// evaluateLock decides what a LOCKED account does with this attempt. A
// permanent lock always wins. A timed lock still inside its window counts the
// attempt and restarts the window from now. A timed lock whose window has
// passed is lifted and the attempt proceeds.
func (s *AuthService) evaluateLock(ctx context.Context, user *domain.User, now time.Time) (AuthOutcome, bool, error) {
	if user.IsPermanentlyLocked() {
		return AuthOutcome{Kind: OutcomePermanentlyLocked, UserID: user.ID, Username: user.Name}, true, nil
	}

	windowEnd := user.LockUntil.Add(s.policy.LockoutDuration())
	if now.Before(windowEnd) {
		attempts := user.NumFailedLoginAttempts + 1
		restamped := now
		if err := s.users.Lock(ctx, user.ID, &restamped, attempts, systemActorID); err != nil {
			return AuthOutcome{}, false, fmt.Errorf("restamp lock: %w", err)
		}
		s.logger.Warn("login attempt during lockout",
			zap.Int64("user_id", user.ID),
			zap.Int("failed_attempts", attempts),
		)
		return AuthOutcome{
			Kind:        OutcomeTemporarilyLocked,
			UserID:      user.ID,
			Username:    user.Name,
			LockedUntil: now.Add(s.policy.LockoutDuration()),
		}, true, nil
	}

	if err := s.users.Unlock(ctx, user.ID, systemActorID); err != nil {
		return AuthOutcome{}, false, fmt.Errorf("lift expired lock: %w", err)
	}
	s.logger.Info("timed lockout lifted", zap.Int64("user_id", user.ID))
	return AuthOutcome{}, false, nil
}

// recordFailure counts a wrong password and locks the account when the counter
// reaches the configured threshold.
func (s *AuthService) recordFailure(ctx context.Context, user *domain.User, now time.Time) (AuthOutcome, error) {
	attempts := user.NumFailedLoginAttempts + 1

	if attempts >= s.policy.MaxFailedAttempts() {
		lockUntil := now
		if err := s.users.Lock(ctx, user.ID, &lockUntil, attempts, systemActorID); err != nil {
			return AuthOutcome{}, fmt.Errorf("lock account: %w", err)
		}
		s.logger.Warn("account locked after repeated failures",
			zap.Int64("user_id", user.ID),
			zap.Int("failed_attempts", attempts),
		)
		s.publishLocked(ctx, user, now)
		return AuthOutcome{Kind: OutcomeBadCredentials}, nil
	}

	if err := s.users.UpdateFailedAttempts(ctx, user.ID, attempts, systemActorID); err != nil {
		return AuthOutcome{}, fmt.Errorf("count failed attempt: %w", err)
	}
	s.logger.Info("login failed",
		zap.Int64("user_id", user.ID),
		zap.String("failed_attempts", strconv.Itoa(attempts)+"/"+strconv.Itoa(s.policy.MaxFailedAttempts())),
	)
	return AuthOutcome{Kind: OutcomeBadCredentials}, nil
}

func (s *AuthService) publishLocked(ctx context.Context, user *domain.User, now time.Time) {
	event := domain.UserLockedEvent{
		UserID:    user.ID,
		Username:  user.Name,
		Permanent: false,
		LockedAt:  now,
	}
	if err := s.events.PublishUserLocked(ctx, event); err != nil {
		s.logger.Warn("publish user locked event failed", zap.Error(err), zap.Int64("user_id", user.ID))
	}
}
