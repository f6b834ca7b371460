package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/janis-gruettmueller/lightweight-erp-system/internal/core/domain"
	"github.com/janis-gruettmueller/lightweight-erp-system/internal/core/port"
	"github.com/janis-gruettmueller/lightweight-erp-system/internal/repository"
)

// AccountService covers the administrative account operations. The multi-row
// transitions run through stored procedures so that the account, its employee
// link and the employee record move together or not at all.
type AccountService struct {
	users  port.UserRepository
	procs  port.StoredProcedures
	events port.EventPublisher
	logger *zap.Logger
	now    func() time.Time
}

// NewAccountService wires the administrative account operations.
func NewAccountService(
	users port.UserRepository,
	procs port.StoredProcedures,
	events port.EventPublisher,
	logger *zap.Logger,
) *AccountService {
	return &AccountService{
		users:  users,
		procs:  procs,
		events: events,
		logger: logger,
		now:    time.Now,
	}
}

// Deactivate retires an account and revokes its employee link. Deactivation
// is terminal; the engine treats such accounts like unknown usernames.
func (s *AccountService) Deactivate(ctx context.Context, userID, actorID int64) error {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("load user: %w", err)
	}

	if err := s.procs.DeactivateUserAccount(ctx, userID, actorID); err != nil {
		return fmt.Errorf("deactivate account: %w", err)
	}

	s.logger.Info("account deactivated",
		zap.Int64("user_id", userID),
		zap.Int64("actor_id", actorID),
	)

	event := domain.UserDeactivatedEvent{
		UserID:        userID,
		DeactivatedBy: actorID,
		DeactivatedAt: s.now().UTC(),
	}
	if err := s.events.PublishUserDeactivated(ctx, event); err != nil {
		s.logger.Warn("publish user deactivated event failed", zap.Error(err), zap.Int64("user_id", userID))
	}

	return nil
}

// Unlock clears a lock administratively, including permanent locks the timed
// path never lifts.
func (s *AccountService) Unlock(ctx context.Context, userID, actorID int64) error {
	if err := s.users.Unlock(ctx, userID, actorID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("unlock account: %w", err)
	}
	s.logger.Info("account unlocked",
		zap.Int64("user_id", userID),
		zap.Int64("actor_id", actorID),
	)
	return nil
}

// TerminateEmployee closes the employee record and deactivates any linked
// account in the same transaction.
func (s *AccountService) TerminateEmployee(ctx context.Context, employeeID, actorID int64) error {
	if err := s.procs.TerminateEmployee(ctx, employeeID); err != nil {
		return fmt.Errorf("terminate employee: %w", err)
	}
	s.logger.Info("employee terminated",
		zap.Int64("employee_id", employeeID),
		zap.Int64("actor_id", actorID),
	)
	return nil
}
