package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/janis-gruettmueller/lightweight-erp-system/internal/core/domain"
	"github.com/janis-gruettmueller/lightweight-erp-system/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Used when no
// brokers are configured, typically in development.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType string, userID int64, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("stub event published",
		zap.String("event_type", eventType),
		zap.Int64("user_id", userID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishUserCreated logs user.created events.
func (p *StubPublisher) PublishUserCreated(_ context.Context, event domain.UserCreatedEvent) error {
	p.logEvent("user.created", event.UserID, event.CreatedAt, map[string]any{
		"username":    event.Username,
		"employee_id": event.EmployeeID,
	})
	return nil
}

// PublishUserLocked logs user.locked events.
func (p *StubPublisher) PublishUserLocked(_ context.Context, event domain.UserLockedEvent) error {
	p.logEvent("user.locked", event.UserID, event.LockedAt, map[string]any{
		"username":  event.Username,
		"permanent": event.Permanent,
	})
	return nil
}

// PublishPasswordChanged logs user.password.changed events.
func (p *StubPublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	p.logEvent("user.password.changed", event.UserID, event.ChangedAt, map[string]any{
		"changed_by": event.ChangedBy,
		"mandatory":  event.Mandatory,
	})
	return nil
}

// PublishUserDeactivated logs user.deactivated events.
func (p *StubPublisher) PublishUserDeactivated(_ context.Context, event domain.UserDeactivatedEvent) error {
	p.logEvent("user.deactivated", event.UserID, event.DeactivatedAt, map[string]any{
		"deactivated_by": event.DeactivatedBy,
	})
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
