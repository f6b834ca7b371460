package port

import (
	"context"

	"github.com/janis-gruettmueller/lightweight-erp-system/internal/core/domain"
)

// EventPublisher emits account-lifecycle events. Publishing is best-effort;
// failures are logged and never block the originating state transition.
type EventPublisher interface {
	PublishUserCreated(ctx context.Context, event domain.UserCreatedEvent) error
	PublishUserLocked(ctx context.Context, event domain.UserLockedEvent) error
	PublishPasswordChanged(ctx context.Context, event domain.PasswordChangedEvent) error
	PublishUserDeactivated(ctx context.Context, event domain.UserDeactivatedEvent) error
}
