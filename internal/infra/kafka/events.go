package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/janis-gruettmueller/lightweight-erp-system/internal/core/domain"
	"github.com/janis-gruettmueller/lightweight-erp-system/internal/core/port"
	"github.com/janis-gruettmueller/lightweight-erp-system/internal/infra/config"
)

const schemaVersion = "1.0"

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type eventEnvelope struct {
	EventID   string            `json:"event_id"`
	EventType string            `json:"event_type"`
	UserID    int64             `json:"user_id,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Payload   any               `json:"payload"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventType string, userID int64, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	envelope := eventEnvelope{
		EventID:   uuid.NewString(),
		EventType: eventType,
		UserID:    userID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata: map[string]string{
			"service":     p.appCfg.Name,
			"environment": p.appCfg.Env,
		},
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishUserCreated emits erp.user.created events.
func (p *EventPublisher) PublishUserCreated(ctx context.Context, event domain.UserCreatedEvent) error {
	return p.publish(ctx, "user.created", event.UserID, event.CreatedAt, map[string]any{
		"user_id":     event.UserID,
		"username":    event.Username,
		"employee_id": event.EmployeeID,
		"created_at":  event.CreatedAt,
	})
}

// PublishUserLocked emits erp.user.locked events.
func (p *EventPublisher) PublishUserLocked(ctx context.Context, event domain.UserLockedEvent) error {
	return p.publish(ctx, "user.locked", event.UserID, event.LockedAt, map[string]any{
		"user_id":   event.UserID,
		"username":  event.Username,
		"permanent": event.Permanent,
		"locked_at": event.LockedAt,
	})
}

// PublishPasswordChanged emits erp.user.password.changed events.
func (p *EventPublisher) PublishPasswordChanged(ctx context.Context, event domain.PasswordChangedEvent) error {
	return p.publish(ctx, "user.password.changed", event.UserID, event.ChangedAt, map[string]any{
		"user_id":    event.UserID,
		"changed_by": event.ChangedBy,
		"mandatory":  event.Mandatory,
		"changed_at": event.ChangedAt,
	})
}

// PublishUserDeactivated emits erp.user.deactivated events.
func (p *EventPublisher) PublishUserDeactivated(ctx context.Context, event domain.UserDeactivatedEvent) error {
	return p.publish(ctx, "user.deactivated", event.UserID, event.DeactivatedAt, map[string]any{
		"user_id":        event.UserID,
		"deactivated_by": event.DeactivatedBy,
		"deactivated_at": event.DeactivatedAt,
	})
}

var _ port.EventPublisher = (*EventPublisher)(nil)
