package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/janis-gruettmueller/lightweight-erp-system/internal/core/domain"
	"github.com/janis-gruettmueller/lightweight-erp-system/internal/core/port"
	"github.com/janis-gruettmueller/lightweight-erp-system/internal/infra/security"
	"github.com/janis-gruettmueller/lightweight-erp-system/internal/repository"
)

const (
	fieldUserID       = "user_id"
	fieldTempToken    = "temp_token"
	fieldChangeReason = "change_reason"
	fieldUsername     = "username"
	fieldCreatedAt    = "created_at"
	fieldLastSeenAt   = "last_seen_at"
	fieldMaxInactive  = "max_inactive_sec"
)

// SessionStore implements port.SessionStore on a Redis hash per session. The
// key TTL is the inactivity timeout; every access re-arms it, so an idle
// session simply vanishes and behaves like a missing one on the next request.
type SessionStore struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewSessionStore wires a Redis-backed session store.
func NewSessionStore(client *redis.Client, prefix string) *SessionStore {
	if prefix == "" {
		prefix = "leanx:session"
	}
	return &SessionStore{
		client: client,
		prefix: prefix,
		now:    time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (s *SessionStore) WithClock(now func() time.Time) *SessionStore {
	s.now = now
	return s
}

func (s *SessionStore) key(id string) string {
	return s.prefix + ":" + id
}

// Create mints a fresh session with the given inactivity timeout.
func (s *SessionStore) Create(ctx context.Context, maxInactive time.Duration) (*domain.Session, error) {
	if maxInactive <= 0 {
		return nil, fmt.Errorf("session timeout must be positive")
	}

	id, err := security.GenerateSessionID()
	if err != nil {
		return nil, fmt.Errorf("mint session id: %w", err)
	}

	now := s.now().UTC()
	key := s.key(id)

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, map[string]any{
		fieldCreatedAt:   now.Format(time.RFC3339Nano),
		fieldLastSeenAt:  now.Format(time.RFC3339Nano),
		fieldMaxInactive: int64(maxInactive.Seconds()),
	})
	pipe.Expire(ctx, key, maxInactive)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	return &domain.Session{
		ID:          id,
		CreatedAt:   now,
		LastSeenAt:  now,
		MaxInactive: maxInactive,
	}, nil
}

// Get loads the session and slides its inactivity window. Expired or unknown
// ids return repository.ErrNotFound.
func (s *SessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	key := s.key(id)

	fields, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if len(fields) == 0 {
		return nil, repository.ErrNotFound
	}

	session, err := decodeSession(id, fields)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	session.LastSeenAt = now

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, fieldLastSeenAt, now.Format(time.RFC3339Nano))
	pipe.Expire(ctx, key, session.MaxInactive)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("touch session: %w", err)
	}

	return session, nil
}

// SetAttributes writes the supplied attributes onto an existing session. Nil
// fields are left untouched; the inactivity window is re-armed.
func (s *SessionStore) SetAttributes(ctx context.Context, id string, attrs port.SessionAttributes) error {
	key := s.key(id)

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("probe session: %w", err)
	}
	if exists == 0 {
		return repository.ErrNotFound
	}

	values := make(map[string]any)
	if attrs.UserID != nil {
		values[fieldUserID] = strconv.FormatInt(*attrs.UserID, 10)
	}
	if attrs.TempToken != nil {
		values[fieldTempToken] = *attrs.TempToken
	}
	if attrs.ChangeReason != nil {
		values[fieldChangeReason] = *attrs.ChangeReason
	}
	if attrs.Username != nil {
		values[fieldUsername] = *attrs.Username
	}
	if len(values) == 0 {
		return nil
	}

	maxInactiveSec, err := s.client.HGet(ctx, key, fieldMaxInactive).Int64()
	if err != nil {
		return fmt.Errorf("read session timeout: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, values)
	pipe.Expire(ctx, key, time.Duration(maxInactiveSec)*time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("write session attributes: %w", err)
	}

	return nil
}

// Destroy removes the session. Destroying an unknown id is a no-op.
func (s *SessionStore) Destroy(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}

func decodeSession(id string, fields map[string]string) (*domain.Session, error) {
	session := &domain.Session{
		ID:           id,
		TempToken:    fields[fieldTempToken],
		ChangeReason: fields[fieldChangeReason],
		Username:     fields[fieldUsername],
	}

	if raw, ok := fields[fieldUserID]; ok && raw != "" {
		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("decode session user id: %w", err)
		}
		session.UserID = &userID
	}

	if raw, ok := fields[fieldCreatedAt]; ok {
		createdAt, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("decode session created_at: %w", err)
		}
		session.CreatedAt = createdAt
	}

	if raw, ok := fields[fieldLastSeenAt]; ok {
		lastSeen, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("decode session last_seen_at: %w", err)
		}
		session.LastSeenAt = lastSeen
	}

	if raw, ok := fields[fieldMaxInactive]; ok {
		seconds, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("decode session timeout: %w", err)
		}
		session.MaxInactive = time.Duration(seconds) * time.Second
	}

	return session, nil
}

var _ port.SessionStore = (*SessionStore)(nil)
