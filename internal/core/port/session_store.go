package port

import (
	"context"
	"time"

	"github.com/janis-gruettmueller/lightweight-erp-system/internal/core/domain"
)

// SessionAttributes carries the mutable attribute set written onto a session.
// Nil pointer fields are left untouched.
type SessionAttributes struct {
	UserID       *int64
	TempToken    *string
	ChangeReason *string
	Username     *string
}

// SessionStore manages server-side sessions. Get refreshes the inactivity
// window on every access; an expired session behaves exactly like a missing
// one.
type SessionStore interface {
	Create(ctx context.Context, maxInactive time.Duration) (*domain.Session, error)
	Get(ctx context.Context, id string) (*domain.Session, error)
	SetAttributes(ctx context.Context, id string, attrs SessionAttributes) error
	// Destroy removes the session; destroying an unknown id is not an error.
	Destroy(ctx context.Context, id string) error
}
