package port

import (
	"context"

	"github.com/janis-gruettmueller/lightweight-erp-system/internal/core/domain"
)

// PasswordHistoryRepository is the append-only log of prior password hashes.
type PasswordHistoryRepository interface {
	// ListRecent returns up to limit entries for the user, newest first.
	ListRecent(ctx context.Context, userID int64, limit int) ([]domain.PasswordHistoryEntry, error)
	Append(ctx context.Context, entry domain.PasswordHistoryEntry) error
}
