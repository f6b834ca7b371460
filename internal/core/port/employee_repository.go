package port

import (
	"context"
	"time"

	"github.com/janis-gruettmueller/lightweight-erp-system/internal/core/domain"
)

// EmployeeRepository exposes the HR-side reads the onboarding job needs.
type EmployeeRepository interface {
	// FindStartingOn returns employees whose start date equals the given day,
	// ordered by id ascending.
	FindStartingOn(ctx context.Context, day time.Time) ([]domain.Employee, error)
}
