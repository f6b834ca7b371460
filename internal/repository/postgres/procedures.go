package postgres

import (
	"context"
	"fmt"

	"github.com/janis-gruettmueller/lightweight-erp-system/internal/core/port"
)

// ProceduresRepository wraps the stored procedures that own multi-row
// transactional invariants. The procedures perform their work inside a single
// database transaction; callers see either the full effect or none.
type ProceduresRepository struct {
	exec pgExecutor
}

// NewProceduresRepository wires the stored-procedure repository.
func NewProceduresRepository(exec pgExecutor) *ProceduresRepository {
	return &ProceduresRepository{exec: exec}
}

// CreateNewUserAccount inserts the user row, seeds its password history and
// links the account to the employee, returning the new user id.
func (r *ProceduresRepository) CreateNewUserAccount(ctx context.Context, name, passwordHash string, employeeID int64) (int64, error) {
	var userID int64
	row := r.exec.QueryRow(ctx, "SELECT create_new_user_account($1, $2, $3)", name, passwordHash, employeeID)
	if err := row.Scan(&userID); err != nil {
		return 0, fmt.Errorf("call create_new_user_account: %w", err)
	}
	return userID, nil
}

// DeactivateUserAccount flips the account to DEACTIVATED and revokes its
// employee link.
func (r *ProceduresRepository) DeactivateUserAccount(ctx context.Context, userID, actorID int64) error {
	if _, err := r.exec.Exec(ctx, "SELECT deactivate_user_account($1, $2)", userID, actorID); err != nil {
		return fmt.Errorf("call deactivate_user_account: %w", err)
	}
	return nil
}

// TerminateEmployee closes the employee record and deactivates any linked
// account.
func (r *ProceduresRepository) TerminateEmployee(ctx context.Context, employeeID int64) error {
	if _, err := r.exec.Exec(ctx, "SELECT terminate_employee($1)", employeeID); err != nil {
		return fmt.Errorf("call terminate_employee: %w", err)
	}
	return nil
}

var _ port.StoredProcedures = (*ProceduresRepository)(nil)
