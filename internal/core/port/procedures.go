package port

import "context"

// StoredProcedures wraps the database procedures that own multi-row
// transactional invariants. CreateNewUserAccount atomically inserts the user
// row, seeds the password history and links the account to its employee.
type StoredProcedures interface {
	CreateNewUserAccount(ctx context.Context, name, passwordHash string, employeeID int64) (int64, error)
	DeactivateUserAccount(ctx context.Context, userID, actorID int64) error
	TerminateEmployee(ctx context.Context, employeeID int64) error
}
