package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgExecutor abstracts pgxpool.Pool so repositories can run against a mock
// pool in tests.
type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repositories groups the concrete PostgreSQL repository implementations.
type Repositories struct {
	Users      *UserRepository
	History    *PasswordHistoryRepository
	Settings   *SettingsRepository
	Employees  *EmployeeRepository
	Procedures *ProceduresRepository
}

// NewRepositories wires all repositories backed by the provided executor.
func NewRepositories(exec pgExecutor) *Repositories {
	return &Repositories{
		Users:      NewUserRepository(exec),
		History:    NewPasswordHistoryRepository(exec),
		Settings:   NewSettingsRepository(exec),
		Employees:  NewEmployeeRepository(exec),
		Procedures: NewProceduresRepository(exec),
	}
}
