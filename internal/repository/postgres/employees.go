package postgres

import (
	"context"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"

	"github.com/janis-gruettmueller/lightweight-erp-system/internal/core/domain"
	"github.com/janis-gruettmueller/lightweight-erp-system/internal/core/port"
)

// EmployeeRepository exposes the HR-side reads the onboarding job needs.
type EmployeeRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewEmployeeRepository wires a PostgreSQL-backed employee repository.
func NewEmployeeRepository(exec pgExecutor) *EmployeeRepository {
	return &EmployeeRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// FindStartingOn returns employees whose start date equals the given day,
// ordered by id so batches process in stable order.
func (r *EmployeeRepository) FindStartingOn(ctx context.Context, day time.Time) ([]domain.Employee, error) {
	y, m, d := day.UTC().Date()
	startOfDay := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	stmt, args, err := r.builder.
		Select("id", "first_name", "last_name", "email", "start_date", "end_date").
		From("employees").
		Where(squirrel.Eq{"start_date": startOfDay}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select employees sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query employees: %w", err)
	}
	defer rows.Close()

	var employees []domain.Employee
	for rows.Next() {
		var emp domain.Employee
		if err := rows.Scan(&emp.ID, &emp.FirstName, &emp.LastName, &emp.Email, &emp.StartDate, &emp.EndDate); err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
		employees = append(employees, emp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate employees: %w", err)
	}

	return employees, nil
}

var _ port.EmployeeRepository = (*EmployeeRepository)(nil)
