package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/janis-gruettmueller/lightweight-erp-system/internal/core/domain"
	"github.com/janis-gruettmueller/lightweight-erp-system/internal/repository"
)

func newUserMock(t *testing.T) (pgxmock.PgxPoolIface, *UserRepository) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	t.Cleanup(mock.Close)

	return mock, NewUserRepository(mock)
}

func userRow(id int64, name string) *pgxmock.Rows {
	now := time.Now().UTC()
	return pgxmock.NewRows(userColumns).AddRow(
		id,
		name,
		domain.UserStatusActive,
		domain.UserTypeNormal,
		"$2a$10$hash",
		nil,
		0,
		nil,
		false,
		nil,
		nil,
		nil,
		now,
		nil,
		now,
	)
}

func TestUserRepositoryGetByName(t *testing.T) {
	mock, repo := newUserMock(t)

	mock.ExpectQuery(`SELECT .+ FROM users WHERE name = \$1`).
		WithArgs("jdoe").
		WillReturnRows(userRow(7, "jdoe"))

	user, err := repo.GetByName(context.Background(), "jdoe")
	if err != nil {
		t.Fatalf("GetByName returned error: %v", err)
	}
	if user.ID != 7 || user.Name != "jdoe" {
		t.Errorf("unexpected user %+v", user)
	}
	if user.Status != domain.UserStatusActive {
		t.Errorf("unexpected status %s", user.Status)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserRepositoryGetByIDMiss(t *testing.T) {
	mock, repo := newUserMock(t)

	mock.ExpectQuery(`SELECT .+ FROM users WHERE id = \$1`).
		WithArgs(int64(42)).
		WillReturnError(pgx.ErrNoRows)

	if _, err := repo.GetByID(context.Background(), 42); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserRepositoryUpdateFailedAttempts(t *testing.T) {
	mock, repo := newUserMock(t)

	mock.ExpectExec(`UPDATE users SET num_failed_login_attempts = \$1, last_updated_by = \$2, last_updated_at = now\(\) WHERE id = \$3`).
		WithArgs(3, int64(2), int64(7)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := repo.UpdateFailedAttempts(context.Background(), 7, 3, 2); err != nil {
		t.Fatalf("UpdateFailedAttempts returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserRepositoryUpdateMissingUser(t *testing.T) {
	mock, repo := newUserMock(t)

	// Unlock's SetMap orders columns alphabetically: lock_until, counter,
	// status, then the audit pair.
	mock.ExpectExec(`UPDATE users SET`).
		WithArgs(nil, 0, domain.UserStatusActive, int64(2), int64(42)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	if err := repo.Unlock(context.Background(), 42, 2); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserRepositoryLockStampsWindowStart(t *testing.T) {
	mock, repo := newUserMock(t)

	lockUntil := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

	// SetMap orders columns alphabetically: lock_until, counter, status.
	mock.ExpectExec(`UPDATE users SET lock_until = \$1, num_failed_login_attempts = \$2, status = \$3, last_updated_by = \$4, last_updated_at = now\(\) WHERE id = \$5`).
		WithArgs(&lockUntil, 3, domain.UserStatusLocked, int64(2), int64(7)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := repo.Lock(context.Background(), 7, &lockUntil, 3, 2); err != nil {
		t.Fatalf("Lock returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
