package postgres

import (
	"context"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v2"
)

func TestCreateNewUserAccountReturnsID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewProceduresRepository(mock)

	mock.ExpectQuery(`SELECT create_new_user_account\(\$1, \$2, \$3\)`).
		WithArgs("amayer", "$2a$10$hash", int64(11)).
		WillReturnRows(pgxmock.NewRows([]string{"create_new_user_account"}).AddRow(int64(99)))

	userID, err := repo.CreateNewUserAccount(context.Background(), "amayer", "$2a$10$hash", 11)
	if err != nil {
		t.Fatalf("CreateNewUserAccount returned error: %v", err)
	}
	if userID != 99 {
		t.Errorf("expected user id 99, got %d", userID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDeactivateUserAccount(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewProceduresRepository(mock)

	mock.ExpectExec(`SELECT deactivate_user_account\(\$1, \$2\)`).
		WithArgs(int64(7), int64(2)).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))

	if err := repo.DeactivateUserAccount(context.Background(), 7, 2); err != nil {
		t.Fatalf("DeactivateUserAccount returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
