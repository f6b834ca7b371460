package usecase

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	locks := NewKeyedMutex()

	release := locks.Lock("user:jdoe")

	acquired := make(chan struct{})
	go func() {
		unlock := locks.Lock("user:jdoe")
		unlock()
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second holder acquired the key while it was held")
	case <-time.After(20 * time.Millisecond):
	}

	release()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second holder never acquired the key")
	}
}

func TestKeyedMutexKeepsDistinctKeysIndependent(t *testing.T) {
	locks := NewKeyedMutex()

	release := locks.Lock("user:jdoe")
	defer release()

	done := make(chan struct{})
	go func() {
		unlock := locks.Lock("user:other")
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("unrelated key blocked behind a held one")
	}
}

// A login attempt and a password change on the same account must take the
// same lock when the engines share a keyed mutex.
func TestSharedLocksSerializeLoginAgainstPasswordChange(t *testing.T) {
	user := activeUser(7, "jdoe", "Correct#Horse1")
	users := newMemoryUserRepo(user)
	locks := NewKeyedMutex()

	auth := NewAuthService(users, &fakeHasher{}, testPolicy(3, 3, 15), &recordingPublisher{}, zaptest.NewLogger(t)).
		WithLocks(locks)
	passwords := NewPasswordService(users, &memoryHistoryRepo{}, &fakeHasher{}, testPolicy(3, 3, 15), &recordingPublisher{}, zaptest.NewLogger(t)).
		WithLocks(locks)

	release := locks.Lock(accountKey("jdoe"))

	loginDone := make(chan OutcomeKind, 1)
	go func() {
		outcome, err := auth.Authenticate(context.Background(), "jdoe", "Correct#Horse1")
		if err != nil {
			loginDone <- OutcomeBadCredentials
			return
		}
		loginDone <- outcome.Kind
	}()

	changeDone := make(chan error, 1)
	go func() {
		_, err := passwords.ChangeMandatory(context.Background(), "jdoe", "Fresh#Pass12", "Fresh#Pass12")
		changeDone <- err
	}()

	select {
	case <-loginDone:
		t.Fatal("login proceeded while the account lock was held")
	case <-changeDone:
		t.Fatal("password change proceeded while the account lock was held")
	case <-time.After(20 * time.Millisecond):
	}

	release()

	for i := 0; i < 2; i++ {
		select {
		case kind := <-loginDone:
			if kind != OutcomeSuccess && kind != OutcomeBadCredentials {
				t.Errorf("unexpected login outcome %s", kind)
			}
		case err := <-changeDone:
			if err != nil {
				t.Errorf("ChangeMandatory returned error: %v", err)
			}
		case <-time.After(time.Second):
			t.Fatal("engines never finished after the lock was released")
		}
	}
}
