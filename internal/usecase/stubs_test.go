package usecase

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/janis-gruettmueller/lightweight-erp-system/internal/core/domain"
	"github.com/janis-gruettmueller/lightweight-erp-system/internal/core/port"
	"github.com/janis-gruettmueller/lightweight-erp-system/internal/infra/security"
	"github.com/janis-gruettmueller/lightweight-erp-system/internal/repository"
)

// memoryUserRepo keeps users in memory and applies the narrow updates the way
// the real repository would.
type memoryUserRepo struct {
	mu    sync.Mutex
	users map[int64]*domain.User
}

func newMemoryUserRepo(users ...*domain.User) *memoryUserRepo {
	repo := &memoryUserRepo{users: make(map[int64]*domain.User)}
	for _, u := range users {
		copied := *u
		repo.users[u.ID] = &copied
	}
	return repo
}

func (r *memoryUserRepo) snapshot(id int64) *domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		copied := *u
		return &copied
	}
	return nil
}

func (r *memoryUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	if u := r.snapshot(id); u != nil {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func (r *memoryUserRepo) GetByName(_ context.Context, name string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Name == name {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memoryUserRepo) UpdateFailedAttempts(_ context.Context, userID int64, attempts int, actorID int64) error {
	return r.apply(userID, actorID, func(u *domain.User) {
		u.NumFailedLoginAttempts = attempts
	})
}

func (r *memoryUserRepo) Lock(_ context.Context, userID int64, lockUntil *time.Time, attempts int, actorID int64) error {
	return r.apply(userID, actorID, func(u *domain.User) {
		u.Status = domain.UserStatusLocked
		u.LockUntil = lockUntil
		u.NumFailedLoginAttempts = attempts
	})
}

func (r *memoryUserRepo) Unlock(_ context.Context, userID int64, actorID int64) error {
	return r.apply(userID, actorID, func(u *domain.User) {
		u.Status = domain.UserStatusActive
		u.LockUntil = nil
		u.NumFailedLoginAttempts = 0
	})
}

func (r *memoryUserRepo) ResetFailedAttempts(_ context.Context, userID int64, actorID int64) error {
	return r.apply(userID, actorID, func(u *domain.User) {
		u.NumFailedLoginAttempts = 0
	})
}

func (r *memoryUserRepo) UpdateLastLoginAt(_ context.Context, userID int64, at time.Time) error {
	return r.apply(userID, userID, func(u *domain.User) {
		stamped := at
		u.LastLoginAt = &stamped
	})
}

func (r *memoryUserRepo) UpdatePassword(_ context.Context, userID int64, hash string, actorID int64) error {
	return r.apply(userID, actorID, func(u *domain.User) {
		u.PasswordHash = hash
		u.PasswordExpiryDate = nil
	})
}

func (r *memoryUserRepo) ClearFirstLogin(_ context.Context, userID int64, actorID int64) error {
	return r.apply(userID, actorID, func(u *domain.User) {
		u.IsFirstLogin = false
	})
}

func (r *memoryUserRepo) apply(userID, actorID int64, mutate func(*domain.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	mutate(u)
	u.LastUpdatedBy = &actorID
	return nil
}

var _ port.UserRepository = (*memoryUserRepo)(nil)

// fakeHasher avoids bcrypt cost in tests; a hash is the plaintext with a
// marker prefix.
type fakeHasher struct {
	mu          sync.Mutex
	dummyCalls  int
	hashFailure error
}

func (h *fakeHasher) Hash(plain string) (string, error) {
	if h.hashFailure != nil {
		return "", h.hashFailure
	}
	return "hashed:" + plain, nil
}

func (h *fakeHasher) Verify(plain, stored string) (bool, error) {
	return stored == "hashed:"+plain, nil
}

func (h *fakeHasher) DummyVerify(string) {
	h.mu.Lock()
	h.dummyCalls++
	h.mu.Unlock()
}

func (h *fakeHasher) dummyVerifyCalls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dummyCalls
}

var _ port.PasswordHasher = (*fakeHasher)(nil)

// recordingPublisher collects published events.
type recordingPublisher struct {
	mu          sync.Mutex
	created     []domain.UserCreatedEvent
	locked      []domain.UserLockedEvent
	changed     []domain.PasswordChangedEvent
	deactivated []domain.UserDeactivatedEvent
}

func (p *recordingPublisher) PublishUserCreated(_ context.Context, e domain.UserCreatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, e)
	return nil
}

func (p *recordingPublisher) PublishUserLocked(_ context.Context, e domain.UserLockedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.locked = append(p.locked, e)
	return nil
}

func (p *recordingPublisher) PublishPasswordChanged(_ context.Context, e domain.PasswordChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changed = append(p.changed, e)
	return nil
}

func (p *recordingPublisher) PublishUserDeactivated(_ context.Context, e domain.UserDeactivatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deactivated = append(p.deactivated, e)
	return nil
}

var _ port.EventPublisher = (*recordingPublisher)(nil)

// memoryHistoryRepo is an in-memory append-only password history.
type memoryHistoryRepo struct {
	mu      sync.Mutex
	entries []domain.PasswordHistoryEntry
}

func (r *memoryHistoryRepo) ListRecent(_ context.Context, userID int64, limit int) ([]domain.PasswordHistoryEntry, error) {
	if limit <= 0 {
		return nil, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.PasswordHistoryEntry
	for i := len(r.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if r.entries[i].UserID == userID {
			out = append(out, r.entries[i])
		}
	}
	return out, nil
}

func (r *memoryHistoryRepo) Append(_ context.Context, entry domain.PasswordHistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

var _ port.PasswordHistoryRepository = (*memoryHistoryRepo)(nil)

func testPolicy(maxFailed, historySize, lockoutMinutes int) *security.PasswordPolicy {
	policy, err := security.NewPasswordPolicy(map[string]string{
		security.SettingMinLength:         "8",
		security.SettingMaxLength:         "64",
		security.SettingRequireUppercase:  "true",
		security.SettingRequireLowercase:  "true",
		security.SettingRequireNumbers:    "true",
		security.SettingRequireSpecial:    "true",
		security.SettingMaxFailedAttempts: strconv.Itoa(maxFailed),
		security.SettingHistorySize:       strconv.Itoa(historySize),
		security.SettingLockoutDuration:   strconv.Itoa(lockoutMinutes),
	})
	if err != nil {
		panic(err)
	}
	return policy
}

var errStub = errors.New("stub failure")
