package usecase

import "sync"

// KeyedMutex hands out one mutex per key so that state transitions for the
// same account are linearized while unrelated accounts proceed in parallel.
// The authentication and password-change engines share a single instance so
// that a login attempt and a concurrent change on the same account serialize
// against each other. Mutexes are never evicted; the key space is bounded by
// the user population.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewKeyedMutex constructs an empty keyed mutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key, creating it on first use, and returns the
// matching unlock function.
func (k *KeyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// accountKey names the per-account lock. Both engines key by username, which
// never changes once an account exists.
func accountKey(username string) string {
	return "user:" + username
}
