package domain

import "time"

// UserStatus enumerates possible account states.
type UserStatus string

const (
	UserStatusActive      UserStatus = "ACTIVE"
	UserStatusLocked      UserStatus = "LOCKED"
	UserStatusDeactivated UserStatus = "DEACTIVATED"
)

// UserType classifies an account; informational for the authentication core.
type UserType string

const (
	UserTypeNormal UserType = "NORMAL"
	UserTypeAdmin  UserType = "ADMIN"
	UserTypeSystem UserType = "SYSTEM"
	UserTypeSuper  UserType = "SUPER"
)

// User mirrors the persisted representation in the users table. Instances are
// value snapshots; state transitions are committed through the narrow update
// methods on the user repository, never by writing the struct back wholesale.
type User struct {
	ID                     int64
	Name                   string
	Status                 UserStatus
	Type                   UserType
	PasswordHash           string
	PasswordExpiryDate     *time.Time
	NumFailedLoginAttempts int
	LockUntil              *time.Time
	IsFirstLogin           bool
	LastLoginAt            *time.Time
	ValidUntil             *time.Time
	CreatedBy              *int64
	CreatedAt              time.Time
	LastUpdatedBy          *int64
	LastUpdatedAt          time.Time
}

// IsPermanentlyLocked reports a LOCKED status with no lock_until timestamp,
// which only an administrative unlock can clear.
func (u User) IsPermanentlyLocked() bool {
	return u.Status == UserStatusLocked && u.LockUntil == nil
}

// IsTimedLocked reports a LOCKED status carrying a lock_until timestamp.
func (u User) IsTimedLocked() bool {
	return u.Status == UserStatusLocked && u.LockUntil != nil
}

// IsWithinValidity reports whether the account validity window covers the
// supplied moment. A nil valid_until means the account never expires.
func (u User) IsWithinValidity(at time.Time) bool {
	if u.ValidUntil == nil {
		return true
	}
	return !u.ValidUntil.Before(truncateToDay(at))
}

// HasExpiredPassword reports whether password_expiry_date lies strictly before
// the day of the supplied moment.
func (u User) HasExpiredPassword(at time.Time) bool {
	if u.PasswordExpiryDate == nil {
		return false
	}
	return u.PasswordExpiryDate.Before(truncateToDay(at))
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// PasswordHistoryEntry tracks historical password hashes for reuse prevention.
type PasswordHistoryEntry struct {
	UserID       int64
	PasswordHash string
	CreatedAt    time.Time
}
