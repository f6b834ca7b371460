package domain

import "time"

// UserCreatedEvent signals a new account provisioned by the onboarding job or
// an administrative operation.
type UserCreatedEvent struct {
	UserID     int64
	Username   string
	EmployeeID int64
	CreatedAt  time.Time
}

// UserLockedEvent signals a lockout transition.
type UserLockedEvent struct {
	UserID    int64
	Username  string
	Permanent bool
	LockedAt  time.Time
}

// PasswordChangedEvent signals a credential rotation.
type PasswordChangedEvent struct {
	UserID    int64
	ChangedBy int64
	Mandatory bool
	ChangedAt time.Time
}

// UserDeactivatedEvent signals an administrative deactivation.
type UserDeactivatedEvent struct {
	UserID        int64
	DeactivatedBy int64
	DeactivatedAt time.Time
}
