package domain

import "time"

// Change reasons stored on a remedial session while the mandatory password
// change is pending.
const (
	ChangeReasonFirstLogin      = "First Login"
	ChangeReasonPasswordExpired = "Password Expired"
)

// Session is the server-side session record. UserID is set only after a fully
// consummated login; during a pending mandatory change the session instead
// carries the one-shot TempToken together with the username and the reason the
// change is required.
type Session struct {
	ID           string
	UserID       *int64
	TempToken    string
	ChangeReason string
	Username     string
	CreatedAt    time.Time
	LastSeenAt   time.Time
	MaxInactive  time.Duration
}

// IsAuthenticated reports whether the session is pinned to a user.
func (s Session) IsAuthenticated() bool {
	return s.UserID != nil
}

// IsPendingChange reports whether the session holds a one-shot token for a
// mandatory password change.
func (s Session) IsPendingChange() bool {
	return s.TempToken != ""
}
