package usecase

import "errors"

// Sentinel errors surfaced by the credential and account services. The HTTP
// layer maps these onto status codes; anything else is an internal failure.
var (
	// ErrNotAllowed rejects an operation the acting user may not perform on
	// the subject account.
	ErrNotAllowed = errors.New("usecase: operation not allowed")

	// ErrConfirmationMismatch rejects a password change whose confirmation
	// does not repeat the new password exactly.
	ErrConfirmationMismatch = errors.New("usecase: password confirmation does not match")

	// ErrPolicyViolation rejects a candidate password that fails the active
	// password policy.
	ErrPolicyViolation = errors.New("usecase: password does not satisfy policy")

	// ErrPasswordReused rejects a candidate that matches one of the recent
	// password hashes on record.
	ErrPasswordReused = errors.New("usecase: password was used recently")

	// ErrInvalidOldPassword rejects a voluntary change attested with a wrong
	// current password.
	ErrInvalidOldPassword = errors.New("usecase: current password is incorrect")

	// ErrUserNotFound reports that the subject account does not exist.
	ErrUserNotFound = errors.New("usecase: user not found")
)
