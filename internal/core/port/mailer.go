package port

import "context"

// CredentialsMailer delivers the initial login credentials to a new hire.
// Implementations send a single message per call; retry policy belongs to the
// caller.
type CredentialsMailer interface {
	SendCredentials(ctx context.Context, to, username, password string) error
}
