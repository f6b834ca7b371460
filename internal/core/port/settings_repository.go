package port

import "context"

// SettingsRepository loads the password policy settings map from persistent
// configuration. It is read once at boot; dynamic reload is out of scope.
type SettingsRepository interface {
	LoadPasswordSettings(ctx context.Context) (map[string]string, error)
}
