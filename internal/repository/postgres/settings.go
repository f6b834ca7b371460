package postgres

import (
	"context"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"

	"github.com/janis-gruettmueller/lightweight-erp-system/internal/core/port"
)

// SettingsRepository reads the password policy catalogue from
// password_settings_view.
type SettingsRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewSettingsRepository wires a PostgreSQL-backed settings repository.
func NewSettingsRepository(exec pgExecutor) *SettingsRepository {
	return &SettingsRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// LoadPasswordSettings returns the full key/value map. Called once at boot;
// the policy object built from it is immutable for the process lifetime.
func (r *SettingsRepository) LoadPasswordSettings(ctx context.Context) (map[string]string, error) {
	stmt, args, err := r.builder.
		Select("setting_key", "setting_value").
		From("password_settings_view").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select settings sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query password settings: %w", err)
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		settings[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate password settings: %w", err)
	}

	return settings, nil
}

var _ port.SettingsRepository = (*SettingsRepository)(nil)
