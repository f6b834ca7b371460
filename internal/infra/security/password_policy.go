package security

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"
)

// ErrConfig indicates the password settings map is unusable: a required key is
// missing or malformed, or the policy enables no character class at all.
// Fatal at construction.
var ErrConfig = errors.New("security: invalid password settings")

// Settings catalogue. These are the only recognised keys of the
// password_settings_view.
const (
	SettingMinLength         = "password.min_length"
	SettingMaxLength         = "password.max_length"
	SettingRequireUppercase  = "password.require_uppercase"
	SettingRequireLowercase  = "password.require_lowercase"
	SettingRequireNumbers    = "password.require_numbers"
	SettingRequireSpecial    = "password.require_special_characters"
	SettingMaxFailedAttempts = "password.num_failed_attempts_before_lockout"
	SettingHistorySize       = "password.history_size"
	SettingLockoutDuration   = "password.lockout_duration"
)

const (
	upperChars   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowerChars   = "abcdefghijklmnopqrstuvwxyz"
	digitChars   = "0123456789"
	specialChars = "!@#$%&*."
)

// maxGenerateAttempts bounds the regenerate loop against policies that no
// random draw can satisfy (e.g. min_length shorter than the number of
// required classes).
const maxGenerateAttempts = 128

// PasswordPolicy is the pure validator and generator driven by the persisted
// settings map. It also carries the lockout parameters the authentication
// engine reads from the same catalogue.
type PasswordPolicy struct {
	minLength         int
	maxLength         int
	requireUppercase  bool
	requireLowercase  bool
	requireNumbers    bool
	requireSpecial    bool
	maxFailedAttempts int
	historySize       int
	lockoutDuration   time.Duration
}

// NewPasswordPolicy parses the settings map loaded from the database. All nine
// catalogue keys are required; anything missing or malformed is ErrConfig.
func NewPasswordPolicy(settings map[string]string) (*PasswordPolicy, error) {
	p := &PasswordPolicy{}

	var err error
	if p.minLength, err = intSetting(settings, SettingMinLength); err != nil {
		return nil, err
	}
	if p.maxLength, err = intSetting(settings, SettingMaxLength); err != nil {
		return nil, err
	}
	if p.requireUppercase, err = boolSetting(settings, SettingRequireUppercase); err != nil {
		return nil, err
	}
	if p.requireLowercase, err = boolSetting(settings, SettingRequireLowercase); err != nil {
		return nil, err
	}
	if p.requireNumbers, err = boolSetting(settings, SettingRequireNumbers); err != nil {
		return nil, err
	}
	if p.requireSpecial, err = boolSetting(settings, SettingRequireSpecial); err != nil {
		return nil, err
	}
	if p.maxFailedAttempts, err = intSetting(settings, SettingMaxFailedAttempts); err != nil {
		return nil, err
	}
	if p.historySize, err = intSetting(settings, SettingHistorySize); err != nil {
		return nil, err
	}

	lockoutMinutes, err := intSetting(settings, SettingLockoutDuration)
	if err != nil {
		return nil, err
	}
	p.lockoutDuration = time.Duration(lockoutMinutes) * time.Minute

	if p.minLength < 1 || p.maxLength < p.minLength {
		return nil, fmt.Errorf("%w: implausible length bounds %d..%d", ErrConfig, p.minLength, p.maxLength)
	}
	if p.maxFailedAttempts < 1 {
		return nil, fmt.Errorf("%w: %s must be at least 1", ErrConfig, SettingMaxFailedAttempts)
	}
	if p.historySize < 0 {
		return nil, fmt.Errorf("%w: %s must not be negative", ErrConfig, SettingHistorySize)
	}

	return p, nil
}

func intSetting(settings map[string]string, key string) (int, error) {
	raw, ok := settings[key]
	if !ok {
		return 0, fmt.Errorf("%w: missing %s", ErrConfig, key)
	}
	val, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: %s is not an integer: %q", ErrConfig, key, raw)
	}
	return val, nil
}

func boolSetting(settings map[string]string, key string) (bool, error) {
	raw, ok := settings[key]
	if !ok {
		return false, fmt.Errorf("%w: missing %s", ErrConfig, key)
	}
	val, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false, fmt.Errorf("%w: %s is not a boolean: %q", ErrConfig, key, raw)
	}
	return val, nil
}

// MaxFailedAttempts returns the lockout threshold.
func (p *PasswordPolicy) MaxFailedAttempts() int { return p.maxFailedAttempts }

// HistorySize returns the number of recent hashes consulted to block reuse.
func (p *PasswordPolicy) HistorySize() int { return p.historySize }

// LockoutDuration returns the length of the timed lockout window.
func (p *PasswordPolicy) LockoutDuration() time.Duration { return p.lockoutDuration }

// IsValid reports whether the candidate satisfies the configured policy. Pure;
// no I/O.
func (p *PasswordPolicy) IsValid(candidate string) bool {
	if candidate == "" {
		return false
	}
	if len(candidate) < p.minLength || len(candidate) > p.maxLength {
		return false
	}
	if p.requireUppercase && !strings.ContainsAny(candidate, upperChars) {
		return false
	}
	if p.requireLowercase && !strings.ContainsAny(candidate, lowerChars) {
		return false
	}
	if p.requireNumbers && !strings.ContainsAny(candidate, digitChars) {
		return false
	}
	if p.requireSpecial && !strings.ContainsAny(candidate, specialChars) {
		return false
	}
	return true
}

// Generate returns a policy-compliant password of length min_length drawn
// uniformly from the union of the enabled character classes using a
// cryptographically secure source.
func (p *PasswordPolicy) Generate() (string, error) {
	var alphabet string
	if p.requireUppercase {
		alphabet += upperChars
	}
	if p.requireLowercase {
		alphabet += lowerChars
	}
	if p.requireNumbers {
		alphabet += digitChars
	}
	if p.requireSpecial {
		alphabet += specialChars
	}
	if alphabet == "" {
		return "", fmt.Errorf("%w: no character class enabled", ErrConfig)
	}

	for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
		candidate, err := randomString(alphabet, p.minLength)
		if err != nil {
			return "", err
		}
		if p.IsValid(candidate) {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("%w: policy is not satisfiable by generation", ErrConfig)
}

func randomString(alphabet string, length int) (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	out := make([]byte, length)
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("draw random index: %w", err)
		}
		out[i] = alphabet[idx.Int64()]
	}
	return string(out), nil
}
