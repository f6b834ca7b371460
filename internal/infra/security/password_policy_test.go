package security

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func validSettings() map[string]string {
	return map[string]string{
		SettingMinLength:         "10",
		SettingMaxLength:         "64",
		SettingRequireUppercase:  "true",
		SettingRequireLowercase:  "true",
		SettingRequireNumbers:    "true",
		SettingRequireSpecial:    "true",
		SettingMaxFailedAttempts: "3",
		SettingHistorySize:       "5",
		SettingLockoutDuration:   "15",
	}
}

func TestNewPasswordPolicyParsesCatalogue(t *testing.T) {
	policy, err := NewPasswordPolicy(validSettings())
	if err != nil {
		t.Fatalf("NewPasswordPolicy returned error: %v", err)
	}

	if policy.MaxFailedAttempts() != 3 {
		t.Errorf("expected threshold 3, got %d", policy.MaxFailedAttempts())
	}
	if policy.HistorySize() != 5 {
		t.Errorf("expected history size 5, got %d", policy.HistorySize())
	}
	if policy.LockoutDuration() != 15*time.Minute {
		t.Errorf("expected lockout 15m, got %v", policy.LockoutDuration())
	}
}

func TestNewPasswordPolicyRejectsBadSettings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]string)
	}{
		{"missing key", func(s map[string]string) { delete(s, SettingMinLength) }},
		{"non-integer", func(s map[string]string) { s[SettingHistorySize] = "five" }},
		{"non-boolean", func(s map[string]string) { s[SettingRequireNumbers] = "yep" }},
		{"zero threshold", func(s map[string]string) { s[SettingMaxFailedAttempts] = "0" }},
		{"negative history", func(s map[string]string) { s[SettingHistorySize] = "-1" }},
		{"max below min", func(s map[string]string) { s[SettingMaxLength] = "4" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := validSettings()
			tt.mutate(settings)
			if _, err := NewPasswordPolicy(settings); !errors.Is(err, ErrConfig) {
				t.Fatalf("expected ErrConfig, got %v", err)
			}
		})
	}
}

func TestIsValid(t *testing.T) {
	policy, err := NewPasswordPolicy(validSettings())
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		candidate string
		want      bool
	}{
		{"compliant", "Aa1!bcdefg", true},
		{"empty", "", false},
		{"too short", "Aa1!bcd", false},
		{"too long", "Aa1!" + strings.Repeat("x", 70), false},
		{"no uppercase", "aa1!bcdefg", false},
		{"no lowercase", "AA1!BCDEFG", false},
		{"no digit", "Aab!bcdefg", false},
		{"no special", "Aa1bcdefgh", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := policy.IsValid(tt.candidate); got != tt.want {
				t.Errorf("IsValid(%q) = %v, want %v", tt.candidate, got, tt.want)
			}
		})
	}
}

func TestGenerateSatisfiesOwnPolicy(t *testing.T) {
	policy, err := NewPasswordPolicy(validSettings())
	if err != nil {
		t.Fatal(err)
	}

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		password, err := policy.Generate()
		if err != nil {
			t.Fatalf("Generate returned error: %v", err)
		}
		if len(password) != 10 {
			t.Fatalf("expected length 10, got %d (%q)", len(password), password)
		}
		if !policy.IsValid(password) {
			t.Fatalf("generated password violates policy: %q", password)
		}
		seen[password] = true
	}
	if len(seen) < 45 {
		t.Errorf("generator produced suspicious number of duplicates: %d unique of 50", len(seen))
	}
}

func TestGenerateRequiresACharacterClass(t *testing.T) {
	settings := validSettings()
	settings[SettingRequireUppercase] = "false"
	settings[SettingRequireLowercase] = "false"
	settings[SettingRequireNumbers] = "false"
	settings[SettingRequireSpecial] = "false"

	policy, err := NewPasswordPolicy(settings)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := policy.Generate(); !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}
