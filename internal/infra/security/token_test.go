package security

import "testing"

func TestGenerateSecureTokenLengthAndUniqueness(t *testing.T) {
	if _, err := GenerateSecureToken(0); err == nil {
		t.Error("expected error for non-positive length")
	}

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := GenerateSessionID()
		if err != nil {
			t.Fatalf("GenerateSessionID returned error: %v", err)
		}
		// 32 bytes encode to 43 characters without padding.
		if len(token) != 43 {
			t.Fatalf("unexpected token length %d", len(token))
		}
		if seen[token] {
			t.Fatalf("duplicate token after %d draws", i)
		}
		seen[token] = true
	}
}

func TestConstantTimeEquals(t *testing.T) {
	if !ConstantTimeEquals("abc", "abc") {
		t.Error("equal strings must compare equal")
	}
	if ConstantTimeEquals("abc", "abd") {
		t.Error("different strings must not compare equal")
	}
	if ConstantTimeEquals("abc", "abcd") {
		t.Error("different lengths must not compare equal")
	}
}
