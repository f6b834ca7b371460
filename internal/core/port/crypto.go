package port

// PasswordHasher produces and verifies adaptive salted password hashes. Hashes
// are opaque strings; no other component parses them.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	// Verify reports whether plain matches the stored hash. A malformed stored
	// hash is an error, a mismatch is (false, nil).
	Verify(plain, stored string) (bool, error)
	// DummyVerify burns the cost of a failed verification without a stored
	// hash, so a miss on the user lookup takes as long as a wrong password.
	DummyVerify(plain string)
}

// PasswordPolicy validates candidate passwords and generates compliant
// temporary ones.
type PasswordPolicy interface {
	IsValid(candidate string) bool
	Generate() (string, error)
}
