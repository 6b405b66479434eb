// Package auth provides cookie-session authentication and password
// verification for sudolite.
package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// PasswordVerifier checks a plaintext password against a stored credential.
type PasswordVerifier interface {
	Verify(password, credentialHash string) bool
}

// BcryptVerifier verifies bcrypt credential hashes.
type BcryptVerifier struct{}

// Verify implements PasswordVerifier.
func (BcryptVerifier) Verify(password, credentialHash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(credentialHash), []byte(password)) == nil
}

// HashPassword produces a bcrypt hash for a new credential.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
