package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrPasswordTooShort is returned for passwords under the minimum length.
var ErrPasswordTooShort = errors.New("password must be at least 6 characters long")

const minPasswordLength = 6

// ValidatePassword enforces the minimum password policy.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}

// HashPassword returns a bcrypt hash of the secret. Also used for one-time
// codes so that plaintext codes are never persisted.
func HashPassword(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword validates a secret against a stored bcrypt hash.
func CheckPassword(secret, stored string) bool {
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(secret)) == nil
}
