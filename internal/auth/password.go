package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// bcryptCost matches the salt rounds used by every historical variant.
const bcryptCost = 12

// HashPassword hashes a plaintext password using bcrypt. The salt is
// embedded in the returned hash.
func HashPassword(password string) (string, error) {
	if len(password) == 0 {
		return "", errors.New("password is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword compares a plaintext password with a stored hash.
func VerifyPassword(hash, password string) error {
	if hash == "" {
		return errors.New("password hash is empty")
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// CheckPasswordPolicy enforces the single minimum-length policy shared by
// registration and reset-confirm.
func CheckPasswordPolicy(password string, minLen int) error {
	if len(password) < minLen {
		return fmt.Errorf("%w: password must contain at least %d characters", ErrInvalidInput, minLen)
	}
	return nil
}
