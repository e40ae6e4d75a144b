package auth

import "errors"

var (
	ErrNotFound     = errors.New("auth: not found")
	ErrConflict     = errors.New("auth: already exists")
	ErrInvalidInput = errors.New("auth: invalid input")
	ErrUnauthorized = errors.New("auth: unauthorized")

	// ErrInvalidToken covers bad signatures, malformed tokens and tokens
	// whose subject no longer resolves to an active user.
	ErrInvalidToken = errors.New("auth: invalid token")

	// ErrTokenExpired is returned for reset tokens past their window.
	ErrTokenExpired = errors.New("auth: token expired")
)
