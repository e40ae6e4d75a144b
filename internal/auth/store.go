package auth

import (
	"context"
	"time"
)

// UserStore persists user records. Implementations must normalize nothing:
// callers pass already-normalized emails.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	TouchLastLogin(ctx context.Context, userID string, at time.Time) error
	SetRole(ctx context.Context, userID, role string) error
	SetStatus(ctx context.Context, userID, status string) error
	Delete(ctx context.Context, userID string) error

	Count(ctx context.Context) (int64, error)
	CountRegisteredSince(ctx context.Context, since time.Time) (int64, error)
	CountActiveSince(ctx context.Context, since time.Time) (int64, error)
	MonthlyRegistrations(ctx context.Context, months int) ([]MonthlyCount, error)
	Latest(ctx context.Context, n int) ([]User, error)
	List(ctx context.Context, offset, limit int) ([]User, error)
}

// ResetTokenStore persists password-reset tokens. All mutations are
// single-row and atomic; the at-most-one-live-token invariant is enforced by
// DeleteForUser followed by Create.
type ResetTokenStore interface {
	Create(ctx context.Context, t *ResetToken) error
	FindByToken(ctx context.Context, token string) (*ResetToken, error)
	DeleteByID(ctx context.Context, id string) error
	DeleteForUser(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// Store aggregates the persistence surfaces required by the auth subsystem.
type Store interface {
	Users() UserStore
	ResetTokens() ResetTokenStore
}
