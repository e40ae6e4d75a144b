package auth

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const defaultMinPasswordLen = 6

// Service implements registration, login and token-based authentication on
// top of a Store and a TokenIssuer. It keeps no mutable in-process state.
type Service struct {
	store  Store
	tokens *TokenIssuer

	minPasswordLen int
	now            func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithMinPasswordLen overrides the minimum password length applied to both
// registration and password reset.
func WithMinPasswordLen(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.minPasswordLen = n
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs a Service.
func NewService(store Store, tokens *TokenIssuer, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("auth: store is required")
	}
	if tokens == nil {
		return nil, errors.New("auth: token issuer is required")
	}
	s := &Service{
		store:          store,
		tokens:         tokens,
		minPasswordLen: defaultMinPasswordLen,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// MinPasswordLen exposes the active policy so handlers can echo it in
// validation messages.
func (s *Service) MinPasswordLen() int { return s.minPasswordLen }

// Register creates an account and returns it with a freshly issued token.
// A duplicate email fails with ErrConflict regardless of case.
func (s *Service) Register(ctx context.Context, email, password string) (*User, string, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, "", fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}
	if !ValidEmail(email) {
		return nil, "", fmt.Errorf("%w: malformed email", ErrInvalidInput)
	}
	if err := CheckPasswordPolicy(password, s.minPasswordLen); err != nil {
		return nil, "", err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	user := &User{
		Email:        email,
		PasswordHash: hash,
		Role:         RoleStandard,
		Status:       StatusActive,
		RegisteredAt: s.now().UTC(),
	}
	if err := s.store.Users().Create(ctx, user); err != nil {
		return nil, "", err
	}

	token, _, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Login validates credentials and returns the user with a new token.
// Bad credentials and disabled accounts are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (*User, string, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, "", ErrUnauthorized
	}
	user, err := s.store.Users().FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, "", ErrUnauthorized
		}
		return nil, "", err
	}
	if user.Status != StatusActive {
		return nil, "", ErrUnauthorized
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return nil, "", ErrUnauthorized
	}

	now := s.now().UTC()
	if err := s.store.Users().TouchLastLogin(ctx, user.ID, now); err != nil {
		return nil, "", err
	}
	user.LastLoginAt = &now

	token, _, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// AuthenticateToken resolves a bearer token to an active user. The user is
// re-resolved from the store on every call, so disabling an account takes
// effect before the token's natural expiry.
func (s *Service) AuthenticateToken(ctx context.Context, token string) (*User, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	user, err := s.store.Users().Find(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if user.Status != StatusActive {
		return nil, ErrUnauthorized
	}
	return user, nil
}

// Stats aggregates the counters for the admin dashboard.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	users := s.store.Users()
	now := s.now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	var (
		stats Stats
		err   error
	)
	if stats.TotalUsers, err = users.Count(ctx); err != nil {
		return Stats{}, err
	}
	if stats.NewThisMonth, err = users.CountRegisteredSince(ctx, monthStart); err != nil {
		return Stats{}, err
	}
	if stats.ActiveLastDay, err = users.CountActiveSince(ctx, now.Add(-24*time.Hour)); err != nil {
		return Stats{}, err
	}
	if stats.NewThisWeek, err = users.CountRegisteredSince(ctx, now.Add(-7*24*time.Hour)); err != nil {
		return Stats{}, err
	}
	if stats.MonthlySignups, err = users.MonthlyRegistrations(ctx, 6); err != nil {
		return Stats{}, err
	}
	if stats.LatestUsers, err = users.Latest(ctx, 5); err != nil {
		return Stats{}, err
	}
	return stats, nil
}

// EnsureAdmin provisions the administrator account used to reach the admin
// routes. If no account exists for email, one is created with the admin role;
// an existing standard account is promoted in place and keeps its password.
// Idempotent, so it is safe to run on every deploy.
func EnsureAdmin(ctx context.Context, store Store, email, password string) (created bool, err error) {
	email = NormalizeEmail(email)
	if !ValidEmail(email) {
		return false, fmt.Errorf("%w: malformed email", ErrInvalidInput)
	}

	users := store.Users()
	user, err := users.FindByEmail(ctx, email)
	if err == nil {
		if user.IsAdmin() {
			return false, nil
		}
		return false, users.SetRole(ctx, user.ID, RoleAdmin)
	}
	if !errors.Is(err, ErrNotFound) {
		return false, err
	}

	if err := CheckPasswordPolicy(password, defaultMinPasswordLen); err != nil {
		return false, err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}
	admin := &User{
		Email:        email,
		PasswordHash: hash,
		Role:         RoleAdmin,
		Status:       StatusActive,
		RegisteredAt: time.Now().UTC(),
	}
	if err := users.Create(ctx, admin); err != nil {
		return false, err
	}
	return true, nil
}

// ListUsers returns one page of the admin user listing.
func (s *Service) ListUsers(ctx context.Context, page, limit int) (UserPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}
	users := s.store.Users()
	list, err := users.List(ctx, (page-1)*limit, limit)
	if err != nil {
		return UserPage{}, err
	}
	total, err := users.Count(ctx)
	if err != nil {
		return UserPage{}, err
	}
	pages := total / int64(limit)
	if total%int64(limit) != 0 {
		pages++
	}
	return UserPage{Users: list, Page: page, Limit: limit, Total: total, Pages: pages}, nil
}
