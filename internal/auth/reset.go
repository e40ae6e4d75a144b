package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"time"

	"restomap.org/internal/obs"
)

const (
	defaultResetWindow = 15 * time.Minute

	// 32 random bytes, 256 bits of entropy per reset token.
	resetTokenBytes = 32
)

// ResetMailer delivers the reset link to the account owner. Implementations
// live in internal/mail; tests supply fakes.
type ResetMailer interface {
	SendResetLink(ctx context.Context, to, link string) error
}

// ResetService drives the password-reset token lifecycle: request issues a
// single live token per user, verify checks it read-only, confirm consumes
// it exactly once. A background sweep bounds storage growth.
type ResetService struct {
	store  Store
	mailer ResetMailer

	window         time.Duration
	minPasswordLen int
	baseURL        string
	now            func() time.Time
}

// ResetOption configures a ResetService.
type ResetOption func(*ResetService)

// WithResetWindow overrides the 15-minute validity window.
func WithResetWindow(d time.Duration) ResetOption {
	return func(rs *ResetService) {
		if d > 0 {
			rs.window = d
		}
	}
}

// WithResetMinPasswordLen aligns the confirm-step policy with registration.
func WithResetMinPasswordLen(n int) ResetOption {
	return func(rs *ResetService) {
		if n > 0 {
			rs.minPasswordLen = n
		}
	}
}

// WithResetClock overrides the time source (useful for tests).
func WithResetClock(fn func() time.Time) ResetOption {
	return func(rs *ResetService) {
		if fn != nil {
			rs.now = fn
		}
	}
}

// NewResetService constructs a ResetService. baseURL is the public origin
// embedded in emailed links.
func NewResetService(store Store, mailer ResetMailer, baseURL string, opts ...ResetOption) (*ResetService, error) {
	if store == nil {
		return nil, errors.New("auth: store is required")
	}
	if mailer == nil {
		return nil, errors.New("auth: mailer is required")
	}
	rs := &ResetService{
		store:          store,
		mailer:         mailer,
		window:         defaultResetWindow,
		minPasswordLen: defaultMinPasswordLen,
		baseURL:        baseURL,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(rs)
	}
	return rs, nil
}

// Window exposes the configured validity window.
func (rs *ResetService) Window() time.Duration { return rs.window }

// Request issues a new reset token for the account behind email, invalidating
// any previous token, and emails the reset link. A send failure rolls the
// persisted token back so no orphaned live token remains.
func (rs *ResetService) Request(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	if !ValidEmail(email) {
		return fmt.Errorf("%w: malformed email", ErrInvalidInput)
	}
	user, err := rs.store.Users().FindByEmail(ctx, email)
	if err != nil {
		return err
	}

	token, err := newResetSecret()
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}

	// Unconditional delete-then-insert: under concurrent requests the last
	// insert wins, which keeps only the most recent link usable.
	tokens := rs.store.ResetTokens()
	if err := tokens.DeleteForUser(ctx, user.ID); err != nil {
		return err
	}
	record := &ResetToken{
		Token:     token,
		Email:     email,
		UserID:    user.ID,
		CreatedAt: rs.now().UTC(),
	}
	if err := tokens.Create(ctx, record); err != nil {
		return err
	}

	link := rs.baseURL + "/reset-password?token=" + url.QueryEscape(token)
	if err := rs.mailer.SendResetLink(ctx, email, link); err != nil {
		_ = tokens.DeleteByID(ctx, record.ID)
		return fmt.Errorf("send reset email: %w", err)
	}
	return nil
}

// Verify checks a token read-only and returns the associated email.
// An expired token is deleted and reported as ErrTokenExpired.
func (rs *ResetService) Verify(ctx context.Context, token string) (string, error) {
	record, err := rs.lookup(ctx, token)
	if err != nil {
		return "", err
	}
	return record.Email, nil
}

// Confirm consumes a token exactly once: it validates the new password,
// rewrites the user's hash and deletes the token record. Failures other than
// expiry leave the token intact so a legitimate retry stays possible.
func (rs *ResetService) Confirm(ctx context.Context, token, newPassword string) error {
	record, err := rs.lookup(ctx, token)
	if err != nil {
		return err
	}
	if err := CheckPasswordPolicy(newPassword, rs.minPasswordLen); err != nil {
		return err
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := rs.store.Users().UpdatePassword(ctx, record.UserID, hash); err != nil {
		return err
	}
	return rs.store.ResetTokens().DeleteByID(ctx, record.ID)
}

func (rs *ResetService) lookup(ctx context.Context, token string) (*ResetToken, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	record, err := rs.store.ResetTokens().FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if record.ExpiredAt(rs.now().UTC(), rs.window) {
		_ = rs.store.ResetTokens().DeleteByID(ctx, record.ID)
		return nil, ErrTokenExpired
	}
	return record, nil
}

// Sweep deletes reset tokens past the validity window. It is idempotent and
// safe to run concurrently with request-triggered deletes.
func (rs *ResetService) Sweep(ctx context.Context) (int64, error) {
	cutoff := rs.now().UTC().Add(-rs.window)
	return rs.store.ResetTokens().DeleteExpired(ctx, cutoff)
}

// RunSweeper runs Sweep every interval until ctx is canceled. Errors are
// logged and never crash the process.
func (rs *ResetService) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := rs.Sweep(ctx)
			if err != nil {
				obs.LogEvent("error", "reset_sweep_failed", map[string]any{"error": err.Error()})
				continue
			}
			obs.ObserveSweep(deleted)
			if deleted > 0 {
				obs.LogEvent("info", "reset_sweep_complete", map[string]any{"deleted": deleted})
			}
		}
	}
}

func newResetSecret() (string, error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
