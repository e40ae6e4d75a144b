package auth

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testBaseURL = "http://localhost:8080"

func newTestResetService(t *testing.T, store Store, mailer ResetMailer, opts ...ResetOption) *ResetService {
	t.Helper()
	rs, err := NewResetService(store, mailer, testBaseURL, opts...)
	require.NoError(t, err)
	return rs
}

func seedUser(t *testing.T, store Store, email, password string) *User {
	t.Helper()
	hash, err := HashPassword(password)
	require.NoError(t, err)
	u := &User{Email: email, PasswordHash: hash, Role: RoleStandard, Status: StatusActive, RegisteredAt: time.Now().UTC()}
	require.NoError(t, store.Users().Create(context.Background(), u))
	return u
}

func sentToken(t *testing.T, link string) string {
	t.Helper()
	u, err := url.Parse(link)
	require.NoError(t, err)
	token := u.Query().Get("token")
	require.NotEmpty(t, token)
	return token
}

func TestResetRequestEmailsLink(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	mailer := &recordingMailer{}
	rs := newTestResetService(t, store, mailer)
	user := seedUser(t, store, "marie@example.fr", "motdepasse")

	require.NoError(t, rs.Request(ctx, " Marie@Example.FR "))
	require.Equal(t, []string{"marie@example.fr"}, mailer.to)
	require.Len(t, mailer.links, 1)
	require.True(t, strings.HasPrefix(mailer.links[0], testBaseURL+"/reset-password?token="))

	token := sentToken(t, mailer.links[0])
	record, err := store.ResetTokens().FindByToken(ctx, token)
	require.NoError(t, err)
	require.Equal(t, user.ID, record.UserID)
	require.Equal(t, "marie@example.fr", record.Email)
}

func TestResetRequestUnknownEmail(t *testing.T) {
	rs := newTestResetService(t, newMemStore(), &recordingMailer{})
	err := rs.Request(context.Background(), "inconnu@example.fr")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestResetRequestMalformedEmail(t *testing.T) {
	rs := newTestResetService(t, newMemStore(), &recordingMailer{})
	err := rs.Request(context.Background(), "pas-un-email")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestResetRequestReplacesPreviousToken(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	mailer := &recordingMailer{}
	rs := newTestResetService(t, store, mailer)
	user := seedUser(t, store, "marie@example.fr", "motdepasse")

	require.NoError(t, rs.Request(ctx, "marie@example.fr"))
	require.NoError(t, rs.Request(ctx, "marie@example.fr"))
	require.Len(t, mailer.links, 2)

	// Only the second link survives.
	require.Equal(t, 1, store.tokenCountForUser(user.ID))

	first := sentToken(t, mailer.links[0])
	_, err := rs.Verify(ctx, first)
	require.ErrorIs(t, err, ErrInvalidToken)

	second := sentToken(t, mailer.links[1])
	email, err := rs.Verify(ctx, second)
	require.NoError(t, err)
	require.Equal(t, "marie@example.fr", email)
}

func TestResetRequestMailFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	mailer := &recordingMailer{err: errors.New("smtp down")}
	rs := newTestResetService(t, store, mailer)
	user := seedUser(t, store, "marie@example.fr", "motdepasse")

	err := rs.Request(ctx, "marie@example.fr")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotFound)
	require.Equal(t, 0, store.tokenCountForUser(user.ID))
}

func TestResetConfirmConsumesToken(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	mailer := &recordingMailer{}
	rs := newTestResetService(t, store, mailer)
	user := seedUser(t, store, "marie@example.fr", "ancienmotdepasse")

	require.NoError(t, rs.Request(ctx, "marie@example.fr"))
	token := sentToken(t, mailer.links[0])

	require.NoError(t, rs.Confirm(ctx, token, "nouveaumotdepasse"))

	updated, err := store.Users().Find(ctx, user.ID)
	require.NoError(t, err)
	require.NoError(t, VerifyPassword(updated.PasswordHash, "nouveaumotdepasse"))
	require.Error(t, VerifyPassword(updated.PasswordHash, "ancienmotdepasse"))

	// Single use: the same token is dead afterwards.
	err = rs.Confirm(ctx, token, "encoreunautre")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestResetConfirmWeakPasswordKeepsToken(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	mailer := &recordingMailer{}
	rs := newTestResetService(t, store, mailer)
	seedUser(t, store, "marie@example.fr", "motdepasse")

	require.NoError(t, rs.Request(ctx, "marie@example.fr"))
	token := sentToken(t, mailer.links[0])

	err := rs.Confirm(ctx, token, "abc")
	require.ErrorIs(t, err, ErrInvalidInput)

	// Token stays live so the user can retry with a valid password.
	_, err = rs.Verify(ctx, token)
	require.NoError(t, err)
	require.NoError(t, rs.Confirm(ctx, token, "motdepassevalide"))
}

func TestResetExpiry(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	mailer := &recordingMailer{}

	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	rs := newTestResetService(t, store, mailer, WithResetClock(clock))
	user := seedUser(t, store, "marie@example.fr", "motdepasse")

	require.NoError(t, rs.Request(ctx, "marie@example.fr"))
	token := sentToken(t, mailer.links[0])

	// Still valid just inside the window.
	now = now.Add(14 * time.Minute)
	_, err := rs.Verify(ctx, token)
	require.NoError(t, err)

	// Past the window the token is reported expired and deleted.
	now = now.Add(2 * time.Minute)
	_, err = rs.Verify(ctx, token)
	require.ErrorIs(t, err, ErrTokenExpired)
	require.Equal(t, 0, store.tokenCountForUser(user.ID))

	// Subsequent use reads as plain invalid, not expired.
	_, err = rs.Verify(ctx, token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestResetSweep(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	mailer := &recordingMailer{}

	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	rs := newTestResetService(t, store, mailer, WithResetClock(clock))

	seedUser(t, store, "a@example.fr", "motdepasse")
	seedUser(t, store, "b@example.fr", "motdepasse")
	require.NoError(t, rs.Request(ctx, "a@example.fr"))

	now = now.Add(20 * time.Minute)
	require.NoError(t, rs.Request(ctx, "b@example.fr"))

	deleted, err := rs.Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)

	// The fresh token survives the sweep.
	token := sentToken(t, mailer.links[1])
	_, err = rs.Verify(ctx, token)
	require.NoError(t, err)

	// Sweep is idempotent.
	deleted, err = rs.Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(0), deleted)
}

func TestResetCustomWindow(t *testing.T) {
	rs := newTestResetService(t, newMemStore(), &recordingMailer{}, WithResetWindow(time.Hour))
	require.Equal(t, time.Hour, rs.Window())
}
