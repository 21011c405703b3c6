package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/postfixrelay/psfxmail/internal/backend"
	"github.com/postfixrelay/psfxmail/internal/crypto"
	"github.com/postfixrelay/psfxmail/internal/database"
	"github.com/postfixrelay/psfxmail/internal/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuth struct {
	role  string
	calls int
}

func (f *fakeAuth) Login(_ context.Context, email, password string) (*backend.LoginResult, error) {
	f.calls++
	if password != "secret" {
		return nil, &backend.RejectedError{Message: "Invalid credentials"}
	}
	return &backend.LoginResult{Email: email, Token: "backend-token", Role: f.role}, nil
}

func newTestManager(t *testing.T, auth Authenticator) (*Manager, *database.DB) {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())

	enc, err := crypto.NewEncryptor("test-encryption-passphrase")
	require.NoError(t, err)
	return NewManager(db, enc, auth, time.Hour), db
}

func TestLoginAndLookup(t *testing.T) {
	m, db := newTestManager(t, &fakeAuth{role: "admin"})
	ctx := context.Background()

	token, sess, err := m.Login(ctx, "me@example.com", "secret", "127.0.0.1", "test")
	require.NoError(t, err)
	assert.Len(t, token, 64)
	assert.True(t, sess.IsAdmin())

	var stored string
	require.NoError(t, db.Get(&stored, `SELECT password_enc FROM sessions WHERE token_hash = ?`, HashToken(token)))
	assert.NotContains(t, stored, "secret")

	got, err := m.Lookup(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", got.Email)
	assert.Equal(t, backend.Credentials{Email: "me@example.com", Password: "secret", Token: "backend-token"}, got.Credentials())
	assert.Same(t, sess.List(), got.List())
}

func TestLoginRejected(t *testing.T) {
	auth := &fakeAuth{}
	m, _ := newTestManager(t, auth)

	_, _, err := m.Login(context.Background(), "me@example.com", "wrong", "", "")
	assert.ErrorIs(t, err, backend.ErrRejected)

	_, _, err = m.Login(context.Background(), "", "secret", "", "")
	assert.ErrorIs(t, err, ErrMissingCredentials)
	assert.Equal(t, 1, auth.calls)
}

func TestRoleDefaultsFromBackendClaim(t *testing.T) {
	m, _ := newTestManager(t, &fakeAuth{role: "user"})
	_, sess, err := m.Login(context.Background(), "admin@example.com", "secret", "", "")
	require.NoError(t, err)
	assert.False(t, sess.IsAdmin(), "role comes from the backend claim, not the address")
}

func TestLookupExpiredAndUnknown(t *testing.T) {
	m, _ := newTestManager(t, &fakeAuth{role: "user"})
	ctx := context.Background()

	token, _, err := m.Login(ctx, "me@example.com", "secret", "", "")
	require.NoError(t, err)

	m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = m.Lookup(ctx, token)
	assert.ErrorIs(t, err, ErrSessionExpired)

	_, err = m.Lookup(ctx, "")
	assert.ErrorIs(t, err, ErrSessionExpired)
	_, err = m.Lookup(ctx, "nope")
	assert.True(t, errors.Is(err, ErrSessionExpired))
}

func TestLogoutRevokes(t *testing.T) {
	m, _ := newTestManager(t, &fakeAuth{role: "user"})
	ctx := context.Background()

	token, _, err := m.Login(ctx, "me@example.com", "secret", "", "")
	require.NoError(t, err)
	require.NoError(t, m.Logout(ctx, token))

	_, err = m.Lookup(ctx, token)
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestCleanupExpiredDropsListState(t *testing.T) {
	m, _ := newTestManager(t, &fakeAuth{role: "user"})
	ctx := context.Background()

	_, sess, err := m.Login(ctx, "me@example.com", "secret", "", "")
	require.NoError(t, err)
	gen := sess.List().Begin()
	sess.List().Commit(gen, mail.Inbox, []mail.Mail{{UID: "1"}})

	m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	n, err := m.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	m.mu.Lock()
	assert.Empty(t, m.lists)
	m.mu.Unlock()
}
