// Package session keeps webmail logins server-side. The browser only ever
// holds an opaque token; the mailbox password lives encrypted in the
// sessions table.
package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/postfixrelay/psfxmail/internal/backend"
	"github.com/postfixrelay/psfxmail/internal/crypto"
	"github.com/postfixrelay/psfxmail/internal/database"
	"github.com/postfixrelay/psfxmail/internal/mail"
	"github.com/rs/zerolog/log"
)

var (
	// ErrSessionExpired is returned for unknown, expired or revoked tokens.
	ErrSessionExpired = errors.New("session expired")
	// ErrMissingCredentials is returned when email or password is empty.
	ErrMissingCredentials = errors.New("email and password are required")
)

// RoleAdmin is the role claim that unlocks the admin dashboard.
const RoleAdmin = "admin"

// Authenticator verifies mailbox credentials against the backend.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*backend.LoginResult, error)
}

// Session is an authenticated webmail login.
type Session struct {
	TokenHash string
	Email     string
	Role      string
	ExpiresAt time.Time

	creds backend.Credentials
	list  *mail.ListState
}

// Credentials returns the capability used for backend calls.
func (s *Session) Credentials() backend.Credentials { return s.creds }

// List returns the message list last shown to this session.
func (s *Session) List() *mail.ListState { return s.list }

// IsAdmin reports whether the backend asserted the admin role at login.
func (s *Session) IsAdmin() bool { return s.Role == RoleAdmin }

type row struct {
	TokenHash       string `db:"token_hash"`
	Email           string `db:"email"`
	Role            string `db:"role"`
	PasswordEnc     string `db:"password_enc"`
	BackendTokenEnc string `db:"backend_token_enc"`
	ExpiresAt       int64  `db:"expires_at"`
}

// Manager issues, resolves and expires sessions.
type Manager struct {
	db   *database.DB
	enc  *crypto.Encryptor
	auth Authenticator
	ttl  time.Duration
	now  func() time.Time

	mu    sync.Mutex
	lists map[string]*mail.ListState
}

// NewManager creates a session manager.
func NewManager(db *database.DB, enc *crypto.Encryptor, auth Authenticator, ttl time.Duration) *Manager {
	return &Manager{
		db:    db,
		enc:   enc,
		auth:  auth,
		ttl:   ttl,
		now:   time.Now,
		lists: make(map[string]*mail.ListState),
	}
}

// Login checks the credentials with the backend and opens a session. It
// returns the raw token for the cookie; only its hash is stored.
func (m *Manager) Login(ctx context.Context, email, password, ip, userAgent string) (string, *Session, error) {
	if email == "" || password == "" {
		return "", nil, ErrMissingCredentials
	}

	res, err := m.auth.Login(ctx, email, password)
	if err != nil {
		return "", nil, err
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", nil, fmt.Errorf("generate session token: %w", err)
	}
	token := hex.EncodeToString(tokenBytes)
	tokenHash := HashToken(token)

	passwordEnc, err := m.enc.Encrypt(password)
	if err != nil {
		return "", nil, fmt.Errorf("encrypt password: %w", err)
	}
	backendTokenEnc, err := m.enc.Encrypt(res.Token)
	if err != nil {
		return "", nil, fmt.Errorf("encrypt backend token: %w", err)
	}

	now := m.now()
	expiresAt := now.Add(m.ttl)
	_, err = m.db.ExecContext(ctx, `
		INSERT INTO sessions (token_hash, email, role, password_enc, backend_token_enc, created_at, expires_at, last_activity, ip_address, user_agent)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, tokenHash, email, res.Role, passwordEnc, backendTokenEnc, now.Unix(), expiresAt.Unix(), now.Unix(), ip, userAgent)
	if err != nil {
		return "", nil, fmt.Errorf("create session: %w", err)
	}

	log.Info().Str("email", email).Str("role", res.Role).Msg("Mail session opened")

	return token, &Session{
		TokenHash: tokenHash,
		Email:     email,
		Role:      res.Role,
		ExpiresAt: expiresAt,
		creds:     backend.Credentials{Email: email, Password: password, Token: res.Token},
		list:      m.listFor(tokenHash),
	}, nil
}

// Lookup resolves a raw token to its live session.
func (m *Manager) Lookup(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrSessionExpired
	}
	tokenHash := HashToken(token)
	now := m.now()

	var r row
	err := m.db.GetContext(ctx, &r, `
		SELECT token_hash, email, role, password_enc, backend_token_enc, expires_at
		FROM sessions WHERE token_hash = ? AND expires_at > ?
	`, tokenHash, now.Unix())
	if errors.Is(err, sql.ErrNoRows) {
		m.dropList(tokenHash)
		return nil, ErrSessionExpired
	}
	if err != nil {
		return nil, fmt.Errorf("lookup session: %w", err)
	}

	password, err := m.enc.Decrypt(r.PasswordEnc)
	if err != nil {
		return nil, fmt.Errorf("decrypt session credentials: %w", err)
	}
	backendToken, err := m.enc.Decrypt(r.BackendTokenEnc)
	if err != nil {
		return nil, fmt.Errorf("decrypt session credentials: %w", err)
	}

	_, _ = m.db.ExecContext(ctx, `UPDATE sessions SET last_activity = ? WHERE token_hash = ?`, now.Unix(), tokenHash)

	return &Session{
		TokenHash: r.TokenHash,
		Email:     r.Email,
		Role:      r.Role,
		ExpiresAt: time.Unix(r.ExpiresAt, 0),
		creds:     backend.Credentials{Email: r.Email, Password: password, Token: backendToken},
		list:      m.listFor(tokenHash),
	}, nil
}

// Logout revokes the session behind token.
func (m *Manager) Logout(ctx context.Context, token string) error {
	tokenHash := HashToken(token)
	m.dropList(tokenHash)
	if _, err := m.db.ExecContext(ctx, `DELETE FROM sessions WHERE token_hash = ?`, tokenHash); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// CleanupExpired deletes expired sessions and forgets their list state.
func (m *Manager) CleanupExpired(ctx context.Context) (int64, error) {
	now := m.now().Unix()

	var expired []string
	if err := m.db.SelectContext(ctx, &expired, `SELECT token_hash FROM sessions WHERE expires_at <= ?`, now); err != nil {
		return 0, fmt.Errorf("find expired sessions: %w", err)
	}
	res, err := m.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	for _, h := range expired {
		m.dropList(h)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Run removes expired sessions every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := m.CleanupExpired(ctx)
			if err != nil {
				log.Error().Err(err).Msg("Session cleanup failed")
				continue
			}
			if n > 0 {
				log.Debug().Int64("count", n).Msg("Cleaned up expired mail sessions")
			}
		}
	}
}

func (m *Manager) listFor(tokenHash string) *mail.ListState {
	m.mu.Lock()
	defer m.mu.Unlock()
	ls, ok := m.lists[tokenHash]
	if !ok {
		ls = &mail.ListState{}
		m.lists[tokenHash] = ls
	}
	return ls
}

func (m *Manager) dropList(tokenHash string) {
	m.mu.Lock()
	delete(m.lists, tokenHash)
	m.mu.Unlock()
}

// HashToken is the storage form of a session token.
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
