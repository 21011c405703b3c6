package webmail

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/postfixrelay/psfxmail/internal/database"
	"github.com/postfixrelay/psfxmail/internal/mail"
)

const (
	draftStateSending  = "sending"
	draftStateSent     = "sent"
	draftStateDeleting = "deleting"
	draftStateDone     = "done"

	operationSendDraft = "sendDraft"

	// A claim older than this belongs to a request that died mid-step and
	// may be taken over.
	draftClaimTimeout = 2 * time.Minute
)

var draftKeyNamespace = uuid.MustParse("6f1c1d1e-8a4b-5c2d-9e3f-4a5b6c7d8e9f")

// DraftKey scopes an idempotency key to one account. Without a client key
// the draft uid is used, so retrying the same draft maps to the same record.
func DraftKey(email string, uid mail.UID, clientKey string) string {
	name := email + "\x00uid\x00" + string(uid)
	if clientKey != "" {
		name = email + "\x00key\x00" + clientKey
	}
	return uuid.NewSHA1(draftKeyNamespace, []byte(name)).String()
}

// DraftLedger records how far each send-draft got. A request owns a step
// only after claiming it: "sending" while the message goes out, "sent"
// once it did, "deleting" while the draft is removed and "done" after.
type DraftLedger struct {
	db  *database.DB
	now func() time.Time
}

// NewDraftLedger creates a ledger on the idempotency_keys table.
func NewDraftLedger(db *database.DB) *DraftLedger {
	return &DraftLedger{db: db, now: time.Now}
}

// State returns the recorded state for key, or "" when none exists.
func (l *DraftLedger) State(ctx context.Context, key string) (string, error) {
	var state string
	err := l.db.GetContext(ctx, &state, `SELECT state FROM idempotency_keys WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return state, err
}

// ClaimSend takes the send step for key. It reports false when another
// request holds it or the message already went out.
func (l *DraftLedger) ClaimSend(ctx context.Context, key, email string) (bool, error) {
	now := l.now()
	res, err := l.db.ExecContext(ctx, `
		INSERT INTO idempotency_keys (key, email, operation, state, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET updated_at = excluded.updated_at
		WHERE idempotency_keys.state = ? AND idempotency_keys.updated_at < ?
	`, key, email, operationSendDraft, draftStateSending, now.Unix(), now.Unix(),
		draftStateSending, now.Add(-draftClaimTimeout).Unix())
	return claimed(res, err)
}

// ReleaseSend drops a send claim after a failed send so a retry can try
// again.
func (l *DraftLedger) ReleaseSend(ctx context.Context, key string) error {
	_, err := l.db.ExecContext(ctx, `DELETE FROM idempotency_keys WHERE key = ? AND state = ?`, key, draftStateSending)
	return err
}

// ClaimDelete moves key from "sent" to "deleting". It reports false when
// another request is deleting or the draft is already gone.
func (l *DraftLedger) ClaimDelete(ctx context.Context, key string) (bool, error) {
	now := l.now()
	res, err := l.db.ExecContext(ctx, `
		UPDATE idempotency_keys SET state = ?, updated_at = ?
		WHERE key = ? AND (state = ? OR (state = ? AND updated_at < ?))
	`, draftStateDeleting, now.Unix(), key, draftStateSent, draftStateDeleting, now.Add(-draftClaimTimeout).Unix())
	return claimed(res, err)
}

// Mark records state for key.
func (l *DraftLedger) Mark(ctx context.Context, key, email, state string) error {
	now := l.now().Unix()
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO idempotency_keys (key, email, operation, state, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at
	`, key, email, operationSendDraft, state, now, now)
	return err
}

func claimed(res sql.Result, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
