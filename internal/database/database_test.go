package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "nested", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())
	return db
}

func TestMigrateIsRepeatable(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Migrate())

	var tables []string
	require.NoError(t, db.Select(&tables, `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`))
	assert.Equal(t, []string{"audit_log", "idempotency_keys", "sessions"}, tables)
}

func TestPurgeAuditLog(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	old := time.Now().Add(-100 * 24 * time.Hour).Unix()
	recent := time.Now().Unix()
	for _, ts := range []int64{old, recent} {
		_, err := db.Exec(`INSERT INTO audit_log (created_at, action, status) VALUES (?, 'mail.send', 'success')`, ts)
		require.NoError(t, err)
	}

	n, err := db.PurgeAuditLog(ctx, 90*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var left int
	require.NoError(t, db.Get(&left, `SELECT COUNT(*) FROM audit_log`))
	assert.Equal(t, 1, left)
}
