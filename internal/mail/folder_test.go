package mail

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeMailboxName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "INBOX"},
		{"inbox", "INBOX"},
		{"Inbox", "INBOX"},
		{"sent", "Sent"},
		{"trash", "Trash"},
		{"DELETED", "Trash"},
		{"archive", "Archive"},
		{"archived", "Archive"},
		{"All Mail", "Archive"},
		{"draft", "Drafts"},
		{"drafts", "Drafts"},
		{"Receipts", "Receipts"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeMailboxName(tt.in))
		})
	}
}

func TestFolderMailboxIsTotal(t *testing.T) {
	for _, f := range Folders {
		assert.True(t, f.Valid())
		assert.NotEmpty(t, f.Mailbox(), f.String())

		parsed, err := ParseFolder(f.Mailbox())
		require.NoError(t, err)
		assert.Equal(t, f, parsed)

		parsed, err = ParseFolder(f.String())
		require.NoError(t, err)
		assert.Equal(t, f, parsed)
	}
}

func TestParseFolderAliases(t *testing.T) {
	f, err := ParseFolder(" All Mail ")
	require.NoError(t, err)
	assert.Equal(t, Archived, f)

	f, err = ParseFolder("DELETED")
	require.NoError(t, err)
	assert.Equal(t, Trash, f)

	_, err = ParseFolder("receipts")
	assert.ErrorIs(t, err, ErrUnknownFolder)
}

func TestFolderJSONMapKeys(t *testing.T) {
	counts := map[Folder]FolderCount{Inbox: {Total: 3, Unread: 1}, Trash: {Total: 2}}

	b, err := json.Marshal(counts)
	require.NoError(t, err)
	assert.JSONEq(t, `{"inbox":{"total":3,"unread":1},"trash":{"total":2,"unread":0}}`, string(b))

	var back map[Folder]FolderCount
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, counts, back)
}

func TestInvalidFolder(t *testing.T) {
	f := Folder(42)
	assert.False(t, f.Valid())
	assert.Equal(t, "INBOX", f.Mailbox())
	_, err := f.MarshalText()
	assert.Error(t, err)
}
