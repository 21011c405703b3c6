package mail

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMailDecodesLooseBackendShapes(t *testing.T) {
	raw := `[
		{"uid": 42, "from": "a@example.com", "to": ["b@example.com", "c@example.com"], "subject": "numeric"},
		{"uid": "17", "from": {"text": "\"Ann\" <ann@example.com>"}, "to": "d@example.com", "read": true},
		{"uid": null, "from": null, "to": null}
	]`
	var mails []Mail
	require.NoError(t, json.Unmarshal([]byte(raw), &mails))
	require.Len(t, mails, 3)

	assert.Equal(t, UID("42"), mails[0].UID)
	assert.Equal(t, AddressList("b@example.com, c@example.com"), mails[0].To)
	assert.Nil(t, mails[0].Read)

	assert.Equal(t, UID("17"), mails[1].UID)
	assert.Equal(t, `"Ann" <ann@example.com>`, mails[1].From.String())
	require.NotNil(t, mails[1].Read)
	assert.True(t, *mails[1].Read)

	assert.Empty(t, mails[2].UID)
	assert.Empty(t, mails[2].From)
}

func TestUIDRejectsGarbage(t *testing.T) {
	var m Mail
	assert.Error(t, json.Unmarshal([]byte(`{"uid": true}`), &m))
}

func TestIsUnread(t *testing.T) {
	yes, no := true, false
	tests := []struct {
		name string
		mail Mail
		want bool
	}{
		{"no signals", Mail{}, true},
		{"seen flag", Mail{Flags: []string{`\Seen`}}, false},
		{"seen flag any case", Mail{Flags: []string{`\SEEN`}}, false},
		{"other flags", Mail{Flags: []string{`\Flagged`}}, true},
		{"read true", Mail{Read: &yes}, false},
		{"read false", Mail{Read: &no}, true},
		{"read false but seen", Mail{Read: &no, Flags: []string{`\Seen`}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.mail.IsUnread())
		})
	}
}

func TestMarkRead(t *testing.T) {
	m := Mail{Flags: []string{`\Flagged`}}
	m.MarkRead()
	assert.False(t, m.IsUnread())
	assert.Equal(t, []string{`\Flagged`, `\Seen`}, m.Flags)

	m.MarkRead()
	assert.Len(t, m.Flags, 2)
}

func TestFolderCountDecoding(t *testing.T) {
	var stats map[string]FolderCount
	require.NoError(t, json.Unmarshal([]byte(`{"inbox": {"total": 4, "unread": 2}, "sent": 7}`), &stats))
	assert.Equal(t, FolderCount{Total: 4, Unread: 2}, stats["inbox"])
	assert.Equal(t, FolderCount{Total: 7}, stats["sent"])
}

func TestCountUnread(t *testing.T) {
	read := true
	mails := []Mail{{}, {Read: &read}, {Flags: []string{`\Seen`}}, {}}
	assert.Equal(t, 2, CountUnread(mails))
}

func TestFindAttachment(t *testing.T) {
	oneBased := Mail{Attachments: []Attachment{{Filename: "a", Index: 1}, {Filename: "b", Index: 2}}}
	a, ok := oneBased.FindAttachment(2)
	require.True(t, ok)
	assert.Equal(t, "b", a.Filename)
	_, ok = oneBased.FindAttachment(0)
	assert.False(t, ok)

	// No indices from the backend: positions are used.
	positional := Mail{Attachments: []Attachment{{Filename: "a"}, {Filename: "b"}}}
	assert.Equal(t, 1, positional.AttachmentIndex(1))
	a, ok = positional.FindAttachment(1)
	require.True(t, ok)
	assert.Equal(t, "b", a.Filename)
}
