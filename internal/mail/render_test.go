package mail

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderPreviewUnreadMarkerOnlyInInbox(t *testing.T) {
	s := NewSanitizer()
	m := &Mail{UID: "7", From: `"Jane Doe" <jane@example.com>`, Subject: "Hi", Body: "<p>one two three</p>"}

	p := s.RenderPreview(m, Inbox, 2)
	assert.Equal(t, "Jane Doe", p.DisplayName)
	assert.Equal(t, "one two...", p.Snippet)
	assert.True(t, p.Unread)
	assert.True(t, p.ShowUnread)
	assert.Equal(t, "J", p.Avatar.Initial)

	p = s.RenderPreview(m, Sent, 2)
	assert.True(t, p.Unread)
	assert.False(t, p.ShowUnread)

	m.MarkRead()
	assert.False(t, s.RenderPreview(m, Inbox, 2).ShowUnread)

	assert.Equal(t, "Unknown", s.RenderPreview(&Mail{}, Inbox, 2).DisplayName)
}

func TestRenderDetail(t *testing.T) {
	s := NewSanitizer()
	m := &Mail{
		UID:     "9",
		From:    `"Jane Doe" <jane@example.com>`,
		Subject: "Report",
		Body:    `<p onclick="x()">hello</p><script>bad()</script>`,
		Attachments: []Attachment{
			{Filename: "a.pdf", ContentType: "application/pdf", Size: 10, Index: 0},
			{Filename: "b.png", ContentType: "image/png", Size: 20, Index: 1},
		},
	}

	d := s.RenderDetail(m, Trash, "/api/v1/mail/messages/9/attachments")
	assert.Equal(t, "Jane Doe", d.DisplayName)
	assert.Equal(t, "JD", d.Initials)
	assert.Equal(t, "jane@example.com", d.ReplyTo)
	assert.Equal(t, "<p>hello</p>", d.HTML)
	assert.Equal(t, []Action{ActionRestore, ActionDeleteForever}, d.Actions)

	require.Len(t, d.Attachments, 2)
	assert.Equal(t, "pdf", d.Attachments[0].Kind)
	assert.Equal(t, "/api/v1/mail/messages/9/attachments/0", d.Attachments[0].DownloadPath)
	assert.Equal(t, "image", d.Attachments[1].Kind)
	assert.Equal(t, "/api/v1/mail/messages/9/attachments/1", d.Attachments[1].DownloadPath)

	assert.Empty(t, s.RenderDetail(m, Inbox, "").Attachments[0].DownloadPath)
}
