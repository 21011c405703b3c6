package mail

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMissingFields(t *testing.T) {
	assert.Equal(t, []string{"to", "subject", "body"}, Compose{}.MissingFields())
	assert.Equal(t, []string{"to"}, Compose{To: "  ", Subject: "s", Text: "b"}.MissingFields())
	assert.Equal(t, []string{"to"}, Compose{To: " , ,", Subject: "s", Text: "b"}.MissingFields())
	assert.Empty(t, Compose{To: "a@example.com", Subject: "s", Text: "b"}.MissingFields())
}

func TestRecipients(t *testing.T) {
	c := Compose{To: "a@example.com, b@example.com", Cc: " c@example.com ", Bcc: ""}
	assert.Equal(t, []string{"a@example.com", "b@example.com", "c@example.com"}, c.Recipients())
}

func TestReplyTo(t *testing.T) {
	m := &Mail{From: `"Jane" <jane@example.com>`, Subject: "Lunch"}
	c := ReplyTo(m, "sure")
	assert.Equal(t, "jane@example.com", c.To)
	assert.Equal(t, "Re: Lunch", c.Subject)
	assert.Equal(t, "sure", c.Text)
}

func TestForward(t *testing.T) {
	m := &Mail{
		From:    "jane@example.com",
		Subject: "Report",
		Date:    "2024-03-01T10:05:00Z",
		Text:    "numbers inside",
		Body:    "<p>ignored</p>",
	}
	c := Forward(m, "bob@example.com", "FYI")
	assert.Equal(t, "bob@example.com", c.To)
	assert.Equal(t, "Fwd: Report", c.Subject)
	assert.Equal(t,
		"FYI\n\n---------- Forwarded message ----------\nFrom: jane@example.com\nDate: 3/1/2024, 10:05:00 AM\nSubject: Report\n\nnumbers inside",
		c.Text)

	m.Text = ""
	assert.Contains(t, Forward(m, "bob@example.com", "").Text, "<p>ignored</p>")
}

func TestDraftCompose(t *testing.T) {
	m := &Mail{To: "a@example.com", Subject: "draft", Text: "body"}
	assert.Equal(t, Compose{To: "a@example.com", Subject: "draft", Text: "body"}, DraftCompose(m))
}
