package mail

import (
	"fmt"
	"strings"
)

// OutgoingAttachment is a file attached in the compose window. Content is
// base64.
type OutgoingAttachment struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

// Compose is an outgoing message or draft.
type Compose struct {
	To          string               `json:"to"`
	Cc          string               `json:"cc,omitempty"`
	Bcc         string               `json:"bcc,omitempty"`
	Subject     string               `json:"subject"`
	Text        string               `json:"text"`
	Attachments []OutgoingAttachment `json:"attachments,omitempty"`
}

// MissingFields names the required fields that are empty. Recipient,
// subject and body are all required before a send or draft save. A To
// made only of separators counts as empty.
func (c Compose) MissingFields() []string {
	var missing []string
	if len(splitAddresses(c.To)) == 0 {
		missing = append(missing, "to")
	}
	if strings.TrimSpace(c.Subject) == "" {
		missing = append(missing, "subject")
	}
	if strings.TrimSpace(c.Text) == "" {
		missing = append(missing, "body")
	}
	return missing
}

// Recipients splits the comma separated To, Cc and Bcc fields.
func (c Compose) Recipients() []string {
	var out []string
	for _, field := range []string{c.To, c.Cc, c.Bcc} {
		out = append(out, splitAddresses(field)...)
	}
	return out
}

func splitAddresses(field string) []string {
	var out []string
	for _, addr := range strings.Split(field, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}

// ReplyTo builds a reply to m addressed to its sender.
func ReplyTo(m *Mail, body string) Compose {
	return Compose{
		To:      ReplyAddress(string(m.From)),
		Subject: "Re: " + m.Subject,
		Text:    body,
	}
}

// Forward builds a forward of m to the given recipients. note is placed
// above the forwarded-message block.
func Forward(m *Mail, to, note string) Compose {
	content := m.Text
	if content == "" {
		content = m.Body
	}
	date := m.Date
	if t, ok := m.ParsedDate(); ok {
		date = t.Format("1/2/2006, 3:04:05 PM")
	}
	block := fmt.Sprintf("\n\n---------- Forwarded message ----------\nFrom: %s\nDate: %s\nSubject: %s\n\n%s",
		m.From, date, m.Subject, content)
	return Compose{
		To:      to,
		Subject: "Fwd: " + m.Subject,
		Text:    note + block,
	}
}

// DraftCompose rebuilds the outgoing message stored in a draft.
func DraftCompose(m *Mail) Compose {
	return Compose{
		To:      string(m.To),
		Cc:      string(m.Cc),
		Bcc:     string(m.Bcc),
		Subject: m.Subject,
		Text:    m.Text,
	}
}
