package mail

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/emersion/go-imap"
)

// UID identifies a message within one folder of one account. The backend
// sends it either as a JSON number or a string.
type UID string

// UnmarshalJSON accepts both numeric and string uids.
func (u *UID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*u = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("uid: %w", err)
		}
		*u = UID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("uid: %w", err)
	}
	*u = UID(n.String())
	return nil
}

// AddressList is a raw address header such as `"Name" <a@b.com>, c@d.com`.
// It is kept as a string; the backend sometimes sends an array of strings
// or a parsed object carrying a "text" rendering.
type AddressList string

// UnmarshalJSON accepts a string, an array of strings or an object with a
// "text" field.
func (a *AddressList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*a = ""
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = AddressList(s)
	case '[':
		var list []string
		if err := json.Unmarshal(b, &list); err != nil {
			return fmt.Errorf("address list: %w", err)
		}
		*a = AddressList(strings.Join(list, ", "))
	case '{':
		var obj struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(b, &obj); err != nil {
			return fmt.Errorf("address object: %w", err)
		}
		*a = AddressList(obj.Text)
	default:
		return fmt.Errorf("address list: unexpected JSON %q", string(b))
	}
	return nil
}

func (a AddressList) String() string { return string(a) }

// Attachment is the attachment metadata carried on a message record.
// Content is only present on detail fetches (base64).
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
	Index       int    `json:"index"`
	Content     string `json:"content,omitempty"`
}

// Mail is a message record as served by the mail backend.
type Mail struct {
	UID         UID          `json:"uid"`
	From        AddressList  `json:"from"`
	To          AddressList  `json:"to"`
	Cc          AddressList  `json:"cc,omitempty"`
	Bcc         AddressList  `json:"bcc,omitempty"`
	Subject     string       `json:"subject"`
	Date        string       `json:"date"`
	Body        string       `json:"body,omitempty"`
	Text        string       `json:"text,omitempty"`
	Read        *bool        `json:"read,omitempty"`
	Flags       []string     `json:"flags,omitempty"`
	Labels      []string     `json:"labels,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// IsUnread reports whether the message counts as unread. Backends signal
// read state either through a \Seen flag or a boolean read field, so a
// message is unread only when neither says otherwise.
func (m *Mail) IsUnread() bool {
	if m.Read != nil && *m.Read {
		return false
	}
	return !hasFlag(m.Flags, imap.SeenFlag)
}

// MarkRead flips the local read state under both conventions.
func (m *Mail) MarkRead() {
	read := true
	m.Read = &read
	if !hasFlag(m.Flags, imap.SeenFlag) {
		m.Flags = append(m.Flags, imap.SeenFlag)
	}
}

// AttachmentIndex is the backend index of the i-th attachment. A zero
// Index past the first position means the backend sent none, and the
// position is used.
func (m *Mail) AttachmentIndex(i int) int {
	if idx := m.Attachments[i].Index; idx != 0 || i == 0 {
		return idx
	}
	return i
}

// FindAttachment returns the attachment whose backend index is index.
func (m *Mail) FindAttachment(index int) (Attachment, bool) {
	for i := range m.Attachments {
		if m.AttachmentIndex(i) == index {
			return m.Attachments[i], true
		}
	}
	return Attachment{}, false
}

// ParsedDate returns the message date, trying the layouts backends
// commonly emit.
func (m *Mail) ParsedDate() (time.Time, bool) {
	return ParseDate(m.Date)
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02",
}

// ParseDate parses an ISO-ish or RFC 2822 date string.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if t, err := mail.ParseDate(s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// FolderCount is the sidebar badge data for one folder.
type FolderCount struct {
	Total  int `json:"total"`
	Unread int `json:"unread"`
}

// UnmarshalJSON also accepts a bare integer, which one backend variant
// uses for the total.
func (c *FolderCount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] != '{' {
		var total int
		if err := json.Unmarshal(b, &total); err != nil {
			return fmt.Errorf("folder count: %w", err)
		}
		*c = FolderCount{Total: total}
		return nil
	}
	type plain FolderCount
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*c = FolderCount(p)
	return nil
}

// CountUnread returns how many messages in the slice are unread.
func CountUnread(mails []Mail) int {
	n := 0
	for i := range mails {
		if mails[i].IsUnread() {
			n++
		}
	}
	return n
}

func hasFlag(flags []string, flag string) bool {
	for _, f := range flags {
		if imap.CanonicalFlag(strings.TrimSpace(f)) == flag {
			return true
		}
	}
	return false
}
