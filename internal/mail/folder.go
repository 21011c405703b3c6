package mail

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownFolder is returned when a folder name matches no known folder.
var ErrUnknownFolder = errors.New("unknown folder")

// Folder is one of the fixed folders shown in the sidebar.
type Folder int

const (
	Inbox Folder = iota
	Drafts
	Sent
	Archived
	Trash
	Social
	Promotions
)

// Folders lists every folder in sidebar order.
var Folders = []Folder{Inbox, Drafts, Sent, Archived, Trash, Social, Promotions}

var folderLabels = [...]string{
	Inbox:      "inbox",
	Drafts:     "drafts",
	Sent:       "sent",
	Archived:   "archived",
	Trash:      "trash",
	Social:     "social",
	Promotions: "promotions",
}

// The category folders have no canonical server mailbox; the backend
// accepts their labels verbatim.
var folderMailboxes = [...]string{
	Inbox:      "INBOX",
	Drafts:     "Drafts",
	Sent:       "Sent",
	Archived:   "Archive",
	Trash:      "Trash",
	Social:     "social",
	Promotions: "promotions",
}

var folderAliases = map[string]Folder{
	"inbox":      Inbox,
	"drafts":     Drafts,
	"draft":      Drafts,
	"sent":       Sent,
	"archived":   Archived,
	"archive":    Archived,
	"all mail":   Archived,
	"trash":      Trash,
	"deleted":    Trash,
	"social":     Social,
	"promotions": Promotions,
}

// Valid reports whether f is one of the declared folders.
func (f Folder) Valid() bool {
	return f >= Inbox && f <= Promotions
}

// String returns the UI label.
func (f Folder) String() string {
	if !f.Valid() {
		return fmt.Sprintf("Folder(%d)", int(f))
	}
	return folderLabels[f]
}

// Mailbox returns the backend mailbox name.
func (f Folder) Mailbox() string {
	if !f.Valid() {
		return folderMailboxes[Inbox]
	}
	return folderMailboxes[f]
}

// MarshalText encodes the folder as its label so it can key JSON objects.
func (f Folder) MarshalText() ([]byte, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownFolder, int(f))
	}
	return []byte(folderLabels[f]), nil
}

// UnmarshalText accepts anything ParseFolder does.
func (f *Folder) UnmarshalText(b []byte) error {
	parsed, err := ParseFolder(string(b))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// ParseFolder resolves a UI label, backend mailbox name or alias,
// case-insensitively.
func ParseFolder(s string) (Folder, error) {
	if f, ok := folderAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return f, nil
	}
	return Inbox, fmt.Errorf("%w: %q", ErrUnknownFolder, s)
}

// NormalizeMailboxName maps a free-form folder name to the backend's
// canonical mailbox. Unrecognized names pass through unchanged.
func NormalizeMailboxName(name string) string {
	switch strings.ToLower(name) {
	case "", "inbox":
		return "INBOX"
	case "sent":
		return "Sent"
	case "trash", "deleted":
		return "Trash"
	case "archive", "archived", "all mail":
		return "Archive"
	case "drafts", "draft":
		return "Drafts"
	default:
		return name
	}
}
