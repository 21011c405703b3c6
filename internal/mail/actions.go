package mail

import (
	"fmt"
	"strings"
)

// Action is a folder action offered on an open message.
type Action string

const (
	ActionArchive       Action = "archive"
	ActionUnarchive     Action = "unarchive"
	ActionTrash         Action = "trash"
	ActionRestore       Action = "restore"
	ActionDeleteForever Action = "deleteForever"
	ActionSendDraft     Action = "sendDraft"
	ActionDeleteDraft   Action = "deleteDraft"
)

var actionEndpoints = map[Action]string{
	ActionArchive:       "archive",
	ActionUnarchive:     "unarchive",
	ActionTrash:         "trash",
	ActionRestore:       "restore",
	ActionDeleteForever: "delete",
	ActionDeleteDraft:   "delete-draft",
}

// Endpoint returns the backend path segment for the action. sendDraft has
// none; it is a send followed by delete-draft.
func (a Action) Endpoint() string {
	return actionEndpoints[a]
}

// ParseAction accepts action names as well as endpoint segments.
func ParseAction(s string) (Action, error) {
	switch strings.TrimSpace(s) {
	case "archive":
		return ActionArchive, nil
	case "unarchive":
		return ActionUnarchive, nil
	case "trash":
		return ActionTrash, nil
	case "restore":
		return ActionRestore, nil
	case "deleteForever", "delete":
		return ActionDeleteForever, nil
	case "sendDraft", "send-draft":
		return ActionSendDraft, nil
	case "deleteDraft", "delete-draft":
		return ActionDeleteDraft, nil
	}
	return "", fmt.Errorf("unknown action %q", s)
}

// ActionFolder is the canonical folder key of the action table.
type ActionFolder string

const (
	ActionFolderInbox   ActionFolder = "INBOX"
	ActionFolderSent    ActionFolder = "SENT"
	ActionFolderArchive ActionFolder = "ARCHIVE"
	ActionFolderTrash   ActionFolder = "TRASH"
	ActionFolderDrafts  ActionFolder = "DRAFTS"
)

var actionFolderAliases = map[string]ActionFolder{
	"INBOX":    ActionFolderInbox,
	"SENT":     ActionFolderSent,
	"ARCHIVE":  ActionFolderArchive,
	"ARCHIVED": ActionFolderArchive,
	"ALL MAIL": ActionFolderArchive,
	"DRAFTS":   ActionFolderDrafts,
	"DRAFT":    ActionFolderDrafts,
	"TRASH":    ActionFolderTrash,
	"DELETED":  ActionFolderTrash,
}

var folderActions = map[ActionFolder][]Action{
	ActionFolderInbox:   {ActionArchive, ActionTrash},
	ActionFolderArchive: {ActionUnarchive, ActionTrash},
	ActionFolderTrash:   {ActionRestore, ActionDeleteForever},
	ActionFolderDrafts:  {ActionSendDraft, ActionDeleteDraft},
	ActionFolderSent:    {ActionArchive, ActionTrash},
}

// ActionFolderFor canonicalizes a free-form folder name. Unknown names
// behave like the inbox.
func ActionFolderFor(folder string) ActionFolder {
	if af, ok := actionFolderAliases[strings.ToUpper(strings.TrimSpace(folder))]; ok {
		return af
	}
	return ActionFolderInbox
}

// PermittedActions returns the actions offered in folder, in display order.
func PermittedActions(folder string) []Action {
	actions := folderActions[ActionFolderFor(folder)]
	out := make([]Action, len(actions))
	copy(out, actions)
	return out
}

// Allowed reports whether action may be dispatched from folder.
func Allowed(folder string, action Action) bool {
	for _, a := range folderActions[ActionFolderFor(folder)] {
		if a == action {
			return true
		}
	}
	return false
}
