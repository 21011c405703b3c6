package mail

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPermittedActions(t *testing.T) {
	tests := []struct {
		folder string
		want   []Action
	}{
		{"INBOX", []Action{ActionArchive, ActionTrash}},
		{"inbox", []Action{ActionArchive, ActionTrash}},
		{"Sent", []Action{ActionArchive, ActionTrash}},
		{"Archive", []Action{ActionUnarchive, ActionTrash}},
		{"archived", []Action{ActionUnarchive, ActionTrash}},
		{"all mail", []Action{ActionUnarchive, ActionTrash}},
		{"Trash", []Action{ActionRestore, ActionDeleteForever}},
		{" deleted ", []Action{ActionRestore, ActionDeleteForever}},
		{"Drafts", []Action{ActionSendDraft, ActionDeleteDraft}},
		{"draft", []Action{ActionSendDraft, ActionDeleteDraft}},
		{"", []Action{ActionArchive, ActionTrash}},
		{"social", []Action{ActionArchive, ActionTrash}},
		{"Receipts", []Action{ActionArchive, ActionTrash}},
	}
	for _, tt := range tests {
		t.Run(tt.folder, func(t *testing.T) {
			assert.Equal(t, tt.want, PermittedActions(tt.folder))
		})
	}
}

func TestPermittedActionsReturnsCopy(t *testing.T) {
	got := PermittedActions("INBOX")
	got[0] = ActionDeleteForever
	assert.Equal(t, ActionArchive, PermittedActions("INBOX")[0])
}

func TestAllowed(t *testing.T) {
	assert.True(t, Allowed("Trash", ActionRestore))
	assert.False(t, Allowed("Trash", ActionArchive))
	assert.True(t, Allowed("Drafts", ActionSendDraft))
	assert.False(t, Allowed("INBOX", ActionSendDraft))
	assert.False(t, Allowed("unknown", ActionDeleteForever))
}

func TestActionEndpoints(t *testing.T) {
	assert.Equal(t, "delete", ActionDeleteForever.Endpoint())
	assert.Equal(t, "delete-draft", ActionDeleteDraft.Endpoint())
	assert.Equal(t, "unarchive", ActionUnarchive.Endpoint())
	assert.Empty(t, ActionSendDraft.Endpoint())
}

func TestParseAction(t *testing.T) {
	a, err := ParseAction("delete")
	require.NoError(t, err)
	assert.Equal(t, ActionDeleteForever, a)

	a, err = ParseAction("sendDraft")
	require.NoError(t, err)
	assert.Equal(t, ActionSendDraft, a)

	_, err = ParseAction("explode")
	assert.Error(t, err)
}
