package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := newApp(&out).Run(append([]string{"webmailctl"}, args...))
	return out.String(), err
}

func TestActionsCommand(t *testing.T) {
	out, err := run(t, "actions", "Trash")
	require.NoError(t, err)
	assert.Equal(t, []string{"restore", "deleteForever"}, strings.Fields(out))
}

func TestAvatarCommand(t *testing.T) {
	out, err := run(t, "avatar", "A")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "A hsl(65, 75%, 65%) "))
}

func TestListRequiresCredentials(t *testing.T) {
	_, err := run(t, "--email", "", "--password", "", "list")
	require.Error(t, err)
}

func TestListCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/email/login":
			json.NewEncoder(w).Encode(map[string]any{"success": true, "token": "t"})
		case "/api/email/get-mails":
			assert.Equal(t, "Archive", r.URL.Query().Get("folder"))
			json.NewEncoder(w).Encode(map[string]any{"emails": []map[string]any{
				{"uid": 7, "from": "Bob <bob@example.com>", "subject": "Old news", "date": "2024-01-02T09:00:00Z"},
			}})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	out, err := run(t, "--backend", srv.URL, "--email", "me@example.com", "--password", "pw", "list", "--folder", "archive")
	require.NoError(t, err)
	assert.Contains(t, out, "Bob")
	assert.Contains(t, out, "Old news")
	assert.Contains(t, out, "7")
}
