// Package backend is a client for the REST mail backend that owns the
// mailboxes. Every data call carries the caller's Credentials.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/postfixrelay/psfxmail/internal/mail"
	"github.com/rs/zerolog/log"
)

// ErrRejected is returned when the backend answers 2xx with success=false.
var ErrRejected = errors.New("backend rejected request")

// APIError is a non-2xx backend response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend: status %d", e.StatusCode)
	}
	return fmt.Sprintf("backend: status %d: %s", e.StatusCode, e.Message)
}

// IsUnauthorized reports whether err is a 401 or 403 from the backend.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden
	}
	return false
}

// Message returns the most useful human-readable text for err.
func Message(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	var rej *RejectedError
	if errors.As(err, &rej) && rej.Message != "" {
		return rej.Message
	}
	return ""
}

// RejectedError carries the backend's message for a success=false reply.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return ErrRejected.Error()
	}
	return ErrRejected.Error() + ": " + e.Message
}

func (e *RejectedError) Unwrap() error { return ErrRejected }

// Credentials authorize calls on behalf of one account. Password is the
// mailbox password the backend expects in request bodies; Token is the
// bearer token issued at login and used by admin calls.
type Credentials struct {
	Email    string
	Password string
	Token    string
}

// Valid reports whether the credentials can authorize mailbox calls.
func (c Credentials) Valid() bool {
	return c.Email != "" && c.Password != ""
}

// Client talks to the mail backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// status is the envelope most backend replies share.
type status struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (s status) text() string {
	if s.Error != "" {
		return s.Error
	}
	return s.Message
}

// LoginResult is the backend's answer to a login.
type LoginResult struct {
	Email   string
	Token   string
	Role    string
	Message string
}

// Login verifies a mailbox password. The role claim defaults to "user".
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	var resp struct {
		status
		Token string `json:"token"`
		Role  string `json:"role"`
		User  struct {
			Role string `json:"role"`
		} `json:"user"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/email/login", nil, body, "", &resp); err != nil {
		return nil, err
	}
	if resp.Success == nil || !*resp.Success {
		return nil, &RejectedError{Message: resp.text()}
	}
	role := resp.Role
	if role == "" {
		role = resp.User.Role
	}
	if role == "" {
		role = "user"
	}
	return &LoginResult{Email: email, Token: resp.Token, Role: role, Message: resp.Message}, nil
}

// MailPage is one page of a mailbox listing.
type MailPage struct {
	Emails []mail.Mail `json:"emails"`
	Total  *int        `json:"total,omitempty"`
}

// GetMails fetches one page of a mailbox.
func (c *Client) GetMails(ctx context.Context, cr Credentials, mailbox string, page, pageSize int) (*MailPage, error) {
	q := url.Values{}
	q.Set("email", cr.Email)
	q.Set("password", cr.Password)
	q.Set("folder", mailbox)
	q.Set("page", strconv.Itoa(page))
	q.Set("pageSize", strconv.Itoa(pageSize))

	var resp MailPage
	if err := c.do(ctx, http.MethodGet, "/api/email/get-mails", q, nil, cr.Token, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// MarkAsRead marks one message as read.
func (c *Client) MarkAsRead(ctx context.Context, cr Credentials, uid mail.UID) error {
	body := map[string]string{"email": cr.Email, "password": cr.Password}
	return c.doStatus(ctx, "/api/email/"+url.PathEscape(string(uid))+"/mark-as-read", body, cr.Token, false)
}

// FolderAction runs a single-message folder action. endpoint is the
// action's path segment (archive, trash, delete-draft, ...).
func (c *Client) FolderAction(ctx context.Context, cr Credentials, uid mail.UID, endpoint, currentFolder string) error {
	if endpoint == "" {
		return fmt.Errorf("folder action for uid %s: empty endpoint", uid)
	}
	body := map[string]string{
		"email":         cr.Email,
		"password":      cr.Password,
		"currentFolder": currentFolder,
	}
	path := "/api/email/" + url.PathEscape(string(uid)) + "/" + endpoint
	return c.doStatus(ctx, path, body, cr.Token, false)
}

type sendRequest struct {
	From        string                    `json:"from"`
	Password    string                    `json:"password"`
	To          string                    `json:"to"`
	Cc          string                    `json:"cc,omitempty"`
	Bcc         string                    `json:"bcc,omitempty"`
	Subject     string                    `json:"subject"`
	Text        string                    `json:"text"`
	Attachments []mail.OutgoingAttachment `json:"attachments,omitempty"`
}

// Send submits an outgoing message.
func (c *Client) Send(ctx context.Context, cr Credentials, msg mail.Compose) error {
	body := sendRequest{
		From:        cr.Email,
		Password:    cr.Password,
		To:          msg.To,
		Cc:          msg.Cc,
		Bcc:         msg.Bcc,
		Subject:     msg.Subject,
		Text:        msg.Text,
		Attachments: msg.Attachments,
	}
	return c.doStatus(ctx, "/api/email/send", body, cr.Token, true)
}

// SaveDraft stores msg in the Drafts mailbox.
func (c *Client) SaveDraft(ctx context.Context, cr Credentials, msg mail.Compose) error {
	body := map[string]string{
		"email":    cr.Email,
		"password": cr.Password,
		"to":       msg.To,
		"subject":  msg.Subject,
		"text":     msg.Text,
	}
	return c.doStatus(ctx, "/api/email/save-draft", body, cr.Token, true)
}

// AttachmentStream is an attachment body being proxied from the backend.
// The caller must close Body.
type AttachmentStream struct {
	Body               io.ReadCloser
	ContentType        string
	ContentDisposition string
	ContentLength      int64
}

// GetAttachment opens the content of one attachment.
func (c *Client) GetAttachment(ctx context.Context, cr Credentials, uid mail.UID, mailbox string, index int) (*AttachmentStream, error) {
	q := url.Values{}
	q.Set("email", cr.Email)
	q.Set("password", cr.Password)
	q.Set("uid", string(uid))
	q.Set("folder", mailbox)
	q.Set("index", strconv.Itoa(index))

	req, err := c.newRequest(ctx, http.MethodGet, "/api/email/get-attachment", q, nil, cr.Token)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get attachment: %w", err)
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, readAPIError(resp)
	}
	return &AttachmentStream{
		Body:               resp.Body,
		ContentType:        resp.Header.Get("Content-Type"),
		ContentDisposition: resp.Header.Get("Content-Disposition"),
		ContentLength:      resp.ContentLength,
	}, nil
}

// User is an account listed on the admin dashboard.
type User struct {
	Email string `json:"email"`
}

// ListEmailUsers lists every mailbox account. Admin token required.
func (c *Client) ListEmailUsers(ctx context.Context, cr Credentials) ([]User, error) {
	var resp struct {
		Users []User `json:"users"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/email/admin/list-email-users", nil, nil, cr.Token, &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}

// AllFolderStats returns per-folder counts for target. Admin token required.
func (c *Client) AllFolderStats(ctx context.Context, cr Credentials, target string) (map[string]mail.FolderCount, error) {
	q := url.Values{}
	q.Set("targetEmail", target)
	var resp struct {
		Stats map[string]mail.FolderCount `json:"stats"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/email/admin/all-folder-stats", q, nil, cr.Token, &resp); err != nil {
		return nil, err
	}
	if resp.Stats == nil {
		resp.Stats = map[string]mail.FolderCount{}
	}
	return resp.Stats, nil
}

// AdminGetMails lists another account's mailbox. Admin token required.
func (c *Client) AdminGetMails(ctx context.Context, cr Credentials, target, mailbox string, page, pageSize int) (*MailPage, error) {
	q := url.Values{}
	q.Set("targetEmail", target)
	q.Set("folder", mailbox)
	q.Set("page", strconv.Itoa(page))
	q.Set("pageSize", strconv.Itoa(pageSize))

	var resp MailPage
	if err := c.do(ctx, http.MethodGet, "/api/email/admin/get-mails", q, nil, cr.Token, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// doStatus POSTs body and checks the success envelope. When strict, a
// reply without success=true counts as a rejection.
func (c *Client) doStatus(ctx context.Context, path string, body any, token string, strict bool) error {
	var resp status
	if err := c.do(ctx, http.MethodPost, path, nil, body, token, &resp); err != nil {
		return err
	}
	if resp.Success != nil && !*resp.Success {
		return &RejectedError{Message: resp.text()}
	}
	if strict && resp.Success == nil {
		return &RejectedError{Message: resp.text()}
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body any, token string) (*http.Request, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, token string, out any) error {
	req, err := c.newRequest(ctx, method, path, query, body, token)
	if err != nil {
		return err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("backend call")

	if resp.StatusCode >= 300 {
		return readAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func readAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var s status
	if json.Unmarshal(raw, &s) == nil && s.text() != "" {
		apiErr.Message = s.text()
	} else {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	return apiErr
}
