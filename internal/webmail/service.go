// Package webmail implements the mail client's use cases on top of the
// backend client: listing, opening, folder actions, composing and the
// admin dashboard.
package webmail

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/postfixrelay/psfxmail/internal/backend"
	"github.com/postfixrelay/psfxmail/internal/mail"
	"github.com/rs/zerolog/log"
)

var (
	// ErrNotFound is returned when a uid is not in the current list.
	ErrNotFound = errors.New("message not found")
	// ErrActionNotAllowed is returned for actions the folder does not offer.
	ErrActionNotAllowed = errors.New("action not allowed in this folder")
	// ErrInProgress is returned while another request is sending the
	// same draft.
	ErrInProgress = errors.New("draft send already in progress")
)

// MissingFieldsError reports required compose fields left empty. No
// backend call is made when it is returned.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return "missing fields: " + strings.Join(e.Fields, ", ")
}

// Backend is the subset of the backend client the service uses.
type Backend interface {
	GetMails(ctx context.Context, cr backend.Credentials, mailbox string, page, pageSize int) (*backend.MailPage, error)
	MarkAsRead(ctx context.Context, cr backend.Credentials, uid mail.UID) error
	FolderAction(ctx context.Context, cr backend.Credentials, uid mail.UID, endpoint, currentFolder string) error
	Send(ctx context.Context, cr backend.Credentials, msg mail.Compose) error
	SaveDraft(ctx context.Context, cr backend.Credentials, msg mail.Compose) error
	GetAttachment(ctx context.Context, cr backend.Credentials, uid mail.UID, mailbox string, index int) (*backend.AttachmentStream, error)
	ListEmailUsers(ctx context.Context, cr backend.Credentials) ([]backend.User, error)
	AllFolderStats(ctx context.Context, cr backend.Credentials, target string) (map[string]mail.FolderCount, error)
	AdminGetMails(ctx context.Context, cr backend.Credentials, target, mailbox string, page, pageSize int) (*backend.MailPage, error)
}

// Options tune list sizes and snippet lengths.
type Options struct {
	ListPageSize      int
	CountsPageSize    int
	PreviewWords      int
	AdminPreviewWords int
}

func (o Options) withDefaults() Options {
	if o.ListPageSize <= 0 {
		o.ListPageSize = 20
	}
	if o.CountsPageSize <= 0 {
		o.CountsPageSize = 100
	}
	if o.PreviewWords <= 0 {
		o.PreviewWords = mail.DefaultPreviewWords
	}
	if o.AdminPreviewWords <= 0 {
		o.AdminPreviewWords = mail.DefaultAdminPreviewWords
	}
	return o
}

// Account is the caller: its backend capability and its list state.
type Account struct {
	Credentials backend.Credentials
	List        *mail.ListState
}

// Service runs the webmail use cases.
type Service struct {
	backend   Backend
	sanitizer *mail.Sanitizer
	drafts    *DraftLedger
	opts      Options
}

// NewService creates a service. drafts may be nil when send-draft is not
// used, as in the CLI.
func NewService(b Backend, drafts *DraftLedger, opts Options) *Service {
	return &Service{
		backend:   b,
		sanitizer: mail.DefaultSanitizer(),
		drafts:    drafts,
		opts:      opts.withDefaults(),
	}
}

// ListResult is one rendered page of a folder.
type ListResult struct {
	Folder   mail.Folder    `json:"folder"`
	Page     int            `json:"page"`
	PageSize int            `json:"pageSize"`
	Total    *int           `json:"total,omitempty"`
	Messages []mail.Preview `json:"messages"`
	// Stale is set when a newer list request started while this one was
	// in flight; the result was not stored and should not be shown.
	Stale bool `json:"stale"`
}

// List fetches and renders one page of folder. query filters the page.
func (s *Service) List(ctx context.Context, acct Account, folder mail.Folder, page, pageSize int, query string) (*ListResult, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = s.opts.ListPageSize
	}

	gen := acct.List.Begin()
	res, err := s.backend.GetMails(ctx, acct.Credentials, folder.Mailbox(), page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", folder, err)
	}

	mails := res.Emails
	for i := range mails {
		mails[i].Body = mail.ExtractBodyElement(mails[i].Body)
	}
	mail.SortByDateDesc(mails)

	stale := !acct.List.Commit(gen, folder, mails)
	if stale {
		log.Debug().Str("folder", folder.String()).Uint64("generation", gen).Msg("Discarding stale list response")
	}

	visible := mail.Filter(mails, query)
	rows := make([]mail.Preview, 0, len(visible))
	for i := range visible {
		rows = append(rows, s.sanitizer.RenderPreview(&visible[i], folder, s.opts.PreviewWords))
	}

	return &ListResult{
		Folder:   folder,
		Page:     page,
		PageSize: pageSize,
		Total:    res.Total,
		Messages: rows,
		Stale:    stale,
	}, nil
}

// Open renders a message from the current list. An unread message gets
// exactly one mark-as-read call; a failure there is logged and the
// message still opens.
func (s *Service) Open(ctx context.Context, acct Account, uid mail.UID, downloadBase string) (*mail.Detail, error) {
	m, folder, ok := acct.List.Find(uid)
	if !ok {
		return nil, ErrNotFound
	}

	if acct.List.BeginMarkRead(uid) {
		err := s.backend.MarkAsRead(ctx, acct.Credentials, uid)
		acct.List.FinishMarkRead(uid, err == nil)
		if err != nil {
			log.Warn().Err(err).Str("uid", string(uid)).Msg("Failed to mark message as read")
		} else {
			m.MarkRead()
		}
	}

	detail := s.sanitizer.RenderDetail(&m, folder, downloadBase)
	return &detail, nil
}

// Perform runs a folder action on a message of the current list. The
// folder is the one the list was fetched from. idempotencyKey only
// matters for sendDraft.
func (s *Service) Perform(ctx context.Context, acct Account, uid mail.UID, action mail.Action, idempotencyKey string) error {
	m, folder, ok := acct.List.Find(uid)
	if !ok {
		return ErrNotFound
	}
	if !mail.Allowed(folder.Mailbox(), action) {
		return fmt.Errorf("%w: %s in %s", ErrActionNotAllowed, action, folder)
	}

	if action == mail.ActionSendDraft {
		return s.sendDraft(ctx, acct, &m, idempotencyKey)
	}

	if err := s.backend.FolderAction(ctx, acct.Credentials, uid, action.Endpoint(), folder.Mailbox()); err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}
	log.Info().Str("uid", string(uid)).Str("action", string(action)).Str("folder", folder.String()).Msg("Folder action completed")
	return nil
}

func (s *Service) sendDraft(ctx context.Context, acct Account, m *mail.Mail, clientKey string) error {
	if s.drafts == nil {
		return errors.New("send draft: no idempotency ledger configured")
	}
	email := acct.Credentials.Email
	key := DraftKey(email, m.UID, clientKey)

	msg := mail.DraftCompose(m)
	if strings.TrimSpace(msg.Text) == "" {
		msg.Text = s.sanitizer.Text(m.Body)
	}
	if missing := msg.MissingFields(); len(missing) > 0 {
		return &MissingFieldsError{Fields: missing}
	}

	ok, err := s.drafts.ClaimSend(ctx, key, email)
	if err != nil {
		return fmt.Errorf("send draft: claim: %w", err)
	}
	if ok {
		if err := s.backend.Send(ctx, acct.Credentials, msg); err != nil {
			if rerr := s.drafts.ReleaseSend(ctx, key); rerr != nil {
				log.Error().Err(rerr).Str("uid", string(m.UID)).Msg("Failed to release draft claim")
			}
			return fmt.Errorf("send draft: %w", err)
		}
		if err := s.drafts.Mark(ctx, key, email, draftStateSent); err != nil {
			return fmt.Errorf("send draft: record send: %w", err)
		}
	}

	ok, err = s.drafts.ClaimDelete(ctx, key)
	if err != nil {
		return fmt.Errorf("send draft: claim delete: %w", err)
	}
	if !ok {
		state, err := s.drafts.State(ctx, key)
		if err != nil {
			return fmt.Errorf("send draft: read ledger: %w", err)
		}
		if state == draftStateDone {
			log.Info().Str("uid", string(m.UID)).Msg("Draft already sent, skipping")
			return nil
		}
		return ErrInProgress
	}

	if err := s.backend.FolderAction(ctx, acct.Credentials, m.UID, mail.ActionDeleteDraft.Endpoint(), mail.Drafts.Mailbox()); err != nil {
		if merr := s.drafts.Mark(ctx, key, email, draftStateSent); merr != nil {
			log.Error().Err(merr).Str("uid", string(m.UID)).Msg("Failed to release draft delete claim")
		}
		return fmt.Errorf("send draft: delete draft: %w", err)
	}
	if err := s.drafts.Mark(ctx, key, email, draftStateDone); err != nil {
		return fmt.Errorf("send draft: record delete: %w", err)
	}
	return nil
}

// Send validates and submits a new message.
func (s *Service) Send(ctx context.Context, acct Account, msg mail.Compose) error {
	if missing := msg.MissingFields(); len(missing) > 0 {
		return &MissingFieldsError{Fields: missing}
	}
	if err := s.backend.Send(ctx, acct.Credentials, msg); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	log.Info().Int("recipients", len(msg.Recipients())).Int("attachments", len(msg.Attachments)).Msg("Message sent")
	return nil
}

// SaveDraft validates and stores a draft.
func (s *Service) SaveDraft(ctx context.Context, acct Account, msg mail.Compose) error {
	if missing := msg.MissingFields(); len(missing) > 0 {
		return &MissingFieldsError{Fields: missing}
	}
	if err := s.backend.SaveDraft(ctx, acct.Credentials, msg); err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

// Reply answers a message of the current list.
func (s *Service) Reply(ctx context.Context, acct Account, uid mail.UID, body string) error {
	m, _, ok := acct.List.Find(uid)
	if !ok {
		return ErrNotFound
	}
	return s.Send(ctx, acct, mail.ReplyTo(&m, body))
}

// Forward sends a message of the current list to new recipients.
func (s *Service) Forward(ctx context.Context, acct Account, uid mail.UID, to, note string) error {
	m, _, ok := acct.List.Find(uid)
	if !ok {
		return ErrNotFound
	}
	return s.Send(ctx, acct, mail.Forward(&m, to, note))
}

// Attachment opens attachment index of a message in the current list.
func (s *Service) Attachment(ctx context.Context, acct Account, uid mail.UID, index int) (*backend.AttachmentStream, error) {
	m, folder, ok := acct.List.Find(uid)
	if !ok {
		return nil, ErrNotFound
	}
	if index < 0 {
		return nil, ErrNotFound
	}
	if len(m.Attachments) > 0 {
		if _, ok := m.FindAttachment(index); !ok {
			return nil, ErrNotFound
		}
	}
	return s.backend.GetAttachment(ctx, acct.Credentials, uid, folder.Mailbox(), index)
}

// FolderCounts fetches the first page of every folder, one folder at a
// time, and counts totals and unread messages. pageSize <= 0 uses the
// configured default.
func (s *Service) FolderCounts(ctx context.Context, cr backend.Credentials, pageSize int) (map[mail.Folder]mail.FolderCount, error) {
	if pageSize <= 0 {
		pageSize = s.opts.CountsPageSize
	}
	counts := make(map[mail.Folder]mail.FolderCount, len(mail.Folders))
	for _, f := range mail.Folders {
		res, err := s.backend.GetMails(ctx, cr, f.Mailbox(), 1, pageSize)
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", f, err)
		}
		counts[f] = mail.FolderCount{
			Total:  len(res.Emails),
			Unread: mail.CountUnread(res.Emails),
		}
	}
	return counts, nil
}
