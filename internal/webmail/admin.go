package webmail

import (
	"context"
	"fmt"

	"github.com/postfixrelay/psfxmail/internal/backend"
	"github.com/postfixrelay/psfxmail/internal/mail"
)

// AdminMessage is a message of another account as shown on the dashboard.
type AdminMessage struct {
	mail.Preview
	HTML        string                `json:"html"`
	Text        string                `json:"text"`
	Attachments []mail.AttachmentView `json:"attachments"`
}

// AdminUsers lists every mailbox account.
func (s *Service) AdminUsers(ctx context.Context, cr backend.Credentials) ([]backend.User, error) {
	users, err := s.backend.ListEmailUsers(ctx, cr)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// AdminStats returns the backend's folder statistics for target.
func (s *Service) AdminStats(ctx context.Context, cr backend.Credentials, target string) (map[string]mail.FolderCount, error) {
	stats, err := s.backend.AllFolderStats(ctx, cr, target)
	if err != nil {
		return nil, fmt.Errorf("folder stats for %s: %w", target, err)
	}
	return stats, nil
}

// AdminMessages renders one page of target's folder, newest first.
func (s *Service) AdminMessages(ctx context.Context, cr backend.Credentials, target string, folder mail.Folder, page, pageSize int) ([]AdminMessage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = s.opts.ListPageSize
	}
	res, err := s.backend.AdminGetMails(ctx, cr, target, folder.Mailbox(), page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("messages of %s in %s: %w", target, folder, err)
	}

	mails := res.Emails
	mail.SortByDateDesc(mails)

	out := make([]AdminMessage, 0, len(mails))
	for i := range mails {
		m := &mails[i]
		preview := s.sanitizer.RenderPreview(m, folder, s.opts.AdminPreviewWords)
		source := m.Body
		if source == "" {
			source = m.Text
		}
		if source != "" {
			preview.Snippet = s.sanitizer.FirstNWordsFromHTML(source, s.opts.AdminPreviewWords)
		}
		detail := s.sanitizer.RenderDetail(m, folder, "")
		out = append(out, AdminMessage{
			Preview:     preview,
			HTML:        detail.HTML,
			Text:        m.Text,
			Attachments: detail.Attachments,
		})
	}
	return out, nil
}
