package mail

import "fmt"

// Preview is one row of the message list.
type Preview struct {
	UID            UID      `json:"uid"`
	DisplayName    string   `json:"displayName"`
	From           string   `json:"from"`
	Subject        string   `json:"subject"`
	Snippet        string   `json:"snippet"`
	Date           string   `json:"date"`
	DisplayDate    string   `json:"displayDate"`
	Unread         bool     `json:"unread"`
	ShowUnread     bool     `json:"showUnread"`
	Avatar         Avatar   `json:"avatar"`
	Labels         []string `json:"labels,omitempty"`
	HasAttachments bool     `json:"hasAttachments"`
}

// AttachmentView is attachment metadata prepared for the detail pane.
type AttachmentView struct {
	Filename     string `json:"filename"`
	ContentType  string `json:"contentType"`
	Size         int64  `json:"size"`
	Index        int    `json:"index"`
	Kind         string `json:"kind"`
	DownloadPath string `json:"downloadPath,omitempty"`
}

// Detail is an opened message.
type Detail struct {
	UID         UID              `json:"uid"`
	Folder      Folder           `json:"folder"`
	From        string           `json:"from"`
	DisplayName string           `json:"displayName"`
	Initials    string           `json:"initials"`
	ReplyTo     string           `json:"replyTo"`
	To          string           `json:"to"`
	Cc          string           `json:"cc,omitempty"`
	Subject     string           `json:"subject"`
	Date        string           `json:"date"`
	DisplayDate string           `json:"displayDate"`
	HTML        string           `json:"html"`
	Text        string           `json:"text"`
	Avatar      Avatar           `json:"avatar"`
	Actions     []Action         `json:"actions"`
	Attachments []AttachmentView `json:"attachments"`
}

// RenderPreview builds the list row for m shown in folder. The unread
// marker is only drawn in the inbox.
func (s *Sanitizer) RenderPreview(m *Mail, folder Folder, words int) Preview {
	from := string(m.From)
	name := ExtractDisplayName(from)
	if name == "" {
		name = "Unknown"
	}
	unread := m.IsUnread()
	return Preview{
		UID:            m.UID,
		DisplayName:    name,
		From:           from,
		Subject:        m.Subject,
		Snippet:        s.PreviewSnippet(m, words),
		Date:           m.Date,
		DisplayDate:    FormatDisplayDate(m.Date),
		Unread:         unread,
		ShowUnread:     unread && folder == Inbox,
		Avatar:         NewAvatar(name),
		Labels:         m.Labels,
		HasAttachments: len(m.Attachments) > 0,
	}
}

// RenderDetail builds the detail pane for m. downloadBase, when set,
// prefixes attachment download paths as downloadBase/<index>.
func (s *Sanitizer) RenderDetail(m *Mail, folder Folder, downloadBase string) Detail {
	from := string(m.From)
	name, addr := ParseSender(from)
	if name == "" {
		name = "Unknown"
	}
	attachments := make([]AttachmentView, 0, len(m.Attachments))
	for i, a := range m.Attachments {
		index := m.AttachmentIndex(i)
		view := AttachmentView{
			Filename:    a.Filename,
			ContentType: a.ContentType,
			Size:        a.Size,
			Index:       index,
			Kind:        FileKind(a.ContentType, a.Filename),
		}
		if downloadBase != "" {
			view.DownloadPath = fmt.Sprintf("%s/%d", downloadBase, index)
		}
		attachments = append(attachments, view)
	}
	return Detail{
		UID:         m.UID,
		Folder:      folder,
		From:        from,
		DisplayName: name,
		Initials:    Initials(name),
		ReplyTo:     addr,
		To:          string(m.To),
		Cc:          string(m.Cc),
		Subject:     m.Subject,
		Date:        m.Date,
		DisplayDate: FormatDisplayDate(m.Date),
		HTML:        s.SanitizeHTML(m.Body),
		Text:        m.Text,
		Avatar:      NewAvatar(name),
		Actions:     PermittedActions(folder.Mailbox()),
		Attachments: attachments,
	}
}
