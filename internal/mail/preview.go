package mail

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultPreviewWords is the snippet length of list rows.
	DefaultPreviewWords = 10
	// DefaultAdminPreviewWords is the snippet length on the admin dashboard.
	DefaultAdminPreviewWords = 15

	maxPreviewChars = 300
	noPreview       = "(No preview available)"
	displayDate     = "Mon 15:04"
)

var (
	namedAddressRe = regexp.MustCompile(`^"?([^"<]+)"?\s*<([^>]+)>$`)
	angleAddressRe = regexp.MustCompile(`<([^>]+)>`)
	senderRe       = regexp.MustCompile(`^(.*?)\s*<(.+?)>$`)
	bodyElementRe  = regexp.MustCompile(`(?i)<body([^>]*)>([\s\S]*?)</body>`)
	imageNameRe    = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|gif)$`)
	wordNameRe     = regexp.MustCompile(`(?i)\.(doc|docx)$`)
	excelNameRe    = regexp.MustCompile(`(?i)\.(xls|xlsx)$`)
)

// ExtractDisplayName returns the human-readable part of an address header:
// the quoted name when present, else the bare address, else the input.
func ExtractDisplayName(from string) string {
	if m := namedAddressRe.FindStringSubmatch(from); m != nil {
		return strings.Trim(strings.TrimSpace(m[1]), `"`)
	}
	if m := angleAddressRe.FindStringSubmatch(from); m != nil {
		return m[1]
	}
	return from
}

// ReplyAddress returns the address inside <...>, or the whole header.
func ReplyAddress(from string) string {
	if m := angleAddressRe.FindStringSubmatch(from); m != nil {
		return m[1]
	}
	return strings.ReplaceAll(from, `"`, "")
}

// ParseSender splits a From header into the name shown in the detail
// header and the address shown beside it.
func ParseSender(from string) (name, address string) {
	if m := senderRe.FindStringSubmatch(from); m != nil {
		name = strings.TrimSpace(strings.ReplaceAll(m[1], `"`, ""))
		address = m[2]
		if name == "" {
			name = address
		}
		return name, address
	}
	address = strings.ReplaceAll(from, `"`, "")
	return address, address
}

// HTMLToText uses the default sanitizer; see Sanitizer.HTMLToText.
func HTMLToText(raw string, n int) string {
	return DefaultSanitizer().HTMLToText(raw, n)
}

// FirstNWordsFromHTML uses the default sanitizer; see
// Sanitizer.FirstNWordsFromHTML.
func FirstNWordsFromHTML(raw string, n int) string {
	return DefaultSanitizer().FirstNWordsFromHTML(raw, n)
}

// ExtractBodyElement keeps only the <body> element of a full HTML
// document. Fragments are returned unchanged.
func ExtractBodyElement(raw string) string {
	m := bodyElementRe.FindStringSubmatch(raw)
	if m == nil {
		return raw
	}
	return "<body" + m[1] + ">" + m[2] + "</body>"
}

// PreviewSnippet prefers the plain-text part, then the HTML body.
func (s *Sanitizer) PreviewSnippet(m *Mail, words int) string {
	var snippet string
	switch {
	case m.Text != "":
		snippet = s.HTMLToText(m.Text, words)
	case m.Body != "":
		snippet = s.HTMLToText(m.Body, words)
	default:
		return noPreview
	}
	return truncateRunes(snippet, maxPreviewChars)
}

// FormatDisplayDate renders a list/detail date as weekday and time. Dates
// that cannot be parsed are shown as received.
func FormatDisplayDate(date string) string {
	t, ok := ParseDate(date)
	if !ok {
		return date
	}
	return t.Format(displayDate)
}

// FileKind classifies an attachment for its icon.
func FileKind(contentType, filename string) string {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "image") || imageNameRe.MatchString(filename):
		return "image"
	case strings.Contains(ct, "pdf") || strings.HasSuffix(strings.ToLower(filename), ".pdf"):
		return "pdf"
	case strings.Contains(ct, "word") || strings.Contains(ct, "msword") || wordNameRe.MatchString(filename):
		return "word"
	case strings.Contains(ct, "excel") || strings.Contains(ct, "spreadsheet") || excelNameRe.MatchString(filename):
		return "excel"
	default:
		return "file"
	}
}

// SortByDateDesc orders mails newest first. Unparseable dates sort last.
func SortByDateDesc(mails []Mail) {
	sort.SliceStable(mails, func(i, j int) bool {
		a, _ := mails[i].ParsedDate()
		b, _ := mails[j].ParsedDate()
		return a.After(b)
	})
}

// Filter keeps mails whose subject, sender or date contain term,
// case-insensitively. An empty term keeps everything.
func Filter(mails []Mail, term string) []Mail {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return mails
	}
	var out []Mail
	for _, m := range mails {
		if strings.Contains(strings.ToLower(m.Subject), term) ||
			strings.Contains(strings.ToLower(string(m.From)), term) ||
			strings.Contains(strings.ToLower(m.Date), term) {
			out = append(out, m)
		}
	}
	return out
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
