package mail

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractDisplayName(t *testing.T) {
	tests := []struct {
		from string
		want string
	}{
		{`"Jane Doe" <jane@example.com>`, "Jane Doe"},
		{`Jane Doe <jane@example.com>`, "Jane Doe"},
		{`<jane@example.com>`, "jane@example.com"},
		{`jane@example.com`, "jane@example.com"},
		{``, ``},
	}
	for _, tt := range tests {
		t.Run(tt.from, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractDisplayName(tt.from))
		})
	}
}

func TestReplyAddressAndSender(t *testing.T) {
	assert.Equal(t, "jane@example.com", ReplyAddress(`"Jane" <jane@example.com>`))
	assert.Equal(t, "jane@example.com", ReplyAddress(`jane@example.com`))

	name, addr := ParseSender(`"Jane Doe" <jane@example.com>`)
	assert.Equal(t, "Jane Doe", name)
	assert.Equal(t, "jane@example.com", addr)

	name, addr = ParseSender(`jane@example.com`)
	assert.Equal(t, "jane@example.com", name)
	assert.Equal(t, "jane@example.com", addr)
}

func TestExtractBodyElement(t *testing.T) {
	doc := `<html><head><style>p{}</style></head><BODY class="a"><p>hi</p></BODY></html>`
	assert.Equal(t, `<body class="a"><p>hi</p></body>`, ExtractBodyElement(doc))
	assert.Equal(t, "<p>fragment</p>", ExtractBodyElement("<p>fragment</p>"))
}

func TestPreviewSnippet(t *testing.T) {
	s := NewSanitizer()

	m := &Mail{Text: "plain words win", Body: "<p>html loses</p>"}
	assert.Equal(t, "plain words win", s.PreviewSnippet(m, 10))

	m = &Mail{Body: "<p>one two three four</p>"}
	assert.Equal(t, "one two...", s.PreviewSnippet(m, 2))

	assert.Equal(t, "(No preview available)", s.PreviewSnippet(&Mail{}, 10))

	long := &Mail{Text: strings.Repeat("word ", 200)}
	assert.Len(t, []rune(s.PreviewSnippet(long, 1000)), 300)
}

func TestFileKind(t *testing.T) {
	tests := []struct {
		contentType, filename, want string
	}{
		{"image/png", "x", "image"},
		{"", "photo.JPG", "image"},
		{"application/pdf", "", "pdf"},
		{"", "report.pdf", "pdf"},
		{"application/msword", "", "word"},
		{"", "letter.docx", "word"},
		{"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "", "excel"},
		{"", "numbers.xls", "excel"},
		{"text/plain", "notes.txt", "file"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FileKind(tt.contentType, tt.filename), tt.contentType+tt.filename)
	}
}

func TestSortByDateDesc(t *testing.T) {
	mails := []Mail{
		{UID: "1", Date: "2024-01-01T10:00:00Z"},
		{UID: "2", Date: "not a date"},
		{UID: "3", Date: "2024-03-01T10:00:00Z"},
		{UID: "4", Date: "Mon, 05 Feb 2024 09:00:00 +0000"},
	}
	SortByDateDesc(mails)

	var order []UID
	for _, m := range mails {
		order = append(order, m.UID)
	}
	assert.Equal(t, []UID{"3", "4", "1", "2"}, order)
}

func TestFilter(t *testing.T) {
	mails := []Mail{
		{UID: "1", Subject: "Your invoice", From: "billing@shop.example"},
		{UID: "2", Subject: "Lunch?", From: `"Invoice Bot" <bot@example.com>`},
		{UID: "3", Subject: "Hello", From: "a@example.com", Date: "2024-03-01"},
	}

	got := Filter(mails, "INVOICE")
	assert.Len(t, got, 2)

	got = Filter(mails, "2024-03")
	assert.Len(t, got, 1)
	assert.Equal(t, UID("3"), got[0].UID)

	assert.Len(t, Filter(mails, "  "), 3)
}

func TestFormatDisplayDate(t *testing.T) {
	assert.Equal(t, "Fri 10:05", FormatDisplayDate("2024-03-01T10:05:00Z"))
	assert.Equal(t, "garbage", FormatDisplayDate("garbage"))
}
