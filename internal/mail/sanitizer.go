package mail

import (
	"html"
	"regexp"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer cleans message HTML before it is rendered and extracts plain
// text for previews.
type Sanitizer struct {
	body *bluemonday.Policy
	text *bluemonday.Policy
}

// NewSanitizer creates a sanitizer whose body policy allows only basic
// text formatting, lists and links.
func NewSanitizer() *Sanitizer {
	p := bluemonday.NewPolicy()

	p.AllowElements("p", "br", "div", "span", "strong", "em")
	p.AllowElements("ul", "ol", "li")

	p.AllowElements("a")
	p.AllowAttrs("href").OnElements("a")
	p.AllowStandardURLs()
	p.RequireNoReferrerOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)

	p.AllowAttrs("style", "class").Globally()
	p.AllowStyles(
		"color", "background-color",
		"font-family", "font-size", "font-weight", "font-style",
		"text-align", "text-decoration",
		"margin", "margin-top", "margin-right", "margin-bottom", "margin-left",
		"padding", "padding-top", "padding-right", "padding-bottom", "padding-left",
		"display", "vertical-align",
	).Globally()

	t := bluemonday.StrictPolicy()
	t.AddSpaceWhenStrippingTag(true)

	return &Sanitizer{body: p, text: t}
}

// SanitizeHTML returns HTML that is safe to inject into the page.
func (s *Sanitizer) SanitizeHTML(raw string) string {
	return s.body.Sanitize(raw)
}

// Text strips every tag and returns the unescaped text content. Script and
// style contents are dropped entirely.
func (s *Sanitizer) Text(raw string) string {
	return html.UnescapeString(s.text.Sanitize(raw))
}

// HTMLToText returns the first n words of the text content of raw, with
// "..." appended when words were cut.
func (s *Sanitizer) HTMLToText(raw string, n int) string {
	if raw == "" {
		return ""
	}
	words := strings.Fields(s.Text(raw))
	if n < 0 || len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:n], " ") + "..."
}

var styleBlockRe = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)

// FirstNWordsFromHTML is the admin dashboard variant of HTMLToText. It
// drops <style> blocks first and returns the text untouched when it has
// at most n words.
func (s *Sanitizer) FirstNWordsFromHTML(raw string, n int) string {
	text := strings.TrimSpace(s.Text(styleBlockRe.ReplaceAllString(raw, "")))
	words := strings.Fields(text)
	if n < 0 || len(words) <= n {
		return text
	}
	return strings.Join(words[:n], " ") + "..."
}

var (
	defaultSanitizer     *Sanitizer
	defaultSanitizerOnce sync.Once
)

// DefaultSanitizer returns a process-wide sanitizer. Policies are safe for
// concurrent use once built.
func DefaultSanitizer() *Sanitizer {
	defaultSanitizerOnce.Do(func() {
		defaultSanitizer = NewSanitizer()
	})
	return defaultSanitizer
}
