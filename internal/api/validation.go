package api

import (
	"encoding/base64"
	"regexp"
	"strconv"
	"strings"

	"github.com/postfixrelay/psfxmail/internal/mail"
)

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validator accumulates validation errors
type Validator struct {
	errors []ValidationError
}

// NewValidator creates a new Validator
func NewValidator() *Validator {
	return &Validator{errors: make([]ValidationError, 0)}
}

// Email: simplified RFC 5322
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

const (
	maxSubjectLength    = 998
	maxAttachments      = 20
	maxAttachmentBase64 = 25 << 20
)

// AddError adds a validation error
func (v *Validator) AddError(field, message string) {
	v.errors = append(v.errors, ValidationError{Field: field, Message: message})
}

// HasErrors returns true if there are validation errors
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns all validation errors
func (v *Validator) Errors() []ValidationError {
	return v.errors
}

// ValidateRequired checks that a field is not empty
func (v *Validator) ValidateRequired(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "this field is required")
	}
}

// ValidateEmail validates an email address
func (v *Validator) ValidateEmail(field, value string) {
	if value == "" {
		return
	}

	if len(value) > 254 {
		v.AddError(field, "email address too long (max 254 characters)")
		return
	}

	if !emailRegex.MatchString(value) {
		v.AddError(field, "invalid email address format")
	}
}

// ValidateMaxLength checks that a field does not exceed maxLen characters
func (v *Validator) ValidateMaxLength(field, value string, maxLen int) {
	if len(value) > maxLen {
		v.AddError(field, "value too long (max "+strconv.Itoa(maxLen)+" characters)")
	}
}

// ValidateRecipients validates a comma-separated recipient list. Entries
// may carry a display name, as in `"Jane" <jane@example.com>`.
func (v *Validator) ValidateRecipients(field, value string) {
	if value == "" {
		return
	}

	for _, entry := range strings.Split(value, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		addr := mail.ReplyAddress(entry)
		if !emailRegex.MatchString(strings.TrimSpace(addr)) {
			v.AddError(field, "invalid email address: "+entry)
		}
	}
}

// ValidateAttachments checks count, names and base64 payloads.
func (v *Validator) ValidateAttachments(field string, atts []mail.OutgoingAttachment) {
	if len(atts) > maxAttachments {
		v.AddError(field, "too many attachments (max "+strconv.Itoa(maxAttachments)+")")
		return
	}
	total := 0
	for _, a := range atts {
		if strings.TrimSpace(a.Filename) == "" {
			v.AddError(field, "attachment filename is required")
			continue
		}
		if a.Encoding != "" && a.Encoding != "base64" {
			v.AddError(field, "unsupported encoding for "+a.Filename)
			continue
		}
		if _, err := base64.StdEncoding.DecodeString(a.Content); err != nil {
			v.AddError(field, "attachment is not valid base64: "+a.Filename)
			continue
		}
		total += len(a.Content)
	}
	if total > maxAttachmentBase64 {
		v.AddError(field, "attachments too large")
	}
}

// ValidateCompose checks the shape of an outgoing message. Empty required
// fields are left to the service, which reports them as missing.
func (v *Validator) ValidateCompose(c mail.Compose) {
	v.ValidateRecipients("to", c.To)
	v.ValidateRecipients("cc", c.Cc)
	v.ValidateRecipients("bcc", c.Bcc)
	v.ValidateMaxLength("subject", c.Subject, maxSubjectLength)
	v.ValidateAttachments("attachments", c.Attachments)
}
