package api

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/postfixrelay/psfxmail/internal/mail"
)

func targetEmail(r *http.Request) string {
	email, err := url.PathUnescape(chi.URLParam(r, "email"))
	if err != nil {
		return chi.URLParam(r, "email")
	}
	return email
}

// listMailUsers lists every mailbox account
func (s *Server) listMailUsers(w http.ResponseWriter, r *http.Request) {
	sess := getMailSession(r.Context())

	users, err := s.mail.AdminUsers(r.Context(), sess.Credentials())
	if err != nil {
		writeServiceError(w, err, "Failed to load users")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

// getUserFolderStats returns folder counts for one account
func (s *Server) getUserFolderStats(w http.ResponseWriter, r *http.Request) {
	sess := getMailSession(r.Context())
	target := targetEmail(r)

	v := NewValidator()
	v.ValidateEmail("email", target)
	if v.HasErrors() {
		writeValidationErrors(w, "Error", v.Errors())
		return
	}

	stats, err := s.mail.AdminStats(r.Context(), sess.Credentials(), target)
	if err != nil {
		writeServiceError(w, err, "Failed to load folder stats")
		return
	}
	s.auditLog(sessionEmail(sess), "admin.stats", "account", target, "Viewed folder stats", "success", "", r)
	writeJSON(w, http.StatusOK, map[string]any{"stats": stats})
}

// getUserMessages lists one folder of another account
func (s *Server) getUserMessages(w http.ResponseWriter, r *http.Request) {
	sess := getMailSession(r.Context())
	target := targetEmail(r)

	v := NewValidator()
	v.ValidateEmail("email", target)
	if v.HasErrors() {
		writeValidationErrors(w, "Error", v.Errors())
		return
	}

	folder, err := mail.ParseFolder(chi.URLParam(r, "folder"))
	if err != nil {
		writeNotice(w, http.StatusBadRequest, "Error", "Unknown folder.")
		return
	}

	msgs, err := s.mail.AdminMessages(r.Context(), sess.Credentials(), target, folder,
		queryInt(r, "page", 1), queryInt(r, "pageSize", 0))
	if err != nil {
		writeServiceError(w, err, "Failed to load emails")
		return
	}
	s.auditLog(sessionEmail(sess), "admin.messages", "account", target, "Viewed "+folder.String(), "success", "", r)
	writeJSON(w, http.StatusOK, map[string]any{"emails": msgs})
}
