package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/postfixrelay/psfxmail/internal/mail"
	"github.com/rs/zerolog/log"
)

const maxComposeBody = 40 << 20

var actionTitles = map[mail.Action]string{
	mail.ActionArchive:       "Archived",
	mail.ActionUnarchive:     "Moved to Inbox",
	mail.ActionTrash:         "Moved to Trash",
	mail.ActionRestore:       "Restored",
	mail.ActionDeleteForever: "Deleted Forever",
	mail.ActionSendDraft:     "Draft Sent",
	mail.ActionDeleteDraft:   "Draft Deleted",
}

type actionResponse struct {
	Success bool   `json:"success"`
	Title   string `json:"title"`
}

func queryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

// getFolderCounts returns total and unread counts for every folder
func (s *Server) getFolderCounts(w http.ResponseWriter, r *http.Request) {
	sess := getMailSession(r.Context())

	counts, err := s.mail.FolderCounts(r.Context(), sess.Credentials(), queryInt(r, "pageSize", 0))
	if err != nil {
		writeServiceError(w, err, "Failed to load folder counts")
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

// getMailMessages lists messages in a folder
func (s *Server) getMailMessages(w http.ResponseWriter, r *http.Request) {
	sess := getMailSession(r.Context())

	folder, err := mail.ParseFolder(chi.URLParam(r, "folder"))
	if err != nil {
		writeNotice(w, http.StatusBadRequest, "Error", "Unknown folder.")
		return
	}

	res, err := s.mail.List(r.Context(), account(sess), folder,
		queryInt(r, "page", 1), queryInt(r, "pageSize", 0), r.URL.Query().Get("q"))
	if err != nil {
		writeServiceError(w, err, "Failed to load emails")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// getPermittedActions returns the actions offered for a folder name
func (s *Server) getPermittedActions(w http.ResponseWriter, r *http.Request) {
	folder := r.URL.Query().Get("folder")
	writeJSON(w, http.StatusOK, map[string]any{
		"folder":  mail.ActionFolderFor(folder),
		"actions": mail.PermittedActions(folder),
	})
}

// getMessage opens a message from the current list
func (s *Server) getMessage(w http.ResponseWriter, r *http.Request) {
	sess := getMailSession(r.Context())
	uid := chi.URLParam(r, "uid")

	downloadBase := "/api/v1/mail/messages/" + url.PathEscape(uid) + "/attachments"
	detail, err := s.mail.Open(r.Context(), account(sess), mail.UID(uid), downloadBase)
	if err != nil {
		writeServiceError(w, err, "Failed to open email")
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// performAction runs a folder action such as archive or sendDraft
func (s *Server) performAction(w http.ResponseWriter, r *http.Request) {
	sess := getMailSession(r.Context())
	uid := chi.URLParam(r, "uid")

	action, err := mail.ParseAction(chi.URLParam(r, "action"))
	if err != nil {
		writeNotice(w, http.StatusNotFound, "Error", "Unknown action.")
		return
	}

	err = s.mail.Perform(r.Context(), account(sess), mail.UID(uid), action, r.Header.Get("Idempotency-Key"))
	if err != nil {
		s.auditLog(sess.Email, string(action), "message", uid, "Folder action", "failed", err.Error(), r)
		writeServiceError(w, err, "Action failed")
		return
	}

	s.auditLog(sess.Email, string(action), "message", uid, "Folder action", "success", "", r)
	writeJSON(w, http.StatusOK, actionResponse{Success: true, Title: actionTitles[action]})
}

func decodeCompose(w http.ResponseWriter, r *http.Request) (mail.Compose, bool) {
	var msg mail.Compose
	r.Body = http.MaxBytesReader(w, r.Body, maxComposeBody)
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		writeNotice(w, http.StatusBadRequest, "Error", "Invalid request body.")
		return msg, false
	}
	for i := range msg.Attachments {
		if msg.Attachments[i].Encoding == "" {
			msg.Attachments[i].Encoding = "base64"
		}
	}

	v := NewValidator()
	v.ValidateCompose(msg)
	if v.HasErrors() {
		writeValidationErrors(w, "Invalid Message", v.Errors())
		return msg, false
	}
	return msg, true
}

// sendMessage sends a new email
func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	sess := getMailSession(r.Context())

	msg, ok := decodeCompose(w, r)
	if !ok {
		return
	}

	if err := s.mail.Send(r.Context(), account(sess), msg); err != nil {
		writeServiceError(w, err, "Failed to send email")
		return
	}

	s.auditLog(sess.Email, "send", "message", "", "Email sent", "success", "", r)
	writeJSON(w, http.StatusOK, actionResponse{Success: true, Title: "Email Sent"})
}

// saveDraft stores the compose window as a draft
func (s *Server) saveDraft(w http.ResponseWriter, r *http.Request) {
	sess := getMailSession(r.Context())

	msg, ok := decodeCompose(w, r)
	if !ok {
		return
	}

	if err := s.mail.SaveDraft(r.Context(), account(sess), msg); err != nil {
		writeServiceError(w, err, "Failed to save draft")
		return
	}
	writeJSON(w, http.StatusOK, actionResponse{Success: true, Title: "Draft Saved"})
}

// replyToMessage answers the sender of a message
func (s *Server) replyToMessage(w http.ResponseWriter, r *http.Request) {
	sess := getMailSession(r.Context())

	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeNotice(w, http.StatusBadRequest, "Error", "Invalid request body.")
		return
	}

	if err := s.mail.Reply(r.Context(), account(sess), mail.UID(chi.URLParam(r, "uid")), req.Text); err != nil {
		writeServiceError(w, err, "Failed to send reply")
		return
	}

	s.auditLog(sess.Email, "reply", "message", chi.URLParam(r, "uid"), "Reply sent", "success", "", r)
	writeJSON(w, http.StatusOK, actionResponse{Success: true, Title: "Reply Sent"})
}

// forwardMessage forwards a message to new recipients
func (s *Server) forwardMessage(w http.ResponseWriter, r *http.Request) {
	sess := getMailSession(r.Context())

	var req struct {
		To   string `json:"to"`
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeNotice(w, http.StatusBadRequest, "Error", "Invalid request body.")
		return
	}

	v := NewValidator()
	v.ValidateRecipients("to", req.To)
	if v.HasErrors() {
		writeValidationErrors(w, "Invalid Message", v.Errors())
		return
	}

	if err := s.mail.Forward(r.Context(), account(sess), mail.UID(chi.URLParam(r, "uid")), req.To, req.Text); err != nil {
		writeServiceError(w, err, "Failed to forward email")
		return
	}

	s.auditLog(sess.Email, "forward", "message", chi.URLParam(r, "uid"), "Email forwarded", "success", "", r)
	writeJSON(w, http.StatusOK, actionResponse{Success: true, Title: "Email Forwarded"})
}

// downloadAttachment proxies an attachment from the backend
func (s *Server) downloadAttachment(w http.ResponseWriter, r *http.Request) {
	sess := getMailSession(r.Context())

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeNotice(w, http.StatusBadRequest, "Error", "Invalid attachment index.")
		return
	}

	att, err := s.mail.Attachment(r.Context(), account(sess), mail.UID(chi.URLParam(r, "uid")), index)
	if err != nil {
		writeServiceError(w, err, "Failed to download attachment")
		return
	}
	defer att.Body.Close()

	contentType := att.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	if att.ContentDisposition != "" {
		w.Header().Set("Content-Disposition", att.ContentDisposition)
	} else {
		w.Header().Set("Content-Disposition", "attachment")
	}
	if att.ContentLength > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(att.ContentLength, 10))
	}
	if _, err := io.Copy(w, att.Body); err != nil {
		log.Warn().Err(err).Msg("Attachment download interrupted")
	}
}
