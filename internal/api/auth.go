package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/postfixrelay/psfxmail/internal/backend"
	"github.com/postfixrelay/psfxmail/internal/session"
	"github.com/rs/zerolog/log"
)

type mailLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type mailSessionResponse struct {
	Success   bool      `json:"success"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expiresAt"`
	// Token is not returned in body - sent as httpOnly cookie
}

// authenticateMail handles mailbox authentication
func (s *Server) authenticateMail(w http.ResponseWriter, r *http.Request) {
	var req mailLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeNotice(w, http.StatusBadRequest, "Login Failed", "Invalid request body.")
		return
	}

	v := NewValidator()
	v.ValidateRequired("email", req.Email)
	v.ValidateRequired("password", req.Password)
	v.ValidateEmail("email", req.Email)
	if v.HasErrors() {
		writeValidationErrors(w, "Login Failed", v.Errors())
		return
	}

	token, sess, err := s.sessions.Login(r.Context(), req.Email, req.Password, clientIP(r), r.UserAgent())
	if err != nil {
		if errors.Is(err, backend.ErrRejected) || backend.IsUnauthorized(err) {
			log.Warn().Str("email", req.Email).Msg("Mail authentication failed")
			s.auditLog(req.Email, "login", "session", "", "Mail login rejected", "failed", backend.Message(err), r)
			desc := backend.Message(err)
			if desc == "" {
				desc = "Invalid email or password."
			}
			writeNotice(w, http.StatusUnauthorized, "Login Failed", desc)
			return
		}
		log.Error().Err(err).Str("email", req.Email).Msg("Mail login error")
		writeNotice(w, http.StatusBadGateway, "Login Failed", "Could not reach the mail server. Please try again.")
		return
	}

	s.auditLog(sess.Email, "login", "session", "", "Mail login", "success", "", r)

	http.SetCookie(w, &http.Cookie{
		Name:     mailSessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.IsProduction(),
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(s.cfg.SessionTTL().Seconds()),
	})

	writeJSON(w, http.StatusOK, mailSessionResponse{
		Success:   true,
		Email:     sess.Email,
		Role:      sess.Role,
		ExpiresAt: sess.ExpiresAt,
	})
}

// logoutMail handles mail session logout
func (s *Server) logoutMail(w http.ResponseWriter, r *http.Request) {
	if token := sessionToken(r); token != "" {
		if err := s.sessions.Logout(r.Context(), token); err != nil {
			log.Error().Err(err).Msg("Failed to delete mail session")
		}
	}

	s.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

func (s *Server) mailMe(w http.ResponseWriter, r *http.Request) {
	sess := getMailSession(r.Context())
	writeJSON(w, http.StatusOK, mailSessionResponse{
		Success:   true,
		Email:     sess.Email,
		Role:      sess.Role,
		ExpiresAt: sess.ExpiresAt,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     mailSessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.IsProduction(),
		SameSite: http.SameSiteStrictMode,
		MaxAge:   -1,
	})
}

// Helper to write audit log entries
func (s *Server) auditLog(email, action, resourceType, resourceID, summary, status, errorMsg string, r *http.Request) {
	requestID := middleware.GetReqID(r.Context())
	if requestID == "" {
		requestID = uuid.NewString()
	}

	_, err := s.db.ExecContext(r.Context(), `
		INSERT INTO audit_log (request_id, created_at, email, action, resource_type, resource_id, summary, status, error_message, ip_address, user_agent)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, requestID, time.Now().Unix(), email, action, resourceType, resourceID, summary, status, errorMsg, clientIP(r), r.UserAgent())

	if err != nil {
		log.Error().Err(err).Msg("failed to write audit log")
	}
}

// sessionEmail is the audit identity of the current request.
func sessionEmail(sess *session.Session) string {
	if sess == nil {
		return ""
	}
	return sess.Email
}
