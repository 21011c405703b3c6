package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/postfixrelay/psfxmail/internal/session"
	"github.com/postfixrelay/psfxmail/internal/webmail"
	"github.com/rs/zerolog/log"
)

type contextKey string

const (
	contextKeyMailSession contextKey = "mail_session"
)

// Cookie name for mail session
const mailSessionCookie = "psfx_mail_session"

func setMailSession(ctx context.Context, sess *session.Session) context.Context {
	return context.WithValue(ctx, contextKeyMailSession, sess)
}

func getMailSession(ctx context.Context) *session.Session {
	if sess, ok := ctx.Value(contextKeyMailSession).(*session.Session); ok {
		return sess
	}
	return nil
}

// account adapts the session to the webmail service.
func account(sess *session.Session) webmail.Account {
	return webmail.Account{Credentials: sess.Credentials(), List: sess.List()}
}

// sessionToken reads the token from the httpOnly cookie, falling back to
// a Bearer header for API clients.
func sessionToken(r *http.Request) string {
	if cookie, err := r.Cookie(mailSessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// mailSessionMiddleware resolves the session and adds it to the context.
// A missing or expired session answers 401 with a redirect to the login
// page, and clears the stale cookie.
func (s *Server) mailSessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.sessions.Lookup(r.Context(), sessionToken(r))
		if errors.Is(err, session.ErrSessionExpired) {
			s.clearSessionCookie(w)
			writeJSON(w, http.StatusUnauthorized, notice{
				Title:       "Session Expired",
				Description: "Please log in again.",
				Redirect:    "/login",
			})
			return
		}
		if err != nil {
			log.Error().Err(err).Msg("Failed to resolve mail session")
			writeNotice(w, http.StatusInternalServerError, "Error", "Something went wrong. Please try again.")
			return
		}

		next.ServeHTTP(w, r.WithContext(setMailSession(r.Context(), sess)))
	})
}

// adminOnlyMiddleware restricts access to sessions whose login carried the
// admin role claim
func (s *Server) adminOnlyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := getMailSession(r.Context())
		if sess == nil || !sess.IsAdmin() {
			writeNotice(w, http.StatusForbidden, "Access Denied", "Administrator access is required.")
			return
		}
		next.ServeHTTP(w, r)
	})
}
