package api

import (
	"crypto/sha256"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/csrf"
	"github.com/postfixrelay/psfxmail/internal/config"
	"github.com/postfixrelay/psfxmail/internal/database"
	"github.com/postfixrelay/psfxmail/internal/session"
	"github.com/postfixrelay/psfxmail/internal/webmail"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Server holds the API server dependencies
type Server struct {
	cfg      *config.Config
	db       *database.DB
	sessions *session.Manager
	mail     *webmail.Service

	globalLimiter *ipRateLimiter
	loginLimiter  *ipRateLimiter
}

// NewServer creates a new API server
func NewServer(cfg *config.Config, db *database.DB, sessions *session.Manager, svc *webmail.Service) *Server {
	return &Server{
		cfg:           cfg,
		db:            db,
		sessions:      sessions,
		mail:          svc,
		globalLimiter: newIPRateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst),
		loginLimiter:  newIPRateLimiter(rate.Limit(cfg.LoginRateLimitRPS), cfg.LoginRateBurst),
	}
}

// Router creates and configures the HTTP router
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggerMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(s.rateLimitMiddleware)
	r.Use(s.securityHeadersMiddleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "Idempotency-Key"},
		ExposedHeaders:   []string{"X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if s.cfg.CSRFEnabled {
		csrfMiddleware := csrf.Protect(
			s.deriveCSRFKey(),
			csrf.Secure(s.cfg.IsProduction()),
			csrf.HttpOnly(true),
			csrf.SameSite(csrf.SameSiteStrictMode),
			csrf.Path("/"),
			csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				log.Warn().
					Str("path", r.URL.Path).
					Str("method", r.Method).
					Str("ip", r.RemoteAddr).
					Msg("CSRF token validation failed")
				writeNotice(w, http.StatusForbidden, "Error", "Your session token is invalid. Please reload the page.")
			})),
		)
		r.Use(s.csrfExemptMiddleware(csrfMiddleware))
	}

	// Health endpoints (no auth)
	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/csrf-token", s.getCSRFToken)

		r.Route("/mail", func(r chi.Router) {
			r.With(s.loginRateLimitMiddleware).Post("/auth", s.authenticateMail)
			r.Post("/logout", s.logoutMail)

			r.Group(func(r chi.Router) {
				r.Use(s.mailSessionMiddleware)

				r.Get("/me", s.mailMe)

				r.Get("/folders", s.getFolderCounts)
				r.Get("/folders/{folder}/messages", s.getMailMessages)
				r.Get("/actions", s.getPermittedActions)

				r.Get("/messages/{uid}", s.getMessage)
				r.Post("/messages/{uid}/reply", s.replyToMessage)
				r.Post("/messages/{uid}/forward", s.forwardMessage)
				r.Get("/messages/{uid}/attachments/{index}", s.downloadAttachment)
				r.Post("/messages/{uid}/{action}", s.performAction)

				r.Post("/send", s.sendMessage)
				r.Post("/drafts", s.saveDraft)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.mailSessionMiddleware)
			r.Use(s.adminOnlyMiddleware)

			r.Get("/users", s.listMailUsers)
			r.Get("/users/{email}/stats", s.getUserFolderStats)
			r.Get("/users/{email}/folders/{folder}/messages", s.getUserMessages)
		})
	})

	// Serve static files (frontend) in production
	r.Handle("/*", http.FileServer(http.Dir(s.cfg.StaticDir)))

	return r
}

// Logger middleware
func (s *Server) loggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			log.Debug().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Msg("request")
		}()

		next.ServeHTTP(ww, r)
	})
}

// Health check handlers
func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if err := s.db.PingContext(r.Context()); err != nil {
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready"))
}

// deriveCSRFKey derives a 32-byte CSRF key from the AppSecret
func (s *Server) deriveCSRFKey() []byte {
	hash := sha256.Sum256([]byte(s.cfg.AppSecret + "-csrf"))
	return hash[:]
}

// csrfExemptMiddleware wraps CSRF middleware and exempts certain paths
func (s *Server) csrfExemptMiddleware(csrfHandler func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		csrfProtected := csrfHandler(next)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Health checks and static files
			if !strings.HasPrefix(r.URL.Path, "/api/") {
				next.ServeHTTP(w, r)
				return
			}

			// Bearer-authenticated API clients carry no ambient credentials
			if strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
				if _, err := r.Cookie(mailSessionCookie); err != nil {
					next.ServeHTTP(w, r)
					return
				}
			}

			csrfProtected.ServeHTTP(w, r)
		})
	}
}

// ipRateLimiter keeps one token bucket per client IP. Buckets idle for
// longer than limiterIdle are dropped on the next sweep.
type ipRateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	rate      rate.Limit
	burst     int
	lastSweep time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const limiterIdle = time.Hour

func newIPRateLimiter(r rate.Limit, b int) *ipRateLimiter {
	return &ipRateLimiter{
		limiters:  make(map[string]*limiterEntry),
		rate:      r,
		burst:     b,
		lastSweep: time.Now(),
	}
}

func (l *ipRateLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.lastSweep) > limiterIdle {
		for key, e := range l.limiters {
			if now.Sub(e.lastSeen) > limiterIdle {
				delete(l.limiters, key)
			}
		}
		l.lastSweep = now
	}

	e, ok := l.limiters[ip]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[ip] = e
	}
	e.lastSeen = now
	return e.limiter.Allow()
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// rateLimitMiddleware applies global rate limiting
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !s.globalLimiter.allow(ip) {
			log.Warn().
				Str("ip", ip).
				Str("path", r.URL.Path).
				Msg("Rate limit exceeded")
			writeNotice(w, http.StatusTooManyRequests, "Error", "Too many requests. Please slow down.")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loginRateLimitMiddleware applies stricter rate limiting for auth endpoints
func (s *Server) loginRateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !s.loginLimiter.allow(ip) {
			log.Warn().
				Str("ip", ip).
				Str("path", r.URL.Path).
				Msg("Login rate limit exceeded")
			writeNotice(w, http.StatusTooManyRequests, "Login Failed", "Too many login attempts, please try again later.")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// securityHeadersMiddleware adds security headers to all responses
func (s *Server) securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		// Message bodies are sanitized server-side; the CSP is the second
		// line that keeps any surviving markup from running script.
		w.Header().Set("Content-Security-Policy",
			"default-src 'self'; "+
				"script-src 'self'; "+
				"style-src 'self' 'unsafe-inline'; "+
				"img-src 'self' data: blob:; "+
				"font-src 'self' data:; "+
				"connect-src 'self'; "+
				"frame-ancestors 'none'; "+
				"form-action 'self'")

		w.Header().Set("Permissions-Policy",
			"accelerometer=(), camera=(), geolocation=(), gyroscope=(), magnetometer=(), microphone=(), payment=(), usb=()")

		if s.cfg.IsProduction() {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

// getCSRFToken returns the CSRF token for the current request
func (s *Server) getCSRFToken(w http.ResponseWriter, r *http.Request) {
	token := ""
	if s.cfg.CSRFEnabled {
		token = csrf.Token(r)
	}
	w.Header().Set("X-CSRF-Token", token)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"csrfToken": token,
	})
}
