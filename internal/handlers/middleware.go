package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"studydeck/internal/security"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const VisitContextKey ContextKey = "visit"

// Middleware holds dependencies for middleware functions
type Middleware struct {
	limiter  *security.RateLimiter
	csrf     *security.CSRFGenerator
	visitTTL time.Duration
	log      logrus.FieldLogger
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(limiter *security.RateLimiter, csrf *security.CSRFGenerator, visitTTL time.Duration, logger logrus.FieldLogger) *Middleware {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Middleware{limiter: limiter, csrf: csrf, visitTTL: visitTTL, log: logger}
}

// Visit makes sure the request belongs to a visit, issuing a new visit
// cookie when the request carries none
func (m *Middleware) Visit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		visitID := ""
		if cookie, err := r.Cookie(security.VisitCookieName); err == nil && security.ValidVisitID(cookie.Value) {
			visitID = cookie.Value
		}
		if visitID == "" {
			visitID = security.NewVisitID()
			m.log.WithField("visit", visitID).Debug("new visit")
		}
		http.SetCookie(w, security.VisitCookie(r, visitID, m.visitTTL))

		ctx := context.WithValue(r.Context(), VisitContextKey, visitID)
		next(w, r.WithContext(ctx))
	}
}

// CSRFProtect rejects state-changing requests without the visit's token.
// The token is read from the X-CSRF-Token header or the csrf_token field.
func (m *Middleware) CSRFProtect(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get(security.CSRFHeader)
		if token == "" && isForm(r) {
			token = r.PostFormValue(security.CSRFFormField)
		}
		if !m.csrf.Valid(GetVisitFromContext(r.Context()), token) {
			m.log.WithField("path", r.URL.Path).Warn("CSRF validation failed")
			http.Error(w, ErrForbidden, http.StatusForbidden)
			return
		}
		next(w, r)
	}
}

// RateLimit rejects clients exceeding the configured request rate
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !m.limiter.Allow(security.GetClientIP(r)) {
			w.Header().Set("Retry-After", "1")
			http.Error(w, ErrTooManyRequests, http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}

// CSRFToken returns the token pages embed for the request's visit
func (m *Middleware) CSRFToken(r *http.Request) string {
	token, err := m.csrf.Token(GetVisitFromContext(r.Context()))
	if err != nil {
		return ""
	}
	return token
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Logging middleware logs HTTP requests
func Logging(logger logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			logger.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   rec.status,
				"duration": time.Since(start),
			}).Info("request")
		})
	}
}

// GetVisitFromContext retrieves the visit ID from the request context
func GetVisitFromContext(ctx context.Context) string {
	visitID, _ := ctx.Value(VisitContextKey).(string)
	return visitID
}

func isForm(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	return strings.HasPrefix(ct, "application/x-www-form-urlencoded") || strings.HasPrefix(ct, "multipart/form-data")
}
