package security

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

// VisitCookieName carries the visitor identifier
const VisitCookieName = "studydeck_visit"

// NewVisitID creates a random visitor identifier
func NewVisitID() string {
	return uuid.New().String()
}

// ValidVisitID reports whether id looks like an identifier we issued
func ValidVisitID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// IsSecureRequest determines if the request is over HTTPS, directly or
// behind a reverse proxy
func IsSecureRequest(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	if r.Header.Get("X-Forwarded-Proto") == "https" {
		return true
	}
	return r.URL.Scheme == "https"
}

// VisitCookie builds the visitor cookie. The Secure flag follows the
// request scheme.
func VisitCookie(r *http.Request, id string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     VisitCookieName,
		Value:    id,
		Path:     "/",
		Expires:  time.Now().Add(ttl),
		HttpOnly: true,
		Secure:   IsSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
	}
}

// ClearVisitCookie expires the visitor cookie
func ClearVisitCookie(r *http.Request) *http.Cookie {
	return &http.Cookie{
		Name:     VisitCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   IsSecureRequest(r),
	}
}
