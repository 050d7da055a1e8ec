// Package middleware provides HTTP middleware for the signup gateway.
package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/harborlane/signup-gateway/internal/errors"
	"github.com/harborlane/signup-gateway/internal/httputil"
	"github.com/harborlane/signup-gateway/internal/logging"
)

// Cookie and header names for the anti-forgery token.
const (
	CSRFCookieName = "csrf_token"
	CSRFHeaderName = "X-CSRF-Token"
)

// CSRFGuard issues and validates anti-forgery tokens using the
// double-submit pattern: the token is set as a cookie and returned in the
// response body, and a mutating request must echo it in the header.
//
// Tokens embed their expiry and are checked by timestamp comparison, so a
// replayed cookie after the TTL fails even though the cookie was never
// deleted. Tokens are reusable until expiry.
type CSRFGuard struct {
	ttl    time.Duration
	secure bool
	logger *logging.Logger

	// now is swapped in tests to cross the TTL boundary.
	now func() time.Time
}

// NewCSRFGuard creates a guard with the given token TTL.
func NewCSRFGuard(ttl time.Duration, secure bool, logger *logging.Logger) *CSRFGuard {
	return &CSRFGuard{
		ttl:    ttl,
		secure: secure,
		logger: logger,
		now:    time.Now,
	}
}

// Issue generates a token, sets it as a cookie on the response, and
// returns the token and its expiry for the response body.
func (g *CSRFGuard) Issue(w http.ResponseWriter) (string, time.Time, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", time.Time{}, fmt.Errorf("generate csrf token: %w", err)
	}

	expires := g.now().Add(g.ttl)
	token := fmt.Sprintf("%s.%d", hex.EncodeToString(raw), expires.Unix())

	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   g.secure,
		SameSite: http.SameSiteLaxMode,
	})

	return token, expires, nil
}

// Validate wraps a mutating handler. It fails closed: missing header,
// missing cookie, mismatch, or elapsed TTL all reject the request before
// authentication or any business logic runs.
func (g *CSRFGuard) Validate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headerToken := r.Header.Get(CSRFHeaderName)
		if headerToken == "" {
			g.reject(w, r, "missing csrf token header")
			return
		}

		cookie, err := r.Cookie(CSRFCookieName)
		if err != nil || cookie.Value == "" {
			g.reject(w, r, "missing csrf cookie")
			return
		}

		if subtle.ConstantTimeCompare([]byte(headerToken), []byte(cookie.Value)) != 1 {
			g.reject(w, r, "csrf token mismatch")
			return
		}

		expires, ok := parseTokenExpiry(cookie.Value)
		if !ok {
			g.reject(w, r, "malformed csrf token")
			return
		}
		if !g.now().Before(expires) {
			g.reject(w, r, "csrf token expired")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (g *CSRFGuard) reject(w http.ResponseWriter, r *http.Request, reason string) {
	g.logger.LogSecurityEvent(r.Context(), "csrf_rejected", map[string]interface{}{
		"reason": reason,
		"path":   r.URL.Path,
	})

	se := errors.CSRFRejected("invalid or expired form token, please reload and try again")
	httputil.WriteErrorResponse(w, se.HTTPStatus, string(se.Code), se.Message, "")
}

func parseTokenExpiry(token string) (time.Time, bool) {
	idx := strings.LastIndexByte(token, '.')
	if idx < 0 {
		return time.Time{}, false
	}
	unix, err := strconv.ParseInt(token[idx+1:], 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(unix, 0), true
}
