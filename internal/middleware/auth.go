package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"github.com/harborlane/signup-gateway/internal/backend"
	"github.com/harborlane/signup-gateway/internal/credentials"
	"github.com/harborlane/signup-gateway/internal/errors"
	"github.com/harborlane/signup-gateway/internal/httputil"
	"github.com/harborlane/signup-gateway/internal/logging"
)

// AuthContext is the per-request authentication result. It is computed
// for each request and never persisted.
type AuthContext struct {
	IsAuthenticated bool
	SubjectID       string
	FailureReason   string

	// TokenInvalid marks failures where a bearer token was presented but
	// rejected, as opposed to no credential at all.
	TokenInvalid bool

	// User is the verified identity when authentication succeeded.
	User *backend.User

	// Session is supplementary context decoded from the token claims.
	// It may be nil even on authenticated requests.
	Session *SessionInfo
}

// SessionInfo is best-effort session context from the bearer's claims.
type SessionInfo struct {
	SessionID string
	Role      string
	ExpiresAt time.Time
}

// ClientProvider yields backend handles; satisfied by *backend.Factory.
type ClientProvider interface {
	GetClient(pair *credentials.Pair) *backend.Handle
}

// AuthGate validates bearer credentials against the backend identity
// endpoint and attaches the verified identity to the request.
type AuthGate struct {
	clients ClientProvider
	logger  *logging.Logger
}

// NewAuthGate creates an auth gate over the given client provider.
func NewAuthGate(clients ClientProvider, logger *logging.Logger) *AuthGate {
	return &AuthGate{clients: clients, logger: logger}
}

// Authenticate extracts and verifies the bearer credential. It never
// returns an error: absent or invalid credentials yield an AuthContext
// with IsAuthenticated=false and a descriptive reason.
func (g *AuthGate) Authenticate(r *http.Request) AuthContext {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return AuthContext{FailureReason: "missing authorization header"}
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return AuthContext{FailureReason: "malformed authorization header"}
	}
	token := parts[1]

	// Cheap local checks before the network round trip: an unparseable
	// or already-expired token never reaches the identity endpoint.
	claims, reason := preParseToken(token)
	if reason != "" {
		return AuthContext{FailureReason: reason, TokenInvalid: true}
	}

	handle := g.clients.GetClient(nil)
	user, err := handle.Client.GetUser(r.Context(), token)
	if err != nil {
		g.logger.WithContext(r.Context()).WithError(err).WithFields(logrus.Fields{
			"mock": handle.Mock,
		}).Warn("Identity verification failed")
		return AuthContext{FailureReason: "identity verification failed", TokenInvalid: true}
	}

	return AuthContext{
		IsAuthenticated: true,
		SubjectID:       user.ID,
		User:            user,
		Session:         sessionFromClaims(claims),
	}
}

// RequireAuth wraps a handler that needs a verified identity. The handler
// is invoked only when IsAuthenticated is true; otherwise the request is
// answered with 401 and the handler never runs.
func (g *AuthGate) RequireAuth(handler func(http.ResponseWriter, *http.Request, AuthContext)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authCtx := g.Authenticate(r)
		if !authCtx.IsAuthenticated {
			g.logger.LogSecurityEvent(r.Context(), "auth_rejected", map[string]interface{}{
				"reason": authCtx.FailureReason,
				"path":   r.URL.Path,
			})
			if authCtx.TokenInvalid {
				httputil.WriteServiceError(w, errors.InvalidToken(nil), "")
				return
			}
			httputil.Unauthorized(w, "please sign in")
			return
		}

		ctx := context.WithValue(r.Context(), logging.UserIDKey, authCtx.SubjectID)
		handler(w, r.WithContext(ctx), authCtx)
	}
}

// preParseToken decodes the JWT without verifying its signature. Signature
// verification is the backend's job; this only rejects tokens that cannot
// possibly pass.
func preParseToken(token string) (jwt.MapClaims, string) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil, "malformed bearer token"
	}

	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		if time.Now().After(exp.Time) {
			return nil, "token expired"
		}
	}

	return claims, ""
}

func sessionFromClaims(claims jwt.MapClaims) *SessionInfo {
	if claims == nil {
		return nil
	}

	info := &SessionInfo{}
	if sid, ok := claims["session_id"].(string); ok {
		info.SessionID = sid
	}
	if role, ok := claims["role"].(string); ok {
		info.Role = role
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		info.ExpiresAt = exp.Time
	}

	if info.SessionID == "" && info.Role == "" && info.ExpiresAt.IsZero() {
		return nil
	}
	return info
}
