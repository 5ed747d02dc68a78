// Package auth provides authentication middleware and OIDC validation.
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/iamthegreatdestroyer/shgat-engine/internal/config"
)

// contextKey is a type for context keys to avoid collisions.
type contextKey string

// ClaimsContextKey is the context key for storing claims.
const ClaimsContextKey contextKey = "claims"

// Scopes gating the engine's mutating endpoints (spec §6.1, §6.2): graph
// writes, online training, and parameter import/export are distinct
// operations and a token scoped for one should not silently authorize
// the others.
const (
	ScopeGraphWrite  = "shgat:graph:write"
	ScopeTrain       = "shgat:train"
	ScopeParamsRead  = "shgat:params:read"
	ScopeParamsWrite = "shgat:params:write"
)

// Middleware creates authentication middleware for protecting routes.
type Middleware struct {
	validator *OIDCValidator
	enabled   bool
	log       *logrus.Logger
}

// NewMiddleware creates a new authentication middleware.
func NewMiddleware(cfg *config.OIDCConfig) *Middleware {
	// Enable auth only if OIDC client ID is configured
	enabled := cfg.ClientID != ""

	return &Middleware{
		validator: NewOIDCValidator(cfg),
		enabled:   enabled,
		log:       logrus.StandardLogger(),
	}
}

// Authenticate is HTTP middleware that validates authentication tokens.
// It returns 401 for missing or invalid tokens when authentication is enabled.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip authentication if not enabled
		if !m.enabled {
			next.ServeHTTP(w, r)
			return
		}

		// Extract token from Authorization header
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header required", http.StatusUnauthorized)
			return
		}

		// Expect "Bearer <token>" format
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			http.Error(w, "Invalid authorization header format", http.StatusUnauthorized)
			return
		}

		token := parts[1]
		claims, err := m.validator.ValidateToken(token)
		if err != nil {
			m.log.WithError(err).Warn("shgat: token validation failed")
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		m.log.WithFields(logrus.Fields{"subject": claims.Subject, "scopes": claims.Scopes}).Debug("shgat: request authenticated")

		// Add claims to request context
		ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireScope wraps Authenticate and additionally rejects requests whose
// token claims don't carry the given scope, so a token minted for the
// score-only console can't also import parameters or insert capabilities.
// When auth is disabled entirely (empty ClientID) the scope check is
// skipped along with authentication, matching Authenticate's behavior.
func (m *Middleware) RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !m.enabled {
				next.ServeHTTP(w, r)
				return
			}
			claims := GetClaims(r.Context())
			if claims == nil || !claims.HasScope(scope) {
				subject := ""
				if claims != nil {
					subject = claims.Subject
				}
				m.log.WithFields(logrus.Fields{"subject": subject, "required_scope": scope}).Warn("shgat: request rejected, missing required scope")
				http.Error(w, "insufficient scope", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}

// OptionalAuth is HTTP middleware that validates tokens if present but allows unauthenticated requests.
// If a valid token is provided, claims are added to the request context.
// If no token is provided, the request proceeds without claims.
// If an invalid token is provided, the request is rejected with 401.
func (m *Middleware) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// If auth is not enabled, just proceed
		if !m.enabled {
			next.ServeHTTP(w, r)
			return
		}

		// Extract token from Authorization header
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			// No token provided, allow request to proceed without claims
			next.ServeHTTP(w, r)
			return
		}

		// Expect "Bearer <token>" format
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			http.Error(w, "Invalid authorization header format", http.StatusUnauthorized)
			return
		}

		token := parts[1]
		claims, err := m.validator.ValidateToken(token)
		if err != nil {
			m.log.WithError(err).Warn("shgat: token validation failed")
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		m.log.WithFields(logrus.Fields{"subject": claims.Subject, "scopes": claims.Scopes}).Debug("shgat: request authenticated")

		// Add claims to request context
		ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetClaims retrieves claims from the request context.
// Returns nil if no claims are present (unauthenticated request with optional auth).
func GetClaims(ctx context.Context) *Claims {
	claims, ok := ctx.Value(ClaimsContextKey).(*Claims)
	if !ok {
		return nil
	}
	return claims
}
