package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/bryanwahyu/diagnoflow/internal/domain/staff"
)

type contextKey string

const (
	actorKey  contextKey = "actor"
	callerKey contextKey = "caller"
)

// Actor headers are set by the auth gateway in front of this service;
// session resolution itself is out of scope here.
const (
	HeaderActorID    = "X-Actor-Id"
	HeaderActorRole  = "X-Actor-Role"
	HeaderActorEmail = "X-Actor-Email"
)

// APIKeyAuth validates the API key from the Authorization header and
// resolves the acting staff identity from the gateway headers
func APIKeyAuth(validKeys map[string]string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Skip auth for health check
			if r.URL.Path == "/health" {
				next.ServeHTTP(w, r)
				return
			}

			auth := r.Header.Get("Authorization")
			if auth == "" {
				http.Error(w, "missing Authorization header", http.StatusUnauthorized)
				return
			}

			// Support both "Bearer <key>" and "<key>" formats
			apiKey := strings.TrimPrefix(auth, "Bearer ")
			apiKey = strings.TrimSpace(apiKey)
			if apiKey == "" {
				http.Error(w, "invalid Authorization header format", http.StatusUnauthorized)
				return
			}

			// Validate API key (constant-time comparison to prevent timing attacks)
			valid := false
			var caller string
			for name, key := range validKeys {
				if subtle.ConstantTimeCompare([]byte(apiKey), []byte(key)) == 1 {
					valid = true
					caller = name
					break
				}
			}
			if !valid {
				http.Error(w, "invalid API key", http.StatusUnauthorized)
				return
			}

			actor := staff.Actor{
				ID:    r.Header.Get(HeaderActorID),
				Role:  staff.Role(r.Header.Get(HeaderActorRole)),
				Email: r.Header.Get(HeaderActorEmail),
			}
			if actor.ID == "" || !actor.Role.Valid() {
				http.Error(w, "missing or invalid actor headers", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), actorKey, actor)
			ctx = context.WithValue(ctx, callerKey, caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetActorFromContext extracts the resolved actor from context
func GetActorFromContext(ctx context.Context) (staff.Actor, bool) {
	a, ok := ctx.Value(actorKey).(staff.Actor)
	return a, ok
}

// GetCallerFromContext extracts the API caller name from context
func GetCallerFromContext(ctx context.Context) string {
	if c, ok := ctx.Value(callerKey).(string); ok {
		return c
	}
	return ""
}
