package bearer

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

type contextKey string

const identityKey contextKey = "bearer_identity"

// Identity is the authenticated subject of a validated management-plane request.
type Identity struct {
	Subject string
}

// FromContext extracts the Identity stored by Middleware, or nil if absent.
func FromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey).(*Identity)
	return id
}

func newContext(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// WithIdentity returns a copy of ctx carrying id, retrievable via
// FromContext. Exported for tests that exercise handlers directly, without
// routing a request through Middleware first.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return newContext(ctx, id)
}

// Middleware validates the Authorization: Bearer <jwt> header on every
// request and stores the resulting Identity in the request context. Missing
// or invalid tokens are rejected with 401 and a WWW-Authenticate header.
func Middleware(validator *Validator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") && !strings.HasPrefix(authHeader, "bearer ") {
				respondUnauthorized(w, "missing bearer token")
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(authHeader, "Bearer "), "bearer "))

			info, err := validator.Validate(r.Context(), raw)
			if err != nil {
				logger.Warn("bearer token validation failed", "error", err)
				respondUnauthorized(w, "invalid or expired token")
				return
			}

			ctx := newContext(r.Context(), &Identity{Subject: info.Sub})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// respondUnauthorized writes the 401 envelope directly rather than importing
// internal/httpserver, which itself depends on this package to wire the
// authenticated /api/v1 sub-router.
func respondUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   "unauthorized",
		"message": message,
	})
}
