// ABOUTME: HTTP middleware for bearer token authentication on API endpoints
// ABOUTME: Extracts the token from the Authorization header and adds the caller to context

package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

// Detail strings returned in 401 bodies
const (
	DetailNotAuthenticated = "Not authenticated"
	DetailInvalidToken     = "Invalid token"
)

// extractBearerToken extracts a bearer token from the Authorization header.
// Returns the token and an error message (empty if successful).
func extractBearerToken(authHeader string) (string, string) {
	if authHeader == "" {
		return "", "missing authorization header"
	}
	scheme, token, ok := strings.Cut(authHeader, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", "invalid authorization header format"
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", "empty token"
	}
	return token, ""
}

// writeUnauthorized sends a 401 with a {"detail": ...} body and a Bearer challenge.
func writeUnauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}

// RequireUser creates an HTTP middleware that resolves the bearer token and rejects
// the request with 401 when it is missing, unknown, or expired.
func RequireUser(a *Authority) func(http.Handler) http.Handler {
	logger := slog.Default().With("component", "auth")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, errMsg := extractBearerToken(r.Header.Get("Authorization"))
			if errMsg != "" {
				logger.Debug("rejecting request", "path", r.URL.Path, "reason", errMsg)
				writeUnauthorized(w, DetailNotAuthenticated)
				return
			}

			id, err := a.ResolveToken(r.Context(), token)
			if err != nil {
				if !errors.Is(err, ErrInvalidToken) {
					logger.Error("resolving token", "error", err)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{"detail": "internal error"})
					return
				}
				writeUnauthorized(w, DetailInvalidToken)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}
