// ABOUTME: Tests for HTTP authentication middleware
// ABOUTME: Covers token extraction, 401 responses, and identity propagation

package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name      string
		header    string
		wantToken string
		wantErr   bool
	}{
		{name: "valid", header: "Bearer abc123", wantToken: "abc123"},
		{name: "lowercase scheme", header: "bearer abc123", wantToken: "abc123"},
		{name: "empty header", header: "", wantErr: true},
		{name: "basic scheme", header: "Basic dXNlcjpwYXNz", wantErr: true},
		{name: "no token", header: "Bearer ", wantErr: true},
		{name: "scheme only", header: "Bearer", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, errMsg := extractBearerToken(tt.header)
			if tt.wantErr {
				if errMsg == "" {
					t.Errorf("extractBearerToken(%q) expected error, got token %q", tt.header, token)
				}
				return
			}
			if errMsg != "" {
				t.Errorf("extractBearerToken(%q) unexpected error %q", tt.header, errMsg)
			}
			if token != tt.wantToken {
				t.Errorf("extractBearerToken(%q) = %q, want %q", tt.header, token, tt.wantToken)
			}
		})
	}
}

func decodeDetail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body["detail"]
}

func TestRequireUser(t *testing.T) {
	clock := newFakeClock()
	a := newTestAuthority(clock)
	ctx := context.Background()

	_, err := a.Signup(ctx, "alice", "Password1")
	require.NoError(t, err)
	token, err := a.IssueToken(ctx, "alice")
	require.NoError(t, err)

	var got *Identity
	handler := RequireUser(a)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = MustFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("valid token", func(t *testing.T) {
		got = nil
		req := httptest.NewRequest(http.MethodGet, "/api/user", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, got)
		assert.Equal(t, "alice", got.Name)
	})

	t.Run("missing header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/user", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
		assert.Equal(t, DetailNotAuthenticated, decodeDetail(t, rec))
	})

	t.Run("unknown token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/user", nil)
		req.Header.Set("Authorization", "Bearer nope")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, DetailInvalidToken, decodeDetail(t, rec))
	})

	t.Run("expired token", func(t *testing.T) {
		clock.Advance(25 * time.Hour)
		req := httptest.NewRequest(http.MethodGet, "/api/user", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, DetailInvalidToken, decodeDetail(t, rec))
	})
}
