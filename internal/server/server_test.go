// ABOUTME: Tests for server wiring and lifecycle
// ABOUTME: Starts a real listener, probes endpoints, and checks graceful shutdown

package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-forum/internal/config"
	"github.com/2389/coven-forum/internal/credential"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Server.HTTPAddr = "127.0.0.1:0"
	cfg.Database.Path = filepath.Join(t.TempDir(), "forum.db")
	cfg.Metrics.Enabled = true
	cfg.RateLimit.Enabled = false
	return cfg
}

func TestNew_BootstrapsRoot(t *testing.T) {
	cfg := testConfig(t)
	cfg.Forum.RootTitle = "Lobby"
	cfg.Forum.RootPassword = "RootPass1"

	srv, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer srv.Shutdown(context.Background())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/topic/0", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"title":"Lobby"`)

	root, err := srv.store.GetUserByName(context.Background(), "root")
	require.NoError(t, err)
	assert.True(t, credential.VerifyPassword("RootPass1", root.PasswordHash, root.PasswordSalt))
}

func TestNew_RejectsBadRootPassword(t *testing.T) {
	cfg := testConfig(t)
	cfg.Forum.RootPassword = "not alnum!"

	_, err := New(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestNew_UnknownDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.Driver = "oracle"

	_, err := New(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown database driver")
}

func TestServe_LifecycleAndHealth(t *testing.T) {
	srv, err := New(context.Background(), testConfig(t), nil)
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	base := "http://" + ln.Addr().String()
	resp, err := http.Get(base + "/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))

	resp, err = http.Get(base + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.True(t, strings.Contains(string(body), "forum_http_requests_total"))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestOpenStore_Idempotent(t *testing.T) {
	cfg := testConfig(t)

	s1, _, err := OpenStore(context.Background(), cfg)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, svc, err := OpenStore(context.Background(), cfg)
	require.NoError(t, err)
	defer s2.Close()

	view, err := svc.Topic(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, "Home", view.Topic.Title)
}
