// ABOUTME: Unit tests for the per-client rate limiter and client address extraction
// ABOUTME: Drives the limiter with a fake clock

package api

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiter_BurstThenRefill(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := newRateLimiter(1, 2)
	l.now = func() time.Time { return now }

	if !l.Allow("a") || !l.Allow("a") {
		t.Fatal("burst of 2 should be allowed")
	}
	if l.Allow("a") {
		t.Error("third request inside the same instant should be rejected")
	}
	if !l.Allow("b") {
		t.Error("a different client has its own bucket")
	}

	now = now.Add(time.Second)
	if !l.Allow("a") {
		t.Error("one token should refill after a second")
	}
}

func TestRateLimiter_ForgetsIdleClients(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := newRateLimiter(1, 1)
	l.now = func() time.Time { return now }

	l.Allow("a")
	l.Allow("b")
	if got := l.size(); got != 2 {
		t.Fatalf("size() = %d, want 2", got)
	}

	now = now.Add(limiterIdleTTL + time.Second)
	l.Allow("c")
	if got := l.size(); got != 1 {
		t.Errorf("size() after sweep = %d, want 1", got)
	}
}

func TestNewRateLimiter_MinimumBurst(t *testing.T) {
	l := newRateLimiter(5, 0)
	if l.burst != 1 {
		t.Errorf("burst = %d, want 1", l.burst)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		remote string
		want   string
	}{
		{"192.0.2.1:1234", "192.0.2.1"},
		{"[2001:db8::1]:80", "2001:db8::1"},
		{"no-port", "no-port"},
	}

	for _, tt := range tests {
		r := httptest.NewRequest("GET", "/", nil)
		r.RemoteAddr = tt.remote
		if got := clientIP(r); got != tt.want {
			t.Errorf("clientIP(%q) = %q, want %q", tt.remote, got, tt.want)
		}
	}
}
