// ABOUTME: HTTP middleware: request ids, per-route logging and Prometheus metrics, rate limiting
// ABOUTME: Metrics are registered once on the default Prometheus registry

package api

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"
)

// RequestIDHeader carries the request id in both directions
const RequestIDHeader = "X-Request-ID"

const maxRequestIDLength = 128

var (
	// requestsTotal counts handled requests.
	// Labels: route (pattern path), method, status
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "forum",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests handled",
	}, []string{"route", "method", "status"})

	// requestDuration measures handler latency.
	// Labels: route, method
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "forum",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	// rateLimitedTotal counts requests rejected by the rate limiter.
	// Labels: route
	rateLimitedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "forum",
		Subsystem: "http",
		Name:      "rate_limited_total",
		Help:      "Total requests rejected by the rate limiter",
	}, []string{"route"})
)

type requestIDKey struct{}

// RequestIDFromContext returns the request id, or "" outside a request
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// withRequestID keeps a sane inbound X-Request-ID or assigns a new one
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > maxRequestIDLength {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

// statusRecorder captures the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// instrument logs and records metrics for one registered route
func (a *API) instrument(pattern string, next http.Handler) http.Handler {
	method, route, _ := strings.Cut(pattern, " ")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		requestsTotal.WithLabelValues(route, method, strconv.Itoa(rec.status)).Inc()
		requestDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())

		level := slog.LevelInfo
		if route == "/health" {
			level = slog.LevelDebug
		}
		a.logger.Log(r.Context(), level, "request",
			"request_id", RequestIDFromContext(r.Context()),
			"method", method,
			"route", route,
			"status", rec.status,
			"duration", elapsed,
		)
	})
}

// limit rejects clients that exceed the configured rate with 429
func (a *API) limit(next http.Handler) http.Handler {
	if a.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.limiter.Allow(clientIP(r)) {
			rateLimitedTotal.WithLabelValues(r.URL.Path).Inc()
			w.Header().Set("Retry-After", "1")
			sendJSONError(w, http.StatusTooManyRequests, detailTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP is the peer address without its port
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Idle clients are forgotten after limiterIdleTTL, checked at most once per limiterSweepEvery.
const (
	limiterIdleTTL    = 10 * time.Minute
	limiterSweepEvery = time.Minute
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter keeps one token bucket per client key
type rateLimiter struct {
	mu        sync.Mutex
	clients   map[string]*clientLimiter
	limit     rate.Limit
	burst     int
	now       func() time.Time
	lastSweep time.Time
}

func newRateLimiter(perSecond float64, burst int) *rateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &rateLimiter{
		clients: make(map[string]*clientLimiter),
		limit:   rate.Limit(perSecond),
		burst:   burst,
		now:     time.Now,
	}
}

// Allow reports whether key may make a request now
func (l *rateLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= limiterSweepEvery {
		for k, c := range l.clients {
			if now.Sub(c.lastSeen) >= limiterIdleTTL {
				delete(l.clients, k)
			}
		}
		l.lastSweep = now
	}

	c, ok := l.clients[key]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

func (l *rateLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}
