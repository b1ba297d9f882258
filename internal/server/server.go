// ABOUTME: Forum server orchestrator that wires config, store, services and the HTTP server
// ABOUTME: Manages startup bootstrap, serving, and graceful shutdown

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/2389/coven-forum/internal/api"
	"github.com/2389/coven-forum/internal/auth"
	"github.com/2389/coven-forum/internal/config"
	"github.com/2389/coven-forum/internal/forum"
	"github.com/2389/coven-forum/internal/store"
)

// shutdownTimeout bounds graceful shutdown after the run context ends
const shutdownTimeout = 5 * time.Second

// Server runs the forum HTTP API over a single store.
type Server struct {
	config     *config.Config
	store      store.Store
	forum      *forum.Service
	authority  *auth.Authority
	httpServer *http.Server
	logger     *slog.Logger
}

// OpenStore opens the configured backend and makes sure the root user and
// root topic exist. The caller owns the returned store.
func OpenStore(ctx context.Context, cfg *config.Config) (store.Store, *forum.Service, error) {
	s, err := store.Open(ctx, cfg.Database.Driver, cfg.Database.Path, cfg.Database.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing store: %w", err)
	}

	svc := forum.NewService(s, cfg.Forum.MaxDepth)
	if err := svc.Bootstrap(ctx, cfg.Forum.RootTitle, cfg.Forum.RootPassword); err != nil {
		_ = s.Close()
		return nil, nil, fmt.Errorf("bootstrapping forum: %w", err)
	}
	return s, svc, nil
}

// New creates a Server from cfg. The store is opened and bootstrapped here.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "server")

	s, svc, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	authority := auth.NewAuthority(s, cfg.Auth.TokenTTL)

	opts := api.Options{}
	if cfg.Metrics.Enabled {
		opts.MetricsPath = cfg.Metrics.Path
	}
	if cfg.RateLimit.Enabled {
		opts.RateLimit = cfg.RateLimit.RequestsPerSecond
		opts.RateBurst = cfg.RateLimit.Burst
	}
	handler := api.New(svc, authority, opts).Handler()

	srv := &Server{
		config:    cfg,
		store:     s,
		forum:     svc,
		authority: authority,
		httpServer: &http.Server{
			Addr:              cfg.Server.HTTPAddr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}

	logger.Info("server initialized",
		"driver", cfg.Database.Driver,
		"root_title", cfg.Forum.RootTitle,
		"token_ttl", authority.TTL(),
		"metrics", opts.MetricsPath != "",
		"rate_limit", opts.RateLimit > 0,
	)
	return srv, nil
}

// Handler returns the HTTP handler serving the API
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run listens on the configured address and serves until ctx is canceled.
// Returns nil on graceful shutdown, or the error that stopped the server.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Server.HTTPAddr)
	if err != nil {
		_ = s.store.Close()
		return fmt.Errorf("listening on HTTP address: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := s.startServer(ln)
	serverErr := s.waitForShutdownSignal(ctx, errCh)

	shutdownErr := s.gracefulShutdown()

	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// startServer starts the HTTP server in a goroutine, returning its error channel.
func (s *Server) startServer(ln net.Listener) chan error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	return errCh
}

// waitForShutdownSignal waits for context cancellation or server error.
func (s *Server) waitForShutdownSignal(ctx context.Context, errCh chan error) error {
	select {
	case <-ctx.Done():
		s.logger.Info("context canceled, initiating shutdown")
		return nil
	case err := <-errCh:
		s.logger.Error("server error", "error", err)
		return err
	}
}

// gracefulShutdown runs Shutdown on a fresh context since the run context is already done.
func (s *Server) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.Shutdown(ctx)
}

// appendCloseError appends an error with label if err is non-nil.
func appendCloseError(errs []error, label string, err error) []error {
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", label, err))
	}
	return errs
}

// Shutdown stops the HTTP server and closes the store
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")

	var errs []error
	errs = appendCloseError(errs, "HTTP shutdown", s.httpServer.Shutdown(ctx))
	errs = appendCloseError(errs, "store close", s.store.Close())

	return errors.Join(errs...)
}
