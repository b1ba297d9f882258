// Package server assembles the forum process: it opens the configured
// store, seeds the root user and topic, builds the auth authority and the
// HTTP API, and runs the HTTP server until its context is canceled.
//
//	srv, err := server.New(ctx, cfg, logger)
//	if err != nil { ... }
//	err = srv.Run(ctx) // returns after graceful shutdown
package server
