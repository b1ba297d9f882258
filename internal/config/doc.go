// Package config handles configuration loading for the forum server.
//
// # Overview
//
// Configuration is loaded from YAML or TOML files with environment variable
// expansion. Every field has a default, so a missing file is not an error
// for the server binary: it falls back to LoadDefault.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from FORUM_CONFIG environment variable
//  2. ./config.yaml (current directory)
//  3. ~/.config/coven-forum/server.yaml
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	forum:
//	  root_password: "${FORUM_ROOT_PASSWORD}"
//
// DATABASE_URL fills database.dsn when the file leaves it empty. A
// postgres:// or postgresql:// DSN selects the postgres driver.
//
// # Configuration Sections
//
//	server:
//	  http_addr: "0.0.0.0:8080"
//
//	database:
//	  driver: "sqlite"      # sqlite, sqlite3, postgres
//	  path: "./forum.db"
//	  dsn: ""
//
//	auth:
//	  token_ttl: "24h"
//
//	forum:
//	  root_title: "Home"
//	  root_password: ""
//	  max_depth: 64
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
//	metrics:
//	  enabled: true
//	  path: "/metrics"
//
//	rate_limit:
//	  enabled: true
//	  requests_per_second: 5
//	  burst: 10
//
// # Usage
//
//	cfg, err := config.Load("/etc/coven-forum/server.toml")
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
