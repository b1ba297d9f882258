// ABOUTME: Entry point for the forum server
// ABOUTME: Subcommands serve, init, seed, health and version

package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/2389/coven-forum/internal/config"
	"github.com/2389/coven-forum/internal/seed"
	"github.com/2389/coven-forum/internal/server"
)

// Version is set at build time.
var version = "dev"

const banner = `
   __
  / _| ___  _ __ _   _ _ __ ___
 | |_ / _ \| '__| | | | '_ ' _ \
 |  _| (_) | |  | |_| | | | | | |
 |_|  \___/|_|   \__,_|_| |_| |_|
`

// getConfigPath returns the first existing config file, or "" when there is none.
// Priority: FORUM_CONFIG env var > ./config.yaml > XDG_CONFIG_HOME/coven-forum/server.yaml
func getConfigPath() string {
	if envPath := os.Getenv("FORUM_CONFIG"); envPath != "" {
		return envPath
	}

	for _, candidate := range []string{"config.yaml", userConfigPath()} {
		if candidate == "" {
			continue
		}
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// userConfigPath is where init writes by default
func userConfigPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "coven-forum", "server.yaml")
}

// loadConfig loads the config file if one exists, otherwise the defaults.
// Returns the config and the path it came from ("" for defaults).
func loadConfig() (*config.Config, string, error) {
	path := getConfigPath()
	if path == "" {
		cfg, err := config.LoadDefault()
		if err != nil {
			return nil, "", fmt.Errorf("loading default config: %w", err)
		}
		return cfg, "", nil
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", fmt.Errorf("loading config: %w", err)
	}
	return cfg, path, nil
}

func usage() {
	fmt.Println("Usage: forum-server <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve                          Start the forum server")
	fmt.Println("  init                           Create a new config file interactively")
	fmt.Println("  seed [--depth N] [--users N]   Fill the database with random content")
	fmt.Println("  health                         Check server health")
	fmt.Println("  version                        Print version")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	case "seed":
		err = runSeed(ctx, os.Args[2:])
	case "health":
		err = runHealth(ctx)
	case "version", "--version", "-v":
		fmt.Println(version)
	case "help", "--help", "-h":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, configPath, err := loadConfig()
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Logging)
	slog.SetDefault(logger)

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Print("    ▶ ")
	if configPath == "" {
		fmt.Print("Config:    ")
		yellow.Println("(defaults)")
	} else {
		fmt.Printf("Config:    %s\n", configPath)
	}
	green.Print("    ▶ ")
	fmt.Printf("HTTP:      %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Database:  %s %s\n", cfg.Database.Driver, databaseLocation(cfg))
	if cfg.Metrics.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("Metrics:   %s\n", cfg.Metrics.Path)
	}
	if cfg.Forum.RootPassword == "" {
		green.Print("    ▶ ")
		fmt.Print("Root:      ")
		gray.Println("login disabled (no forum.root_password)")
	}
	fmt.Println()

	logger.Info("starting forum-server",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"driver", cfg.Database.Driver,
	)

	srv, err := server.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	return srv.Run(ctx)
}

// databaseLocation describes where the data lives without printing credentials
func databaseLocation(cfg *config.Config) string {
	if cfg.Database.Driver == config.DriverPostgres {
		return "(dsn)"
	}
	return cfg.Database.Path
}

// seedArgs holds parsed flags for the seed subcommand
type seedArgs struct {
	depth int
	users int
}

// parseSeedArgs accepts "--flag value" and "--flag=value" forms
func parseSeedArgs(args []string) (seedArgs, error) {
	out := seedArgs{depth: seed.DefaultDepth, users: seed.DefaultUsers}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		name, value, hasValue := strings.Cut(arg, "=")

		var target *int
		switch name {
		case "--depth", "-d":
			target = &out.depth
		case "--users", "-u":
			target = &out.users
		default:
			if strings.HasPrefix(arg, "-") {
				return out, fmt.Errorf("unknown flag: %s", arg)
			}
			return out, fmt.Errorf("unexpected argument: %s", arg)
		}

		if !hasValue {
			if i+1 >= len(args) {
				return out, fmt.Errorf("%s requires a value", name)
			}
			value = args[i+1]
			i++
		}

		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return out, fmt.Errorf("%s must be a positive integer", name)
		}
		*target = n
	}
	return out, nil
}

func runSeed(ctx context.Context, args []string) error {
	parsed, err := parseSeedArgs(args)
	if err != nil {
		return err
	}

	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	slog.SetDefault(setupLogger(cfg.Logging))

	s, _, err := server.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	green := color.New(color.FgGreen)
	green.Printf("  ✓ Database: %s %s\n", cfg.Database.Driver, databaseLocation(cfg))

	start := time.Now()
	stats, err := seed.New(s, seed.Options{Depth: parsed.depth, Users: parsed.users}).Run(ctx)
	if err != nil {
		return fmt.Errorf("seeding: %w", err)
	}

	green.Printf("  ✓ Seeded in %s\n", time.Since(start).Round(time.Millisecond))
	fmt.Printf("    users:   %d new\n", stats.Users)
	fmt.Printf("    topics:  %d\n", stats.Topics)
	fmt.Printf("    threads: %d\n", stats.Threads)
	fmt.Printf("    posts:   %d\n", stats.Posts)
	fmt.Println()
	color.New(color.FgYellow).Printf("  Log in as User1 / Password1 through User%d / Password%d\n", parsed.users, parsed.users)
	return nil
}

// healthURL turns a listen address into a URL the local machine can reach
func healthURL(httpAddr string) string {
	host, port, err := net.SplitHostPort(httpAddr)
	if err != nil {
		return "http://" + httpAddr + "/health"
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port) + "/health"
}

func runHealth(ctx context.Context) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthURL(cfg.Server.HTTPAddr), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	color.New(color.FgGreen).Println("healthy")
	return nil
}

func runInit() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("forum-server configuration setup")
	fmt.Println("================================")
	fmt.Println()

	defaultConfigPath := userConfigPath()
	if defaultConfigPath == "" {
		defaultConfigPath = "config.yaml"
	}

	outputFile := prompt(reader, "Config file path", defaultConfigPath)

	if _, err := os.Stat(outputFile); err == nil {
		overwrite := prompt(reader, "File exists. Overwrite?", "no")
		if !isYes(overwrite) {
			fmt.Println("Aborted.")
			return nil
		}
	}

	fmt.Println("\n--- Server Configuration ---")
	httpAddr := prompt(reader, "HTTP address", "localhost:8080")

	fmt.Println("\n--- Database Configuration ---")
	driver := prompt(reader, "Driver (sqlite/sqlite3/postgres)", config.DriverSQLite)
	var dbPath, dsn string
	switch driver {
	case config.DriverSQLite, config.DriverSQLite3:
		dbPath = prompt(reader, "SQLite database path", "./forum.db")
	case config.DriverPostgres:
		dsn = prompt(reader, "Postgres DSN", "${DATABASE_URL}")
	default:
		return fmt.Errorf("unknown driver %q", driver)
	}

	fmt.Println("\n--- Forum Configuration ---")
	rootTitle := prompt(reader, "Root topic title", "Home")
	rootPassword := prompt(reader, "Root password (empty disables root login)", "")

	fmt.Println("\n--- Logging Configuration ---")
	logLevel := prompt(reader, "Log level (debug/info/warn/error)", "info")
	logFormat := prompt(reader, "Log format (text/json)", "text")

	var cfg strings.Builder
	cfg.WriteString("# forum-server configuration\n")
	cfg.WriteString("# Generated by forum-server init\n\n")

	cfg.WriteString("server:\n")
	cfg.WriteString(fmt.Sprintf("  http_addr: %q\n\n", httpAddr))

	cfg.WriteString("database:\n")
	cfg.WriteString(fmt.Sprintf("  driver: %q\n", driver))
	if dbPath != "" {
		cfg.WriteString(fmt.Sprintf("  path: %q\n", dbPath))
	}
	if dsn != "" {
		cfg.WriteString(fmt.Sprintf("  dsn: %q\n", dsn))
	}
	cfg.WriteString("\n")

	cfg.WriteString("auth:\n")
	cfg.WriteString("  token_ttl: \"24h\"\n\n")

	cfg.WriteString("forum:\n")
	cfg.WriteString(fmt.Sprintf("  root_title: %q\n", rootTitle))
	if rootPassword != "" {
		cfg.WriteString(fmt.Sprintf("  root_password: %q\n", rootPassword))
	}
	cfg.WriteString("  max_depth: 64\n\n")

	cfg.WriteString("logging:\n")
	cfg.WriteString(fmt.Sprintf("  level: %q\n", logLevel))
	cfg.WriteString(fmt.Sprintf("  format: %q\n\n", logFormat))

	cfg.WriteString("metrics:\n")
	cfg.WriteString("  enabled: true\n")
	cfg.WriteString("  path: \"/metrics\"\n\n")

	cfg.WriteString("rate_limit:\n")
	cfg.WriteString("  enabled: true\n")
	cfg.WriteString("  requests_per_second: 5\n")
	cfg.WriteString("  burst: 10\n")

	if err := os.MkdirAll(filepath.Dir(outputFile), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	// Root password may be in the file.
	if err := os.WriteFile(outputFile, []byte(cfg.String()), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	// Fail early on a config serve would reject.
	if _, err := config.Load(outputFile); err != nil {
		color.New(color.FgYellow).Printf("\nWarning: %v\n", err)
	}

	fmt.Printf("\nConfig written to %s\n", outputFile)
	fmt.Println("\nTo start the server:")
	fmt.Printf("  FORUM_CONFIG=%s forum-server serve\n", outputFile)

	return nil
}

func isYes(s string) bool {
	s = strings.ToLower(s)
	return s == "yes" || s == "y"
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		fmt.Println()
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}
