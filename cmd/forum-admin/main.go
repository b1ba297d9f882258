// ABOUTME: Command-line client for a running forum server
// ABOUTME: Browses topics and threads, manages the session token, and posts content

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/2389/coven-forum/internal/api"
)

const banner = `
   __                                 _           _
  / _| ___  _ __ _   _ _ __ ___      __ _  __| |_ __ ___ (_)_ __
 | |_ / _ \| '__| | | | '_ ' _ \ ___ / _' |/ _' | '_ ' _ \| | '_ \
 |  _| (_) | |  | |_| | | | | | |___| (_| | (_| | | | | | | | | | |
 |_|  \___/|_|   \__,_|_| |_| |_|    \__,_|\__,_|_| |_| |_|_|_| |_|
`

var errUsage = errors.New("usage")

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stdout)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	c := newClient(getEnv("FORUM_URL", "http://localhost:8080"), getToken())

	err := run(ctx, c, os.Args[1], os.Args[2:], os.Stdout)
	if errors.Is(err, errUsage) {
		color.Red("Error: %v\n", err)
		printUsage(os.Stderr)
		os.Exit(1)
	}
	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage(w io.Writer) {
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	cyan.Fprint(w, banner)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: forum-admin <command> [args]")
	fmt.Fprintln(w)
	yellow.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  signup <username>                     Create an account (password read from stdin)")
	fmt.Fprintln(w, "  login <username>                      Log in and save the token")
	fmt.Fprintln(w, "  whoami                                Show the logged-in user")
	fmt.Fprintln(w, "  topic [id]                            Show a topic (default: root)")
	fmt.Fprintln(w, "  thread <id>                           Show a thread and its posts")
	fmt.Fprintln(w, "  post <thread-id> <text>               Add a post to a thread")
	fmt.Fprintln(w, "  mktopic <parent-id> <title>           Create a sub-topic")
	fmt.Fprintln(w, "  mkthread <parent-id> <title> [--vegan] Create a thread")
	fmt.Fprintln(w, "  rm <post|topic|thread> <id>           Delete something you own")
	fmt.Fprintln(w)
	yellow.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  FORUM_URL      Server base URL (default: http://localhost:8080)")
	fmt.Fprintln(w, "  FORUM_TOKEN    Bearer token (default: contents of the saved token file)")
	fmt.Fprintln(w, "  FORUM_PASSWORD Password for signup and login instead of prompting")
	fmt.Fprintln(w)
}

// run dispatches one command. It is separate from main so it can be tested
// against an httptest server.
func run(ctx context.Context, c *client, cmd string, args []string, out io.Writer) error {
	switch cmd {
	case "signup":
		return cmdSignup(ctx, c, args, out)
	case "login":
		return cmdLogin(ctx, c, args, out)
	case "whoami", "me":
		return cmdWhoami(ctx, c, out)
	case "topic":
		return cmdTopic(ctx, c, args, out)
	case "thread":
		return cmdThread(ctx, c, args, out)
	case "post":
		return cmdPost(ctx, c, args, out)
	case "mktopic":
		return cmdMkTopic(ctx, c, args, out)
	case "mkthread":
		return cmdMkThread(ctx, c, args, out)
	case "rm":
		return cmdRemove(ctx, c, args, out)
	case "help", "-h", "--help":
		printUsage(out)
		return nil
	default:
		return fmt.Errorf("%w: unknown command %s", errUsage, cmd)
	}
}

func cmdSignup(ctx context.Context, c *client, args []string, out io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: signup <username>", errUsage)
	}
	password, err := readPassword(out)
	if err != nil {
		return err
	}
	if err := c.signup(ctx, args[0], password); err != nil {
		return fmt.Errorf("signup: %w", err)
	}
	color.New(color.FgGreen).Fprintf(out, "✓ Created user %s\n", args[0])
	return nil
}

func cmdLogin(ctx context.Context, c *client, args []string, out io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: login <username>", errUsage)
	}
	password, err := readPassword(out)
	if err != nil {
		return err
	}
	token, err := c.authenticate(ctx, args[0], password)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}

	path := tokenPath()
	if path == "" {
		fmt.Fprintln(out, token)
		return nil
	}
	if err := saveToken(path, token); err != nil {
		return err
	}
	c.token = token
	color.New(color.FgGreen).Fprintf(out, "✓ Logged in as %s (token saved to %s)\n", args[0], path)
	return nil
}

func cmdWhoami(ctx context.Context, c *client, out io.Writer) error {
	user, err := c.whoami(ctx)
	if err != nil {
		return fmt.Errorf("whoami: %w", err)
	}
	fmt.Fprintf(out, "%s (id %d)\n", user.Name, user.ID)
	return nil
}

func cmdTopic(ctx context.Context, c *client, args []string, out io.Writer) error {
	var id int64
	if len(args) > 0 {
		var err error
		if id, err = parseIntArg(args[0]); err != nil {
			return err
		}
	}

	topic, err := c.topic(ctx, id)
	if err != nil {
		return fmt.Errorf("topic %d: %w", id, err)
	}

	cyan := color.New(color.FgCyan)
	fmt.Fprintln(out)
	cyan.Fprintf(out, "  %s\n", formatPath(topic.Path))
	fmt.Fprintln(out)

	if len(topic.Topics) == 0 && len(topic.Threads) == 0 {
		fmt.Fprintln(out, "  (empty)")
		fmt.Fprintln(out)
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  KIND\tID\tTITLE\tCONTENTS")
	fmt.Fprintln(w, "  ----\t--\t-----\t--------")
	for _, t := range topic.Topics {
		fmt.Fprintf(w, "  topic\t%d\t%s\t%d topics, %d threads\n", t.ID, truncate(t.Title, 48), t.NumTopics, t.NumThreads)
	}
	for _, t := range topic.Threads {
		title := truncate(t.Title, 48)
		if t.IsVegan {
			title += " [vegan]"
		}
		fmt.Fprintf(w, "  thread\t%d\t%s\t%d posts\n", t.ID, title, t.NumPosts)
	}
	w.Flush()
	fmt.Fprintln(out)
	return nil
}

func cmdThread(ctx context.Context, c *client, args []string, out io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: thread <id>", errUsage)
	}
	id, err := parseIntArg(args[0])
	if err != nil {
		return err
	}

	thread, err := c.thread(ctx, id)
	if err != nil {
		return fmt.Errorf("thread %d: %w", id, err)
	}

	cyan := color.New(color.FgCyan)
	gray := color.New(color.FgHiBlack)
	fmt.Fprintln(out)
	cyan.Fprintf(out, "  %s / %s\n", formatPath(thread.Path), thread.Title)
	if thread.IsVegan {
		color.New(color.FgGreen).Fprintln(out, "  vegan")
	}
	fmt.Fprintln(out)

	if len(thread.Posts) == 0 {
		fmt.Fprintln(out, "  (no posts)")
		fmt.Fprintln(out)
		return nil
	}
	for _, p := range thread.Posts {
		gray.Fprintf(out, "  #%d %s\n", p.ID, p.User)
		for _, line := range strings.Split(p.Text, "\n") {
			fmt.Fprintf(out, "    %s\n", line)
		}
		fmt.Fprintln(out)
	}
	return nil
}

func cmdPost(ctx context.Context, c *client, args []string, out io.Writer) error {
	if len(args) < 2 {
		return fmt.Errorf("%w: post <thread-id> <text>", errUsage)
	}
	threadID, err := parseIntArg(args[0])
	if err != nil {
		return err
	}
	if err := c.post(ctx, threadID, strings.Join(args[1:], " ")); err != nil {
		return fmt.Errorf("post: %w", err)
	}
	color.New(color.FgGreen).Fprintf(out, "✓ Posted to thread %d\n", threadID)
	return nil
}

func cmdMkTopic(ctx context.Context, c *client, args []string, out io.Writer) error {
	if len(args) < 2 {
		return fmt.Errorf("%w: mktopic <parent-id> <title>", errUsage)
	}
	parentID, err := parseIntArg(args[0])
	if err != nil {
		return err
	}
	created, err := c.createTopic(ctx, parentID, strings.Join(args[1:], " "))
	if err != nil {
		return fmt.Errorf("mktopic: %w", err)
	}
	color.New(color.FgGreen).Fprintf(out, "✓ Created topic %d: %s\n", created.ID, created.Title)
	return nil
}

func cmdMkThread(ctx context.Context, c *client, args []string, out io.Writer) error {
	var vegan bool
	var rest []string
	for _, a := range args {
		if a == "--vegan" {
			vegan = true
			continue
		}
		rest = append(rest, a)
	}
	if len(rest) < 2 {
		return fmt.Errorf("%w: mkthread <parent-id> <title> [--vegan]", errUsage)
	}
	parentID, err := parseIntArg(rest[0])
	if err != nil {
		return err
	}
	created, err := c.createThread(ctx, parentID, strings.Join(rest[1:], " "), vegan)
	if err != nil {
		return fmt.Errorf("mkthread: %w", err)
	}
	color.New(color.FgGreen).Fprintf(out, "✓ Created thread %d: %s\n", created.ID, created.Title)
	return nil
}

func cmdRemove(ctx context.Context, c *client, args []string, out io.Writer) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: rm <post|topic|thread> <id>", errUsage)
	}
	id, err := parseIntArg(args[1])
	if err != nil {
		return err
	}
	if err := c.remove(ctx, args[0], id); err != nil {
		return fmt.Errorf("rm %s: %w", args[0], err)
	}
	color.New(color.FgGreen).Fprintf(out, "✓ Deleted %s %d\n", args[0], id)
	return nil
}

func formatPath(path []api.PathEntry) string {
	titles := make([]string, 0, len(path))
	for _, p := range path {
		titles = append(titles, p.Title)
	}
	return strings.Join(titles, " / ")
}

func parseIntArg(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return n, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// readPassword takes FORUM_PASSWORD if set, otherwise one line of stdin.
func readPassword(out io.Writer) (string, error) {
	if p := os.Getenv("FORUM_PASSWORD"); p != "" {
		return p, nil
	}
	fmt.Fprint(out, "Password: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// tokenPath is ~/.config/coven-forum/token, honoring XDG_CONFIG_HOME
func tokenPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "coven-forum", "token")
}

// getToken returns the token from FORUM_TOKEN or the saved token file
func getToken() string {
	if token := os.Getenv("FORUM_TOKEN"); token != "" {
		return token
	}

	path := tokenPath()
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func saveToken(path, token string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating token directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(token+"\n"), 0600); err != nil {
		return fmt.Errorf("saving token: %w", err)
	}
	return nil
}
