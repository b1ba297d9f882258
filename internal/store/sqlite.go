// ABOUTME: SQLite implementation of the Store interface over database/sql
// ABOUTME: Works with modernc.org/sqlite ("sqlite") or mattn/go-sqlite3 ("sqlite3") and creates its schema on open

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite store at the given path using the pure Go driver.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	return NewSQLiteStoreWithDriver("sqlite", path)
}

// NewSQLiteStoreWithDriver opens path with the named database/sql driver,
// either "sqlite" (modernc) or "sqlite3" (mattn, requires cgo).
func NewSQLiteStoreWithDriver(driver, path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store", "driver", driver)

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	dsn, err := sqliteDSN(driver, path)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Every pooled connection must see the same in-memory database.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// sqliteDSN appends per-connection pragmas in each driver's syntax.
// A PRAGMA run through db.Exec would only reach one pooled connection.
func sqliteDSN(driver, path string) (string, error) {
	switch driver {
	case "sqlite":
		return path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", nil
	case "sqlite3":
		return path + "?_foreign_keys=on&_busy_timeout=5000", nil
	default:
		return "", fmt.Errorf("unsupported sqlite driver %q", driver)
	}
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS users (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			name             TEXT NOT NULL UNIQUE,
			password_hash    TEXT NOT NULL,
			password_salt    TEXT NOT NULL,
			token            TEXT,
			token_expires_at TEXT,
			created_at       TEXT NOT NULL,

			CHECK (token IS NULL OR token_expires_at IS NOT NULL)
		);

		CREATE INDEX IF NOT EXISTS idx_users_token ON users(token);

		CREATE TABLE IF NOT EXISTS topics (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			title      TEXT NOT NULL,
			parent_id  INTEGER REFERENCES topics(id),
			user_id    INTEGER NOT NULL REFERENCES users(id),
			created_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_topics_parent ON topics(parent_id);

		CREATE TABLE IF NOT EXISTS threads (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			title      TEXT NOT NULL,
			is_vegan   INTEGER NOT NULL DEFAULT 0,
			parent_id  INTEGER NOT NULL REFERENCES topics(id),
			user_id    INTEGER NOT NULL REFERENCES users(id),
			created_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_threads_parent ON threads(parent_id);

		CREATE TABLE IF NOT EXISTS posts (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			text       TEXT NOT NULL,
			parent_id  INTEGER NOT NULL REFERENCES threads(id),
			user_id    INTEGER NOT NULL REFERENCES users(id),
			created_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_posts_parent ON posts(parent_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

// withTx runs fn in a transaction, committing on nil and rolling back otherwise.
func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

// isConstraintViolation checks if the error is a SQLite UNIQUE constraint violation.
// modernc and mattn word the message the same way.
func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func now() time.Time {
	return time.Now().UTC()
}

// rowExists runs a SELECT 1 query and reports whether it produced a row.
func rowExists(ctx context.Context, q interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}, query string, args ...any) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ---- users ----

const userColumns = `id, name, password_hash, password_salt, token, token_expires_at, created_at`

func scanUser(row rowScanner) (*User, error) {
	var u User
	var token, expires sql.NullString
	var created string

	if err := row.Scan(&u.ID, &u.Name, &u.PasswordHash, &u.PasswordSalt, &token, &expires, &created); err != nil {
		return nil, err
	}

	u.Token = token.String
	if expires.Valid {
		t, err := parseTime(expires.String)
		if err != nil {
			return nil, fmt.Errorf("parsing token_expires_at: %w", err)
		}
		u.TokenExpiresAt = &t
	}

	var err error
	u.CreatedAt, err = parseTime(created)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	return &u, nil
}

// CreateUser inserts a new user. Returns ErrUsernameExists if the name is taken.
func (s *SQLiteStore) CreateUser(ctx context.Context, u *User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO users (name, password_hash, password_salt, created_at)
		VALUES (?, ?, ?, ?)
	`, u.Name, u.PasswordHash, u.PasswordSalt, formatTime(u.CreatedAt))
	if err != nil {
		if isConstraintViolation(err) {
			return ErrUsernameExists
		}
		return fmt.Errorf("inserting user: %w", err)
	}

	u.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading user id: %w", err)
	}

	s.logger.Debug("created user", "id", u.ID, "name", u.Name)
	return nil
}

// GetUser retrieves a user by id
func (s *SQLiteStore) GetUser(ctx context.Context, id int64) (*User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return u, nil
}

// GetUserByName retrieves a user by name
func (s *SQLiteStore) GetUserByName(ctx context.Context, name string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE name = ?`, name)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return u, nil
}

// UserExists reports whether a user with the given name exists
func (s *SQLiteStore) UserExists(ctx context.Context, name string) (bool, error) {
	ok, err := rowExists(ctx, s.db, `SELECT 1 FROM users WHERE name = ?`, name)
	if err != nil {
		return false, fmt.Errorf("checking user: %w", err)
	}
	return ok, nil
}

// SetUserToken overwrites the user's token and expiry
func (s *SQLiteStore) SetUserToken(ctx context.Context, userID int64, token string, expiresAt time.Time) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE users SET token = ?, token_expires_at = ? WHERE id = ?
		`, token, formatTime(expiresAt), userID)
		if err != nil {
			return fmt.Errorf("updating token: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("checking rows affected: %w", err)
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// ListUsersByToken returns all users holding exactly this token
func (s *SQLiteStore) ListUsersByToken(ctx context.Context, token string) ([]*User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users WHERE token = ?`, token)
	if err != nil {
		return nil, fmt.Errorf("querying users by token: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// ---- topics ----

const topicColumns = `id, title, parent_id, user_id, created_at`

func scanTopic(row rowScanner, extra ...any) (*Topic, error) {
	var t Topic
	var parent sql.NullInt64
	var created string

	dest := append([]any{&t.ID, &t.Title, &parent, &t.UserID, &created}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	if parent.Valid {
		p := parent.Int64
		t.ParentID = &p
	}

	var err error
	t.CreatedAt, err = parseTime(created)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	return &t, nil
}

// TopicExists reports whether a topic with id exists
func (s *SQLiteStore) TopicExists(ctx context.Context, id int64) (bool, error) {
	ok, err := rowExists(ctx, s.db, `SELECT 1 FROM topics WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("checking topic: %w", err)
	}
	return ok, nil
}

// GetTopic retrieves a topic by id
func (s *SQLiteStore) GetTopic(ctx context.Context, id int64) (*Topic, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+topicColumns+` FROM topics WHERE id = ?`, id)
	t, err := scanTopic(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying topic: %w", err)
	}
	return t, nil
}

// CreateTopic inserts a sub-topic after checking the parent inside the same transaction
func (s *SQLiteStore) CreateTopic(ctx context.Context, t *Topic) error {
	if t.ParentID == nil {
		return fmt.Errorf("creating topic: parent is required: %w", ErrNotFound)
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now()
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		ok, err := rowExists(ctx, tx, `SELECT 1 FROM topics WHERE id = ?`, *t.ParentID)
		if err != nil {
			return fmt.Errorf("checking parent topic: %w", err)
		}
		if !ok {
			return ErrNotFound
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO topics (title, parent_id, user_id, created_at) VALUES (?, ?, ?, ?)
		`, t.Title, *t.ParentID, t.UserID, formatTime(t.CreatedAt))
		if err != nil {
			return fmt.Errorf("inserting topic: %w", err)
		}
		t.ID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading topic id: %w", err)
		}

		s.logger.Debug("created topic", "id", t.ID, "parent", *t.ParentID)
		return nil
	})
}

// DeleteTopic removes an empty, owned, non-root topic
func (s *SQLiteStore) DeleteTopic(ctx context.Context, id, userID int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var owner int64
		var parent sql.NullInt64
		err := tx.QueryRowContext(ctx, `SELECT user_id, parent_id FROM topics WHERE id = ?`, id).Scan(&owner, &parent)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("querying topic: %w", err)
		}
		if !parent.Valid || owner != userID {
			return ErrForbidden
		}

		var children int
		err = tx.QueryRowContext(ctx, `
			SELECT (SELECT COUNT(*) FROM topics WHERE parent_id = ?) + (SELECT COUNT(*) FROM threads WHERE parent_id = ?)
		`, id, id).Scan(&children)
		if err != nil {
			return fmt.Errorf("counting topic children: %w", err)
		}
		if children > 0 {
			return ErrNotEmpty
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM topics WHERE id = ?`, id); err != nil {
			return fmt.Errorf("deleting topic: %w", err)
		}
		s.logger.Debug("deleted topic", "id", id, "user", userID)
		return nil
	})
}

// ListChildTopics returns sub-topics of parentID with live child counts
func (s *SQLiteStore) ListChildTopics(ctx context.Context, parentID int64) ([]*TopicSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.title, t.parent_id, t.user_id, t.created_at,
			(SELECT COUNT(*) FROM topics c WHERE c.parent_id = t.id),
			(SELECT COUNT(*) FROM threads h WHERE h.parent_id = t.id)
		FROM topics t
		WHERE t.parent_id = ?
		ORDER BY t.id
	`, parentID)
	if err != nil {
		return nil, fmt.Errorf("querying child topics: %w", err)
	}
	defer rows.Close()

	var out []*TopicSummary
	for rows.Next() {
		var sum TopicSummary
		t, err := scanTopic(rows, &sum.NumTopics, &sum.NumThreads)
		if err != nil {
			return nil, fmt.Errorf("scanning topic: %w", err)
		}
		sum.Topic = *t
		out = append(out, &sum)
	}
	return out, rows.Err()
}

// ---- threads ----

const threadColumns = `id, title, is_vegan, parent_id, user_id, created_at`

func scanThread(row rowScanner, extra ...any) (*Thread, error) {
	var t Thread
	var created string

	dest := append([]any{&t.ID, &t.Title, &t.IsVegan, &t.ParentID, &t.UserID, &created}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	var err error
	t.CreatedAt, err = parseTime(created)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	return &t, nil
}

// ThreadExists reports whether a thread with id exists
func (s *SQLiteStore) ThreadExists(ctx context.Context, id int64) (bool, error) {
	ok, err := rowExists(ctx, s.db, `SELECT 1 FROM threads WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("checking thread: %w", err)
	}
	return ok, nil
}

// GetThread retrieves a thread by id
func (s *SQLiteStore) GetThread(ctx context.Context, id int64) (*Thread, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+threadColumns+` FROM threads WHERE id = ?`, id)
	t, err := scanThread(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying thread: %w", err)
	}
	return t, nil
}

// CreateThread inserts a thread after checking the parent topic inside the same transaction
func (s *SQLiteStore) CreateThread(ctx context.Context, t *Thread) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now()
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		ok, err := rowExists(ctx, tx, `SELECT 1 FROM topics WHERE id = ?`, t.ParentID)
		if err != nil {
			return fmt.Errorf("checking parent topic: %w", err)
		}
		if !ok {
			return ErrNotFound
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO threads (title, is_vegan, parent_id, user_id, created_at) VALUES (?, ?, ?, ?, ?)
		`, t.Title, t.IsVegan, t.ParentID, t.UserID, formatTime(t.CreatedAt))
		if err != nil {
			return fmt.Errorf("inserting thread: %w", err)
		}
		t.ID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading thread id: %w", err)
		}

		s.logger.Debug("created thread", "id", t.ID, "topic", t.ParentID)
		return nil
	})
}

// DeleteThread removes an owned thread that has no posts
func (s *SQLiteStore) DeleteThread(ctx context.Context, id, userID int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var owner int64
		err := tx.QueryRowContext(ctx, `SELECT user_id FROM threads WHERE id = ?`, id).Scan(&owner)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("querying thread: %w", err)
		}
		if owner != userID {
			return ErrForbidden
		}

		hasPosts, err := rowExists(ctx, tx, `SELECT 1 FROM posts WHERE parent_id = ? LIMIT 1`, id)
		if err != nil {
			return fmt.Errorf("checking thread posts: %w", err)
		}
		if hasPosts {
			return ErrNotEmpty
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM threads WHERE id = ?`, id); err != nil {
			return fmt.Errorf("deleting thread: %w", err)
		}
		s.logger.Debug("deleted thread", "id", id, "user", userID)
		return nil
	})
}

// ListChildThreads returns threads of topicID with live post counts
func (s *SQLiteStore) ListChildThreads(ctx context.Context, topicID int64) ([]*ThreadSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.title, t.is_vegan, t.parent_id, t.user_id, t.created_at,
			(SELECT COUNT(*) FROM posts p WHERE p.parent_id = t.id)
		FROM threads t
		WHERE t.parent_id = ?
		ORDER BY t.id
	`, topicID)
	if err != nil {
		return nil, fmt.Errorf("querying child threads: %w", err)
	}
	defer rows.Close()

	var out []*ThreadSummary
	for rows.Next() {
		var sum ThreadSummary
		t, err := scanThread(rows, &sum.NumPosts)
		if err != nil {
			return nil, fmt.Errorf("scanning thread: %w", err)
		}
		sum.Thread = *t
		out = append(out, &sum)
	}
	return out, rows.Err()
}

// ---- posts ----

func scanPost(row rowScanner, extra ...any) (*Post, error) {
	var p Post
	var created string

	dest := append([]any{&p.ID, &p.Text, &p.ParentID, &p.UserID, &created}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	var err error
	p.CreatedAt, err = parseTime(created)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	return &p, nil
}

// GetPost retrieves a post by id
func (s *SQLiteStore) GetPost(ctx context.Context, id int64) (*Post, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, text, parent_id, user_id, created_at FROM posts WHERE id = ?
	`, id)
	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying post: %w", err)
	}
	return p, nil
}

// CreatePost inserts a post after checking the parent thread inside the same transaction
func (s *SQLiteStore) CreatePost(ctx context.Context, p *Post) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now()
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		ok, err := rowExists(ctx, tx, `SELECT 1 FROM threads WHERE id = ?`, p.ParentID)
		if err != nil {
			return fmt.Errorf("checking parent thread: %w", err)
		}
		if !ok {
			return ErrNotFound
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO posts (text, parent_id, user_id, created_at) VALUES (?, ?, ?, ?)
		`, p.Text, p.ParentID, p.UserID, formatTime(p.CreatedAt))
		if err != nil {
			return fmt.Errorf("inserting post: %w", err)
		}
		p.ID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading post id: %w", err)
		}

		s.logger.Debug("created post", "id", p.ID, "thread", p.ParentID)
		return nil
	})
}

// DeletePost removes a post if userID authored it
func (s *SQLiteStore) DeletePost(ctx context.Context, id, userID int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var owner int64
		err := tx.QueryRowContext(ctx, `SELECT user_id FROM posts WHERE id = ?`, id).Scan(&owner)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("querying post: %w", err)
		}
		if owner != userID {
			return ErrForbidden
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id); err != nil {
			return fmt.Errorf("deleting post: %w", err)
		}
		s.logger.Debug("deleted post", "id", id, "user", userID)
		return nil
	})
}

// ListThreadPosts returns posts of threadID joined with author names
func (s *SQLiteStore) ListThreadPosts(ctx context.Context, threadID int64) ([]*PostWithAuthor, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.text, p.parent_id, p.user_id, p.created_at, u.name
		FROM posts p
		JOIN users u ON u.id = p.user_id
		WHERE p.parent_id = ?
		ORDER BY p.id
	`, threadID)
	if err != nil {
		return nil, fmt.Errorf("querying thread posts: %w", err)
	}
	defer rows.Close()

	var out []*PostWithAuthor
	for rows.Next() {
		var pa PostWithAuthor
		p, err := scanPost(rows, &pa.Author)
		if err != nil {
			return nil, fmt.Errorf("scanning post: %w", err)
		}
		pa.Post = *p
		out = append(out, &pa)
	}
	return out, rows.Err()
}

// ---- root ----

// EnsureRoot inserts the root user and root topic if either is missing
func (s *SQLiteStore) EnsureRoot(ctx context.Context, root *User, title string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		ts := formatTime(now())

		res, err := tx.ExecContext(ctx, `
			INSERT INTO users (id, name, password_hash, password_salt, created_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT DO NOTHING
		`, RootID, RootUserName, root.PasswordHash, root.PasswordSalt, ts)
		if err != nil {
			return fmt.Errorf("inserting root user: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			s.logger.Info("created root user")
		}

		res, err = tx.ExecContext(ctx, `
			INSERT INTO topics (id, title, parent_id, user_id, created_at)
			VALUES (?, ?, NULL, ?, ?)
			ON CONFLICT DO NOTHING
		`, RootID, title, RootID, ts)
		if err != nil {
			return fmt.Errorf("inserting root topic: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			s.logger.Info("created root topic", "title", title)
		}
		return nil
	})
}
