// ABOUTME: PostgreSQL implementation of the Store interface using a pgx connection pool
// ABOUTME: Mirrors SQLiteStore semantics with native timestamps and identity columns

package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS users (
    id               BIGINT GENERATED BY DEFAULT AS IDENTITY (START WITH 1) PRIMARY KEY,
    name             TEXT NOT NULL UNIQUE,
    password_hash    TEXT NOT NULL,
    password_salt    TEXT NOT NULL,
    token            TEXT,
    token_expires_at TIMESTAMPTZ,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CHECK (token IS NULL OR token_expires_at IS NOT NULL)
);
CREATE INDEX IF NOT EXISTS idx_users_token ON users(token);

CREATE TABLE IF NOT EXISTS topics (
    id         BIGINT GENERATED BY DEFAULT AS IDENTITY (START WITH 1) PRIMARY KEY,
    title      TEXT NOT NULL,
    parent_id  BIGINT REFERENCES topics(id),
    user_id    BIGINT NOT NULL REFERENCES users(id),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_topics_parent ON topics(parent_id);

CREATE TABLE IF NOT EXISTS threads (
    id         BIGINT GENERATED BY DEFAULT AS IDENTITY (START WITH 1) PRIMARY KEY,
    title      TEXT NOT NULL,
    is_vegan   BOOLEAN NOT NULL DEFAULT FALSE,
    parent_id  BIGINT NOT NULL REFERENCES topics(id),
    user_id    BIGINT NOT NULL REFERENCES users(id),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_threads_parent ON threads(parent_id);

CREATE TABLE IF NOT EXISTS posts (
    id         BIGINT GENERATED BY DEFAULT AS IDENTITY (START WITH 1) PRIMARY KEY,
    text       TEXT NOT NULL,
    parent_id  BIGINT NOT NULL REFERENCES threads(id),
    user_id    BIGINT NOT NULL REFERENCES users(id),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_posts_parent ON posts(parent_id);
`

// uniqueViolation is the SQLSTATE for a unique constraint failure
const uniqueViolation = "23505"

// PostgresStore implements the Store interface on PostgreSQL
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore connects to dsn, verifies the connection and creates the schema.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	logger := slog.Default().With("component", "store", "driver", "postgres")

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("PostgreSQL store initialized", "host", pool.Config().ConnConfig.Host)
	return &PostgresStore{pool: pool, logger: logger}, nil
}

// Close closes the pool
func (s *PostgresStore) Close() error {
	s.logger.Info("closing PostgreSQL store")
	s.pool.Close()
	return nil
}

func (s *PostgresStore) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return pgx.BeginFunc(ctx, s.pool, fn)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func pgExists(ctx context.Context, q interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}, query string, args ...any) (bool, error) {
	var one int
	err := q.QueryRow(ctx, query, args...).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ---- users ----

func pgScanUser(row pgx.Row) (*User, error) {
	var u User
	var token *string
	if err := row.Scan(&u.ID, &u.Name, &u.PasswordHash, &u.PasswordSalt, &token, &u.TokenExpiresAt, &u.CreatedAt); err != nil {
		return nil, err
	}
	if token != nil {
		u.Token = *token
	}
	return &u, nil
}

// CreateUser inserts a new user. Returns ErrUsernameExists if the name is taken.
func (s *PostgresStore) CreateUser(ctx context.Context, u *User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now()
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (name, password_hash, password_salt, created_at)
		VALUES ($1, $2, $3, $4) RETURNING id
	`, u.Name, u.PasswordHash, u.PasswordSalt, u.CreatedAt).Scan(&u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrUsernameExists
		}
		return fmt.Errorf("inserting user: %w", err)
	}
	s.logger.Debug("created user", "id", u.ID, "name", u.Name)
	return nil
}

// GetUser retrieves a user by id
func (s *PostgresStore) GetUser(ctx context.Context, id int64) (*User, error) {
	u, err := pgScanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return u, nil
}

// GetUserByName retrieves a user by name
func (s *PostgresStore) GetUserByName(ctx context.Context, name string) (*User, error) {
	u, err := pgScanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE name = $1`, name))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return u, nil
}

// UserExists reports whether a user with the given name exists
func (s *PostgresStore) UserExists(ctx context.Context, name string) (bool, error) {
	ok, err := pgExists(ctx, s.pool, `SELECT 1 FROM users WHERE name = $1`, name)
	if err != nil {
		return false, fmt.Errorf("checking user: %w", err)
	}
	return ok, nil
}

// SetUserToken overwrites the user's token and expiry
func (s *PostgresStore) SetUserToken(ctx context.Context, userID int64, token string, expiresAt time.Time) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE users SET token = $1, token_expires_at = $2 WHERE id = $3`,
			token, expiresAt.UTC(), userID)
		if err != nil {
			return fmt.Errorf("updating token: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// ListUsersByToken returns all users holding exactly this token
func (s *PostgresStore) ListUsersByToken(ctx context.Context, token string) ([]*User, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE token = $1`, token)
	if err != nil {
		return nil, fmt.Errorf("querying users by token: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := pgScanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// ---- topics ----

func pgScanTopic(row pgx.Row, extra ...any) (*Topic, error) {
	var t Topic
	dest := append([]any{&t.ID, &t.Title, &t.ParentID, &t.UserID, &t.CreatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &t, nil
}

// TopicExists reports whether a topic with id exists
func (s *PostgresStore) TopicExists(ctx context.Context, id int64) (bool, error) {
	ok, err := pgExists(ctx, s.pool, `SELECT 1 FROM topics WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("checking topic: %w", err)
	}
	return ok, nil
}

// GetTopic retrieves a topic by id
func (s *PostgresStore) GetTopic(ctx context.Context, id int64) (*Topic, error) {
	t, err := pgScanTopic(s.pool.QueryRow(ctx, `SELECT `+topicColumns+` FROM topics WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying topic: %w", err)
	}
	return t, nil
}

// CreateTopic inserts a sub-topic after checking the parent inside the same transaction
func (s *PostgresStore) CreateTopic(ctx context.Context, t *Topic) error {
	if t.ParentID == nil {
		return fmt.Errorf("creating topic: parent is required: %w", ErrNotFound)
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now()
	}

	return s.withTx(ctx, func(tx pgx.Tx) error {
		ok, err := pgExists(ctx, tx, `SELECT 1 FROM topics WHERE id = $1`, *t.ParentID)
		if err != nil {
			return fmt.Errorf("checking parent topic: %w", err)
		}
		if !ok {
			return ErrNotFound
		}

		err = tx.QueryRow(ctx, `
			INSERT INTO topics (title, parent_id, user_id, created_at) VALUES ($1, $2, $3, $4) RETURNING id
		`, t.Title, *t.ParentID, t.UserID, t.CreatedAt).Scan(&t.ID)
		if err != nil {
			return fmt.Errorf("inserting topic: %w", err)
		}
		s.logger.Debug("created topic", "id", t.ID, "parent", *t.ParentID)
		return nil
	})
}

// DeleteTopic removes an empty, owned, non-root topic
func (s *PostgresStore) DeleteTopic(ctx context.Context, id, userID int64) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		var owner int64
		var parent *int64
		err := tx.QueryRow(ctx, `SELECT user_id, parent_id FROM topics WHERE id = $1 FOR UPDATE`, id).Scan(&owner, &parent)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("querying topic: %w", err)
		}
		if parent == nil || owner != userID {
			return ErrForbidden
		}

		var children int
		err = tx.QueryRow(ctx, `
			SELECT (SELECT COUNT(*) FROM topics WHERE parent_id = $1) + (SELECT COUNT(*) FROM threads WHERE parent_id = $1)
		`, id).Scan(&children)
		if err != nil {
			return fmt.Errorf("counting topic children: %w", err)
		}
		if children > 0 {
			return ErrNotEmpty
		}

		if _, err := tx.Exec(ctx, `DELETE FROM topics WHERE id = $1`, id); err != nil {
			return fmt.Errorf("deleting topic: %w", err)
		}
		s.logger.Debug("deleted topic", "id", id, "user", userID)
		return nil
	})
}

// ListChildTopics returns sub-topics of parentID with live child counts
func (s *PostgresStore) ListChildTopics(ctx context.Context, parentID int64) ([]*TopicSummary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT t.id, t.title, t.parent_id, t.user_id, t.created_at,
			(SELECT COUNT(*) FROM topics c WHERE c.parent_id = t.id),
			(SELECT COUNT(*) FROM threads h WHERE h.parent_id = t.id)
		FROM topics t
		WHERE t.parent_id = $1
		ORDER BY t.id
	`, parentID)
	if err != nil {
		return nil, fmt.Errorf("querying child topics: %w", err)
	}
	defer rows.Close()

	var out []*TopicSummary
	for rows.Next() {
		var sum TopicSummary
		t, err := pgScanTopic(rows, &sum.NumTopics, &sum.NumThreads)
		if err != nil {
			return nil, fmt.Errorf("scanning topic: %w", err)
		}
		sum.Topic = *t
		out = append(out, &sum)
	}
	return out, rows.Err()
}

// ---- threads ----

func pgScanThread(row pgx.Row, extra ...any) (*Thread, error) {
	var t Thread
	dest := append([]any{&t.ID, &t.Title, &t.IsVegan, &t.ParentID, &t.UserID, &t.CreatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &t, nil
}

// ThreadExists reports whether a thread with id exists
func (s *PostgresStore) ThreadExists(ctx context.Context, id int64) (bool, error) {
	ok, err := pgExists(ctx, s.pool, `SELECT 1 FROM threads WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("checking thread: %w", err)
	}
	return ok, nil
}

// GetThread retrieves a thread by id
func (s *PostgresStore) GetThread(ctx context.Context, id int64) (*Thread, error) {
	t, err := pgScanThread(s.pool.QueryRow(ctx, `SELECT `+threadColumns+` FROM threads WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying thread: %w", err)
	}
	return t, nil
}

// CreateThread inserts a thread after checking the parent topic inside the same transaction
func (s *PostgresStore) CreateThread(ctx context.Context, t *Thread) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now()
	}

	return s.withTx(ctx, func(tx pgx.Tx) error {
		ok, err := pgExists(ctx, tx, `SELECT 1 FROM topics WHERE id = $1`, t.ParentID)
		if err != nil {
			return fmt.Errorf("checking parent topic: %w", err)
		}
		if !ok {
			return ErrNotFound
		}

		err = tx.QueryRow(ctx, `
			INSERT INTO threads (title, is_vegan, parent_id, user_id, created_at)
			VALUES ($1, $2, $3, $4, $5) RETURNING id
		`, t.Title, t.IsVegan, t.ParentID, t.UserID, t.CreatedAt).Scan(&t.ID)
		if err != nil {
			return fmt.Errorf("inserting thread: %w", err)
		}
		s.logger.Debug("created thread", "id", t.ID, "topic", t.ParentID)
		return nil
	})
}

// DeleteThread removes an owned thread that has no posts
func (s *PostgresStore) DeleteThread(ctx context.Context, id, userID int64) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		var owner int64
		err := tx.QueryRow(ctx, `SELECT user_id FROM threads WHERE id = $1 FOR UPDATE`, id).Scan(&owner)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("querying thread: %w", err)
		}
		if owner != userID {
			return ErrForbidden
		}

		hasPosts, err := pgExists(ctx, tx, `SELECT 1 FROM posts WHERE parent_id = $1 LIMIT 1`, id)
		if err != nil {
			return fmt.Errorf("checking thread posts: %w", err)
		}
		if hasPosts {
			return ErrNotEmpty
		}

		if _, err := tx.Exec(ctx, `DELETE FROM threads WHERE id = $1`, id); err != nil {
			return fmt.Errorf("deleting thread: %w", err)
		}
		s.logger.Debug("deleted thread", "id", id, "user", userID)
		return nil
	})
}

// ListChildThreads returns threads of topicID with live post counts
func (s *PostgresStore) ListChildThreads(ctx context.Context, topicID int64) ([]*ThreadSummary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT t.id, t.title, t.is_vegan, t.parent_id, t.user_id, t.created_at,
			(SELECT COUNT(*) FROM posts p WHERE p.parent_id = t.id)
		FROM threads t
		WHERE t.parent_id = $1
		ORDER BY t.id
	`, topicID)
	if err != nil {
		return nil, fmt.Errorf("querying child threads: %w", err)
	}
	defer rows.Close()

	var out []*ThreadSummary
	for rows.Next() {
		var sum ThreadSummary
		t, err := pgScanThread(rows, &sum.NumPosts)
		if err != nil {
			return nil, fmt.Errorf("scanning thread: %w", err)
		}
		sum.Thread = *t
		out = append(out, &sum)
	}
	return out, rows.Err()
}

// ---- posts ----

func pgScanPost(row pgx.Row, extra ...any) (*Post, error) {
	var p Post
	dest := append([]any{&p.ID, &p.Text, &p.ParentID, &p.UserID, &p.CreatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetPost retrieves a post by id
func (s *PostgresStore) GetPost(ctx context.Context, id int64) (*Post, error) {
	p, err := pgScanPost(s.pool.QueryRow(ctx, `
		SELECT id, text, parent_id, user_id, created_at FROM posts WHERE id = $1
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying post: %w", err)
	}
	return p, nil
}

// CreatePost inserts a post after checking the parent thread inside the same transaction
func (s *PostgresStore) CreatePost(ctx context.Context, p *Post) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now()
	}

	return s.withTx(ctx, func(tx pgx.Tx) error {
		ok, err := pgExists(ctx, tx, `SELECT 1 FROM threads WHERE id = $1`, p.ParentID)
		if err != nil {
			return fmt.Errorf("checking parent thread: %w", err)
		}
		if !ok {
			return ErrNotFound
		}

		err = tx.QueryRow(ctx, `
			INSERT INTO posts (text, parent_id, user_id, created_at) VALUES ($1, $2, $3, $4) RETURNING id
		`, p.Text, p.ParentID, p.UserID, p.CreatedAt).Scan(&p.ID)
		if err != nil {
			return fmt.Errorf("inserting post: %w", err)
		}
		s.logger.Debug("created post", "id", p.ID, "thread", p.ParentID)
		return nil
	})
}

// DeletePost removes a post if userID authored it
func (s *PostgresStore) DeletePost(ctx context.Context, id, userID int64) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		var owner int64
		err := tx.QueryRow(ctx, `SELECT user_id FROM posts WHERE id = $1 FOR UPDATE`, id).Scan(&owner)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("querying post: %w", err)
		}
		if owner != userID {
			return ErrForbidden
		}

		if _, err := tx.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id); err != nil {
			return fmt.Errorf("deleting post: %w", err)
		}
		s.logger.Debug("deleted post", "id", id, "user", userID)
		return nil
	})
}

// ListThreadPosts returns posts of threadID joined with author names
func (s *PostgresStore) ListThreadPosts(ctx context.Context, threadID int64) ([]*PostWithAuthor, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT p.id, p.text, p.parent_id, p.user_id, p.created_at, u.name
		FROM posts p
		JOIN users u ON u.id = p.user_id
		WHERE p.parent_id = $1
		ORDER BY p.id
	`, threadID)
	if err != nil {
		return nil, fmt.Errorf("querying thread posts: %w", err)
	}
	defer rows.Close()

	var out []*PostWithAuthor
	for rows.Next() {
		var pa PostWithAuthor
		p, err := pgScanPost(rows, &pa.Author)
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
func (s *PostgresStore) EnsureRoot(ctx context.Context, root *User, title string) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		ts := now()

		tag, err := tx.Exec(ctx, `
			INSERT INTO users (id, name, password_hash, password_salt, created_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT DO NOTHING
		`, RootID, RootUserName, root.PasswordHash, root.PasswordSalt, ts)
		if err != nil {
			return fmt.Errorf("inserting root user: %w", err)
		}
		if tag.RowsAffected() > 0 {
			s.logger.Info("created root user")
		}

		tag, err = tx.Exec(ctx, `
			INSERT INTO topics (id, title, parent_id, user_id, created_at)
			VALUES ($1, $2, NULL, $3, $4)
			ON CONFLICT DO NOTHING
		`, RootID, title, RootID, ts)
		if err != nil {
			return fmt.Errorf("inserting root topic: %w", err)
		}
		if tag.RowsAffected() > 0 {
			s.logger.Info("created root topic", "title", title)
		}
		return nil
	})
}
