// ABOUTME: Store interfaces and data types for forum persistence
// ABOUTME: Defines User, Topic, Thread, Post structs and the Store interface for database operations

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrUsernameExists is returned when creating a user whose name is taken
var ErrUsernameExists = errors.New("username already exists")

// ErrForbidden is returned when a user tries to delete something they do not own
var ErrForbidden = errors.New("not owned by user")

// ErrNotEmpty is returned when deleting a topic or thread that still has children
var ErrNotEmpty = errors.New("has children")

// RootID is the id of the distinguished root user and root topic
const RootID int64 = 0

// RootUserName is the name of the root user
const RootUserName = "root"

// User is a forum account. Token is empty when no token has been issued.
type User struct {
	ID             int64
	Name           string
	PasswordHash   string
	PasswordSalt   string
	Token          string
	TokenExpiresAt *time.Time
	CreatedAt      time.Time
}

// Topic is a node in the topic tree. ParentID is nil only for the root.
type Topic struct {
	ID        int64
	Title     string
	ParentID  *int64
	UserID    int64
	CreatedAt time.Time
}

// IsRoot reports whether the topic has no parent
func (t *Topic) IsRoot() bool { return t.ParentID == nil }

// OwnedBy reports whether userID owns the topic
func (t *Topic) OwnedBy(userID int64) bool { return t.UserID == userID }

// Thread holds posts and belongs to exactly one topic
type Thread struct {
	ID        int64
	Title     string
	IsVegan   bool
	ParentID  int64
	UserID    int64
	CreatedAt time.Time
}

// OwnedBy reports whether userID owns the thread
func (t *Thread) OwnedBy(userID int64) bool { return t.UserID == userID }

// Post is a single message in a thread
type Post struct {
	ID        int64
	Text      string
	ParentID  int64
	UserID    int64
	CreatedAt time.Time
}

// OwnedBy reports whether userID authored the post
func (p *Post) OwnedBy(userID int64) bool { return p.UserID == userID }

// TopicSummary is a child topic with live counts of its own children
type TopicSummary struct {
	Topic
	NumTopics  int
	NumThreads int
}

// ThreadSummary is a child thread with a live count of its posts
type ThreadSummary struct {
	Thread
	NumPosts int
}

// PostWithAuthor is a post joined with its author's name
type PostWithAuthor struct {
	Post
	Author string
}

// UserStore persists accounts and their bearer tokens
type UserStore interface {
	// CreateUser inserts the user and sets u.ID. Returns ErrUsernameExists on a duplicate name.
	CreateUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, id int64) (*User, error)
	GetUserByName(ctx context.Context, name string) (*User, error)
	UserExists(ctx context.Context, name string) (bool, error)

	// SetUserToken replaces the user's token and expiry. Returns ErrNotFound for an unknown user.
	SetUserToken(ctx context.Context, userID int64, token string, expiresAt time.Time) error

	// ListUsersByToken returns every user whose token equals token exactly.
	ListUsersByToken(ctx context.Context, token string) ([]*User, error)
}

// TopicStore persists the topic tree
type TopicStore interface {
	TopicExists(ctx context.Context, id int64) (bool, error)
	GetTopic(ctx context.Context, id int64) (*Topic, error)

	// CreateTopic inserts t and sets t.ID. Returns ErrNotFound if the parent topic is missing.
	CreateTopic(ctx context.Context, t *Topic) error

	// DeleteTopic removes an empty topic owned by userID.
	// Returns ErrNotFound, ErrForbidden (wrong owner or root), or ErrNotEmpty.
	DeleteTopic(ctx context.Context, id, userID int64) error

	// ListChildTopics returns the direct sub-topics of parentID ordered by id.
	ListChildTopics(ctx context.Context, parentID int64) ([]*TopicSummary, error)
}

// ThreadStore persists threads
type ThreadStore interface {
	ThreadExists(ctx context.Context, id int64) (bool, error)
	GetThread(ctx context.Context, id int64) (*Thread, error)

	// CreateThread inserts t and sets t.ID. Returns ErrNotFound if the parent topic is missing.
	CreateThread(ctx context.Context, t *Thread) error

	// DeleteThread removes a thread with no posts owned by userID.
	DeleteThread(ctx context.Context, id, userID int64) error

	// ListChildThreads returns the threads of topicID ordered by id.
	ListChildThreads(ctx context.Context, topicID int64) ([]*ThreadSummary, error)
}

// PostStore persists posts
type PostStore interface {
	GetPost(ctx context.Context, id int64) (*Post, error)

	// CreatePost inserts p and sets p.ID. Returns ErrNotFound if the parent thread is missing.
	CreatePost(ctx context.Context, p *Post) error

	// DeletePost removes a post authored by userID. Returns ErrNotFound or ErrForbidden.
	DeletePost(ctx context.Context, id, userID int64) error

	// ListThreadPosts returns the posts of threadID with author names, ordered by id.
	ListThreadPosts(ctx context.Context, threadID int64) ([]*PostWithAuthor, error)
}

// Store is the full persistence surface used by the forum
type Store interface {
	UserStore
	TopicStore
	ThreadStore
	PostStore

	// EnsureRoot creates the root user and root topic if they are absent.
	// root.ID is ignored; the root always has RootID.
	EnsureRoot(ctx context.Context, root *User, title string) error

	Close() error
}
