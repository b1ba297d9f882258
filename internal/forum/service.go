// ABOUTME: Forum service combining the store with path resolution
// ABOUTME: Builds topic and thread views and performs owner-checked writes

package forum

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/2389/coven-forum/internal/credential"
	"github.com/2389/coven-forum/internal/store"
)

// Lookup errors returned in place of store.ErrNotFound so callers can tell which entity was missing
var (
	ErrTopicNotFound  = errors.New("topic does not exist")
	ErrThreadNotFound = errors.New("thread does not exist")
	ErrPostNotFound   = errors.New("post does not exist")
)

// ErrBadRootPassword is returned by Bootstrap when the configured root password fails the policy
var ErrBadRootPassword = errors.New("root password is not acceptable")

// TopicView is a topic with its breadcrumb and direct children
type TopicView struct {
	Topic   *store.Topic
	Path    []PathEntry
	Topics  []*store.TopicSummary
	Threads []*store.ThreadSummary
}

// ThreadView is a thread with its breadcrumb and posts
type ThreadView struct {
	Thread *store.Thread
	Path   []PathEntry
	Posts  []*store.PostWithAuthor
}

// Service is the forum's read and write surface over a Store
type Service struct {
	store    store.Store
	maxDepth int
	logger   *slog.Logger
}

// NewService creates a Service. maxDepth bounds breadcrumb walks.
func NewService(s store.Store, maxDepth int) *Service {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Service{
		store:    s,
		maxDepth: maxDepth,
		logger:   slog.Default().With("component", "forum"),
	}
}

// Bootstrap creates the root user and root topic when they are missing.
// An empty rootPassword leaves the root account without a usable password.
func (s *Service) Bootstrap(ctx context.Context, rootTitle, rootPassword string) error {
	root := &store.User{}
	if rootPassword != "" {
		if !credential.IsAcceptablePassword(rootPassword) {
			return ErrBadRootPassword
		}
		hash, salt, err := credential.HashPassword(rootPassword)
		if err != nil {
			return fmt.Errorf("hashing root password: %w", err)
		}
		root.PasswordHash, root.PasswordSalt = hash, salt
	} else {
		// No digest equals the empty string, so login as root is impossible.
		salt, err := credential.NewSalt()
		if err != nil {
			return fmt.Errorf("generating root salt: %w", err)
		}
		root.PasswordSalt = salt
	}

	if err := s.store.EnsureRoot(ctx, root, rootTitle); err != nil {
		return fmt.Errorf("ensuring root: %w", err)
	}
	return nil
}

func notFound(err, sentinel error) error {
	if errors.Is(err, store.ErrNotFound) {
		return sentinel
	}
	return err
}

// Topic returns the topic with its path, sub-topics and threads
func (s *Service) Topic(ctx context.Context, id int64) (*TopicView, error) {
	topic, err := s.store.GetTopic(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrTopicNotFound)
	}

	path, err := ResolvePath(ctx, s.store, topic, s.maxDepth)
	if err != nil {
		if errors.Is(err, ErrCorruptData) {
			s.logger.Error("topic tree is corrupt", "topic", id, "error", err)
		}
		return nil, err
	}

	topics, err := s.store.ListChildTopics(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("listing child topics: %w", err)
	}
	threads, err := s.store.ListChildThreads(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("listing child threads: %w", err)
	}

	return &TopicView{Topic: topic, Path: path, Topics: topics, Threads: threads}, nil
}

// Thread returns the thread with its parent's path and its posts
func (s *Service) Thread(ctx context.Context, id int64) (*ThreadView, error) {
	thread, err := s.store.GetThread(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrThreadNotFound)
	}

	path, err := ThreadPath(ctx, s.store, thread, s.maxDepth)
	if err != nil {
		if errors.Is(err, ErrCorruptData) {
			s.logger.Error("topic tree is corrupt", "thread", id, "error", err)
		}
		return nil, err
	}

	posts, err := s.store.ListThreadPosts(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("listing posts: %w", err)
	}

	return &ThreadView{Thread: thread, Path: path, Posts: posts}, nil
}

// CreateTopic adds a sub-topic owned by userID under parentID
func (s *Service) CreateTopic(ctx context.Context, userID, parentID int64, title string) (*store.Topic, error) {
	topic := &store.Topic{Title: title, ParentID: &parentID, UserID: userID}
	if err := s.store.CreateTopic(ctx, topic); err != nil {
		return nil, notFound(err, ErrTopicNotFound)
	}
	s.logger.Info("topic created", "id", topic.ID, "parent", parentID, "user", userID)
	return topic, nil
}

// CreateThread adds a thread owned by userID under topic parentID
func (s *Service) CreateThread(ctx context.Context, userID, parentID int64, title string, isVegan bool) (*store.Thread, error) {
	thread := &store.Thread{Title: title, IsVegan: isVegan, ParentID: parentID, UserID: userID}
	if err := s.store.CreateThread(ctx, thread); err != nil {
		return nil, notFound(err, ErrTopicNotFound)
	}
	s.logger.Info("thread created", "id", thread.ID, "topic", parentID, "user", userID)
	return thread, nil
}

// CreatePost adds a post by userID to threadID
func (s *Service) CreatePost(ctx context.Context, userID, threadID int64, text string) (*store.Post, error) {
	post := &store.Post{Text: text, ParentID: threadID, UserID: userID}
	if err := s.store.CreatePost(ctx, post); err != nil {
		return nil, notFound(err, ErrThreadNotFound)
	}
	s.logger.Info("post created", "id", post.ID, "thread", threadID, "user", userID)
	return post, nil
}

// DeletePost removes a post if userID wrote it.
// Returns ErrPostNotFound or store.ErrForbidden.
func (s *Service) DeletePost(ctx context.Context, userID, postID int64) error {
	if err := s.store.DeletePost(ctx, postID, userID); err != nil {
		return notFound(err, ErrPostNotFound)
	}
	s.logger.Info("post deleted", "id", postID, "user", userID)
	return nil
}

// DeleteThread removes an empty thread owned by userID.
// Returns ErrThreadNotFound, store.ErrForbidden or store.ErrNotEmpty.
func (s *Service) DeleteThread(ctx context.Context, userID, threadID int64) error {
	if err := s.store.DeleteThread(ctx, threadID, userID); err != nil {
		return notFound(err, ErrThreadNotFound)
	}
	s.logger.Info("thread deleted", "id", threadID, "user", userID)
	return nil
}

// DeleteTopic removes an empty topic owned by userID.
// Returns ErrTopicNotFound, store.ErrForbidden or store.ErrNotEmpty.
func (s *Service) DeleteTopic(ctx context.Context, userID, topicID int64) error {
	if err := s.store.DeleteTopic(ctx, topicID, userID); err != nil {
		return notFound(err, ErrTopicNotFound)
	}
	s.logger.Info("topic deleted", "id", topicID, "user", userID)
	return nil
}
