// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows tests to run without a database while keeping the same error semantics

package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MockStore is an in-memory Store implementation for testing.
type MockStore struct {
	mu      sync.RWMutex
	users   map[int64]*User
	byName  map[string]int64
	topics  map[int64]*Topic
	threads map[int64]*Thread
	posts   map[int64]*Post
	nextID  map[string]int64 // per-table id counter
}

var _ Store = (*MockStore)(nil)

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		users:   make(map[int64]*User),
		byName:  make(map[string]int64),
		topics:  make(map[int64]*Topic),
		threads: make(map[int64]*Thread),
		posts:   make(map[int64]*Post),
		nextID:  map[string]int64{"users": 1, "topics": 1, "threads": 1, "posts": 1},
	}
}

func (m *MockStore) allocID(table string) int64 {
	id := m.nextID[table]
	m.nextID[table] = id + 1
	return id
}

func stamp(t time.Time) time.Time {
	if t.IsZero() {
		return now()
	}
	return t
}

// Close is a no-op
func (m *MockStore) Close() error { return nil }

// CreateUser stores a new user.
func (m *MockStore) CreateUser(ctx context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byName[u.Name]; ok {
		return ErrUsernameExists
	}

	u.ID = m.allocID("users")
	u.CreatedAt = stamp(u.CreatedAt)
	c := *u
	m.users[c.ID] = &c
	m.byName[c.Name] = c.ID
	return nil
}

func copyUser(u *User) *User {
	c := *u
	if u.TokenExpiresAt != nil {
		exp := *u.TokenExpiresAt
		c.TokenExpiresAt = &exp
	}
	return &c
}

// GetUser retrieves a user by ID.
func (m *MockStore) GetUser(ctx context.Context, id int64) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyUser(u), nil
}

// GetUserByName retrieves a user by name.
func (m *MockStore) GetUserByName(ctx context.Context, name string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byName[name]
	if !ok {
		return nil, ErrNotFound
	}
	return copyUser(m.users[id]), nil
}

// UserExists reports whether the name is taken.
func (m *MockStore) UserExists(ctx context.Context, name string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.byName[name]
	return ok, nil
}

// SetUserToken replaces the user's token.
func (m *MockStore) SetUserToken(ctx context.Context, userID int64, token string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return ErrNotFound
	}
	exp := expiresAt.UTC()
	u.Token = token
	u.TokenExpiresAt = &exp
	return nil
}

// ListUsersByToken returns users whose token matches exactly.
func (m *MockStore) ListUsersByToken(ctx context.Context, token string) ([]*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*User
	for _, u := range m.users {
		if u.Token != "" && u.Token == token {
			out = append(out, copyUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// TopicExists reports whether the topic exists.
func (m *MockStore) TopicExists(ctx context.Context, id int64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.topics[id]
	return ok, nil
}

func copyTopic(t *Topic) *Topic {
	c := *t
	if t.ParentID != nil {
		p := *t.ParentID
		c.ParentID = &p
	}
	return &c
}

// GetTopic retrieves a topic by ID.
func (m *MockStore) GetTopic(ctx context.Context, id int64) (*Topic, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.topics[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyTopic(t), nil
}

// CreateTopic stores a sub-topic under an existing parent.
func (m *MockStore) CreateTopic(ctx context.Context, t *Topic) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t.ParentID == nil {
		return ErrNotFound
	}
	if _, ok := m.topics[*t.ParentID]; !ok {
		return ErrNotFound
	}

	t.ID = m.allocID("topics")
	t.CreatedAt = stamp(t.CreatedAt)
	m.topics[t.ID] = copyTopic(t)
	return nil
}

func (m *MockStore) countChildTopics(id int64) int {
	n := 0
	for _, c := range m.topics {
		if c.ParentID != nil && *c.ParentID == id {
			n++
		}
	}
	return n
}

func (m *MockStore) countChildThreads(id int64) int {
	n := 0
	for _, c := range m.threads {
		if c.ParentID == id {
			n++
		}
	}
	return n
}

func (m *MockStore) countPosts(threadID int64) int {
	n := 0
	for _, p := range m.posts {
		if p.ParentID == threadID {
			n++
		}
	}
	return n
}

// DeleteTopic removes an empty, owned, non-root topic.
func (m *MockStore) DeleteTopic(ctx context.Context, id, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.topics[id]
	if !ok {
		return ErrNotFound
	}
	if t.IsRoot() || !t.OwnedBy(userID) {
		return ErrForbidden
	}
	if m.countChildTopics(id)+m.countChildThreads(id) > 0 {
		return ErrNotEmpty
	}
	delete(m.topics, id)
	return nil
}

// ListChildTopics returns sub-topics with live counts.
func (m *MockStore) ListChildTopics(ctx context.Context, parentID int64) ([]*TopicSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*TopicSummary
	for _, t := range m.topics {
		if t.ParentID == nil || *t.ParentID != parentID {
			continue
		}
		out = append(out, &TopicSummary{
			Topic:      *copyTopic(t),
			NumTopics:  m.countChildTopics(t.ID),
			NumThreads: m.countChildThreads(t.ID),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ThreadExists reports whether the thread exists.
func (m *MockStore) ThreadExists(ctx context.Context, id int64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.threads[id]
	return ok, nil
}

// GetThread retrieves a thread by ID.
func (m *MockStore) GetThread(ctx context.Context, id int64) (*Thread, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.threads[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *t
	return &c, nil
}

// CreateThread stores a thread under an existing topic.
func (m *MockStore) CreateThread(ctx context.Context, t *Thread) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.topics[t.ParentID]; !ok {
		return ErrNotFound
	}

	t.ID = m.allocID("threads")
	t.CreatedAt = stamp(t.CreatedAt)
	c := *t
	m.threads[c.ID] = &c
	return nil
}

// DeleteThread removes an owned thread without posts.
func (m *MockStore) DeleteThread(ctx context.Context, id, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.threads[id]
	if !ok {
		return ErrNotFound
	}
	if !t.OwnedBy(userID) {
		return ErrForbidden
	}
	if m.countPosts(id) > 0 {
		return ErrNotEmpty
	}
	delete(m.threads, id)
	return nil
}

// ListChildThreads returns threads of a topic with live post counts.
func (m *MockStore) ListChildThreads(ctx context.Context, topicID int64) ([]*ThreadSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*ThreadSummary
	for _, t := range m.threads {
		if t.ParentID != topicID {
			continue
		}
		out = append(out, &ThreadSummary{Thread: *t, NumPosts: m.countPosts(t.ID)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetPost retrieves a post by ID.
func (m *MockStore) GetPost(ctx context.Context, id int64) (*Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.posts[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *p
	return &c, nil
}

// CreatePost stores a post under an existing thread.
func (m *MockStore) CreatePost(ctx context.Context, p *Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.threads[p.ParentID]; !ok {
		return ErrNotFound
	}

	p.ID = m.allocID("posts")
	p.CreatedAt = stamp(p.CreatedAt)
	c := *p
	m.posts[c.ID] = &c
	return nil
}

// DeletePost removes a post authored by userID.
func (m *MockStore) DeletePost(ctx context.Context, id, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.posts[id]
	if !ok {
		return ErrNotFound
	}
	if !p.OwnedBy(userID) {
		return ErrForbidden
	}
	delete(m.posts, id)
	return nil
}

// ListThreadPosts returns posts with author names ordered by id.
func (m *MockStore) ListThreadPosts(ctx context.Context, threadID int64) ([]*PostWithAuthor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*PostWithAuthor
	for _, p := range m.posts {
		if p.ParentID != threadID {
			continue
		}
		author := ""
		if u, ok := m.users[p.UserID]; ok {
			author = u.Name
		}
		out = append(out, &PostWithAuthor{Post: *p, Author: author})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// EnsureRoot creates the root user and topic if absent.
func (m *MockStore) EnsureRoot(ctx context.Context, root *User, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[RootID]; !ok {
		if _, taken := m.byName[RootUserName]; !taken {
			m.users[RootID] = &User{
				ID:           RootID,
				Name:         RootUserName,
				PasswordHash: root.PasswordHash,
				PasswordSalt: root.PasswordSalt,
				CreatedAt:    now(),
			}
			m.byName[RootUserName] = RootID
		}
	}

	if _, ok := m.topics[RootID]; !ok {
		m.topics[RootID] = &Topic{ID: RootID, Title: title, UserID: RootID, CreatedAt: now()}
	}
	return nil
}

// SetTopicParent rewires a topic's parent without any checks.
// Tests use it to build corrupt trees that the real stores would refuse.
func (m *MockStore) SetTopicParent(id int64, parentID *int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t, ok := m.topics[id]; ok {
		t.ParentID = parentID
	}
}
