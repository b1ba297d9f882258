// ABOUTME: Tests for the forum service views and owner-checked writes
// ABOUTME: Runs against MockStore and a temporary SQLite database

package forum

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-forum/internal/credential"
	"github.com/2389/coven-forum/internal/store"
)

func newService(t *testing.T) (*Service, store.Store) {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "forum.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	svc := NewService(s, 16)
	require.NoError(t, svc.Bootstrap(context.Background(), "Home", ""))
	return svc, s
}

func addUser(t *testing.T, s store.Store, name string) *store.User {
	t.Helper()
	u := &store.User{Name: name, PasswordHash: "h", PasswordSalt: "s"}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func TestBootstrap_Idempotent(t *testing.T) {
	svc, s := newService(t)
	ctx := context.Background()

	require.NoError(t, svc.Bootstrap(ctx, "Home", ""))

	view, err := svc.Topic(ctx, store.RootID)
	require.NoError(t, err)
	assert.Equal(t, "Home", view.Topic.Title)
	assert.Equal(t, []PathEntry{{ID: 0, Title: "Home"}}, view.Path)

	root, err := s.GetUserByName(ctx, store.RootUserName)
	require.NoError(t, err)
	assert.Equal(t, store.RootID, root.ID)
	assert.False(t, credential.VerifyPassword("", root.PasswordHash, root.PasswordSalt),
		"root without configured password must not accept any login")
}

func TestBootstrap_RootPassword(t *testing.T) {
	s := store.NewMockStore()
	svc := NewService(s, 0)
	ctx := context.Background()

	require.NoError(t, svc.Bootstrap(ctx, "Home", "Secret123"))

	root, err := s.GetUser(ctx, store.RootID)
	require.NoError(t, err)
	assert.True(t, credential.VerifyPassword("Secret123", root.PasswordHash, root.PasswordSalt))
}

func TestBootstrap_BadRootPassword(t *testing.T) {
	svc := NewService(store.NewMockStore(), 0)
	err := svc.Bootstrap(context.Background(), "Home", "not ok!")
	assert.ErrorIs(t, err, ErrBadRootPassword)
}

func TestService_TopicView(t *testing.T) {
	svc, s := newService(t)
	ctx := context.Background()
	u := addUser(t, s, "alice")

	a, err := svc.CreateTopic(ctx, u.ID, store.RootID, "Recipes")
	require.NoError(t, err)
	_, err = svc.CreateTopic(ctx, u.ID, a.ID, "Soups")
	require.NoError(t, err)
	th, err := svc.CreateThread(ctx, u.ID, a.ID, "Lentils", true)
	require.NoError(t, err)
	_, err = svc.CreatePost(ctx, u.ID, th.ID, "so good")
	require.NoError(t, err)

	view, err := svc.Topic(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Recipes", view.Topic.Title)
	assert.Equal(t, []PathEntry{{0, "Home"}, {a.ID, "Recipes"}}, view.Path)
	require.Len(t, view.Topics, 1)
	assert.Equal(t, "Soups", view.Topics[0].Title)
	require.Len(t, view.Threads, 1)
	assert.Equal(t, 1, view.Threads[0].NumPosts)
	assert.True(t, view.Threads[0].IsVegan)

	home, err := svc.Topic(ctx, store.RootID)
	require.NoError(t, err)
	require.Len(t, home.Topics, 1)
	assert.Equal(t, 1, home.Topics[0].NumTopics)
	assert.Equal(t, 1, home.Topics[0].NumThreads)
}

func TestService_ThreadView(t *testing.T) {
	svc, s := newService(t)
	ctx := context.Background()
	alice := addUser(t, s, "alice")
	bob := addUser(t, s, "bob")

	a, err := svc.CreateTopic(ctx, alice.ID, store.RootID, "A")
	require.NoError(t, err)
	th, err := svc.CreateThread(ctx, alice.ID, a.ID, "T", false)
	require.NoError(t, err)
	_, err = svc.CreatePost(ctx, alice.ID, th.ID, "first")
	require.NoError(t, err)
	_, err = svc.CreatePost(ctx, bob.ID, th.ID, "second")
	require.NoError(t, err)

	view, err := svc.Thread(ctx, th.ID)
	require.NoError(t, err)
	assert.Equal(t, "T", view.Thread.Title)
	assert.Equal(t, []PathEntry{{0, "Home"}, {a.ID, "A"}}, view.Path)
	require.Len(t, view.Posts, 2)
	assert.Equal(t, "alice", view.Posts[0].Author)
	assert.Equal(t, "bob", view.Posts[1].Author)
}

func TestService_NotFound(t *testing.T) {
	svc, s := newService(t)
	ctx := context.Background()
	u := addUser(t, s, "alice")

	_, err := svc.Topic(ctx, 999)
	assert.ErrorIs(t, err, ErrTopicNotFound)

	_, err = svc.Thread(ctx, 999)
	assert.ErrorIs(t, err, ErrThreadNotFound)

	_, err = svc.CreateTopic(ctx, u.ID, 999, "x")
	assert.ErrorIs(t, err, ErrTopicNotFound)

	_, err = svc.CreateThread(ctx, u.ID, 999, "x", false)
	assert.ErrorIs(t, err, ErrTopicNotFound)

	_, err = svc.CreatePost(ctx, u.ID, 999, "x")
	assert.ErrorIs(t, err, ErrThreadNotFound)

	assert.ErrorIs(t, svc.DeletePost(ctx, u.ID, 999), ErrPostNotFound)
	assert.ErrorIs(t, svc.DeleteThread(ctx, u.ID, 999), ErrThreadNotFound)
	assert.ErrorIs(t, svc.DeleteTopic(ctx, u.ID, 999), ErrTopicNotFound)
}

func TestService_DeleteOwnership(t *testing.T) {
	svc, s := newService(t)
	ctx := context.Background()
	alice := addUser(t, s, "alice")
	bob := addUser(t, s, "bob")

	topic, err := svc.CreateTopic(ctx, alice.ID, store.RootID, "A")
	require.NoError(t, err)
	th, err := svc.CreateThread(ctx, alice.ID, topic.ID, "T", false)
	require.NoError(t, err)
	post, err := svc.CreatePost(ctx, alice.ID, th.ID, "hi")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.DeletePost(ctx, bob.ID, post.ID), store.ErrForbidden)
	assert.ErrorIs(t, svc.DeleteThread(ctx, alice.ID, th.ID), store.ErrNotEmpty)
	assert.ErrorIs(t, svc.DeleteTopic(ctx, alice.ID, topic.ID), store.ErrNotEmpty)

	require.NoError(t, svc.DeletePost(ctx, alice.ID, post.ID))
	require.NoError(t, svc.DeleteThread(ctx, alice.ID, th.ID))
	require.NoError(t, svc.DeleteTopic(ctx, alice.ID, topic.ID))
}

func TestService_CorruptTree(t *testing.T) {
	s := store.NewMockStore()
	svc := NewService(s, 8)
	ctx := context.Background()
	require.NoError(t, svc.Bootstrap(ctx, "Home", ""))

	a, err := svc.CreateTopic(ctx, store.RootID, store.RootID, "A")
	require.NoError(t, err)
	b, err := svc.CreateTopic(ctx, store.RootID, a.ID, "B")
	require.NoError(t, err)
	s.SetTopicParent(a.ID, &b.ID)

	_, err = svc.Topic(ctx, b.ID)
	assert.ErrorIs(t, err, ErrCorruptData)
}
