// ABOUTME: Unit tests for MockStore behavior specific to the in-memory implementation
// ABOUTME: Focuses on copy isolation and the corrupt-tree test hook

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockStore_ReturnsCopies(t *testing.T) {
	s := NewMockStore()
	ctx := context.Background()
	require.NoError(t, s.EnsureRoot(ctx, &User{}, "Home"))

	topic, err := s.GetTopic(ctx, RootID)
	require.NoError(t, err)
	topic.Title = "mutated"

	again, err := s.GetTopic(ctx, RootID)
	require.NoError(t, err)
	assert.Equal(t, "Home", again.Title, "callers must not be able to mutate stored state")
}

func TestMockStore_SetTopicParent(t *testing.T) {
	s := NewMockStore()
	ctx := context.Background()
	require.NoError(t, s.EnsureRoot(ctx, &User{}, "Home"))

	a := mustTopic(t, s, RootID, RootID, "A")
	b := mustTopic(t, s, a.ID, RootID, "B")

	// Make A a child of B: a cycle no real store would accept.
	s.SetTopicParent(a.ID, &b.ID)

	got, err := s.GetTopic(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ParentID)
	assert.Equal(t, b.ID, *got.ParentID)
}

func TestMockStore_IDsStartAfterRoot(t *testing.T) {
	s := NewMockStore()
	ctx := context.Background()
	require.NoError(t, s.EnsureRoot(ctx, &User{}, "Home"))

	u := mustUser(t, s, "alice")
	assert.Equal(t, int64(1), u.ID)

	topic := mustTopic(t, s, RootID, u.ID, "first")
	assert.Equal(t, int64(1), topic.ID)
}
