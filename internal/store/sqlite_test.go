// ABOUTME: Tests for SQLite store implementation
// ABOUTME: Covers file creation, persistence across reopen, driver selection, and timestamps

package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)

	t.Cleanup(func() {
		store.Close()
	})

	return store
}

func TestNewSQLiteStore(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "subdir", "nested", "test.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created in nested directory")
	}
}

func TestNewSQLiteStore_UnknownDriver(t *testing.T) {
	_, err := NewSQLiteStoreWithDriver("mysql", filepath.Join(t.TempDir(), "x.db"))
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "forum.db")
	ctx := context.Background()

	s1, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s1.EnsureRoot(ctx, &User{PasswordHash: "h", PasswordSalt: "s"}, "Home"))
	u := mustUser(t, s1, "alice")
	topic := mustTopic(t, s1, RootID, u.ID, "Kept")
	require.NoError(t, s1.Close())

	s2, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer s2.Close()

	require.NoError(t, s2.EnsureRoot(ctx, &User{PasswordHash: "h", PasswordSalt: "s"}, "Home"))

	got, err := s2.GetTopic(ctx, topic.ID)
	require.NoError(t, err)
	assert.Equal(t, "Kept", got.Title)

	// Auto-increment continues past existing rows.
	next := mustTopic(t, s2, RootID, u.ID, "Next")
	assert.Greater(t, next.ID, topic.ID)
}

func TestSQLiteStore_ForeignKeysEnforced(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.EnsureRoot(ctx, &User{PasswordHash: "h", PasswordSalt: "s"}, "Home"))

	// Bypass the parent check to make sure the schema itself rejects orphans.
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO threads (title, is_vegan, parent_id, user_id, created_at) VALUES ('x', 0, 999, 0, ?)
	`, formatTime(time.Now()))
	assert.Error(t, err, "foreign key on threads.parent_id should be enforced")
}

func TestSQLiteStore_TimestampsRoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.EnsureRoot(ctx, &User{PasswordHash: "h", PasswordSalt: "s"}, "Home"))

	created := time.Date(2024, 3, 1, 12, 30, 45, 123456789, time.UTC)
	u := &User{Name: "alice", PasswordHash: "h", PasswordSalt: "s", CreatedAt: created}
	require.NoError(t, s.CreateUser(ctx, u))

	got, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, created.Equal(got.CreatedAt), "got %v want %v", got.CreatedAt, created)
}

func TestSQLiteStore_MattnDriver(t *testing.T) {
	s, err := NewSQLiteStoreWithDriver("sqlite3", filepath.Join(t.TempDir(), "cgo.db"))
	if err != nil {
		if strings.Contains(err.Error(), "CGO_ENABLED=0") || strings.Contains(err.Error(), "cgo") {
			t.Skipf("mattn/go-sqlite3 unavailable: %v", err)
		}
		t.Fatalf("NewSQLiteStoreWithDriver(sqlite3) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	runStoreContract(t, func(t *testing.T) Store {
		st, err := NewSQLiteStoreWithDriver("sqlite3", filepath.Join(t.TempDir(), "cgo.db"))
		require.NoError(t, err)
		t.Cleanup(func() { st.Close() })
		return st
	})
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, "sqlite", filepath.Join(t.TempDir(), "open.db"), "")
	require.NoError(t, err)
	defer s.Close()
	assert.IsType(t, &SQLiteStore{}, s)

	_, err = Open(ctx, "oracle", "", "")
	assert.Error(t, err)
}
