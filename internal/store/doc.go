// Package store provides persistent storage for the forum.
//
// # Architecture
//
// The store package uses an interface-driven architecture with one small
// interface per entity:
//
//   - UserStore: accounts and their single active bearer token
//   - TopicStore: the topic tree
//   - ThreadStore: threads under topics
//   - PostStore: posts under threads
//
// Store composes them and adds EnsureRoot and Close. Three implementations
// exist:
//
//   - SQLiteStore: database/sql over modernc.org/sqlite ("sqlite") or
//     mattn/go-sqlite3 ("sqlite3")
//   - PostgresStore: jackc/pgx connection pool
//   - MockStore: in-memory, for unit tests
//
// Open selects one by driver name.
//
// # Data Models
//
//   - User: name, salted password hash, token and token expiry
//   - Topic: tree node; ParentID is nil only for the root (id 0)
//   - Thread: belongs to exactly one topic, carries the is_vegan flag
//   - Post: belongs to exactly one thread, authored by a user
//
// Child counts are never stored. ListChildTopics and ListChildThreads
// compute them with subqueries on every read.
//
// # Writes
//
// Each write runs in one transaction. Parent existence, ownership and
// emptiness are checked inside the same transaction as the insert or
// delete, so a rejected request leaves no partial rows.
//
// # Error Handling
//
//   - ErrNotFound: entity or parent does not exist
//   - ErrUsernameExists: name already taken
//   - ErrForbidden: delete by someone other than the owner, or of the root topic
//   - ErrNotEmpty: delete of a topic or thread that still has children
//
// All methods accept context.Context for cancellation support.
//
// # Testing
//
// store_test.go holds a contract suite run against every backend. The
// PostgreSQL run needs FORUM_TEST_POSTGRES_DSN.
package store
