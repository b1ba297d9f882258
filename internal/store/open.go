// ABOUTME: Backend selection for the Store interface
// ABOUTME: Maps a driver name to SQLiteStore or PostgresStore

package store

import (
	"context"
	"fmt"
)

// Open returns the Store for driver. path is used by "sqlite" and "sqlite3", dsn by "postgres".
func Open(ctx context.Context, driver, path, dsn string) (Store, error) {
	switch driver {
	case "sqlite", "sqlite3":
		return NewSQLiteStoreWithDriver(driver, path)
	case "postgres":
		return NewPostgresStore(ctx, dsn)
	default:
		return nil, fmt.Errorf("unknown database driver %q", driver)
	}
}
