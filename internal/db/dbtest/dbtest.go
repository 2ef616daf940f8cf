// Package dbtest provides migrated SQLite mirror databases for tests.
package dbtest

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/emilianohg/devtracker/internal/config"
	"github.com/emilianohg/devtracker/internal/db"
)

// Config returns a sqlite3 database config rooted in a fresh temp directory
func Config(t testing.TB) config.DatabaseConfig {
	t.Helper()
	return config.DatabaseConfig{
		Driver:       "sqlite3",
		Path:         filepath.Join(t.TempDir(), "mirror.sqlite"),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		QueryTimeout: 5 * time.Second,
	}
}

// Open returns a migrated mirror database that is closed when the test ends
func Open(t testing.TB) *sql.DB {
	t.Helper()
	database, err := db.OpenAndMigrate(Config(t))
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}
